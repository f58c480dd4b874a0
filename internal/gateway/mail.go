package gateway

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"

	"github.com/hal9000y/gapi-gateway/internal/email"
)

type gmailSvc interface {
	ListMessages(ctx context.Context, q string, maxResults int64) (*gmail.ListMessagesResponse, error)
	GetMessage(ctx context.Context, msgID string) (*gmail.Message, error)
	SendMessage(ctx context.Context, msg *gmail.Message) (*gmail.Message, error)
	Profile(ctx context.Context) (string, error)
}

// MailOptions configures Mail.
type MailOptions struct {
	MaxResults       int64
	FetchConcurrency int
	SubjectSource    email.SubjectSource
	Timeout          time.Duration
	Now              func() time.Time
}

// EmailList is the ListEmails result.
type EmailList struct {
	Emails []email.Summary `json:"emails"`
	Count  int             `json:"count"`
}

// Mail lists, replies to and sends Gmail messages.
type Mail struct {
	svc  gmailSvc
	opts MailOptions
	now  func() time.Time
	log  *zap.Logger
}

// NewMail creates Mail.
func NewMail(svc gmailSvc, opts MailOptions, log *zap.Logger) *Mail {
	if opts.FetchConcurrency < 1 {
		opts.FetchConcurrency = 1
	}
	if !opts.SubjectSource.Valid() {
		opts.SubjectSource = email.SubjectFromSnippet
	}

	return &Mail{
		svc:  svc,
		opts: opts,
		now:  clock(opts.Now),
		log:  log,
	}
}

// LabelQuery is the Gmail search query for label; empty matches everything.
func LabelQuery(label string) string {
	if label == "" {
		return ""
	}
	return "label:" + label
}

// ListEmails returns summaries of the most recent messages carrying label, in
// the order Gmail listed them. Any failed detail fetch fails the whole call.
func (m *Mail) ListEmails(ctx context.Context, label string) (EmailList, error) {
	ctx, cancel := withTimeout(ctx, m.opts.Timeout)
	defer cancel()

	list, err := m.svc.ListMessages(ctx, LabelQuery(label), m.opts.MaxResults)
	if err != nil {
		return EmailList{}, fmt.Errorf("svc.ListMessages failed: %w", err)
	}

	summaries := make([]email.Summary, len(list.Messages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.FetchConcurrency)
	for i, ref := range list.Messages {
		g.Go(func() error {
			msg, err := m.svc.GetMessage(gctx, ref.Id)
			if err != nil {
				return fmt.Errorf("svc.GetMessage %s failed: %w", ref.Id, err)
			}
			summaries[i] = email.Summarize(msg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return EmailList{}, err
	}

	m.log.Debug("emails listed", zap.String("label", label), zap.Int("count", len(summaries)))

	return EmailList{Emails: summaries, Count: len(summaries)}, nil
}

// Reply answers req.MessageID inside its thread and returns the sent message.
func (m *Mail) Reply(ctx context.Context, req email.ReplyRequest) (*gmail.Message, error) {
	if req.MessageID == "" || req.To == "" {
		return nil, invalid(fmt.Errorf("message_id and to are required"))
	}

	ctx, cancel := withTimeout(ctx, m.opts.Timeout)
	defer cancel()

	original, err := m.svc.GetMessage(ctx, req.MessageID)
	if err != nil {
		return nil, fmt.Errorf("svc.GetMessage failed: %w", err)
	}

	opts := email.ReplyOptions{SubjectSource: m.opts.SubjectSource, Date: m.now()}
	if req.ReplyAll {
		if opts.Self, err = m.svc.Profile(ctx); err != nil {
			return nil, fmt.Errorf("svc.Profile failed: %w", err)
		}
	}

	out, err := email.ComposeReply(req, original, opts).Encode()
	if err != nil {
		return nil, fmt.Errorf("Encode failed: %w", err)
	}

	sent, err := m.svc.SendMessage(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("svc.SendMessage failed: %w", err)
	}

	m.log.Info("reply sent",
		zap.String("message_id", req.MessageID),
		zap.String("thread_id", sent.ThreadId),
		zap.Bool("reply_all", req.ReplyAll),
	)

	return sent, nil
}

// Send composes and sends a new message.
func (m *Mail) Send(ctx context.Context, req email.SendRequest) (*gmail.Message, error) {
	if req.To == "" {
		return nil, invalid(fmt.Errorf("to is required"))
	}

	ctx, cancel := withTimeout(ctx, m.opts.Timeout)
	defer cancel()

	out, err := email.Compose(req, m.now()).Encode()
	if err != nil {
		return nil, fmt.Errorf("Encode failed: %w", err)
	}

	sent, err := m.svc.SendMessage(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("svc.SendMessage failed: %w", err)
	}

	m.log.Info("email sent", zap.String("id", sent.Id))

	return sent, nil
}
