package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"google.golang.org/api/gmail/v1"
)

// SenderMe is the Gmail alias for the authenticated account.
const SenderMe = "me"

const replyPrefix = "Re: "

// SubjectSource selects which field of the original message a reply subject is derived from.
type SubjectSource string

const (
	// SubjectFromSnippet derives the subject from the message snippet.
	SubjectFromSnippet SubjectSource = "snippet"
	// SubjectFromHeader uses the Subject header, falling back to the snippet when it is absent.
	SubjectFromHeader SubjectSource = "header"
)

// Valid reports whether s names a known subject source.
func (s SubjectSource) Valid() bool {
	return s == SubjectFromSnippet || s == SubjectFromHeader
}

// ReplyRequest asks to reply to an existing message.
type ReplyRequest struct {
	MessageID string `json:"message_id" binding:"required" jsonschema:"ID of the email to reply to"`
	To        string `json:"to" binding:"required" jsonschema:"recipient email address"`
	Body      string `json:"body" binding:"required" jsonschema:"reply content"`
	ReplyAll  bool   `json:"reply_all,omitempty" jsonschema:"copy every recipient of the original message"`
}

// SendRequest asks to send a new message.
type SendRequest struct {
	To      string `json:"to" binding:"required" jsonschema:"recipient email address"`
	Subject string `json:"subject" binding:"required" jsonschema:"email subject"`
	Body    string `json:"body" binding:"required" jsonschema:"email content"`
}

// ReplyOptions tunes reply composition.
type ReplyOptions struct {
	SubjectSource SubjectSource
	// Self is the account address, excluded from reply-all copies.
	Self string
	Date time.Time
}

// OutgoingMessage is a message ready for transport encoding.
type OutgoingMessage struct {
	To         string
	Cc         []*mail.Address
	From       string
	Subject    string
	Body       string
	InReplyTo  string
	References string
	ThreadID   string
	Date       time.Time
}

// ReplySubject prefixes s with "Re: " unless it already starts with "re:" in any case.
func ReplySubject(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "re:") {
		return s
	}
	return replyPrefix + s
}

// ComposeReply builds a reply to original. The Gmail message ID doubles as the
// In-Reply-To and References value.
func ComposeReply(req ReplyRequest, original *gmail.Message, opts ReplyOptions) OutgoingMessage {
	base := original.Snippet
	if opts.SubjectSource == SubjectFromHeader {
		if subject := HeaderValue(original, "Subject"); subject != "" {
			base = subject
		}
	}

	threadID := original.ThreadId
	if threadID == "" {
		threadID = req.MessageID
	}

	msg := OutgoingMessage{
		To:         req.To,
		From:       SenderMe,
		Subject:    ReplySubject(base),
		Body:       req.Body,
		InReplyTo:  req.MessageID,
		References: req.MessageID,
		ThreadID:   threadID,
		Date:       opts.Date,
	}

	if req.ReplyAll {
		msg.Cc = replyAllCopies(original, req.To, opts.Self)
	}

	return msg
}

// Compose builds a new standalone message.
func Compose(req SendRequest, date time.Time) OutgoingMessage {
	return OutgoingMessage{
		To:      req.To,
		From:    SenderMe,
		Subject: req.Subject,
		Body:    req.Body,
		Date:    date,
	}
}

func replyAllCopies(original *gmail.Message, to, self string) []*mail.Address {
	skip := map[string]bool{}
	if self != "" {
		skip[strings.ToLower(self)] = true
	}
	for _, addr := range parseAddresses(to) {
		skip[strings.ToLower(addr.Address)] = true
	}

	var copies []*mail.Address
	for _, name := range []string{"From", "To", "Cc"} {
		for _, addr := range parseAddresses(HeaderValue(original, name)) {
			key := strings.ToLower(addr.Address)
			if skip[key] {
				continue
			}
			skip[key] = true
			copies = append(copies, addr)
		}
	}

	return copies
}

func parseAddresses(list string) []*mail.Address {
	if strings.TrimSpace(list) == "" {
		return nil
	}

	addrs, err := mail.ParseAddressList(list)
	if err != nil {
		return nil
	}

	return addrs
}

// Build renders m as an RFC 5322 message.
func (m OutgoingMessage) Build() ([]byte, error) {
	var h mail.Header
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	h.Set("MIME-Version", "1.0")
	h.Set("To", m.To)
	h.Set("From", m.From)
	h.SetSubject(m.Subject)
	if len(m.Cc) > 0 {
		h.SetAddressList("Cc", m.Cc)
	}
	if !m.Date.IsZero() {
		h.SetDate(m.Date)
	}
	if m.InReplyTo != "" {
		h.Set("In-Reply-To", m.InReplyTo)
	}
	if m.References != "" {
		h.Set("References", m.References)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("mail.CreateSingleInlineWriter failed: %w", err)
	}
	if _, err := io.WriteString(w, m.Body); err != nil {
		return nil, fmt.Errorf("w.Write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("w.Close failed: %w", err)
	}

	return buf.Bytes(), nil
}

// Encode renders m and wraps it into the Gmail raw submission form.
func (m OutgoingMessage) Encode() (*gmail.Message, error) {
	raw, err := m.Build()
	if err != nil {
		return nil, err
	}

	return &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString(raw),
		ThreadId: m.ThreadID,
	}, nil
}
