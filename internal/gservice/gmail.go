package gservice

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	gmailUserID = "me"
	gmailAPI    = "gmail"
)

// NewGmail creates a Gmail wrapper. Extra options are appended after the
// authenticated HTTP client, e.g. option.WithEndpoint in tests.
func NewGmail(cred credential, rec Recorder, opts ...option.ClientOption) *GMail {
	return &GMail{
		cred: cred,
		rec:  rec,
		opts: opts,
	}
}

// GMail performs Gmail API calls on behalf of the authenticated user.
type GMail struct {
	cred credential
	rec  Recorder
	opts []option.ClientOption
}

// ListMessages lists message references matching the Gmail search query q.
func (m *GMail) ListMessages(ctx context.Context, q string, maxResults int64) (_ *gmail.ListMessagesResponse, err error) {
	defer func(started time.Time) { observe(m.rec, gmailAPI, "messages.list", started, err) }(time.Now())

	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	result, err := svc.Users.Messages.List(gmailUserID).
		Q(q).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("messages.List failed: %w", err)
	}

	return result, nil
}

// GetMessage fetches a message in full format.
func (m *GMail) GetMessage(ctx context.Context, msgID string) (_ *gmail.Message, err error) {
	defer func(started time.Time) { observe(m.rec, gmailAPI, "messages.get", started, err) }(time.Now())

	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	msg, err := svc.Users.Messages.Get(gmailUserID, msgID).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("messages.Get failed: %w", err)
	}

	return msg, nil
}

// SendMessage submits a raw encoded message.
func (m *GMail) SendMessage(ctx context.Context, msg *gmail.Message) (_ *gmail.Message, err error) {
	defer func(started time.Time) { observe(m.rec, gmailAPI, "messages.send", started, err) }(time.Now())

	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	sent, err := svc.Users.Messages.Send(gmailUserID, msg).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("messages.Send failed: %w", err)
	}

	return sent, nil
}

// Profile returns the address of the authenticated account.
func (m *GMail) Profile(ctx context.Context) (_ string, err error) {
	defer func(started time.Time) { observe(m.rec, gmailAPI, "users.getProfile", started, err) }(time.Now())

	svc, err := m.newSvc(ctx)
	if err != nil {
		return "", fmt.Errorf("newSvc failed: %w", err)
	}

	profile, err := svc.Users.GetProfile(gmailUserID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("users.GetProfile failed: %w", err)
	}

	return profile.EmailAddress, nil
}

func (m *GMail) newSvc(ctx context.Context) (*gmail.Service, error) {
	clt, err := httpClient(ctx, m.cred)
	if err != nil {
		return nil, err
	}

	opts := append([]option.ClientOption{option.WithHTTPClient(clt)}, m.opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail.NewService failed: %w", err)
	}

	return svc, nil
}
