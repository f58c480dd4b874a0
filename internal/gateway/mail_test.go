package gateway_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"

	"github.com/hal9000y/gapi-gateway/internal/email"
	"github.com/hal9000y/gapi-gateway/internal/gateway"
)

var fixedNow = time.Date(2025, 10, 1, 3, 15, 0, 0, time.UTC)

type gmailSvcMock struct {
	ListMessagesFunc func(ctx context.Context, q string, maxResults int64) (*gmail.ListMessagesResponse, error)
	GetMessageFunc   func(ctx context.Context, msgID string) (*gmail.Message, error)
	SendMessageFunc  func(ctx context.Context, msg *gmail.Message) (*gmail.Message, error)
	ProfileFunc      func(ctx context.Context) (string, error)
}

func (m *gmailSvcMock) ListMessages(ctx context.Context, q string, maxResults int64) (*gmail.ListMessagesResponse, error) {
	return m.ListMessagesFunc(ctx, q, maxResults)
}

func (m *gmailSvcMock) GetMessage(ctx context.Context, msgID string) (*gmail.Message, error) {
	return m.GetMessageFunc(ctx, msgID)
}

func (m *gmailSvcMock) SendMessage(ctx context.Context, msg *gmail.Message) (*gmail.Message, error) {
	return m.SendMessageFunc(ctx, msg)
}

func (m *gmailSvcMock) Profile(ctx context.Context) (string, error) {
	return m.ProfileFunc(ctx)
}

func message(id, subject, from string) *gmail.Message {
	return &gmail.Message{
		Id:       id,
		ThreadId: "thread-" + id,
		Snippet:  "snippet of " + id,
		Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{
			{Name: "Subject", Value: subject},
			{Name: "From", Value: from},
		}},
	}
}

func newMail(svc *gmailSvcMock, opts gateway.MailOptions) *gateway.Mail {
	opts.Now = func() time.Time { return fixedNow }
	if opts.MaxResults == 0 {
		opts.MaxResults = 10
	}
	return gateway.NewMail(svc, opts, zap.NewNop())
}

func decodeRaw(t *testing.T, raw string) (*mail.Reader, string) {
	t.Helper()
	b, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)

	mr, err := mail.CreateReader(bytes.NewReader(b))
	require.NoError(t, err)
	part, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)

	return mr, string(body)
}

func TestLabelQuery(t *testing.T) {
	assert.Equal(t, "label:Work", gateway.LabelQuery("Work"))
	assert.Equal(t, "", gateway.LabelQuery(""))
}

func TestMail_ListEmails(t *testing.T) {
	cases := []struct {
		name     string
		label    string
		refs     []*gmail.Message
		expected gateway.EmailList
		query    string
	}{
		{
			name:  "label with two messages keeps order",
			label: "Work",
			refs:  []*gmail.Message{{Id: "m2"}, {Id: "m1"}},
			expected: gateway.EmailList{
				Emails: []email.Summary{
					{ID: "m2", Snippet: "snippet of m2", Subject: "subject m2", From: "from-m2@example.com"},
					{ID: "m1", Snippet: "snippet of m1", Subject: "subject m1", From: "from-m1@example.com"},
				},
				Count: 2,
			},
			query: "label:Work",
		},
		{
			name:     "no results",
			expected: gateway.EmailList{Emails: []email.Summary{}, Count: 0},
			query:    "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotQuery string
			var gotMax int64
			svc := &gmailSvcMock{
				ListMessagesFunc: func(_ context.Context, q string, maxResults int64) (*gmail.ListMessagesResponse, error) {
					gotQuery, gotMax = q, maxResults
					return &gmail.ListMessagesResponse{Messages: tc.refs}, nil
				},
				GetMessageFunc: func(_ context.Context, id string) (*gmail.Message, error) {
					// Finish out of order to prove ordering comes from the list.
					if id == "m2" {
						time.Sleep(10 * time.Millisecond)
					}
					return message(id, "subject "+id, "from-"+id+"@example.com"), nil
				},
			}

			got, err := newMail(svc, gateway.MailOptions{FetchConcurrency: 5}).ListEmails(context.Background(), tc.label)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, tc.query, gotQuery)
			assert.Equal(t, int64(10), gotMax)
		})
	}
}

func TestMail_ListEmails_BoundedConcurrency(t *testing.T) {
	refs := make([]*gmail.Message, 10)
	for i := range refs {
		refs[i] = &gmail.Message{Id: string(rune('a' + i))}
	}

	var inFlight, peak int32
	svc := &gmailSvcMock{
		ListMessagesFunc: func(context.Context, string, int64) (*gmail.ListMessagesResponse, error) {
			return &gmail.ListMessagesResponse{Messages: refs}, nil
		},
		GetMessageFunc: func(_ context.Context, id string) (*gmail.Message, error) {
			n := atomic.AddInt32(&inFlight, 1)
			defer atomic.AddInt32(&inFlight, -1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return &gmail.Message{Id: id}, nil
		},
	}

	got, err := newMail(svc, gateway.MailOptions{FetchConcurrency: 3}).ListEmails(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Count)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestMail_ListEmails_Errors(t *testing.T) {
	errUpstream := errors.New("upstream down")

	t.Run("list fails", func(t *testing.T) {
		svc := &gmailSvcMock{
			ListMessagesFunc: func(context.Context, string, int64) (*gmail.ListMessagesResponse, error) {
				return nil, errUpstream
			},
		}
		_, err := newMail(svc, gateway.MailOptions{}).ListEmails(context.Background(), "Work")
		require.ErrorIs(t, err, errUpstream)
		assert.False(t, gateway.IsValidation(err))
	})

	t.Run("one detail fetch fails", func(t *testing.T) {
		svc := &gmailSvcMock{
			ListMessagesFunc: func(context.Context, string, int64) (*gmail.ListMessagesResponse, error) {
				return &gmail.ListMessagesResponse{Messages: []*gmail.Message{{Id: "ok"}, {Id: "bad"}}}, nil
			},
			GetMessageFunc: func(_ context.Context, id string) (*gmail.Message, error) {
				if id == "bad" {
					return nil, errUpstream
				}
				return &gmail.Message{Id: id}, nil
			},
		}
		_, err := newMail(svc, gateway.MailOptions{FetchConcurrency: 2}).ListEmails(context.Background(), "")
		require.ErrorIs(t, err, errUpstream)
	})
}

func TestMail_Reply(t *testing.T) {
	original := &gmail.Message{
		Id:       "abc123",
		ThreadId: "thread-1",
		Snippet:  "meeting notes",
		Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{
			{Name: "Subject", Value: "Weekly sync"},
			{Name: "From", Value: "x@y.com"},
			{Name: "To", Value: "me@y.com, team@y.com"},
		}},
	}

	cases := []struct {
		name            string
		req             email.ReplyRequest
		source          email.SubjectSource
		expectedSubject string
		expectedCc      string
	}{
		{
			name:            "subject from snippet",
			req:             email.ReplyRequest{MessageID: "abc123", To: "x@y.com", Body: "Thanks"},
			expectedSubject: "Re: meeting notes",
		},
		{
			name:            "subject from header",
			req:             email.ReplyRequest{MessageID: "abc123", To: "x@y.com", Body: "Thanks"},
			source:          email.SubjectFromHeader,
			expectedSubject: "Re: Weekly sync",
		},
		{
			name:            "reply all skips self and recipient",
			req:             email.ReplyRequest{MessageID: "abc123", To: "x@y.com", Body: "Thanks", ReplyAll: true},
			expectedSubject: "Re: meeting notes",
			expectedCc:      "<team@y.com>",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var sent *gmail.Message
			svc := &gmailSvcMock{
				GetMessageFunc: func(_ context.Context, id string) (*gmail.Message, error) {
					require.Equal(t, "abc123", id)
					return original, nil
				},
				ProfileFunc: func(context.Context) (string, error) { return "me@y.com", nil },
				SendMessageFunc: func(_ context.Context, msg *gmail.Message) (*gmail.Message, error) {
					sent = msg
					return &gmail.Message{Id: "sent-1", ThreadId: msg.ThreadId, LabelIds: []string{"SENT"}}, nil
				},
			}

			res, err := newMail(svc, gateway.MailOptions{SubjectSource: tc.source}).Reply(context.Background(), tc.req)
			require.NoError(t, err)
			assert.Equal(t, &gmail.Message{Id: "sent-1", ThreadId: "thread-1", LabelIds: []string{"SENT"}}, res)

			require.NotNil(t, sent)
			assert.Equal(t, "thread-1", sent.ThreadId)

			mr, body := decodeRaw(t, sent.Raw)
			subject, err := mr.Header.Subject()
			require.NoError(t, err)
			assert.Equal(t, tc.expectedSubject, subject)
			assert.Equal(t, "x@y.com", mr.Header.Get("To"))
			assert.Equal(t, "me", mr.Header.Get("From"))
			assert.Equal(t, "abc123", mr.Header.Get("In-Reply-To"))
			assert.Equal(t, "abc123", mr.Header.Get("References"))
			assert.Equal(t, tc.expectedCc, mr.Header.Get("Cc"))
			assert.Equal(t, "Thanks", body)
		})
	}
}

func TestMail_Reply_Errors(t *testing.T) {
	errUpstream := errors.New("send refused")

	t.Run("missing fields", func(t *testing.T) {
		_, err := newMail(&gmailSvcMock{}, gateway.MailOptions{}).Reply(context.Background(), email.ReplyRequest{Body: "x"})
		require.Error(t, err)
		assert.True(t, gateway.IsValidation(err))
	})

	t.Run("send error propagates", func(t *testing.T) {
		svc := &gmailSvcMock{
			GetMessageFunc: func(context.Context, string) (*gmail.Message, error) {
				return &gmail.Message{Id: "abc123", Snippet: "hi"}, nil
			},
			SendMessageFunc: func(context.Context, *gmail.Message) (*gmail.Message, error) {
				return nil, errUpstream
			},
		}
		res, err := newMail(svc, gateway.MailOptions{}).Reply(context.Background(),
			email.ReplyRequest{MessageID: "abc123", To: "x@y.com", Body: "Thanks"})
		require.ErrorIs(t, err, errUpstream)
		assert.Nil(t, res)
	})

	t.Run("original missing", func(t *testing.T) {
		svc := &gmailSvcMock{
			GetMessageFunc: func(context.Context, string) (*gmail.Message, error) {
				return nil, errUpstream
			},
		}
		_, err := newMail(svc, gateway.MailOptions{}).Reply(context.Background(),
			email.ReplyRequest{MessageID: "nope", To: "x@y.com", Body: "Thanks"})
		require.ErrorIs(t, err, errUpstream)
	})
}

func TestMail_Send(t *testing.T) {
	var sent *gmail.Message
	svc := &gmailSvcMock{
		SendMessageFunc: func(_ context.Context, msg *gmail.Message) (*gmail.Message, error) {
			sent = msg
			return &gmail.Message{Id: "new-1", ThreadId: "new-1"}, nil
		},
	}

	res, err := newMail(svc, gateway.MailOptions{}).Send(context.Background(),
		email.SendRequest{To: "boss@y.com", Subject: "Status", Body: "All green"})
	require.NoError(t, err)
	assert.Equal(t, "new-1", res.Id)

	require.NotNil(t, sent)
	assert.Empty(t, sent.ThreadId)
	mr, body := decodeRaw(t, sent.Raw)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Status", subject)
	assert.Equal(t, "boss@y.com", mr.Header.Get("To"))
	assert.Equal(t, "All green", body)

	date, err := mr.Header.Date()
	require.NoError(t, err)
	assert.True(t, fixedNow.Equal(date))
}
