package tool_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"

	"github.com/hal9000y/gapi-gateway/internal/email"
	"github.com/hal9000y/gapi-gateway/internal/event"
	"github.com/hal9000y/gapi-gateway/internal/gateway"
	"github.com/hal9000y/gapi-gateway/internal/tool"
)

type mailerMock struct {
	ListEmailsFunc func(ctx context.Context, label string) (gateway.EmailList, error)
	ReplyFunc      func(ctx context.Context, req email.ReplyRequest) (*gmail.Message, error)
	SendFunc       func(ctx context.Context, req email.SendRequest) (*gmail.Message, error)
}

func (m *mailerMock) ListEmails(ctx context.Context, label string) (gateway.EmailList, error) {
	return m.ListEmailsFunc(ctx, label)
}

func (m *mailerMock) Reply(ctx context.Context, req email.ReplyRequest) (*gmail.Message, error) {
	return m.ReplyFunc(ctx, req)
}

func (m *mailerMock) Send(ctx context.Context, req email.SendRequest) (*gmail.Message, error) {
	return m.SendFunc(ctx, req)
}

type schedulerMock struct {
	ListTodayFunc func(ctx context.Context) (gateway.EventList, error)
	CreateFunc    func(ctx context.Context, req event.CreateRequest) (event.Created, error)
	UpdateFunc    func(ctx context.Context, eventID string, req event.UpdateRequest) (*calendar.Event, error)
}

func (m *schedulerMock) ListToday(ctx context.Context) (gateway.EventList, error) {
	return m.ListTodayFunc(ctx)
}

func (m *schedulerMock) Create(ctx context.Context, req event.CreateRequest) (event.Created, error) {
	return m.CreateFunc(ctx, req)
}

func (m *schedulerMock) Update(ctx context.Context, eventID string, req event.UpdateRequest) (*calendar.Event, error) {
	return m.UpdateFunc(ctx, eventID, req)
}

type mailer interface {
	ListEmails(ctx context.Context, label string) (gateway.EmailList, error)
	Reply(ctx context.Context, req email.ReplyRequest) (*gmail.Message, error)
	Send(ctx context.Context, req email.SendRequest) (*gmail.Message, error)
}

type scheduler interface {
	ListToday(ctx context.Context) (gateway.EventList, error)
	Create(ctx context.Context, req event.CreateRequest) (event.Created, error)
	Update(ctx context.Context, eventID string, req event.UpdateRequest) (*calendar.Event, error)
}

func connect(t *testing.T, mail mailer, cal scheduler) *mcp.ClientSession {
	t.Helper()

	server := tool.NewServer(mail, cal, "test")
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ctx := context.Background()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSession.Close() })

	return clientSession
}

func call(t *testing.T, session *mcp.ClientSession, name string, args any) (string, bool) {
	t.Helper()

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	return result.Content[0].(*mcp.TextContent).Text, result.IsError
}

func TestListTools(t *testing.T) {
	session := connect(t, &mailerMock{}, &schedulerMock{})

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tl := range res.Tools {
		names = append(names, tl.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_emails", "reply_email", "send_email",
		"list_today_events", "create_event", "update_event",
	}, names)
}

func TestListEmails(t *testing.T) {
	cases := []struct {
		label       string
		expected    gateway.EmailList
		expectedErr error
	}{
		{
			label: "Work",
			expected: gateway.EmailList{Emails: []email.Summary{
				{ID: "m-001", Snippet: "first", Subject: "Budget", From: "Boss <boss@example.com>"},
				{ID: "m-002", Snippet: "second", Subject: "Re: Budget", From: "cfo@example.com"},
			}, Count: 2},
		},
		{
			label:    "Empty",
			expected: gateway.EmailList{Emails: []email.Summary{}, Count: 0},
		},
		{
			label:       "Broken",
			expectedErr: fmt.Errorf("simulated error: Broken"),
		},
	}

	byLabel := map[string]gateway.EmailList{}
	for _, tc := range cases {
		if tc.expectedErr == nil {
			byLabel[tc.label] = tc.expected
		}
	}

	session := connect(t, &mailerMock{
		ListEmailsFunc: func(_ context.Context, label string) (gateway.EmailList, error) {
			res, ok := byLabel[label]
			if !ok {
				return gateway.EmailList{}, fmt.Errorf("simulated error: %s", label)
			}
			return res, nil
		},
	}, &schedulerMock{})

	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			text, isErr := call(t, session, "list_emails", tool.ListEmailsRequest{Label: tc.label})

			if tc.expectedErr != nil {
				require.True(t, isErr, "Result should indicate error")
				assert.Contains(t, text, tc.expectedErr.Error())
				return
			}

			require.False(t, isErr, text)
			var response gateway.EmailList
			require.NoError(t, json.Unmarshal([]byte(text), &response))
			assert.Equal(t, tc.expected, response)
		})
	}
}

func TestReplyEmail(t *testing.T) {
	var got email.ReplyRequest
	session := connect(t, &mailerMock{
		ReplyFunc: func(_ context.Context, req email.ReplyRequest) (*gmail.Message, error) {
			got = req
			if req.MessageID == "gone" {
				return nil, errors.New("svc.GetMessage failed: 404")
			}
			return &gmail.Message{Id: "sent-1", ThreadId: "thread-1", LabelIds: []string{"SENT"}}, nil
		},
	}, &schedulerMock{})

	text, isErr := call(t, session, "reply_email", email.ReplyRequest{MessageID: "abc123", To: "x@y.com", Body: "Thanks", ReplyAll: true})
	require.False(t, isErr, text)
	assert.Equal(t, email.ReplyRequest{MessageID: "abc123", To: "x@y.com", Body: "Thanks", ReplyAll: true}, got)

	var res tool.SendResult
	require.NoError(t, json.Unmarshal([]byte(text), &res))
	assert.Equal(t, tool.SendResult{ID: "sent-1", ThreadID: "thread-1", LabelIDs: []string{"SENT"}}, res)

	text, isErr = call(t, session, "reply_email", email.ReplyRequest{MessageID: "gone", To: "x@y.com", Body: "Thanks"})
	require.True(t, isErr)
	assert.Contains(t, text, "404")
}

func TestSendEmail(t *testing.T) {
	session := connect(t, &mailerMock{
		SendFunc: func(_ context.Context, req email.SendRequest) (*gmail.Message, error) {
			assert.Equal(t, email.SendRequest{To: "boss@y.com", Subject: "Status", Body: "All green"}, req)
			return &gmail.Message{Id: "new-1", ThreadId: "new-1"}, nil
		},
	}, &schedulerMock{})

	text, isErr := call(t, session, "send_email", email.SendRequest{To: "boss@y.com", Subject: "Status", Body: "All green"})
	require.False(t, isErr, text)

	var res tool.SendResult
	require.NoError(t, json.Unmarshal([]byte(text), &res))
	assert.Equal(t, tool.SendResult{ID: "new-1", ThreadID: "new-1"}, res)
}

func TestListTodayEvents(t *testing.T) {
	session := connect(t, &mailerMock{}, &schedulerMock{
		ListTodayFunc: func(context.Context) (gateway.EventList, error) {
			return gateway.EventList{Events: []event.Simplified{
				{EventID: "ev-1", Summary: "Standup", Start: "2025-10-01T09:00:00+08:00", End: "2025-10-01T09:15:00+08:00"},
			}}, nil
		},
	})

	text, isErr := call(t, session, "list_today_events", map[string]any{})
	require.False(t, isErr, text)
	assert.JSONEq(t, `{"events": [{"eventId": "ev-1", "summary": "Standup",
		"start": "2025-10-01T09:00:00+08:00", "end": "2025-10-01T09:15:00+08:00"}]}`, text)
}

func TestCreateEvent(t *testing.T) {
	session := connect(t, &mailerMock{}, &schedulerMock{
		CreateFunc: func(_ context.Context, req event.CreateRequest) (event.Created, error) {
			if req.Start.TimeZone == "+25:00" {
				return event.Created{}, &gateway.ValidationError{Err: errors.New(`start: invalid timeZone: "+25:00" out of range`)}
			}
			return event.Created{EventID: "ev-1", Summary: req.Summary, Status: "confirmed", Start: "2025-10-01T09:00:00+08:00"}, nil
		},
	})

	text, isErr := call(t, session, "create_event", event.CreateRequest{
		Summary: "Planning",
		Start:   &event.DateTime{DateTime: "2025-09-22T09:00:00+08:00"},
		End:     &event.DateTime{DateTime: "2025-09-22T10:00:00+08:00"},
	})
	require.False(t, isErr, text)

	var created event.Created
	require.NoError(t, json.Unmarshal([]byte(text), &created))
	assert.Equal(t, event.Created{EventID: "ev-1", Summary: "Planning", Status: "confirmed", Start: "2025-10-01T09:00:00+08:00"}, created)

	text, isErr = call(t, session, "create_event", event.CreateRequest{
		Summary: "Planning",
		Start:   &event.DateTime{DateTime: "2025-09-22T09:00:00", TimeZone: "+25:00"},
		End:     &event.DateTime{DateTime: "2025-09-22T10:00:00"},
	})
	require.True(t, isErr)
	assert.Contains(t, text, "invalid timeZone")
}

func TestUpdateEvent(t *testing.T) {
	var got event.UpdateRequest
	session := connect(t, &mailerMock{}, &schedulerMock{
		UpdateFunc: func(_ context.Context, eventID string, req event.UpdateRequest) (*calendar.Event, error) {
			assert.Equal(t, "ev-1", eventID)
			got = req
			return &calendar.Event{
				Id:      "ev-1",
				Summary: "New Title",
				Status:  "confirmed",
				Start:   &calendar.EventDateTime{DateTime: "2025-10-01T09:00:00+08:00", TimeZone: "Asia/Kuala_Lumpur"},
			}, nil
		},
	})

	title := "New Title"
	text, isErr := call(t, session, "update_event", tool.UpdateEventRequest{EventID: "ev-1", Summary: &title})
	require.False(t, isErr, text)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "New Title", *got.Summary)
	assert.Nil(t, got.Location)
	assert.Nil(t, got.Start)

	var res tool.UpdatedEvent
	require.NoError(t, json.Unmarshal([]byte(text), &res))
	assert.Equal(t, tool.UpdatedEvent{
		EventID: "ev-1",
		Status:  "confirmed",
		Summary: "New Title",
		Start:   &event.DateTime{DateTime: "2025-10-01T09:00:00+08:00", TimeZone: "Asia/Kuala_Lumpur"},
	}, res)

	text, isErr = call(t, session, "update_event", map[string]any{"event_id": "", "summary": "x"})
	require.True(t, isErr)
	assert.Contains(t, text, "event_id is required")
}
