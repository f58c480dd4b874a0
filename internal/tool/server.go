// Package tool exposes the gateway operations as MCP tools.
package tool

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type mailer interface {
	listEmailsSvc
	replyEmailSvc
	sendEmailSvc
}

type scheduler interface {
	listTodayEventsSvc
	createEventSvc
	updateEventSvc
}

// NewServer creates an MCP server with the mail and calendar tools.
func NewServer(mail mailer, cal scheduler, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "gapi-gateway", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_emails",
		Description: "List the 10 most recent Gmail messages, optionally restricted to a label",
	}, NewListEmails(mail).ListEmails)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reply_email",
		Description: "Reply to a Gmail message within its thread",
	}, NewReplyEmail(mail).ReplyEmail)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_email",
		Description: "Send a new plain text email",
	}, NewSendEmail(mail).SendEmail)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_today_events",
		Description: "List today's events (UTC date) of the primary calendar",
	}, NewListTodayEvents(cal).ListTodayEvents)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_event",
		Description: "Create a calendar event; start and end are moved onto today's date keeping their time of day",
	}, NewCreateEvent(cal).CreateEvent)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_event",
		Description: "Replace a calendar event with the provided fields",
	}, NewUpdateEvent(cal).UpdateEvent)

	return server
}
