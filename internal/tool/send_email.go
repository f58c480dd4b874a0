package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/api/gmail/v1"

	"github.com/hal9000y/gapi-gateway/internal/email"
)

type sendEmailSvc interface {
	Send(ctx context.Context, req email.SendRequest) (*gmail.Message, error)
}

func NewSendEmail(svc sendEmailSvc) *SendEmail {
	return &SendEmail{
		svc: svc,
	}
}

type SendEmail struct {
	svc sendEmailSvc
}

func (t *SendEmail) SendEmail(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input email.SendRequest,
) (*mcp.CallToolResult, SendResult, error) {
	sent, err := t.svc.Send(ctx, input)
	if err != nil {
		return nil, SendResult{}, fmt.Errorf("svc.Send failed: %w", err)
	}

	return nil, toSendResult(sent), nil
}
