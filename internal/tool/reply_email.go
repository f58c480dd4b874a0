package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/api/gmail/v1"

	"github.com/hal9000y/gapi-gateway/internal/email"
)

type replyEmailSvc interface {
	Reply(ctx context.Context, req email.ReplyRequest) (*gmail.Message, error)
}

func NewReplyEmail(svc replyEmailSvc) *ReplyEmail {
	return &ReplyEmail{
		svc: svc,
	}
}

type ReplyEmail struct {
	svc replyEmailSvc
}

func (t *ReplyEmail) ReplyEmail(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input email.ReplyRequest,
) (*mcp.CallToolResult, SendResult, error) {
	sent, err := t.svc.Reply(ctx, input)
	if err != nil {
		return nil, SendResult{}, fmt.Errorf("svc.Reply failed: %w", err)
	}

	return nil, toSendResult(sent), nil
}
