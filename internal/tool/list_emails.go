package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/gapi-gateway/internal/gateway"
)

type ListEmailsRequest struct {
	Label string `json:"label,omitempty" jsonschema:"Gmail label to filter by, e.g. INBOX or Work"`
}

type listEmailsSvc interface {
	ListEmails(ctx context.Context, label string) (gateway.EmailList, error)
}

func NewListEmails(svc listEmailsSvc) *ListEmails {
	return &ListEmails{
		svc: svc,
	}
}

type ListEmails struct {
	svc listEmailsSvc
}

func (t *ListEmails) ListEmails(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListEmailsRequest,
) (*mcp.CallToolResult, gateway.EmailList, error) {
	res, err := t.svc.ListEmails(ctx, input.Label)
	if err != nil {
		return nil, gateway.EmailList{}, fmt.Errorf("svc.ListEmails failed: %w", err)
	}

	return nil, res, nil
}
