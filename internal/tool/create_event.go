package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/gapi-gateway/internal/event"
)

type createEventSvc interface {
	Create(ctx context.Context, req event.CreateRequest) (event.Created, error)
}

func NewCreateEvent(svc createEventSvc) *CreateEvent {
	return &CreateEvent{
		svc: svc,
	}
}

type CreateEvent struct {
	svc createEventSvc
}

func (t *CreateEvent) CreateEvent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input event.CreateRequest,
) (*mcp.CallToolResult, event.Created, error) {
	created, err := t.svc.Create(ctx, input)
	if err != nil {
		return nil, event.Created{}, fmt.Errorf("svc.Create failed: %w", err)
	}

	return nil, created, nil
}
