package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/gapi-gateway/internal/gateway"
)

type ListTodayEventsRequest struct{}

type listTodayEventsSvc interface {
	ListToday(ctx context.Context) (gateway.EventList, error)
}

func NewListTodayEvents(svc listTodayEventsSvc) *ListTodayEvents {
	return &ListTodayEvents{
		svc: svc,
	}
}

type ListTodayEvents struct {
	svc listTodayEventsSvc
}

func (t *ListTodayEvents) ListTodayEvents(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListTodayEventsRequest,
) (*mcp.CallToolResult, gateway.EventList, error) {
	res, err := t.svc.ListToday(ctx)
	if err != nil {
		return nil, gateway.EventList{}, fmt.Errorf("svc.ListToday failed: %w", err)
	}

	return nil, res, nil
}
