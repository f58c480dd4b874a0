package tool

import (
	"google.golang.org/api/gmail/v1"
)

// SendResult identifies a message accepted by Gmail.
type SendResult struct {
	ID       string   `json:"id" jsonschema:"sent message ID"`
	ThreadID string   `json:"threadId" jsonschema:"thread the message belongs to"`
	LabelIDs []string `json:"labelIds,omitempty" jsonschema:"labels applied to the sent message"`
}

func toSendResult(msg *gmail.Message) SendResult {
	if msg == nil {
		return SendResult{}
	}
	return SendResult{ID: msg.Id, ThreadID: msg.ThreadId, LabelIDs: msg.LabelIds}
}
