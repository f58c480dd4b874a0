// Package email shapes Gmail messages into API responses and composes
// outgoing messages for the Gmail send endpoint.
package email

import (
	"strings"

	"google.golang.org/api/gmail/v1"
)

// Summary is the simplified view of a Gmail message returned by list operations.
type Summary struct {
	ID      string `json:"email_id" jsonschema:"Gmail message ID"`
	Snippet string `json:"snippet" jsonschema:"message preview"`
	Subject string `json:"subject" jsonschema:"email subject"`
	From    string `json:"from" jsonschema:"sender as found in the From header"`
}

// Summarize extracts the subject, sender and snippet of msg.
// Header names match case-insensitively and the first occurrence of each wins.
func Summarize(msg *gmail.Message) Summary {
	summary := Summary{
		ID:      msg.Id,
		Snippet: msg.Snippet,
	}

	if msg.Payload == nil {
		return summary
	}

	var subjectFound, fromFound bool
	for _, header := range msg.Payload.Headers {
		if header == nil {
			continue
		}

		switch strings.ToLower(header.Name) {
		case "subject":
			if !subjectFound {
				summary.Subject = header.Value
				subjectFound = true
			}
		case "from":
			if !fromFound {
				summary.From = header.Value
				fromFound = true
			}
		}

		if subjectFound && fromFound {
			break
		}
	}

	return summary
}

// HeaderValue returns the first value of the named header, ignoring case.
func HeaderValue(msg *gmail.Message, name string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}

	for _, header := range msg.Payload.Headers {
		if header != nil && strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}

	return ""
}
