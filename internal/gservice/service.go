// Package gservice wraps the generated Gmail and Calendar clients. A service is
// built per call from the current credential so refreshed tokens are always used.
package gservice

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

type credential interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// Recorder observes remote calls. It may be nil.
type Recorder interface {
	ObserveGoogleCall(api, op string, err error, d time.Duration)
}

func httpClient(ctx context.Context, cred credential) (*http.Client, error) {
	t, err := cred.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("cred.Token failed: %w", err)
	}

	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(t)), nil
}

func observe(rec Recorder, api, op string, started time.Time, err error) {
	if rec == nil {
		return
	}
	rec.ObserveGoogleCall(api, op, err, time.Since(started))
}
