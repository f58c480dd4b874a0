package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/hal9000y/gapi-gateway/internal/logging"
)

type tok interface {
	AuthorizeCode(context.Context, string, string) error
	OAuthToken() (*oauth2.Token, error)
	RedirectURL() (string, error)
}

// HTTPHandler runs the OAuth2 bootstrap flow:
// ?redirect=1 sends the browser to Google, ?code=...&state=... is the callback,
// and a bare request reports the (masked) current token.
type HTTPHandler struct {
	tok tok
	log *zap.Logger
}

// NewHTTPHandler creates an HTTP handler for OAuth2 flow.
func NewHTTPHandler(tok tok, log *zap.Logger) *HTTPHandler {
	return &HTTPHandler{tok: tok, log: log}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("redirect") != "" {
		u, err := h.tok.RedirectURL()
		if err != nil {
			h.log.Error("h.tok.RedirectURL failed", zap.Error(err))
			http.Error(w, "Unable to start authorization", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, u, http.StatusFound)
		return
	}

	if code := r.URL.Query().Get("code"); code != "" {
		state := r.URL.Query().Get("state")
		if err := h.tok.AuthorizeCode(r.Context(), code, state); err != nil {
			h.log.Warn("h.tok.AuthorizeCode failed", zap.Error(err))
			http.Error(w, "Unable to authorize provided code", http.StatusBadRequest)
			return
		}
		h.log.Info("authorization code exchanged")
		http.Redirect(w, r, r.URL.EscapedPath(), http.StatusFound)
		return
	}

	t, err := h.tok.OAuthToken()
	if errors.Is(err, ErrNoCredential) {
		http.Error(w, "Token not found", http.StatusUnauthorized)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "Token: %s, expires: %s", logging.MaskToken(t.AccessToken), t.Expiry.Format(time.RFC3339))
}
