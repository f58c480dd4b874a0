// Package auth supplies the OAuth2 credential used for every Google call: it loads
// the stored token, refreshes it when expired, persists refreshed tokens and runs
// the browser bootstrap flow when nothing is stored.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes requested for the Gmail and Calendar operations.
var Scopes = []string{
	"https://mail.google.com/",
	"https://www.googleapis.com/auth/calendar",
}

// ErrNoCredential indicates no usable token: nothing stored, or refresh impossible.
var ErrNoCredential = errors.New("credential unavailable")

// NewConfig builds the OAuth client config for Google.
func NewConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}
}

// Token manages the OAuth2 token with thread-safe refresh and persistence.
type Token struct {
	mu         sync.RWMutex
	cfg        *oauth2.Config
	store      Store
	token      *oauth2.Token
	stateStore map[string]time.Time
	log        *zap.Logger
}

// NewToken creates a Token manager and loads whatever the store holds. Client
// credentials found in the record fill an empty cfg.
func NewToken(cfg *oauth2.Config, store Store, log *zap.Logger) (*Token, error) {
	t := &Token{
		cfg:        cfg,
		store:      store,
		stateStore: make(map[string]time.Time),
		log:        log,
	}

	rec, err := store.Load()
	if err != nil {
		if errors.Is(err, ErrNotStored) {
			log.Info("no stored token, authorize via /oauth?redirect=1")
			return t, nil
		}
		return nil, fmt.Errorf("store.Load failed: %w", err)
	}

	t.token = rec.Token
	if cfg.ClientID == "" && cfg.ClientSecret == "" {
		cfg.ClientID = rec.ClientID
		cfg.ClientSecret = rec.ClientSecret
	}

	return t, nil
}

// Token returns a valid access token, refreshing and persisting it when expired.
func (t *Token) Token(ctx context.Context) (*oauth2.Token, error) {
	t.mu.RLock()
	cur := t.token
	t.mu.RUnlock()

	if cur == nil {
		return nil, fmt.Errorf("%w: no token stored", ErrNoCredential)
	}
	if cur.Valid() {
		return cur, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Another caller may have refreshed while we waited.
	if t.token.Valid() {
		return t.token, nil
	}
	if t.token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token expired and no refresh token", ErrNoCredential)
	}

	fresh, err := t.cfg.TokenSource(ctx, t.token).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh failed: %w", ErrNoCredential, err)
	}
	t.token = fresh
	t.log.Info("token refreshed", zap.Time("expiry", fresh.Expiry))

	if err := t.persistLocked(); err != nil {
		t.log.Warn("persist refreshed token failed", zap.Error(err))
	}

	return fresh, nil
}

// RedirectURL generates the OAuth2 authorization URL with a secure random state.
func (t *Token) RedirectURL() (string, error) {
	state, err := t.generateState()
	if err != nil {
		return "", fmt.Errorf("generateState failed: %w", err)
	}

	return t.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

func (t *Token) generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read failed: %w", err)
	}
	state := base64.URLEncoding.EncodeToString(b)

	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.stateStore[state] = now.Add(5 * time.Minute)

	for s, exp := range t.stateStore {
		if exp.Before(now) {
			delete(t.stateStore, s)
		}
	}

	return state, nil
}

func (t *Token) validateState(state string) bool {
	if state == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	expiry, exists := t.stateStore[state]
	if !exists {
		return false
	}

	delete(t.stateStore, state)

	return !time.Now().After(expiry)
}

// AuthorizeCode exchanges an authorization code for a token after validating
// state, then persists it.
func (t *Token) AuthorizeCode(ctx context.Context, code string, state string) error {
	if !t.validateState(state) {
		return errors.New("invalid or expired state parameter")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tok, err := t.cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("cfg.Exchange failed: %w", err)
	}

	t.token = tok
	if err := t.persistLocked(); err != nil {
		return fmt.Errorf("persistLocked failed: %w", err)
	}

	return nil
}

// OAuthToken returns the current token without refreshing it.
func (t *Token) OAuthToken() (*oauth2.Token, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.token == nil {
		return nil, ErrNoCredential
	}

	return t.token, nil
}

// Persist saves the current token, if any.
func (t *Token) Persist() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.persistLocked()
}

func (t *Token) persistLocked() error {
	if t.token == nil {
		return nil
	}

	err := t.store.Save(&Record{
		Token:        t.token,
		ClientID:     t.cfg.ClientID,
		ClientSecret: t.cfg.ClientSecret,
		Scopes:       t.cfg.Scopes,
	})
	if err != nil {
		return fmt.Errorf("store.Save failed: %w", err)
	}

	return nil
}
