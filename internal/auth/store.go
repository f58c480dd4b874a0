package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/99designs/keyring"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrNotStored indicates the store holds no token yet.
var ErrNotStored = errors.New("no stored token")

// Record is the persisted credential: the token plus the client it was issued to.
type Record struct {
	Token        *oauth2.Token
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Store loads and saves a Record.
type Store interface {
	Load() (*Record, error)
	Save(*Record) error
}

// storedToken is the union of Google's authorized-user file ("token") and the
// oauth2.Token JSON shape ("access_token"). Both use "expiry".
type storedToken struct {
	Token        string   `json:"token,omitempty"`
	AccessToken  string   `json:"access_token,omitempty"`
	TokenType    string   `json:"token_type,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	TokenURI     string   `json:"token_uri,omitempty"`
	ClientID     string   `json:"client_id,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	Expiry       string   `json:"expiry,omitempty"`
}

// Naive UTC timestamps are written by some Google client libraries.
var expiryLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"}

func decodeRecord(raw []byte) (*Record, error) {
	var st storedToken
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("json.Unmarshal failed: %w", err)
	}

	access := st.Token
	if access == "" {
		access = st.AccessToken
	}
	if access == "" && st.RefreshToken == "" {
		return nil, errors.New("token record has neither access nor refresh token")
	}

	tok := &oauth2.Token{
		AccessToken:  access,
		TokenType:    st.TokenType,
		RefreshToken: st.RefreshToken,
	}
	if st.Expiry != "" {
		exp, err := parseExpiry(st.Expiry)
		if err != nil {
			return nil, err
		}
		tok.Expiry = exp
	}

	return &Record{
		Token:        tok,
		ClientID:     st.ClientID,
		ClientSecret: st.ClientSecret,
		Scopes:       st.Scopes,
	}, nil
}

func parseExpiry(s string) (time.Time, error) {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable expiry %q", s)
}

// encodeRecord always writes the authorized-user shape.
func encodeRecord(r *Record) ([]byte, error) {
	if r == nil || r.Token == nil {
		return nil, errors.New("empty record")
	}

	st := storedToken{
		Token:        r.Token.AccessToken,
		RefreshToken: r.Token.RefreshToken,
		TokenURI:     google.Endpoint.TokenURL,
		ClientID:     r.ClientID,
		ClientSecret: r.ClientSecret,
		Scopes:       r.Scopes,
	}
	if !r.Token.Expiry.IsZero() {
		st.Expiry = r.Token.Expiry.UTC().Format(time.RFC3339Nano)
	}

	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json.MarshalIndent failed: %w", err)
	}

	return raw, nil
}

// FileStore keeps the record in a JSON file readable by Google's client libraries.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore; the file does not need to exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the record; a missing file yields ErrNotStored.
func (s *FileStore) Load() (*Record, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotStored
		}
		return nil, fmt.Errorf("os.ReadFile failed: %w", err)
	}

	r, err := decodeRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("decodeRecord %s failed: %w", s.path, err)
	}

	return r, nil
}

// Save overwrites the file with owner-only permissions.
func (s *FileStore) Save(r *Record) error {
	raw, err := encodeRecord(r)
	if err != nil {
		return fmt.Errorf("encodeRecord failed: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("os.OpenFile failed: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(raw); err != nil {
		return fmt.Errorf("f.Write failed: %w", err)
	}

	return nil
}

const (
	keyringService = "gapi-gateway"
	keyringItem    = "google-oauth-token"
)

// OpenKeyring opens the OS keyring, falling back to an encrypted file under dir.
func OpenKeyring(dir, password string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt(password),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("keyring.Open failed: %w", err)
	}

	return ring, nil
}

// KeyringStore keeps the record as a single keyring item.
type KeyringStore struct {
	ring keyring.Keyring
}

// NewKeyringStore wraps an opened keyring.
func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

// Load reads the record; a missing item yields ErrNotStored.
func (s *KeyringStore) Load() (*Record, error) {
	item, err := s.ring.Get(keyringItem)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrNotStored
		}
		return nil, fmt.Errorf("ring.Get failed: %w", err)
	}

	r, err := decodeRecord(item.Data)
	if err != nil {
		return nil, fmt.Errorf("decodeRecord failed: %w", err)
	}

	return r, nil
}

// Save replaces the keyring item.
func (s *KeyringStore) Save(r *Record) error {
	raw, err := encodeRecord(r)
	if err != nil {
		return fmt.Errorf("encodeRecord failed: %w", err)
	}

	err = s.ring.Set(keyring.Item{
		Key:         keyringItem,
		Data:        raw,
		Label:       "Google OAuth token",
		Description: "gapi-gateway credential",
	})
	if err != nil {
		return fmt.Errorf("ring.Set failed: %w", err)
	}

	return nil
}
