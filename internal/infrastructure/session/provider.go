package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"MarketSniper/internal/config"
	"MarketSniper/internal/domain"
	"MarketSniper/internal/ports"
)

type sessionFile struct {
	SessionID   string `json:"sessionid"`
	LoginSecure string `json:"steamLoginSecure"`
}

// FileProvider reads the web session written by an external login helper. Values from
// configuration fill whatever the file leaves out. A loaded session is reused until
// the TTL passes or Invalidate is called.
type FileProvider struct {
	path        string
	sessionID   string
	loginSecure string
	ttl         time.Duration
	now         func() time.Time

	mu       sync.Mutex
	cached   domain.Session
	loadedAt time.Time
	ok       bool
}

var _ ports.SessionProvider = (*FileProvider)(nil)

// NewFileProvider builds a provider from the session section of the config.
func NewFileProvider(cfg config.SessionConfig) *FileProvider {
	return &FileProvider{
		path:        cfg.File,
		sessionID:   cfg.SessionID,
		loginSecure: cfg.LoginSecure,
		ttl:         cfg.TTL,
		now:         time.Now,
	}
}

// Session returns the cached session or loads a fresh one.
func (p *FileProvider) Session(_ context.Context) (domain.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ok && (p.ttl <= 0 || p.now().Sub(p.loadedAt) < p.ttl) {
		return p.cached, nil
	}

	s, err := p.load()
	if err != nil {
		return domain.Session{}, err
	}
	p.cached, p.loadedAt, p.ok = s, p.now(), true
	return s, nil
}

// Invalidate drops the cached session so the next call reloads it.
func (p *FileProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ok = false
}

func (p *FileProvider) load() (domain.Session, error) {
	values := sessionFile{SessionID: p.sessionID, LoginSecure: p.loginSecure}

	if p.path != "" {
		raw, err := os.ReadFile(p.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return domain.Session{}, fmt.Errorf("read session file: %w", err)
		default:
			var fromFile sessionFile
			if err := json.Unmarshal(raw, &fromFile); err != nil {
				return domain.Session{}, fmt.Errorf("parse session file %s: %w", p.path, err)
			}
			if fromFile.SessionID != "" {
				values.SessionID = fromFile.SessionID
			}
			if fromFile.LoginSecure != "" {
				values.LoginSecure = fromFile.LoginSecure
			}
		}
	}

	if values.SessionID == "" {
		return domain.Session{}, fmt.Errorf("no session id configured: %w", domain.ErrSessionExpired)
	}

	cookies := []string{"sessionid=" + values.SessionID}
	if values.LoginSecure != "" {
		cookies = append(cookies, "steamLoginSecure="+values.LoginSecure)
	}
	return domain.Session{ID: values.SessionID, Cookies: cookies}, nil
}
