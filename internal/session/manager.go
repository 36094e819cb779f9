// Package session manages source-API session tokens per account: an
// in-memory map backed by a durable cache file so restarts do not force
// a re-login for every account.
package session

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mohsen-hany-dev/ivasms-otp/internal/models"
)

// LoginAPI is the slice of the source API the manager needs.
type LoginAPI interface {
	Login(ctx context.Context, email, password string) (string, error)
}

type cachedToken struct {
	Token      string `json:"token"`
	ObtainedAt int64  `json:"obtained_at"`
	ExpiresAt  int64  `json:"expires_at"`
}

type cacheDoc struct {
	Accounts map[string]cachedToken `json:"accounts"`
}

type Manager struct {
	api  LoginAPI
	path string
	ttl  time.Duration
	skew time.Duration
	log  zerolog.Logger
	now  func() time.Time

	mu     sync.Mutex
	tokens map[string]string
	cache  map[string]cachedToken
}

// NewManager loads the durable cache at path (an unreadable or malformed
// file degrades to an empty cache) and returns a ready manager.
func NewManager(api LoginAPI, path string, ttl, skew time.Duration, log zerolog.Logger) *Manager {
	m := &Manager{
		api:    api,
		path:   path,
		ttl:    ttl,
		skew:   skew,
		log:    log,
		now:    time.Now,
		tokens: make(map[string]string),
		cache:  make(map[string]cachedToken),
	}
	m.loadCache()
	return m
}

func (m *Manager) loadCache() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return
	}
	var doc cacheDoc
	if err := json.Unmarshal(data, &doc); err != nil || doc.Accounts == nil {
		m.log.Warn().Str("file", m.path).Msg("token cache unreadable, starting empty")
		return
	}
	m.cache = doc.Accounts
}

// persist writes the whole cache document. Called after every mutation so
// a crash never loses a freshly obtained token.
func (m *Manager) persist() {
	data, err := json.MarshalIndent(cacheDoc{Accounts: m.cache}, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(m.path, append(data, '\n'), 0o600); err != nil {
		m.log.Warn().Err(err).Str("file", m.path).Msg("failed to persist token cache")
	}
}

// fresh reports whether the cached entry is usable: present and not
// inside the refresh skew window before expiry.
func (m *Manager) fresh(name string) bool {
	row, ok := m.cache[name]
	if !ok || row.Token == "" {
		return false
	}
	return row.ExpiresAt > m.now().Unix()+int64(m.skew.Seconds())
}

// Token returns a valid session token for the account, logging in only
// when neither the in-memory token nor the durable cache is fresh. A
// false result means the account is unavailable for this cycle.
func (m *Manager) Token(ctx context.Context, acc models.Account) (string, bool) {
	m.mu.Lock()
	if tok, ok := m.tokens[acc.Name]; ok && m.fresh(acc.Name) {
		m.mu.Unlock()
		return tok, true
	}
	if m.fresh(acc.Name) {
		tok := m.cache[acc.Name].Token
		m.tokens[acc.Name] = tok
		m.mu.Unlock()
		return tok, true
	}
	m.mu.Unlock()
	return m.Refresh(ctx, acc)
}

// Refresh forces a login for the account, replacing any cached token.
func (m *Manager) Refresh(ctx context.Context, acc models.Account) (string, bool) {
	tok, err := m.api.Login(ctx, acc.Email, acc.Password)
	if err != nil {
		m.log.Warn().Err(err).Str("account", acc.Name).Msg("login failed")
		return "", false
	}

	m.mu.Lock()
	now := m.now().Unix()
	m.tokens[acc.Name] = tok
	m.cache[acc.Name] = cachedToken{
		Token:      tok,
		ObtainedAt: now,
		ExpiresAt:  now + int64(m.ttl.Seconds()),
	}
	m.persist()
	m.mu.Unlock()
	return tok, true
}

// Invalidate drops the account's token so the next Token call logs in.
func (m *Manager) Invalidate(name string) {
	m.mu.Lock()
	delete(m.tokens, name)
	delete(m.cache, name)
	m.persist()
	m.mu.Unlock()
}
