package store

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a looked-up entry is absent or expired.
var ErrNotFound = errors.New("not found")

// Store is the gateway's single-process registry for OAuth state. All
// operations take a short critical section under one lock; the §3
// access/refresh `extra` invariant is enforced by UpdateTokenExtra.
type Store struct {
	mu sync.RWMutex

	clients         map[string]*RegisteredClient
	authCodes       map[string]*AuthorizationCode
	accessTokens    map[string]*AccessToken
	refreshTokens   map[string]*RefreshToken
	pendingConsents map[string]*PendingUpstreamConsent

	// sibling maps each access token to its paired refresh token (and back),
	// so UpdateTokenExtra can find the exact pair without scanning.
	siblingOfAccess  map[string]string
	siblingOfRefresh map[string]string

	stopSweep chan struct{}
}

// New creates an empty Store and starts its background TTL sweeper.
func New() *Store {
	s := &Store{
		clients:         make(map[string]*RegisteredClient),
		authCodes:       make(map[string]*AuthorizationCode),
		accessTokens:    make(map[string]*AccessToken),
		refreshTokens:   make(map[string]*RefreshToken),
		pendingConsents: make(map[string]*PendingUpstreamConsent),
		siblingOfAccess:  make(map[string]string),
		siblingOfRefresh: make(map[string]string),
		stopSweep:       make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Close stops the background sweeper.
func (s *Store) Close() {
	close(s.stopSweep)
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopSweep:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for code, c := range s.authCodes {
		if c.expired(now) {
			delete(s.authCodes, code)
		}
	}
	for tok, a := range s.accessTokens {
		if a.expired(now) {
			delete(s.accessTokens, tok)
			delete(s.siblingOfRefresh, s.siblingOfAccess[tok])
			delete(s.siblingOfAccess, tok)
		}
	}
	for tok, r := range s.refreshTokens {
		if r.expired(now) {
			delete(s.refreshTokens, tok)
			delete(s.siblingOfAccess, s.siblingOfRefresh[tok])
			delete(s.siblingOfRefresh, tok)
		}
	}
	for st, p := range s.pendingConsents {
		if p.expired(now, PendingConsentTTL) {
			delete(s.pendingConsents, st)
		}
	}
}

// randomToken returns a 256-bit opaque token, base64url-encoded.
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// --- Clients ---

// PutClient registers or replaces a client.
func (s *Store) PutClient(c *RegisteredClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ClientID] = c
}

// GetClient returns the client by id, or ErrNotFound.
func (s *Store) GetClient(clientID string) (*RegisteredClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// --- Authorization codes ---

// PutAuthorizationCode stores a freshly minted code.
func (s *Store) PutAuthorizationCode(c *AuthorizationCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authCodes[c.Code] = c
}

// ConsumeAuthorizationCode atomically looks up and removes a code. A second
// call for the same code returns ErrNotFound, enforcing single-use.
func (s *Store) ConsumeAuthorizationCode(code string) (*AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.authCodes[code]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.authCodes, code)

	if c.expired(time.Now()) {
		return nil, ErrNotFound
	}
	return c, nil
}

// --- Access / refresh tokens ---

// IssueTokenPair mints a fresh access/refresh pair sharing extra, persists
// them, and returns both.
func (s *Store) IssueTokenPair(clientID, scope, resource string, extra Extra) (*AccessToken, *RefreshToken, error) {
	accessTok, err := randomToken()
	if err != nil {
		return nil, nil, err
	}
	refreshTok, err := randomToken()
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	shared := extra.Clone()

	access := &AccessToken{
		Token:     accessTok,
		ClientID:  clientID,
		Scope:     scope,
		Resource:  resource,
		IssuedAt:  now,
		ExpiresAt: now.Add(AccessTokenTTL),
		Extra:     shared,
	}
	refresh := &RefreshToken{
		Token:     refreshTok,
		ClientID:  clientID,
		Scope:     scope,
		Resource:  resource,
		IssuedAt:  now,
		ExpiresAt: now.Add(RefreshTokenTTL),
		Extra:     shared.Clone(),
	}

	s.mu.Lock()
	s.accessTokens[access.Token] = access
	s.refreshTokens[refresh.Token] = refresh
	s.siblingOfAccess[access.Token] = refresh.Token
	s.siblingOfRefresh[refresh.Token] = access.Token
	s.mu.Unlock()

	return access, refresh, nil
}

// GetAccessToken returns the access token, or ErrNotFound if absent/expired.
func (s *Store) GetAccessToken(token string) (*AccessToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accessTokens[token]
	if !ok || a.expired(time.Now()) {
		return nil, ErrNotFound
	}
	return a, nil
}

// GetRefreshToken returns the refresh token, or ErrNotFound if absent/expired.
func (s *Store) GetRefreshToken(token string) (*RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.refreshTokens[token]
	if !ok || r.expired(time.Now()) {
		return nil, ErrNotFound
	}
	return r, nil
}

// RotateRefreshToken invalidates the old refresh token and issues a fresh
// access/refresh pair copying scope and extra.
func (s *Store) RotateRefreshToken(oldToken string) (*AccessToken, *RefreshToken, error) {
	s.mu.Lock()
	old, ok := s.refreshTokens[oldToken]
	if !ok || old.expired(time.Now()) {
		s.mu.Unlock()
		return nil, nil, ErrNotFound
	}
	delete(s.refreshTokens, oldToken)
	sibling := s.siblingOfRefresh[oldToken]
	delete(s.siblingOfRefresh, oldToken)
	delete(s.siblingOfAccess, sibling)
	delete(s.accessTokens, sibling)
	clientID, scope, resource, extra := old.ClientID, old.Scope, old.Resource, old.Extra.Clone()
	s.mu.Unlock()

	return s.IssueTokenPair(clientID, scope, resource, extra)
}

// UpdateTokenExtra rewrites the extra map for an access token and its sibling
// refresh token atomically, preserving the §3 invariant that the pair always
// shares the same extra contents.
func (s *Store) UpdateTokenExtra(accessToken string, extra Extra) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	access, ok := s.accessTokens[accessToken]
	if !ok {
		return ErrNotFound
	}

	shared := extra.Clone()
	access.Extra = shared

	if refreshTok, ok := s.siblingOfAccess[accessToken]; ok {
		if refresh, ok := s.refreshTokens[refreshTok]; ok {
			refresh.Extra = shared.Clone()
		}
	}

	return nil
}

// RevokeToken removes token from both the access and refresh maps, along
// with the sibling index. Idempotent.
func (s *Store) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sibling, ok := s.siblingOfAccess[token]; ok {
		delete(s.refreshTokens, sibling)
		delete(s.siblingOfRefresh, sibling)
		delete(s.siblingOfAccess, token)
	}
	if sibling, ok := s.siblingOfRefresh[token]; ok {
		delete(s.accessTokens, sibling)
		delete(s.siblingOfAccess, sibling)
		delete(s.siblingOfRefresh, token)
	}
	delete(s.accessTokens, token)
	delete(s.refreshTokens, token)
}

// --- Pending upstream consent ---

// PutPendingConsent stores a pending upstream consent context.
func (s *Store) PutPendingConsent(p *PendingUpstreamConsent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingConsents[p.UpstreamState] = p
}

// ConsumePendingConsent atomically looks up and removes a pending consent by
// its upstream state correlator.
func (s *Store) ConsumePendingConsent(upstreamState string) (*PendingUpstreamConsent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pendingConsents[upstreamState]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.pendingConsents, upstreamState)

	if p.expired(time.Now(), PendingConsentTTL) {
		return nil, ErrNotFound
	}
	return p, nil
}

// SweepPendingConsents removes pending consent entries older than ttl. Also
// run automatically by the background sweeper; exposed so /authorize can
// sweep eagerly per spec §4.3 step 3.
func (s *Store) SweepPendingConsents(ttl time.Duration) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for st, p := range s.pendingConsents {
		if p.expired(now, ttl) {
			delete(s.pendingConsents, st)
		}
	}
}
