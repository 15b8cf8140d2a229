// Package ratelimit wraps the teacher's security rate limiter and auditor
// around the gateway's own registration and token endpoints.
package ratelimit

import (
	"net"

	"github.com/giantswarm/mcp-oauth/security"

	"github.com/jakubkrzysztofsikora/adhd-budget/pkg/logging"
)

// Default limits, matching the teacher's own defaults for its OAuth
// registration/token endpoints (internal/server/oauth_http.go).
const (
	DefaultIPRateLimit     = 10
	DefaultIPBurst         = 20
	DefaultMaxClientsPerIP = 10
)

// Limiter guards the /register and /token endpoints against abuse and
// records security-sensitive outcomes through the audit log.
type Limiter struct {
	ip       *security.RateLimiter
	register *security.ClientRegistrationRateLimiter
	auditor  *security.Auditor
}

// New builds a Limiter using the teacher's defaults.
func New() *Limiter {
	logger := logging.Logger()
	return &Limiter{
		ip: security.NewRateLimiter(DefaultIPRateLimit, DefaultIPBurst, logger),
		register: security.NewClientRegistrationRateLimiterWithConfig(
			DefaultMaxClientsPerIP,
			security.DefaultRegistrationWindow,
			security.DefaultMaxRegistrationEntries,
			logger,
		),
		auditor: security.NewAuditor(logger, true),
	}
}

// AllowToken reports whether the given remote address may proceed with a
// /oauth/token request.
func (l *Limiter) AllowToken(remoteAddr string) bool {
	return l.ip.Allow(clientIP(remoteAddr))
}

// AllowRegister reports whether the given remote address may register a new
// client, honouring both the per-IP rate and the per-IP client-count cap.
func (l *Limiter) AllowRegister(remoteAddr string) bool {
	ip := clientIP(remoteAddr)
	return l.ip.Allow(ip) && l.register.Allow(ip)
}

// RecordRegistration must be called after a successful registration so the
// per-IP client-count cap is enforced on subsequent calls.
func (l *Limiter) RecordRegistration(remoteAddr string) {
	l.register.Record(clientIP(remoteAddr))
}

// Audit records a security-sensitive outcome both through the limiter's
// auditor and the process-wide audit log.
func (l *Limiter) Audit(event logging.AuditEvent) {
	outcome := event.Outcome == "success"
	l.auditor.LogEvent(event.Action, event.ClientID, outcome, event.Details)
	logging.Audit(event)
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
