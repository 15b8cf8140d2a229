package oauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToken_IsExpired(t *testing.T) {
	tok := &Token{}
	assert.False(t, tok.IsExpired(), "token without ExpiresAt never expires")

	tok.ExpiresAt = time.Now().Add(time.Hour)
	assert.False(t, tok.IsExpired())

	tok.ExpiresAt = time.Now().Add(-time.Minute)
	assert.True(t, tok.IsExpired())
}

func TestToken_IsExpiredWithMargin(t *testing.T) {
	tok := &Token{ExpiresAt: time.Now().Add(10 * time.Second)}
	assert.False(t, tok.IsExpiredWithMargin(time.Second))
	assert.True(t, tok.IsExpiredWithMargin(30*time.Second))
}

func TestToken_SetExpiresAtFromExpiresIn(t *testing.T) {
	tok := &Token{ExpiresIn: 3600}
	tok.SetExpiresAtFromExpiresIn()
	assert.WithinDuration(t, time.Now().Add(3600*time.Second), tok.ExpiresAt, 2*time.Second)

	fixed := tok.ExpiresAt
	tok.SetExpiresAtFromExpiresIn()
	assert.Equal(t, fixed, tok.ExpiresAt, "does not overwrite an already-set ExpiresAt")
}

func TestToken_Scopes(t *testing.T) {
	tok := &Token{Scope: "accounts transactions"}
	assert.Equal(t, []string{"accounts", "transactions"}, tok.Scopes())

	empty := &Token{}
	assert.Nil(t, empty.Scopes())
}
