package oauthserver

import (
	"encoding/json"
	"net/http"

	"github.com/jakubkrzysztofsikora/adhd-budget/pkg/logging"
)

// HandleRevoke implements RFC 7009 token revocation. Revocation is
// idempotent: an unknown token still returns 200.
func (s *Server) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	token := r.PostForm.Get("token")
	if token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}

	s.store.RevokeToken(token)

	if s.limiter != nil {
		s.limiter.Audit(logging.AuditEvent{Action: "token.revoke", Outcome: "success"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{})
}
