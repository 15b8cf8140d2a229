package oauthserver

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/jakubkrzysztofsikora/adhd-budget/internal/store"
	"github.com/jakubkrzysztofsikora/adhd-budget/pkg/logging"
	"github.com/jakubkrzysztofsikora/adhd-budget/pkg/oauth"
)

// HandleRegister implements RFC 7591 dynamic client registration.
func (s *Server) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.limiter != nil && !s.limiter.AllowRegister(r.RemoteAddr) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	var req oauth.ClientMetadata
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.RedirectURIs) == 0 {
		http.Error(w, "redirect_uris is required", http.StatusBadRequest)
		return
	}
	for _, uri := range req.RedirectURIs {
		if !redirectAllowed(uri, s.config.Production) {
			http.Error(w, "redirect_uri not allowed: "+uri, http.StatusBadRequest)
			return
		}
	}

	clientID, err := randomID()
	if err != nil {
		http.Error(w, "failed to generate client_id", http.StatusInternalServerError)
		return
	}

	authMethod := req.TokenEndpointAuthMethod
	if authMethod == "" {
		authMethod = "none"
	}

	var clientSecret string
	if authMethod != "none" {
		clientSecret, err = randomID()
		if err != nil {
			http.Error(w, "failed to generate client_secret", http.StatusInternalServerError)
			return
		}
	}

	grantTypes := req.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = []string{"authorization_code", "refresh_token"}
	}
	responseTypes := req.ResponseTypes
	if len(responseTypes) == 0 {
		responseTypes = []string{"code"}
	}

	client := &store.RegisteredClient{
		ClientID:                clientID,
		ClientSecret:            clientSecret,
		RedirectURIs:            withWellKnownCallbacks(req.RedirectURIs),
		GrantTypes:              grantTypes,
		ResponseTypes:           responseTypes,
		Scope:                   req.Scope,
		TokenEndpointAuthMethod: authMethod,
		ClientIDIssuedAt:        nowUnix(),
	}
	s.store.PutClient(client)

	if s.limiter != nil {
		s.limiter.RecordRegistration(r.RemoteAddr)
		s.limiter.Audit(logging.AuditEvent{
			Action:   "client.register",
			ClientID: clientID,
			Outcome:  "success",
		})
	}

	resp := oauth.ClientMetadata{
		ClientID:                client.ClientID,
		ClientSecret:            client.ClientSecret,
		ClientName:              req.ClientName,
		RedirectURIs:            client.RedirectURIs,
		GrantTypes:              client.GrantTypes,
		ResponseTypes:           client.ResponseTypes,
		TokenEndpointAuthMethod: client.TokenEndpointAuthMethod,
		Scope:                   client.Scope,
		ClientIDIssuedAt:        client.ClientIDIssuedAt,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func randomID() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
