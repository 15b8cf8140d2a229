package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExternalBaseURL_PlainRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Host = "gateway.example.com"
	assert.Equal(t, "http://gateway.example.com", ExternalBaseURL(r))
}

func TestExternalBaseURL_ForwardedProto(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Host = "gateway.example.com"
	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://gateway.example.com", ExternalBaseURL(r))
}

func TestExternalBaseURL_ForwardedHost(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Host = "internal-backend:8080"
	r.Header.Set("X-Forwarded-Host", "public.example.com")
	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://public.example.com", ExternalBaseURL(r))
}

func TestExternalBaseURL_CFVisitor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Host = "gateway.example.com"
	r.Header.Set("CF-Visitor", `{"scheme":"https"}`)
	assert.Equal(t, "https://gateway.example.com", ExternalBaseURL(r))
}

func TestExternalBaseURL_ProductionOverride(t *testing.T) {
	ProductionHostname = "gateway.production.example.com"
	defer func() { ProductionHostname = "" }()

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Host = "localhost:8080"
	assert.Equal(t, "https://gateway.production.example.com", ExternalBaseURL(r))
}
