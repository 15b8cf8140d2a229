package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleManifest(t *testing.T) {
	handler := HandleManifest(ManifestConfig{
		ProtocolVersions: []string{"2025-06-18", "2025-03-26"},
		ServerName:       "test-gateway",
		ServerVersion:    "1.2.3",
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/.well-known/mcp.json", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "test-gateway", body["name"])

	transport, ok := body["transport"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, transport["url"], "/mcp")
}
