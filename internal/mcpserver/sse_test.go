package mcpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jakubkrzysztofsikora/adhd-budget/internal/session"
)

func TestHandleStream_RequiresSessionID(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rec := httptest.NewRecorder()
	s.HandleStream(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStream_UnknownSession(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/mcp?sessionId=does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.HandleStream(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWriteEvent_UsesPayloadEventKey(t *testing.T) {
	rec := newFlushRecorder()
	writeEvent(rec, rec, map[string]interface{}{"event": "search", "status": "started"})
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "event: search\n"))
	assert.Contains(t, body, `"status":"started"`)
}

func TestWriteEvent_DefaultsToMessage(t *testing.T) {
	rec := newFlushRecorder()
	writeEvent(rec, rec, map[string]interface{}{"foo": "bar"})
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "event: message\n"))
}

func TestHandleStream_StreamsPublishedPayload(t *testing.T) {
	s := newTestServer(t)
	sess := s.sessions.Create("2025-06-18", session.ClientInfo{Name: "test"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/mcp?sessionId="+sess.ID, nil).WithContext(ctx)
	rec := newFlushRecorder()

	done := make(chan struct{})
	go func() {
		s.HandleStream(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	sess.Publish(map[string]interface{}{"event": "progress", "status": "started"})

	select {
	case <-done:
	case <-time.After(1500 * time.Millisecond):
		cancel()
		<-done
	}

	body := rec.Body.String()
	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, `"session":"`+sess.ID+`"`)
	assert.Contains(t, body, "event: heartbeat")
	assert.Contains(t, body, "event: progress")
}

func TestHandleStream_ConnectedAndHeartbeatCarryTimestamp(t *testing.T) {
	s := newTestServer(t)
	sess := s.sessions.Create("2025-06-18", session.ClientInfo{Name: "test"})

	ctx, cancel := context.WithTimeout(context.Background(), 1200*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/mcp?sessionId="+sess.ID, nil).WithContext(ctx)
	rec := newFlushRecorder()

	done := make(chan struct{})
	go func() {
		s.HandleStream(rec, req)
		close(done)
	}()

	<-done

	body := rec.Body.String()
	assert.Contains(t, body, `"timestamp":"`)
}

// flushRecorder adapts httptest.ResponseRecorder to satisfy http.Flusher,
// which the plain recorder does not implement.
type flushRecorder struct {
	*httptest.ResponseRecorder
}

func newFlushRecorder() *flushRecorder {
	return &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
}

func (f *flushRecorder) Flush() {}

func TestFlushRecorderImplementsFlusher(t *testing.T) {
	var _ http.Flusher = newFlushRecorder()
}
