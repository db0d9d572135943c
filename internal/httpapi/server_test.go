package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/push"
)

func TestHandleHealth_ReportsOK(t *testing.T) {
	s := New(Config{Bus: push.New(), InstanceID: "test-1"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleMetrics_ReportsInstanceIDAndClientsCount(t *testing.T) {
	bus := push.New()
	_, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	s := New(Config{Bus: bus, InstanceID: "test-1"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.handleMetrics(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "test-1", body["instanceId"])
	assert.Equal(t, float64(1), body["clientsCount"])
}

func TestHandlePause_RejectsNonPost(t *testing.T) {
	s := New(Config{Bus: push.New()})

	req := httptest.NewRequest(http.MethodGet, "/api/monitor/pause", nil)
	w := httptest.NewRecorder()
	s.handlePause(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
