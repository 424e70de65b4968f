package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelforge/internal/config"
	"reelforge/internal/errors"
	"reelforge/models"
	"reelforge/ports"
)

// failingBackend rejects every completion so runs terminate immediately
// with a deterministic failure.
type failingBackend struct{}

func (failingBackend) Completion(ctx context.Context, req ports.CompletionRequest) (string, error) {
	return "", errors.AuthUnavailable(nil)
}

func (failingBackend) Image(ctx context.Context, req ports.ImageRequest) (*models.AnchorImage, error) {
	return nil, errors.AuthUnavailable(nil)
}

func (failingBackend) Video(ctx context.Context, req ports.VideoRequest) (string, error) {
	return "", errors.AuthUnavailable(nil)
}

func (failingBackend) Speech(ctx context.Context, req ports.SpeechRequest) (string, error) {
	return "", errors.AuthUnavailable(nil)
}

func testServer() *Server {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	cfg := &config.Config{Server: config.ServerConfig{Port: "0"}}
	return NewServerWithBackend(cfg, failingBackend{}, log)
}

func TestCreateRunReturnsID(t *testing.T) {
	s := testServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/runs",
		strings.NewReader(`{"productUrl": "https://shop.example/mug"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["id"])
}

func TestCreateRunRequiresProductURL(t *testing.T) {
	s := testServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	s.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownRunIs404(t *testing.T) {
	s := testServer()

	for _, path := range []string{
		"/api/runs/nope",
		"/api/runs/nope/transcript",
	} {
		w := httptest.NewRecorder()
		s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/runs/nope/approve", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFailedRunReportsErrorAndEmptySlots(t *testing.T) {
	s := testServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/runs",
		strings.NewReader(`{"productUrl": "https://shop.example/mug"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	var created map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created["id"]

	// The failing backend terminates the run quickly; poll for the terminal
	// state instead of sleeping a fixed amount.
	deadline := time.Now().Add(5 * time.Second)
	var body map[string]interface{}
	for {
		w = httptest.NewRecorder()
		s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		if body["state"] == "failed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("run never failed, state %v", body["state"])
		}
		time.Sleep(10 * time.Millisecond)
	}

	result := body["result"].(map[string]interface{})
	assert.Empty(t, result["slots"])
	errObj := body["error"].(map[string]interface{})
	assert.NotEmpty(t, errObj["code"])
}

func TestApproveWrongStateConflicts(t *testing.T) {
	s := testServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/runs",
		strings.NewReader(`{"productUrl": "https://shop.example/mug"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Engine().ServeHTTP(w, req)
	var created map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/runs/"+created["id"]+"/approve", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTranscriptRendersHTMLAndMarkdown(t *testing.T) {
	s := testServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/runs",
		strings.NewReader(`{"productUrl": "https://shop.example/mug"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Engine().ServeHTTP(w, req)
	var created map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created["id"]

	w = httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/"+id+"/transcript", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Production Transcript")

	w = httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/"+id+"/transcript?format=md", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/markdown")
}

func TestTranscriptMarkdownLaysOutDialogue(t *testing.T) {
	md := transcriptMarkdown("run-1", []models.DialogueEvent{
		{Agent: "Director", Role: "Chair", Message: "Pitching hooks", Type: models.DialogueDebate},
		{Agent: "Researcher", Role: "Analyst", Message: "Scan complete", Type: models.DialogueFinding, Timestamp: time.Unix(1700000000, 0)},
	})
	assert.Contains(t, md, "> **Director** (Chair): Pitching hooks")
	assert.Contains(t, md, "**Researcher** (Analyst)")
	assert.Contains(t, md, "Scan complete")
}
