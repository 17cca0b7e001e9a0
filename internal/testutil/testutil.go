// Package testutil holds helpers shared by tests that talk to a fake OpenRouter.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

// TestAPIKey is the bearer token the fake server accepts
const TestAPIKey = "sk-or-test"

// CreateTestLogger creates a logger that discards everything
func CreateTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// ChatFunc decides the probe reply for a model. A non-zero status is sent with
// body as the error payload.
type ChatFunc func(model string) (status int, content string)

// FakeOpenRouter serves GET /api/v1/models and POST /api/v1/chat/completions
type FakeOpenRouter struct {
	*httptest.Server

	mu          sync.Mutex
	catalogHits int
	probes      []string
}

// NewFakeOpenRouter starts a server that returns catalogBody for the catalog and
// answers probes with chat. Requests without the test key get 401.
func NewFakeOpenRouter(t *testing.T, catalogBody string, chat ChatFunc) *FakeOpenRouter {
	t.Helper()
	f := &FakeOpenRouter{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+TestAPIKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/api/v1/models":
			f.mu.Lock()
			f.catalogHits++
			f.mu.Unlock()
			_, _ = io.WriteString(w, catalogBody)
		case "/api/v1/chat/completions":
			var body struct {
				Model string `json:"model"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.mu.Lock()
			f.probes = append(f.probes, body.Model)
			f.mu.Unlock()

			status, content := http.StatusOK, "OK"
			if chat != nil {
				status, content = chat(body.Model)
			}
			if status != http.StatusOK {
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": content, "code": status},
				})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":      "gen-test",
				"object":  "chat.completion",
				"created": 1,
				"model":   body.Model,
				"choices": []map[string]any{{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": content},
				}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

// BaseURL is the API root clients should be pointed at
func (f *FakeOpenRouter) BaseURL() string {
	return f.URL + "/api/v1"
}

// CatalogHits returns how many times the catalog was requested
func (f *FakeOpenRouter) CatalogHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.catalogHits
}

// Probes returns the model IDs probed so far, in order
func (f *FakeOpenRouter) Probes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.probes...)
}
