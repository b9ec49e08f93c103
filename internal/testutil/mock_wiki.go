// Package testutil provides testing utilities for the quiz generator.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
)

// DefaultArticleHTML is a small Wikipedia-shaped article page used as the
// default response for any path without a custom handler.
const DefaultArticleHTML = `<!DOCTYPE html>
<html>
<head><title>Go (programming language) - Wikipedia</title></head>
<body>
<h1 id="firstHeading">Go (programming language)</h1>
<div id="mw-content-text">
<p>Go is a statically typed, compiled programming language designed at Google.</p>
<p>It is syntactically similar to C, but with memory safety and garbage collection.</p>
<p>Go was publicly announced in November 2009.</p>
<h2>History</h2>
<p>Go was designed by Robert Griesemer, Rob Pike, and Ken Thompson.</p>
<h2>Design</h2>
<p>Go is influenced by C, but with an emphasis on greater simplicity.</p>
<h2>References</h2>
<p>Citation list.</p>
</div>
</body>
</html>`

// MockWiki is a configurable mock article server for testing.
type MockWiki struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount int
	LastPath     string
}

// NewMockWiki creates a new mock article server.
func NewMockWiki() *MockWiki {
	mock := &MockWiki{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastPath = r.URL.Path
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(DefaultArticleHTML))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockWiki) URL() string {
	return m.server.URL
}

// Host returns the mock server host, for use as an allowed-host override.
func (m *MockWiki) Host() string {
	return m.server.Listener.Addr().String()
}

// Close shuts down the mock server.
func (m *MockWiki) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockWiki) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastPath = ""
}

// SetHandler sets a custom handler for a specific path.
func (m *MockWiki) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetArticle serves the given HTML for a path.
func (m *MockWiki) SetArticle(path, html string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(html))
	})
}

// SetStatus serves a bare status code for a path.
func (m *MockWiki) SetStatus(path string, status int) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockWiki) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}
