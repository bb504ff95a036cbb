// Package testutil provides a mock paginated JSON API for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// Rate-limit headers sent by the mock.
const (
	RemainingHeader = "X-RateLimit-Remaining"
	LimitHeader     = "X-RateLimit-Limit"
	ResetHeader     = "X-RateLimit-Reset"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock API server for testing.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requestCount      int
	conditionalCount  int
	lastRequestHeader http.Header
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.lastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.conditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.conditionalCount = 0
	m.lastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetSequence serves the responses in order, repeating the last one.
func (m *MockAPI) SetSequence(path string, responses ...MockResponse) {
	var (
		mu   sync.Mutex
		next int
	)
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[min(next, len(responses)-1)]
		next++
		mu.Unlock()
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// PagedList describes a marker-paginated list endpoint. The marker is the
// offset of the next page, rendered as a string.
type PagedList struct {
	Items []any

	// ResultKey holds the page's items in the response.
	ResultKey string
	// OutputToken is the response field carrying the next marker.
	OutputToken string
	// InputToken is the query parameter carrying the marker back.
	InputToken string
	// LimitKey is the query parameter limiting the page size.
	LimitKey string
	// PageSize applies when the request has no LimitKey parameter.
	PageSize int
}

// SetPagedList serves list as a marker-paginated endpoint.
func (m *MockAPI) SetPagedList(path string, list PagedList) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		offset := 0
		if marker := query.Get(list.InputToken); marker != "" {
			n, err := strconv.Atoi(marker)
			if err != nil || n < 0 || n > len(list.Items) {
				http.Error(w, `{"error": "invalid marker"}`, http.StatusBadRequest)
				return
			}
			offset = n
		}

		size := list.PageSize
		if raw := query.Get(list.LimitKey); list.LimitKey != "" && raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				http.Error(w, `{"error": "invalid page size"}`, http.StatusBadRequest)
				return
			}
			size = n
		}
		if size < 1 {
			size = len(list.Items)
		}

		end := min(offset+size, len(list.Items))
		page := map[string]any{list.ResultKey: list.Items[offset:end]}
		if end < len(list.Items) {
			page[list.OutputToken] = strconv.Itoa(end)
		}

		setRateLimitHeaders(w, 100, 100, 60)
		writeJSON(w, http.StatusOK, page)
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockAPI) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockAPI) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader.Clone()
}

func (m *MockAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	setRateLimitHeaders(w, 100, 100, 60)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.Header.Get("If-None-Match") != "" {
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", `"default-etag"`)
	w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

func setRateLimitHeaders(w http.ResponseWriter, remaining, limit, resetSeconds int) {
	w.Header().Set(RemainingHeader, strconv.Itoa(remaining))
	w.Header().Set(LimitHeader, strconv.Itoa(limit))
	w.Header().Set(ResetHeader, strconv.Itoa(resetSeconds))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func rateLimitHeaders(remaining, reset int) map[string]string {
	return map[string]string{
		RemainingHeader: strconv.Itoa(remaining),
		LimitHeader:     "100",
		ResetHeader:     strconv.Itoa(reset),
		"Content-Type":  "application/json; charset=utf-8",
	}
}

// NewHealthyResponse creates a cacheable 200 OK response.
func NewHealthyResponse(data string) MockResponse {
	headers := rateLimitHeaders(100, 60)
	headers["ETag"] = `"test-etag-123"`
	headers["Cache-Control"] = "max-age=300"
	return MockResponse{StatusCode: http.StatusOK, Body: data, Headers: headers}
}

// NewNotModifiedResponse creates a 304 Not Modified response.
func NewNotModifiedResponse() MockResponse {
	headers := rateLimitHeaders(100, 60)
	headers["Cache-Control"] = "max-age=300"
	return MockResponse{StatusCode: http.StatusNotModified, Headers: headers}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "rate limit exceeded"}`,
		Headers:    rateLimitHeaders(0, 30),
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
		Headers:    rateLimitHeaders(95, 60),
	}
}

// NewConditionalHandler answers 304 when the request carries etag and the
// full data otherwise.
func NewConditionalHandler(etag string, data string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setRateLimitHeaders(w, 100, 100, 60)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("Cache-Control", "max-age=300")
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "max-age=0")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}
