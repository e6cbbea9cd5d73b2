// Package httputil provides the HTTP client abstraction the elevation
// providers fetch through, with a mock implementation for testing
// retry and failure behavior without a network.
package httputil

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

// Doer abstracts HTTP request execution. Elevation providers only issue
// GET requests; everything goes through Do so mocks see every call.
type Doer interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// StandardClient wraps *http.Client to implement Doer.
type StandardClient struct {
	*http.Client
}

// NewStandardClient creates a StandardClient wrapping the given http.Client.
func NewStandardClient(c *http.Client) *StandardClient {
	if c == nil {
		c = http.DefaultClient
	}
	return &StandardClient{Client: c}
}

// Do sends an HTTP request.
func (c *StandardClient) Do(req *http.Request) (*http.Response, error) {
	return c.Client.Do(req)
}

// MockClient replays queued responses in order and records every request.
type MockClient struct {
	mu          sync.Mutex
	DoFunc      func(req *http.Request) (*http.Response, error)
	Requests    []*http.Request
	Responses   []*MockResponse
	responseIdx int
}

// MockResponse defines a canned HTTP response for testing.
type MockResponse struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	Error      error
}

// NewMockClient creates a mock client with no queued responses. With an
// empty queue every request gets an empty 200.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// AddResponse queues a text response.
func (m *MockClient) AddResponse(statusCode int, body string) *MockClient {
	return m.AddBinaryResponse(statusCode, []byte(body))
}

// AddBinaryResponse queues a binary response, e.g. an encoded PNG tile.
func (m *MockClient) AddBinaryResponse(statusCode int, body []byte) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, &MockResponse{
		StatusCode: statusCode,
		Body:       body,
		Headers:    make(http.Header),
	})
	return m
}

// AddErrorResponse queues a transport-level error.
func (m *MockClient) AddErrorResponse(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, &MockResponse{Error: err})
	return m
}

// Do records the request and returns the next queued response.
func (m *MockClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	if m.DoFunc != nil {
		return m.DoFunc(req)
	}

	if m.responseIdx < len(m.Responses) {
		resp := m.Responses[m.responseIdx]
		m.responseIdx++

		if resp.Error != nil {
			return nil, resp.Error
		}

		return &http.Response{
			StatusCode: resp.StatusCode,
			Body:       io.NopCloser(bytes.NewReader(resp.Body)),
			Header:     resp.Headers,
			Request:    req,
		}, nil
	}

	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(nil)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// RequestCount returns the number of recorded requests.
func (m *MockClient) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// RequestURL returns the URL string of the nth recorded request, or ""
// when out of range.
func (m *MockClient) RequestURL(n int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 || n >= len(m.Requests) {
		return ""
	}
	return m.Requests[n].URL.String()
}
