// Package testutil holds helpers shared by the tests of several packages.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
)

// TokenPath is the path that a TokenServer serves its Token Endpoint on.
const TokenPath = "/oauth2/token"

// A MockResponse is a canned response for a TokenServer to send.
type MockResponse struct {
	StatusCode int
	Header     http.Header
	Body       string
}

// A RecordedRequest is a request that a TokenServer received.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

// A TokenServer is a fake Token Endpoint: it answers each request with the next queued
// MockResponse and remembers what it was sent.
type TokenServer struct {
	*httptest.Server

	mu        sync.Mutex
	responses []MockResponse
	requests  []RecordedRequest
}

// NewTokenServer starts a TokenServer.  The caller must Close it.
func NewTokenServer() *TokenServer {
	s := &TokenServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

func (s *TokenServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   string(body),
	})
	if r.URL.Path != TokenPath {
		s.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	if len(s.responses) == 0 {
		s.mu.Unlock()
		http.Error(w, "no response queued", http.StatusInternalServerError)
		return
	}
	res := s.responses[0]
	s.responses = s.responses[1:]
	s.mu.Unlock()

	for k, vs := range res.Header {
		w.Header()[k] = vs
	}
	statusCode := res.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	w.WriteHeader(statusCode)
	_, _ = io.WriteString(w, res.Body)
}

// Enqueue queues res to be sent in reply to the next request.
func (s *TokenServer) Enqueue(res MockResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, res)
}

// EnqueueJSON queues a 200 response with a JSON body.
func (s *TokenServer) EnqueueJSON(body string) {
	s.Enqueue(MockResponse{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       body,
	})
}

// TakeRequest returns the oldest request that has not been taken yet.
func (s *TokenServer) TakeRequest() (RecordedRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return RecordedRequest{}, false
	}
	req := s.requests[0]
	s.requests = s.requests[1:]
	return req, true
}

// RequestCount returns how many requests have not been taken yet.
func (s *TokenServer) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// TokenURL returns the URL of the Token Endpoint.
func (s *TokenServer) TokenURL() *url.URL {
	u, err := url.Parse(s.URL + TokenPath)
	if err != nil {
		panic(err)
	}
	return u
}
