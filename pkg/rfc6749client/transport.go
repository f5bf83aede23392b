package rfc6749client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
)

// An OutboundRequest is a fully assembled token request, ready to hand to a Transport.
type OutboundRequest struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// An InboundResponse is what a Transport got back from the Token Endpoint.
type InboundResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// A Transport sends an OutboundRequest and returns the response.  A Transport returns an error
// only if it did not get a response; an HTTP error status is a response, not an error.
//
// RoundTrip must return promptly once ctx is cancelled.
type Transport interface {
	RoundTrip(ctx context.Context, request *OutboundRequest) (*InboundResponse, error)
}

// TransportFunc adapts an ordinary function to the Transport interface.
type TransportFunc func(ctx context.Context, request *OutboundRequest) (*InboundResponse, error)

// RoundTrip calls fn(ctx, request).
func (fn TransportFunc) RoundTrip(ctx context.Context, request *OutboundRequest) (*InboundResponse, error) {
	return fn(ctx, request)
}

// HTTPTransport is a Transport that uses a *http.Client.  Connection pooling, TLS and redirect
// policy are whatever that *http.Client does.
type HTTPTransport struct {
	// Client is the *http.Client to use; if nil, http.DefaultClient is used.
	Client *http.Client
}

// NewHTTPTransport returns an HTTPTransport that uses httpClient.
func NewHTTPTransport(httpClient *http.Client) *HTTPTransport {
	return &HTTPTransport{Client: httpClient}
}

// RoundTrip implements Transport.
func (t *HTTPTransport) RoundTrip(ctx context.Context, request *OutboundRequest) (*InboundResponse, error) {
	httpClient := t.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, request.Method, request.URL.String(),
		bytes.NewReader(request.Body))
	if err != nil {
		return nil, err
	}
	req.Header = request.Header.Clone()

	res, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	return &InboundResponse{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       body,
	}, nil
}
