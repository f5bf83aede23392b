package rfc6749client

import (
	"context"
	"sync"

	"github.com/datawire/dlib/derror"
	"github.com/datawire/dlib/dlog"
	"github.com/pkg/errors"
)

// GrantTypeClientCredentials is the "grant_type" value for the Client Credentials Grant, per
// §4.4.2.
const GrantTypeClientCredentials = "client_credentials"

// A ClientCredentialsGrantRequest is a request to exchange the credentials of a registered
// Client for an Access Token, per §4.4.  The scope comes entirely from the registration.
//
// ClientCredentialsGrantRequest values are immutable and comparable.
type ClientCredentialsGrantRequest struct {
	registration *ClientRegistration
}

// NewClientCredentialsGrantRequest creates a ClientCredentialsGrantRequest for reg.
func NewClientCredentialsGrantRequest(reg *ClientRegistration) (ClientCredentialsGrantRequest, error) {
	if reg == nil {
		return ClientCredentialsGrantRequest{}, nilArgument("clientRegistration")
	}
	return ClientCredentialsGrantRequest{registration: reg}, nil
}

// ClientRegistration returns the registration that the request is for.
func (r ClientCredentialsGrantRequest) ClientRegistration() *ClientRegistration {
	return r.registration
}

// GrantType returns "client_credentials".
func (r ClientCredentialsGrantRequest) GrantType() string {
	return GrantTypeClientCredentials
}

// A Result is the single outcome of an asynchronous token request.  Exactly one of Response and
// Err is set.
type Result struct {
	Response *TokenResponse
	Err      error
}

// A Client obtains Access Tokens using the Client Credentials Grant.
//
// A Client should be configured (SetTransport, SetHeaderConverters, AddHeaderConverter) before
// it is shared; after that, any number of goroutines may request tokens concurrently.
type Client struct {
	mu               sync.RWMutex
	transport        Transport
	headerConverters []HeaderConverter
}

// A ClientOption configures a Client at construction time.
type ClientOption func(*Client) error

// WithTransport sets the Transport that the Client sends requests through.
func WithTransport(t Transport) ClientOption {
	return func(c *Client) error {
		return c.SetTransport(t)
	}
}

// WithHeaderConverters replaces the Client's HeaderConverter chain.
func WithHeaderConverters(converters ...HeaderConverter) ClientOption {
	return func(c *Client) error {
		return c.SetHeaderConverters(converters...)
	}
}

// NewClientCredentialsTokenResponseClient creates a Client that sends requests with an
// HTTPTransport around http.DefaultClient, and whose HeaderConverter chain is just
// DefaultHeaderConverter.
func NewClientCredentialsTokenResponseClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		transport:        NewHTTPTransport(nil),
		headerConverters: []HeaderConverter{DefaultHeaderConverter},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// SetTransport replaces the Transport.
func (c *Client) SetTransport(t Transport) error {
	if t == nil {
		return nilArgument("transport")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transport = t
	return nil
}

// SetHeaderConverters replaces the entire HeaderConverter chain (including
// DefaultHeaderConverter, which must be included again if it is still wanted).  If no converters
// are given, or any of them is nil, the chain is left as it was.
func (c *Client) SetHeaderConverters(converters ...HeaderConverter) error {
	if len(converters) == 0 {
		return nilArgument("headersConverter")
	}
	for _, convert := range converters {
		if convert == nil {
			return nilArgument("headersConverter")
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headerConverters = append([]HeaderConverter(nil), converters...)
	return nil
}

// AddHeaderConverter appends convert to the end of the HeaderConverter chain.  If convert is
// nil, the chain is left as it was.
func (c *Client) AddHeaderConverter(convert HeaderConverter) error {
	if convert == nil {
		return nilArgument("headersConverter")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headerConverters = append(c.headerConverters, convert)
	return nil
}

// snapshot returns the configuration for a single exchange.  The converter slice is a copy, so
// that later configuration changes don't affect an exchange that is already underway.
func (c *Client) snapshot() (Transport, []HeaderConverter) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transport, append([]HeaderConverter(nil), c.headerConverters...)
}

// GetTokenResponse asynchronously talks to the Authorization Server to exchange the Client's
// credentials for an Access Token; submitting the request per §4.4.2, and handling the response
// per §4.4.3.
//
// The returned channel receives exactly one Result and is then closed.  The Result's Err is an
// *AuthorizationError if the Authorization Server's response was an error or could not be
// understood, a *TransportError if there was no response, or an *InvalidArgumentError if the
// registration cannot be used.  If ctx is cancelled before the exchange completes, the channel
// is closed without a Result.
func (c *Client) GetTokenResponse(ctx context.Context, request ClientCredentialsGrantRequest) <-chan Result {
	transport, converters := c.snapshot()
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		var result Result
		result.Response, result.Err = exchange(ctx, transport, converters, request)
		if ctx.Err() != nil {
			dlog.Debugf(ctx, "token request abandoned: %v", ctx.Err())
			return
		}
		ch <- result
	}()
	return ch
}

// Exchange is the synchronous form of GetTokenResponse: it performs the same single exchange in
// the calling goroutine.
func (c *Client) Exchange(ctx context.Context, request ClientCredentialsGrantRequest) (*TokenResponse, error) {
	transport, converters := c.snapshot()
	return exchange(ctx, transport, converters, request)
}

// exchange performs a single token request.  A panic in a HeaderConverter or the Transport is
// returned as an error.
func exchange(ctx context.Context, transport Transport, converters []HeaderConverter, request ClientCredentialsGrantRequest) (_ *TokenResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = derror.PanicToError(r)
		}
	}()

	outbound, err := assembleRequest(converters, request)
	if err != nil {
		return nil, err
	}
	reg := request.ClientRegistration()
	ctx = dlog.WithField(ctx, "registration", reg.RegistrationID)

	dlog.Debugf(ctx, "requesting access token from %s (client authentication: %s)",
		outbound.URL, reg.authenticationMethod())
	inbound, err := transport.RoundTrip(ctx, outbound)
	if err != nil {
		dlog.Debugf(ctx, "token request failed: %v", err)
		return nil, &TransportError{Err: err}
	}
	if inbound == nil {
		return nil, &TransportError{Err: errors.New("transport returned neither a response nor an error")}
	}

	ret, err := parseTokenResponse(inbound, reg)
	if err != nil {
		dlog.Debugf(ctx, "token request rejected: %v", err)
		return nil, err
	}
	dlog.Debugf(ctx, "obtained %s token (scope=%q, expires_in=%s)",
		ret.TokenType, ret.Scope.String(), ret.ExpiresIn)
	return ret, nil
}
