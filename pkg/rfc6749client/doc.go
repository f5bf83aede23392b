// Package rfc6749client implements the "Client" side of the OAuth 2.0 "Client Credentials"
// Grant, as defined by RFC 6749 §4.4.
//
// A Client application (that is, an application that exchanges its own credentials for an
// Access Token at an Authorization Server's Token Endpoint) uses this package by describing
// itself with a ClientRegistration, creating a Client, and calling `.GetTokenResponse()` (or the
// synchronous `.Exchange()`) with a ClientCredentialsGrantRequest:
//
//	client, err := rfc6749client.NewClientCredentialsTokenResponseClient(
//	    rfc6749client.WithTransport(rfc6749client.NewHTTPTransport(httpClient)))
//	request, err := rfc6749client.NewClientCredentialsGrantRequest(registration)
//	result := <-client.GetTokenResponse(ctx, request)
//	if result.Err != nil {
//	    var authErr *rfc6749client.AuthorizationError
//	    var transportErr *rfc6749client.TransportError
//	    switch {
//	    case errors.As(result.Err, &authErr):      // the Authorization Server said no
//	    case errors.As(result.Err, &transportErr): // we never got an answer
//	    }
//	}
//
// The Client authenticates itself to the Token Endpoint using either HTTP Basic authentication
// (§2.3.1, "client_secret_basic") or by including its credentials in the request body
// ("client_secret_post").  Caching and retrying tokens is left to the caller.
package rfc6749client
