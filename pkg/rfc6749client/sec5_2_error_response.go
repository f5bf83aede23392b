package rfc6749client

import (
	"fmt"
	"net/url"

	"github.com/pkg/errors"
)

// An AuthorizationError is the failure outcome of a token request that reached the
// Authorization Server: either a semantically valid error response as specified in §5.2, or a
// response that could not be understood as an Access Token Response at all (in which case
// ErrorCode is "invalid_token_response").
type AuthorizationError struct {
	ErrorCode        string
	ErrorDescription string
	ErrorURI         *url.URL

	// StatusCode is the HTTP status of the response, if there was one.
	StatusCode int
}

func (e *AuthorizationError) Error() string {
	ret := fmt.Sprintf("[%s]", e.ErrorCode)
	if e.ErrorDescription != "" {
		ret = fmt.Sprintf("%s %s", ret, e.ErrorDescription)
	}
	if e.ErrorURI != nil {
		ret = fmt.Sprintf("%s (error_uri=%q)", ret, e.ErrorURI.String())
	}
	return ret
}

// Meaning returns the registered meaning of the error code, or "" if the code is not one that
// the Client knows about.
func (e *AuthorizationError) Meaning() string {
	return tokenErrorCodeRegistry[e.ErrorCode]
}

// A TransportError is the failure outcome of a token request that never produced a response
// from the Authorization Server (connection refused, TLS failure, timeout, ...).  It is never an
// AuthorizationError, so callers can apply a different retry policy to it.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "token request transport failure: " + e.Err.Error()
}

// Unwrap returns the underlying transport failure.
func (e *TransportError) Unwrap() error { return e.Err }

// Cause implements the github.com/pkg/errors causer interface.
func (e *TransportError) Cause() error { return e.Err }

// IsTransportError returns whether err is, or wraps, a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsAuthorizationError returns whether err is, or wraps, an *AuthorizationError.
func IsAuthorizationError(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// An InvalidArgumentError is returned when the Client is configured, or asked to perform a
// request, with an argument that cannot work.
type InvalidArgumentError struct {
	Param  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	if e.Reason == "" {
		return e.Param + " cannot be nil"
	}
	return e.Param + ": " + e.Reason
}

func nilArgument(param string) error {
	return &InvalidArgumentError{Param: param}
}

// The error codes that the Client produces itself, rather than receiving from the Authorization
// Server.
const (
	ErrorCodeInvalidTokenResponse = "invalid_token_response"
	ErrorCodeServerError          = "server_error"
)

// tokenErrorCodeRegistry holds the meaning of the error codes that may show up in an
// AuthorizationError, as enumerated in §5.2 (plus a few that the Client synthesizes).
var tokenErrorCodeRegistry = map[string]string{}

func registerTokenErrorCode(name, meaning string) string {
	if _, set := tokenErrorCodeRegistry[name]; set {
		panic(errors.Errorf("token error=%q already registered", name))
	}
	tokenErrorCodeRegistry[name] = meaning
	return name
}

// These are the error codes that may be present in a token error response, as enumerated in
// §5.2.
var (
	ErrorCodeInvalidRequest = registerTokenErrorCode("invalid_request", ""+
		"The request is missing a required parameter, includes an "+
		"unsupported parameter value (other than grant type), "+
		"repeats a parameter, includes multiple credentials, "+
		"utilizes more than one mechanism for authenticating the "+
		"client, or is otherwise malformed.")

	ErrorCodeInvalidClient = registerTokenErrorCode("invalid_client", ""+
		"Client authentication failed (e.g., unknown client, no "+
		"client authentication included, or unsupported "+
		"authentication method).")

	ErrorCodeInvalidGrant = registerTokenErrorCode("invalid_grant", ""+
		"The provided authorization grant or refresh token is "+
		"invalid, expired, revoked, or was issued to another client.")

	ErrorCodeUnauthorizedClient = registerTokenErrorCode("unauthorized_client", ""+
		"The authenticated client is not authorized to use this "+
		"authorization grant type.")

	ErrorCodeUnsupportedGrantType = registerTokenErrorCode("unsupported_grant_type", ""+
		"The authorization grant type is not supported by the "+
		"authorization server.")

	ErrorCodeInvalidScope = registerTokenErrorCode("invalid_scope", ""+
		"The requested scope is invalid, unknown, malformed, or "+
		"exceeds the scope granted by the resource owner.")

	ErrorCodeTemporarilyUnavailable = registerTokenErrorCode("temporarily_unavailable", ""+
		"The authorization server is currently unable to handle "+
		"the request due to a temporary overloading or maintenance.")

	_ = registerTokenErrorCode(ErrorCodeServerError, ""+
		"The authorization server encountered an unexpected "+
		"condition that prevented it from fulfilling the request.")

	_ = registerTokenErrorCode(ErrorCodeInvalidTokenResponse, ""+
		"The response from the token endpoint could not be "+
		"understood as an Access Token Response.")
)
