package rfc6749client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/datawire/dlib/dtime"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	emptyTokenResponse   = "Empty OAuth 2.0 Access Token Response"
	invalidTokenResponse = "An error occurred parsing the Access Token response"

	// maxDiagnosticBody bounds how much of an unparseable body ends up in an error message.
	maxDiagnosticBody = 256

	// maxExpiresIn is the largest "expires_in" (in seconds) that fits in a time.Duration.
	maxExpiresIn = float64(math.MaxInt64) / float64(time.Second)
)

// TokenResponse stores a successful response containing a token, as specified in §5.1.
type TokenResponse struct {
	AccessToken  string        // REQUIRED.
	TokenType    string        // REQUIRED.
	ExpiresIn    time.Duration // RECOMMENDED; zero if the server didn't say.
	ExpiresAt    time.Time     // ExpiresIn after the response was parsed; zero if ExpiresIn is.
	RefreshToken *string       // OPTIONAL.
	Scope        Scope         // The registration's scope if the server didn't say.

	// AdditionalParameters holds any members of the response that are not defined by §5.1.
	AdditionalParameters map[string]interface{}
}

// OAuth2Token converts the response to a golang.org/x/oauth2 Token, for use with the rest of
// that ecosystem.
func (r *TokenResponse) OAuth2Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken: r.AccessToken,
		TokenType:   r.TokenType,
		Expiry:      r.ExpiresAt,
	}
	if r.RefreshToken != nil {
		tok.RefreshToken = *r.RefreshToken
	}
	extra := make(map[string]interface{}, len(r.AdditionalParameters)+1)
	for k, v := range r.AdditionalParameters {
		extra[k] = v
	}
	extra["scope"] = r.Scope.String()
	return tok.WithExtra(extra)
}

func (r *TokenResponse) GoString() string {
	if r == nil {
		return fmt.Sprintf("(%T)(nil)", r)
	}
	refreshToken := "(*string)(nil)" // #nosec G101
	if r.RefreshToken != nil {
		refreshToken = "&\"<redacted>\""
	}
	return fmt.Sprintf("%T{AccessToken:\"<redacted>\", TokenType:%#v, ExpiresAt:%#v, RefreshToken:%s, Scope:%#v}",
		r, r.TokenType, r.ExpiresAt, refreshToken, r.Scope.List())
}

// newInvalidTokenResponse builds the AuthorizationError for a response that could not be
// understood.
func newInvalidTokenResponse(reg *ClientRegistration, statusCode int, description string) *AuthorizationError {
	return &AuthorizationError{
		ErrorCode:        ErrorCodeInvalidTokenResponse,
		ErrorDescription: description,
		ErrorURI:         reg.TokenEndpoint,
		StatusCode:       statusCode,
	}
}

func statusText(code int) string {
	return strings.TrimSpace(fmt.Sprintf("%d %s", code, http.StatusText(code)))
}

func diagnosticFragment(body []byte) string {
	if len(body) > maxDiagnosticBody {
		cut := maxDiagnosticBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		return string(body[:cut]) + "..."
	}
	return string(body)
}

// parseTokenResponse parses a response from a Token Endpoint, per §5.
//
// If the Authorization Server sent a semantically valid error response (§5.2), or sent something
// that isn't a valid Access Token Response, the returned error is an *AuthorizationError.  It
// never returns a partially populated TokenResponse.
func parseTokenResponse(res *InboundResponse, reg *ClientRegistration) (*TokenResponse, error) {
	body := bytes.TrimSpace(res.Body)
	success := res.StatusCode/100 == 2

	if len(body) == 0 {
		if success {
			return nil, newInvalidTokenResponse(reg, res.StatusCode, emptyTokenResponse)
		}
		return nil, newInvalidTokenResponse(reg, res.StatusCode,
			fmt.Sprintf("%s: HTTP status %s", emptyTokenResponse, statusText(res.StatusCode)))
	}

	if !success {
		if errResponse, err := parseErrorResponse(body); err == nil {
			errResponse.StatusCode = res.StatusCode
			if errResponse.ErrorURI == nil {
				errResponse.ErrorURI = reg.TokenEndpoint
			}
			return nil, errResponse
		}
		return nil, newInvalidTokenResponse(reg, res.StatusCode,
			fmt.Sprintf("%s: HTTP status %s: %s", invalidTokenResponse, statusText(res.StatusCode), diagnosticFragment(body)))
	}

	ret, err := parseSuccessResponse(body, reg)
	if err != nil {
		return nil, newInvalidTokenResponse(reg, res.StatusCode,
			fmt.Sprintf("%s: %v", invalidTokenResponse, err))
	}
	return ret, nil
}

// parseSuccessResponse decodes a §5.1 response body.
func parseSuccessResponse(body []byte, reg *ClientRegistration) (*TokenResponse, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(body, &members); err != nil {
		return nil, errors.Wrap(err, "malformed JSON")
	}
	if members == nil {
		return nil, errors.New("expected a JSON object")
	}

	var rawResponse struct {
		AccessToken  *string      `json:"access_token"`
		TokenType    *string      `json:"token_type"`
		ExpiresIn    *json.Number `json:"expires_in"`
		RefreshToken *string      `json:"refresh_token"`
		Scope        *string      `json:"scope"`
	}
	if err := json.Unmarshal(body, &rawResponse); err != nil {
		return nil, errors.Wrap(err, "malformed token response")
	}
	if rawResponse.AccessToken == nil || *rawResponse.AccessToken == "" {
		return nil, errors.New("parameter \"access_token\" is missing")
	}
	if rawResponse.TokenType == nil {
		return nil, errors.New("parameter \"token_type\" is missing")
	}
	if !strings.EqualFold(*rawResponse.TokenType, "bearer") {
		return nil, errors.Errorf("unsupported token_type %q", *rawResponse.TokenType)
	}

	ret := &TokenResponse{
		AccessToken:  *rawResponse.AccessToken,
		TokenType:    *rawResponse.TokenType,
		RefreshToken: rawResponse.RefreshToken,
	}
	if rawResponse.ExpiresIn != nil {
		seconds, err := strconv.ParseFloat(rawResponse.ExpiresIn.String(), 64)
		if err != nil || seconds < 0 || seconds >= maxExpiresIn {
			return nil, errors.Errorf("invalid \"expires_in\": %q", rawResponse.ExpiresIn.String())
		}
		ret.ExpiresIn = time.Duration(seconds * float64(time.Second))
		ret.ExpiresAt = dtime.Now().Add(ret.ExpiresIn)
	}
	if rawResponse.Scope != nil && strings.TrimSpace(*rawResponse.Scope) != "" {
		ret.Scope = ParseScope(*rawResponse.Scope)
	} else {
		ret.Scope = reg.Scope.Copy()
	}

	for k, raw := range members {
		switch k {
		case "access_token", "token_type", "expires_in", "refresh_token", "scope":
			continue
		}
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, errors.Wrapf(err, "parameter %q", k)
		}
		if ret.AdditionalParameters == nil {
			ret.AdditionalParameters = make(map[string]interface{})
		}
		ret.AdditionalParameters[k] = v
	}

	return ret, nil
}

// parseErrorResponse decodes a §5.2 error response body.
func parseErrorResponse(body []byte) (*AuthorizationError, error) {
	var rawResponse struct {
		ErrorCode        *string `json:"error"`
		ErrorDescription *string `json:"error_description,omitempty"`
		ErrorURI         *string `json:"error_uri,omitempty"`
	}
	if err := json.Unmarshal(body, &rawResponse); err != nil {
		return nil, err
	}
	if rawResponse.ErrorCode == nil || *rawResponse.ErrorCode == "" {
		return nil, errors.New("parameter \"error\" is missing")
	}
	ret := &AuthorizationError{
		ErrorCode: *rawResponse.ErrorCode,
	}
	if rawResponse.ErrorDescription != nil {
		ret.ErrorDescription = *rawResponse.ErrorDescription
	}
	if rawResponse.ErrorURI != nil {
		var err error
		ret.ErrorURI, err = url.Parse(*rawResponse.ErrorURI)
		if err != nil {
			return nil, err
		}
	}
	return ret, nil
}
