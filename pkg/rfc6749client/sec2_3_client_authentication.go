package rfc6749client

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
)

// formEscape escapes a value for use in an application/x-www-form-urlencoded payload, as
// required of client credentials by §2.3.1 and of request parameters by Appendix B.  Unlike
// url.QueryEscape, a space is escaped as "%20" rather than "+".
func formEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// basicAuthorization returns the value of the "Authorization" header for HTTP Basic
// authentication of the client per §2.3.1: the client identifier and password are each
// form-encoded *before* being joined and base64-encoded.
func basicAuthorization(clientID, clientSecret string) string {
	userPass := formEscape(clientID) + ":" + formEscape(clientSecret)
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(userPass))
}

// DefaultHeaderConverter is the HeaderConverter that a new Client starts with.  It adds the
// "Authorization" header for ClientSecretBasic registrations, and nothing for
// ClientSecretPost registrations (whose credentials travel in the body).
func DefaultHeaderConverter(request ClientCredentialsGrantRequest) http.Header {
	reg := request.ClientRegistration()
	if reg == nil || reg.authenticationMethod() != ClientSecretBasic {
		return nil
	}
	return http.Header{
		"Authorization": {basicAuthorization(reg.ClientID, reg.ClientSecret)},
	}
}
