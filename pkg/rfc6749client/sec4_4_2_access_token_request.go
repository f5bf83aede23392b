package rfc6749client

import (
	"strings"
)

type formParameter struct {
	key   string
	value string
}

// formParameters is an ordered application/x-www-form-urlencoded payload.  Unlike url.Values,
// it keeps the parameters in the order they were added, so the body of a given request is
// always byte-for-byte the same.
type formParameters []formParameter

func (params *formParameters) add(key, value string) {
	*params = append(*params, formParameter{key: key, value: value})
}

// Encode serializes the parameters per Appendix B.
func (params formParameters) Encode() string {
	var buf strings.Builder
	for i, p := range params {
		if i > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(formEscape(p.key))
		buf.WriteByte('=')
		buf.WriteString(formEscape(p.value))
	}
	return buf.String()
}

// accessTokenRequestParameters builds the body of the Access Token Request per §4.4.2:
// grant_type, then scope (if there is one), then (for ClientSecretPost) the client credentials
// per §2.3.1.
func accessTokenRequestParameters(request ClientCredentialsGrantRequest) formParameters {
	reg := request.ClientRegistration()

	params := formParameters{{key: "grant_type", value: request.GrantType()}}
	if len(reg.Scope) != 0 {
		params.add("scope", reg.Scope.String())
	}
	if reg.authenticationMethod() == ClientSecretPost {
		params.add("client_id", reg.ClientID)
		params.add("client_secret", reg.ClientSecret)
	}
	return params
}

// encodeBody returns the form-encoded body of the Access Token Request.
func encodeBody(request ClientCredentialsGrantRequest) []byte {
	return []byte(accessTokenRequestParameters(request).Encode())
}
