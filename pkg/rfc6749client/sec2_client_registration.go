package rfc6749client

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// A ClientAuthenticationMethod identifies how the Client authenticates itself to the Token
// Endpoint, per §2.3.
type ClientAuthenticationMethod string

// These are the ClientAuthenticationMethods that the Client knows how to perform.  Any other
// value is accepted in a ClientRegistration, but a token request for it fails.
const (
	// ClientSecretBasic sends the client credentials using HTTP Basic authentication, as
	// specified in §2.3.1.
	ClientSecretBasic ClientAuthenticationMethod = "client_secret_basic"

	// ClientSecretPost sends the client credentials in the request body, as permitted (but
	// NOT RECOMMENDED) by §2.3.1.
	ClientSecretPost ClientAuthenticationMethod = "client_secret_post"
)

// ParseClientAuthenticationMethod maps the various spellings that show up in configuration
// files to a ClientAuthenticationMethod.  Unrecognized input is returned verbatim, so that the
// error that eventually gets reported names what the user actually wrote.
func ParseClientAuthenticationMethod(str string) ClientAuthenticationMethod {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "", "basic", "client_secret_basic", "headerpassword":
		return ClientSecretBasic
	case "post", "client_secret_post", "bodypassword":
		return ClientSecretPost
	default:
		return ClientAuthenticationMethod(str)
	}
}

// Supported returns whether the Client knows how to perform this authentication method.
func (m ClientAuthenticationMethod) Supported() bool {
	return m == ClientSecretBasic || m == ClientSecretPost
}

func (m ClientAuthenticationMethod) String() string {
	return string(m)
}

// A ClientRegistration describes a Client that has been registered with an Authorization Server,
// as described by §2.
//
// A ClientRegistration is owned by whatever registry produced it; this package never modifies
// one.
type ClientRegistration struct {
	// RegistrationID is a local name for the registration; it is only used for logging.
	RegistrationID string

	ClientID                   string
	ClientSecret               string
	ClientAuthenticationMethod ClientAuthenticationMethod
	TokenEndpoint              *url.URL

	// Scope is the set of scopes requested for every token, and the set assumed to be
	// granted when the Authorization Server does not say otherwise.
	Scope Scope
}

// authenticationMethod returns the ClientAuthenticationMethod to use; an unset method means
// ClientSecretBasic, which §2.3.1 says the Authorization Server MUST support.
func (reg *ClientRegistration) authenticationMethod() ClientAuthenticationMethod {
	if reg.ClientAuthenticationMethod == "" {
		return ClientSecretBasic
	}
	return reg.ClientAuthenticationMethod
}

// Validate checks that the registration is usable for a token request.
func (reg *ClientRegistration) Validate() error {
	if reg.TokenEndpoint == nil {
		return errors.New("the Token Endpoint URI must be set")
	}
	if err := validateTokenEndpointURI(reg.TokenEndpoint); err != nil {
		return err
	}
	if reg.ClientID == "" {
		return errors.New("the client_id must be set")
	}
	return nil
}
