package rfc6749client

import (
	"net/http"

	"github.com/pkg/errors"
)

// assembleRequest builds the single OutboundRequest for request: the registration's Token
// Endpoint, the composed headers, and the encoded body.
func assembleRequest(converters []HeaderConverter, request ClientCredentialsGrantRequest) (*OutboundRequest, error) {
	reg := request.ClientRegistration()
	if reg == nil {
		return nil, nilArgument("clientRegistration")
	}
	if err := reg.Validate(); err != nil {
		return nil, &InvalidArgumentError{
			Param:  "clientRegistration",
			Reason: errors.Wrapf(err, "registration %q", reg.RegistrationID).Error(),
		}
	}
	if method := reg.authenticationMethod(); !method.Supported() {
		return nil, &InvalidArgumentError{
			Param:  "clientAuthenticationMethod",
			Reason: "unsupported client authentication method " + string(method),
		}
	}

	endpoint := *reg.TokenEndpoint
	return &OutboundRequest{
		Method: http.MethodPost,
		URL:    &endpoint,
		Header: composeHeaders(converters, request),
		Body:   encodeBody(request),
	}, nil
}
