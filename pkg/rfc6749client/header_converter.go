package rfc6749client

import (
	"net/http"
)

// A HeaderConverter computes request headers for a token request.  The Client invokes its
// HeaderConverters in order, once per request, and merges the results: for any header key that
// a HeaderConverter returns, its values replace whatever the baseline headers or earlier
// HeaderConverters set for that key.
type HeaderConverter func(ClientCredentialsGrantRequest) http.Header

const (
	contentTypeFormURLEncoded = "application/x-www-form-urlencoded;charset=UTF-8"
	contentTypeJSON           = "application/json"
)

// baselineHeaders returns the headers that every token request starts with.
func baselineHeaders() http.Header {
	return http.Header{
		"Content-Type": {contentTypeFormURLEncoded},
		"Accept":       {contentTypeJSON},
	}
}

// composeHeaders runs the HeaderConverter chain against request; last writer wins per key.
func composeHeaders(converters []HeaderConverter, request ClientCredentialsGrantRequest) http.Header {
	header := baselineHeaders()
	for _, convert := range converters {
		for k, vs := range convert(request) {
			if len(vs) == 0 {
				continue
			}
			header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
		}
	}
	return header
}
