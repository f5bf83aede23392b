package rfc6749client

import (
	"net/url"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// validateTokenEndpointURI validates the requirements in §3.2.
func validateTokenEndpointURI(endpoint *url.URL) error {
	if !endpoint.IsAbs() {
		return errors.Errorf("the Token Endpoint URI must be an absolute URI: %v", endpoint)
	}
	if endpoint.Fragment != "" {
		return errors.Errorf("the Token Endpoint URI MUST NOT include a fragment component: %v", endpoint)
	}
	return nil
}

// Scope represents a set of scopes as defined by §3.3.
type Scope map[string]struct{}

// NewScope builds a Scope from a list of scope tokens, ignoring empty ones.
func NewScope(scopes ...string) Scope {
	ret := make(Scope, len(scopes))
	for _, s := range scopes {
		if s != "" {
			ret[s] = struct{}{}
		}
	}
	return ret
}

// List returns the scope tokens in sorted order.
func (scope Scope) List() []string {
	strs := make([]string, 0, len(scope))
	for k := range scope {
		strs = append(strs, k)
	}
	sort.Strings(strs)
	return strs
}

// String serializes the set of scopes for use as a parameter, per §3.3.  The tokens are sorted
// so that the same set always serializes the same way.
func (scope Scope) String() string {
	return strings.Join(scope.List(), " ")
}

// Copy returns a Scope with the same members that does not share storage with scope.
func (scope Scope) Copy() Scope {
	ret := make(Scope, len(scope))
	for k := range scope {
		ret[k] = struct{}{}
	}
	return ret
}

// ParseScope de-serializes the set of scopes from use as a parameter, per §3.3.
func ParseScope(str string) Scope {
	return NewScope(strings.Split(str, " ")...)
}
