// Package registration loads named ClientRegistrations from a YAML file.
//
// The file looks like:
//
//	registrations:
//	  billing:
//	    clientId: billing-service
//	    clientSecret: ${BILLING_CLIENT_SECRET}
//	    clientAuthenticationMethod: client_secret_basic
//	    tokenUri: https://auth.example.com/oauth2/token
//	    scopes: ["invoices:read", "invoices:write"]
//
// Environment variable references in clientSecret are expanded when the file is loaded, so that
// secrets don't need to be committed along with the rest of the file.
package registration

import (
	"net/url"
	"os"
	"sort"

	"github.com/datawire/dlib/derror"
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/emissary-ingress/tokenclient/pkg/rfc6749client"
)

// ErrNotFound is wrapped by the error that Registry.Get returns for an unknown name.
var ErrNotFound = errors.New("no such registration")

type fileRegistration struct {
	ClientID                   string   `json:"clientId"`
	ClientSecret               string   `json:"clientSecret"`
	ClientAuthenticationMethod string   `json:"clientAuthenticationMethod,omitempty"`
	TokenURI                   string   `json:"tokenUri"`
	Scopes                     []string `json:"scopes,omitempty"`
}

type file struct {
	Registrations map[string]fileRegistration `json:"registrations"`
}

// A Registry is a read-only set of named ClientRegistrations.
type Registry struct {
	registrations map[string]*rfc6749client.ClientRegistration
}

// Load reads and parses the registrations file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading registrations")
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return reg, nil
}

// Parse parses a registrations file.  Every registration in the file is checked, and all of
// the problems are reported together.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, errors.Wrap(err, "parsing registrations")
	}
	if len(f.Registrations) == 0 {
		return nil, errors.New("no registrations defined")
	}

	ret := &Registry{
		registrations: make(map[string]*rfc6749client.ClientRegistration, len(f.Registrations)),
	}
	var errs derror.MultiError
	for _, name := range sortedKeys(f.Registrations) {
		reg, err := f.Registrations[name].toClientRegistration(name)
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "registration %q", name))
			continue
		}
		ret.registrations[name] = reg
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return ret, nil
}

func (fr fileRegistration) toClientRegistration(name string) (*rfc6749client.ClientRegistration, error) {
	if fr.TokenURI == "" {
		return nil, errors.New("tokenUri must be set")
	}
	tokenURI, err := url.Parse(fr.TokenURI)
	if err != nil {
		return nil, errors.Wrap(err, "tokenUri")
	}
	method := rfc6749client.ParseClientAuthenticationMethod(fr.ClientAuthenticationMethod)
	if !method.Supported() {
		return nil, errors.Errorf("clientAuthenticationMethod: unsupported value %q", fr.ClientAuthenticationMethod)
	}

	reg := &rfc6749client.ClientRegistration{
		RegistrationID:             name,
		ClientID:                   fr.ClientID,
		ClientSecret:               os.ExpandEnv(fr.ClientSecret),
		ClientAuthenticationMethod: method,
		TokenEndpoint:              tokenURI,
		Scope:                      rfc6749client.NewScope(fr.Scopes...),
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

// Get returns the registration with the given name.  The caller must not modify it.
func (r *Registry) Get(name string) (*rfc6749client.ClientRegistration, error) {
	reg, ok := r.registrations[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%q", name)
	}
	return reg, nil
}

// Names returns the names of all registrations, sorted.
func (r *Registry) Names() []string {
	return sortedKeys(r.registrations)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
