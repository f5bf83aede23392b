package registration_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emissary-ingress/tokenclient/pkg/registration"
	"github.com/emissary-ingress/tokenclient/pkg/rfc6749client"
)

const validFile = `
registrations:
  billing:
    clientId: billing-service
    clientSecret: ${TOKENCLIENT_TEST_SECRET}
    tokenUri: https://auth.example.com/oauth2/token
    scopes: ["invoices:write", "invoices:read"]
  reports:
    clientId: reports
    clientSecret: literal
    clientAuthenticationMethod: BodyPassword
    tokenUri: https://auth.example.com/oauth2/token
`

func TestParse(t *testing.T) {
	t.Setenv("TOKENCLIENT_TEST_SECRET", "s3cret")

	reg, err := registration.Parse([]byte(validFile))
	require.NoError(t, err)
	assert.Equal(t, []string{"billing", "reports"}, reg.Names())

	billing, err := reg.Get("billing")
	require.NoError(t, err)
	assert.Equal(t, "billing", billing.RegistrationID)
	assert.Equal(t, "billing-service", billing.ClientID)
	assert.Equal(t, "s3cret", billing.ClientSecret)
	assert.Equal(t, rfc6749client.ClientSecretBasic, billing.ClientAuthenticationMethod)
	assert.Equal(t, "https://auth.example.com/oauth2/token", billing.TokenEndpoint.String())
	assert.Equal(t, "invoices:read invoices:write", billing.Scope.String())

	reports, err := reg.Get("reports")
	require.NoError(t, err)
	assert.Equal(t, rfc6749client.ClientSecretPost, reports.ClientAuthenticationMethod)
	assert.Equal(t, "literal", reports.ClientSecret)
	assert.Equal(t, rfc6749client.NewScope(), reports.Scope)
}

func TestGetUnknown(t *testing.T) {
	reg, err := registration.Parse([]byte(validFile))
	require.NoError(t, err)

	_, err = reg.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, registration.ErrNotFound))
	assert.Contains(t, err.Error(), `"nope"`)
}

func TestParseErrors(t *testing.T) {
	testcases := map[string]struct {
		Input  string
		ErrStr string
	}{
		"empty": {
			Input:  ``,
			ErrStr: "no registrations defined",
		},
		"unknown-field": {
			Input:  "registrations:\n  a:\n    clientId: x\n    tokenUri: https://a/t\n    bogus: 1\n",
			ErrStr: "bogus",
		},
		"missing-token-uri": {
			Input:  "registrations:\n  a:\n    clientId: x\n",
			ErrStr: `registration "a": tokenUri must be set`,
		},
		"relative-token-uri": {
			Input:  "registrations:\n  a:\n    clientId: x\n    tokenUri: /token\n",
			ErrStr: "absolute",
		},
		"missing-client-id": {
			Input:  "registrations:\n  a:\n    tokenUri: https://a/t\n",
			ErrStr: "client_id",
		},
		"unsupported-method": {
			Input:  "registrations:\n  a:\n    clientId: x\n    tokenUri: https://a/t\n    clientAuthenticationMethod: private_key_jwt\n",
			ErrStr: `unsupported value "private_key_jwt"`,
		},
	}
	for name, tc := range testcases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			_, err := registration.Parse([]byte(tc.Input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.ErrStr)
		})
	}
}

func TestParseReportsEveryBadRegistration(t *testing.T) {
	_, err := registration.Parse([]byte("registrations:\n  a:\n    clientId: x\n  b:\n    clientId: y\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors:")
	assert.Contains(t, err.Error(), `registration "a"`)
	assert.Contains(t, err.Error(), `registration "b"`)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registrations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validFile), 0o600))

	reg, err := registration.Load(path)
	require.NoError(t, err)
	assert.Len(t, reg.Names(), 2)

	_, err = registration.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
