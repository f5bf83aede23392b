package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emissary-ingress/tokenclient/testutil"
)

const tokenJSON = `{"access_token":"%s","token_type":"bearer","expires_in":60}`

func writeRegistrations(t *testing.T, server *testutil.TokenServer) string {
	t.Helper()
	content := fmt.Sprintf(`
registrations:
  alpha:
    clientId: alpha-client
    clientSecret: alpha-secret
    tokenUri: %[1]s
    scopes: ["read"]
  beta:
    clientId: beta-client
    clientSecret: beta-secret
    clientAuthenticationMethod: client_secret_post
    tokenUri: %[1]s
`, server.TokenURL())
	path := filepath.Join(t.TempDir(), "registrations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newCommand("test", &stdout, &stderr, time.Millisecond)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(dlog.NewTestContext(t, false))
	return stdout.String(), stderr.String(), err
}

func TestJSONOutputForEveryRegistration(t *testing.T) {
	server := testutil.NewTokenServer()
	defer server.Close()
	server.EnqueueJSON(fmt.Sprintf(tokenJSON, "token-1"))
	server.EnqueueJSON(fmt.Sprintf(tokenJSON, "token-2"))

	stdout, _, err := execute(t, "--registrations", writeRegistrations(t, server), "--parallelism", "1")
	require.NoError(t, err)

	var tokens []jsonToken
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		var tok jsonToken
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &tok))
		tokens = append(tokens, tok)
	}
	require.Len(t, tokens, 2)
	assert.Equal(t, "alpha", tokens[0].Registration)
	assert.Equal(t, "read", tokens[0].Scope)
	assert.Equal(t, "beta", tokens[1].Registration)
	assert.Equal(t, "", tokens[1].Scope)
	for _, tok := range tokens {
		assert.Equal(t, "bearer", tok.TokenType)
		assert.Equal(t, int64(60), tok.ExpiresIn)
		assert.NotEmpty(t, tok.ExpiresAt)
	}
	assert.ElementsMatch(t, []string{"token-1", "token-2"},
		[]string{tokens[0].AccessToken, tokens[1].AccessToken})

	var bodies []string
	for {
		req, ok := server.TakeRequest()
		if !ok {
			break
		}
		bodies = append(bodies, req.Body)
	}
	assert.ElementsMatch(t, []string{
		"grant_type=client_credentials&scope=read",
		"grant_type=client_credentials&client_id=beta-client&client_secret=beta-secret",
	}, bodies)
}

func TestHeaderOutputFromEnvironment(t *testing.T) {
	server := testutil.NewTokenServer()
	defer server.Close()
	server.EnqueueJSON(fmt.Sprintf(tokenJSON, "token-1"))

	t.Setenv("CCTOKEN_OUTPUT", "header")
	t.Setenv("CCTOKEN_REGISTRATIONS", writeRegistrations(t, server))

	stdout, _, err := execute(t, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "Authorization: Bearer token-1\n", stdout)
	assert.Equal(t, 1, server.RequestCount())
}

func TestAuthorizationErrorIsNotRetried(t *testing.T) {
	server := testutil.NewTokenServer()
	defer server.Close()
	server.Enqueue(testutil.MockResponse{
		StatusCode: http.StatusUnauthorized,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       `{"error":"invalid_client"}`,
	})

	stdout, stderr, err := execute(t, "--registrations", writeRegistrations(t, server), "--retries", "3", "alpha")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `registration "alpha"`)
	assert.Contains(t, err.Error(), "invalid_client")
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "invalid_client")
	assert.Equal(t, 1, server.RequestCount())
}

func TestTransportErrorIsRetried(t *testing.T) {
	server := testutil.NewTokenServer()
	path := writeRegistrations(t, server)
	server.Close()

	_, stderr, err := execute(t, "--registrations", path, "--retries", "2", "alpha")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token request transport failure")
	assert.Equal(t, 2, strings.Count(stderr, "retrying in"))
}

func TestPartialFailure(t *testing.T) {
	server := testutil.NewTokenServer()
	defer server.Close()
	server.EnqueueJSON(fmt.Sprintf(tokenJSON, "token-1"))

	stdout, _, err := execute(t, "--registrations", writeRegistrations(t, server), "--output", "header", "alpha", "gamma")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such registration")
	assert.Equal(t, "Authorization: Bearer token-1\n", stdout)
}

func TestInvalidFlags(t *testing.T) {
	testcases := map[string][]string{
		"output":      {"--output", "yaml"},
		"parallelism": {"--parallelism", "0"},
		"retries":     {"--retries", "-1"},
		"log-level":   {"--log-level", "loud"},
	}
	for name, args := range testcases {
		args := args
		t.Run(name, func(t *testing.T) {
			_, _, err := execute(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "--"+name)
		})
	}
}

func TestMissingRegistrationsFile(t *testing.T) {
	_, _, err := execute(t, "--registrations", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading registrations")
}
