package rfc6749client

import (
	"context"

	"golang.org/x/oauth2"
)

type tokenSource struct {
	ctx     context.Context
	client  *Client
	request ClientCredentialsGrantRequest
}

// TokenSource returns an oauth2.TokenSource that performs one exchange per call to Token().  It
// does not cache; wrap it in oauth2.ReuseTokenSource for that.
func TokenSource(ctx context.Context, client *Client, request ClientCredentialsGrantRequest) oauth2.TokenSource {
	return tokenSource{ctx: ctx, client: client, request: request}
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	res, err := ts.client.Exchange(ts.ctx, ts.request)
	if err != nil {
		return nil, err
	}
	return res.OAuth2Token(), nil
}
