package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrNoCredentials is returned by New when Conf carries no credential.
var ErrNoCredentials = errors.New("auth: no credentials configured")

// Authorizer decorates outgoing requests with credentials.
type Authorizer interface {
	SetAuthHeader(ctx context.Context, r *http.Request) error
	// Invalidate drops any cached token so the next request fetches a new one.
	Invalidate()
}

// New returns a StaticKey when an API key is set and a ClientCred otherwise.
func New(conf Conf) (Authorizer, error) {
	switch {
	case conf.APIKey != "":
		return StaticKey(conf.APIKey), nil
	case conf.Configured():
		return NewClientCred(conf), nil
	}
	return nil, ErrNoCredentials
}

// StaticKey sends a fixed bearer token.
type StaticKey string

func (k StaticKey) SetAuthHeader(_ context.Context, r *http.Request) error {
	r.Header.Set("Authorization", "Bearer "+string(k))
	return nil
}

func (StaticKey) Invalidate() {}

// ClientCred fetches and caches OAuth2 client-credentials tokens.
type ClientCred struct {
	conf clientcredentials.Config

	mu    sync.Mutex
	token *oauth2.Token
}

func NewClientCred(conf Conf) *ClientCred {
	return &ClientCred{
		conf: conf.toOauth2Config(),
	}
}

// GetToken returns the cached access token while it is valid and requests a
// new one otherwise.
func (c *ClientCred) GetToken(ctx context.Context) (string, error) {
	tok, err := c.validToken(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (c *ClientCred) validToken(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != nil && c.token.Valid() {
		return c.token, nil
	}
	tok, err := c.conf.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	c.token = tok
	return tok, nil
}

// ForceRefresh discards the cached token and requests a new one.
func (c *ClientCred) ForceRefresh(ctx context.Context) (string, error) {
	c.Invalidate()
	return c.GetToken(ctx)
}

// Invalidate drops the cached token.
func (c *ClientCred) Invalidate() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}

func (c *ClientCred) SetAuthHeader(ctx context.Context, r *http.Request) error {
	tok, err := c.validToken(ctx)
	if err != nil {
		return err
	}
	tok.SetAuthHeader(r)
	return nil
}
