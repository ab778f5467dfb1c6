package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/franciscosanchezn/pizzeria/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource supplies the bearer token for authenticated calls
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a token obtained elsewhere, such as an admin login
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// ClientCredentials fetches device tokens from the store's OAuth2 token
// endpoint and reuses them until shortly before they expire
type ClientCredentials struct {
	conf   clientcredentials.Config
	client *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

// NewClientCredentials builds a token source for the OAuth2 client id/secret
func NewClientCredentials(baseURL, clientID, clientSecret string, client *http.Client) *ClientCredentials {
	if client == nil {
		client = http.DefaultClient
	}
	return &ClientCredentials{
		conf: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     strings.TrimRight(baseURL, "/") + "/oauth/token",
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		client: client,
	}
}

func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	tok, err := oauth2.ReuseTokenSource(c.token, c.conf.TokenSource(ctx)).Token()
	if err != nil {
		return "", tokenError(err)
	}
	c.token = tok
	return tok.AccessToken, nil
}

// tokenError maps a failed token request onto the gateway error kinds. The
// OAuth2 error code wins over the HTTP status.
func tokenError(err error) *Error {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return &Error{Op: "token", Kind: models.KindNetwork, Err: err}
		}
		return &Error{Op: "token", Kind: models.KindServer, Err: err}
	}
	status := 0
	if rerr.Response != nil {
		status = rerr.Response.StatusCode
	}
	kind := models.KindForCode(rerr.ErrorCode)
	if kind == "" {
		kind = kindForStatus(status)
	}
	return &Error{Op: "token", Kind: kind, Status: status, Err: err}
}
