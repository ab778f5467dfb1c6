// Package remote is the gateway to the shared store API. Every call is
// independently fallible; callers decide what to do with a failure.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

const (
	publicPrefix = "/api/v1/public"
	adminPrefix  = "/api/v1/protected/admin"
	authPrefix   = "/api/v1/auth"
)

// Gateway talks to the store API over HTTP
type Gateway struct {
	baseURL string
	client  *http.Client

	mu       sync.RWMutex
	tokens   TokenSource
	fallback TokenSource
}

// Option configures a Gateway
type Option func(*Gateway)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.client = client
	}
}

// WithTimeout sets the per-request timeout of the default client
func WithTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.client.Timeout = timeout
	}
}

// WithTokenSource authenticates admin calls with ts until a login replaces it
func WithTokenSource(ts TokenSource) Option {
	return func(g *Gateway) {
		g.tokens = ts
		g.fallback = ts
	}
}

// New creates a gateway for the store API rooted at baseURL
func New(baseURL string, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BaseURL returns the store API root
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// Authenticated reports whether admin calls will carry a token
func (g *Gateway) Authenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tokens != nil
}

func (g *Gateway) tokenSource() TokenSource {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tokens
}

func (g *Gateway) do(ctx context.Context, op, method, path string, body, out any, auth bool) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Kind: models.KindValidation, Err: err}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Kind: models.KindNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		ts := g.tokenSource()
		if ts == nil {
			return &Error{Op: op, Kind: models.KindUnauthorized, Err: fmt.Errorf("no credentials configured")}
		}
		token, err := ts.Token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log.WithFields(logrus.Fields{"op": op, "method": method, "path": path}).Debug("Calling store API")
	resp, err := g.client.Do(req)
	if err != nil {
		return &Error{Op: op, Kind: models.KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errorFromResponse(op, resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Kind: models.KindServer, Status: resp.StatusCode, Err: fmt.Errorf("malformed payload: %w", err)}
	}
	return nil
}

// FetchSettings reads the settings singleton. Authenticated gateways read the
// admin view, which includes integration credentials.
func (g *Gateway) FetchSettings(ctx context.Context) (models.Settings, error) {
	var settings models.Settings
	path, auth := publicPrefix+"/settings", false
	if g.Authenticated() {
		path, auth = adminPrefix+"/settings", true
	}
	if err := g.do(ctx, "fetch settings", http.MethodGet, path, nil, &settings, auth); err != nil {
		return models.Settings{}, err
	}
	return settings, nil
}

// SaveSettings upserts the settings singleton
func (g *Gateway) SaveSettings(ctx context.Context, settings models.Settings) error {
	return g.do(ctx, "save settings", http.MethodPost, adminPrefix+"/settings", settings, nil, true)
}

// FetchMenu returns the full menu in display order
func (g *Gateway) FetchMenu(ctx context.Context) ([]models.Pizza, error) {
	var menu []models.Pizza
	if err := g.do(ctx, "fetch menu", http.MethodGet, publicPrefix+"/pizzas", nil, &menu, false); err != nil {
		return nil, err
	}
	if menu == nil {
		menu = []models.Pizza{}
	}
	return menu, nil
}

// ReplaceMenu replaces the remote menu with exactly menu; an empty list empties it
func (g *Gateway) ReplaceMenu(ctx context.Context, menu []models.Pizza) error {
	if menu == nil {
		menu = []models.Pizza{}
	}
	return g.do(ctx, "replace menu", http.MethodPost, adminPrefix+"/pizzas", menu, nil, true)
}

// FetchOrders returns every order, most recent first
func (g *Gateway) FetchOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := g.do(ctx, "fetch orders", http.MethodGet, adminPrefix+"/orders", nil, &orders, true); err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// FetchOrder returns a single order by id
func (g *Gateway) FetchOrder(ctx context.Context, id string) (models.Order, error) {
	var order models.Order
	if err := g.do(ctx, "fetch order", http.MethodGet, publicPrefix+"/orders/"+url.PathEscape(id), nil, &order, false); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

// InsertOrder adds one order and returns it with its storage id
func (g *Gateway) InsertOrder(ctx context.Context, order models.Order) (models.Order, error) {
	var stored models.Order
	if err := g.do(ctx, "insert order", http.MethodPost, publicPrefix+"/orders", order, &stored, false); err != nil {
		return models.Order{}, err
	}
	return stored, nil
}

// PatchOrderStatus updates the status of one order and returns the order as
// the store now holds it. stamp carries the preparation start recorded
// locally, if any; the store keeps its own once set.
func (g *Gateway) PatchOrderStatus(ctx context.Context, id string, status models.OrderStatus, stamp *int64) (models.Order, error) {
	body := models.StatusUpdate{ID: id, Status: status, PreparingStartTime: stamp}
	var stored models.Order
	if err := g.do(ctx, "update order status", http.MethodPatch, adminPrefix+"/orders", body, &stored, true); err != nil {
		return models.Order{}, err
	}
	return stored, nil
}

type loginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        models.User `json:"user"`
}

// Login authenticates a user against the store. On success later admin calls
// use the user's token.
func (g *Gateway) Login(ctx context.Context, email, password string) (models.User, error) {
	body := map[string]string{"email": email, "password": password}
	var resp loginResponse
	if err := g.do(ctx, "login", http.MethodPost, authPrefix+"/login", body, &resp, false); err != nil {
		return models.User{}, err
	}
	g.mu.Lock()
	g.tokens = StaticToken(resp.AccessToken)
	g.mu.Unlock()
	return resp.User, nil
}

// Register creates a customer account
func (g *Gateway) Register(ctx context.Context, email, password, name string) error {
	body := map[string]string{"email": email, "password": password, "name": name}
	return g.do(ctx, "register", http.MethodPost, authPrefix+"/register", body, nil, false)
}

// Logout drops the user token and returns to the configured device credentials
func (g *Gateway) Logout() {
	g.mu.Lock()
	g.tokens = g.fallback
	g.mu.Unlock()
}
