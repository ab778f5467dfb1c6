// Package syncpolicy reconciles the device cache with the remote store.
//
// Reads try the store first and fall back to the cache, then to a built-in
// default. Writes land in the cache first, unconditionally, and are then pushed
// to the store on a best-effort basis; a failed push is reported but never
// rolls the cache back. Concurrent writers are resolved by whichever remote
// write completes last.
package syncpolicy

import (
	"context"
	"fmt"

	"github.com/franciscosanchezn/pizzeria/internal/cache"
	"github.com/franciscosanchezn/pizzeria/internal/lifecycle"
	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// Store is the remote side of the policy
type Store interface {
	FetchSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error
	FetchMenu(ctx context.Context) ([]models.Pizza, error)
	ReplaceMenu(ctx context.Context, menu []models.Pizza) error
	FetchOrders(ctx context.Context) ([]models.Order, error)
	FetchOrder(ctx context.Context, id string) (models.Order, error)
	InsertOrder(ctx context.Context, order models.Order) (models.Order, error)
	PatchOrderStatus(ctx context.Context, id string, status models.OrderStatus, stamp *int64) (models.Order, error)
}

// Cache is the local side of the policy
type Cache interface {
	GetJSON(key string, v any) bool
	SetJSON(key string, v any) error
}

// Freshness tells where a read value came from
type Freshness int

const (
	FromRemote Freshness = iota
	FromCache
	FromDefault
)

func (f Freshness) String() string {
	switch f {
	case FromRemote:
		return "remote"
	case FromCache:
		return "cache"
	case FromDefault:
		return "default"
	}
	return fmt.Sprintf("Freshness(%d)", int(f))
}

// Result is the two-phase outcome of a write
type Result struct {
	// LocalOK is true once the cache holds the new value
	LocalOK bool
	// RemoteOK is true when the store accepted the push as well
	RemoteOK bool
	// Err is the failure of whichever phase failed
	Err error
}

// Synced reports whether both phases succeeded
func (r Result) Synced() bool {
	return r.LocalOK && r.RemoteOK
}

// Policy applies the read and write rules over a cache and a store
type Policy struct {
	cache    Cache
	store    Store
	settings models.Settings
	menu     []models.Pizza
}

// New creates a policy. defaults is the settings record served when neither
// the store nor the cache has one.
func New(c Cache, s Store, defaults models.Settings) *Policy {
	return &Policy{
		cache:    c,
		store:    s,
		settings: defaults,
		menu:     models.DefaultMenu(),
	}
}

// WithDefaultMenu overrides the menu served when nothing else is available
func (p *Policy) WithDefaultMenu(menu []models.Pizza) *Policy {
	p.menu = menu
	return p
}

func (p *Policy) cacheWrite(key string, v any) error {
	if err := p.cache.SetJSON(key, v); err != nil {
		log.WithError(err).WithField("key", key).Error("Local cache write failed")
		return err
	}
	return nil
}

// fallback logs a failed remote read
func fallback(what string, err error, freshness Freshness) {
	log.WithError(err).WithFields(logrus.Fields{
		"entity": what,
		"source": freshness.String(),
	}).Warn("Remote read failed, serving local copy")
}

// FetchSettings returns the settings record and where it came from
func (p *Policy) FetchSettings(ctx context.Context) (models.Settings, Freshness, error) {
	settings, err := p.store.FetchSettings(ctx)
	if err == nil {
		settings.ID = models.SettingsID
		p.cacheWrite(cache.KeySettings, settings)
		return settings, FromRemote, nil
	}
	if p.cache.GetJSON(cache.KeySettings, &settings) {
		fallback("settings", err, FromCache)
		return settings, FromCache, err
	}
	fallback("settings", err, FromDefault)
	return p.settings, FromDefault, err
}

// CachedSettings returns the cached settings, or the default
func (p *Policy) CachedSettings() models.Settings {
	var settings models.Settings
	if p.cache.GetJSON(cache.KeySettings, &settings) {
		return settings
	}
	return p.settings
}

// SaveSettings caches settings and pushes them to the store
func (p *Policy) SaveSettings(ctx context.Context, settings models.Settings) Result {
	settings.ID = models.SettingsID
	if err := p.cacheWrite(cache.KeySettings, settings); err != nil {
		return Result{Err: err}
	}
	if err := p.store.SaveSettings(ctx, settings); err != nil {
		log.WithError(err).Warn("Settings saved locally only")
		return Result{LocalOK: true, Err: err}
	}
	return Result{LocalOK: true, RemoteOK: true}
}

// FetchMenu returns the menu and where it came from
func (p *Policy) FetchMenu(ctx context.Context) ([]models.Pizza, Freshness, error) {
	menu, err := p.store.FetchMenu(ctx)
	if err == nil {
		if menu == nil {
			menu = []models.Pizza{}
		}
		p.cacheWrite(cache.KeyMenu, menu)
		return menu, FromRemote, nil
	}
	if p.cache.GetJSON(cache.KeyMenu, &menu) {
		fallback("menu", err, FromCache)
		return menu, FromCache, err
	}
	fallback("menu", err, FromDefault)
	return append([]models.Pizza(nil), p.menu...), FromDefault, err
}

// CachedMenu returns the cached menu, or the default
func (p *Policy) CachedMenu() []models.Pizza {
	var menu []models.Pizza
	if p.cache.GetJSON(cache.KeyMenu, &menu) {
		return menu
	}
	return append([]models.Pizza(nil), p.menu...)
}

// SaveMenu caches menu and replaces the remote menu with it. The remote
// replace is destructive: whatever is pushed becomes the whole remote menu.
func (p *Policy) SaveMenu(ctx context.Context, menu []models.Pizza) Result {
	if menu == nil {
		menu = []models.Pizza{}
	}
	if err := p.cacheWrite(cache.KeyMenu, menu); err != nil {
		return Result{Err: err}
	}
	if err := p.store.ReplaceMenu(ctx, menu); err != nil {
		log.WithError(err).WithField("items", len(menu)).Warn("Menu saved locally only")
		return Result{LocalOK: true, Err: err}
	}
	return Result{LocalOK: true, RemoteOK: true}
}

// FetchOrders returns the order history, most recent first
func (p *Policy) FetchOrders(ctx context.Context) ([]models.Order, Freshness, error) {
	orders, err := p.store.FetchOrders(ctx)
	if err == nil {
		if orders == nil {
			orders = []models.Order{}
		}
		p.cacheWrite(cache.KeyOrders, orders)
		return orders, FromRemote, nil
	}
	if p.cache.GetJSON(cache.KeyOrders, &orders) {
		fallback("orders", err, FromCache)
		return orders, FromCache, err
	}
	fallback("orders", err, FromDefault)
	return []models.Order{}, FromDefault, err
}

// CachedOrders returns the cached order history without touching the store
func (p *Policy) CachedOrders() []models.Order {
	var orders []models.Order
	if p.cache.GetJSON(cache.KeyOrders, &orders) {
		return orders
	}
	return []models.Order{}
}

// RefreshOrder re-reads one order from the store and merges it into the
// cached history. On failure the cached copy is returned.
func (p *Policy) RefreshOrder(ctx context.Context, id string) (models.Order, Freshness, error) {
	history := p.CachedOrders()
	remote, err := p.store.FetchOrder(ctx, id)
	if err == nil {
		if updated, ok := lifecycle.Replace(history, remote); ok {
			p.cacheWrite(cache.KeyOrders, updated)
		} else {
			p.cacheWrite(cache.KeyOrders, lifecycle.Prepend(history, remote))
		}
		return remote, FromRemote, nil
	}
	if order, _, ok := lifecycle.Find(history, id); ok {
		fallback("order", err, FromCache)
		return order, FromCache, err
	}
	return models.Order{}, FromDefault, fmt.Errorf("%w: %s: %v", lifecycle.ErrOrderNotFound, id, err)
}

// CreateOrder prepends order to the cached history and inserts it remotely
func (p *Policy) CreateOrder(ctx context.Context, order models.Order) (models.Order, Result) {
	history := lifecycle.Prepend(p.CachedOrders(), order)
	if err := p.cacheWrite(cache.KeyOrders, history); err != nil {
		return order, Result{Err: err}
	}
	stored, err := p.store.InsertOrder(ctx, order)
	if err != nil {
		log.WithError(err).WithField("order_id", order.ID).Warn("Order saved locally only")
		return order, Result{LocalOK: true, Err: err}
	}
	if stored.RowID != 0 {
		order.RowID = stored.RowID
		if updated, ok := lifecycle.Replace(p.CachedOrders(), order); ok {
			p.cacheWrite(cache.KeyOrders, updated)
		}
	}
	return order, Result{LocalOK: true, RemoteOK: true}
}

// UpdateOrderStatus stores an already-transitioned order in the cached history
// and pushes its status to the store. When the push succeeds the store's copy
// replaces the local one and is returned, so the device never keeps a stamp
// the store did not record.
func (p *Policy) UpdateOrderStatus(ctx context.Context, order models.Order) (models.Order, Result) {
	history := p.CachedOrders()
	updated, ok := lifecycle.Replace(history, order)
	if !ok {
		updated = lifecycle.Prepend(history, order)
	}
	if err := p.cacheWrite(cache.KeyOrders, updated); err != nil {
		return order, Result{Err: err}
	}
	stored, err := p.store.PatchOrderStatus(ctx, order.ID, order.Status, order.PreparingStartTime)
	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"order_id": order.ID,
			"status":   order.Status,
		}).Warn("Order status saved locally only")
		return order, Result{LocalOK: true, Err: err}
	}
	if stored.ID != order.ID {
		return order, Result{LocalOK: true, RemoteOK: true}
	}
	if replaced, ok := lifecycle.Replace(updated, stored); ok {
		p.cacheWrite(cache.KeyOrders, replaced)
	}
	return stored, Result{LocalOK: true, RemoteOK: true}
}
