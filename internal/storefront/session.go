// Package storefront is the device-side entry point of the core: it ties the
// cart, the sync policy, the order lifecycle, cooking progress and order
// notifications together for one running session.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/cache"
	"github.com/franciscosanchezn/pizzeria/internal/lifecycle"
	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/franciscosanchezn/pizzeria/internal/notify"
	"github.com/franciscosanchezn/pizzeria/internal/progress"
	"github.com/franciscosanchezn/pizzeria/internal/remote"
	"github.com/franciscosanchezn/pizzeria/internal/syncpolicy"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

var (
	ErrNotAdmin           = errors.New("administrator access required")
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrUserExists         = errors.New("user already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPizzaNotFound      = errors.New("menu item not found")
	ErrDuplicatePizza     = errors.New("menu item already exists")
)

// Cache namespaces kept apart from the core keys
const (
	sessionNamespace = "session:"
	usersNamespace   = "users:"
	sessionUserKey   = "user"
)

var validate = validator.New()

// Gateway is what the session needs from the store: the sync policy's store
// plus the account calls
type Gateway interface {
	syncpolicy.Store
	Login(ctx context.Context, email, password string) (models.User, error)
	Register(ctx context.Context, email, password, name string) error
	Logout()
}

// registeredUser is the device-local account record
type registeredUser struct {
	User         models.User `json:"user"`
	PasswordHash string      `json:"passwordHash"`
}

// Session is one running storefront. It is safe for concurrent use.
type Session struct {
	policy   *syncpolicy.Policy
	gateway  Gateway
	sessions *cache.Cache
	users    *cache.Cache
	cart     *Cart

	progress     progress.Config
	integrations models.Integrations
	botOptions   []notify.BotOption
	now          func() time.Time

	mu         sync.RWMutex
	settings   models.Settings
	user       *models.User
	dispatcher *notify.Dispatcher
	// draining tracks dispatchers replaced while notifications were in flight
	draining sync.WaitGroup
}

// Option configures a Session
type Option func(*Session)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithProgress sets the cooking progress stages and poll interval
func WithProgress(cfg progress.Config) Option {
	return func(s *Session) {
		s.progress = cfg
	}
}

// WithIntegrations supplies device-local credentials used when the settings
// record does not carry them
func WithIntegrations(integrations models.Integrations) Option {
	return func(s *Session) {
		s.integrations = integrations
	}
}

// WithBotOptions configures the Telegram client used for order notifications
func WithBotOptions(opts ...notify.BotOption) Option {
	return func(s *Session) {
		s.botOptions = opts
	}
}

// NewSession creates a session over the device cache and the store gateway.
// Settings start from the cached copy; call ReloadSettings to refresh them.
func NewSession(c *cache.Cache, gateway Gateway, opts ...Option) *Session {
	s := &Session{
		policy:   syncpolicy.New(c, gateway, models.DefaultSettings()),
		gateway:  gateway,
		sessions: c.Namespace(sessionNamespace),
		users:    c.Namespace(usersNamespace),
		cart:     NewCart(),
		progress: progress.DefaultConfig(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.applySettings(s.policy.CachedSettings())

	var user models.User
	if s.sessions.GetJSON(sessionUserKey, &user) {
		s.user = &user
	}
	return s
}

// Close waits for pending notifications, including those sent through
// dispatchers replaced by a settings change
func (s *Session) Close() {
	s.mu.RLock()
	d := s.dispatcher
	s.mu.RUnlock()
	d.Wait()
	s.draining.Wait()
}

func (s *Session) Cart() *Cart {
	return s.cart
}

// Policy exposes the sync policy for callers that need raw cache access
func (s *Session) Policy() *syncpolicy.Policy {
	return s.policy
}

func (s *Session) applySettings(settings models.Settings) {
	settings = settings.WithIntegrationDefaults(s.integrations)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	if old := s.dispatcher; old != nil {
		s.draining.Add(1)
		go func() {
			defer s.draining.Done()
			old.Wait()
		}()
	}
	s.dispatcher = notify.FromSettings(settings, s.botOptions...)
}

// ReloadSettings refreshes the settings from the store (or cache, or default)
func (s *Session) ReloadSettings(ctx context.Context) (models.Settings, syncpolicy.Freshness, error) {
	settings, freshness, err := s.policy.FetchSettings(ctx)
	s.applySettings(settings)
	return s.Settings(), freshness, err
}

// Settings returns the settings currently in effect
func (s *Session) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SaveSettings stores new settings. They take effect locally even when the
// store cannot be reached.
func (s *Session) SaveSettings(ctx context.Context, settings models.Settings) (syncpolicy.Result, error) {
	if err := s.requireAdmin(); err != nil {
		return syncpolicy.Result{}, err
	}
	result := s.policy.SaveSettings(ctx, settings)
	if result.LocalOK {
		s.applySettings(s.policy.CachedSettings())
	}
	return result, nil
}

// User returns a copy of the logged-in user, or nil
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	u.Favorites = append([]string(nil), s.user.Favorites...)
	return &u
}

// IsAdmin reports whether the logged-in user is an administrator
func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.IsAdmin()
}

func (s *Session) requireAdmin() error {
	if !s.IsAdmin() {
		return ErrNotAdmin
	}
	return nil
}

// Menu returns the menu and where it came from
func (s *Session) Menu(ctx context.Context) ([]models.Pizza, syncpolicy.Freshness, error) {
	return s.policy.FetchMenu(ctx)
}

func validatePizza(p *models.Pizza) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", lifecycle.ErrValidation)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", lifecycle.ErrValidation)
	}
	if p.Category == "" {
		p.Category = models.CategoryPizza
	}
	if !p.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", lifecycle.ErrValidation, p.Category)
	}
	return nil
}

func findPizza(menu []models.Pizza, id string) int {
	for i, p := range menu {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// AddPizza appends an item to the menu and pushes the whole menu
func (s *Session) AddPizza(ctx context.Context, pizza models.Pizza) (models.Pizza, syncpolicy.Result, error) {
	if err := s.requireAdmin(); err != nil {
		return pizza, syncpolicy.Result{}, err
	}
	if err := validatePizza(&pizza); err != nil {
		return pizza, syncpolicy.Result{}, err
	}
	if pizza.ID == "" {
		pizza.ID = uuid.NewString()
	}
	menu := s.policy.CachedMenu()
	if findPizza(menu, pizza.ID) >= 0 {
		return pizza, syncpolicy.Result{}, fmt.Errorf("%w: %s", ErrDuplicatePizza, pizza.ID)
	}
	menu = append(menu, pizza)
	return pizza, s.policy.SaveMenu(ctx, menu), nil
}

// UpdatePizza replaces the menu item with the same id and pushes the whole menu
func (s *Session) UpdatePizza(ctx context.Context, pizza models.Pizza) (syncpolicy.Result, error) {
	if err := s.requireAdmin(); err != nil {
		return syncpolicy.Result{}, err
	}
	if err := validatePizza(&pizza); err != nil {
		return syncpolicy.Result{}, err
	}
	menu := s.policy.CachedMenu()
	idx := findPizza(menu, pizza.ID)
	if idx < 0 {
		return syncpolicy.Result{}, fmt.Errorf("%w: %s", ErrPizzaNotFound, pizza.ID)
	}
	menu[idx] = pizza
	return s.policy.SaveMenu(ctx, menu), nil
}

// DeletePizza removes a menu item permanently and pushes the whole menu
func (s *Session) DeletePizza(ctx context.Context, id string) (syncpolicy.Result, error) {
	if err := s.requireAdmin(); err != nil {
		return syncpolicy.Result{}, err
	}
	menu := s.policy.CachedMenu()
	idx := findPizza(menu, id)
	if idx < 0 {
		return syncpolicy.Result{}, fmt.Errorf("%w: %s", ErrPizzaNotFound, id)
	}
	menu = append(menu[:idx], menu[idx+1:]...)
	return s.policy.SaveMenu(ctx, menu), nil
}

// Checkout turns the cart into a pending order, stores it and announces it.
// Validation failures leave the cart untouched and persist nothing.
func (s *Session) Checkout(ctx context.Context, req lifecycle.CheckoutRequest) (models.Order, syncpolicy.Result, error) {
	order, err := lifecycle.Checkout(s.cart.Items(), req, s.now())
	if err != nil {
		return models.Order{}, syncpolicy.Result{}, err
	}
	order, result := s.policy.CreateOrder(ctx, order)
	if !result.LocalOK {
		return order, result, result.Err
	}

	// a settings change must not retire the dispatcher before the send is registered
	s.mu.RLock()
	s.dispatcher.Fire(order)
	s.mu.RUnlock()

	s.cart.Clear()
	log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"total":    order.Total,
		"synced":   result.Synced(),
	}).Info("Order placed")
	return order, result, nil
}

// SetOrderStatus moves an order to a new status, as the admin status dropdown
// does. Lifecycle errors are returned before anything is stored.
func (s *Session) SetOrderStatus(ctx context.Context, id string, to models.OrderStatus) (models.Order, syncpolicy.Result, error) {
	if err := s.requireAdmin(); err != nil {
		return models.Order{}, syncpolicy.Result{}, err
	}
	if err := lifecycle.ValidateStatus(to); err != nil {
		return models.Order{}, syncpolicy.Result{}, err
	}

	// another device may have moved the order since it was cached here
	s.policy.RefreshOrder(ctx, id)
	history := s.policy.CachedOrders()

	_, updated, err := lifecycle.ApplyStatus(history, id, to, s.now())
	if err != nil {
		return updated, syncpolicy.Result{}, err
	}
	updated, result := s.policy.UpdateOrderStatus(ctx, updated)
	log.WithFields(logrus.Fields{
		"order_id": id,
		"status":   to,
		"synced":   result.Synced(),
	}).Info("Order status changed")
	return updated, result, nil
}

// Orders returns the order history, most recent first. Administrators read the
// store; everybody else sees the orders placed from this device.
func (s *Session) Orders(ctx context.Context) ([]models.Order, syncpolicy.Freshness, error) {
	if s.IsAdmin() {
		return s.policy.FetchOrders(ctx)
	}
	return s.policy.CachedOrders(), syncpolicy.FromCache, nil
}

// TrackOrder returns the latest known copy of one order
func (s *Session) TrackOrder(ctx context.Context, id string) (models.Order, syncpolicy.Freshness, error) {
	return s.policy.RefreshOrder(ctx, id)
}

// CookingProgress derives the cooking stage of an order right now
func (s *Session) CookingProgress(ctx context.Context, id string) (progress.Snapshot, error) {
	order, freshness, err := s.policy.RefreshOrder(ctx, id)
	if freshness == syncpolicy.FromDefault {
		return progress.Snapshot{}, err
	}
	return s.progress.ForOrder(order, s.now()), nil
}

// WatchOrder emits cooking progress for an order on every poll until ctx is
// cancelled or the order can no longer be found
func (s *Session) WatchOrder(ctx context.Context, id string, emit func(progress.Snapshot)) error {
	source := func() (models.Order, bool) {
		order, freshness, _ := s.policy.RefreshOrder(ctx, id)
		return order, freshness != syncpolicy.FromDefault
	}
	return s.progress.Watch(ctx, s.now, source, emit)
}

// Deep link query parameters
const (
	linkAction    = "action"
	linkOrder     = "order"
	linkStatus    = "status"
	linkSetStatus = "set_status"
)

// HandleDeepLink applies a status-change link such as
// ?action=set_status&order=PZ-1&status=ready. It returns the link with those
// parameters removed and whether the link was a status link at all. Links
// opened without administrator access are returned unchanged.
func (s *Session) HandleDeepLink(ctx context.Context, rawURL string) (string, bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, false, fmt.Errorf("%w: %v", lifecycle.ErrValidation, err)
	}
	q := u.Query()
	if q.Get(linkAction) != linkSetStatus {
		return rawURL, false, nil
	}
	if err := s.requireAdmin(); err != nil {
		return rawURL, true, err
	}

	id := q.Get(linkOrder)
	rawStatus := q.Get(linkStatus)
	q.Del(linkAction)
	q.Del(linkOrder)
	q.Del(linkStatus)
	u.RawQuery = q.Encode()
	cleaned := u.String()

	if id == "" {
		return cleaned, true, fmt.Errorf("%w: link has no order id", lifecycle.ErrValidation)
	}
	status, err := lifecycle.ParseStatus(rawStatus)
	if err != nil {
		return cleaned, true, err
	}
	_, result, err := s.SetOrderStatus(ctx, id, status)
	if err != nil {
		return cleaned, true, err
	}
	if !result.RemoteOK {
		log.WithError(result.Err).WithField("order_id", id).Warn("Deep link status saved locally only")
	}
	return cleaned, true, nil
}

func (s *Session) setUser(user *models.User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	if user == nil {
		s.sessions.Delete(sessionUserKey)
		return
	}
	if err := s.sessions.SetJSON(sessionUserKey, user); err != nil {
		log.WithError(err).Warn("Could not persist session user")
	}
}

func (s *Session) registered(email string) (registeredUser, bool) {
	var ru registeredUser
	ok := s.users.GetJSON(models.NormalizeEmail(email), &ru)
	return ru, ok
}

func (s *Session) remember(user models.User, password string) {
	u := models.User{Password: password}
	if err := u.HashPassword(); err != nil {
		log.WithError(err).Warn("Could not hash password for local registry")
		return
	}
	ru := registeredUser{User: user, PasswordHash: u.PasswordHash}
	if err := s.users.SetJSON(models.NormalizeEmail(user.Email), ru); err != nil {
		log.WithError(err).Warn("Could not store local user")
	}
}

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

// Login authenticates against the store. When the store cannot be reached the
// device-local registry is consulted instead.
func (s *Session) Login(ctx context.Context, email, password string) (models.User, error) {
	email = models.NormalizeEmail(email)
	user, err := s.gateway.Login(ctx, email, password)
	if err == nil {
		if user.Email == "" {
			user.Email = email
		}
		s.remember(user, password)
		s.setUser(&user)
		return user, nil
	}
	if remote.KindOf(err) != models.KindNetwork {
		if remote.KindOf(err) == models.KindUnauthorized {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	ru, ok := s.registered(email)
	if !ok {
		return models.User{}, err
	}
	check := models.User{PasswordHash: ru.PasswordHash}
	if !check.CheckPassword(password) {
		return models.User{}, ErrInvalidCredentials
	}
	log.WithField("email", email).Warn("Store unreachable, logged in from local registry")
	user = ru.User
	s.setUser(&user)
	return user, nil
}

// Register creates a customer account in the store and on this device, and
// logs it in
func (s *Session) Register(ctx context.Context, email, password, name string) (models.User, error) {
	email = models.NormalizeEmail(email)
	if err := validate.Struct(credentials{Email: email, Password: password}); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", lifecycle.ErrValidation, err)
	}
	if _, ok := s.registered(email); ok {
		return models.User{}, ErrUserExists
	}

	if err := s.gateway.Register(ctx, email, password, name); err != nil {
		if remote.KindOf(err) != models.KindNetwork {
			return models.User{}, err
		}
		log.WithError(err).WithField("email", email).Warn("Store unreachable, account registered on this device only")
	}

	user := models.User{Email: email, Name: strings.TrimSpace(name), Role: models.RoleUser, Favorites: []string{}}
	s.remember(user, password)
	s.setUser(&user)
	return user, nil
}

// Logout ends the user session and returns the gateway to device credentials
func (s *Session) Logout() {
	s.gateway.Logout()
	s.setUser(nil)
}

// ToggleFavorite adds or removes a menu item from the user's favorites and
// reports whether it is now a favorite
func (s *Session) ToggleFavorite(pizzaID string) (bool, error) {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return false, ErrNotLoggedIn
	}
	user := *s.user
	user.Favorites = append([]string(nil), s.user.Favorites...)
	on := user.ToggleFavorite(pizzaID)
	s.mu.Unlock()

	s.setUser(&user)
	if ru, ok := s.registered(user.Email); ok {
		ru.User.Favorites = user.Favorites
		if err := s.users.SetJSON(models.NormalizeEmail(user.Email), ru); err != nil {
			log.WithError(err).Warn("Could not update local user")
		}
	}
	return on, nil
}
