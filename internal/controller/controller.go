// Package controller drives the user-facing flows: login, the account and
// inventory screens, item requests, logout and the session countdown.
//
// It owns no UI. A front end calls these methods and renders the results or
// the text returned by Message.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/msds/internal/api"
	"github.com/erazemk/msds/internal/model"
	"github.com/erazemk/msds/internal/session"
)

var (
	// ErrMissingCredentials is returned when username or password is blank.
	ErrMissingCredentials = errors.New("username and password are required")
	// ErrInvalidCredentials is returned when the server rejects a login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotAuthenticated is returned by data operations without a session.
	ErrNotAuthenticated = errors.New("not logged in")
	// ErrSessionRevoked is returned when the server refused a data request and
	// the local session was cleared.
	ErrSessionRevoked = errors.New("session ended by server")
	// ErrInvalidRequest is returned when an item request lacks an item or quantity.
	ErrInvalidRequest = errors.New("item and quantity are required")
)

// API is the subset of *api.Client the controller calls.
type API interface {
	Login(ctx context.Context, req api.LoginRequest) error
	UserInfo(ctx context.Context, creds api.Credentials) (model.AccountInfo, error)
	Inventory(ctx context.Context, creds api.Credentials) ([]model.InventoryItem, error)
	NewRequest(ctx context.Context, creds api.Credentials, item string, quantity model.Quantity) error
}

// Auditor records activity. *audit.Logger implements it.
type Auditor interface {
	Log(description string)
	LogAs(sess session.Session, description string)
}

// Controller runs the client flows against one session store.
type Controller struct {
	client   API
	store    *session.Store
	audit    Auditor
	now      func() time.Time
	newToken func() string
	lifetime time.Duration
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	monitor *session.Monitor
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the time source used for login timestamps and the countdown.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithTokenGenerator sets the function that creates login auth tokens.
func WithTokenGenerator(fn func() string) Option {
	return func(c *Controller) {
		c.newToken = fn
	}
}

// WithLifetime sets the session lifetime.
func WithLifetime(d time.Duration) Option {
	return func(c *Controller) {
		c.lifetime = d
	}
}

// WithTickInterval sets how often the countdown reports.
func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.interval = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// New creates a controller.
func New(client API, store *session.Store, audit Auditor, opts ...Option) *Controller {
	c := &Controller{
		client:   client,
		store:    store,
		audit:    audit,
		now:      time.Now,
		newToken: uuid.NewString,
		lifetime: session.DefaultLifetime,
		interval: session.DefaultInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the session store the controller mutates.
func (c *Controller) Store() *session.Store {
	return c.store
}

// Lifetime returns the configured session lifetime.
func (c *Controller) Lifetime() time.Duration {
	return c.lifetime
}

// Login authenticates and starts a new session, replacing any existing one.
func (c *Controller) Login(ctx context.Context, username, password string) (session.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return session.Session{}, ErrMissingCredentials
	}

	req := api.LoginRequest{
		Username:  username,
		Password:  password,
		AuthToken: c.newToken(),
		Timestamp: c.now().Unix(),
	}

	if err := c.client.Login(ctx, req); err != nil {
		c.logger.Info("login failed", "user", username, "error", err)
		if errors.Is(err, api.ErrApplication) {
			return session.Session{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return session.Session{}, fmt.Errorf("logging in: %w", err)
	}

	c.stopMonitor()
	c.store.Start(req.Username, req.AuthToken, req.Timestamp)
	sess, _ := c.store.Current()

	c.logger.Info("logged in", "user", username)
	c.audit.Log("Logged In")
	return sess, nil
}

// FetchAccount loads the account profile of the logged-in user.
func (c *Controller) FetchAccount(ctx context.Context) (model.AccountInfo, error) {
	sess, ok := c.store.Current()
	if !ok {
		return model.AccountInfo{}, ErrNotAuthenticated
	}
	c.audit.Log("Accessed account page")

	info, err := c.client.UserInfo(ctx, credentials(sess))
	if err != nil {
		return model.AccountInfo{}, c.dataFailure(sess, "Failed to retrieve account data", err)
	}

	c.audit.Log("Account page loaded with data: " + info.String())
	return info, nil
}

// FetchInventory loads the inventory of the logged-in user.
func (c *Controller) FetchInventory(ctx context.Context) ([]model.InventoryItem, error) {
	sess, ok := c.store.Current()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	c.audit.Log("Accessed inventory page")

	items, err := c.client.Inventory(ctx, credentials(sess))
	if err != nil {
		return nil, c.dataFailure(sess, "Failed to load inventory data", err)
	}

	c.audit.Log("Inventory page loaded with data: " + model.SummarizeInventory(items))
	return items, nil
}

// SelectItem records that the request form was opened for item.
func (c *Controller) SelectItem(item string) error {
	if _, ok := c.store.Current(); !ok {
		return ErrNotAuthenticated
	}
	c.audit.Log("Inventory requests page loaded with data: " + item)
	return nil
}

// RequestItem asks for quantity units of item. The quantity is passed through
// as text. A rejected request leaves the session untouched.
func (c *Controller) RequestItem(ctx context.Context, item string, quantity model.Quantity) error {
	sess, ok := c.store.Current()
	if !ok {
		return ErrNotAuthenticated
	}
	item = strings.TrimSpace(item)
	quantity = model.Quantity(strings.TrimSpace(string(quantity)))
	if item == "" || quantity == "" {
		return ErrInvalidRequest
	}

	err := c.client.NewRequest(ctx, credentials(sess), item, quantity)
	switch {
	case err == nil:
		c.audit.Log("Inventory update request created with data: " + model.InventoryItem{Name: item, Quantity: quantity}.String())
		return nil
	case errors.Is(err, api.ErrApplication):
		c.audit.Log("Failed to submit inventory update request")
	default:
		c.auditError(err)
	}
	return fmt.Errorf("requesting %s: %w", item, err)
}

// Logout ends the session. Logging out without a session is a no-op.
func (c *Controller) Logout() {
	c.stopMonitor()

	sess, ok := c.store.Current()
	if !ok {
		return
	}
	c.audit.LogAs(sess, "Logged Out")
	c.store.ClearIf(sess)
	c.logger.Info("logged out", "user", sess.Username)
}

// Watch records the home screen visit and starts the session countdown.
// onTick receives the remaining time once per tick interval. When the session
// runs out it is cleared and the monitor's Expired channel closes. Any monitor
// started by an earlier call is stopped.
func (c *Controller) Watch(ctx context.Context, onTick func(remaining time.Duration)) (*session.Monitor, error) {
	if _, ok := c.store.Current(); !ok {
		return nil, ErrNotAuthenticated
	}
	c.stopMonitor()
	c.audit.Log("Accessed home page")

	m, err := session.Watch(ctx, c.store, session.MonitorConfig{
		Lifetime: c.lifetime,
		Interval: c.interval,
		Now:      c.now,
		OnTick:   onTick,
		OnExpired: func(sess session.Session) {
			c.audit.LogAs(sess, "Session timed out, Logged Out")
		},
		Logger: c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("starting session monitor: %w", err)
	}

	c.mu.Lock()
	c.monitor = m
	c.mu.Unlock()
	return m, nil
}

// Remaining returns the time left in the current session.
func (c *Controller) Remaining() (time.Duration, bool) {
	sess, ok := c.store.Current()
	if !ok {
		return 0, false
	}
	return sess.Remaining(c.lifetime, c.now()), true
}

func (c *Controller) stopMonitor() {
	c.mu.Lock()
	m := c.monitor
	c.monitor = nil
	c.mu.Unlock()

	if m != nil {
		m.Stop()
	}
}

// dataFailure handles a failed account or inventory fetch. A server refusal
// ends the session; other failures leave it in place.
func (c *Controller) dataFailure(sess session.Session, description string, err error) error {
	if !errors.Is(err, api.ErrApplication) {
		c.auditError(err)
		return err
	}

	c.audit.LogAs(sess, description)
	if c.store.ClearIf(sess) {
		c.stopMonitor()
		c.logger.Info("session revoked by server", "user", sess.Username, "error", err)
	}
	return fmt.Errorf("%w: %w", ErrSessionRevoked, err)
}

func (c *Controller) auditError(err error) {
	switch api.KindOf(err) {
	case api.KindDecode:
		c.audit.Log("Malformed response encountered: " + err.Error())
	case api.KindTransport:
		c.audit.Log("Network error encountered: " + err.Error())
	}
}

func credentials(sess session.Session) api.Credentials {
	return api.Credentials{Username: sess.Username, AuthToken: sess.AuthToken}
}
