// Package server is a reference implementation of the personnel and inventory
// web service. It speaks the same protocol as the production service so the
// client can be run and tested against it.
package server

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/msds/internal/model"
)

// BasePath is the URL prefix every endpoint lives under.
const BasePath = "/android_webservice"

// Config configures the handlers. Zero values select the defaults.
type Config struct {
	// SessionLifetime is how long an auth token stays valid after login.
	SessionLifetime time.Duration

	// LoginPerMinute and LoginBurst bound login attempts per client IP.
	LoginPerMinute int
	LoginBurst     int

	// TrustProxy keys the rate limiter on X-Forwarded-For. Set it only when
	// a reverse proxy in front of the server overwrites that header.
	TrustProxy bool

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// Defaults.
const (
	DefaultSessionLifetime = 1800 * time.Second
	DefaultLoginPerMinute  = 30
	DefaultLoginBurst      = 10
)

// NewRouter creates the router with all endpoints registered.
func NewRouter(db *sql.DB, cfg Config) http.Handler {
	if cfg.SessionLifetime <= 0 {
		cfg.SessionLifetime = DefaultSessionLifetime
	}
	if cfg.LoginPerMinute <= 0 {
		cfg.LoginPerMinute = DefaultLoginPerMinute
	}
	if cfg.LoginBurst <= 0 {
		cfg.LoginBurst = DefaultLoginBurst
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	h := &Handler{DB: db, Lifetime: cfg.SessionLifetime, Now: cfg.Now}
	limiter := NewRateLimiter(cfg.LoginPerMinute, cfg.LoginBurst, cfg.TrustProxy)

	mux := http.NewServeMux()

	// Public: login, rate limited per client IP.
	mux.Handle(route(model.EndpointLogin), limiter.Middleware(http.HandlerFunc(h.Login)))

	// Authenticated by username + authToken in the body.
	mux.HandleFunc(route(model.EndpointUserInfo), h.UserInfo)
	mux.HandleFunc(route(model.EndpointInventory), h.Inventory)
	mux.HandleFunc(route(model.EndpointNewRequest), h.NewRequest)
	mux.HandleFunc(route(model.EndpointSubmitLog), h.SubmitLog)

	return mux
}

func route(ep model.Endpoint) string {
	return "POST " + BasePath + "/" + ep.Path()
}
