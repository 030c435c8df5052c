// Command server runs the reference personnel and inventory web service.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/erazemk/msds/internal/db"
	"github.com/erazemk/msds/internal/logging"
	"github.com/erazemk/msds/internal/model"
	"github.com/erazemk/msds/internal/server"
	"github.com/erazemk/msds/internal/telemetry"
)

const version = "1.0.0"

func main() {
	args := os.Args[1:]
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		serve(args)
		return
	}

	name := args[0]
	if name == "serve" {
		serve(args[1:])
		return
	}
	cmd, ok := adminCommands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\nRun msds-server -h for usage.\n", name)
		os.Exit(1)
	}
	if err := cmd(args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func serve(args []string) {
	fs := flag.NewFlagSet("msds-server", flag.ContinueOnError)

	var dbPath string
	fs.StringVar(&dbPath, "db", "msds.sqlite3", "")
	fs.StringVar(&dbPath, "d", "msds.sqlite3", "")

	var addr string
	fs.StringVar(&addr, "addr", ":8080", "")
	fs.StringVar(&addr, "a", ":8080", "")

	var firstUser string
	fs.StringVar(&firstUser, "user", "", "")
	fs.StringVar(&firstUser, "u", "", "")

	var seedPath string
	fs.StringVar(&seedPath, "seed", "", "")

	var lifetime time.Duration
	fs.DurationVar(&lifetime, "lifetime", server.DefaultSessionLifetime, "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	var verbose bool
	fs.BoolVar(&verbose, "verbose", false, "")
	fs.BoolVar(&verbose, "v", false, "")

	var trustProxy bool
	fs.BoolVar(&trustProxy, "trust-proxy", false, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: msds-server [serve] [flags]
       msds-server <command> [-d <path>] [command flags]

Commands:
  serve                               run the web service (default)
  users                               list accounts
  passwd -user <name>                 reset a password and print the new one
  deluser -user <name>                delete an account with its sessions and holdings
  items [-remove <name>]              list the request catalog or remove an item
  holding -user <name> -item <item> (-qty <q> | -remove)
                                      set or remove a holding
  requests [-user <name>]             list item requests, newest first
  logs -user <name> [-n <count>]      show an account's activity log

Serve flags:
  -d, -db <path>          SQLite database path (default: msds.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        create this user with a generated password on first run
      -seed <path>        load users, items and holdings from a TOML file
      -lifetime <dur>     session lifetime (default: 30m0s)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -v, -verbose            log at debug level
      -trust-proxy        rate limit by X-Forwarded-For (only behind a proxy that sets it)
  -h, -help               show this help and exit

Endpoints are served under /android_webservice/.
Set OTEL_EXPORTER_OTLP_ENDPOINT to export traces.
`)
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	closeLog, err := logging.Setup(logPath, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	cfg := server.Config{SessionLifetime: lifetime, TrustProxy: trustProxy}
	if err := run(dbPath, addr, firstUser, seedPath, cfg); err != nil {
		slog.Error("server failed", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(dbPath, addr, firstUser, seedPath string, cfg server.Config) error {
	_, statErr := os.Stat(dbPath)
	fresh := errors.Is(statErr, os.ErrNotExist)

	database, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(context.Background(), database); err != nil {
		return err
	}
	slog.Info("database ready", "path", dbPath, "created", fresh)

	if fresh && firstUser != "" {
		if err := createFirstUser(database, firstUser); err != nil {
			return err
		}
	}

	if seedPath != "" {
		data, err := server.LoadSeed(seedPath)
		if err != nil {
			return err
		}
		n, err := server.Seed(context.Background(), database, data)
		if err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
		slog.Info("database seeded", "path", seedPath, "users_created", n, "items", len(data.Items))
	}

	shutdownTracing := telemetry.Setup(context.Background(), "msds-server", version, os.Getenv)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Warn("flushing traces", "error", err)
		}
	}()

	router := server.NewRouter(database, cfg)
	handler := server.LoggingMiddleware(otelhttp.NewHandler(router, "msds-server"))

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", addr, "lifetime", cfg.SessionLifetime, "trust_proxy", cfg.TrustProxy)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

// createFirstUser creates a user with a generated password and prints it.
func createFirstUser(database *sql.DB, username string) error {
	password, err := server.GeneratePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}

	if _, err := server.CreateUser(context.Background(), database, username, password, model.AccountInfo{}); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	fmt.Println("Account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println()
	return nil
}
