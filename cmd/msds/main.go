// Command msds is the terminal client for the MSDS personnel and inventory
// service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/peterh/liner"

	"github.com/erazemk/msds/internal/api"
	"github.com/erazemk/msds/internal/audit"
	"github.com/erazemk/msds/internal/config"
	"github.com/erazemk/msds/internal/controller"
	"github.com/erazemk/msds/internal/logging"
	"github.com/erazemk/msds/internal/session"
	"github.com/erazemk/msds/internal/telemetry"
)

const version = "1.0.0"

// envPassword supplies the password for one-shot commands.
const envPassword = "MSDS_PASSWORD"

func main() {
	fs := flag.NewFlagSet("msds", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")

	var serverURL string
	fs.StringVar(&serverURL, "server", "", "")
	fs.StringVar(&serverURL, "s", "", "")

	var username string
	fs.StringVar(&username, "user", "", "")
	fs.StringVar(&username, "u", "", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	var verbose bool
	fs.BoolVar(&verbose, "verbose", false, "")
	fs.BoolVar(&verbose, "v", false, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: msds [flags] [command [args]]

Without a command, msds starts an interactive session.

Commands:
  account                 show your account details
  inventory               list the items you hold
  request <item> <qty>    request more of an item

Flags:
  -c, -config <path>      config file (default: ~/.msds/config.toml)
  -s, -server <url>       web service root URL
  -u, -user <name>        username for one-shot commands
  -l, -log <path>         log file path
  -v, -verbose            log at debug level
  -h, -help               show this help and exit

One-shot commands read the password from MSDS_PASSWORD or prompt for it.
Set OTEL_EXPORTER_OTLP_ENDPOINT to export traces.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if serverURL != "" {
		cfg.Server.URL = serverURL
	}
	if logPath != "" {
		cfg.Log.Path = logPath
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid config: %v\n", err)
		os.Exit(1)
	}

	level, _ := logging.ParseLevel(cfg.Log.Level)
	closeLog, err := logging.Setup(cfg.Log.Path, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, username, fs.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, username string, args []string) error {
	ctx := context.Background()

	shutdownTracing := telemetry.Setup(ctx, "msds", version, os.Getenv)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Warn("flushing traces", "error", err)
		}
	}()

	ctrl, auditLog := newController(cfg)
	defer auditLog.Wait()

	if len(args) == 0 {
		r := newREPL(ctrl, os.Stdout)
		defer r.Close()
		return r.Run(ctx)
	}

	password := os.Getenv(envPassword)
	if password == "" {
		line := liner.NewLiner()
		p, err := line.PasswordPrompt("Password: ")
		line.Close()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		password = p
	}
	return runOnce(ctx, ctrl, os.Stdout, username, password, args)
}

// newController wires the client components from cfg.
func newController(cfg *config.Config) (*controller.Controller, *audit.Logger) {
	client := api.New(cfg.Server.URL, api.WithTimeout(cfg.Server.Timeout))
	sessions := session.NewStore()
	auditLog := audit.New(sessions, client, audit.WithTimeout(cfg.Session.AuditTimeout))
	ctrl := controller.New(client, sessions, auditLog,
		controller.WithLifetime(cfg.Session.Lifetime),
		controller.WithTickInterval(cfg.Session.TickInterval),
	)
	return ctrl, auditLog
}

// runOnce logs in, runs a single command and logs out.
func runOnce(ctx context.Context, ctrl *controller.Controller, out io.Writer, username, password string, args []string) error {
	switch args[0] {
	case "account", "inventory", "request":
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	if _, err := ctrl.Login(ctx, username, password); err != nil {
		return errors.New(controller.Message(err))
	}
	defer ctrl.Logout()

	a := &app{ctrl: ctrl, out: out}
	var err error
	switch args[0] {
	case "account":
		err = a.account(ctx)
	case "inventory":
		err = a.inventory(ctx)
	case "request":
		err = a.request(ctx, args[1:])
	}
	if err != nil {
		return errors.New(controller.Message(err))
	}
	return nil
}
