// Package main is the entry point for the seedd server.
//
// seedd serves the seed package registry's user and token records over a
// RESTful HTTP API. Documents live as JSON files under the data directory,
// optionally tracked in a git repository. Configuration is read from CLI
// flags and config.yml (JWT secret, password digest scheme, rate limits).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/invopop/jsonschema"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/seedpm/seed/internal/config"
	"github.com/seedpm/seed/internal/docstore"
	"github.com/seedpm/seed/internal/identity"
	"github.com/seedpm/seed/internal/models"
	"github.com/seedpm/seed/internal/server"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "seedd: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	httpAddr := flag.String("http", "localhost:4050", "Address to listen on (e.g., localhost:4050, :4050). Use 0.0.0.0:port to listen on all interfaces.")
	dataDir := flag.String("data-dir", "./data", "Data directory")
	configPath := flag.String("config", "", "Path to config.yml (default: <data-dir>/config.yml)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	memStore := flag.Bool("mem", false, "Keep documents in memory instead of on disk (for development)")
	dumpSchema := flag.Bool("dump-schema", false, "Print the JSON schema of the API record shapes and exit")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}
	if *dumpSchema {
		return printSchemas()
	}

	// Environment overrides for flags not explicitly set.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if !set["http"] {
		if v := os.Getenv("SEED_HTTP"); v != "" {
			*httpAddr = v
		}
	}
	if !set["data-dir"] {
		if v := os.Getenv("SEED_DATA_DIR"); v != "" {
			*dataDir = v
		}
	}
	if !set["log-level"] {
		if v := os.Getenv("SEED_LOG_LEVEL"); v != "" {
			*logLevel = v
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			// Drop localhost IPs (not useful in logs).
			if a.Key == "client" {
				if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
					return slog.Attr{}
				}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if *configPath == "" {
		*configPath = filepath.Join(*dataDir, "config.yml")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	var digest identity.Digest
	switch cfg.Digest.Scheme {
	case "md5":
		digest = identity.MD5Digest
	case "pbkdf2":
		digest = identity.NewPBKDF2Digest(cfg.Digest.Salt, cfg.Digest.Iterations)
	}

	store, err := openStore(ctx, *dataDir, *memStore, cfg)
	if err != nil {
		return err
	}

	svc := identity.NewServices(store, digest)
	resolver := identity.NewResolver(svc, digest)

	var limiter *server.RateLimiter
	if cfg.RateLimit.Requests > 0 {
		limiter = server.NewRateLimiter(cfg.RateLimit.Requests, time.Duration(cfg.RateLimit.Window), cfg.RateLimit.Burst)
		defer limiter.Close()
	}

	// Watch own executable for modifications (for development restarts).
	if err := watchExecutable(ctx, stop); err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}

	// Normalize addr: ":4050" becomes "localhost:4050".
	addr := *httpAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	srv := server.New(svc, resolver, logger, limiter, []byte(cfg.JWTSecret))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "dataDir", *dataDir)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

// openStore picks the document backend: in-memory, plain files, or files
// tracked in a git repository.
func openStore(ctx context.Context, dataDir string, mem bool, cfg *config.Config) (docstore.Store, error) {
	if mem {
		slog.InfoContext(ctx, "Using in-memory document store")
		return docstore.NewMemStore(), nil
	}
	docDir := filepath.Join(dataDir, "db")
	var hist *docstore.History
	if cfg.Git.Enabled {
		var err error
		hist, err = docstore.OpenHistory(docDir, cfg.Git.AuthorName, cfg.Git.AuthorEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to open document history: %w", err)
		}
		slog.InfoContext(ctx, "Document history enabled", "dir", docDir)
	}
	return docstore.NewFileStore(docDir, hist)
}

// printSchemas emits the JSON schema of the projected API record shapes, for
// client generators and API documentation.
func printSchemas() error {
	r := &jsonschema.Reflector{DoNotReference: true}
	for _, v := range []any{&models.UserJSON{}, &models.TokenJSON{}, &models.RecordList{}, &models.ErrorResponse{}} {
		schema := r.Reflect(v)
		raw, err := schema.MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
	}
	return nil
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("seedd %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

// watchExecutable watches the current executable for modifications and calls
// stop to trigger graceful shutdown when detected. This enables seamless
// restarts during development.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
