package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/mixelka/tempinbox/internal/accesslog"
	"github.com/mixelka/tempinbox/internal/codec"
	"github.com/mixelka/tempinbox/internal/config"
	"github.com/mixelka/tempinbox/internal/database"
	"github.com/mixelka/tempinbox/internal/email"
	"github.com/mixelka/tempinbox/internal/geo"
	"github.com/mixelka/tempinbox/internal/inbox"
	"github.com/mixelka/tempinbox/internal/random"
	"github.com/mixelka/tempinbox/internal/web"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting temporary inbox viewer", "domain", cfg.MailDomain)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("inbox viewer stopped", "error", err)
		os.Exit(1)
	}
}

// run serves until ctx is done or the http server fails. Everything it
// opens is closed before it returns.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Resolve the IMAP server when not configured
	if cfg.MailServer == "" {
		host, err := email.ResolveIMAPHost(cfg.MailDomain, cfg.MailPort)
		if err != nil {
			return fmt.Errorf("failed to resolve IMAP server for %s: %w", cfg.MailDomain, err)
		}
		cfg.MailServer = host
		logger.Info("resolved IMAP server", "server", host)
	}

	// Per-process salt: message links stop working after a restart
	ids, err := codec.NewRandom()
	if err != nil {
		return fmt.Errorf("failed to create identifier codec: %w", err)
	}

	// IMAP connection pool
	dialer := email.NewDialer(email.DialConfig{
		Connection:     cfg.Connection(),
		DialTimeout:    cfg.IMAPDialTimeout,
		CommandTimeout: cfg.IMAPCommandTimeout,
	}, logger)
	auth := email.NewAuthenticator(cfg.Credentials(), cfg.MailFolder, logger)
	pool := email.NewPool(dialer, auth, email.PoolConfig{
		Size:           cfg.PoolSize,
		AcquireTimeout: cfg.PoolAcquireTimeout,
		IdleTimeout:    cfg.IMAPIdleTimeout,
	}, logger)
	defer pool.Close()

	logger.Info("checking IMAP login", "server", cfg.Connection().Addr(), "credentials", cfg.Credentials())
	if err := pool.Ping(ctx); err != nil {
		logger.Warn("IMAP server not reachable yet, will retry on demand", "error", err)
	}

	// Visit log
	visits, closeVisits, err := openVisitStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open visit log: %w", err)
	}
	defer closeVisits()

	// Create components
	mailbox := email.NewMailbox(pool, logger)
	service := inbox.NewService(mailbox, ids, inbox.Config{
		Domain: cfg.MailDomain,
		Limit:  cfg.InboxSize,
	}, logger)
	locator := geo.NewClient(geo.Config{
		Endpoint: cfg.GeoEndpoint,
		Timeout:  cfg.GeoTimeout,
	})

	server, err := web.NewServer(web.Deps{
		Inbox:   service,
		Visits:  visits,
		Locator: locator,
		Names:   random.New(0),
		Kinds:   random.Kinds(),
		Domain:  cfg.MailDomain,
		LogSize: cfg.LogSize,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.PoolAcquireTimeout + 2*cfg.IMAPCommandTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			serveErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down http server", "error", err)
	}

	stats := pool.Stats()
	logger.Info("closing IMAP pool", "open", stats.Open, "idle", stats.Idle, "in_use", stats.InUse)
	return serveErr
}

// openVisitStore picks the visit log backend
func openVisitStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (accesslog.Store, func(), error) {
	if cfg.LogBackend == "sqlite" {
		db, err := database.New(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("visit log stored in sqlite", "path", cfg.DatabasePath)
		return db, func() { db.Close() }, nil
	}

	logger.Info("visit log stored in file", "path", cfg.LogFile)
	return accesslog.NewFileStore(cfg.LogFile), func() {}, nil
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
