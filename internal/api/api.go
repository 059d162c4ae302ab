package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BTreeMap/DMPipe/internal/dedup"
	"github.com/BTreeMap/DMPipe/internal/flow"
	"github.com/BTreeMap/DMPipe/internal/genai"
	"github.com/BTreeMap/DMPipe/internal/instagram"
	"github.com/BTreeMap/DMPipe/internal/messaging"
	"github.com/BTreeMap/DMPipe/internal/notify"
	"github.com/BTreeMap/DMPipe/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr        string
	VerifyToken string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the server listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithVerifyToken sets the webhook verification token expected during the
// subscription handshake.
func WithVerifyToken(token string) Option {
	return func(o *Opts) { o.VerifyToken = token }
}

// Server handles HTTP requests and hands webhook events to the engine.
type Server struct {
	engine       *flow.Engine
	store        store.Store
	verifyToken  string
	pageID       string
	aiConfigured bool
}

// NewServer creates a Server with explicit dependencies. Used directly by
// tests; production wiring goes through Run.
func NewServer(engine *flow.Engine, st store.Store, verifyToken, pageID string, aiConfigured bool) *Server {
	return &Server{
		engine:       engine,
		store:        st,
		verifyToken:  verifyToken,
		pageID:       pageID,
		aiConfigured: aiConfigured,
	}
}

// Handler builds the HTTP mux for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/leads", s.leadsHandler)
	return mux
}

// Run assembles every module from its options and serves until SIGINT or
// SIGTERM, then shuts down gracefully.
func Run(igOpts []instagram.Option, storeOpts []store.Option, genaiOpts []genai.Option, notifyOpts []notify.Option, apiOpts []Option) error {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range apiOpts {
		opt(&cfg)
	}
	if cfg.VerifyToken == "" {
		cfg.VerifyToken = os.Getenv("VERIFY_TOKEN")
	}
	if cfg.VerifyToken == "" {
		return fmt.Errorf("webhook verify token must be configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := buildStore(storeOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	igClient, err := instagram.NewClient(igOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize Instagram client: %w", err)
	}
	// A short-lived user token from the OAuth dialog only lasts about an
	// hour; upgrade it when app credentials are available.
	if appID, appSecret := os.Getenv("APP_ID"), os.Getenv("APP_SECRET"); appID != "" && appSecret != "" {
		if err := igClient.UpgradeUserToken(ctx, appID, appSecret); err != nil {
			slog.Warn("User token upgrade failed, continuing with configured token", "error", err)
		}
	}
	if err := igClient.ResolvePageToken(ctx); err != nil {
		return fmt.Errorf("failed to resolve page access token: %w", err)
	}
	if !igClient.HasAccessToken() {
		slog.Warn("No page access token configured; outbound delivery will fail until one is provided")
	}

	aiClient, err := genai.NewClient(genaiOpts...)
	var ai genai.ClientInterface
	if err != nil {
		slog.Warn("AI client not configured, free-form replies degrade to placeholders", "error", err)
	} else {
		ai = aiClient
	}

	var notifier notify.Notifier
	smsNotifier, err := notify.NewSMSNotifier(notifyOpts...)
	if err != nil {
		slog.Debug("SMS lead notifications disabled", "error", err)
		notifier = notify.NoopNotifier{}
	} else {
		notifier = smsNotifier
	}

	cache := dedup.NewCache()
	cache.Start(ctx)

	msgService := messaging.NewInstagramService(igClient)
	dispatcher := messaging.NewDispatcher(msgService)
	engine := flow.NewEngine(st, cache, ai, notifier, dispatcher)

	server := NewServer(engine, st, cfg.VerifyToken, igClient.PageID(), ai != nil)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("DMPipe API listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutdown signal received, draining HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	return nil
}

// buildStore selects the store backend from the configured DSN: Postgres or
// SQLite when one is set, in-memory otherwise.
func buildStore(storeOpts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	switch {
	case cfg.DSN == "":
		slog.Info("No database DSN configured, using in-memory store")
		return store.NewInMemoryStore(), nil
	case store.DetectDSNType(cfg.DSN) == "postgres":
		slog.Info("Using PostgreSQL store")
		return store.NewPostgresStore(storeOpts...)
	default:
		slog.Info("Using SQLite store", "path", cfg.DSN)
		return store.NewSQLiteStore(storeOpts...)
	}
}
