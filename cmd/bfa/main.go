package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/motor-quote-bfa-go/internal/config"
	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/handler"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/cache"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/client"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/document"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/fingerprint"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/mock"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/observability"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/store/memory"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/store/sqlite"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/motor-quote-bfa-go/internal/port"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/catalog"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/engine"
	"github.com/boddenberg/motor-quote-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_driver", cfg.StoreDriver),
		zap.String("vin_decoder", cfg.VINDecoder),
		zap.Strings("cors_origins", cfg.CORSOrigins),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "motor-quote-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Reference data ---
	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.String("path", cfg.CatalogPath), zap.Error(err))
	}
	eng := engine.New(cat, logger)

	// --- Cache ---
	vinCache := cache.New[*domain.VINData](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	store, closeStore, err := openStore(cfg, httpClient, resilienceCfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	var vinDecoder port.VINDecoder
	switch cfg.VINDecoder {
	case config.VINDecoderHTTP:
		logger.Info("using HTTP VIN decoder", zap.String("url", cfg.VINDecoderURL))
		vinDecoder = client.NewVINClient(httpClient, cfg.VINDecoderURL, cfg.VINDecodeTimeout,
			resilience.NewCircuitBreaker("vin-decoder"), resilienceCfg)
	default:
		logger.Info("using mock VIN decoder")
		vinDecoder = mock.NewVINDecoder()
	}

	// --- Services ---
	quoteSvc := service.NewQuoteService(eng, service.QuoteDeps{
		Store:       store,
		VIN:         vinDecoder,
		Registry:    mock.NewRegistry(),
		Identity:    mock.NewIdentity(),
		Payments:    mock.NewPayments(),
		Renderer:    document.NewRenderer(cfg.Brand),
		Signer:      document.NewSigner(cfg.DocumentSigningSecret, cfg.DocumentTokenTTL),
		Fingerprint: fingerprint.New(cfg.FingerprintKey),
		VINCache:    vinCache,
	}, service.QuoteConfig{
		SingpassDefaultNRIC: cfg.SingpassDefaultNRIC,
		PolicyPrefix:        cfg.PolicyPrefix,
		MaxConcurrency:      cfg.MaxConcurrency,
	}, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(quoteSvc, metrics, cfg.CORSOrigins, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

// openStore picks the persistence backend. The returned func releases it.
func openStore(cfg *config.Config, httpClient *http.Client, rc resilience.Config, logger *zap.Logger) (port.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		logger.Info("using SQLite store", zap.String("path", cfg.SQLitePath))
		s, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case config.StoreSupabase:
		if cfg.SupabaseURL == "" {
			return nil, nil, fmt.Errorf("SUPABASE_URL is required for the supabase store")
		}
		logger.Info("using Supabase store", zap.String("supabase_url", cfg.SupabaseURL))
		c := supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			rc,
			logger,
		)
		return c, func() {}, nil

	case config.StoreMemory, "":
		logger.Info("using in-memory store")
		return memory.New(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
