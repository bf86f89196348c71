package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"jules-backend/internal/config"
	"jules-backend/internal/infra/advisor"
	"jules-backend/internal/infra/storage"
	"jules-backend/internal/observability/logging"
	"jules-backend/internal/observability/tracing"
	"jules-backend/internal/resilience/circuitbreaker"
	"jules-backend/internal/usecase/reaper"

	contentUC "jules-backend/internal/usecase/content"
	migUC "jules-backend/internal/usecase/migration"
	sessUC "jules-backend/internal/usecase/session"

	hhttp "jules-backend/internal/handler/http"
	"jules-backend/internal/handler/http/anonymous"
	hauth "jules-backend/internal/handler/http/auth"
	hcontent "jules-backend/internal/handler/http/content"
	"jules-backend/internal/handler/http/middleware"
	hmigration "jules-backend/internal/handler/http/migration"
	"jules-backend/internal/handler/http/requestid"
	hsession "jules-backend/internal/handler/http/session"

	_ "jules-backend/docs" // swagger docs
)

// @title           Jules API
// @version         1.0
// @description     AI スタイリスト Jules のバックエンド API
// @description     匿名セッションの発行・利用回数制限と、サインアップ時のデータ移行を提供します。

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT トークンによる認証。ヘッダーに "Bearer {token}" 形式で指定してください。

const (
	throttleCleanupInterval = 5 * time.Minute
	throttleIdleTimeout     = 15 * time.Minute
	adminCleanupTimeout     = 5 * time.Minute
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.AuthDisabled {
		logger.Warn("authentication is DISABLED - admin routes are open to every caller")
	}

	shutdownTracer := tracing.InitTracerProvider("jules-api", cfg.TraceSampleRatio)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			logger.Error("failed to shut down tracer provider", slog.Any("error", err))
		}
	}()

	backend := initStorage(logger, cfg)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := backend.Close(ctx); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		}
	}()

	components := setupServer(logger, cfg, backend)
	runServer(logger, cfg, components)
}

// initLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// initStorage opens the backend selected by STORAGE_DRIVER.
func initStorage(logger *slog.Logger, cfg *config.AppConfig) *storage.Backend {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	backend, err := storage.Open(ctx, cfg.StorageConfig, logger)
	if err != nil {
		logger.Error("failed to open storage",
			slog.String("driver", cfg.StorageDriver),
			slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("storage ready", slog.String("driver", backend.Driver))
	return backend
}

// ServerComponents holds the HTTP handler and the background jobs that
// live as long as the server.
type ServerComponents struct {
	Handler  http.Handler
	Throttle *anonymous.Throttle
}

// setupServer wires the services, routes and middleware.
func setupServer(logger *slog.Logger, cfg *config.AppConfig, backend *storage.Backend) *ServerComponents {
	policy, err := config.LoadUsagePolicy(cfg.UsageLimitsFile)
	if err != nil {
		logger.Error("failed to load usage limits", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("usage limits loaded", slog.Any("limits", policy.Limits))

	sessions := sessUC.NewService(backend.Repos.Sessions)

	migrations := migUC.NewService(backend.Tx, backend.Repos)
	migrations.Logger = logger
	sweeper := reaper.New(migrations, migrations, adminCleanupTimeout, logger)

	adv, breakers := initAdvisor(logger, cfg)
	content := contentUC.NewService(backend.Tx, backend.Repos, adv)

	proxies, err := anonymous.LoadTrustedProxies()
	if err != nil {
		logger.Error("failed to load trusted proxy configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if proxies.Enabled {
		logger.Info("session throttle: trusted proxy mode enabled",
			slog.Int("trusted_proxies_count", len(proxies.CIDRs)))
	} else {
		logger.Info("session throttle: using RemoteAddr, proxy headers ignored")
	}

	storeBreaker := circuitbreaker.New(circuitbreaker.SessionStoreConfig())
	breakers = append(breakers, storeBreaker)
	throttle := anonymous.LoadThrottleFromEnv()

	resolver := anonymous.NewResolver(sessions,
		anonymous.WithBreaker(storeBreaker),
		anonymous.WithThrottle(throttle),
		anonymous.WithIPExtractor(anonymous.NewIPExtractor(proxies)),
		anonymous.WithLogger(logger),
	)
	gate := anonymous.NewGate(policy, sessions, logger)
	admin := hauth.RequireAdmin(cfg.AuthDisabled)

	mux := http.NewServeMux()
	hsession.Register(mux, resolver, policy, sessions, admin)
	hmigration.Register(mux, migrations, sweeper, admin)
	hcontent.Register(mux, content, resolver, gate)

	health := &hhttp.HealthHandler{
		Store:    hhttp.PingFunc(backend.Ping),
		Driver:   backend.Driver,
		DB:       backend.DB,
		Version:  cfg.Version,
		Breakers: breakers,
	}
	if throttle != nil {
		health.Throttle = throttle
	} else {
		logger.Warn("session creation throttle is DISABLED")
	}
	mux.Handle("GET /health", health)
	mux.Handle("GET /ready", &hhttp.ReadyHandler{Store: hhttp.PingFunc(backend.Ping)})
	mux.Handle("GET /live", &hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return &ServerComponents{
		Handler:  applyMiddleware(logger, cfg, mux),
		Throttle: throttle,
	}
}

// initAdvisor returns the OpenAI advisor when a key is configured, otherwise
// the canned development advisor.
func initAdvisor(logger *slog.Logger, cfg *config.AppConfig) (advisor.Advisor, []*circuitbreaker.CircuitBreaker) {
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, using canned stylist responses")
		return advisor.Noop{}, nil
	}
	openaiCfg := advisor.LoadOpenAIConfig()
	if err := openaiCfg.Validate(); err != nil {
		logger.Error("invalid OpenAI configuration", slog.Any("error", err))
		os.Exit(1)
	}
	adv := advisor.NewOpenAI(cfg.OpenAIAPIKey, openaiCfg, logger)
	logger.Info("OpenAI advisor enabled", slog.String("model", openaiCfg.Model))
	return adv, []*circuitbreaker.CircuitBreaker{adv.Breaker()}
}

// applyMiddleware wraps the mux. The first entry is the outermost:
// request id, panic recovery, logging, metrics and tracing see every
// response including timeouts and auth failures.
func applyMiddleware(logger *slog.Logger, cfg *config.AppConfig, handler http.Handler) http.Handler {
	var verifier *hauth.Verifier
	if !cfg.AuthDisabled {
		v, err := hauth.NewVerifier(cfg.JWTSecret)
		if err != nil {
			logger.Error("failed to create token verifier", slog.Any("error", err))
			os.Exit(1)
		}
		verifier = v
	}

	chain := []hhttp.Middleware{
		requestid.Middleware,
		hhttp.Recover(logger),
		hhttp.Logging(logger),
		hhttp.MetricsMiddleware,
		tracing.Middleware,
	}

	corsConfig, err := middleware.LoadCORSConfig()
	if err != nil {
		logger.Error("failed to load CORS configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if corsConfig != nil {
		corsConfig.Logger = logger
		logger.Info("CORS enabled",
			slog.Any("allowed_origins", corsConfig.Validator.GetAllowedOrigins()),
			slog.Any("allowed_methods", corsConfig.AllowedMethods),
			slog.Any("allowed_headers", corsConfig.AllowedHeaders),
			slog.Int("max_age", corsConfig.MaxAge))
		chain = append(chain, middleware.CORS(*corsConfig))
	} else {
		logger.Info("CORS disabled, CORS_ALLOWED_ORIGINS not set")
	}

	chain = append(chain,
		hhttp.Timeout(cfg.RequestTimeout),
		hauth.Authenticate(verifier),
		hhttp.InputValidation(cfg.MaxBodyBytes),
	)
	return hhttp.Chain(handler, chain...)
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, cfg *config.AppConfig, components *ServerComponents) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if components.Throttle != nil {
		go components.Throttle.StartCleanup(ctx, throttleCleanupInterval, throttleIdleTimeout)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           components.Handler,
		ReadHeaderTimeout: 10 * time.Second, // Slowloris
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("version", cfg.Version),
			slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	// in-flight requests derive from ctx, so cancel only after they drain
	cancel()
	logger.Info("server stopped")
}
