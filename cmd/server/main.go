package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aryan0dhankhar/employeedir/internal/featureflags"
	"github.com/aryan0dhankhar/employeedir/internal/handler"
	"github.com/aryan0dhankhar/employeedir/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/employeedir/internal/observability/metrics"
	"github.com/aryan0dhankhar/employeedir/internal/observability/tracing"
	"github.com/aryan0dhankhar/employeedir/internal/security/audit"
	"github.com/aryan0dhankhar/employeedir/internal/security/middleware"
	"github.com/aryan0dhankhar/employeedir/internal/security/ratelimit"
	"github.com/aryan0dhankhar/employeedir/internal/service"
	"github.com/aryan0dhankhar/employeedir/internal/worker"
	"github.com/aryan0dhankhar/employeedir/pkg/config"
)

const storeProbeInterval = 15 * time.Second

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting employee directory server",
		slog.String("environment", cfg.Environment),
		slog.String("store", cfg.StoreBackend),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing (no-op without an OTLP endpoint)
	shutdownTracing, err := tracing.Init(ctx, log, "employeedir", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Open the document store
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open employee store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	// 5. Initialize services
	directory := service.NewDirectoryService(store, log, service.Options{
		UpdateConcurrency: cfg.UpdateConcurrency,
		ListCacheTTL:      time.Duration(cfg.ListCacheTTLSeconds) * time.Second,
		ValidateEmail:     featureflags.Enabled(featureflags.ServerEmailValidation),
	})

	// 6. Probe the store in the background
	storeProbe := worker.NewStoreProbeWorker(store, cfg.StoreBackend, log, storeProbeInterval)
	go storeProbe.Start(ctx)

	// 7. Initialize handlers and security components
	auditLogger := audit.NewLogger(log)
	employeesHandler := handler.NewEmployeesHandler(directory, auditLogger, log)
	healthHandler := handler.NewHealthHandler(directory, cfg.StoreBackend, log)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)

	// 8. Setup HTTP routes
	mux := http.NewServeMux()
	employeesHandler.Register(mux, "/api")
	employeesHandler.Register(mux, "/api/employees")
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Chain middleware: request ID -> CORS -> rate limit -> content type -> metrics -> mux
	rootHandler := tracing.Middleware(
		withRequestID(
			withCORS(cfg.CORSAllowedOrigins,
				middleware.RateLimitMiddleware(rateLimiter, log)(
					middleware.ValidateJSONContentType(log)(
						metrics.HTTPMetricsMiddleware(mux),
					),
				),
			),
			log,
		),
		"employeedir",
	)

	// 9. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Int("update_concurrency", cfg.UpdateConcurrency),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
			sigChan <- syscall.SIGTERM
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop store probe
	rateLimiter.Stop()
	log.Info("server stopped")
}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)

		ctx := audit.WithRequestID(r.Context(), reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

// withCORS honors the configured origins and answers preflight requests
func withCORS(allowed []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(allowed, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(allowed) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", allowed[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
