package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/jupiterclapton/cenackle/livefeed/config"
	http_adapter "github.com/jupiterclapton/cenackle/livefeed/internal/adapters/primary/http"
	"github.com/jupiterclapton/cenackle/livefeed/internal/adapters/secondary/security"
	"github.com/jupiterclapton/cenackle/livefeed/internal/bootstrap"
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/services"
	"github.com/jupiterclapton/cenackle/livefeed/pkg/logger"
	"github.com/jupiterclapton/cenackle/livefeed/pkg/telemetry"
)

func main() {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// 2. Logger
	logger.Init(cfg.Env)
	slog.Info("🚀 Starting Live Feed Service", "env", cfg.Env, "store", cfg.StoreBackend, "notifier", cfg.NotifierBackend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Télémétrie (Tracing)
	tp, err := telemetry.InitTracer(ctx, cfg.ServiceName, cfg.Env, cfg.OtelEndpoint)
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	// 4. Infrastructure : store distant (Postgres/Redis + NATS/Redis Pub/Sub)
	remote, err := bootstrap.OpenRemote(ctx, cfg)
	if err != nil {
		slog.Error("Unable to open remote store", "error", err)
		os.Exit(1)
	}
	defer remote.Close()

	// 5. Sécurité : validation des tokens émis par identity-service
	pubKey, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		slog.Error("Failed to read JWT public key", "path", cfg.JWTPublicKeyPath, "error", err)
		os.Exit(1)
	}
	validator, err := security.NewJWTValidator(pubKey, cfg.JWTIssuer)
	if err != nil {
		slog.Error("Failed to init JWT validator", "error", err)
		os.Exit(1)
	}

	// 6. Initialisation du Core
	feedStore := services.NewFeedStore()
	bridge := services.NewSubscriptionBridge(remote.Store, feedStore)
	feedService := services.NewFeedService(feedStore, bridge)
	reactionMutator := services.NewReactionMutator(feedStore, remote.Store)
	postService := services.NewPostService(feedStore, remote.Store)

	handle, err := bridge.Start(ctx)
	if err != nil {
		slog.Error("Failed to subscribe to the feed", "error", err)
		os.Exit(1)
	}
	defer bridge.Stop(handle)

	loadCtx, loadCancel := context.WithTimeout(ctx, cfg.RemoteTimeout)
	if err := bridge.WaitLoaded(loadCtx); err != nil {
		// On sert quand même : le flux reste "loading" jusqu'au premier snapshot
		slog.Warn("⚠️ First snapshot not received yet", "error", err)
	} else {
		slog.Info("✅ Feed loaded", "posts", len(feedStore.Snapshot()))
	}
	loadCancel()

	// 7. Chaîne de Middlewares HTTP
	api := http_adapter.NewHandler(feedService, reactionMutator, postService, cfg.CORSAllowedOrigins)

	var h http.Handler = api.Routes()

	// A. Auth (Injecte le Viewer)
	h = http_adapter.AuthMiddleware(validator)(h)

	// B. CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "baggage", "sentry-trace"},
		AllowCredentials: true,
	})
	h = c.Handler(h)

	// C. OTEL HTTP (Racine)
	h = otelhttp.NewHandler(h, "livefeed", otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
		return fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path)
	}))

	mux := http.NewServeMux()
	mux.Handle("/", h)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	// Pas de WriteTimeout : il couperait les websockets
	srvHTTP := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("📡 HTTP listening", "port", cfg.HTTPPort)
		if err := srvHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// 8. gRPC : Health Check & Reflection
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		slog.Error("Failed to listen", "error", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	go func() {
		slog.Info("📡 gRPC health listening", "port", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC server error", "error", err)
			os.Exit(1)
		}
	}()

	// 9. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("🛑 Shutting down server...")

	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	grpcServer.GracefulStop()

	slog.Info("👋 Server exited")
}
