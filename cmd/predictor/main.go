// Command predictor serves the MotoBlu motorcycle resale price model.
//
// On startup the predictor trains a gradient-boosted tree ensemble on the
// built-in sample set. Training failures are fatal: the process exits with
// status 1 before any listener is opened. Once trained, it serves:
//
//   - POST /v1/previsao/preco-moto - Predict a resale price
//   - GET /v1/previsao/modelo - Describe the trained model
//   - GET /health, /healthz - Health report and liveness probe
//   - GET /metrics - Prometheus metrics endpoint
//   - GET /swagger/v1/swagger.yaml - OpenAPI document
//
// A gRPC health service on GRPC_LISTEN reports NOT_SERVING while the model
// trains and SERVING once it is ready.
//
// Usage:
//
//	predictor -listen=:5051 -api-key=secret -cache=redis -redis-addr=redis:6379
//
// Environment variables:
//
//	LISTEN         - HTTP listen address (default: :5051)
//	GRPC_LISTEN    - gRPC health listen address, empty disables (default: :50051)
//	API_KEY        - Required x-api-key value, empty disables the check
//	API_VERSIONS   - Supported x-api-version values (default: 1.0)
//	CACHE          - Prediction cache: none, memory, redis (default: memory)
//	CACHE_TTL      - Prediction cache TTL (default: 10m)
//	CACHE_MAX_ENTRIES - Memory cache size limit (default: 10000)
//	REDIS_ADDR     - Redis address (default: localhost:6379)
//	TREES          - Maximum boosted trees (default: 100)
//	LEAVES         - Maximum leaves per tree (default: 50)
//	MIN_LEAF       - Minimum examples per leaf (default: 1)
//	LEARNING_RATE  - Boosting learning rate (default: 0.2)
//	PRICE_FLOOR    - Minimum predicted price, at least 5000 (default: 5000)
//	LOG_LEVEL      - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT     - Logging format: text, json (default: text)
package main

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/HatiCode/motoblu/cmd/predictor/config"
	"github.com/HatiCode/motoblu/cmd/predictor/logger"
	"github.com/HatiCode/motoblu/cmd/predictor/metrics"
	"github.com/HatiCode/motoblu/cmd/predictor/router"
	"github.com/HatiCode/motoblu/cmd/predictor/store"
	"github.com/HatiCode/motoblu/pkg/httpx"
	"github.com/HatiCode/motoblu/pkg/prediction"
	motoblutls "github.com/HatiCode/motoblu/pkg/tls"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()

	log := logger.New(cfg)
	slog.SetDefault(log)

	log.Info("starting motoblu predictor", "version", version)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var tlsConfig *tls.Config
	if cfg.TLS.Enabled {
		var err error
		tlsConfig, err = motoblutls.NewServerTLSConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.CAFile)
		if err != nil {
			log.Error("failed to build TLS config", "error", err)
			os.Exit(1)
		}
		log.Info("TLS enabled", "mutual", cfg.TLS.MutualTLS())
	}

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	var grpcServer *grpc.Server
	if cfg.GRPCListen != "" {
		var opts []grpc.ServerOption
		if tlsConfig != nil {
			opts = append(opts, grpc.Creds(credentials.NewTLS(tlsConfig)))
		}
		grpcServer = grpc.NewServer(opts...)
		healthpb.RegisterHealthServer(grpcServer, healthServer)
		reflection.Register(grpcServer)

		lis, err := net.Listen("tcp", cfg.GRPCListen)
		if err != nil {
			log.Error("failed to listen for gRPC", "addr", cfg.GRPCListen, "error", err)
			os.Exit(1)
		}
		go func() {
			log.Info("starting gRPC health server", "addr", cfg.GRPCListen)
			if err := grpcServer.Serve(lis); err != nil {
				log.Error("gRPC server failed", "error", err)
			}
		}()
	}

	cache, err := store.New(cfg, log)
	if err != nil {
		log.Error("failed to initialize prediction cache", "error", err)
		os.Exit(1)
	}

	m := metrics.New(nil)

	opts := []prediction.Option{
		prediction.WithLogger(log),
		prediction.WithRecorder(m),
		prediction.WithStateObserver(func(s prediction.State) {
			status := healthpb.HealthCheckResponse_NOT_SERVING
			if s == prediction.Ready {
				status = healthpb.HealthCheckResponse_SERVING
			}
			healthServer.SetServingStatus("", status)
			log.Debug("prediction service state changed", "state", s.String())
		}),
	}
	var healthChecks []httpx.HealthCheck
	if cache != nil {
		opts = append(opts, prediction.WithStore(cache))
		healthChecks = append(healthChecks, httpx.HealthCheck{
			Name:        "cache",
			Description: "prediction cache reachable",
			Check:       cache.Ping,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := prediction.New(ctx, prediction.SampleExamples(), prediction.Config{
		Options:    cfg.ModelOptions(),
		PriceFloor: cfg.PriceFloor,
	}, opts...)
	if err != nil {
		log.Error("model training failed", "error", err)
		if grpcServer != nil {
			grpcServer.Stop()
		}
		store.Close(cache, log)
		os.Exit(1)
	}

	handler := router.SetupRoutes(svc, router.Config{
		APIKey:       cfg.APIKey,
		APIVersions:  cfg.APIVersions,
		HealthChecks: healthChecks,
	}, log)

	httpServer := httpx.NewServer(cfg.Listen, handler, log)
	if tlsConfig != nil {
		httpServer.SetTLSConfig(tlsConfig)
	}

	serverErr := make(chan error, 1)
	go func() {
		if tlsConfig != nil {
			// Certificates are already loaded into tlsConfig.
			serverErr <- httpServer.StartTLS("", "")
			return
		}
		serverErr <- httpServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	exitCode := 0
	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			log.Error("server failed", "error", err)
			exitCode = 1
		}
	}

	log.Info("shutting down")
	cancel()
	healthServer.Shutdown()

	if err := httpServer.Stop(10 * time.Second); err != nil {
		log.Error("server shutdown failed", "error", err)
		exitCode = 1
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	store.Close(cache, log)

	log.Info("shutdown complete")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
