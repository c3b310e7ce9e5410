// Package router configures HTTP routes for the predictor's HTTP API.
//
// Routes configured:
//   - POST /v1/previsao/preco-moto - Predict a motorcycle resale price
//   - GET /v1/previsao/modelo - Describe the trained model
//   - GET /health - JSON health report (model, cache)
//   - GET /healthz - Liveness probe (returns 200 OK)
//   - GET /metrics - Prometheus metrics endpoint
//   - GET /swagger/v1/swagger.yaml - OpenAPI document
//
// Every route is wrapped with request ID, logging and panic recovery. The
// /v1 routes additionally require the API key (when configured) and negotiate
// the x-api-version header.
package router

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tidwall/gjson"

	"github.com/HatiCode/motoblu/cmd/predictor/openapi"
	"github.com/HatiCode/motoblu/pkg/features"
	"github.com/HatiCode/motoblu/pkg/httpx"
	"github.com/HatiCode/motoblu/pkg/models"
	"github.com/HatiCode/motoblu/pkg/prediction"
)

// Response messages.
const (
	MsgInvalidInput = "Dados de entrada nulos ou inválidos."
	MsgPredicted    = "Preço de venda previsto com sucesso."
	MsgNotReady     = "Modelo de previsão indisponível."
	MsgNotAllowed   = "Método não permitido."
)

const maxBodyBytes = 1 << 20

// Predictor is the prediction service as seen by the HTTP layer.
type Predictor interface {
	Predict(ctx context.Context, in features.Input) (models.Prediction, error)
	Summary() (models.Summary, error)
	Ready() error
}

// Config holds the router's optional collaborators.
type Config struct {
	// APIKey is the required x-api-key value. Empty disables the check.
	APIKey string

	// APIVersions lists the accepted x-api-version values, default first.
	APIVersions []string

	// Gatherer backs /metrics. Nil uses prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// HealthChecks are reported by /health in addition to the model check.
	HealthChecks []httpx.HealthCheck

	// RequestTimeout bounds each prediction. Zero means 2s.
	RequestTimeout time.Duration
}

// SetupRoutes configures HTTP endpoints for the predictor.
func SetupRoutes(svc Predictor, cfg Config, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Second
	}

	mux := http.NewServeMux()

	versioned := httpx.APIVersionMiddleware(cfg.APIVersions...)

	mux.Handle("/v1/previsao/preco-moto", versioned(handlePredict(svc, cfg.RequestTimeout, logger)))
	mux.Handle("/v1/previsao/modelo", versioned(handleModel(svc, logger)))

	checks := append([]httpx.HealthCheck{{
		Name:        "model",
		Description: "price model trained and serving",
		Check:       func(context.Context) error { return svc.Ready() },
	}}, cfg.HealthChecks...)
	mux.Handle("/health", httpx.HealthReportHandler(2*time.Second, checks...))
	mux.Handle("/healthz", httpx.HealthHandler())

	mux.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/swagger/v1/swagger.yaml", handleOpenAPI)

	return httpx.Chain(mux,
		httpx.RequestIDMiddleware,
		httpx.LoggingMiddleware(logger),
		httpx.RecoveryMiddleware(logger),
		httpx.APIKeyMiddleware(cfg.APIKey, "/health", "/healthz", "/metrics", "/swagger/"),
	)
}

// handlePredict returns a handler for POST /v1/previsao/preco-moto.
func handlePredict(svc Predictor, timeout time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			httpx.WriteFailure(w, http.StatusMethodNotAllowed, MsgNotAllowed)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			httpx.WriteFailure(w, http.StatusBadRequest, MsgInvalidInput)
			return
		}

		in, ok := parseInput(body)
		if !ok {
			httpx.WriteFailure(w, http.StatusBadRequest, MsgInvalidInput)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		p, err := svc.Predict(ctx, in)
		if err != nil {
			if errors.Is(err, prediction.ErrNotReady) {
				httpx.WriteFailure(w, http.StatusServiceUnavailable, MsgNotReady)
				return
			}
			logger.Error("prediction failed",
				"error", err,
				"request_id", httpx.RequestIDFromContext(r.Context()),
			)
			httpx.WriteFailure(w, http.StatusInternalServerError, "Erro interno do servidor.")
			return
		}

		httpx.WriteSuccess(w, http.StatusOK, p, MsgPredicted)
	}
}

// parseInput reads {"cor": string, "diasUso": number} from body.
// Property names match case-insensitively. Missing or null properties keep
// their zero value; any other type, or a body that is not a JSON object, is
// rejected.
func parseInput(body []byte) (features.Input, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return features.Input{}, false
	}

	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return features.Input{}, false
	}

	var in features.Input
	ok := true
	doc.ForEach(func(key, value gjson.Result) bool {
		switch {
		case strings.EqualFold(key.String(), "cor"):
			switch value.Type {
			case gjson.String:
				in.Color = value.String()
			case gjson.Null:
			default:
				ok = false
			}
		case strings.EqualFold(key.String(), "diasUso"):
			switch value.Type {
			case gjson.Number:
				in.DaysInUse = value.Float()
			case gjson.Null:
			default:
				ok = false
			}
		}
		return ok
	})

	return in, ok
}

// handleModel returns a handler for GET /v1/previsao/modelo.
func handleModel(svc Predictor, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			httpx.WriteFailure(w, http.StatusMethodNotAllowed, MsgNotAllowed)
			return
		}

		summary, err := svc.Summary()
		if err != nil {
			logger.Warn("model summary unavailable", "error", err)
			httpx.WriteFailure(w, http.StatusServiceUnavailable, MsgNotReady)
			return
		}

		httpx.WriteSuccess(w, http.StatusOK, summary, "")
	}
}

func handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(openapi.YAML); err != nil {
		slog.Error("failed to write openapi document", "error", err)
	}
}
