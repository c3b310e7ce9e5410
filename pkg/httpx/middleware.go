package httpx

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Middleware decorates an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps h so that the first middleware is the outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyAPIVersion
)

// Header names used by the middleware in this package.
const (
	HeaderRequestID         = "X-Request-Id"
	HeaderAPIKey            = "x-api-key"
	HeaderAPIVersion        = "x-api-version"
	HeaderSupportedVersions = "api-supported-versions"
)

// RequestIDFromContext returns the request ID set by RequestIDMiddleware.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

// APIVersionFromContext returns the version negotiated by APIVersionMiddleware.
func APIVersionFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyAPIVersion).(string)
	return v
}

// RequestIDMiddleware propagates the caller's X-Request-Id or generates one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, reqID)))
	})
}

// LoggingMiddleware returns middleware that logs HTTP requests.
// It logs the method, path, status code, and duration of each request.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"bytes", wrapped.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", RequestIDFromContext(r.Context()),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// RecoveryMiddleware returns middleware that recovers from panics in HTTP handlers.
// If a panic occurs, it logs the error and returns a 500 Internal Server Error.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"request_id", RequestIDFromContext(r.Context()),
					)
					WriteFailure(w, http.StatusInternalServerError, "Erro interno do servidor.")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Messages returned by APIKeyMiddleware.
const (
	MsgAPIKeyMissing = "API Key não informada."
	MsgAPIKeyInvalid = "API Key inválida."
)

// APIKeyMiddleware rejects requests whose x-api-key header does not match key.
// Paths listed in exempt, matched exactly or as a prefix ending in "/", skip
// the check. An empty key disables the middleware.
func APIKeyMiddleware(key string, exempt ...string) Middleware {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExempt(r.URL.Path, exempt) {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get(HeaderAPIKey)
			if got == "" {
				WriteFailure(w, http.StatusUnauthorized, MsgAPIKeyMissing)
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				WriteFailure(w, http.StatusUnauthorized, MsgAPIKeyInvalid)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isExempt(path string, exempt []string) bool {
	for _, p := range exempt {
		if path == p {
			return true
		}
		if strings.HasSuffix(p, "/") && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// APIVersionMiddleware negotiates the API version from the x-api-version header.
// A missing header selects the first supported version. Unsupported versions
// are rejected with 400. Every response advertises the supported versions.
func APIVersionMiddleware(supported ...string) Middleware {
	if len(supported) == 0 {
		supported = []string{"1.0"}
	}
	advertised := strings.Join(supported, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(HeaderSupportedVersions, advertised)

			version := strings.TrimSpace(r.Header.Get(HeaderAPIVersion))
			if version == "" {
				version = supported[0]
			}
			if !slices.Contains(supported, version) {
				WriteFailure(w, http.StatusBadRequest, "Versão da API não suportada: "+version+".")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyAPIVersion, version)))
		})
	}
}
