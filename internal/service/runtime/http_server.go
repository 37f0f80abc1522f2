package runtime

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/rcm-ksa/nphies-gateway/internal/service/config"
	nphiesHTTP "github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/http"
)

const apiKeyHeader = "X-API-Key"

// unauthenticated paths
var publicPaths = map[string]bool{
	"/health": true,
}

func NewHTTPServer(config config.Config, server *nphiesHTTP.Server, logger zerolog.Logger) (*http.Server, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(apiKeyAuth(config.APIKey))

	// validates path/query/headers/body against the embedded OpenAPI document
	if err := nphiesHTTP.Mount(r, server); err != nil {
		return nil, fmt.Errorf("mount api: %w", err)
	}

	return &http.Server{
		Addr:              ":" + config.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// apiKeyAuth returns a middleware that validates X-API-Key if expected is non-empty.
// If API_KEY is unset, the middleware allows all requests (handy for local dev).
func apiKeyAuth(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get(apiKeyHeader)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
				w.Header().Set("WWW-Authenticate", fmt.Sprintf(`ApiKey header="%s"`, apiKeyHeader))
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
