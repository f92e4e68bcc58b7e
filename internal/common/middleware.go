package common

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"chatr/internal/config"
)

var lanOrigin = regexp.MustCompile(`^http://192\.168\.`)

// CORSMiddleware allows the local dev origins, the configured frontend, and
// any 192.168.* origin. Outside production every origin is allowed.
func CORSMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	allowed := map[string]bool{
		"http://localhost:3000": true,
		"http://localhost:5000": true,
		"http://127.0.0.1:3000": true,
		"http://127.0.0.1:5000": true,
	}
	if cfg.Server.FrontendURL != "" {
		allowed[cfg.Server.FrontendURL] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if allowed[origin] || lanOrigin.MatchString(origin) || !cfg.IsProduction() {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Set("Vary", "Origin")
				} else {
					WriteJSON(w, http.StatusForbidden, ErrorResponse{Message: "Not allowed by CORS"})
					return
				}
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// the websocket upgrade needs the raw writer to hijack
			if r.URL.Path == "/ws" {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// AuthMiddleware validates an optional "Authorization: Bearer <token>" header
// and injects the caller identity into the request context. Requests without
// the header pass through anonymously; a malformed or expired token is a 401.
func AuthMiddleware(tokens *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.Fields(header)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "invalid auth header"})
				return
			}

			claims, err := tokens.ValidToken(parts[1])
			if err != nil {
				WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "invalid or expired token"})
				return
			}

			ctx := WithIdentity(r.Context(), claims.UserID, claims.Phone)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
