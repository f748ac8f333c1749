package middleware

import (
	"errors"
	"net/http"
	"strings"

	j "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/pkg/auth"
)

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// claims of accepted ones in the request context.
func Authenticate(validator TokenValidator, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				respondUnauthorized(w, "Missing authentication token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("path", r.URL.Path),
				)
				if errors.Is(err, auth.ErrExpiredToken) {
					respondUnauthorized(w, "Token has expired")
				} else {
					respondUnauthorized(w, "Invalid token")
				}
				return
			}

			logger.Debug("Request authenticated",
				zap.String("subject", claims.Subject),
				zap.String("path", r.URL.Path),
			)
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	body, _ := j.Marshal(map[string]interface{}{
		"error": map[string]string{"type": "UNAUTHORIZED", "message": message},
	})
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="plasma"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write(body)
}
