package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tmdt-buw/plasma-sub002/pkg/auth"
)

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		level  zapcore.Level
	}{
		{"success", "/api/v1/things/1", http.StatusOK, zapcore.InfoLevel},
		{"probe", "/health", http.StatusOK, zapcore.DebugLevel},
		{"client error", "/api/v1/things/1", http.StatusNotFound, zapcore.WarnLevel},
		{"server error", "/api/v1/things/1", http.StatusServiceUnavailable, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			router := chi.NewRouter()
			router.Use(Logger(zap.New(core)))
			handler := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(tt.status) }
			router.Get("/health", handler)
			router.Get("/api/v1/things/{id}", handler)

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)
			assert.Equal(t, int64(tt.status), entries[0].ContextMap()["status"])
		})
	}
}

func TestLoggerRecordsRoutePattern(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	router := chi.NewRouter()
	router.Use(Logger(zap.New(core)))
	router.Get("/sessions/{sessionID}/model", func(w http.ResponseWriter, _ *http.Request) {})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/abc/model", nil))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "/sessions/{sessionID}/model", logs.All()[0].ContextMap()["route"])
}

type stubValidator struct {
	claims *auth.Claims
	err    error
}

func (s stubValidator) ValidateToken(string) (*auth.Claims, error) { return s.claims, s.err }

func TestAuthenticate(t *testing.T) {
	valid := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "analyst"}}

	tests := []struct {
		name      string
		header    string
		validator stubValidator
		status    int
	}{
		{"valid token", "Bearer good", stubValidator{claims: valid}, http.StatusOK},
		{"lower case scheme", "bearer good", stubValidator{claims: valid}, http.StatusOK},
		{"missing header", "", stubValidator{claims: valid}, http.StatusUnauthorized},
		{"basic auth", "Basic dXNlcg==", stubValidator{claims: valid}, http.StatusUnauthorized},
		{"expired", "Bearer old", stubValidator{err: auth.ErrExpiredToken}, http.StatusUnauthorized},
		{"invalid", "Bearer bad", stubValidator{err: errors.New("signature")}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var subject string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
					subject = claims.Subject
				}
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Authenticate(tt.validator, zap.NewNop())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "analyst", subject)
			} else {
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
				assert.Contains(t, rec.Body.String(), `"UNAUTHORIZED"`)
			}
		})
	}
}

func TestAuthenticateReportsExpiry(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer old")
	rec := httptest.NewRecorder()
	Authenticate(stubValidator{err: auth.ErrExpiredToken}, zap.NewNop())(http.NotFoundHandler()).ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), "Token has expired")
}
