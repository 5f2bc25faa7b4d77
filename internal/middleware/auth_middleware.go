package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sevasetu/sevasetu/internal/service"
)

type contextKey string

const claimsKey contextKey = "claims"

// ClaimsFromContext returns the verified token claims set by the auth
// middleware, or nil when the request was not authenticated.
func ClaimsFromContext(ctx context.Context) *service.Claims {
	claims, _ := ctx.Value(claimsKey).(*service.Claims)
	return claims
}

type AuthMiddleware struct {
	tokenService *service.TokenService
	logger       *logrus.Logger
}

func NewAuthMiddleware(tokenService *service.TokenService, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		logger:       logger,
	}
}

// RequireCitizen admits only requests carrying a citizen session token minted
// by a successful OTP verification.
func (m *AuthMiddleware) RequireCitizen(next http.Handler) http.Handler {
	return m.require(service.RoleCitizen, next)
}

// RequireOfficer admits only requests carrying an authenticated officer token.
func (m *AuthMiddleware) RequireOfficer(next http.Handler) http.Handler {
	return m.require(service.RoleOfficer, next)
}

func (m *AuthMiddleware) require(role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondUnauthorized(w, "Missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.respondUnauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.tokenService.VerifyToken(parts[1])
		if err != nil {
			m.logger.WithError(err).Debug("Token verification failed")
			m.respondUnauthorized(w, "Invalid or expired token")
			return
		}

		if claims.Role != role {
			m.respondUnauthorized(w, "Insufficient role")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"` + message + `"}}`))
}
