/**
 * @description
 * Authentication middleware for the penalty trigger endpoint. The scheduler calls in with
 * either the shared internal API key or a service-role JWT signed with the project secret.
 */
package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const serviceRole = "service_role"

// AuthConfig configures TriggerAuthMiddleware. With both fields empty the endpoint is open.
type AuthConfig struct {
	InternalAPIKey string
	JWTSecret      string
}

func (c AuthConfig) enabled() bool {
	return c.InternalAPIKey != "" || c.JWTSecret != ""
}

// TriggerAuthMiddleware accepts a matching X-Internal-API-Key header or a Bearer token
// signed with JWTSecret whose role claim is service_role.
func TriggerAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.enabled() {
				next.ServeHTTP(w, r)
				return
			}

			if cfg.InternalAPIKey != "" {
				provided := r.Header.Get("X-Internal-API-Key")
				if provided != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.InternalAPIKey)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}

			if cfg.JWTSecret != "" {
				if err := validateServiceRoleToken(r.Header.Get("Authorization"), cfg.JWTSecret); err == nil {
					next.ServeHTTP(w, r)
					return
				}
			}

			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		})
	}
}

func validateServiceRoleToken(authHeader, secret string) error {
	if authHeader == "" {
		return fmt.Errorf("authorization header required")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return fmt.Errorf("invalid authorization header format")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}

	role, _ := claims["role"].(string)
	if role != serviceRole {
		return fmt.Errorf("token role %q is not allowed", role)
	}
	return nil
}
