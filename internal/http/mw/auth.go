// Package mw provides HTTP middleware.
package mw

import (
	"context"
	"net/http"
	"strings"

	"github.com/csvtree/csvtree-api/internal/auth"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// UserClaimsKey is the context key for user claims.
	UserClaimsKey ContextKey = "user_claims"
)

// UserClaims represents the authenticated user on a request.
type UserClaims struct {
	UserID string
	Email  string
	Name   string
	Admin  bool
}

// Auth returns middleware that requires a valid bearer token and stores the
// resulting claims in the request context.
func Auth(verifier *auth.Verifier, isAdminUser func(string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			token := authHeader
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}

			verified, err := verifier.VerifyToken(token)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			claims := &UserClaims{
				UserID: verified.UserID,
				Email:  verified.Email,
				Name:   verified.Name,
				Admin:  verified.Admin,
			}
			// The env allowlist grants admin alongside the token claim
			if !claims.Admin && isAdminUser != nil && isAdminUser(claims.UserID) {
				claims.Admin = true
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly returns middleware that rejects non-admin users. Must run after Auth.
func AdminOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserClaims(r.Context())
			if claims == nil || !claims.Admin {
				http.Error(w, `{"error":"admin access required"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserClaims extracts user claims from the context, or nil when absent.
func GetUserClaims(ctx context.Context) *UserClaims {
	claims, _ := ctx.Value(UserClaimsKey).(*UserClaims)
	return claims
}
