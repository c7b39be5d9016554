package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/csvtree/csvtree-api/internal/auth"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

func authedHandler(t *testing.T, captured **UserClaims) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetUserClaims(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	verifier := auth.NewVerifier(testSecret)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{
			name: "valid bearer token",
			authHeader: "Bearer " + signToken(t, jwt.MapClaims{
				"sub": "user_123",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			wantStatus: http.StatusOK,
		},
		{
			name: "raw token without bearer prefix",
			authHeader: signToken(t, jwt.MapClaims{
				"sub": "user_123",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed token",
			authHeader: "Bearer junk",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured *UserClaims
			handler := Auth(verifier, nil)(authedHandler(t, &captured))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if captured == nil || captured.UserID != "user_123" {
					t.Errorf("claims not in context: %+v", captured)
				}
			}
		})
	}
}

func TestAuthAdminAllowlist(t *testing.T) {
	verifier := auth.NewVerifier(testSecret)
	isAdmin := func(userID string) bool { return userID == "user_admin" }

	var captured *UserClaims
	handler := Auth(verifier, isAdmin)(authedHandler(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{
		"sub": "user_admin",
		"exp": time.Now().Add(time.Hour).Unix(),
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured == nil || !captured.Admin {
		t.Errorf("allowlisted user not granted admin: %+v", captured)
	}
}

func TestAdminOnly(t *testing.T) {
	verifier := auth.NewVerifier(testSecret)

	var captured *UserClaims
	handler := Auth(verifier, nil)(AdminOnly()(authedHandler(t, &captured)))

	t.Run("non-admin rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{
			"sub": "user_123",
			"exp": time.Now().Add(time.Hour).Unix(),
		}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("admin claim allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{
			"sub":   "user_123",
			"admin": true,
			"exp":   time.Now().Add(time.Hour).Unix(),
		}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}
