package mw

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/csvtree/csvtree-api/internal/auth"
)

// SecurityScheme is the name of the bearer security scheme in OpenAPI.
const SecurityScheme = "bearerAuth"

// OperationMetadataKey is the key type for operation metadata requirements.
type OperationMetadataKey string

// MetaKeyRequireAdmin marks operations that need an admin caller.
const MetaKeyRequireAdmin OperationMetadataKey = "requireAdmin"

// HumaAuth returns a Huma middleware that authenticates operations declaring
// the bearer security scheme. Operations without a security requirement pass
// through untouched.
func HumaAuth(api huma.API, verifier *auth.Verifier, isAdminUser func(string) bool) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op == nil || !operationRequiresAuth(op) {
			next(ctx)
			return
		}

		authHeader := ctx.Header("Authorization")
		if authHeader == "" {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "missing authorization header")
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		verified, err := verifier.VerifyToken(token)
		if err != nil {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid token")
			return
		}

		claims := &UserClaims{
			UserID: verified.UserID,
			Email:  verified.Email,
			Name:   verified.Name,
			Admin:  verified.Admin,
		}
		if !claims.Admin && isAdminUser != nil && isAdminUser(claims.UserID) {
			claims.Admin = true
		}

		if requiresAdmin(op) && !claims.Admin {
			huma.WriteErr(api, ctx, http.StatusForbidden, "admin access required")
			return
		}

		next(huma.WithContext(ctx, context.WithValue(ctx.Context(), UserClaimsKey, claims)))
	}
}

func operationRequiresAuth(op *huma.Operation) bool {
	for _, req := range op.Security {
		if _, ok := req[SecurityScheme]; ok {
			return true
		}
	}
	return false
}

func requiresAdmin(op *huma.Operation) bool {
	if op.Metadata == nil {
		return false
	}
	required, _ := op.Metadata[string(MetaKeyRequireAdmin)].(bool)
	return required
}
