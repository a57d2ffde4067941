package middlewares

import (
	"context"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
	jwtx "github.com/dropDatabas3/authgate/internal/jwt"
)

// =================================================================================
// CONTEXT KEYS
// =================================================================================

type ctxKey string

const (
	ctxClaimsKey    ctxKey = "claims"
	ctxUserIDKey    ctxKey = "user_id"
	ctxUserKey      ctxKey = "user"
	ctxRequestIDKey ctxKey = "request_id"
)

// =================================================================================
// SETTERS
// =================================================================================

// WithClaims inyecta las claims de sesión en el contexto.
func WithClaims(ctx context.Context, c *jwtx.Claims) context.Context {
	return context.WithValue(ctx, ctxClaimsKey, c)
}

// WithUserID inyecta el user ID en el contexto.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, userID)
}

// WithUser inyecta el registro completo (lo hace RequireAdmin).
func WithUser(ctx context.Context, u *repository.User) context.Context {
	return context.WithValue(ctx, ctxUserKey, u)
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// =================================================================================
// GETTERS
// =================================================================================

// GetClaims retorna nil si RequireSignin no corrió.
func GetClaims(ctx context.Context) *jwtx.Claims {
	c, _ := ctx.Value(ctxClaimsKey).(*jwtx.Claims)
	return c
}

// GetUserID retorna "" si no hay sesión.
func GetUserID(ctx context.Context) string {
	s, _ := ctx.Value(ctxUserIDKey).(string)
	return s
}

// GetUser retorna nil si RequireAdmin no corrió.
func GetUser(ctx context.Context) *repository.User {
	u, _ := ctx.Value(ctxUserKey).(*repository.User)
	return u
}

// GetRequestID retorna "" si WithRequestID no corrió.
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(ctxRequestIDKey).(string)
	return s
}
