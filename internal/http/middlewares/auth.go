package middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
	httperrors "github.com/dropDatabas3/authgate/internal/http/errors"
	"github.com/dropDatabas3/authgate/internal/http/helpers"
	jwtx "github.com/dropDatabas3/authgate/internal/jwt"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

// SessionParser valida tokens de intención (*jwt.Issuer lo implementa).
type SessionParser interface {
	Parse(kind jwtx.Kind, raw string) (*jwtx.Claims, error)
}

// UserLookup resuelve el registro del usuario autenticado.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*repository.User, error)
}

var (
	errAdminUserNotFound = httperrors.New(http.StatusBadRequest, "USER_NOT_FOUND", "User not found")
	errAdminOnly         = httperrors.New(http.StatusBadRequest, "ADMIN_REQUIRED", "Admin resource. Access denied.")
)

// RequireSignin exige "Authorization: Bearer <session token>". Verifica firma,
// expiración y kind; inyecta claims + user id en el contexto.
// Falla => 401 con WWW-Authenticate.
func RequireSignin(parser SessionParser) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.From(r.Context()).With(logger.Layer("middleware"), logger.Op("RequireSignin"))

			raw := helpers.BearerToken(r)
			if raw == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				httperrors.WriteError(w, httperrors.ErrTokenMissing)
				return
			}

			claims, err := parser.Parse(jwtx.KindSession, raw)
			if err != nil {
				desc := "invalid token"
				if errors.Is(err, jwtx.ErrExpired) {
					desc = "token expired"
				}
				log.Debug("session token rejected", logger.Err(err))
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="`+desc+`"`)
				httperrors.WriteError(w, httperrors.ErrTokenInvalid.WithCause(err))
				return
			}

			userID := claims.UserID()
			ctx := WithClaims(r.Context(), claims)
			ctx = WithUserID(ctx, userID)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(userID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin va después de RequireSignin. Carga el registro del usuario;
// inexistente o rol != admin => 400. Inyecta el registro en el contexto.
func RequireAdmin(users UserLookup) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.From(ctx).With(logger.Layer("middleware"), logger.Op("RequireAdmin"))

			userID := GetUserID(ctx)
			if userID == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}

			u, err := users.GetByID(ctx, userID)
			if err != nil || u == nil {
				if err != nil && !repository.IsNotFound(err) {
					log.Error("user lookup failed", logger.Err(err))
				}
				httperrors.WriteError(w, errAdminUserNotFound.WithCause(err))
				return
			}
			if !u.IsAdmin() {
				log.Info("admin access denied", logger.Role(string(u.Role)))
				httperrors.WriteError(w, errAdminOnly)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, u)))
		})
	}
}
