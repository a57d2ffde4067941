package auth

import (
	"context"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
	jwtx "github.com/dropDatabas3/authgate/internal/jwt"
	"github.com/dropDatabas3/authgate/internal/metrics"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
	"github.com/dropDatabas3/authgate/internal/security/password"
)

// PasswordService maneja el olvido y reseteo de password.
type PasswordService interface {
	// RequestReset emite un token de reset, lo guarda en el usuario y lo
	// envía por email. Retorna el email normalizado.
	RequestReset(ctx context.Context, email string) (string, error)
	// Reset cambia el password si el token es válido y sigue siendo el guardado.
	Reset(ctx context.Context, token, newPassword string) error
}

type passwordService struct {
	deps Deps
}

func (s *passwordService) RequestReset(ctx context.Context, email string) (sentTo string, err error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.password"), logger.Op("RequestReset"))
	defer func() { s.deps.Events.AuthEvent(metrics.EventPasswordResetRequested, err == nil) }()

	email = repository.NormalizeEmail(email)
	u, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", ErrUserNotFound
		}
		log.Error("user lookup failed", logger.Err(err))
		return "", ErrDirectoryUnavailable
	}

	token, err := s.deps.Tokens.MintReset(u.ID, u.Name)
	if err != nil {
		log.Error("reset token mint failed", logger.Err(err))
		return "", ErrTokenIssueFailed
	}

	// Un token nuevo reemplaza al anterior; sólo el último sirve.
	if err := s.deps.Users.SetResetToken(ctx, u.ID, token); err != nil {
		log.Error("reset token store failed", logger.UserID(u.ID), logger.Err(err))
		return "", ErrDirectoryWrite
	}

	ttl := s.deps.Tokens.TTL(jwtx.KindResetPassword)
	if err := s.deps.Notifier.SendPasswordReset(ctx, u.Name, u.Email, token, ttl); err != nil {
		log.Warn("reset email failed", logger.UserID(u.ID), logger.Err(err))
		return "", &NotificationError{Err: err}
	}

	log.Info("reset email sent", logger.UserID(u.ID))
	return u.Email, nil
}

func (s *passwordService) Reset(ctx context.Context, token, newPassword string) (err error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.password"), logger.Op("Reset"))
	defer func() { s.deps.Events.AuthEvent(metrics.EventPasswordReset, err == nil) }()

	if token == "" {
		return ErrMissingToken
	}
	if perr := s.deps.Policy.Check(newPassword); perr != nil {
		return perr
	}

	if _, err := s.deps.Tokens.Parse(jwtx.KindResetPassword, token); err != nil {
		log.Debug("reset token rejected", logger.Err(err))
		return ErrLinkExpiredOrInvalid
	}

	u, err := s.deps.Users.GetByResetToken(ctx, token)
	if err != nil {
		if !repository.IsNotFound(err) {
			log.Error("reset token lookup failed", logger.Err(err))
		}
		return ErrRecordNotFound
	}

	hash, err := password.Hash(s.deps.Hash, newPassword)
	if err != nil {
		log.Error("password hash failed", logger.Err(err))
		return ErrDirectoryWrite
	}

	// Condicional sobre el token guardado: si otro request lo consumió, no escribe.
	if err := s.deps.Users.ResetPassword(ctx, token, hash); err != nil {
		if repository.IsNotFound(err) {
			return ErrRecordNotFound
		}
		log.Error("password reset write failed", logger.UserID(u.ID), logger.Err(err))
		return ErrDirectoryWrite
	}

	log.Info("password reset", logger.UserID(u.ID))
	return nil
}
