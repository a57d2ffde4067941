package auth

import (
	"context"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/dropDatabas3/authgate/internal/metrics"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
	"github.com/dropDatabas3/authgate/internal/security/password"
)

// SigninService autentica con email y password.
type SigninService interface {
	Signin(ctx context.Context, email, plain string) (*AuthResult, error)
}

type signinService struct {
	deps Deps
}

func (s *signinService) Signin(ctx context.Context, email, plain string) (res *AuthResult, err error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.signin"), logger.Op("Signin"))
	defer func() { s.deps.Events.AuthEvent(metrics.EventSignin, err == nil) }()

	email = repository.NormalizeEmail(email)
	u, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		log.Error("user lookup failed", logger.Err(err))
		return nil, ErrDirectoryUnavailable
	}

	if !password.Verify(plain, u.PasswordHash) {
		log.Debug("password mismatch", logger.UserID(u.ID))
		return nil, ErrCredentialMismatch
	}

	return s.deps.issueSession(u)
}
