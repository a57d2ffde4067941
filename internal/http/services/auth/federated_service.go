package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/dropDatabas3/authgate/internal/federation"
	"github.com/dropDatabas3/authgate/internal/metrics"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
	"github.com/dropDatabas3/authgate/internal/security/password"
)

// FederatedService inicia sesión con una identidad verificada por un proveedor.
type FederatedService interface {
	Login(ctx context.Context, p federation.Provider, a federation.Assertion) (*AuthResult, error)
}

type federatedService struct {
	deps Deps
}

func (s *federatedService) Login(ctx context.Context, p federation.Provider, a federation.Assertion) (res *AuthResult, err error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.federated"), logger.Op("Login"), logger.Provider(string(p)))
	defer func() { s.deps.Events.AuthEvent(metrics.EventFederatedLogin, err == nil) }()

	if s.deps.Verifier == nil {
		return nil, ErrFederationFailed
	}

	id, err := s.deps.Verifier.Verify(ctx, p, a)
	if err != nil {
		if errors.Is(err, federation.ErrProviderUnavailable) {
			log.Warn("provider unavailable", logger.Err(err))
		} else {
			log.Debug("assertion rejected", logger.Err(err))
		}
		return nil, ErrFederationFailed
	}

	email := repository.NormalizeEmail(id.Email)
	u, err := s.deps.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.deps.issueSession(u)
	case !repository.IsNotFound(err):
		log.Error("user lookup failed", logger.Err(err))
		return nil, ErrDirectoryUnavailable
	}

	// Usuario nuevo: password aleatorio que nadie conoce.
	hash, err := password.Placeholder(s.deps.Hash)
	if err != nil {
		log.Error("placeholder hash failed", logger.Err(err))
		return nil, ErrDirectoryWrite
	}
	u, err = s.deps.Users.Create(ctx, repository.CreateUserInput{
		Name:         displayName(id),
		Email:        email,
		PasswordHash: hash,
		Role:         repository.RoleSubscriber,
	})
	if err != nil {
		if !repository.IsConflict(err) {
			log.Error("user create failed", logger.Err(err))
			return nil, ErrDirectoryWrite
		}
		// Otro request creó el mismo email entre el lookup y el insert.
		if u, err = s.deps.Users.GetByEmail(ctx, email); err != nil {
			log.Error("user lookup after conflict failed", logger.Err(err))
			return nil, ErrDirectoryWrite
		}
		return s.deps.issueSession(u)
	}

	log.Info("user created from provider", logger.UserID(u.ID))
	return s.deps.issueSession(u)
}

func displayName(id *federation.Identity) string {
	if n := strings.TrimSpace(id.Name); n != "" {
		return n
	}
	local, _, _ := strings.Cut(id.Email, "@")
	return local
}
