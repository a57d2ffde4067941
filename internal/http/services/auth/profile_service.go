package auth

import (
	"context"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
	"github.com/dropDatabas3/authgate/internal/security/password"
)

// ProfileInput campos opcionales; vacío = no cambia.
type ProfileInput struct {
	Name     string
	Password string
}

// ProfileService lectura y actualización del perfil propio.
type ProfileService interface {
	Get(ctx context.Context, userID string) (*repository.User, error)
	Update(ctx context.Context, userID string, in ProfileInput) (*repository.User, error)
}

type profileService struct {
	deps Deps
}

func (s *profileService) Get(ctx context.Context, userID string) (*repository.User, error) {
	u, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		logger.From(ctx).Error("user lookup failed", logger.Layer("service"), logger.Op("Profile.Get"), logger.Err(err))
		return nil, ErrDirectoryUnavailable
	}
	return u, nil
}

func (s *profileService) Update(ctx context.Context, userID string, in ProfileInput) (*repository.User, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.profile"), logger.Op("Update"))

	var upd repository.UpdateUserInput
	if in.Name != "" {
		upd.Name = &in.Name
	}
	if in.Password != "" {
		if perr := s.deps.Policy.Check(in.Password); perr != nil {
			return nil, perr
		}
		hash, err := password.Hash(s.deps.Hash, in.Password)
		if err != nil {
			log.Error("password hash failed", logger.Err(err))
			return nil, ErrDirectoryWrite
		}
		upd.PasswordHash = &hash
	}

	u, err := s.deps.Users.Update(ctx, userID, upd)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		log.Error("user update failed", logger.UserID(userID), logger.Err(err))
		return nil, ErrDirectoryWrite
	}
	return u, nil
}
