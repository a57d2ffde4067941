package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
	jwtx "github.com/dropDatabas3/authgate/internal/jwt"
	"github.com/dropDatabas3/authgate/internal/metrics"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
	"github.com/dropDatabas3/authgate/internal/security/password"
)

// SignupInput son los datos ya validados del formulario de signup.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// SignupService maneja el signup con activación por email.
type SignupService interface {
	// RequestSignup deja el signup pendiente y envía el link de activación.
	// Retorna el email normalizado al que se envió.
	RequestSignup(ctx context.Context, in SignupInput) (string, error)
	// ActivateAccount materializa el usuario a partir del token de activación.
	ActivateAccount(ctx context.Context, token string) (*repository.User, error)
}

type signupService struct {
	deps Deps
}

func (s *signupService) RequestSignup(ctx context.Context, in SignupInput) (sentTo string, err error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.signup"), logger.Op("RequestSignup"))
	defer func() { s.deps.Events.AuthEvent(metrics.EventSignupRequested, err == nil) }()

	email := repository.NormalizeEmail(in.Email)
	if perr := s.deps.Policy.Check(in.Password); perr != nil {
		return "", perr
	}

	// Atajo: la unicidad real se aplica en Create al activar.
	if _, err := s.deps.Users.GetByEmail(ctx, email); err == nil {
		return "", ErrEmailTaken
	} else if !repository.IsNotFound(err) {
		log.Error("user lookup failed", logger.Err(err))
		return "", ErrDirectoryUnavailable
	}

	hash, err := password.Hash(s.deps.Hash, in.Password)
	if err != nil {
		log.Error("password hash failed", logger.Err(err))
		return "", err
	}

	pid := uuid.NewString()
	ttl := s.deps.Tokens.TTL(jwtx.KindActivateAccount)
	pending := PendingSignup{Name: in.Name, Email: email, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	if err := s.deps.Pending.Put(ctx, pid, pending, ttl); err != nil {
		log.Error("pending signup store failed", logger.Err(err))
		return "", ErrDirectoryUnavailable
	}

	token, err := s.deps.Tokens.MintActivation(pid, in.Name, email)
	if err != nil {
		log.Error("activation token mint failed", logger.Err(err))
		return "", ErrTokenIssueFailed
	}

	if err := s.deps.Notifier.SendActivation(ctx, in.Name, email, token, ttl); err != nil {
		log.Warn("activation email failed", logger.Email(email), logger.Err(err))
		return "", &NotificationError{Err: err}
	}

	log.Info("activation email sent", logger.Email(email))
	return email, nil
}

func (s *signupService) ActivateAccount(ctx context.Context, token string) (u *repository.User, err error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.signup"), logger.Op("ActivateAccount"))
	defer func() { s.deps.Events.AuthEvent(metrics.EventAccountActivated, err == nil) }()

	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := s.deps.Tokens.Parse(jwtx.KindActivateAccount, token)
	if err != nil {
		log.Debug("activation token rejected", logger.Err(err))
		return nil, ErrLinkExpiredOrInvalid
	}
	if claims.PendingID == "" {
		return nil, ErrLinkExpiredOrInvalid
	}

	pending, err := s.deps.Pending.Get(ctx, claims.PendingID)
	if err != nil {
		if !errors.Is(err, ErrPendingNotFound) {
			log.Error("pending signup lookup failed", logger.Err(err))
		}
		return nil, ErrLinkExpiredOrInvalid
	}
	if pending.Email != repository.NormalizeEmail(claims.Email) {
		log.Warn("pending signup does not match token", logger.Email(claims.Email))
		return nil, ErrLinkExpiredOrInvalid
	}

	// El registro pendiente no se borra: un replay cae en ErrConflict.
	u, err = s.deps.Users.Create(ctx, repository.CreateUserInput{
		Name:         pending.Name,
		Email:        pending.Email,
		PasswordHash: pending.PasswordHash,
		Role:         repository.RoleSubscriber,
	})
	if err != nil {
		if repository.IsConflict(err) {
			log.Info("activation for existing email", logger.Email(pending.Email))
		} else {
			log.Error("user create failed", logger.Err(err))
		}
		return nil, ErrDirectoryWrite
	}

	log.Info("account activated", logger.UserID(u.ID))
	return u, nil
}
