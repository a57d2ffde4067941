// Package memory implementa el directorio de usuarios en memoria, para
// desarrollo local y tests. No persiste entre reinicios.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/google/uuid"
)

// Store implementa repository.UserRepository con un map protegido por mutex.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*repository.User
	byEmail map[string]string // email normalizado -> id
	now     func() time.Time
}

var _ repository.UserRepository = (*Store)(nil)

func New() *Store {
	return &Store{
		byID:    make(map[string]*repository.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// clone evita que el caller mute el registro guardado.
func clone(u *repository.User) *repository.User {
	cp := *u
	if u.ResetToken != nil {
		tok := *u.ResetToken
		cp.ResetToken = &tok
	}
	return &cp
}

func (s *Store) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[repository.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *Store) GetByID(_ context.Context, id string) (*repository.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (s *Store) GetByResetToken(_ context.Context, token string) (*repository.User, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.byID {
		if u.ResetToken != nil && *u.ResetToken == token {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) Create(_ context.Context, in repository.CreateUserInput) (*repository.User, error) {
	role := in.Role
	if role == "" {
		role = repository.RoleSubscriber
	}
	email := repository.NormalizeEmail(in.Email)
	if !role.Valid() || email == "" || in.PasswordHash == "" {
		return nil, repository.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[email]; taken {
		return nil, repository.ErrConflict
	}
	now := s.now()
	u := &repository.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        email,
		PasswordHash: in.PasswordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[u.ID] = u
	s.byEmail[email] = u.ID
	return clone(u), nil
}

func (s *Store) Update(_ context.Context, id string, in repository.UpdateUserInput) (*repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.PasswordHash != nil {
		u.PasswordHash = *in.PasswordHash
	}
	u.UpdatedAt = s.now()
	return clone(u), nil
}

func (s *Store) SetResetToken(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ResetToken = &token
	u.UpdatedAt = s.now()
	return nil
}

func (s *Store) ResetPassword(_ context.Context, token, newHash string) error {
	if token == "" {
		return repository.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.ResetToken != nil && *u.ResetToken == token {
			u.PasswordHash = newHash
			u.ResetToken = nil
			u.UpdatedAt = s.now()
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *Store) SetRole(_ context.Context, email string, role repository.Role) (*repository.User, error) {
	if !role.Valid() {
		return nil, repository.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[repository.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := s.byID[id]
	u.Role = role
	u.UpdatedAt = s.now()
	return clone(u), nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Len devuelve la cantidad de usuarios (tests).
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
