package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/authgate/internal/cache"
)

// ErrPendingNotFound: el registro pendiente no existe o expiró.
var ErrPendingNotFound = errors.New("pending signup not found")

const pendingKeyPrefix = "pending_signup:"

// PendingSignup es lo que el link de activación referencia por id. El
// password viaja ya hasheado y nunca sale del servidor.
type PendingSignup struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// PendingStore guarda signups a la espera de activación.
type PendingStore interface {
	Put(ctx context.Context, id string, p PendingSignup, ttl time.Duration) error
	// Get retorna ErrPendingNotFound si no existe o expiró.
	Get(ctx context.Context, id string) (*PendingSignup, error)
}

type cachePendingStore struct {
	c cache.Client
}

// NewPendingStore implementa PendingStore sobre cache.Client (memory o redis).
func NewPendingStore(c cache.Client) PendingStore {
	return &cachePendingStore{c: c}
}

func (s *cachePendingStore) Put(ctx context.Context, id string, p PendingSignup, ttl time.Duration) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("pending: encode: %w", err)
	}
	return s.c.Set(ctx, pendingKeyPrefix+id, b, ttl)
}

func (s *cachePendingStore) Get(ctx context.Context, id string) (*PendingSignup, error) {
	b, err := s.c.Get(ctx, pendingKeyPrefix+id)
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrPendingNotFound
		}
		return nil, err
	}
	var p PendingSignup
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("pending: decode: %w", err)
	}
	return &p, nil
}
