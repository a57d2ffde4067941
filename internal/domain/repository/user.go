package repository

import (
	"context"
	"strings"
	"time"
)

// Role es el rol de un usuario.
type Role string

const (
	RoleSubscriber Role = "subscriber"
	RoleAdmin      Role = "admin"
)

// Valid indica si el rol es uno de los conocidos.
func (r Role) Valid() bool {
	return r == RoleSubscriber || r == RoleAdmin
}

// User representa un registro de identidad del directorio.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	// ResetToken guarda el último token de reset emitido; nil si no hay uno vigente.
	ResetToken *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsAdmin indica si el usuario tiene rol admin.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	Name         string
	Email        string
	PasswordHash string
	// Role vacío = RoleSubscriber.
	Role Role
}

// UpdateUserInput contiene los campos actualizables. nil = no tocar.
type UpdateUserInput struct {
	Name         *string
	PasswordHash *string
}

// UserRepository define las operaciones del directorio de usuarios.
type UserRepository interface {
	// GetByEmail busca por email (case-insensitive). ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID busca por ID. ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByResetToken busca el usuario cuyo reset token guardado coincide.
	GetByResetToken(ctx context.Context, token string) (*User, error)

	// Create crea un usuario. ErrConflict si el email ya existe.
	Create(ctx context.Context, in CreateUserInput) (*User, error)

	// Update actualiza nombre y/o hash. ErrNotFound si no existe.
	Update(ctx context.Context, id string, in UpdateUserInput) (*User, error)

	// SetResetToken guarda el token de reset en el usuario.
	SetResetToken(ctx context.Context, id, token string) error

	// ResetPassword reemplaza el hash y limpia el reset token solo si el token
	// guardado sigue siendo token. ErrNotFound si ninguna fila coincide.
	ResetPassword(ctx context.Context, token, newHash string) error

	// SetRole cambia el rol (uso administrativo, fuera de la API HTTP).
	SetRole(ctx context.Context, email string, role Role) (*User, error)

	// Ping verifica que el almacenamiento responda.
	Ping(ctx context.Context) error
}

// NormalizeEmail aplica la forma canónica usada para guardar y buscar emails.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
