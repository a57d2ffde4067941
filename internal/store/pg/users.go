package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation = "23505"
	pgInvalidText     = "22P02"
)

const userColumns = `id, name, email, password_hash, role, reset_token, created_at, updated_at`

var _ repository.UserRepository = (*Store)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*repository.User, error) {
	var (
		u     repository.User
		role  string
		reset sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &reset, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = repository.Role(role)
	if reset.Valid {
		tok := reset.String
		u.ResetToken = &tok
	}
	return &u, nil
}

// mapErr traduce errores de database/sql y pgx a errores de dominio.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", op, repository.ErrConflict)
		case pgInvalidText:
			// id con formato inválido: no puede existir
			return repository.ErrNotFound
		}
	}
	return fmt.Errorf("%s: db error: %w", op, err)
}

func (s *Store) getOne(ctx context.Context, op, where string, arg any) (*repository.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	u, err := scanUser(s.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	return s.getOne(ctx, "get user by email", `LOWER(email) = LOWER($1)`, repository.NormalizeEmail(email))
}

func (s *Store) GetByID(ctx context.Context, id string) (*repository.User, error) {
	return s.getOne(ctx, "get user by id", `id = $1`, id)
}

func (s *Store) GetByResetToken(ctx context.Context, token string) (*repository.User, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	return s.getOne(ctx, "get user by reset token", `reset_token = $1`, token)
}

func (s *Store) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	role := in.Role
	if role == "" {
		role = repository.RoleSubscriber
	}
	if !role.Valid() || in.Email == "" || in.PasswordHash == "" {
		return nil, repository.ErrInvalidInput
	}

	u := &repository.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        repository.NormalizeEmail(in.Email),
		PasswordHash: in.PasswordHash,
		Role:         role,
	}
	const q = `INSERT INTO users (id, name, email, password_hash, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role)).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr("create user", err)
	}
	return u, nil
}

func (s *Store) Update(ctx context.Context, id string, in repository.UpdateUserInput) (*repository.User, error) {
	const q = `UPDATE users
SET name = COALESCE($2, name), password_hash = COALESCE($3, password_hash), updated_at = now()
WHERE id = $1
RETURNING ` + userColumns
	u, err := scanUser(s.db.QueryRowContext(ctx, q, id, nullString(in.Name), nullString(in.PasswordHash)))
	if err != nil {
		return nil, mapErr("update user", err)
	}
	return u, nil
}

func (s *Store) SetResetToken(ctx context.Context, id, token string) error {
	const q = `UPDATE users SET reset_token = $2, updated_at = now() WHERE id = $1`
	return s.execOne(ctx, "set reset token", q, id, token)
}

func (s *Store) ResetPassword(ctx context.Context, token, newHash string) error {
	if token == "" {
		return repository.ErrNotFound
	}
	const q = `UPDATE users SET password_hash = $2, reset_token = NULL, updated_at = now() WHERE reset_token = $1`
	return s.execOne(ctx, "reset password", q, token, newHash)
}

func (s *Store) SetRole(ctx context.Context, email string, role repository.Role) (*repository.User, error) {
	if !role.Valid() {
		return nil, repository.ErrInvalidInput
	}
	const q = `UPDATE users SET role = $2, updated_at = now()
WHERE LOWER(email) = LOWER($1)
RETURNING ` + userColumns
	u, err := scanUser(s.db.QueryRowContext(ctx, q, repository.NormalizeEmail(email), string(role)))
	if err != nil {
		return nil, mapErr("set role", err)
	}
	return u, nil
}

// execOne ejecuta un UPDATE que debe afectar exactamente una fila.
func (s *Store) execOne(ctx context.Context, op, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return mapErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(op, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
