package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cols = []string{"id", "name", "email", "password_hash", "role", "reset_token", "created_at", "updated_at"}

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return New(db), mock
}

func userRow(reset any) *sqlmock.Rows {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(cols).
		AddRow("8d2b7a8e-0a39-4e1f-9a43-1a4d2f4a9b10", "Jane", "jane@example.com", "$argon2id$hash", "subscriber", reset, now, now)
}

func TestGetByEmail_Found(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT .+ FROM users WHERE LOWER\(email\) = LOWER\(\$1\)$`).
		WithArgs("jane@example.com").
		WillReturnRows(userRow(nil))

	u, err := s.GetByEmail(context.Background(), "  Jane@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "Jane", u.Name)
	assert.Equal(t, repository.RoleSubscriber, u.Role)
	assert.Nil(t, u.ResetToken)
}

func TestGetByEmail_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`FROM users WHERE LOWER\(email\)`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetByID_InvalidUUIDIsNotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("not-a-uuid").
		WillReturnError(&pgconn.PgError{Code: pgInvalidText})

	_, err := s.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetByResetToken(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`FROM users WHERE reset_token = \$1`).
		WithArgs("tok").
		WillReturnRows(userRow("tok"))

	u, err := s.GetByResetToken(context.Background(), "tok")
	require.NoError(t, err)
	require.NotNil(t, u.ResetToken)
	assert.Equal(t, "tok", *u.ResetToken)

	// token vacío nunca matchea (y no va a la base)
	_, err = s.GetByResetToken(context.Background(), "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreate_Success(t *testing.T) {
	s, mock := newStoreWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)^INSERT INTO users \(id, name, email, password_hash, role\)\s+VALUES \(\$1, \$2, \$3, \$4, \$5\)\s+RETURNING created_at, updated_at$`).
		WithArgs(sqlmock.AnyArg(), "Jane", "jane@example.com", "hash", "subscriber").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	u, err := s.Create(context.Background(), repository.CreateUserInput{
		Name: "Jane", Email: "JANE@example.com", PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.Equal(t, repository.RoleSubscriber, u.Role)
}

func TestCreate_UniqueViolation(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "users_email_lower_uq"})

	_, err := s.Create(context.Background(), repository.CreateUserInput{
		Name: "Jane", Email: "jane@example.com", PasswordHash: "hash",
	})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestCreate_DBError(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(errors.New("db down"))

	_, err := s.Create(context.Background(), repository.CreateUserInput{
		Name: "Jane", Email: "jane@example.com", PasswordHash: "hash",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.False(t, repository.IsConflict(err))
}

func TestCreate_InvalidInput(t *testing.T) {
	s, _ := newStoreWithMock(t)

	_, err := s.Create(context.Background(), repository.CreateUserInput{Email: "a@b.c", PasswordHash: "h", Role: "root"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestUpdate_NameOnly(t *testing.T) {
	s, mock := newStoreWithMock(t)
	name := "Janet"

	mock.ExpectQuery(`(?s)^UPDATE users\s+SET name = COALESCE\(\$2, name\), password_hash = COALESCE\(\$3, password_hash\)`).
		WithArgs("8d2b7a8e-0a39-4e1f-9a43-1a4d2f4a9b10", "Janet", nil).
		WillReturnRows(userRow(nil))

	_, err := s.Update(context.Background(), "8d2b7a8e-0a39-4e1f-9a43-1a4d2f4a9b10", repository.UpdateUserInput{Name: &name})
	require.NoError(t, err)
}

func TestSetResetToken(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`UPDATE users SET reset_token = \$2, updated_at = now\(\) WHERE id = \$1`).
		WithArgs("u1", "tok").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.SetResetToken(context.Background(), "u1", "tok"))

	mock.ExpectExec(`UPDATE users SET reset_token`).
		WithArgs("u2", "tok").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.SetResetToken(context.Background(), "u2", "tok"), repository.ErrNotFound)
}

func TestResetPassword_ConsumesToken(t *testing.T) {
	s, mock := newStoreWithMock(t)

	q := `UPDATE users SET password_hash = \$2, reset_token = NULL, updated_at = now\(\) WHERE reset_token = \$1`
	mock.ExpectExec(q).WithArgs("tok", "newhash").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("tok", "newhash").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.ResetPassword(context.Background(), "tok", "newhash"))
	assert.ErrorIs(t, s.ResetPassword(context.Background(), "tok", "newhash"), repository.ErrNotFound)
}

func TestSetRole(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`(?s)^UPDATE users SET role = \$2`).
		WithArgs("jane@example.com", "admin").
		WillReturnRows(userRow(nil))

	_, err := s.SetRole(context.Background(), "Jane@example.com", repository.RoleAdmin)
	require.NoError(t, err)

	_, err = s.SetRole(context.Background(), "jane@example.com", repository.Role("root"))
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestMigrate_UsesGoose(t *testing.T) {
	s, _ := newStoreWithMock(t)

	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var gotDir string
	gooseUp = func(_ context.Context, _ *sql.DB, dir string) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, s.Migrate(context.Background()))
	assert.Equal(t, ".", gotDir)

	gooseUp = func(context.Context, *sql.DB, string) error { return errors.New("boom") }
	assert.ErrorContains(t, s.Migrate(context.Background()), "boom")
}

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	assert.NoError(t, New(db).Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
