// Package bootstrap crea o promueve el primer admin del directorio desde la
// CLI. La API HTTP nunca asigna roles.
package bootstrap

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/dropDatabas3/authgate/internal/security/password"
)

// AdminConfig parámetros de CreateAdmin. Email/Name/Password vacíos se piden por In.
type AdminConfig struct {
	Users  repository.UserRepository
	Policy password.Policy
	Hash   password.Params

	Email    string
	Name     string
	Password string

	In  io.Reader
	Out io.Writer
	// ReadPassword lee sin eco (term.ReadPassword); nil = línea de In.
	ReadPassword func() ([]byte, error)
}

// Result describe qué hizo CreateAdmin.
type Result struct {
	User     *repository.User
	Promoted bool // ya existía y se le cambió el rol
}

// CreateAdmin: si el email existe lo promueve a admin (sin tocar el password);
// si no, crea el usuario admin con el password dado.
func CreateAdmin(ctx context.Context, cfg AdminConfig) (*Result, error) {
	if cfg.Users == nil {
		return nil, errors.New("bootstrap: nil user repository")
	}
	if cfg.Hash == (password.Params{}) {
		cfg.Hash = password.Default
	}
	p := newPrompter(cfg)

	email, err := p.value(cfg.Email, "Admin Email: ")
	if err != nil {
		return nil, err
	}
	email = repository.NormalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("bootstrap: invalid email %q", email)
	}

	existing, err := cfg.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() {
			return &Result{User: existing}, nil
		}
		u, err := cfg.Users.SetRole(ctx, email, repository.RoleAdmin)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: promote: %w", err)
		}
		return &Result{User: u, Promoted: true}, nil
	case !repository.IsNotFound(err):
		return nil, fmt.Errorf("bootstrap: lookup: %w", err)
	}

	name, err := p.value(cfg.Name, "Name: ")
	if err != nil {
		return nil, err
	}
	plain := cfg.Password
	if plain == "" {
		if plain, err = p.secret("Password: "); err != nil {
			return nil, err
		}
		confirm, err := p.secret("Confirm Password: ")
		if err != nil {
			return nil, err
		}
		if plain != confirm {
			return nil, errors.New("bootstrap: passwords do not match")
		}
	}
	if err := cfg.Policy.Check(plain); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	hash, err := password.Hash(cfg.Hash, plain)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: hash: %w", err)
	}
	u, err := cfg.Users.Create(ctx, repository.CreateUserInput{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         repository.RoleAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: create: %w", err)
	}
	return &Result{User: u}, nil
}

type prompter struct {
	r        *bufio.Reader
	out      io.Writer
	readPass func() ([]byte, error)
}

func newPrompter(cfg AdminConfig) *prompter {
	in := cfg.In
	if in == nil {
		in = strings.NewReader("")
	}
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	return &prompter{r: bufio.NewReader(in), out: out, readPass: cfg.ReadPassword}
}

func (p *prompter) value(preset, label string) (string, error) {
	if v := strings.TrimSpace(preset); v != "" {
		return v, nil
	}
	fmt.Fprint(p.out, label)
	line, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("bootstrap: read %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	v := strings.TrimSpace(line)
	if v == "" {
		return "", fmt.Errorf("bootstrap: %s cannot be empty", strings.TrimSuffix(label, ": "))
	}
	return v, nil
}

func (p *prompter) secret(label string) (string, error) {
	if p.readPass == nil {
		return p.value("", label)
	}
	fmt.Fprint(p.out, label)
	b, err := p.readPass()
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
