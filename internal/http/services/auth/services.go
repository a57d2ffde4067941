// Package auth implementa el ciclo de vida de credenciales y tokens:
// signup con activación por email, signin, reset de password, login
// federado (Google/Facebook) y perfil del usuario autenticado.
//
// Cada flujo respeta el orden: chequeo de existencia → verificación externa
// → mutación del directorio. La unicidad de email la garantiza el directorio
// al escribir; el chequeo previo es sólo un atajo para dar mejor error.
package auth

import (
	"context"
	"time"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/dropDatabas3/authgate/internal/federation"
	jwtx "github.com/dropDatabas3/authgate/internal/jwt"
	"github.com/dropDatabas3/authgate/internal/security/password"
)

// TokenIssuer emite y valida tokens de intención (*jwt.Issuer).
type TokenIssuer interface {
	MintActivation(pendingID, name, email string) (string, error)
	MintReset(userID, name string) (string, error)
	MintSession(userID string) (string, error)
	Parse(kind jwtx.Kind, raw string) (*jwtx.Claims, error)
	TTL(kind jwtx.Kind) time.Duration
}

// Notifier entrega los links por email (*email.Notifier).
type Notifier interface {
	SendActivation(ctx context.Context, name, to, token string, ttl time.Duration) error
	SendPasswordReset(ctx context.Context, name, to, token string, ttl time.Duration) error
}

// Verifier valida aserciones de proveedores externos (federation.Registry).
type Verifier interface {
	Verify(ctx context.Context, p federation.Provider, a federation.Assertion) (*federation.Identity, error)
}

// Events recibe los eventos de ciclo de vida (*metrics.Metrics).
type Events interface {
	AuthEvent(event string, ok bool)
}

type noopEvents struct{}

func (noopEvents) AuthEvent(string, bool) {}

// Deps contiene las dependencias de los services auth.
type Deps struct {
	Users    repository.UserRepository
	Pending  PendingStore
	Tokens   TokenIssuer
	Notifier Notifier
	Verifier Verifier // nil = login federado deshabilitado
	Policy   password.Policy
	Hash     password.Params
	Events   Events // nil = NoOp
}

// Services agrupa los services del dominio auth.
type Services struct {
	Signup    SignupService
	Signin    SigninService
	Password  PasswordService
	Federated FederatedService
	Profile   ProfileService
}

// NewServices crea el agregador de services auth.
func NewServices(d Deps) Services {
	if d.Events == nil {
		d.Events = noopEvents{}
	}
	if d.Hash == (password.Params{}) {
		d.Hash = password.Default
	}
	return Services{
		Signup:    &signupService{deps: d},
		Signin:    &signinService{deps: d},
		Password:  &passwordService{deps: d},
		Federated: &federatedService{deps: d},
		Profile:   &profileService{deps: d},
	}
}

// AuthResult es lo que devuelven signin y login federado.
type AuthResult struct {
	Token string
	User  *repository.User
}

func (d Deps) issueSession(u *repository.User) (*AuthResult, error) {
	tok, err := d.Tokens.MintSession(u.ID)
	if err != nil {
		return nil, ErrTokenIssueFailed
	}
	return &AuthResult{Token: tok, User: u}, nil
}
