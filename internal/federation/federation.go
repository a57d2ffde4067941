// Package federation define el contrato de los verificadores de identidad
// federada (Google, Facebook). Cada proveedor valida su propia aserción y
// devuelve una Identity normalizada.
package federation

import (
	"context"
	"errors"
)

// Provider identifica un proveedor de identidad.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
)

// Assertion es lo que presenta el cliente. Google usa IDToken; Facebook usa
// UserID + AccessToken.
type Assertion struct {
	IDToken     string
	UserID      string
	AccessToken string
}

// Identity es la identidad atestiguada por el proveedor.
type Identity struct {
	Provider      Provider
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}

// Verifier valida una aserción contra su proveedor.
type Verifier interface {
	Provider() Provider
	Verify(ctx context.Context, a Assertion) (*Identity, error)
}

var (
	// ErrInvalidAssertion: el proveedor rechazó la aserción (firma, aud, exp, token).
	ErrInvalidAssertion = errors.New("federation: invalid assertion")
	// ErrEmailNotVerified: la aserción es válida pero el email no está verificado.
	ErrEmailNotVerified = errors.New("federation: email not verified")
	// ErrProviderUnavailable: el proveedor no respondió o respondió con error.
	ErrProviderUnavailable = errors.New("federation: provider unavailable")
	// ErrUnknownProvider: no hay verificador configurado para el proveedor.
	ErrUnknownProvider = errors.New("federation: unknown provider")
)

// Registry resuelve verificadores por proveedor.
type Registry map[Provider]Verifier

// NewRegistry arma el registry ignorando verificadores nil (proveedor deshabilitado).
func NewRegistry(vs ...Verifier) Registry {
	r := Registry{}
	for _, v := range vs {
		if v != nil {
			r[v.Provider()] = v
		}
	}
	return r
}

// Verify delega en el verificador del proveedor.
func (r Registry) Verify(ctx context.Context, p Provider, a Assertion) (*Identity, error) {
	v, ok := r[p]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return v.Verify(ctx, a)
}
