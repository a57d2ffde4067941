// Package jwt emite y valida tokens de intención (activación, reset, sesión).
//
// Cada tipo de token tiene su propio secreto HMAC y su propio TTL. Además del
// secreto, el claim "kind" se verifica al parsear: un token emitido para un
// tipo nunca valida como otro.
package jwt

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind identifica la intención que codifica un token.
type Kind string

const (
	KindActivateAccount Kind = "activate_account"
	KindResetPassword   Kind = "reset_password"
	KindSession         Kind = "session"
)

var (
	ErrExpired          = errors.New("token expired")
	ErrInvalid          = errors.New("token invalid")
	ErrKindMismatch     = errors.New("token kind mismatch")
	ErrMissingSecret    = errors.New("missing signing secret")
	ErrDuplicatedSecret = errors.New("signing secrets must differ per token kind")
)

// Default TTLs.
const (
	DefaultActivationTTL = 10 * time.Minute
	DefaultResetTTL      = 10 * time.Minute
	DefaultSessionTTL    = 7 * 24 * time.Hour
)

// Config agrupa secretos y TTLs por tipo de token.
type Config struct {
	Issuer string

	ActivationSecret []byte
	ResetSecret      []byte
	SessionSecret    []byte

	ActivationTTL time.Duration
	ResetTTL      time.Duration
	SessionTTL    time.Duration
}

type kindKey struct {
	secret []byte
	ttl    time.Duration
}

// Issuer firma y valida tokens HS256.
type Issuer struct {
	iss  string
	keys map[Kind]kindKey
	now  func() time.Time
}

// NewIssuer valida la configuración y construye el Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	secrets := map[Kind][]byte{
		KindActivateAccount: cfg.ActivationSecret,
		KindResetPassword:   cfg.ResetSecret,
		KindSession:         cfg.SessionSecret,
	}
	for k, s := range secrets {
		if len(s) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingSecret, k)
		}
	}
	if bytes.Equal(cfg.ActivationSecret, cfg.ResetSecret) ||
		bytes.Equal(cfg.ActivationSecret, cfg.SessionSecret) ||
		bytes.Equal(cfg.ResetSecret, cfg.SessionSecret) {
		return nil, ErrDuplicatedSecret
	}

	return &Issuer{
		iss: cfg.Issuer,
		keys: map[Kind]kindKey{
			KindActivateAccount: {secret: cfg.ActivationSecret, ttl: orDefault(cfg.ActivationTTL, DefaultActivationTTL)},
			KindResetPassword:   {secret: cfg.ResetSecret, ttl: orDefault(cfg.ResetTTL, DefaultResetTTL)},
			KindSession:         {secret: cfg.SessionSecret, ttl: orDefault(cfg.SessionTTL, DefaultSessionTTL)},
		},
		now: time.Now,
	}, nil
}

// WithClock reemplaza el reloj (tests).
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	cp := *i
	cp.now = now
	return &cp
}

// TTL devuelve la vigencia configurada para un tipo.
func (i *Issuer) TTL(kind Kind) time.Duration {
	return i.keys[kind].ttl
}

// MintActivation emite el token del link de activación. Solo lleva el id del
// registro pendiente y datos no sensibles; nunca el password.
func (i *Issuer) MintActivation(pendingID, name, email string) (string, error) {
	return i.sign(KindActivateAccount, Claims{
		PendingID: pendingID,
		Name:      name,
		Email:     email,
	})
}

// MintReset emite el token de reset de password para el usuario.
func (i *Issuer) MintReset(userID, name string) (string, error) {
	return i.sign(KindResetPassword, Claims{
		RegisteredClaims: jwtv5.RegisteredClaims{Subject: userID},
		Name:             name,
	})
}

// MintSession emite el token de sesión.
func (i *Issuer) MintSession(userID string) (string, error) {
	return i.sign(KindSession, Claims{
		RegisteredClaims: jwtv5.RegisteredClaims{Subject: userID},
	})
}

func (i *Issuer) sign(kind Kind, c Claims) (string, error) {
	k, ok := i.keys[kind]
	if !ok {
		return "", fmt.Errorf("unknown token kind %q", kind)
	}
	now := i.now()
	c.Kind = kind
	c.Issuer = i.iss
	c.ID = uuid.NewString()
	c.IssuedAt = jwtv5.NewNumericDate(now)
	c.ExpiresAt = jwtv5.NewNumericDate(now.Add(k.ttl))

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, c)
	tk.Header["typ"] = "JWT"
	signed, err := tk.SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
