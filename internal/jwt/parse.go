package jwt

import (
	"errors"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Claims es el payload común de los tokens de intención. Los campos no
// usados por un tipo quedan vacíos y se omiten al serializar.
type Claims struct {
	Kind      Kind   `json:"kind"`
	PendingID string `json:"pid,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	jwtv5.RegisteredClaims
}

// UserID devuelve el sub del token (reset y sesión).
func (c *Claims) UserID() string {
	return c.Subject
}

// Parse valida firma (HS256 con el secreto del tipo), expiración, issuer y
// tipo. Devuelve ErrExpired, ErrKindMismatch o ErrInvalid.
func (i *Issuer) Parse(kind Kind, raw string) (*Claims, error) {
	k, ok := i.keys[kind]
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return nil, ErrInvalid
	}

	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithIssuedAt(),
		jwtv5.WithTimeFunc(i.now),
	}
	if i.iss != "" {
		opts = append(opts, jwtv5.WithIssuer(i.iss))
	}

	var c Claims
	tok, err := jwtv5.ParseWithClaims(raw, &c, func(*jwtv5.Token) (any, error) {
		return k.secret, nil
	}, opts...)
	switch {
	case err != nil && errors.Is(err, jwtv5.ErrTokenExpired):
		return nil, ErrExpired
	case err != nil || !tok.Valid:
		return nil, ErrInvalid
	}

	if c.Kind != kind {
		return nil, ErrKindMismatch
	}
	return &c, nil
}
