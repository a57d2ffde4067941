// Package google verifica ID tokens de Google Sign-In contra el JWKS público
// de Google (firma RS256, iss, aud, exp y email_verified).
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/authgate/internal/federation"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

const DefaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

var issuers = map[string]struct{}{
	"accounts.google.com":         {},
	"https://accounts.google.com": {},
}

type Config struct {
	ClientID string
	JWKSURL  string
	// Leeway tolera skew de reloj en exp/iat.
	Leeway  time.Duration
	Timeout time.Duration
}

type Verifier struct {
	cfg  Config
	http *http.Client
	now  func() time.Time

	mu   sync.RWMutex
	jwks *keyfunc.JWKS
	sf   singleflight.Group
}

func New(cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("google: client id required")
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = DefaultJWKSURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Verifier{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		now:  time.Now,
	}, nil
}

// WithClock reemplaza el reloj (tests).
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

func (v *Verifier) Provider() federation.Provider { return federation.ProviderGoogle }

// keys obtiene el JWKS de forma lazy; el refresh posterior corre en background.
func (v *Verifier) keys() (*keyfunc.JWKS, error) {
	v.mu.RLock()
	j := v.jwks
	v.mu.RUnlock()
	if j != nil {
		return j, nil
	}

	out, err, _ := v.sf.Do("jwks", func() (any, error) {
		v.mu.RLock()
		j := v.jwks
		v.mu.RUnlock()
		if j != nil {
			return j, nil
		}
		j, err := keyfunc.Get(v.cfg.JWKSURL, keyfunc.Options{
			Client: v.http,
			RefreshErrorHandler: func(err error) {
				logger.L().Warn("google jwks refresh failed",
					logger.Component("federation.google"), logger.Err(err))
			},
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshTimeout:    v.cfg.Timeout,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, err
		}
		v.mu.Lock()
		v.jwks = j
		v.mu.Unlock()
		return j, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*keyfunc.JWKS), nil
}

// Close detiene el refresh en background del JWKS.
func (v *Verifier) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.jwks != nil {
		v.jwks.EndBackground()
		v.jwks = nil
	}
}

type idClaims struct {
	Email         string   `json:"email"`
	EmailVerified flexBool `json:"email_verified"`
	Name          string   `json:"name"`
	jwtv5.RegisteredClaims
}

// flexBool acepta true o "true" (Google emitió ambos formatos).
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch strings.ToLower(s) {
	case "true", "1":
		*b = true
	case "false", "0", "", "null":
		*b = false
	default:
		var raw bool
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("email_verified: %w", err)
		}
		*b = flexBool(raw)
	}
	return nil
}

// Verify valida el ID token y devuelve la identidad atestiguada.
func (v *Verifier) Verify(ctx context.Context, a federation.Assertion) (*federation.Identity, error) {
	raw := strings.TrimSpace(a.IDToken)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty id token", federation.ErrInvalidAssertion)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	jwks, err := v.keys()
	if err != nil {
		return nil, fmt.Errorf("%w: jwks: %v", federation.ErrProviderUnavailable, err)
	}

	parser := jwtv5.NewParser(
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithAudience(v.cfg.ClientID),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithLeeway(v.cfg.Leeway),
		jwtv5.WithTimeFunc(v.now),
	)
	var c idClaims
	if _, err := parser.ParseWithClaims(raw, &c, jwks.Keyfunc); err != nil {
		return nil, fmt.Errorf("%w: %v", federation.ErrInvalidAssertion, err)
	}
	if _, ok := issuers[c.Issuer]; !ok {
		return nil, fmt.Errorf("%w: bad issuer %q", federation.ErrInvalidAssertion, c.Issuer)
	}
	if c.Subject == "" || strings.TrimSpace(c.Email) == "" {
		return nil, fmt.Errorf("%w: missing sub/email", federation.ErrInvalidAssertion)
	}
	if !c.EmailVerified {
		return nil, federation.ErrEmailNotVerified
	}

	return &federation.Identity{
		Provider:      federation.ProviderGoogle,
		Subject:       c.Subject,
		Email:         c.Email,
		Name:          c.Name,
		EmailVerified: true,
	}, nil
}
