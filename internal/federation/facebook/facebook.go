// Package facebook verifica (userID, accessToken) consultando la Graph API
// con el access token del usuario.
package facebook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/authgate/internal/federation"
)

const (
	DefaultGraphURL = "https://graph.facebook.com"
	DefaultVersion  = "v2.11"
)

type Config struct {
	GraphURL string
	Version  string
	// AppSecret es opcional; si está, se envía appsecret_proof.
	AppSecret string
	Timeout   time.Duration
}

type Verifier struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Verifier {
	if cfg.GraphURL == "" {
		cfg.GraphURL = DefaultGraphURL
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.GraphURL = strings.TrimRight(cfg.GraphURL, "/")
	return &Verifier{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (v *Verifier) Provider() federation.Provider { return federation.ProviderFacebook }

type graphUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func (v *Verifier) profileURL(userID, accessToken string) string {
	q := url.Values{}
	q.Set("fields", "id,name,email")
	if v.cfg.AppSecret != "" {
		mac := hmac.New(sha256.New, []byte(v.cfg.AppSecret))
		mac.Write([]byte(accessToken))
		q.Set("appsecret_proof", hex.EncodeToString(mac.Sum(nil)))
	}
	return fmt.Sprintf("%s/%s/%s?%s", v.cfg.GraphURL, v.cfg.Version, url.PathEscape(userID), q.Encode())
}

// Verify consulta el perfil del usuario. El id devuelto por Graph debe
// coincidir con el userID declarado y el email debe estar presente.
func (v *Verifier) Verify(ctx context.Context, a federation.Assertion) (*federation.Identity, error) {
	userID := strings.TrimSpace(a.UserID)
	at := strings.TrimSpace(a.AccessToken)
	if userID == "" || at == "" {
		return nil, fmt.Errorf("%w: userID and accessToken required", federation.ErrInvalidAssertion)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.http)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: at, TokenType: "Bearer"}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.profileURL(userID, at), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", federation.ErrInvalidAssertion, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", federation.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", federation.ErrProviderUnavailable, err)
	}

	var gu graphUser
	if err := json.Unmarshal(body, &gu); err != nil {
		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("%w: graph http %d", federation.ErrProviderUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: decode: %v", federation.ErrProviderUnavailable, err)
	}
	switch {
	case gu.Error != nil:
		// Graph responde 4xx con {"error":{...}} para tokens inválidos/expirados.
		return nil, fmt.Errorf("%w: graph: %s", federation.ErrInvalidAssertion, gu.Error.Message)
	case resp.StatusCode/100 == 5:
		return nil, fmt.Errorf("%w: graph http %d", federation.ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode/100 != 2:
		return nil, fmt.Errorf("%w: graph http %d", federation.ErrInvalidAssertion, resp.StatusCode)
	}

	if gu.ID != userID {
		return nil, fmt.Errorf("%w: user id mismatch", federation.ErrInvalidAssertion)
	}
	if strings.TrimSpace(gu.Email) == "" {
		return nil, errors.Join(federation.ErrEmailNotVerified, errors.New("facebook: email permission not granted"))
	}

	// Graph solo expone emails confirmados.
	return &federation.Identity{
		Provider:      federation.ProviderFacebook,
		Subject:       gu.ID,
		Email:         gu.Email,
		Name:          gu.Name,
		EmailVerified: true,
	}, nil
}
