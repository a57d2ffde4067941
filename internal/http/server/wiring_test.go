package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authgate/internal/config"
	"github.com/dropDatabas3/authgate/internal/federation"
)

const testYAML = `
storage:
  driver: memory
cache:
  kind: memory
jwt:
  account_activation_secret: act-secret
  reset_password_secret: reset-secret
  session_secret: session-secret
email:
  driver: log
  client_url: http://localhost:3000
security:
  password_blacklist_path: blacklist.txt
`

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blacklist.txt"), []byte("password\n123456\n"), 0o600))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o600))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestBuildHandler_Memory(t *testing.T) {
	cfg := loadTestConfig(t)

	h, cleanup, err := BuildHandler(context.Background(), cfg, "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(`{"name":"Ana","email":"ana@example.com","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Blacklist cargada desde el path relativo al YAML.
	req = httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(`{"name":"Bob","email":"bob@example.com","password":"123456"}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Password is too common")

	// Sin proveedores habilitados, el login federado falla con 400.
	req = httptest.NewRequest(http.MethodPost, "/api/google-login", strings.NewReader(`{"idToken":"x"}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Google login failed. Try again")
}

func TestBuildFederation(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Providers.Google.Enabled = true
	cfg.Providers.Google.ClientID = "client-123"
	cfg.Providers.Facebook.Enabled = true

	reg, closeFn, err := buildFederation(cfg)
	require.NoError(t, err)
	defer closeFn()

	assert.Contains(t, reg, federation.ProviderGoogle)
	assert.Contains(t, reg, federation.ProviderFacebook)

	cfg.Providers.Google.ClientID = ""
	_, _, err = buildFederation(cfg)
	assert.Error(t, err)
}

func TestOpenDirectory_UnknownDriver(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Storage.Driver = "mongo"
	_, err := OpenDirectory(context.Background(), cfg, false)
	assert.Error(t, err)
}
