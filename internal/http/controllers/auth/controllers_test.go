package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authgate/internal/cache"
	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/dropDatabas3/authgate/internal/federation"
	mw "github.com/dropDatabas3/authgate/internal/http/middlewares"
	svc "github.com/dropDatabas3/authgate/internal/http/services/auth"
	jwtx "github.com/dropDatabas3/authgate/internal/jwt"
	"github.com/dropDatabas3/authgate/internal/security/password"
	"github.com/dropDatabas3/authgate/internal/store/memory"
)

type mailbox struct {
	tokens []string
	err    error
}

func (m *mailbox) SendActivation(_ context.Context, _, _, token string, _ time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.tokens = append(m.tokens, token)
	return nil
}

func (m *mailbox) SendPasswordReset(_ context.Context, _, _, token string, _ time.Duration) error {
	return m.SendActivation(context.Background(), "", "", token, 0)
}

func (m *mailbox) last(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.tokens)
	return m.tokens[len(m.tokens)-1]
}

type stubVerifier struct {
	id  *federation.Identity
	err error
}

func (v stubVerifier) Verify(context.Context, federation.Provider, federation.Assertion) (*federation.Identity, error) {
	return v.id, v.err
}

type env struct {
	users  *memory.Store
	issuer *jwtx.Issuer
	mail   *mailbox
	ctrls  *Controllers
}

func newEnv(t *testing.T, v svc.Verifier) *env {
	t.Helper()
	iss, err := jwtx.NewIssuer(jwtx.Config{
		ActivationSecret: []byte("a-secret"),
		ResetSecret:      []byte("r-secret"),
		SessionSecret:    []byte("s-secret"),
	})
	require.NoError(t, err)
	c := cache.NewMemory(cache.Config{})
	t.Cleanup(func() { _ = c.Close() })

	e := &env{users: memory.New(), issuer: iss, mail: &mailbox{}}
	e.ctrls = NewControllers(svc.NewServices(svc.Deps{
		Users:    e.users,
		Pending:  svc.NewPendingStore(c),
		Tokens:   iss,
		Notifier: e.mail,
		Verifier: v,
		Policy:   password.Policy{MinLength: 6},
		Hash:     password.Fast,
	}))
	return e
}

func do(h http.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func body(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestSignupActivateSignin(t *testing.T) {
	e := newEnv(t, nil)

	rec := do(e.ctrls.Signup.Signup, http.MethodPost, "/api/signup", `{"name":"Ana","email":"ana@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email has been sent to ana@example.com. Follow the instructions to activate your account.", body(t, rec)["message"])

	rec = do(e.ctrls.Signup.Activate, http.MethodPost, "/api/account-activation", `{"token":"`+e.mail.last(t)+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Signup success. Please signin", body(t, rec)["message"])

	rec = do(e.ctrls.Signin.Signin, http.MethodPost, "/api/signin", `{"email":"ana@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	b := body(t, rec)
	assert.NotEmpty(t, b["token"])
	user := b["user"].(map[string]any)
	assert.Equal(t, "Ana", user["name"])
	assert.Equal(t, "subscriber", user["role"])
	assert.NotEmpty(t, user["_id"])
	assert.NotContains(t, rec.Body.String(), "password")

	// Segundo signup con el mismo email.
	rec = do(e.ctrls.Signup.Signup, http.MethodPost, "/api/signup", `{"name":"Ana","email":"ana@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email is taken", body(t, rec)["error"])
}

func TestSignup_ValidationAndNotification(t *testing.T) {
	e := newEnv(t, nil)

	rec := do(e.ctrls.Signup.Signup, http.MethodPost, "/api/signup", `{"email":"ana@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Name is required", body(t, rec)["error"])

	rec = do(e.ctrls.Signup.Signup, http.MethodPost, "/api/signup", `{"name":"Ana","email":"ana@example.com","password":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Password must be at least 6 characters long", body(t, rec)["error"])

	e.mail.err = errors.New("smtp: 550 mailbox unavailable")
	rec = do(e.ctrls.Signup.Signup, http.MethodPost, "/api/signup", `{"name":"Ana","email":"ana@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "smtp: 550 mailbox unavailable", body(t, rec)["error"])

	rec = do(e.ctrls.Signup.Signup, http.MethodGet, "/api/signup", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestActivate_Failures(t *testing.T) {
	e := newEnv(t, nil)

	rec := do(e.ctrls.Signup.Activate, http.MethodPost, "/api/account-activation", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Something went wrong. Try again.", body(t, rec)["error"])

	rec = do(e.ctrls.Signup.Activate, http.MethodPost, "/api/account-activation", `{"token":"bogus"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Expired Link. Signup again", body(t, rec)["error"])

	// Replay del mismo link.
	do(e.ctrls.Signup.Signup, http.MethodPost, "/api/signup", `{"name":"Ana","email":"ana@example.com","password":"secret1"}`)
	tok := e.mail.last(t)
	require.Equal(t, http.StatusOK, do(e.ctrls.Signup.Activate, http.MethodPost, "/", `{"token":"`+tok+`"}`).Code)
	rec = do(e.ctrls.Signup.Activate, http.MethodPost, "/", `{"token":"`+tok+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Error saving user in database. Try Signup again", body(t, rec)["error"])
}

func seed(t *testing.T, e *env, email, plain string) *repository.User {
	t.Helper()
	hash, err := password.Hash(password.Fast, plain)
	require.NoError(t, err)
	u, err := e.users.Create(context.Background(), repository.CreateUserInput{Name: "Ana", Email: email, PasswordHash: hash, Role: repository.RoleSubscriber})
	require.NoError(t, err)
	return u
}

func TestSignin_Failures(t *testing.T) {
	e := newEnv(t, nil)
	seed(t, e, "ana@example.com", "secret1")

	rec := do(e.ctrls.Signin.Signin, http.MethodPost, "/api/signin", `{"email":"nobody@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User with that email does not exist. Please Signup", body(t, rec)["error"])

	rec = do(e.ctrls.Signin.Signin, http.MethodPost, "/api/signin", `{"email":"ana@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email and password do not match", body(t, rec)["error"])

	rec = do(e.ctrls.Signin.Signin, http.MethodPost, "/api/signin", `{"email":"not-an-email","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Must be a valid email address", body(t, rec)["error"])
}

func TestForgotAndReset(t *testing.T) {
	e := newEnv(t, nil)
	seed(t, e, "ana@example.com", "secret1")

	rec := do(e.ctrls.Password.Forgot, http.MethodPut, "/api/forgot-password", `{"email":"nobody@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User with that email does not exist", body(t, rec)["error"])

	rec = do(e.ctrls.Password.Forgot, http.MethodPut, "/api/forgot-password", `{"email":"ana@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email has been sent to ana@example.com. Follow the instructions to reset your password.", body(t, rec)["message"])
	tok := e.mail.last(t)

	rec = do(e.ctrls.Password.Reset, http.MethodPut, "/api/reset-password", `{"resetPasswordLink":"bogus","newPassword":"newsecret"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Expired Link. Try Again.", body(t, rec)["error"])

	rec = do(e.ctrls.Password.Reset, http.MethodPut, "/api/reset-password", `{"resetPasswordLink":"`+tok+`","newPassword":"newsecret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Great! Now you can login with your new password.", body(t, rec)["message"])

	rec = do(e.ctrls.Password.Reset, http.MethodPut, "/api/reset-password", `{"resetPasswordLink":"`+tok+`","newPassword":"other12"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Something went wrong. Try later", body(t, rec)["error"])

	rec = do(e.ctrls.Password.Forgot, http.MethodPost, "/api/forgot-password", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSocialLogin(t *testing.T) {
	e := newEnv(t, stubVerifier{id: &federation.Identity{Provider: federation.ProviderGoogle, Email: "g@example.com", Name: "G", EmailVerified: true}})

	rec := do(e.ctrls.Social.Google, http.MethodPost, "/api/google-login", `{"idToken":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	b := body(t, rec)
	assert.NotEmpty(t, b["token"])
	assert.Equal(t, "g@example.com", b["user"].(map[string]any)["email"])

	rec = do(e.ctrls.Social.Google, http.MethodPost, "/api/google-login", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bad := newEnv(t, stubVerifier{err: federation.ErrInvalidAssertion})
	rec = do(bad.ctrls.Social.Google, http.MethodPost, "/api/google-login", `{"idToken":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Google login failed. Try again", body(t, rec)["error"])

	rec = do(bad.ctrls.Social.Facebook, http.MethodPost, "/api/facebook-login", `{"userID":"1","accessToken":"t"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Facebook login failed. Try later.", body(t, rec)["error"])
}

func TestProfile(t *testing.T) {
	e := newEnv(t, nil)
	u := seed(t, e, "ana@example.com", "secret1")
	other := seed(t, e, "bob@example.com", "secret1")

	serve := func(method, path, payload string) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Get("/api/user/{id}", e.ctrls.Profile.Read)
		r.Put("/api/user/update", e.ctrls.Profile.Update)
		req := httptest.NewRequest(method, path, strings.NewReader(payload))
		req = req.WithContext(mw.WithUserID(req.Context(), u.ID))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(http.MethodGet, "/api/user/"+u.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana@example.com", body(t, rec)["email"])

	rec = serve(http.MethodGet, "/api/user/"+other.ID, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(http.MethodPut, "/api/user/update", `{"name":"Ana B"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana B", body(t, rec)["name"])

	rec = serve(http.MethodPut, "/api/user/update", `{"name":"Ana","password":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
