package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authgate/internal/cache"
	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/dropDatabas3/authgate/internal/federation"
	jwtx "github.com/dropDatabas3/authgate/internal/jwt"
	"github.com/dropDatabas3/authgate/internal/security/password"
	"github.com/dropDatabas3/authgate/internal/store/memory"
)

type sentMail struct {
	kind  string
	name  string
	to    string
	token string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *fakeNotifier) SendActivation(_ context.Context, name, to, token string, _ time.Duration) error {
	return n.record("activation", name, to, token)
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, name, to, token string, _ time.Duration) error {
	return n.record("reset", name, to, token)
}

func (n *fakeNotifier) record(kind, name, to, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{kind: kind, name: name, to: to, token: token})
	return nil
}

func (n *fakeNotifier) last(t *testing.T) sentMail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent)
	return n.sent[len(n.sent)-1]
}

type fakeVerifier struct {
	id  *federation.Identity
	err error
}

func (v fakeVerifier) Verify(context.Context, federation.Provider, federation.Assertion) (*federation.Identity, error) {
	return v.id, v.err
}

type eventLog struct {
	mu     sync.Mutex
	events map[string][]bool
}

func (e *eventLog) AuthEvent(event string, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.events == nil {
		e.events = map[string][]bool{}
	}
	e.events[event] = append(e.events[event], ok)
}

type fixture struct {
	users    *memory.Store
	cache    cache.Client
	issuer   *jwtx.Issuer
	notifier *fakeNotifier
	events   *eventLog
	deps     Deps
	svc      Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	iss, err := jwtx.NewIssuer(jwtx.Config{
		Issuer:           "authgate-test",
		ActivationSecret: []byte("activation-secret"),
		ResetSecret:      []byte("reset-secret"),
		SessionSecret:    []byte("session-secret"),
	})
	require.NoError(t, err)

	c := cache.NewMemory(cache.Config{DefaultTTL: time.Minute, CleanupInterval: time.Minute})
	t.Cleanup(func() { _ = c.Close() })

	f := &fixture{
		users:    memory.New(),
		cache:    c,
		issuer:   iss,
		notifier: &fakeNotifier{},
		events:   &eventLog{},
	}
	f.deps = Deps{
		Users:    f.users,
		Pending:  NewPendingStore(c),
		Tokens:   iss,
		Notifier: f.notifier,
		Policy:   password.Policy{MinLength: 6},
		Hash:     password.Fast,
		Events:   f.events,
	}
	f.svc = NewServices(f.deps)
	return f
}

// withTokens reconstruye los services con otro emisor (p.ej. con reloj movido).
func (f *fixture) withTokens(tokens TokenIssuer) Services {
	d := f.deps
	d.Tokens = tokens
	return NewServices(d)
}

func (f *fixture) seedUser(t *testing.T, name, email, plain string) *repository.User {
	t.Helper()
	hash, err := password.Hash(password.Fast, plain)
	require.NoError(t, err)
	u, err := f.users.Create(context.Background(), repository.CreateUserInput{
		Name: name, Email: email, PasswordHash: hash, Role: repository.RoleSubscriber,
	})
	require.NoError(t, err)
	return u
}

// ─── Signup / activación ───

func TestSignup_ActivateThenSignin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	to, err := f.svc.Signup.RequestSignup(ctx, SignupInput{Name: "Ana", Email: " Ana@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", to)
	assert.Equal(t, 0, f.users.Len(), "el usuario no existe hasta activar")

	mail := f.notifier.last(t)
	assert.Equal(t, "activation", mail.kind)
	assert.Equal(t, "ana@example.com", mail.to)

	claims, err := f.issuer.Parse(jwtx.KindActivateAccount, mail.token)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.PendingID)
	assert.NotContains(t, mail.token, "secret1")

	u, err := f.svc.Signup.ActivateAccount(ctx, mail.token)
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, repository.RoleSubscriber, u.Role)

	res, err := f.svc.Signin.Signin(ctx, "ANA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)

	sess, err := f.issuer.Parse(jwtx.KindSession, res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, sess.UserID())
}

func TestSignup_EmailTaken(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "Ana", "ana@example.com", "secret1")

	_, err := f.svc.Signup.RequestSignup(context.Background(), SignupInput{Name: "Otra", Email: "ANA@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Empty(t, f.notifier.sent)
	assert.Equal(t, []bool{false}, f.events.events["signup_requested"])
}

func TestSignup_PolicyRejectsShortPassword(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Signup.RequestSignup(context.Background(), SignupInput{Name: "Ana", Email: "ana@example.com", Password: "abc"})
	var perr *password.PolicyError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Reasons, "too_short")
}

func TestSignup_NotificationFailure(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp: connection refused")

	_, err := f.svc.Signup.RequestSignup(context.Background(), SignupInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrNotificationFailed)
	assert.EqualError(t, err, "smtp: connection refused")
}

func TestActivate_ReplayIsRejectedByDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup.RequestSignup(ctx, SignupInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	tok := f.notifier.last(t).token

	_, err = f.svc.Signup.ActivateAccount(ctx, tok)
	require.NoError(t, err)

	_, err = f.svc.Signup.ActivateAccount(ctx, tok)
	assert.ErrorIs(t, err, ErrDirectoryWrite)
	assert.Equal(t, 1, f.users.Len())
}

func TestActivate_TwoPendingSignupsSameEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup.RequestSignup(ctx, SignupInput{Name: "A", Email: "x@example.com", Password: "secret1"})
	require.NoError(t, err)
	first := f.notifier.last(t).token
	_, err = f.svc.Signup.RequestSignup(ctx, SignupInput{Name: "B", Email: "x@example.com", Password: "secret2"})
	require.NoError(t, err)
	second := f.notifier.last(t).token

	_, err = f.svc.Signup.ActivateAccount(ctx, second)
	require.NoError(t, err)
	_, err = f.svc.Signup.ActivateAccount(ctx, first)
	assert.ErrorIs(t, err, ErrDirectoryWrite)
	assert.Equal(t, 1, f.users.Len())
}

func TestActivate_InvalidTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Signup.ActivateAccount(ctx, "")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = f.svc.Signup.ActivateAccount(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrLinkExpiredOrInvalid)

	// Token de otro tipo.
	sess, err := f.issuer.MintSession("u1")
	require.NoError(t, err)
	_, err = f.svc.Signup.ActivateAccount(ctx, sess)
	assert.ErrorIs(t, err, ErrLinkExpiredOrInvalid)

	// Firma válida pero sin registro pendiente.
	orphan, err := f.issuer.MintActivation("missing-pid", "Ana", "ana@example.com")
	require.NoError(t, err)
	_, err = f.svc.Signup.ActivateAccount(ctx, orphan)
	assert.ErrorIs(t, err, ErrLinkExpiredOrInvalid)
}

func TestActivate_ExpiredLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	past := f.issuer.WithClock(func() time.Time { return time.Now().Add(-time.Hour) })

	_, err := f.withTokens(past).Signup.RequestSignup(ctx, SignupInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.svc.Signup.ActivateAccount(ctx, f.notifier.last(t).token)
	assert.ErrorIs(t, err, ErrLinkExpiredOrInvalid)
	assert.Equal(t, 0, f.users.Len())
}

// ─── Signin ───

func TestSignin_Failures(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "Ana", "ana@example.com", "secret1")
	ctx := context.Background()

	_, err := f.svc.Signin.Signin(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.Signin.Signin(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrCredentialMismatch)

	assert.Equal(t, []bool{false, false}, f.events.events["signin"])
}

// ─── Forgot / reset ───

func TestPasswordReset_Flow(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "Ana", "ana@example.com", "secret1")
	ctx := context.Background()

	to, err := f.svc.Password.RequestReset(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", to)

	mail := f.notifier.last(t)
	assert.Equal(t, "reset", mail.kind)
	stored, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetToken)
	assert.Equal(t, mail.token, *stored.ResetToken)

	require.NoError(t, f.svc.Password.Reset(ctx, mail.token, "newsecret"))

	_, err = f.svc.Signin.Signin(ctx, "ana@example.com", "secret1")
	assert.ErrorIs(t, err, ErrCredentialMismatch)
	_, err = f.svc.Signin.Signin(ctx, "ana@example.com", "newsecret")
	assert.NoError(t, err)

	// El token ya fue consumido.
	err = f.svc.Password.Reset(ctx, mail.token, "another1")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestPasswordReset_UnknownEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Password.RequestReset(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPasswordReset_RejectsBadTokens(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "Ana", "ana@example.com", "secret1")
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Password.Reset(ctx, "", "newsecret"), ErrMissingToken)
	assert.ErrorIs(t, f.svc.Password.Reset(ctx, "garbage", "newsecret"), ErrLinkExpiredOrInvalid)

	// Firmado y vigente pero nunca guardado en el usuario.
	tok, err := f.issuer.MintReset(u.ID, u.Name)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Password.Reset(ctx, tok, "newsecret"), ErrRecordNotFound)

	// Expirado.
	past := f.issuer.WithClock(func() time.Time { return time.Now().Add(-time.Hour) })
	_, err = f.withTokens(past).Password.RequestReset(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Password.Reset(ctx, f.notifier.last(t).token, "newsecret"), ErrLinkExpiredOrInvalid)
}

func TestPasswordReset_PolicyCheckedFirst(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Password.Reset(context.Background(), "whatever", "abc")
	var perr *password.PolicyError
	assert.ErrorAs(t, err, &perr)
}

// ─── Federado ───

func TestFederated_CreatesThenReusesUser(t *testing.T) {
	f := newFixture(t)
	d := f.deps
	d.Verifier = fakeVerifier{id: &federation.Identity{
		Provider: federation.ProviderGoogle, Subject: "g-1", Email: "Fed@Example.com", Name: "Fed User", EmailVerified: true,
	}}
	svc := NewServices(d)
	ctx := context.Background()

	res, err := svc.Federated.Login(ctx, federation.ProviderGoogle, federation.Assertion{IDToken: "x"})
	require.NoError(t, err)
	assert.Equal(t, "fed@example.com", res.User.Email)
	assert.Equal(t, "Fed User", res.User.Name)
	assert.False(t, password.Verify("", res.User.PasswordHash))

	again, err := svc.Federated.Login(ctx, federation.ProviderGoogle, federation.Assertion{IDToken: "x"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, again.User.ID)
	assert.Equal(t, 1, f.users.Len())
}

func TestFederated_ExistingPasswordUserKeepsCredentials(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "Ana", "ana@example.com", "secret1")
	d := f.deps
	d.Verifier = fakeVerifier{id: &federation.Identity{Provider: federation.ProviderFacebook, Subject: "fb-1", Email: "ana@example.com"}}
	svc := NewServices(d)

	res, err := svc.Federated.Login(context.Background(), federation.ProviderFacebook, federation.Assertion{UserID: "fb-1", AccessToken: "t"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)

	_, err = svc.Signin.Signin(context.Background(), "ana@example.com", "secret1")
	assert.NoError(t, err)
}

func TestFederated_VerificationFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Federated.Login(ctx, federation.ProviderGoogle, federation.Assertion{IDToken: "x"})
	assert.ErrorIs(t, err, ErrFederationFailed, "sin verifier configurado")

	d := f.deps
	d.Verifier = fakeVerifier{err: federation.ErrEmailNotVerified}
	_, err = NewServices(d).Federated.Login(ctx, federation.ProviderGoogle, federation.Assertion{IDToken: "x"})
	assert.ErrorIs(t, err, ErrFederationFailed)
	assert.Equal(t, 0, f.users.Len())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ana", displayName(&federation.Identity{Name: " Ana ", Email: "a@x.com"}))
	assert.Equal(t, "ana.b", displayName(&federation.Identity{Email: "ana.b@x.com"}))
}

// ─── Perfil ───

func TestProfile_GetAndUpdate(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "Ana", "ana@example.com", "secret1")
	ctx := context.Background()

	got, err := f.svc.Profile.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)

	_, err = f.svc.Profile.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	upd, err := f.svc.Profile.Update(ctx, u.ID, ProfileInput{Name: "Ana B", Password: "another1"})
	require.NoError(t, err)
	assert.Equal(t, "Ana B", upd.Name)
	_, err = f.svc.Signin.Signin(ctx, "ana@example.com", "another1")
	assert.NoError(t, err)

	_, err = f.svc.Profile.Update(ctx, u.ID, ProfileInput{Password: "x"})
	var perr *password.PolicyError
	assert.ErrorAs(t, err, &perr)
}

// ─── Pending store ───

func TestPendingStore_RoundTripAndMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ps := NewPendingStore(f.cache)

	_, err := ps.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrPendingNotFound)

	in := PendingSignup{Name: "Ana", Email: "ana@example.com", PasswordHash: "h"}
	require.NoError(t, ps.Put(ctx, "p1", in, time.Minute))
	got, err := ps.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, in.Email, got.Email)
	assert.Equal(t, in.PasswordHash, got.PasswordHash)
}
