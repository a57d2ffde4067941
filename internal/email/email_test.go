package email

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mail "github.com/go-mail/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	to, subject, html, text string
}

type fakeSender struct {
	msgs []sent
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, subject, htmlBody, textBody string) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, sent{to, subject, htmlBody, textBody})
	return nil
}

func newNotifier(t *testing.T, s Sender) *Notifier {
	t.Helper()
	tpl, err := LoadTemplates("")
	require.NoError(t, err)
	return NewNotifier(s, tpl, "https://app.example.com/")
}

func TestNotifier_Links(t *testing.T) {
	n := newNotifier(t, &fakeSender{})
	assert.Equal(t, "https://app.example.com/auth/activate/abc.def.ghi", n.ActivationLink("abc.def.ghi"))
	assert.Equal(t, "https://app.example.com/auth/password/reset/abc.def.ghi", n.ResetLink("abc.def.ghi"))
}

func TestNotifier_SendActivation(t *testing.T) {
	fs := &fakeSender{}
	n := newNotifier(t, fs)

	err := n.SendActivation(context.Background(), "Jane", "jane@example.com", "tok.en.x", 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, fs.msgs, 1)

	m := fs.msgs[0]
	assert.Equal(t, "jane@example.com", m.to)
	assert.Equal(t, SubjectActivation, m.subject)
	assert.Contains(t, m.text, "https://app.example.com/auth/activate/tok.en.x")
	assert.Contains(t, m.html, `href="https://app.example.com/auth/activate/tok.en.x"`)
	assert.Contains(t, m.text, "10 minutes")
}

func TestNotifier_SendPasswordReset(t *testing.T) {
	fs := &fakeSender{}
	n := newNotifier(t, fs)

	require.NoError(t, n.SendPasswordReset(context.Background(), "Jane", "jane@example.com", "r.t.k", 10*time.Minute))
	require.Len(t, fs.msgs, 1)
	assert.Equal(t, SubjectReset, fs.msgs[0].subject)
	assert.Contains(t, fs.msgs[0].text, "/auth/password/reset/r.t.k")
}

func TestNotifier_SenderError(t *testing.T) {
	n := newNotifier(t, &fakeSender{err: errors.New("smtp down")})
	err := n.SendActivation(context.Background(), "Jane", "jane@example.com", "t", time.Minute)
	assert.EqualError(t, err, "smtp down")
}

func TestTemplates_HTMLEscaping(t *testing.T) {
	tpl, err := LoadTemplates("")
	require.NoError(t, err)

	html, text, err := tpl.Render(TemplateActivate, LinkVars{Name: "<script>x</script>", Link: "l"})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, text, "<script>x</script>")

	_, _, err = tpl.Render("unknown", LinkVars{})
	assert.Error(t, err)
}

func TestLoadTemplates_FromDir(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"activate_account.html": "<p>A {{.Link}}</p>",
		"activate_account.txt":  "A {{.Link}}",
		"reset_password.html":   "<p>R {{.Link}}</p>",
		"reset_password.txt":    "R {{.Link}}",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	tpl, err := LoadTemplates(dir)
	require.NoError(t, err)

	_, text, err := tpl.Render(TemplateReset, LinkVars{Link: "L"})
	require.NoError(t, err)
	assert.Equal(t, "R L", text)

	_, err = LoadTemplates(t.TempDir())
	assert.Error(t, err)
}

func TestSMTPSender_BuildsMessage(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "noreply@example.com", TLSMode: "ssl"})

	var gotDialer *mail.Dialer
	var gotMsg *mail.Message
	s.dial = func(d *mail.Dialer, m ...*mail.Message) error {
		gotDialer, gotMsg = d, m[0]
		return nil
	}

	require.NoError(t, s.Send(context.Background(), "jane@example.com", "Hi", "<p>hi</p>", "hi"))
	require.NotNil(t, gotDialer)
	assert.True(t, gotDialer.SSL)
	assert.Equal(t, 587, gotDialer.Port)
	assert.Equal(t, []string{"noreply@example.com"}, gotMsg.GetHeader("From"))
	assert.Equal(t, []string{"Hi"}, gotMsg.GetHeader("Subject"))
}

func TestSMTPSender_WrapsError(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com"})
	s.dial = func(*mail.Dialer, ...*mail.Message) error { return errors.New("conn refused") }

	err := s.Send(context.Background(), "jane@example.com", "Hi", "", "hi")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "smtp send:"))
}

func TestSMTPSender_CanceledContext(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com"})
	called := false
	s.dial = func(*mail.Dialer, ...*mail.Message) error { called = true; return nil }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, "a@b.c", "s", "", "t"), context.Canceled)
	assert.False(t, called)
}

func TestHumanTTL(t *testing.T) {
	assert.Equal(t, "10 minutes", humanTTL(10*time.Minute))
	assert.Equal(t, "2 hours", humanTTL(2*time.Hour))
	assert.Equal(t, "a few minutes", humanTTL(0))
}
