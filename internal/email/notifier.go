package email

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

const (
	SubjectActivation = "Account Activation link"
	SubjectReset      = "Password Reset link"
)

// Notifier arma los links de activación/reset y los envía con un Sender.
type Notifier struct {
	sender    Sender
	tpl       *Templates
	clientURL string
}

// NewNotifier crea un Notifier. clientURL es la URL base del frontend.
func NewNotifier(sender Sender, tpl *Templates, clientURL string) *Notifier {
	return &Notifier{sender: sender, tpl: tpl, clientURL: strings.TrimRight(clientURL, "/")}
}

// ActivationLink arma {clientURL}/auth/activate/{token}.
func (n *Notifier) ActivationLink(token string) string {
	return n.clientURL + "/auth/activate/" + url.PathEscape(token)
}

// ResetLink arma {clientURL}/auth/password/reset/{token}.
func (n *Notifier) ResetLink(token string) string {
	return n.clientURL + "/auth/password/reset/" + url.PathEscape(token)
}

// SendActivation envía el link de activación de cuenta.
func (n *Notifier) SendActivation(ctx context.Context, name, to, token string, ttl time.Duration) error {
	return n.send(ctx, TemplateActivate, SubjectActivation, to, LinkVars{
		Name: name, Email: to, Link: n.ActivationLink(token), ClientURL: n.clientURL, TTL: humanTTL(ttl),
	})
}

// SendPasswordReset envía el link de reset de password.
func (n *Notifier) SendPasswordReset(ctx context.Context, name, to, token string, ttl time.Duration) error {
	return n.send(ctx, TemplateReset, SubjectReset, to, LinkVars{
		Name: name, Email: to, Link: n.ResetLink(token), ClientURL: n.clientURL, TTL: humanTTL(ttl),
	})
}

func (n *Notifier) send(ctx context.Context, tplName, subject, to string, vars LinkVars) error {
	htmlBody, textBody, err := n.tpl.Render(tplName, vars)
	if err != nil {
		return err
	}
	if err := n.sender.Send(ctx, to, subject, htmlBody, textBody); err != nil {
		return err
	}
	logger.From(ctx).Debug("notification dispatched",
		logger.Component("email.notifier"),
		logger.String("template", tplName),
	)
	return nil
}

func humanTTL(d time.Duration) string {
	switch {
	case d <= 0:
		return "a few minutes"
	case d%time.Hour == 0 && d >= time.Hour:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	default:
		return fmt.Sprintf("%d minutes", int(d.Round(time.Minute)/time.Minute))
	}
}
