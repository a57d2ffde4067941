// Package email entrega los links de activación y reset de password.
//
//	services/auth ──► Notifier (links + templates) ──► Sender (SMTP | log)
package email

import (
	"context"

	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

// Sender es la interfaz para enviar emails.
type Sender interface {
	// Send envía un email con contenido HTML y texto plano
	// (multipart/alternative si vienen ambos).
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// LogSender no envía nada: loguea el mensaje. Para desarrollo local.
type LogSender struct {
	From string
}

func (s LogSender) Send(ctx context.Context, to, subject, _, textBody string) error {
	logger.From(ctx).Info("email (log driver)",
		logger.Component("email.log"),
		logger.String("from", s.From),
		logger.String("to", to),
		logger.String("subject", subject),
		logger.String("body", textBody),
	)
	return nil
}
