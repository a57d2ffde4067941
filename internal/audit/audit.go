// Package audit deja rastro de los eventos de ciclo de vida de cuenta en un
// logger dedicado ("audit") y los reenvía al siguiente recorder (métricas).
package audit

import (
	"go.uber.org/zap"

	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

// Recorder es lo que consumen los services (services/auth.Events).
type Recorder interface {
	AuthEvent(event string, ok bool)
}

// Log implementa Recorder.
type Log struct {
	log  *zap.Logger
	next Recorder
}

// New crea el recorder de auditoría. next puede ser nil.
func New(next Recorder) *Log {
	return &Log{log: logger.Named("audit"), next: next}
}

// WithLogger reemplaza el logger (tests).
func (a *Log) WithLogger(l *zap.Logger) *Log {
	cp := *a
	cp.log = l
	return &cp
}

func (a *Log) AuthEvent(event string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	a.log.Info("auth event", zap.String("event", event), zap.String("result", result))
	if a.next != nil {
		a.next.AuthEvent(event, ok)
	}
}
