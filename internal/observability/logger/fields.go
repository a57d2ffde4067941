package logger

import (
	"go.uber.org/zap"

	"github.com/dropDatabas3/authgate/internal/util"
)

// =================================================================================
// HTTP
// =================================================================================

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field { return zap.String("method", v) }
func Path(v string) zap.Field { return zap.String("path", v) }
func Route(v string) zap.Field { return zap.String("route", v) }
func Status(v int) zap.Field { return zap.Int("status", v) }
func Bytes(v int) zap.Field { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

// DurationMs crea un campo para la duración en milisegundos.
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }

// =================================================================================
// NEGOCIO
// =================================================================================

// UserID crea un campo para el ID del usuario.
func UserID(v string) zap.Field { return zap.String("user_id", v) }

// Email crea un campo con el email enmascarado.
func Email(v string) zap.Field { return zap.String("email", util.MaskEmail(v)) }

// Role crea un campo para el rol del usuario.
func Role(v string) zap.Field { return zap.String("role", v) }

// TokenKind crea un campo para el tipo de token de intención.
func TokenKind(v string) zap.Field { return zap.String("token_kind", v) }

// Provider crea un campo para el proveedor de identidad federada.
func Provider(v string) zap.Field { return zap.String("provider", v) }

// =================================================================================
// SISTEMA
// =================================================================================

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer: controller, service, repository, middleware.
func Layer(v string) zap.Field { return zap.String("layer", v) }

func Err(err error) zap.Field { return zap.Error(err) }

// =================================================================================
// GENÉRICOS
// =================================================================================

func String(key, v string) zap.Field { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
