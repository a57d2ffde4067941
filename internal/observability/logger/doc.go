// Package logger wraps a process-wide Zap logger with request scoping.
//
// main inicializa una sola vez:
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "authgate"})
//	defer logger.Sync()
//
// Los middlewares inyectan un logger con request_id/method/path y las capas lo
// recuperan con contexto:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("auth.signin"))
//	log.Info("signin ok", logger.UserID(u.ID))
package logger
