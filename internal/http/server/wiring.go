// Package server arma el handler HTTP completo a partir de la configuración:
// directorio, cache, emisor de tokens, email, proveedores, métricas,
// services, controllers y router.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dropDatabas3/authgate/internal/audit"
	"github.com/dropDatabas3/authgate/internal/cache"
	"github.com/dropDatabas3/authgate/internal/config"
	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/dropDatabas3/authgate/internal/email"
	"github.com/dropDatabas3/authgate/internal/federation"
	"github.com/dropDatabas3/authgate/internal/federation/facebook"
	"github.com/dropDatabas3/authgate/internal/federation/google"
	authctrl "github.com/dropDatabas3/authgate/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/authgate/internal/http/controllers/health"
	"github.com/dropDatabas3/authgate/internal/http/router"
	svc "github.com/dropDatabas3/authgate/internal/http/services/auth"
	jwtx "github.com/dropDatabas3/authgate/internal/jwt"
	"github.com/dropDatabas3/authgate/internal/metrics"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
	"github.com/dropDatabas3/authgate/internal/security/password"
	"github.com/dropDatabas3/authgate/internal/store/memory"
	"github.com/dropDatabas3/authgate/internal/store/pg"
)

// Directory es el directorio de usuarios con su cierre.
type Directory interface {
	repository.UserRepository
	Close() error
}

type memoryDirectory struct{ *memory.Store }

func (memoryDirectory) Close() error { return nil }

// OpenDirectory abre el directorio configurado. Con postgres y AutoMigrate
// (o migrate=true) aplica las migraciones.
func OpenDirectory(ctx context.Context, cfg *config.Config, migrate bool) (Directory, error) {
	switch cfg.Storage.Driver {
	case "memory":
		logger.L().Warn("using in-memory directory: data is lost on restart", logger.Component("server"))
		return memoryDirectory{memory.New()}, nil
	case "postgres":
		st, err := pg.Open(ctx, pg.Config{
			DSN:             cfg.Storage.DSN,
			MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		if migrate || cfg.Storage.AutoMigrate {
			if err := st.Migrate(ctx); err != nil {
				_ = st.Close()
				return nil, err
			}
		}
		return st, nil
	default:
		return nil, fmt.Errorf("server: unknown storage driver %q", cfg.Storage.Driver)
	}
}

// BuildHandler construye el handler raíz. cleanup libera conexiones y
// goroutines de fondo; debe llamarse después del shutdown del http.Server.
func BuildHandler(ctx context.Context, cfg *config.Config, version string) (http.Handler, func() error, error) {
	var closers []func() error
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (http.Handler, func() error, error) {
		_ = cleanup()
		return nil, nil, err
	}

	// 1. Directorio
	dir, err := OpenDirectory(ctx, cfg, false)
	if err != nil {
		return fail(fmt.Errorf("directory: %w", err))
	}
	closers = append(closers, dir.Close)

	// 2. Cache (registros pendientes de signup)
	cc, err := cache.New(ctx, cacheConfig(cfg))
	if err != nil {
		return fail(fmt.Errorf("cache: %w", err))
	}
	closers = append(closers, cc.Close)

	// 3. Tokens
	issuer, err := jwtx.NewIssuer(jwtx.Config{
		Issuer:           cfg.JWT.Issuer,
		ActivationSecret: []byte(cfg.JWT.AccountActivationSecret),
		ResetSecret:      []byte(cfg.JWT.ResetPasswordSecret),
		SessionSecret:    []byte(cfg.JWT.SessionSecret),
		ActivationTTL:    cfg.JWT.ActivationTTL,
		ResetTTL:         cfg.JWT.ResetTTL,
		SessionTTL:       cfg.JWT.SessionTTL,
	})
	if err != nil {
		return fail(fmt.Errorf("jwt: %w", err))
	}

	// 4. Email
	notifier, err := buildNotifier(cfg)
	if err != nil {
		return fail(fmt.Errorf("email: %w", err))
	}

	// 5. Proveedores externos
	verifiers, closeProviders, err := buildFederation(cfg)
	if err != nil {
		return fail(fmt.Errorf("federation: %w", err))
	}
	closers = append(closers, closeProviders)

	// 6. Política de password
	policy, err := buildPolicy(cfg)
	if err != nil {
		return fail(fmt.Errorf("password policy: %w", err))
	}

	// 7. Métricas (+ auditoría de eventos)
	m, err := metrics.New(nil)
	if err != nil {
		return fail(fmt.Errorf("metrics: %w", err))
	}

	// 8. Services → controllers → router
	services := svc.NewServices(svc.Deps{
		Users:    dir,
		Pending:  svc.NewPendingStore(cc),
		Tokens:   issuer,
		Notifier: notifier,
		Verifier: verifiers,
		Policy:   policy,
		Hash:     password.Default,
		Events:   audit.New(m),
	})

	h := router.New(router.Deps{
		Auth:        authctrl.NewControllers(services),
		Health:      healthctrl.NewHealthController(version, map[string]healthctrl.Pinger{"directory": dir, "cache": cc}),
		Sessions:    issuer,
		Users:       dir,
		Metrics:     m,
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
	})

	logger.L().Info("handler ready",
		logger.Component("server"),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Kind),
		logger.String("email", cfg.Email.Driver),
		logger.Int("providers", len(verifiers)),
	)
	return h, cleanup, nil
}

func cacheConfig(cfg *config.Config) cache.Config {
	cc := cache.Config{
		Driver:          cfg.Cache.Kind,
		DefaultTTL:      cfg.Cache.Memory.DefaultTTL,
		CleanupInterval: cfg.Cache.Memory.CleanupInterval,
	}
	if cfg.Cache.Kind == "redis" {
		cc.Addr = cfg.Cache.Redis.Addr
		cc.Password = cfg.Cache.Redis.Password
		cc.DB = cfg.Cache.Redis.DB
		cc.Prefix = cfg.Cache.Redis.Prefix
	}
	return cc
}

func buildNotifier(cfg *config.Config) (*email.Notifier, error) {
	tpl, err := email.LoadTemplates(cfg.Email.TemplatesDir)
	if err != nil {
		return nil, err
	}
	var sender email.Sender
	switch cfg.Email.Driver {
	case "smtp":
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			From:               cfg.SMTP.From,
			TLSMode:            cfg.SMTP.TLS,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		})
	case "log":
		sender = email.LogSender{From: cfg.SMTP.From}
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Email.Driver)
	}
	return email.NewNotifier(sender, tpl, cfg.Email.ClientURL), nil
}

func buildFederation(cfg *config.Config) (federation.Registry, func() error, error) {
	var vs []federation.Verifier
	closeFn := func() error { return nil }

	if g := cfg.Providers.Google; g.Enabled {
		gv, err := google.New(google.Config{ClientID: g.ClientID, JWKSURL: g.JWKSURL, Leeway: g.Leeway})
		if err != nil {
			return nil, nil, err
		}
		vs = append(vs, gv)
		closeFn = func() error { gv.Close(); return nil }
	}
	if f := cfg.Providers.Facebook; f.Enabled {
		vs = append(vs, facebook.New(facebook.Config{GraphURL: f.GraphURL, Version: f.GraphVersion, AppSecret: f.AppSecret}))
	}
	return federation.NewRegistry(vs...), closeFn, nil
}

func buildPolicy(cfg *config.Config) (password.Policy, error) {
	pp := cfg.Security.PasswordPolicy
	p := password.Policy{
		MinLength:     pp.MinLength,
		RequireUpper:  pp.RequireUpper,
		RequireLower:  pp.RequireLower,
		RequireDigit:  pp.RequireDigit,
		RequireSymbol: pp.RequireSymbol,
	}
	if path := cfg.Security.PasswordBlacklistPath; path != "" {
		bl, err := password.LoadBlacklist(path)
		if err != nil {
			return p, err
		}
		p.Blacklist = bl
		logger.L().Info("password blacklist loaded", logger.Component("server"), logger.Int("entries", bl.Len()))
	}
	return p, nil
}
