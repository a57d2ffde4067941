package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML).
	App struct {
		// dev | staging | prod
		Env  string `yaml:"app_env"`
		Name string `yaml:"name"`
	} `yaml:"app"`

	Server struct {
		Addr               string        `yaml:"addr"`
		CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
		ReadTimeout        time.Duration `yaml:"read_timeout"`
		WriteTimeout       time.Duration `yaml:"write_timeout"`
		IdleTimeout        time.Duration `yaml:"idle_timeout"`
		ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Storage struct {
		Driver      string `yaml:"driver"` // postgres | memory
		DSN         string `yaml:"dsn"`
		AutoMigrate bool   `yaml:"auto_migrate"`
		Postgres    struct {
			MaxOpenConns    int           `yaml:"max_open_conns"`
			MaxIdleConns    int           `yaml:"max_idle_conns"`
			ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			DB       int    `yaml:"db"`
			Password string `yaml:"password"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL      time.Duration `yaml:"default_ttl"`
			CleanupInterval time.Duration `yaml:"cleanup_interval"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	// Un secreto por tipo de token.
	JWT struct {
		Issuer                  string        `yaml:"issuer"`
		AccountActivationSecret string        `yaml:"account_activation_secret"`
		ResetPasswordSecret     string        `yaml:"reset_password_secret"`
		SessionSecret           string        `yaml:"session_secret"`
		ActivationTTL           time.Duration `yaml:"activation_ttl"`
		ResetTTL                time.Duration `yaml:"reset_ttl"`
		SessionTTL              time.Duration `yaml:"session_ttl"`
	} `yaml:"jwt"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"`                  // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"` // sólo dev
	} `yaml:"smtp"`

	Email struct {
		// Base de los links de activación/reset (frontend).
		ClientURL    string `yaml:"client_url"`
		Driver       string `yaml:"driver"` // smtp | log
		TemplatesDir string `yaml:"templates_dir"`
	} `yaml:"email"`

	Security struct {
		PasswordPolicy struct {
			MinLength     int  `yaml:"min_length"`
			RequireUpper  bool `yaml:"require_upper"`
			RequireLower  bool `yaml:"require_lower"`
			RequireDigit  bool `yaml:"require_digit"`
			RequireSymbol bool `yaml:"require_symbol"`
		} `yaml:"password_policy"`
		PasswordBlacklistPath string `yaml:"password_blacklist_path"`
	} `yaml:"security"`

	// ───────── Social Login Providers ─────────
	Providers struct {
		Google struct {
			Enabled  bool          `yaml:"enabled"`
			ClientID string        `yaml:"client_id"`
			JWKSURL  string        `yaml:"jwks_url"`
			Leeway   time.Duration `yaml:"leeway"`
		} `yaml:"google"`
		Facebook struct {
			Enabled      bool   `yaml:"enabled"`
			GraphURL     string `yaml:"graph_url"`
			GraphVersion string `yaml:"graph_version"`
			AppSecret    string `yaml:"app_secret"` // opcional: appsecret_proof
		} `yaml:"facebook"`
	} `yaml:"providers"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load lee el YAML (si path != ""), aplica defaults, overrides por env y valida.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	c.applyEnvOverrides()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	// Normalizar paths relativos respecto al directorio del YAML
	if path != "" {
		base := filepath.Dir(path)
		c.Security.PasswordBlacklistPath = resolvePath(base, c.Security.PasswordBlacklistPath)
		c.Email.TemplatesDir = resolvePath(base, c.Email.TemplatesDir)
	}

	return &c, nil
}

func resolvePath(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "authgate"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Storage.Driver == "" {
		if c.Storage.DSN != "" {
			c.Storage.Driver = "postgres"
		} else {
			c.Storage.Driver = "memory"
		}
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "authgate:"
	}
	if c.Cache.Memory.DefaultTTL == 0 {
		c.Cache.Memory.DefaultTTL = 10 * time.Minute
	}
	if c.Cache.Memory.CleanupInterval == 0 {
		c.Cache.Memory.CleanupInterval = time.Minute
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = c.App.Name
	}
	if c.JWT.ActivationTTL == 0 {
		c.JWT.ActivationTTL = 10 * time.Minute
	}
	if c.JWT.ResetTTL == 0 {
		c.JWT.ResetTTL = 10 * time.Minute
	}
	if c.JWT.SessionTTL == 0 {
		c.JWT.SessionTTL = 7 * 24 * time.Hour
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.Email.Driver == "" {
		if c.SMTP.Host != "" {
			c.Email.Driver = "smtp"
		} else {
			c.Email.Driver = "log"
		}
	}
	if c.Security.PasswordPolicy.MinLength == 0 {
		c.Security.PasswordPolicy.MinLength = 6
	}
	if c.Providers.Facebook.GraphURL == "" {
		c.Providers.Facebook.GraphURL = "https://graph.facebook.com"
	}
	if c.Providers.Facebook.GraphVersion == "" {
		c.Providers.Facebook.GraphVersion = "v2.11"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

// getEnvFirst retorna el primer key seteado (nombre nuevo primero, alias legacy después).
func getEnvFirst(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := getEnvStr(k); ok {
			return v, true
		}
	}
	return "", false
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
// Acepta además los nombres históricos (JWT_SECRET, CLIENT_URL, PORT, ...).
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvFirst("APP_ENV", "NODE_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	} else if v, ok := getEnvStr("PORT"); ok {
		c.Server.Addr = ":" + strings.TrimPrefix(strings.TrimSpace(v), ":")
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvFirst("STORAGE_DSN", "DATABASE_URL"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvBool("STORAGE_AUTO_MIGRATE"); ok {
		c.Storage.AutoMigrate = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}
	if v, ok := getEnvDur("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
	if v, ok := getEnvDur("CACHE_MEMORY_DEFAULT_TTL"); ok {
		c.Cache.Memory.DefaultTTL = v
	}

	// JWT
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvFirst("JWT_ACCOUNT_ACTIVATION_SECRET", "JWT_ACCOUNT_ACTIVATION"); ok {
		c.JWT.AccountActivationSecret = v
	}
	if v, ok := getEnvFirst("JWT_RESET_PASSWORD_SECRET", "JWT_RESET_PASSWORD"); ok {
		c.JWT.ResetPasswordSecret = v
	}
	if v, ok := getEnvFirst("JWT_SESSION_SECRET", "JWT_SECRET"); ok {
		c.JWT.SessionSecret = v
	}
	if v, ok := getEnvDur("JWT_ACTIVATION_TTL"); ok {
		c.JWT.ActivationTTL = v
	}
	if v, ok := getEnvDur("JWT_RESET_TTL"); ok {
		c.JWT.ResetTTL = v
	}
	if v, ok := getEnvDur("JWT_SESSION_TTL"); ok {
		c.JWT.SessionTTL = v
	}

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvFirst("SMTP_FROM", "EMAIL_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = strings.ToLower(v) // auto|starttls|ssl|none
	}
	if v, ok := getEnvBool("SMTP_INSECURE_SKIP_VERIFY"); ok {
		c.SMTP.InsecureSkipVerify = v
	}

	// EMAIL
	if v, ok := getEnvFirst("EMAIL_CLIENT_URL", "CLIENT_URL"); ok {
		c.Email.ClientURL = v
	}
	if v, ok := getEnvStr("EMAIL_DRIVER"); ok {
		c.Email.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("EMAIL_TEMPLATES_DIR"); ok {
		c.Email.TemplatesDir = v
	}

	// SECURITY
	if v, ok := getEnvInt("SECURITY_PASSWORD_POLICY_MIN_LENGTH"); ok {
		c.Security.PasswordPolicy.MinLength = v
	}
	if v, ok := getEnvBool("SECURITY_PASSWORD_POLICY_REQUIRE_UPPER"); ok {
		c.Security.PasswordPolicy.RequireUpper = v
	}
	if v, ok := getEnvBool("SECURITY_PASSWORD_POLICY_REQUIRE_LOWER"); ok {
		c.Security.PasswordPolicy.RequireLower = v
	}
	if v, ok := getEnvBool("SECURITY_PASSWORD_POLICY_REQUIRE_DIGIT"); ok {
		c.Security.PasswordPolicy.RequireDigit = v
	}
	if v, ok := getEnvBool("SECURITY_PASSWORD_POLICY_REQUIRE_SYMBOL"); ok {
		c.Security.PasswordPolicy.RequireSymbol = v
	}
	if v, ok := getEnvStr("SECURITY_PASSWORD_BLACKLIST_PATH"); ok {
		c.Security.PasswordBlacklistPath = strings.TrimSpace(v)
	}

	// ───── Providers (Social) ─────
	if v, ok := getEnvBool("GOOGLE_ENABLED"); ok {
		c.Providers.Google.Enabled = v
	}
	if v, ok := getEnvStr("GOOGLE_CLIENT_ID"); ok {
		c.Providers.Google.ClientID = v
		// compat: con sólo GOOGLE_CLIENT_ID el proveedor queda habilitado
		if _, set := getEnvStr("GOOGLE_ENABLED"); !set {
			c.Providers.Google.Enabled = true
		}
	}
	if v, ok := getEnvStr("GOOGLE_JWKS_URL"); ok {
		c.Providers.Google.JWKSURL = v
	}
	if v, ok := getEnvBool("FACEBOOK_ENABLED"); ok {
		c.Providers.Facebook.Enabled = v
	}
	if v, ok := getEnvStr("FACEBOOK_GRAPH_URL"); ok {
		c.Providers.Facebook.GraphURL = v
	}
	if v, ok := getEnvStr("FACEBOOK_GRAPH_VERSION"); ok {
		c.Providers.Facebook.GraphVersion = v
	}
	if v, ok := getEnvStr("FACEBOOK_APP_SECRET"); ok {
		c.Providers.Facebook.AppSecret = v
	}

	// LOG
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
}

// IsProd reporta si el entorno es producción.
func (c *Config) IsProd() bool {
	e := strings.ToLower(strings.TrimSpace(c.App.Env))
	return e == "prod" || e == "production"
}

// Validate verifica los valores críticos. Junta todos los problemas en un
// único error para que el operador los vea de una vez.
func (c *Config) Validate() error {
	var errs []error

	secrets := map[string]string{
		"jwt.account_activation_secret": c.JWT.AccountActivationSecret,
		"jwt.reset_password_secret":     c.JWT.ResetPasswordSecret,
		"jwt.session_secret":            c.JWT.SessionSecret,
	}
	seen := map[string]string{}
	for _, name := range []string{"jwt.account_activation_secret", "jwt.reset_password_secret", "jwt.session_secret"} {
		v := secrets[name]
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
			continue
		}
		if other, dup := seen[v]; dup {
			errs = append(errs, fmt.Errorf("%s must differ from %s", name, other))
		}
		seen[v] = name
	}

	if strings.TrimSpace(c.Email.ClientURL) == "" {
		errs = append(errs, errors.New("email.client_url is required"))
	}

	switch c.Storage.Driver {
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	case "memory":
		if c.IsProd() {
			errs = append(errs, errors.New("storage.driver=memory is not allowed in prod"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q not supported (postgres|memory)", c.Storage.Driver))
	}

	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.kind %q not supported (memory|redis)", c.Cache.Kind))
	}

	switch c.Email.Driver {
	case "log":
	case "smtp":
		if strings.TrimSpace(c.SMTP.Host) == "" {
			errs = append(errs, errors.New("smtp.host is required for email.driver=smtp"))
		}
		if strings.TrimSpace(c.SMTP.From) == "" {
			errs = append(errs, errors.New("smtp.from is required for email.driver=smtp"))
		}
	default:
		errs = append(errs, fmt.Errorf("email.driver %q not supported (smtp|log)", c.Email.Driver))
	}

	if c.Providers.Google.Enabled && strings.TrimSpace(c.Providers.Google.ClientID) == "" {
		errs = append(errs, errors.New("providers.google.client_id is required when google is enabled"))
	}

	return errors.Join(errs...)
}
