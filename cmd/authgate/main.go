// Command authgate sirve la API de autenticación y expone tareas
// operativas (migraciones, cambio de rol).
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/authgate/internal/config"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

// version se setea con -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
	envFile    string
}

func main() {
	opts := &rootOptions{configPath: os.Getenv("AUTHGATE_CONFIG")}

	root := &cobra.Command{
		Use:           "authgate",
		Short:         "API de autenticación: signup, signin, reset y login social",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "Path al YAML de configuración (env AUTHGATE_CONFIG). Vacío = sólo env")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Archivo .env opcional")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newUsersCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Imprime la versión",
			Run:   func(*cobra.Command, []string) { fmt.Println(version) },
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// load carga .env (si existe), la config y deja el logger global listo.
func (o *rootOptions) load() (*config.Config, error) {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("env file %s: %w", o.envFile, err)
		}
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Version:     version,
	})
	return cfg, nil
}
