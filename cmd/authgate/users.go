package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dropDatabas3/authgate/internal/bootstrap"
	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/dropDatabas3/authgate/internal/http/server"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
	"github.com/dropDatabas3/authgate/internal/security/password"
)

func newUsersCmd(opts *rootOptions) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Operaciones sobre el directorio de usuarios",
	}

	var email, role string
	setRole := &cobra.Command{
		Use:   "set-role",
		Short: "Cambia el rol de un usuario (subscriber|admin)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(email) == "" {
				return errors.New("--email es requerido")
			}
			r := repository.Role(strings.ToLower(strings.TrimSpace(role)))
			if !r.Valid() {
				return fmt.Errorf("--role inválido %q (subscriber|admin)", role)
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			dir, err := server.OpenDirectory(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer dir.Close()

			u, err := dir.SetRole(cmd.Context(), email, r)
			if err != nil {
				if repository.IsNotFound(err) {
					return fmt.Errorf("no existe usuario con email %s", email)
				}
				return err
			}
			fmt.Printf("%s (%s) → %s\n", u.Email, u.ID, u.Role)
			return nil
		},
	}
	setRole.Flags().StringVar(&email, "email", "", "Email del usuario")
	setRole.Flags().StringVar(&role, "role", string(repository.RoleAdmin), "Rol: subscriber|admin")

	users.AddCommand(setRole, newCreateAdminCmd(opts))
	return users
}

func newCreateAdminCmd(opts *rootOptions) *cobra.Command {
	var email, name, plain string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Crea el usuario admin (o promueve uno existente). Pide lo que falte por stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			dir, err := server.OpenDirectory(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer dir.Close()

			ac := bootstrap.AdminConfig{
				Users:    dir,
				Policy:   password.Policy{MinLength: cfg.Security.PasswordPolicy.MinLength},
				Email:    email,
				Name:     name,
				Password: plain,
				In:       cmd.InOrStdin(),
				Out:      cmd.OutOrStdout(),
			}
			if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
				ac.ReadPassword = func() ([]byte, error) { return term.ReadPassword(fd) }
			}

			res, err := bootstrap.CreateAdmin(cmd.Context(), ac)
			if err != nil {
				return err
			}
			action := "created"
			if res.Promoted {
				action = "promoted"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s admin %s (%s)\n", action, res.User.Email, res.User.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email del admin")
	cmd.Flags().StringVar(&name, "name", "", "Nombre (sólo si se crea)")
	cmd.Flags().StringVar(&plain, "password", "", "Password (evitar en shells con historial)")
	return cmd
}
