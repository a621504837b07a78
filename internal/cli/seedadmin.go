package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/dalemusser/projecthub/internal/app/bootstrap"
	"github.com/spf13/cobra"
)

func newSeedAdminCmd(app *App) *cobra.Command {
	var email, name, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the admin account, or promote and reactivate an existing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return writeErr(cmd, errors.New("--email is required"))
			}
			if password == "" {
				password = os.Getenv("PROJECTHUB_ADMIN_PASSWORD")
			}

			db, closeFn, err := app.connect(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeFn()

			u, err := bootstrap.EnsureAdmin(cmd.Context(), db, email, name, password, app.log())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"id":        u.ID.Hex(),
				"email":     u.Email,
				"full_name": u.FullName,
				"role":      u.Role,
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", envOr("PROJECTHUB_ADMIN_EMAIL", ""), "Admin email address")
	cmd.Flags().StringVar(&name, "name", envOr("PROJECTHUB_ADMIN_NAME", "Administrator"), "Admin full name")
	cmd.Flags().StringVar(&password, "password", "", "Password for a new account (or PROJECTHUB_ADMIN_PASSWORD)")
	return cmd
}
