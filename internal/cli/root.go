// Package cli implements projecthubctl, the operator command line for
// ProjectHub deployments.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type App struct {
	MongoURI   string
	Database   string
	RedisAddr  string
	BaseURL    string
	PrettyJSON bool
	Verbose    bool

	logger *zap.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "projecthubctl",
		Short:        "ProjectHub operator tools",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Create or promote the first administrator
  projecthubctl seed-admin --email admin@example.com --password 'change-me-now'

  # Send due deadline reminders once (e.g. from cron)
  projecthubctl remind --window 24h

  # Print fresh secrets for session_key and jwt_secret
  projecthubctl gen-keys
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if app.Verbose {
			l, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			app.logger = l
		} else {
			app.logger = zap.NewNop()
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.MongoURI, "mongo-uri", envOr("PROJECTHUB_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection string")
	cmd.PersistentFlags().StringVar(&app.Database, "mongo-database", envOr("PROJECTHUB_MONGO_DATABASE", "projecthub"), "MongoDB database name")
	cmd.PersistentFlags().StringVar(&app.RedisAddr, "redis-addr", envOr("PROJECTHUB_REDIS_ADDR", ""), "Redis address for realtime fan-out (blank disables)")
	cmd.PersistentFlags().StringVar(&app.BaseURL, "base-url", envOr("PROJECTHUB_BASE_URL", ""), "Public base URL used in notification links")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Log to stderr")

	cmd.AddCommand(newSeedAdminCmd(app))
	cmd.AddCommand(newRemindCmd(app))
	cmd.AddCommand(newGenKeysCmd(app))

	return cmd
}

func (a *App) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

// connect opens the configured database. The returned func disconnects.
func (a *App) connect(ctx context.Context) (*mongo.Database, func(), error) {
	cctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(a.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	closeFn := func() { _ = client.Disconnect(context.Background()) }
	return client.Database(a.Database), closeFn, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if app.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
