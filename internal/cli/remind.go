package cli

import (
	"errors"
	"time"

	"github.com/dalemusser/projecthub/internal/app/bootstrap"
	"github.com/dalemusser/projecthub/internal/app/system/realtime"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRemindCmd(app *App) *cobra.Command {
	var window time.Duration

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run one deadline-reminder sweep and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if window <= 0 {
				return writeErr(cmd, errors.New("--window must be positive"))
			}

			db, closeFn, err := app.connect(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeFn()

			rdb, err := realtime.Connect(cmd.Context(), app.RedisAddr, envOr("PROJECTHUB_REDIS_PASSWORD", ""), 0)
			if err != nil {
				app.log().Warn("redis unavailable; reminders are stored without fan-out", zap.Error(err))
			}
			if rdb != nil {
				defer rdb.Close()
			}

			svc := bootstrap.NewServices(db, rdb, app.BaseURL, app.log())
			// The interval is unused for a single sweep.
			worker := svc.DeadlineReminder(app.log(), time.Hour, window)

			ctx, cancel := timeouts.WithTimeout(cmd.Context(), timeouts.Long(), app.log(), "projecthubctl.remind")
			defer cancel()
			sweep, err := worker.RunOnce(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]int{
				"tasks":    sweep.Tasks,
				"projects": sweep.Projects,
			})
		},
	}

	cmd.Flags().DurationVar(&window, "window", 24*time.Hour, "How far ahead a deadline counts as due")
	return cmd
}
