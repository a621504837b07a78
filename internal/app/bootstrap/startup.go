// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	userstore "github.com/dalemusser/projecthub/internal/app/store/users"
	"github.com/dalemusser/projecthub/internal/app/system/authutil"
	"github.com/dalemusser/projecthub/internal/app/system/normalize"
	"github.com/dalemusser/projecthub/internal/app/system/workers"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// runtimeState is what Startup builds and later hooks reuse.
type runtimeState struct {
	services *Services
	reminder *workers.DeadlineReminder
}

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built: the
// bootstrap admin is ensured, the services are wired and the deadline
// reminder worker is started.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.AdminEmail != "" {
		if _, err := EnsureAdmin(ctx, deps.MongoDatabase, appCfg.AdminEmail, appCfg.AdminName, appCfg.AdminPassword, logger); err != nil {
			return err
		}
	}

	rt := deps.state()
	rt.services = NewServices(deps.MongoDatabase, deps.Redis, appCfg.BaseURL, logger)
	rt.reminder = rt.services.DeadlineReminder(logger, appCfg.ReminderInterval, appCfg.ReminderWindow)
	rt.reminder.Start()
	return nil
}

// EnsureAdmin creates the admin identified by email, or promotes and
// reactivates an existing account. password is only used for a new account
// or one that has none yet.
func EnsureAdmin(ctx context.Context, db *mongo.Database, email, name, password string, logger *zap.Logger) (models.User, error) {
	email = normalize.Email(email)
	if !strings.Contains(email, "@") {
		return models.User{}, fmt.Errorf("admin_email %q is not an email address", email)
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}

	var hash string
	if password != "" {
		if err := authutil.ValidatePassword(password); err != nil {
			return models.User{}, fmt.Errorf("admin_password: %w", err)
		}
		h, err := authutil.HashPassword(password)
		if err != nil {
			return models.User{}, fmt.Errorf("hash admin password: %w", err)
		}
		hash = h
	}

	u, created, err := userstore.New(db).EnsureAdmin(ctx, email, normalize.Name(name), hash)
	if err != nil {
		return models.User{}, fmt.Errorf("ensure admin %s: %w", email, err)
	}
	if created {
		logger.Info("bootstrap admin created", zap.String("user_id", u.ID.Hex()), zap.String("email", email))
		if hash == "" {
			logger.Warn("bootstrap admin has no password; set admin_password or use projecthubctl seed-admin")
		}
	} else {
		logger.Info("bootstrap admin ensured", zap.String("user_id", u.ID.Hex()), zap.String("email", email))
	}
	return u, nil
}

// state returns the shared runtime state, allocating it for deps built
// outside ConnectDB (tests, the CLI).
func (d *DBDeps) state() *runtimeState {
	if d.runtime == nil {
		d.runtime = &runtimeState{}
	}
	return d.runtime
}
