// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	auditfeature "github.com/dalemusser/projecthub/internal/app/features/auditlog"
	healthfeature "github.com/dalemusser/projecthub/internal/app/features/health"
	loginfeature "github.com/dalemusser/projecthub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/projecthub/internal/app/features/logout"
	notificationsfeature "github.com/dalemusser/projecthub/internal/app/features/notifications"
	projectsfeature "github.com/dalemusser/projecthub/internal/app/features/projects"
	tasksfeature "github.com/dalemusser/projecthub/internal/app/features/tasks"
	teamsfeature "github.com/dalemusser/projecthub/internal/app/features/teams"
	userinfofeature "github.com/dalemusser/projecthub/internal/app/features/userinfo"
	usersfeature "github.com/dalemusser/projecthub/internal/app/features/users"
	auditstore "github.com/dalemusser/projecthub/internal/app/store/audit"
	userstore "github.com/dalemusser/projecthub/internal/app/store/users"
	"github.com/dalemusser/projecthub/internal/app/system/auditlog"
	"github.com/dalemusser/projecthub/internal/app/system/auth"
	"github.com/dalemusser/projecthub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. ProjectHub resolves the actor for every
// request (bearer token first, then session cookie) and mounts one JSON
// feature router per resource.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.TokenTTL, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	tokens, err := auth.NewTokenIssuer(appCfg.JWTSecret, appCfg.TokenTTL)
	if err != nil {
		logger.Error("token issuer init failed", zap.Error(err))
		return nil, err
	}

	rt := deps.state()
	if rt.services == nil {
		rt.services = NewServices(deps.MongoDatabase, deps.Redis, appCfg.BaseURL, logger)
	}
	svc := rt.services

	auditEvents := auditstore.New(deps.MongoDatabase)
	auditLog := auditlog.New(auditEvents, logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	// The fetcher re-reads the user on each request so role changes and
	// deactivation take effect immediately.
	authMw := auth.NewMiddleware(tokens, sessionMgr, userstore.NewFetcher(deps.MongoDatabase), logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(authMw.LoadActor)

	// Health check endpoint for load balancers and orchestrators
	var redisPing func(ctx context.Context) error
	if deps.Redis != nil {
		redisPing = func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() }
	}
	healthHandler := healthfeature.NewHandler(deps.MongoClient, redisPing, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	loginHandler := loginfeature.NewHandler(svc.Users, tokens, sessionMgr, ratelimit.NewLoginLimiter(), auditLog, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, auditLog, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	meHandler := userinfofeature.NewHandler(svc.Users, svc.Dispatcher, logger)
	r.Mount("/me", userinfofeature.Routes(meHandler, authMw))

	// Projects and their tasks
	projectsHandler := projectsfeature.NewHandler(svc.Lifecycle, svc.TaskService, logger)
	projectsHandler.AuditLog = auditLog
	r.Mount("/projects", projectsfeature.Routes(projectsHandler, authMw))

	tasksHandler := tasksfeature.NewHandler(svc.TaskService, logger)
	r.Mount("/tasks", tasksfeature.Routes(tasksHandler, authMw))

	// Teams and users
	teamsHandler := teamsfeature.NewHandler(svc.TeamService, svc.TeamRequests, logger)
	teamsHandler.AuditLog = auditLog
	r.Mount("/teams", teamsfeature.Routes(teamsHandler, authMw))

	usersHandler := usersfeature.NewHandler(svc.TeamService, logger)
	usersHandler.AuditLog = auditLog
	r.Mount("/users", usersfeature.Routes(usersHandler, authMw))

	// Notifications
	notificationsHandler := notificationsfeature.NewHandler(svc.Dispatcher, svc.TeamRequests, logger)
	r.Mount("/notifications", notificationsfeature.Routes(notificationsHandler, authMw))

	// Audit trail (admins only)
	auditHandler := auditfeature.NewHandler(auditEvents, logger)
	r.Mount("/audit", auditfeature.Routes(auditHandler, authMw))

	return r, nil
}
