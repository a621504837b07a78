// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/projecthub/internal/app/store/audit"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category of events.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// ValidMode reports whether m is a known destination.
func ValidMode(m string) bool {
	switch m {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Config selects where each category of events goes.
type Config struct {
	Auth  string
	Admin string
}

// EventStore persists audit events.
type EventStore interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger records audit events to MongoDB and/or zap. A nil *Logger is a
// valid no-op logger.
type Logger struct {
	store  EventStore
	zapLog *zap.Logger
	config Config
}

func New(store EventStore, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.TeamID != nil {
		fields = append(fields, zap.String("team_id", event.TeamID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log routes event by its category's configured mode. Unknown categories
// go everywhere. Store failures are logged, never returned.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var mode string
	switch event.Category {
	case audit.CategoryAuth:
		mode = l.config.Auth
	case audit.CategoryAdmin:
		mode = l.config.Admin
	default:
		mode = ModeAll
	}
	if mode == "" {
		mode = ModeAll
	}
	if mode == ModeOff {
		return
	}

	if mode == ModeAll || mode == ModeLog {
		l.logToZap(event)
	}
	if (mode == ModeAll || mode == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

/* -------------------------------------------------------------------------- */
/* Authentication events                                                      */
/* -------------------------------------------------------------------------- */

func (l *Logger) auth(ctx context.Context, r *http.Request, eventType string, userID *primitive.ObjectID, reason string, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		UserID:        userID,
		IP:            ratelimit.ClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       reason == "",
		FailureReason: reason,
		Details:       details,
	})
}

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	if l == nil {
		return
	}
	l.auth(ctx, r, audit.EventLoginSuccess, &userID, "", map[string]string{"email": email})
}

func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, email string) {
	if l == nil {
		return
	}
	l.auth(ctx, r, audit.EventLoginFailedUserNotFound, nil, "user not found", map[string]string{"attempted_email": email})
}

func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	if l == nil {
		return
	}
	l.auth(ctx, r, audit.EventLoginFailedWrongPassword, &userID, "wrong password", map[string]string{"email": email})
}

func (l *Logger) LoginFailedUserDisabled(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	if l == nil {
		return
	}
	l.auth(ctx, r, audit.EventLoginFailedUserDisabled, &userID, "user disabled", map[string]string{"email": email})
}

func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, email string) {
	if l == nil {
		return
	}
	l.auth(ctx, r, audit.EventLoginFailedRateLimit, nil, "rate limit exceeded", map[string]string{"attempted_email": email})
}

// Logout records a sign-out. userID is nil when the request carried no
// session.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID *primitive.ObjectID) {
	if l == nil {
		return
	}
	l.auth(ctx, r, audit.EventLogout, userID, "", nil)
}

/* -------------------------------------------------------------------------- */
/* Admin events                                                               */
/* -------------------------------------------------------------------------- */

// Admin records a successful privileged action by actor.
func (l *Logger) Admin(ctx context.Context, r *http.Request, actor authz.Actor, eventType string, userID, teamID *primitive.ObjectID, details map[string]string) {
	if l == nil {
		return
	}
	actorID := actor.ID
	ev := audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		UserID:    userID,
		ActorID:   &actorID,
		TeamID:    teamID,
		Success:   true,
		Details:   details,
	}
	if r != nil {
		ev.IP = ratelimit.ClientIP(r)
		ev.UserAgent = r.UserAgent()
	}
	l.Log(ctx, ev)
}
