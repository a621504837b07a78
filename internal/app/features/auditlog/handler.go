// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/projecthub/internal/app/features/shared"
	"github.com/dalemusser/projecthub/internal/app/store/audit"
	"github.com/dalemusser/projecthub/internal/app/system/apperr"
	"github.com/dalemusser/projecthub/internal/app/system/limits"
	"github.com/dalemusser/projecthub/internal/app/system/paging"
	"github.com/dalemusser/projecthub/internal/app/system/respond"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// EventQuerier reads stored audit events.
type EventQuerier interface {
	Query(ctx context.Context, f audit.QueryFilter) ([]audit.Event, error)
}

type Handler struct {
	Events EventQuerier
	Log    *zap.Logger
}

// NewHandler constructs an Audit Log feature handler bound to the given
// event store and logger.
func NewHandler(events EventQuerier, logger *zap.Logger) *Handler {
	return &Handler{Events: events, Log: logger}
}

type eventView struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	UserID        string            `json:"user_id,omitempty"`
	ActorID       string            `json:"actor_id,omitempty"`
	TeamID        string            `json:"team_id,omitempty"`
	IP            string            `json:"ip,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

// ServeList handles GET /audit?category=&event_type=&user=&team=&since=&limit=.
// since is an RFC 3339 timestamp.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := audit.QueryFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("event_type")),
		Limit:     paging.Limit(r, limits.DefaultAuditPage, limits.MaxAuditPage),
	}

	var err error
	if f.UserID, err = shared.OptionalObjectID(q.Get("user"), "user"); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if f.TeamID, err = shared.OptionalObjectID(q.Get("team"), "team"); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if raw := strings.TrimSpace(q.Get("since")); raw != "" {
		since, perr := time.Parse(time.RFC3339, raw)
		if perr != nil {
			respond.Error(w, h.Log, apperr.Validation("since must be an RFC 3339 timestamp"))
			return
		}
		f.Since = &since
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "audit.list")
	defer cancel()

	events, err := h.Events.Query(ctx, f)
	if err != nil {
		respond.Error(w, h.Log, apperr.Downstream("query audit events", err))
		return
	}

	out := make([]eventView, 0, len(events))
	for _, e := range events {
		v := eventView{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		if e.UserID != nil {
			v.UserID = e.UserID.Hex()
		}
		if e.ActorID != nil {
			v.ActorID = e.ActorID.Hex()
		}
		if e.TeamID != nil {
			v.TeamID = e.TeamID.Hex()
		}
		out = append(out, v)
	}
	respond.JSON(w, h.Log, http.StatusOK, map[string]any{"events": out})
}
