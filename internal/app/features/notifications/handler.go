// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"net/http"

	"github.com/dalemusser/projecthub/internal/app/features/shared"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/app/system/limits"
	"github.com/dalemusser/projecthub/internal/app/system/paging"
	"github.com/dalemusser/projecthub/internal/app/system/respond"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Inbox is the recipient side of the notification dispatcher.
type Inbox interface {
	List(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error)
	UnreadCount(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, recipient, id primitive.ObjectID) error
	MarkAllRead(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	Dismiss(ctx context.Context, recipient, id primitive.ObjectID) error
}

// Answerer accepts or declines team join requests and invitations.
type Answerer interface {
	Accept(ctx context.Context, a authz.Actor, notificationID primitive.ObjectID) error
	Decline(ctx context.Context, a authz.Actor, notificationID primitive.ObjectID) error
}

// Handler serves /notifications. Every route acts on the signed-in user's
// own notifications.
type Handler struct {
	Inbox    Inbox
	Requests Answerer
	Log      *zap.Logger
}

func NewHandler(inbox Inbox, requests Answerer, logger *zap.Logger) *Handler {
	return &Handler{Inbox: inbox, Requests: requests, Log: logger}
}

// ServeList handles GET /notifications?unread=true&limit=N, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	limit := paging.Limit(r, limits.DefaultNotificationPage, limits.MaxNotificationPage)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "notifications.list")
	defer cancel()

	out, err := h.Inbox.List(ctx, a.ID, shared.QueryBool(r, "unread"), limit)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, h.Log, http.StatusOK, map[string]any{"notifications": out})
}

// ServeUnreadCount handles GET /notifications/unread-count.
func (h *Handler) ServeUnreadCount(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "notifications.unread_count")
	defer cancel()

	n, err := h.Inbox.UnreadCount(ctx, a.ID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, h.Log, http.StatusOK, map[string]int64{"count": n})
}

// HandleReadAll handles POST /notifications/read-all.
func (h *Handler) HandleReadAll(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "notifications.read_all")
	defer cancel()

	n, err := h.Inbox.MarkAllRead(ctx, a.ID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, h.Log, http.StatusOK, map[string]int64{"updated": n})
}

// HandleRead handles POST /notifications/{id}/read.
func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "notifications.read", func(ctx context.Context, a authz.Actor, id primitive.ObjectID) error {
		return h.Inbox.MarkRead(ctx, a.ID, id)
	})
}

// HandleDelete handles DELETE /notifications/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "notifications.delete", func(ctx context.Context, a authz.Actor, id primitive.ObjectID) error {
		return h.Inbox.Dismiss(ctx, a.ID, id)
	})
}

// HandleAccept handles POST /notifications/{id}/accept.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "notifications.accept", h.Requests.Accept)
}

// HandleDecline handles POST /notifications/{id}/decline.
func (h *Handler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "notifications.decline", h.Requests.Decline)
}

func (h *Handler) act(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, a authz.Actor, id primitive.ObjectID) error) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	id, err := shared.ObjectID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	if err := fn(ctx, a, id); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
