// internal/app/features/userinfo/handler.go
package userinfo

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/projecthub/internal/app/features/shared"
	"github.com/dalemusser/projecthub/internal/app/system/apperr"
	"github.com/dalemusser/projecthub/internal/app/system/respond"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type UserGetter interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

type UnreadCounter interface {
	UnreadCount(ctx context.Context, recipient primitive.ObjectID) (int64, error)
}

type Handler struct {
	Users  UserGetter
	Unread UnreadCounter
	Log    *zap.Logger
}

func NewHandler(users UserGetter, unread UnreadCounter, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Unread: unread, Log: logger}
}

type meResponse struct {
	User                models.User `json:"user"`
	UnreadNotifications int64       `json:"unread_notifications"`
}

// ServeMe handles GET /me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "userinfo.me")
	defer cancel()

	u, err := h.Users.GetByID(ctx, a.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Error(w, h.Log, apperr.NotFound("user not found"))
		return
	}
	if err != nil {
		respond.Error(w, h.Log, apperr.Downstream("load user", err))
		return
	}
	unread, err := h.Unread.UnreadCount(ctx, a.ID)
	if err != nil {
		// The profile is still useful without the badge count.
		h.Log.Warn("me: unread count failed", zap.Error(err))
	}
	respond.JSON(w, h.Log, http.StatusOK, meResponse{User: u, UnreadNotifications: unread})
}
