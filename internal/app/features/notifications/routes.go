// internal/app/features/notifications/routes.go
package notifications

import (
	"github.com/dalemusser/projecthub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Get("/unread-count", h.ServeUnreadCount)
	r.Post("/read-all", h.HandleReadAll)
	r.Post("/{id}/read", h.HandleRead)
	r.Delete("/{id}", h.HandleDelete)
	r.Post("/{id}/accept", h.HandleAccept)
	r.Post("/{id}/decline", h.HandleDecline)
	return r
}
