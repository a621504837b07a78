// internal/app/features/tasks/routes.go
package tasks

import (
	"github.com/dalemusser/projecthub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireSignedIn)

	r.Patch("/{id}/status", h.HandleStatus)
	r.Patch("/{id}/progress", h.HandleProgress)
	r.Patch("/{id}/assignee", h.HandleAssignee)
	return r
}
