// internal/app/features/projects/routes.go
package projects

import (
	"github.com/dalemusser/projecthub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(mw.RequireSignedIn)

		// LIST / VIEW
		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeProject)

		// TASKS
		pr.Get("/{id}/tasks", h.ServeTasks)
		pr.Post("/{id}/tasks", h.HandleCreateTask)

		// ADMIN
		pr.Group(func(ar chi.Router) {
			ar.Use(mw.RequireRole("admin"))
			ar.Post("/", h.HandleCreate)
			ar.Patch("/{id}", h.HandleUpdate)
			ar.Delete("/{id}", h.HandleDelete)
			ar.Post("/{id}/assign", h.HandleAssign)
		})

		// TEAM LEADER
		pr.Group(func(lr chi.Router) {
			lr.Use(mw.RequireRole("team_leader"))
			lr.Put("/{id}/respond", h.HandleRespond)
			lr.Delete("/{id}/permanent", h.HandlePermanentDelete)
		})
	})

	return r
}
