// internal/app/features/teams/routes.go
package teams

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
		pr.Get("/{id}", h.ServeTeam)

		// CREATE
		pr.With(mw.RequireRole("admin")).Post("/", h.HandleCreate)

		// MEMBERS (admin or the team's leader; checked by the service)
		pr.Post("/{id}/members", h.HandleAddMember)
		pr.With(mw.RequireRole("admin")).Delete("/{id}/members/{userID}", h.HandleRemoveMember)

		// REQUESTS
		pr.Post("/{id}/join-requests", h.HandleJoinRequest)
		pr.With(mw.RequireRole("team_leader")).Post("/{id}/invitations", h.HandleInvite)
	})

	return r
}
