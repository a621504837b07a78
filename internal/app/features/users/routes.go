// internal/app/features/users/routes.go
package users

import (
	"github.com/dalemusser/projecthub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.With(mw.RequireRole("admin")).Post("/", h.HandleCreate)
	return r
}
