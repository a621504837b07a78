// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/projecthub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit log under "/audit". Admins only.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(mw.RequireSignedIn)
		pr.Use(mw.RequireRole("admin"))

		pr.Get("/", h.ServeList)
	})

	return r
}
