// internal/app/features/projects/list.go
package projects

import (
	"net/http"
	"strings"

	"github.com/dalemusser/projecthub/internal/app/features/shared"
	"github.com/dalemusser/projecthub/internal/app/services/lifecycle"
	"github.com/dalemusser/projecthub/internal/app/system/respond"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
)

// ServeList handles GET /projects?status=&search=&include_inactive=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "projects.list")
	defer cancel()

	q := r.URL.Query()
	out, err := h.Projects.List(ctx, a, lifecycle.ListInput{
		Status:          strings.TrimSpace(q.Get("status")),
		Search:          strings.TrimSpace(q.Get("search")),
		IncludeInactive: shared.QueryBool(r, "include_inactive"),
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, h.Log, http.StatusOK, map[string]any{"projects": out})
}

// ServeProject handles GET /projects/{id}.
func (h *Handler) ServeProject(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	id, err := shared.ObjectID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "projects.get")
	defer cancel()

	v, err := h.Projects.Get(ctx, a, id)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, h.Log, http.StatusOK, v)
}
