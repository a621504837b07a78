// internal/app/features/projects/edit.go
package projects

import (
	"net/http"
	"time"

	"github.com/dalemusser/projecthub/internal/app/features/shared"
	"github.com/dalemusser/projecthub/internal/app/services/lifecycle"
	"github.com/dalemusser/projecthub/internal/app/store/audit"
	"github.com/dalemusser/projecthub/internal/app/system/respond"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
)

type createInput struct {
	Name        string     `json:"name" validate:"required,max=200" label:"Name"`
	Description string     `json:"description" validate:"max=5000" label:"Description"`
	Status      string     `json:"status" label:"Status"`
	Priority    string     `json:"priority" validate:"omitempty,max=20" label:"Priority"`
	StartDate   *time.Time `json:"start_date"`
	Deadline    *time.Time `json:"deadline"`
	Team        string     `json:"team" label:"Team"`
}

// HandleCreate handles POST /projects. A team in the body assigns the new
// project straight away.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	var in createInput
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	team, err := shared.OptionalObjectID(in.Team, "team")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "projects.create")
	defer cancel()

	v, err := h.Projects.Create(ctx, a, lifecycle.CreateInput{
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		StartDate:   in.StartDate,
		Deadline:    in.Deadline,
		Team:        team,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, h.Log, http.StatusCreated, v)
}

type updateInput struct {
	Name        *string    `json:"name" validate:"omitempty,max=200" label:"Name"`
	Description *string    `json:"description" validate:"omitempty,max=5000" label:"Description"`
	Status      *string    `json:"status" label:"Status"`
	Priority    *string    `json:"priority" validate:"omitempty,max=20" label:"Priority"`
	StartDate   *time.Time `json:"start_date"`
	Deadline    *time.Time `json:"deadline"`
	Team        *string    `json:"team" label:"Team"`
}

// HandleUpdate handles PATCH /projects/{id}. Omitted fields are unchanged.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	id, err := shared.ObjectID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in updateInput
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	upd := lifecycle.UpdateInput{
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		StartDate:   in.StartDate,
		Deadline:    in.Deadline,
	}
	if in.Team != nil {
		if upd.Team, err = shared.OptionalObjectID(*in.Team, "team"); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "projects.update")
	defer cancel()

	v, err := h.Projects.Update(ctx, a, id, upd)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, h.Log, http.StatusOK, v)
}

// HandleDelete handles DELETE /projects/{id} (soft delete).
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	id, err := shared.ObjectID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "projects.delete")
	defer cancel()

	if err := h.Projects.Delete(ctx, a, id); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.AuditLog.Admin(ctx, r, a, audit.EventProjectDeleted, nil, nil, map[string]string{"project_id": id.Hex()})
	w.WriteHeader(http.StatusNoContent)
}
