// internal/app/features/projects/assign.go
package projects

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/projecthub/internal/app/features/shared"
	"github.com/dalemusser/projecthub/internal/app/services/lifecycle"
	"github.com/dalemusser/projecthub/internal/app/store/audit"
	"github.com/dalemusser/projecthub/internal/app/system/apperr"
	"github.com/dalemusser/projecthub/internal/app/system/respond"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type assignInput struct {
	TeamID string `json:"team_id" validate:"required,len=24,hexadecimal" label:"Team"`
}

// HandleAssign handles POST /projects/{id}/assign.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	id, err := shared.ObjectID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in assignInput
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	teamID, err := primitive.ObjectIDFromHex(in.TeamID)
	if err != nil {
		respond.Error(w, h.Log, apperr.Validation("team_id must be a valid id"))
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "projects.assign")
	defer cancel()

	v, err := h.Projects.Assign(ctx, a, id, teamID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.AuditLog.Admin(ctx, r, a, audit.EventProjectAssigned, nil, &teamID, map[string]string{"project_id": id.Hex()})
	respond.JSON(w, h.Log, http.StatusOK, v)
}

type respondInput struct {
	Action string `json:"action" validate:"required" label:"Action"`
}

// HandleRespond handles PUT /projects/{id}/respond with {"action":"accept"}
// or {"action":"reject"}.
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	id, err := shared.ObjectID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in respondInput
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	action, ok := lifecycle.ParseAction(in.Action)
	if !ok {
		respond.Error(w, h.Log, apperr.Validation("action must be accept or reject"))
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "projects.respond")
	defer cancel()

	v, err := h.Projects.Respond(ctx, a, id, action)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	event := audit.EventProjectAccepted
	if action == lifecycle.Reject {
		event = audit.EventProjectRejected
	}
	h.AuditLog.Admin(ctx, r, a, event, nil, v.Team, map[string]string{"project_id": id.Hex()})
	respond.JSON(w, h.Log, http.StatusOK, v)
}

// HandlePermanentDelete handles DELETE /projects/{id}/permanent. The
// project and all of its tasks are removed.
func (h *Handler) HandlePermanentDelete(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	id, err := shared.ObjectID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "projects.permanent_delete")
	defer cancel()

	res, err := h.Projects.PermanentlyDelete(ctx, a, id)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.AuditLog.Admin(ctx, r, a, audit.EventProjectPermanentlyDeleted, nil, nil, map[string]string{
		"project_id":    id.Hex(),
		"tasks_deleted": strconv.FormatInt(res.TasksDeleted, 10),
	})
	respond.JSON(w, h.Log, http.StatusOK, map[string]any{
		"deleted":       true,
		"tasks_deleted": res.TasksDeleted,
	})
}
