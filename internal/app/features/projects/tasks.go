// internal/app/features/projects/tasks.go
package projects

import (
	"net/http"
	"time"

	"github.com/dalemusser/projecthub/internal/app/features/shared"
	"github.com/dalemusser/projecthub/internal/app/services/tasks"
	"github.com/dalemusser/projecthub/internal/app/system/respond"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
)

// ServeTasks handles GET /projects/{id}/tasks.
func (h *Handler) ServeTasks(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	id, err := shared.ObjectID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "projects.tasks")
	defer cancel()

	out, err := h.Tasks.List(ctx, a, id)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, h.Log, http.StatusOK, map[string]any{"tasks": out})
}

type createTaskInput struct {
	Title       string     `json:"title" validate:"required,max=200" label:"Title"`
	Description string     `json:"description" validate:"max=5000" label:"Description"`
	AssignedTo  string     `json:"assigned_to" label:"Assignee"`
	Status      string     `json:"status" label:"Status"`
	Priority    string     `json:"priority" validate:"omitempty,max=20" label:"Priority"`
	DueDate     *time.Time `json:"due_date"`
}

// HandleCreateTask handles POST /projects/{id}/tasks.
func (h *Handler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	id, err := shared.ObjectID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in createTaskInput
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	assignee, err := shared.OptionalObjectID(in.AssignedTo, "assigned_to")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "projects.create_task")
	defer cancel()

	t, err := h.Tasks.Create(ctx, a, id, tasks.CreateInput{
		Title:       in.Title,
		Description: in.Description,
		AssignedTo:  assignee,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, h.Log, http.StatusCreated, t)
}
