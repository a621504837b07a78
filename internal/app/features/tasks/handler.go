// internal/app/features/tasks/handler.go
package tasks

import (
	"context"
	"net/http"

	"github.com/dalemusser/projecthub/internal/app/features/shared"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/app/system/respond"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Updater changes a single task.
type Updater interface {
	UpdateStatus(ctx context.Context, a authz.Actor, taskID primitive.ObjectID, status string) (models.Task, error)
	UpdateProgress(ctx context.Context, a authz.Actor, taskID primitive.ObjectID, progress int) (models.Task, error)
	Reassign(ctx context.Context, a authz.Actor, taskID primitive.ObjectID, assignee *primitive.ObjectID) (models.Task, error)
}

type Handler struct {
	Tasks Updater
	Log   *zap.Logger
}

func NewHandler(tasks Updater, logger *zap.Logger) *Handler {
	return &Handler{Tasks: tasks, Log: logger}
}

type statusInput struct {
	Status string `json:"status" validate:"required" label:"Status"`
}

// HandleStatus handles PATCH /tasks/{id}/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	var in statusInput
	h.update(w, r, &in, "tasks.status", func(ctx context.Context, a authz.Actor, id primitive.ObjectID) (models.Task, error) {
		return h.Tasks.UpdateStatus(ctx, a, id, in.Status)
	})
}

type progressInput struct {
	Progress *int `json:"progress" validate:"required,min=0,max=100" label:"Progress"`
}

// HandleProgress handles PATCH /tasks/{id}/progress.
func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	var in progressInput
	h.update(w, r, &in, "tasks.progress", func(ctx context.Context, a authz.Actor, id primitive.ObjectID) (models.Task, error) {
		return h.Tasks.UpdateProgress(ctx, a, id, *in.Progress)
	})
}

type assigneeInput struct {
	AssignedTo string `json:"assigned_to" label:"Assignee"`
}

// HandleAssignee handles PATCH /tasks/{id}/assignee. A blank assigned_to
// unassigns the task.
func (h *Handler) HandleAssignee(w http.ResponseWriter, r *http.Request) {
	var in assigneeInput
	h.update(w, r, &in, "tasks.assignee", func(ctx context.Context, a authz.Actor, id primitive.ObjectID) (models.Task, error) {
		assignee, err := shared.OptionalObjectID(in.AssignedTo, "assigned_to")
		if err != nil {
			return models.Task{}, err
		}
		return h.Tasks.Reassign(ctx, a, id, assignee)
	})
}

// update runs the steps every task PATCH shares: actor, id, body, call.
func (h *Handler) update(w http.ResponseWriter, r *http.Request, body any, op string,
	call func(ctx context.Context, a authz.Actor, id primitive.ObjectID) (models.Task, error)) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	id, err := shared.ObjectID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := shared.Decode(w, r, body); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()

	t, err := call(ctx, a, id)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, h.Log, http.StatusOK, t)
}
