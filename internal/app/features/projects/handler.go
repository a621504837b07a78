// internal/app/features/projects/handler.go
package projects

import (
	"context"

	"github.com/dalemusser/projecthub/internal/app/services/lifecycle"
	"github.com/dalemusser/projecthub/internal/app/services/tasks"
	"github.com/dalemusser/projecthub/internal/app/system/auditlog"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Lifecycle is the project service the handlers drive.
type Lifecycle interface {
	List(ctx context.Context, a authz.Actor, in lifecycle.ListInput) ([]lifecycle.ProjectView, error)
	Get(ctx context.Context, a authz.Actor, id primitive.ObjectID) (lifecycle.ProjectView, error)
	Create(ctx context.Context, a authz.Actor, in lifecycle.CreateInput) (lifecycle.ProjectView, error)
	Update(ctx context.Context, a authz.Actor, id primitive.ObjectID, in lifecycle.UpdateInput) (lifecycle.ProjectView, error)
	Delete(ctx context.Context, a authz.Actor, id primitive.ObjectID) error
	Assign(ctx context.Context, a authz.Actor, projectID, teamID primitive.ObjectID) (lifecycle.ProjectView, error)
	Respond(ctx context.Context, a authz.Actor, projectID primitive.ObjectID, action lifecycle.Action) (lifecycle.ProjectView, error)
	PermanentlyDelete(ctx context.Context, a authz.Actor, projectID primitive.ObjectID) (lifecycle.DeleteResult, error)
}

// ProjectTasks lists and creates the tasks of one project.
type ProjectTasks interface {
	List(ctx context.Context, a authz.Actor, projectID primitive.ObjectID) ([]models.Task, error)
	Create(ctx context.Context, a authz.Actor, projectID primitive.ObjectID, in tasks.CreateInput) (models.Task, error)
}

// Handler serves /projects. The lifecycle rules live in the services; the
// handlers only translate between JSON and service calls.
type Handler struct {
	Projects Lifecycle
	Tasks    ProjectTasks
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(projects Lifecycle, tasks ProjectTasks, logger *zap.Logger) *Handler {
	return &Handler{
		Projects: projects,
		Tasks:    tasks,
		Log:      logger,
	}
}
