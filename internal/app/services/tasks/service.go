// Package tasks manages the tasks of a project and fires the task
// notifications: task-assigned to a new assignee, task-updated to the
// task's creator when it is completed.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/projecthub/internal/app/policy/teampolicy"
	"github.com/dalemusser/projecthub/internal/app/policy/visibility"
	"github.com/dalemusser/projecthub/internal/app/services/notify"
	"github.com/dalemusser/projecthub/internal/app/system/apperr"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type TaskStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Task, error)
	Create(ctx context.Context, t models.Task) (models.Task, error)
	ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Task, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error
	UpdateProgress(ctx context.Context, id primitive.ObjectID, progress int) error
	UpdateAssignee(ctx context.Context, id primitive.ObjectID, assignee *primitive.ObjectID) error
}

type ProjectReader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error)
}

type TeamReader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Team, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

type Notifier interface {
	Emit(ctx context.Context, m notify.Message) bool
}

type Deps struct {
	Tasks    TaskStore
	Projects ProjectReader
	Teams    TeamReader
	Users    UserReader
	Index    visibility.MembershipIndex
	Notifier Notifier
	Logger   *zap.Logger
}

type Service struct {
	tasks    TaskStore
	projects ProjectReader
	teams    TeamReader
	users    UserReader
	index    visibility.MembershipIndex
	notifier Notifier
	log      *zap.Logger
}

func New(d Deps) *Service {
	s := &Service{
		tasks:    d.Tasks,
		projects: d.Projects,
		teams:    d.Teams,
		users:    d.Users,
		index:    d.Index,
		notifier: d.Notifier,
		log:      d.Logger,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

type CreateInput struct {
	Title       string
	Description string
	AssignedTo  *primitive.ObjectID
	Status      string
	Priority    string
	DueDate     *time.Time
}

// Create adds a task to a project. Admins and the leader of the project's
// team may create tasks.
func (s *Service) Create(ctx context.Context, a authz.Actor, projectID primitive.ObjectID, in CreateInput) (models.Task, error) {
	p, err := s.loadProject(ctx, projectID)
	if err != nil {
		return models.Task{}, err
	}
	if ok, err := s.canManage(ctx, a, p); err != nil {
		return models.Task{}, err
	} else if !ok {
		return models.Task{}, apperr.Forbidden("only admins and the project's team leader can add tasks")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Task{}, apperr.Validation("task title is required")
	}
	status := models.TaskTodo
	if in.Status != "" {
		if status = models.NormalizeTaskStatus(in.Status); status == "" {
			return models.Task{}, apperr.Validation("unknown task status")
		}
	}
	if in.AssignedTo != nil {
		if err := s.checkAssignee(ctx, *in.AssignedTo); err != nil {
			return models.Task{}, err
		}
	}

	t, err := s.tasks.Create(ctx, models.Task{
		Title:       title,
		Description: htmlsanitize.Sanitize(in.Description),
		Project:     p.ID,
		AssignedTo:  in.AssignedTo,
		CreatedBy:   a.ID,
		Status:      status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
	})
	if err != nil {
		return models.Task{}, apperr.Downstream("create task", err)
	}
	s.log.Info("task created",
		zap.String("task_id", t.ID.Hex()),
		zap.String("project_id", p.ID.Hex()),
		zap.String("user_id", a.ID.Hex()))

	if t.AssignedTo != nil {
		s.notifyAssigned(ctx, a, t, p)
	}
	return t, nil
}

// List returns the tasks of a project the actor may see.
func (s *Service) List(ctx context.Context, a authz.Actor, projectID primitive.ObjectID) ([]models.Task, error) {
	p, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if ok, err := s.canView(ctx, a, p); err != nil {
		return nil, err
	} else if !ok {
		return nil, apperr.NotFound("project not found")
	}
	out, err := s.tasks.ListByProject(ctx, p.ID)
	if err != nil {
		return nil, apperr.Downstream("list tasks", err)
	}
	if out == nil {
		out = []models.Task{}
	}
	return out, nil
}

// UpdateStatus moves a task to status. Admins, the project's team leader
// and the assignee may do this. Completing a task notifies its creator.
func (s *Service) UpdateStatus(ctx context.Context, a authz.Actor, taskID primitive.ObjectID, status string) (models.Task, error) {
	next := models.NormalizeTaskStatus(status)
	if next == "" {
		return models.Task{}, apperr.Validation("unknown task status")
	}
	t, p, err := s.loadWorkable(ctx, a, taskID)
	if err != nil {
		return models.Task{}, err
	}
	if err := s.tasks.UpdateStatus(ctx, t.ID, next); err != nil {
		return models.Task{}, s.storeErr(err, "update task status")
	}

	if next == models.TaskDone && t.Status != models.TaskDone && !t.CreatedBy.IsZero() {
		s.notifier.Emit(ctx, notify.Message{
			Type:      models.NotifyTaskUpdated,
			Recipient: t.CreatedBy,
			Sender:    sender(a),
			Target:    models.TaskTarget(t.ID),
			Title:     "Task completed",
			Message:   fmt.Sprintf("Task %q in project %q was completed.", t.Title, p.Name),
			Data:      map[string]any{"task_title": t.Title, "project_name": p.Name, "status": next},
		})
	}
	return s.reload(ctx, t.ID)
}

// UpdateProgress sets a task's progress percentage.
func (s *Service) UpdateProgress(ctx context.Context, a authz.Actor, taskID primitive.ObjectID, progress int) (models.Task, error) {
	if progress < 0 || progress > 100 {
		return models.Task{}, apperr.Validation("progress must be between 0 and 100")
	}
	t, _, err := s.loadWorkable(ctx, a, taskID)
	if err != nil {
		return models.Task{}, err
	}
	if err := s.tasks.UpdateProgress(ctx, t.ID, progress); err != nil {
		return models.Task{}, s.storeErr(err, "update task progress")
	}
	return s.reload(ctx, t.ID)
}

// Reassign changes or clears the assignee. The new assignee is notified.
func (s *Service) Reassign(ctx context.Context, a authz.Actor, taskID primitive.ObjectID, assignee *primitive.ObjectID) (models.Task, error) {
	t, err := s.loadTask(ctx, taskID)
	if err != nil {
		return models.Task{}, err
	}
	p, err := s.loadProject(ctx, t.Project)
	if err != nil {
		return models.Task{}, err
	}
	if ok, err := s.canManage(ctx, a, p); err != nil {
		return models.Task{}, err
	} else if !ok {
		return models.Task{}, apperr.Forbidden("only admins and the project's team leader can reassign tasks")
	}
	if assignee != nil {
		if err := s.checkAssignee(ctx, *assignee); err != nil {
			return models.Task{}, err
		}
	}
	if err := s.tasks.UpdateAssignee(ctx, t.ID, assignee); err != nil {
		return models.Task{}, s.storeErr(err, "reassign task")
	}

	updated, err := s.reload(ctx, t.ID)
	if err != nil {
		return models.Task{}, err
	}
	if assignee != nil && (t.AssignedTo == nil || *t.AssignedTo != *assignee) {
		s.notifyAssigned(ctx, a, updated, p)
	}
	return updated, nil
}

/* ------------------------------ helpers ---------------------------------- */

func (s *Service) notifyAssigned(ctx context.Context, a authz.Actor, t models.Task, p models.Project) {
	s.notifier.Emit(ctx, notify.Message{
		Type:      models.NotifyTaskAssigned,
		Recipient: *t.AssignedTo,
		Sender:    sender(a),
		Target:    models.TaskTarget(t.ID),
		Title:     "New task assigned",
		Message:   fmt.Sprintf("You have been assigned %q in project %q.", t.Title, p.Name),
		Data:      map[string]any{"task_title": t.Title, "project_name": p.Name},
	})
}

func (s *Service) checkAssignee(ctx context.Context, id primitive.ObjectID) error {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && !u.IsActive) {
		return apperr.Validation("assignee does not exist")
	}
	if err != nil {
		return apperr.Downstream("load assignee", err)
	}
	return nil
}

func (s *Service) loadProject(ctx context.Context, id primitive.ObjectID) (models.Project, error) {
	p, err := s.projects.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && !p.IsActive) {
		return models.Project{}, apperr.NotFound("project not found")
	}
	if err != nil {
		return models.Project{}, apperr.Downstream("load project", err)
	}
	return p, nil
}

func (s *Service) loadTask(ctx context.Context, id primitive.ObjectID) (models.Task, error) {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return models.Task{}, s.storeErr(err, "load task")
	}
	return t, nil
}

func (s *Service) reload(ctx context.Context, id primitive.ObjectID) (models.Task, error) {
	return s.loadTask(ctx, id)
}

// loadWorkable loads a task the actor may work on: admins, the leader of
// the project's team and the assignee.
func (s *Service) loadWorkable(ctx context.Context, a authz.Actor, taskID primitive.ObjectID) (models.Task, models.Project, error) {
	t, err := s.loadTask(ctx, taskID)
	if err != nil {
		return models.Task{}, models.Project{}, err
	}
	p, err := s.loadProject(ctx, t.Project)
	if err != nil {
		return models.Task{}, models.Project{}, err
	}
	if t.AssignedTo != nil && *t.AssignedTo == a.ID {
		return t, p, nil
	}
	ok, err := s.canManage(ctx, a, p)
	if err != nil {
		return models.Task{}, models.Project{}, err
	}
	if !ok {
		return models.Task{}, models.Project{}, apperr.Forbidden("you cannot change this task")
	}
	return t, p, nil
}

func (s *Service) canManage(ctx context.Context, a authz.Actor, p models.Project) (bool, error) {
	if a.IsAdmin() {
		return true, nil
	}
	if !a.IsTeamLeader() || p.Team == nil {
		return false, nil
	}
	team, err := s.teams.GetByID(ctx, *p.Team)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Downstream("load team", err)
	}
	return teampolicy.IsTeamLeader(team, a.ID), nil
}

func (s *Service) canView(ctx context.Context, a authz.Actor, p models.Project) (bool, error) {
	if a.IsAdmin() {
		return true, nil
	}
	if p.Team == nil {
		return false, nil
	}
	set, err := s.index.TeamsOf(ctx, a.ID)
	if err != nil {
		return false, apperr.Downstream("resolve team membership", err)
	}
	return set.Has(*p.Team), nil
}

func (s *Service) storeErr(err error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound("task not found")
	}
	return apperr.Downstream(op, err)
}

func sender(a authz.Actor) *primitive.ObjectID {
	if a.ID.IsZero() {
		return nil
	}
	id := a.ID
	return &id
}
