// Package lifecycle owns a project's assignment state machine:
//
//	Unassigned --assign--> Pending --respond(accept)--> Accepted
//	                          \----respond(reject)--> Rejected
//
// Accepted and Rejected are not terminal; a new assign always returns the
// project to Pending. Every transition re-reads the project from the store
// and validates against the derived state, never against client input.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/projecthub/internal/app/policy/teampolicy"
	"github.com/dalemusser/projecthub/internal/app/policy/visibility"
	"github.com/dalemusser/projecthub/internal/app/services/notify"
	projectstore "github.com/dalemusser/projecthub/internal/app/store/projects"
	"github.com/dalemusser/projecthub/internal/app/system/apperr"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type ProjectStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error)
	Create(ctx context.Context, p models.Project) (models.Project, error)
	List(ctx context.Context, f projectstore.ListFilter) ([]models.Project, error)
	Assign(ctx context.Context, id, teamID primitive.ObjectID, at time.Time) error
	Accept(ctx context.Context, id primitive.ObjectID, at time.Time) error
	Reject(ctx context.Context, id primitive.ObjectID, at time.Time) error
	Update(ctx context.Context, id primitive.ObjectID, p projectstore.Patch) error
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

type TaskStore interface {
	CountByProject(ctx context.Context, projectID primitive.ObjectID) (total, done int64, err error)
	DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error)
}

type TeamReader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Team, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

// Notifier is the best-effort side channel fired after transitions.
type Notifier interface {
	Emit(ctx context.Context, m notify.Message) bool
}

// ProjectFilter scopes project listings to an actor.
type ProjectFilter interface {
	Scope(ctx context.Context, a authz.Actor) (visibility.ListScope, error)
	Projects(ctx context.Context, a authz.Actor, in []models.Project) ([]models.Project, error)
}

// Action is a team leader's answer to an assignment.
type Action string

const (
	Accept Action = "accept"
	Reject Action = "reject"
)

// ParseAction accepts "accept"/"reject" in any case, and the past-tense
// forms older clients send.
func ParseAction(s string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept", "accepted":
		return Accept, true
	case "reject", "rejected":
		return Reject, true
	}
	return "", false
}

// ProjectView is a project with its derived lifecycle state and progress.
type ProjectView struct {
	models.Project
	State     models.AssignmentState `json:"state"`
	Progress  int                    `json:"progress"`
	TaskCount int64                  `json:"task_count"`
	DoneCount int64                  `json:"done_count"`
}

type Manager struct {
	projects ProjectStore
	tasks    TaskStore
	teams    TeamReader
	users    UserReader
	filter   ProjectFilter
	index    visibility.MembershipIndex
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

// Deps groups the Manager's collaborators.
type Deps struct {
	Projects ProjectStore
	Tasks    TaskStore
	Teams    TeamReader
	Users    UserReader
	Filter   ProjectFilter
	Index    visibility.MembershipIndex
	Notifier Notifier
	Logger   *zap.Logger
	// Now overrides time.Now; tests use it to order decisions.
	Now func() time.Time
}

func New(d Deps) *Manager {
	m := &Manager{
		projects: d.Projects,
		tasks:    d.Tasks,
		teams:    d.Teams,
		users:    d.Users,
		filter:   d.Filter,
		index:    d.Index,
		notifier: d.Notifier,
		log:      d.Logger,
		now:      d.Now,
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	return m
}

/* ------------------------------ reads ------------------------------------ */

// Get returns a project the actor may see. Projects outside the actor's
// teams are reported as not found.
func (m *Manager) Get(ctx context.Context, a authz.Actor, id primitive.ObjectID) (ProjectView, error) {
	p, err := m.load(ctx, id)
	if err != nil {
		return ProjectView{}, err
	}
	ok, err := m.canView(ctx, a, p)
	if err != nil {
		return ProjectView{}, err
	}
	if !ok {
		return ProjectView{}, apperr.NotFound("project not found")
	}
	return m.view(ctx, p)
}

// ListInput narrows List.
type ListInput struct {
	Status          string
	Search          string
	IncludeInactive bool // honoured for admins only
}

// List runs the store query and then the visibility filter. The filter
// runs even though the query is already narrowed to the actor's teams.
func (m *Manager) List(ctx context.Context, a authz.Actor, in ListInput) ([]ProjectView, error) {
	scope, err := m.filter.Scope(ctx, a)
	if err != nil {
		return nil, apperr.Downstream("resolve team membership", err)
	}
	if !scope.CanList {
		return []ProjectView{}, nil
	}
	raw, err := m.projects.List(ctx, projectstore.ListFilter{
		Teams:           scope.TeamIDs(),
		Status:          in.Status,
		Search:          in.Search,
		IncludeInactive: in.IncludeInactive && a.IsAdmin(),
	})
	if err != nil {
		return nil, apperr.Downstream("list projects", err)
	}
	visible, err := m.filter.Projects(ctx, a, raw)
	if err != nil {
		return nil, apperr.Downstream("filter projects", err)
	}
	out := make([]ProjectView, 0, len(visible))
	for _, p := range visible {
		v, err := m.view(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

/* ---------------------------- transitions -------------------------------- */

// CreateInput carries a new project's fields. A non-nil Team assigns the
// project right after creation.
type CreateInput struct {
	Name        string
	Description string
	Status      string
	Priority    string
	StartDate   *time.Time
	Deadline    *time.Time
	Team        *primitive.ObjectID
}

// Create stores a new, unassigned project. Admin only.
func (m *Manager) Create(ctx context.Context, a authz.Actor, in CreateInput) (ProjectView, error) {
	if !a.IsAdmin() {
		return ProjectView{}, apperr.Forbidden("only admins can create projects")
	}
	if strings.TrimSpace(in.Name) == "" {
		return ProjectView{}, apperr.Validation("project name is required")
	}
	if in.Status != "" && !models.ValidProjectStatus(in.Status) {
		return ProjectView{}, apperr.Validation("unknown project status")
	}
	if in.StartDate != nil && in.Deadline != nil && in.Deadline.Before(*in.StartDate) {
		return ProjectView{}, apperr.Validation("deadline must not be before the start date")
	}

	p, err := m.projects.Create(ctx, models.Project{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		CreatedBy:   a.ID,
		Status:      in.Status,
		Priority:    in.Priority,
		StartDate:   in.StartDate,
		Deadline:    in.Deadline,
	})
	if err != nil {
		return ProjectView{}, apperr.Downstream("create project", err)
	}
	m.log.Info("project created", zap.String("project_id", p.ID.Hex()), zap.String("user_id", a.ID.Hex()))

	if in.Team != nil {
		return m.Assign(ctx, a, p.ID, *in.Team)
	}
	return m.view(ctx, p)
}

// Assign points the project at teamID and resets it to Pending, whatever
// its previous state. Admin only. The team's leader must hold the team
// leader role.
func (m *Manager) Assign(ctx context.Context, a authz.Actor, projectID, teamID primitive.ObjectID) (ProjectView, error) {
	if !a.IsAdmin() {
		return ProjectView{}, apperr.Forbidden("only admins can assign projects")
	}
	p, err := m.load(ctx, projectID)
	if err != nil {
		return ProjectView{}, err
	}
	if !p.IsActive {
		return ProjectView{}, apperr.NotFound("project not found")
	}
	team, leader, err := m.checkAssignable(ctx, teamID)
	if err != nil {
		return ProjectView{}, err
	}

	if err := m.projects.Assign(ctx, p.ID, team.ID, m.now()); err != nil {
		return ProjectView{}, m.storeErr(err, "assign project")
	}
	m.log.Info("project assigned",
		zap.String("project_id", p.ID.Hex()),
		zap.String("team_id", team.ID.Hex()),
		zap.String("user_id", a.ID.Hex()))

	m.notifier.Emit(ctx, notify.Message{
		Type:      models.NotifyProjectAssigned,
		Recipient: leader.ID,
		Sender:    senderOf(a),
		Target:    models.ProjectTarget(p.ID),
		Title:     "New project assigned",
		Message:   fmt.Sprintf("Project %q has been assigned to your team %q.", p.Name, team.Name),
		Data:      map[string]any{"project_name": p.Name, "team_name": team.Name},
	})
	return m.reload(ctx, p.ID)
}

// Respond records the team leader's decision on an assigned project.
// Only the leader of the project's current team may respond; answering an
// already decided project overwrites the earlier decision.
func (m *Manager) Respond(ctx context.Context, a authz.Actor, projectID primitive.ObjectID, action Action) (ProjectView, error) {
	if action != Accept && action != Reject {
		return ProjectView{}, apperr.Validation(`action must be "accept" or "reject"`)
	}
	p, team, err := m.loadOwned(ctx, a, projectID)
	if err != nil {
		return ProjectView{}, err
	}

	now := m.now()
	notice := notify.Message{
		Recipient: p.CreatedBy,
		Sender:    senderOf(a),
		Target:    models.ProjectTarget(p.ID),
		Data:      map[string]any{"project_name": p.Name, "team_name": team.Name},
	}
	switch action {
	case Accept:
		err = m.projects.Accept(ctx, p.ID, now)
		notice.Type = models.NotifyProjectAccepted
		notice.Title = "Project accepted"
		notice.Message = fmt.Sprintf("Team %q accepted project %q.", team.Name, p.Name)
	case Reject:
		err = m.projects.Reject(ctx, p.ID, now)
		notice.Type = models.NotifyProjectRejected
		notice.Title = "Project rejected"
		notice.Message = fmt.Sprintf("Team %q rejected project %q.", team.Name, p.Name)
	}
	if err != nil {
		return ProjectView{}, m.storeErr(err, "record project response")
	}
	m.log.Info("project response recorded",
		zap.String("project_id", p.ID.Hex()),
		zap.String("team_id", team.ID.Hex()),
		zap.String("action", string(action)))

	if !p.CreatedBy.IsZero() {
		m.notifier.Emit(ctx, notice)
	}
	return m.reload(ctx, p.ID)
}

// DeleteResult reports what a permanent delete removed.
type DeleteResult struct {
	TasksDeleted int64 `json:"tasks_deleted"`
}

// PermanentlyDelete removes a rejected project and all of its tasks. Only
// the leader of the owning team may do this. Tasks are deleted first; if
// the project delete then fails the tasks stay deleted.
func (m *Manager) PermanentlyDelete(ctx context.Context, a authz.Actor, projectID primitive.ObjectID) (DeleteResult, error) {
	p, team, err := m.loadOwned(ctx, a, projectID)
	if err != nil {
		return DeleteResult{}, err
	}
	if p.State() != models.StateRejected {
		return DeleteResult{}, apperr.Policy("only rejected projects can be permanently deleted")
	}

	tasks, err := m.tasks.DeleteByProject(ctx, p.ID)
	if err != nil {
		return DeleteResult{}, apperr.Downstream("delete project tasks", err)
	}
	n, err := m.projects.Delete(ctx, p.ID)
	if err != nil {
		m.log.Error("project tasks deleted but project delete failed",
			zap.String("project_id", p.ID.Hex()),
			zap.Int64("tasks_deleted", tasks),
			zap.Error(err))
		return DeleteResult{TasksDeleted: tasks}, apperr.Downstream("delete project", err)
	}
	if n == 0 {
		return DeleteResult{TasksDeleted: tasks}, apperr.NotFound("project not found")
	}
	m.log.Info("project permanently deleted",
		zap.String("project_id", p.ID.Hex()),
		zap.String("team_id", team.ID.Hex()),
		zap.Int64("tasks_deleted", tasks))
	return DeleteResult{TasksDeleted: tasks}, nil
}

// UpdateInput holds the fields to change; nil means unchanged. A non-nil
// Team is handled as an assignment, even when it names the current team.
type UpdateInput struct {
	Name        *string
	Description *string
	Status      *string
	Priority    *string
	StartDate   *time.Time
	Deadline    *time.Time
	Team        *primitive.ObjectID
}

// Update edits a project. Admin only; allowed in every lifecycle state.
// The current team's leader is told which fields changed. A team in the
// input is validated before anything is written, so a rejected team leaves
// the project untouched.
func (m *Manager) Update(ctx context.Context, a authz.Actor, projectID primitive.ObjectID, in UpdateInput) (ProjectView, error) {
	if !a.IsAdmin() {
		return ProjectView{}, apperr.Forbidden("only admins can update projects")
	}
	p, err := m.load(ctx, projectID)
	if err != nil {
		return ProjectView{}, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return ProjectView{}, apperr.Validation("project name is required")
	}
	if in.Status != nil && !models.ValidProjectStatus(*in.Status) {
		return ProjectView{}, apperr.Validation("unknown project status")
	}
	if in.Team != nil {
		if !p.IsActive {
			return ProjectView{}, apperr.NotFound("project not found")
		}
		if _, _, err := m.checkAssignable(ctx, *in.Team); err != nil {
			return ProjectView{}, err
		}
	}

	patch, changed := diff(p, in)
	if !patch.Empty() {
		if err := m.projects.Update(ctx, p.ID, patch); err != nil {
			return ProjectView{}, m.storeErr(err, "update project")
		}
	}

	if in.Team != nil {
		if _, err := m.Assign(ctx, a, p.ID, *in.Team); err != nil {
			return ProjectView{}, err
		}
		p.Team = in.Team
	}

	if len(changed) > 0 && p.Team != nil {
		m.notifyLeader(ctx, a, *p.Team, notify.Message{
			Type:    models.NotifyProjectUpdated,
			Target:  models.ProjectTarget(p.ID),
			Title:   "Project updated",
			Message: fmt.Sprintf("Project %q was updated: %s.", p.Name, strings.Join(changed, ", ")),
			Data:    map[string]any{"project_name": p.Name, "changed_fields": changed},
		})
	}
	return m.reload(ctx, p.ID)
}

// Delete soft-deletes a project. Admin only.
func (m *Manager) Delete(ctx context.Context, a authz.Actor, projectID primitive.ObjectID) error {
	if !a.IsAdmin() {
		return apperr.Forbidden("only admins can delete projects")
	}
	p, err := m.load(ctx, projectID)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return apperr.NotFound("project not found")
	}
	if err := m.projects.SoftDelete(ctx, p.ID); err != nil {
		return m.storeErr(err, "delete project")
	}
	m.log.Info("project deleted", zap.String("project_id", p.ID.Hex()), zap.String("user_id", a.ID.Hex()))

	if p.Team != nil {
		m.notifyLeader(ctx, a, *p.Team, notify.Message{
			Type:    models.NotifySystemAnnouncement,
			Target:  models.ProjectTarget(p.ID),
			Title:   "Project deleted",
			Message: fmt.Sprintf("Project %q has been deleted.", p.Name),
			Data:    map[string]any{"project_name": p.Name, "event": "project-deleted"},
		})
	}
	return nil
}

/* ------------------------------ helpers ---------------------------------- */

func (m *Manager) load(ctx context.Context, id primitive.ObjectID) (models.Project, error) {
	p, err := m.projects.GetByID(ctx, id)
	if err != nil {
		return models.Project{}, m.storeErr(err, "load project")
	}
	return p, nil
}

func (m *Manager) reload(ctx context.Context, id primitive.ObjectID) (ProjectView, error) {
	p, err := m.load(ctx, id)
	if err != nil {
		return ProjectView{}, err
	}
	return m.view(ctx, p)
}

func (m *Manager) loadTeam(ctx context.Context, id primitive.ObjectID) (models.Team, error) {
	t, err := m.teams.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && !t.IsActive) {
		return models.Team{}, apperr.NotFound("team not found")
	}
	if err != nil {
		return models.Team{}, apperr.Downstream("load team", err)
	}
	return t, nil
}

// checkAssignable loads an active team and its leader, who must be an
// active user holding the team leader role.
func (m *Manager) checkAssignable(ctx context.Context, teamID primitive.ObjectID) (models.Team, models.User, error) {
	team, err := m.loadTeam(ctx, teamID)
	if err != nil {
		return models.Team{}, models.User{}, err
	}
	leader, err := m.users.GetByID(ctx, team.TeamLeader)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Team{}, models.User{}, apperr.Validation("team has no valid team leader")
	}
	if err != nil {
		return models.Team{}, models.User{}, apperr.Downstream("load team leader", err)
	}
	if authz.NormalizeRole(leader.Role) != authz.RoleTeamLeader || !leader.IsActive {
		return models.Team{}, models.User{}, apperr.Validation("team leader does not hold the team leader role")
	}
	return team, leader, nil
}

// loadOwned loads a project together with its current team and checks that
// a leads that team. Deleted projects and projects without a team are
// reported as not found.
func (m *Manager) loadOwned(ctx context.Context, a authz.Actor, projectID primitive.ObjectID) (models.Project, models.Team, error) {
	if !a.IsTeamLeader() {
		return models.Project{}, models.Team{}, apperr.Forbidden("only team leaders can act on assigned projects")
	}
	p, err := m.load(ctx, projectID)
	if err != nil {
		return models.Project{}, models.Team{}, err
	}
	if !p.IsActive {
		return models.Project{}, models.Team{}, apperr.NotFound("project not found")
	}
	if p.Team == nil || p.State() == models.StateUnassigned {
		return models.Project{}, models.Team{}, apperr.NotFound("project is not assigned to a team")
	}
	team, err := m.loadTeam(ctx, *p.Team)
	if err != nil {
		return models.Project{}, models.Team{}, err
	}
	if !teampolicy.IsTeamLeader(team, a.ID) {
		return models.Project{}, models.Team{}, apperr.Forbidden("only the leader of the project's team can do this")
	}
	return p, team, nil
}

func (m *Manager) canView(ctx context.Context, a authz.Actor, p models.Project) (bool, error) {
	if a.IsAdmin() {
		return true, nil
	}
	if p.Team == nil || !p.IsActive {
		return false, nil
	}
	set, err := m.index.TeamsOf(ctx, a.ID)
	if err != nil {
		return false, apperr.Downstream("resolve team membership", err)
	}
	return set.Has(*p.Team), nil
}

func (m *Manager) view(ctx context.Context, p models.Project) (ProjectView, error) {
	total, done, err := m.tasks.CountByProject(ctx, p.ID)
	if err != nil {
		return ProjectView{}, apperr.Downstream("count project tasks", err)
	}
	return ProjectView{
		Project:   p,
		State:     p.State(),
		Progress:  models.ProjectProgress(total, done),
		TaskCount: total,
		DoneCount: done,
	}, nil
}

// notifyLeader sends msg to the leader of teamID. Lookup failures are
// logged and dropped like any other notification failure.
func (m *Manager) notifyLeader(ctx context.Context, a authz.Actor, teamID primitive.ObjectID, msg notify.Message) {
	team, err := m.teams.GetByID(ctx, teamID)
	if err != nil {
		m.log.Warn("cannot resolve team leader for notification",
			zap.String("team_id", teamID.Hex()),
			zap.String("notification_type", string(msg.Type)),
			zap.Error(err))
		return
	}
	msg.Recipient = team.TeamLeader
	msg.Sender = senderOf(a)
	m.notifier.Emit(ctx, msg)
}

func (m *Manager) storeErr(err error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound("project not found")
	}
	return apperr.Downstream(op, err)
}

func senderOf(a authz.Actor) *primitive.ObjectID {
	if a.ID.IsZero() {
		return nil
	}
	id := a.ID
	return &id
}

// diff builds the store patch for the fields in that actually change p and
// names them for the update notification.
func diff(p models.Project, in UpdateInput) (projectstore.Patch, []string) {
	var patch projectstore.Patch
	var changed []string
	if in.Name != nil {
		if name := strings.TrimSpace(*in.Name); name != p.Name {
			patch.Name = &name
			changed = append(changed, "name")
		}
	}
	if in.Description != nil && *in.Description != p.Description {
		patch.Description = in.Description
		changed = append(changed, "description")
	}
	if in.Status != nil && *in.Status != p.Status {
		patch.Status = in.Status
		changed = append(changed, "status")
	}
	if in.Priority != nil && *in.Priority != p.Priority {
		patch.Priority = in.Priority
		changed = append(changed, "priority")
	}
	if in.StartDate != nil && !sameTime(p.StartDate, in.StartDate) {
		patch.StartDate = in.StartDate
		changed = append(changed, "start_date")
	}
	if in.Deadline != nil && !sameTime(p.Deadline, in.Deadline) {
		patch.Deadline = in.Deadline
		changed = append(changed, "deadline")
	}
	return patch, changed
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
