// Package servicetest holds in-memory stores that mirror the Mongo stores'
// contracts closely enough for service tests: missing documents yield
// mongo.ErrNoDocuments and list filters behave the same way.
package servicetest

import (
	"context"
	"sort"
	"sync"
	"time"

	projectstore "github.com/dalemusser/projecthub/internal/app/store/projects"
	teamstore "github.com/dalemusser/projecthub/internal/app/store/teams"
	userstore "github.com/dalemusser/projecthub/internal/app/store/users"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func oidIn(id primitive.ObjectID, ids []primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func without(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

/* -------------------------------- users ---------------------------------- */

type Users struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.User
	Fail error
}

func NewUsers() *Users { return &Users{byID: map[primitive.ObjectID]models.User{}} }

// Put stores u as-is, assigning an id when missing.
func (s *Users) Put(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Teams == nil {
		u.Teams = []primitive.ObjectID{}
	}
	s.byID[u.ID] = u
	return u
}

func (s *Users) GetByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return models.User{}, s.Fail
	}
	u, ok := s.byID[id]
	if !ok {
		return models.User{}, mongo.ErrNoDocuments
	}
	return u, nil
}

func (s *Users) Create(_ context.Context, u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return models.User{}, s.Fail
	}
	for _, ex := range s.byID {
		if ex.Email == u.Email {
			return models.User{}, userstore.ErrDuplicateEmail
		}
	}
	u.ID = primitive.NewObjectID()
	u.Role = authz.NormalizeRole(u.Role).String()
	u.IsActive = true
	if u.Teams == nil {
		u.Teams = []primitive.ObjectID{}
	}
	s.byID[u.ID] = u
	return u, nil
}

func (s *Users) List(_ context.Context, f userstore.ListFilter) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return nil, s.Fail
	}
	var out []models.User
	for _, u := range s.byID {
		if !f.IncludeInactive && !u.IsActive {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Team != nil && !oidIn(*f.Team, u.Teams) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (s *Users) AddTeam(_ context.Context, userID, teamID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	u, ok := s.byID[userID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	if !oidIn(teamID, u.Teams) {
		u.Teams = append(u.Teams, teamID)
	}
	s.byID[userID] = u
	return nil
}

func (s *Users) RemoveTeam(_ context.Context, userID, teamID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	u, ok := s.byID[userID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	u.Teams = without(u.Teams, teamID)
	s.byID[userID] = u
	return nil
}

/* -------------------------------- teams ---------------------------------- */

type Teams struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Team
	Fail error
}

func NewTeams() *Teams { return &Teams{byID: map[primitive.ObjectID]models.Team{}} }

// Put stores t as-is, assigning an id when missing.
func (s *Teams) Put(t models.Team) models.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.Members == nil {
		t.Members = []primitive.ObjectID{}
	}
	s.byID[t.ID] = t
	return t
}

func (s *Teams) GetByID(_ context.Context, id primitive.ObjectID) (models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return models.Team{}, s.Fail
	}
	t, ok := s.byID[id]
	if !ok {
		return models.Team{}, mongo.ErrNoDocuments
	}
	return t, nil
}

func (s *Teams) GetByLeader(_ context.Context, userID primitive.ObjectID) (models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return models.Team{}, s.Fail
	}
	for _, t := range s.byID {
		if t.IsActive && t.TeamLeader == userID {
			return t, nil
		}
	}
	return models.Team{}, mongo.ErrNoDocuments
}

func (s *Teams) Create(_ context.Context, t models.Team) (models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return models.Team{}, s.Fail
	}
	for _, ex := range s.byID {
		if ex.Name == t.Name {
			return models.Team{}, teamstore.ErrDuplicateTeamName
		}
		if ex.IsActive && ex.TeamLeader == t.TeamLeader {
			return models.Team{}, teamstore.ErrLeaderHasTeam
		}
	}
	t.ID = primitive.NewObjectID()
	t.IsActive = true
	if t.Members == nil {
		t.Members = []primitive.ObjectID{}
	}
	s.byID[t.ID] = t
	return t, nil
}

func (s *Teams) List(_ context.Context, includeInactive bool) ([]models.Team, error) {
	return s.filter(func(t models.Team) bool { return includeInactive || t.IsActive })
}

func (s *Teams) ListForUser(_ context.Context, userID primitive.ObjectID) ([]models.Team, error) {
	return s.filter(func(t models.Team) bool {
		return t.IsActive && (t.TeamLeader == userID || t.HasMember(userID))
	})
}

func (s *Teams) filter(keep func(models.Team) bool) ([]models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return nil, s.Fail
	}
	var out []models.Team
	for _, t := range s.byID {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Teams) AddMember(_ context.Context, teamID, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	t, ok := s.byID[teamID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	if !oidIn(userID, t.Members) {
		t.Members = append(t.Members, userID)
	}
	s.byID[teamID] = t
	return nil
}

func (s *Teams) RemoveMember(_ context.Context, teamID, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	t, ok := s.byID[teamID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	t.Members = without(t.Members, userID)
	s.byID[teamID] = t
	return nil
}

/* ------------------------------- projects -------------------------------- */

type Projects struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Project
	Fail error
	// FailDelete makes only Delete fail.
	FailDelete error
}

func NewProjects() *Projects { return &Projects{byID: map[primitive.ObjectID]models.Project{}} }

func (s *Projects) GetByID(_ context.Context, id primitive.ObjectID) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return models.Project{}, s.Fail
	}
	p, ok := s.byID[id]
	if !ok {
		return models.Project{}, mongo.ErrNoDocuments
	}
	return p, nil
}

func (s *Projects) Create(_ context.Context, p models.Project) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return models.Project{}, s.Fail
	}
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	if p.Status == "" {
		p.Status = models.ProjectPlanning
	}
	p.Team = nil
	p.AssignedAt, p.AcceptedAt, p.RejectedAt = nil, nil, nil
	p.IsAssigned = false
	p.IsActive = true
	p.CreatedAt, p.UpdatedAt = now, now
	s.byID[p.ID] = p
	return p, nil
}

func (s *Projects) List(_ context.Context, f projectstore.ListFilter) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return nil, s.Fail
	}
	var out []models.Project
	for _, p := range s.byID {
		if !f.IncludeInactive && !p.IsActive {
			continue
		}
		if f.Teams != nil && (p.Team == nil || !oidIn(*p.Team, f.Teams)) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() > out[j].ID.Hex() })
	return out, nil
}

func (s *Projects) mutate(id primitive.ObjectID, fn func(*models.Project)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	p, ok := s.byID[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	fn(&p)
	s.byID[id] = p
	return nil
}

func (s *Projects) Assign(_ context.Context, id, teamID primitive.ObjectID, at time.Time) error {
	return s.mutate(id, func(p *models.Project) {
		p.Team = &teamID
		p.AssignedAt = &at
		p.AcceptedAt, p.RejectedAt = nil, nil
		p.IsAssigned = false
	})
}

func (s *Projects) Accept(_ context.Context, id primitive.ObjectID, at time.Time) error {
	return s.mutate(id, func(p *models.Project) {
		p.AcceptedAt, p.RejectedAt = &at, nil
		p.IsAssigned = true
	})
}

func (s *Projects) Reject(_ context.Context, id primitive.ObjectID, at time.Time) error {
	return s.mutate(id, func(p *models.Project) {
		p.RejectedAt, p.AcceptedAt = &at, nil
		p.IsAssigned = false
	})
}

func (s *Projects) Update(_ context.Context, id primitive.ObjectID, patch projectstore.Patch) error {
	return s.mutate(id, func(p *models.Project) {
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.Status != nil {
			p.Status = *patch.Status
		}
		if patch.Priority != nil {
			p.Priority = *patch.Priority
		}
		if patch.StartDate != nil {
			p.StartDate = patch.StartDate
		}
		if patch.Deadline != nil {
			p.Deadline = patch.Deadline
			p.ReminderSentAt = nil
		}
	})
}

func (s *Projects) SoftDelete(_ context.Context, id primitive.ObjectID) error {
	return s.mutate(id, func(p *models.Project) { p.IsActive = false })
}

func (s *Projects) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDelete != nil {
		return 0, s.FailDelete
	}
	if s.Fail != nil {
		return 0, s.Fail
	}
	if _, ok := s.byID[id]; !ok {
		return 0, nil
	}
	delete(s.byID, id)
	return 1, nil
}

func (s *Projects) ListDueForReminder(_ context.Context, now, cutoff time.Time) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Project
	for _, p := range s.byID {
		if !p.IsActive || !p.IsAssigned || p.Deadline == nil || p.ReminderSentAt != nil {
			continue
		}
		if p.Status == models.ProjectCompleted || p.Status == models.ProjectCancelled {
			continue
		}
		if p.Deadline.Before(now) || p.Deadline.After(cutoff) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Projects) MarkReminded(_ context.Context, id primitive.ObjectID, at time.Time) error {
	return s.mutate(id, func(p *models.Project) { p.ReminderSentAt = &at })
}

/* -------------------------------- tasks ---------------------------------- */

type Tasks struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Task
	Fail error
}

func NewTasks() *Tasks { return &Tasks{byID: map[primitive.ObjectID]models.Task{}} }

func (s *Tasks) GetByID(_ context.Context, id primitive.ObjectID) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return models.Task{}, s.Fail
	}
	t, ok := s.byID[id]
	if !ok {
		return models.Task{}, mongo.ErrNoDocuments
	}
	return t, nil
}

func (s *Tasks) Create(_ context.Context, t models.Task) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return models.Task{}, s.Fail
	}
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	if t.Status == "" {
		t.Status = models.TaskTodo
	}
	if t.Status == models.TaskDone {
		t.Progress = 100
		t.CompletedAt = &now
	}
	t.CreatedAt, t.UpdatedAt = now, now
	s.byID[t.ID] = t
	return t, nil
}

func (s *Tasks) ListByProject(_ context.Context, projectID primitive.ObjectID) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return nil, s.Fail
	}
	var out []models.Task
	for _, t := range s.byID {
		if t.Project == projectID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (s *Tasks) CountByProject(_ context.Context, projectID primitive.ObjectID) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return 0, 0, s.Fail
	}
	var total, done int64
	for _, t := range s.byID {
		if t.Project != projectID {
			continue
		}
		total++
		if t.Status == models.TaskDone {
			done++
		}
	}
	return total, done, nil
}

func (s *Tasks) mutate(id primitive.ObjectID, fn func(*models.Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	t, ok := s.byID[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	fn(&t)
	s.byID[id] = t
	return nil
}

func (s *Tasks) UpdateStatus(_ context.Context, id primitive.ObjectID, status string) error {
	return s.mutate(id, func(t *models.Task) {
		t.Status = status
		if status == models.TaskDone {
			now := time.Now().UTC()
			t.Progress = 100
			t.CompletedAt = &now
		} else {
			t.CompletedAt = nil
		}
	})
}

func (s *Tasks) UpdateProgress(_ context.Context, id primitive.ObjectID, progress int) error {
	return s.mutate(id, func(t *models.Task) { t.Progress = progress })
}

func (s *Tasks) UpdateAssignee(_ context.Context, id primitive.ObjectID, assignee *primitive.ObjectID) error {
	return s.mutate(id, func(t *models.Task) {
		t.AssignedTo = assignee
		t.ReminderSentAt = nil
	})
}

func (s *Tasks) DeleteByProject(_ context.Context, projectID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return 0, s.Fail
	}
	var n int64
	for id, t := range s.byID {
		if t.Project == projectID {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

func (s *Tasks) ListDueForReminder(_ context.Context, now, cutoff time.Time) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Task
	for _, t := range s.byID {
		if t.AssignedTo == nil || t.Status == models.TaskDone || t.DueDate == nil || t.ReminderSentAt != nil {
			continue
		}
		if t.DueDate.Before(now) || t.DueDate.After(cutoff) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Tasks) MarkReminded(_ context.Context, id primitive.ObjectID, at time.Time) error {
	return s.mutate(id, func(t *models.Task) { t.ReminderSentAt = &at })
}
