// Package teams manages teams, their membership and user accounts.
//
// Membership lives on both documents: team.members and user.teams. Every
// change here writes both sides so the membership index stays consistent.
package teams

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/projecthub/internal/app/policy/teampolicy"
	"github.com/dalemusser/projecthub/internal/app/policy/visibility"
	teamstore "github.com/dalemusser/projecthub/internal/app/store/teams"
	userstore "github.com/dalemusser/projecthub/internal/app/store/users"
	"github.com/dalemusser/projecthub/internal/app/system/apperr"
	"github.com/dalemusser/projecthub/internal/app/system/authutil"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/projecthub/internal/app/system/normalize"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type TeamStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Team, error)
	GetByLeader(ctx context.Context, userID primitive.ObjectID) (models.Team, error)
	Create(ctx context.Context, t models.Team) (models.Team, error)
	List(ctx context.Context, includeInactive bool) ([]models.Team, error)
	AddMember(ctx context.Context, teamID, userID primitive.ObjectID) error
	RemoveMember(ctx context.Context, teamID, userID primitive.ObjectID) error
}

type UserStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	Create(ctx context.Context, u models.User) (models.User, error)
	List(ctx context.Context, f userstore.ListFilter) ([]models.User, error)
	AddTeam(ctx context.Context, userID, teamID primitive.ObjectID) error
	RemoveTeam(ctx context.Context, userID, teamID primitive.ObjectID) error
}

// ListFilter scopes team and user listings to an actor.
type ListFilter interface {
	Teams(ctx context.Context, a authz.Actor, in []models.Team) ([]models.Team, error)
	Users(ctx context.Context, a authz.Actor, in []models.User) ([]models.User, error)
}

type Deps struct {
	Teams  TeamStore
	Users  UserStore
	Filter ListFilter
	Index  visibility.MembershipIndex
	Logger *zap.Logger
}

type Service struct {
	teams  TeamStore
	users  UserStore
	filter ListFilter
	index  visibility.MembershipIndex
	log    *zap.Logger
}

func New(d Deps) *Service {
	s := &Service{teams: d.Teams, users: d.Users, filter: d.Filter, index: d.Index, log: d.Logger}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

type CreateTeamInput struct {
	Name        string
	Description string
	Leader      primitive.ObjectID
}

// Create adds a team led by an active team leader. Admin only. A user leads
// at most one active team at a time.
func (s *Service) Create(ctx context.Context, a authz.Actor, in CreateTeamInput) (models.Team, error) {
	if !a.IsAdmin() {
		return models.Team{}, apperr.Forbidden("only admins can create teams")
	}
	name := normalize.Name(in.Name)
	if name == "" {
		return models.Team{}, apperr.Validation("team name is required")
	}
	leader, err := s.users.GetByID(ctx, in.Leader)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Team{}, apperr.Validation("team leader does not exist")
	}
	if err != nil {
		return models.Team{}, apperr.Downstream("load team leader", err)
	}
	if !leader.IsActive || authz.NormalizeRole(leader.Role) != authz.RoleTeamLeader {
		return models.Team{}, apperr.Validation("team leader must be an active user with the team_leader role")
	}
	if _, err := s.teams.GetByLeader(ctx, leader.ID); err == nil {
		return models.Team{}, apperr.Conflict("user already leads a team")
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Team{}, apperr.Downstream("look up leader's team", err)
	}

	t, err := s.teams.Create(ctx, models.Team{
		Name:        name,
		Description: htmlsanitize.Sanitize(in.Description),
		TeamLeader:  leader.ID,
	})
	if errors.Is(err, teamstore.ErrDuplicateTeamName) {
		return models.Team{}, apperr.Conflict("a team with this name already exists")
	}
	if errors.Is(err, teamstore.ErrLeaderHasTeam) {
		return models.Team{}, apperr.Conflict("user already leads a team")
	}
	if err != nil {
		return models.Team{}, apperr.Downstream("create team", err)
	}
	if err := s.users.AddTeam(ctx, leader.ID, t.ID); err != nil {
		return models.Team{}, apperr.Downstream("link leader to team", err)
	}
	s.log.Info("team created",
		zap.String("team_id", t.ID.Hex()),
		zap.String("user_id", leader.ID.Hex()))
	return t, nil
}

// Get returns a team the actor belongs to. Admins see every team.
func (s *Service) Get(ctx context.Context, a authz.Actor, id primitive.ObjectID) (models.Team, error) {
	t, err := s.loadTeam(ctx, id)
	if err != nil {
		return models.Team{}, err
	}
	if a.IsAdmin() {
		return t, nil
	}
	set, err := s.index.TeamsOf(ctx, a.ID)
	if err != nil {
		return models.Team{}, apperr.Downstream("resolve team membership", err)
	}
	if !set.Has(t.ID) {
		return models.Team{}, apperr.NotFound("team not found")
	}
	return t, nil
}

// List returns the teams visible to the actor. Only admins may include
// deactivated teams.
func (s *Service) List(ctx context.Context, a authz.Actor, includeInactive bool) ([]models.Team, error) {
	all, err := s.teams.List(ctx, includeInactive && a.IsAdmin())
	if err != nil {
		return nil, apperr.Downstream("list teams", err)
	}
	out, err := s.filter.Teams(ctx, a, all)
	if err != nil {
		return nil, apperr.Downstream("filter teams", err)
	}
	return out, nil
}

// AddMember puts userID on the team. Admins and the team's leader may do
// this. Adding an existing member is a no-op.
func (s *Service) AddMember(ctx context.Context, a authz.Actor, teamID, userID primitive.ObjectID) (models.Team, error) {
	t, err := s.loadManaged(ctx, a, teamID)
	if err != nil {
		return models.Team{}, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && !u.IsActive) {
		return models.Team{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return models.Team{}, apperr.Downstream("load user", err)
	}
	if u.ID == t.TeamLeader {
		return models.Team{}, apperr.Validation("the team leader is not listed as a member")
	}

	if err := s.teams.AddMember(ctx, t.ID, u.ID); err != nil {
		return models.Team{}, apperr.Downstream("add team member", err)
	}
	if err := s.users.AddTeam(ctx, u.ID, t.ID); err != nil {
		return models.Team{}, apperr.Downstream("link user to team", err)
	}
	s.log.Info("team member added",
		zap.String("team_id", t.ID.Hex()),
		zap.String("user_id", u.ID.Hex()))
	return s.loadTeam(ctx, t.ID)
}

// RemoveMember takes userID off the team. The leader cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, a authz.Actor, teamID, userID primitive.ObjectID) (models.Team, error) {
	t, err := s.loadManaged(ctx, a, teamID)
	if err != nil {
		return models.Team{}, err
	}
	if userID == t.TeamLeader {
		return models.Team{}, apperr.Policy("the team leader cannot be removed from the team")
	}
	if !t.HasMember(userID) {
		return models.Team{}, apperr.NotFound("user is not a member of this team")
	}

	if err := s.teams.RemoveMember(ctx, t.ID, userID); err != nil {
		return models.Team{}, apperr.Downstream("remove team member", err)
	}
	if err := s.users.RemoveTeam(ctx, userID, t.ID); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Team{}, apperr.Downstream("unlink user from team", err)
	}
	s.log.Info("team member removed",
		zap.String("team_id", t.ID.Hex()),
		zap.String("user_id", userID.Hex()))
	return s.loadTeam(ctx, t.ID)
}

type UserQuery struct {
	Role string
	Team *primitive.ObjectID
}

// ListUsers returns the users visible to the actor.
func (s *Service) ListUsers(ctx context.Context, a authz.Actor, q UserQuery) ([]models.User, error) {
	f := userstore.ListFilter{Team: q.Team}
	if q.Role != "" {
		role := authz.NormalizeRole(q.Role)
		if !role.Valid() {
			return nil, apperr.Validation("unknown role")
		}
		f.Role = role.String()
	}
	all, err := s.users.List(ctx, f)
	if err != nil {
		return nil, apperr.Downstream("list users", err)
	}
	out, err := s.filter.Users(ctx, a, all)
	if err != nil {
		return nil, apperr.Downstream("filter users", err)
	}
	return out, nil
}

type CreateUserInput struct {
	FullName string
	Email    string
	Password string
	Role     string
}

// CreateUser adds an account. Admin only.
func (s *Service) CreateUser(ctx context.Context, a authz.Actor, in CreateUserInput) (models.User, error) {
	if !a.IsAdmin() {
		return models.User{}, apperr.Forbidden("only admins can create users")
	}
	role := authz.NormalizeRole(in.Role)
	if !role.Valid() {
		return models.User{}, apperr.Validation("role must be admin, team_leader or member")
	}
	if normalize.Name(in.FullName) == "" {
		return models.User{}, apperr.Validation("full name is required")
	}
	email := normalize.Email(in.Email)
	if !strings.Contains(email, "@") {
		return models.User{}, apperr.Validation("a valid email address is required")
	}
	if err := authutil.ValidatePassword(in.Password); err != nil {
		return models.User{}, apperr.Validation(authutil.PasswordRules())
	}
	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		return models.User{}, apperr.Downstream("hash password", err)
	}

	u, err := s.users.Create(ctx, models.User{
		FullName:     in.FullName,
		Email:        email,
		PasswordHash: hash,
		Role:         role.String(),
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		return models.User{}, apperr.Conflict("a user with this email already exists")
	}
	if err != nil {
		return models.User{}, apperr.Downstream("create user", err)
	}
	s.log.Info("user created", zap.String("user_id", u.ID.Hex()), zap.String("role", u.Role))
	return u, nil
}

func (s *Service) loadTeam(ctx context.Context, id primitive.ObjectID) (models.Team, error) {
	t, err := s.teams.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && !t.IsActive) {
		return models.Team{}, apperr.NotFound("team not found")
	}
	if err != nil {
		return models.Team{}, apperr.Downstream("load team", err)
	}
	return t, nil
}

func (s *Service) loadManaged(ctx context.Context, a authz.Actor, id primitive.ObjectID) (models.Team, error) {
	t, err := s.loadTeam(ctx, id)
	if err != nil {
		return models.Team{}, err
	}
	if !a.IsAdmin() && !teampolicy.IsTeamLeader(t, a.ID) {
		return models.Team{}, apperr.Forbidden("only admins and the team leader can change membership")
	}
	return t, nil
}
