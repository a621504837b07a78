// Package teamrequests handles the two actionable notification kinds: a
// user asking to join a team and a team leader inviting a user. Both are
// answered with Accept or Decline, after which the request is deleted.
package teamrequests

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/projecthub/internal/app/policy/teampolicy"
	"github.com/dalemusser/projecthub/internal/app/services/notify"
	"github.com/dalemusser/projecthub/internal/app/system/apperr"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type TeamStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Team, error)
	AddMember(ctx context.Context, teamID, userID primitive.ObjectID) error
}

type UserStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	AddTeam(ctx context.Context, userID, teamID primitive.ObjectID) error
}

// Requests is the slice of notify.Dispatcher this package needs.
type Requests interface {
	Request(ctx context.Context, m notify.Message, counterpart primitive.ObjectID) (models.Notification, error)
	Get(ctx context.Context, recipient, id primitive.ObjectID) (models.Notification, error)
	Resolve(ctx context.Context, n models.Notification) error
}

type Service struct {
	teams    TeamStore
	users    UserStore
	requests Requests
	log      *zap.Logger
}

func New(teams TeamStore, users UserStore, requests Requests, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{teams: teams, users: users, requests: requests, log: logger}
}

// RequestJoin asks the leader of teamID to let the actor in.
func (s *Service) RequestJoin(ctx context.Context, a authz.Actor, teamID primitive.ObjectID) (models.Notification, error) {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return models.Notification{}, err
	}
	if team.TeamLeader == a.ID || team.HasMember(a.ID) {
		return models.Notification{}, apperr.Conflict("you are already on this team")
	}
	requester, err := s.loadUser(ctx, a.ID)
	if err != nil {
		return models.Notification{}, err
	}

	n, err := s.requests.Request(ctx, notify.Message{
		Type:      models.NotifyTeamJoinRequest,
		Recipient: team.TeamLeader,
		Sender:    &requester.ID,
		Target:    models.TeamTarget(team.ID),
		Title:     "Team join request",
		Message:   fmt.Sprintf("%s asked to join %s.", requester.FullName, team.Name),
		Data:      map[string]any{"team_name": team.Name, "requester_name": requester.FullName},
	}, requester.ID)
	if err != nil {
		return models.Notification{}, err
	}
	s.log.Info("team join requested",
		zap.String("team_id", team.ID.Hex()),
		zap.String("user_id", requester.ID.Hex()))
	return n, nil
}

// Invite asks userID to join teamID. Only the team's leader may invite.
func (s *Service) Invite(ctx context.Context, a authz.Actor, teamID, userID primitive.ObjectID) (models.Notification, error) {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return models.Notification{}, err
	}
	if !teampolicy.IsTeamLeader(team, a.ID) {
		return models.Notification{}, apperr.Forbidden("only the team leader can invite members")
	}
	invitee, err := s.loadUser(ctx, userID)
	if err != nil {
		return models.Notification{}, err
	}
	if team.TeamLeader == invitee.ID || team.HasMember(invitee.ID) {
		return models.Notification{}, apperr.Conflict("user is already on this team")
	}

	n, err := s.requests.Request(ctx, notify.Message{
		Type:      models.NotifyTeamInvitation,
		Recipient: invitee.ID,
		Sender:    &team.TeamLeader,
		Target:    models.TeamTarget(team.ID),
		Title:     "Team invitation",
		Message:   fmt.Sprintf("You have been invited to join %s.", team.Name),
		Data:      map[string]any{"team_name": team.Name},
	}, invitee.ID)
	if err != nil {
		return models.Notification{}, err
	}
	s.log.Info("team invitation sent",
		zap.String("team_id", team.ID.Hex()),
		zap.String("user_id", invitee.ID.Hex()))
	return n, nil
}

// Accept answers one of the actor's pending requests. The counterpart joins
// the team on both sides of the membership link and the request is deleted.
func (s *Service) Accept(ctx context.Context, a authz.Actor, notificationID primitive.ObjectID) error {
	n, team, err := s.loadRequest(ctx, a, notificationID)
	if err != nil {
		return err
	}
	userID := *n.Counterpart

	if team.TeamLeader != userID {
		if err := s.teams.AddMember(ctx, team.ID, userID); err != nil {
			return storeErr(err, "team", "add team member")
		}
		if err := s.users.AddTeam(ctx, userID, team.ID); err != nil {
			return storeErr(err, "user", "link user to team")
		}
	}
	if err := s.requests.Resolve(ctx, n); err != nil {
		return err
	}
	s.log.Info("team request accepted",
		zap.String("notification_type", string(n.Type)),
		zap.String("team_id", team.ID.Hex()),
		zap.String("user_id", userID.Hex()))
	return nil
}

// Decline deletes one of the actor's pending requests without changing
// membership.
func (s *Service) Decline(ctx context.Context, a authz.Actor, notificationID primitive.ObjectID) error {
	n, err := s.requests.Get(ctx, a.ID, notificationID)
	if err != nil {
		return err
	}
	if err := s.requests.Resolve(ctx, n); err != nil {
		return err
	}
	s.log.Info("team request declined",
		zap.String("notification_type", string(n.Type)),
		zap.String("user_id", a.ID.Hex()))
	return nil
}

func (s *Service) loadRequest(ctx context.Context, a authz.Actor, id primitive.ObjectID) (models.Notification, models.Team, error) {
	n, err := s.requests.Get(ctx, a.ID, id)
	if err != nil {
		return models.Notification{}, models.Team{}, err
	}
	if !n.Type.IsRequest() || n.Counterpart == nil {
		return models.Notification{}, models.Team{}, apperr.Validation("only requests can be accepted or declined")
	}
	teamID, _ := n.Target.TeamID()
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return models.Notification{}, models.Team{}, err
	}
	// Leadership may have moved since the request was filed.
	if n.Type == models.NotifyTeamJoinRequest && !teampolicy.IsTeamLeader(team, a.ID) {
		return models.Notification{}, models.Team{}, apperr.Forbidden("only the team leader can accept join requests")
	}
	return n, team, nil
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

func (s *Service) loadUser(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && !u.IsActive) {
		return models.User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return models.User{}, apperr.Downstream("load user", err)
	}
	return u, nil
}

func storeErr(err error, what, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound(what + " not found")
	}
	return apperr.Downstream(op, err)
}
