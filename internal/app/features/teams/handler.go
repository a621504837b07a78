// internal/app/features/teams/handler.go
package teams

import (
	"context"

	teamsvc "github.com/dalemusser/projecthub/internal/app/services/teams"
	"github.com/dalemusser/projecthub/internal/app/system/auditlog"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Directory covers team reads and membership changes.
type Directory interface {
	Create(ctx context.Context, a authz.Actor, in teamsvc.CreateTeamInput) (models.Team, error)
	Get(ctx context.Context, a authz.Actor, id primitive.ObjectID) (models.Team, error)
	List(ctx context.Context, a authz.Actor, includeInactive bool) ([]models.Team, error)
	AddMember(ctx context.Context, a authz.Actor, teamID, userID primitive.ObjectID) (models.Team, error)
	RemoveMember(ctx context.Context, a authz.Actor, teamID, userID primitive.ObjectID) (models.Team, error)
}

// Requests sends join requests and invitations.
type Requests interface {
	RequestJoin(ctx context.Context, a authz.Actor, teamID primitive.ObjectID) (models.Notification, error)
	Invite(ctx context.Context, a authz.Actor, teamID, userID primitive.ObjectID) (models.Notification, error)
}

// Handler serves /teams.
type Handler struct {
	Teams    Directory
	Requests Requests
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(teams Directory, requests Requests, logger *zap.Logger) *Handler {
	return &Handler{
		Teams:    teams,
		Requests: requests,
		Log:      logger,
	}
}
