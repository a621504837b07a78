// internal/app/features/teams/requests.go
package teams

import (
	"net/http"

	"github.com/dalemusser/projecthub/internal/app/features/shared"
	"github.com/dalemusser/projecthub/internal/app/system/apperr"
	"github.com/dalemusser/projecthub/internal/app/system/respond"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HandleJoinRequest handles POST /teams/{id}/join-requests. The request
// lands in the team leader's notifications.
func (h *Handler) HandleJoinRequest(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	teamID, err := shared.ObjectID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "teams.join_request")
	defer cancel()

	n, err := h.Requests.RequestJoin(ctx, a, teamID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, h.Log, http.StatusCreated, n)
}

// HandleInvite handles POST /teams/{id}/invitations with {"user_id": "..."}.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	teamID, err := shared.ObjectID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in memberInput
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	userID, err := primitive.ObjectIDFromHex(in.UserID)
	if err != nil {
		respond.Error(w, h.Log, apperr.Validation("user_id must be a valid id"))
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "teams.invite")
	defer cancel()

	n, err := h.Requests.Invite(ctx, a, teamID, userID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, h.Log, http.StatusCreated, n)
}
