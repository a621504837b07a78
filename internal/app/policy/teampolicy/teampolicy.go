// Package teampolicy answers team ownership and membership questions.
//
// Leadership and membership are distinct: a team's leader owns the team and
// is not listed in its members set. Both count toward the teams a user
// belongs to, but only the leader may act on the team's projects.
package teampolicy

import (
	"context"
	"sort"

	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TeamLister is the store query the index is derived from.
type TeamLister interface {
	// ListForUser returns the active teams userID leads or is a member of.
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Team, error)
}

// TeamSet is a set of team ids.
type TeamSet map[primitive.ObjectID]struct{}

func (s TeamSet) Has(id primitive.ObjectID) bool {
	_, ok := s[id]
	return ok
}

// HasAny reports whether any of ids is in the set.
func (s TeamSet) HasAny(ids []primitive.ObjectID) bool {
	for _, id := range ids {
		if s.Has(id) {
			return true
		}
	}
	return false
}

// IDs returns the members of the set in a stable order.
func (s TeamSet) IDs() []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

// Index derives team membership from the store on every call. Nothing is
// cached, so membership changes are visible to the next check.
type Index struct {
	teams TeamLister
}

func NewIndex(teams TeamLister) *Index {
	return &Index{teams: teams}
}

// TeamsOf returns the ids of active teams userID leads or belongs to. A user
// with no teams, or an unknown user, yields an empty set and no error.
func (ix *Index) TeamsOf(ctx context.Context, userID primitive.ObjectID) (TeamSet, error) {
	set := TeamSet{}
	if userID.IsZero() {
		return set, nil
	}
	teams, err := ix.teams.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, t := range teams {
		if !t.IsActive {
			continue
		}
		if t.TeamLeader == userID || t.HasMember(userID) {
			set[t.ID] = struct{}{}
		}
	}
	return set, nil
}

// IsTeamLeader reports whether userID holds the leadership slot of team.
// Plain membership does not count.
func IsTeamLeader(team models.Team, userID primitive.ObjectID) bool {
	return !userID.IsZero() && team.TeamLeader == userID
}
