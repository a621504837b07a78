// Package visibility scopes bulk listings to what an actor may see.
//
// Rules:
//   - Admins see everything; the filter is the identity function
//   - Team leaders see teams they belong to, projects assigned to those
//     teams, themselves, and users sharing at least one of those teams
//   - Everyone else gets an empty list from bulk listings
//
// The filter is applied to every bulk listing even when the store query was
// already narrowed with Scope.
package visibility

import (
	"context"

	"github.com/dalemusser/projecthub/internal/app/policy/teampolicy"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MembershipIndex resolves the teams a user belongs to.
type MembershipIndex interface {
	TeamsOf(ctx context.Context, userID primitive.ObjectID) (teampolicy.TeamSet, error)
}

// ListScope describes how far an actor's bulk listings reach.
type ListScope struct {
	// CanList is false when the actor gets nothing from bulk listings.
	CanList bool
	// All is true for actors that see every record.
	All bool
	// Teams holds the visible team ids when All is false.
	Teams teampolicy.TeamSet
}

// TeamIDs returns the scoped team ids, or nil when the scope is unrestricted.
func (s ListScope) TeamIDs() []primitive.ObjectID {
	if s.All {
		return nil
	}
	if s.Teams == nil {
		return []primitive.ObjectID{}
	}
	return s.Teams.IDs()
}

type Filter struct {
	index MembershipIndex
}

func New(index MembershipIndex) *Filter {
	return &Filter{index: index}
}

// Scope returns the listing scope of a. Store queries may use it to narrow
// results before the per-kind filters run.
func (f *Filter) Scope(ctx context.Context, a authz.Actor) (ListScope, error) {
	switch authz.NormalizeRole(string(a.Role)) {
	case authz.RoleAdmin:
		return ListScope{CanList: true, All: true}, nil
	case authz.RoleTeamLeader:
		set, err := f.index.TeamsOf(ctx, a.ID)
		if err != nil {
			return ListScope{}, err
		}
		return ListScope{CanList: true, Teams: set}, nil
	default:
		return ListScope{}, nil
	}
}

// Teams keeps the teams whose id is in the actor's scope.
func (f *Filter) Teams(ctx context.Context, a authz.Actor, in []models.Team) ([]models.Team, error) {
	scope, err := f.Scope(ctx, a)
	if err != nil {
		return nil, err
	}
	return keep(scope, in, func(t models.Team) bool {
		return scope.Teams.Has(t.ID)
	}), nil
}

// Projects keeps the projects assigned to a team in the actor's scope.
// Unassigned projects are visible to admins only.
func (f *Filter) Projects(ctx context.Context, a authz.Actor, in []models.Project) ([]models.Project, error) {
	scope, err := f.Scope(ctx, a)
	if err != nil {
		return nil, err
	}
	return keep(scope, in, func(p models.Project) bool {
		return p.Team != nil && scope.Teams.Has(*p.Team)
	}), nil
}

// Users keeps the actor and the users sharing a team with the actor.
func (f *Filter) Users(ctx context.Context, a authz.Actor, in []models.User) ([]models.User, error) {
	scope, err := f.Scope(ctx, a)
	if err != nil {
		return nil, err
	}
	return keep(scope, in, func(u models.User) bool {
		return u.ID == a.ID || scope.Teams.HasAny(u.Teams)
	}), nil
}

func keep[T any](scope ListScope, in []T, visible func(T) bool) []T {
	if !scope.CanList {
		return []T{}
	}
	if scope.All {
		return in
	}
	out := make([]T, 0, len(in))
	for _, v := range in {
		if visible(v) {
			out = append(out, v)
		}
	}
	return out
}
