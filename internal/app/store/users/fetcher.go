package userstore

import (
	"context"

	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher loads fresh identity data on each request so that role changes
// and deactivation take effect immediately. It implements auth.UserFetcher.
type Fetcher struct {
	users *mongo.Collection
}

// NewFetcher creates a Fetcher that queries the given database.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{users: db.Collection("users")}
}

// FetchActor returns the actor for userID, or false when the user does not
// exist, is inactive, or holds no recognised role.
func (f *Fetcher) FetchActor(ctx context.Context, userID primitive.ObjectID) (authz.Actor, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	proj := options.FindOne().SetProjection(bson.M{
		"_id":       1,
		"full_name": 1,
		"role":      1,
		"is_active": 1,
	})
	if err := f.users.FindOne(ctx, bson.M{"_id": userID}, proj).Decode(&u); err != nil {
		return authz.Actor{}, false
	}
	if !u.IsActive {
		return authz.Actor{}, false
	}
	role := authz.NormalizeRole(u.Role)
	if !role.Valid() {
		return authz.Actor{}, false
	}
	return authz.Actor{ID: u.ID, Name: u.FullName, Role: role}, true
}
