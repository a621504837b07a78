package teamstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/projecthub/internal/app/system/indexes"
	"github.com/dalemusser/projecthub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateTeamName = errors.New("a team with this name already exists")
	// ErrLeaderHasTeam is returned when the leader already leads another
	// active team.
	ErrLeaderHasTeam = errors.New("user already leads an active team")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("teams")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Team, error) {
	var t models.Team
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return models.Team{}, err
	}
	return t, nil
}

// GetByLeader returns the active team led by userID.
func (s *Store) GetByLeader(ctx context.Context, userID primitive.ObjectID) (models.Team, error) {
	var t models.Team
	if err := s.c.FindOne(ctx, bson.M{"team_leader": userID, "is_active": true}).Decode(&t); err != nil {
		return models.Team{}, err
	}
	return t, nil
}

func (s *Store) Create(ctx context.Context, t models.Team) (models.Team, error) {
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.Name = strings.TrimSpace(t.Name)
	t.NameCI = text.Fold(t.Name)
	if t.Members == nil {
		t.Members = []primitive.ObjectID{}
	}
	t.IsActive = true
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Team{}, dupErr(err)
	}
	return t, nil
}

// dupErr maps a duplicate key error to the unique index it violated.
func dupErr(err error) error {
	if !wafflemongo.IsDup(err) {
		return err
	}
	if strings.Contains(err.Error(), indexes.TeamsLeaderActiveUniq) {
		return ErrLeaderHasTeam
	}
	return ErrDuplicateTeamName
}

// List returns teams ordered by name.
func (s *Store) List(ctx context.Context, includeInactive bool) ([]models.Team, error) {
	filter := bson.M{}
	if !includeInactive {
		filter["is_active"] = true
	}
	return s.find(ctx, filter)
}

// ListForUser returns the active teams userID leads or belongs to.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Team, error) {
	return s.find(ctx, bson.M{
		"is_active": true,
		"$or": bson.A{
			bson.M{"team_leader": userID},
			bson.M{"members": userID},
		},
	})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Team, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Team
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddMember adds userID to the members set.
func (s *Store) AddMember(ctx context.Context, teamID, userID primitive.ObjectID) error {
	return s.updateOne(ctx, teamID, bson.M{
		"$addToSet": bson.M{"members": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

// RemoveMember drops userID from the members set.
func (s *Store) RemoveMember(ctx context.Context, teamID, userID primitive.ObjectID) error {
	return s.updateOne(ctx, teamID, bson.M{
		"$pull": bson.M{"members": userID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// SetActive flips the soft-delete flag. Reactivating a team whose leader
// already leads another active team fails with ErrLeaderHasTeam.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	err := s.updateOne(ctx, id, bson.M{"$set": bson.M{
		"is_active":  active,
		"updated_at": time.Now().UTC(),
	}})
	return dupErr(err)
}

func (s *Store) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := s.c.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
