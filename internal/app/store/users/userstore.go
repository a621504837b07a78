package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/app/system/normalize"
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

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New(`role must be "admin"|"team_leader"|"member"`)
)

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Create inserts a new user after normalizing fields. The stored role is
// always the canonical one, so legacy aliases never reach the database.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	role := authz.NormalizeRole(u.Role)
	if !role.Valid() {
		return models.User{}, errBadRole
	}

	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.Role = role.String()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	if u.Teams == nil {
		u.Teams = []primitive.ObjectID{}
	}
	u.IsActive = true
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// ListFilter narrows List. Zero values mean "no constraint".
type ListFilter struct {
	Role            string
	Team            *primitive.ObjectID
	IncludeInactive bool
}

// List returns users ordered by name.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.User, error) {
	filter := bson.M{}
	if !f.IncludeInactive {
		filter["is_active"] = true
	}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Team != nil {
		filter["teams"] = *f.Team
	}
	opts := options.Find().SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddTeam records teamID in the user's teams set.
func (s *Store) AddTeam(ctx context.Context, userID, teamID primitive.ObjectID) error {
	return s.updateOne(ctx, userID, bson.M{
		"$addToSet": bson.M{"teams": teamID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

// RemoveTeam drops teamID from the user's teams set.
func (s *Store) RemoveTeam(ctx context.Context, userID, teamID primitive.ObjectID) error {
	return s.updateOne(ctx, userID, bson.M{
		"$pull": bson.M{"teams": teamID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// SetActive flips the soft-delete flag.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	return s.updateOne(ctx, id, bson.M{"$set": bson.M{
		"is_active":  active,
		"updated_at": time.Now().UTC(),
	}})
}

// EnsureAdmin creates the admin identified by email, or promotes and
// reactivates it when it already exists. Used by startup and the CLI.
func (s *Store) EnsureAdmin(ctx context.Context, email, fullName, passwordHash string) (models.User, bool, error) {
	existing, err := s.GetByEmail(ctx, email)
	if err == nil {
		set := bson.M{"role": authz.RoleAdmin.String(), "is_active": true, "updated_at": time.Now().UTC()}
		if passwordHash != "" && existing.PasswordHash == "" {
			set["password_hash"] = passwordHash
		}
		if err := s.updateOne(ctx, existing.ID, bson.M{"$set": set}); err != nil {
			return models.User{}, false, err
		}
		existing.Role = authz.RoleAdmin.String()
		existing.IsActive = true
		return existing, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, false, err
	}
	u, err := s.Create(ctx, models.User{
		FullName:     fullName,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         authz.RoleAdmin.String(),
	})
	if err != nil {
		return models.User{}, false, err
	}
	return u, true, nil
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
