package projectstore

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/projecthub/internal/domain/models"
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
	return &Store{c: db.Collection("projects")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// Create inserts p as an unassigned, active project. Any lifecycle
// timestamps on the input are discarded.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.NameCI = text.Fold(p.Name)
	if p.Status == "" {
		p.Status = models.ProjectPlanning
	}
	p.Team = nil
	p.AssignedAt, p.AcceptedAt, p.RejectedAt = nil, nil, nil
	p.IsAssigned = false
	p.IsActive = true
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// ListFilter narrows List. Zero values mean "no constraint".
type ListFilter struct {
	Teams           []primitive.ObjectID // projects assigned to any of these teams
	Status          string
	Search          string
	IncludeInactive bool
}

// List returns projects, newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Project, error) {
	filter := bson.M{}
	if !f.IncludeInactive {
		filter["is_active"] = true
	}
	if f.Teams != nil {
		filter["team"] = bson.M{"$in": f.Teams}
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		filter["name_ci"] = bson.M{"$regex": regexp.QuoteMeta(text.Fold(q))}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Project
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Assign points the project at teamID and resets it to pending.
func (s *Store) Assign(ctx context.Context, id, teamID primitive.ObjectID, at time.Time) error {
	return s.updateOne(ctx, id, bson.M{
		"$set": bson.M{
			"team":        teamID,
			"assigned_at": at,
			"is_assigned": false,
			"updated_at":  at,
		},
		"$unset": bson.M{"accepted_at": "", "rejected_at": ""},
	})
}

// Accept records the team's acceptance, clearing any earlier rejection.
func (s *Store) Accept(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return s.updateOne(ctx, id, bson.M{
		"$set":   bson.M{"accepted_at": at, "is_assigned": true, "updated_at": at},
		"$unset": bson.M{"rejected_at": ""},
	})
}

// Reject records the team's rejection, clearing any earlier acceptance.
func (s *Store) Reject(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return s.updateOne(ctx, id, bson.M{
		"$set":   bson.M{"rejected_at": at, "is_assigned": false, "updated_at": at},
		"$unset": bson.M{"accepted_at": ""},
	})
}

// Patch holds the editable, non-lifecycle fields. Nil means unchanged.
type Patch struct {
	Name        *string
	Description *string
	Status      *string
	Priority    *string
	StartDate   *time.Time
	Deadline    *time.Time
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.StartDate == nil && p.Deadline == nil
}

// Update applies p.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, p Patch) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
		set["name_ci"] = text.Fold(*p.Name)
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.Priority != nil {
		set["priority"] = *p.Priority
	}
	if p.StartDate != nil {
		set["start_date"] = *p.StartDate
	}
	if p.Deadline != nil {
		set["deadline"] = *p.Deadline
		// A moved deadline earns a fresh reminder.
		unset["reminder_sent_at"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return s.updateOne(ctx, id, update)
}

// SoftDelete marks the project inactive.
func (s *Store) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	return s.updateOne(ctx, id, bson.M{"$set": bson.M{"is_active": false, "updated_at": now}})
}

// Delete removes the project document. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListDueForReminder returns active, accepted projects whose deadline falls
// before cutoff, that are not finished and have not been reminded yet.
func (s *Store) ListDueForReminder(ctx context.Context, now, cutoff time.Time) ([]models.Project, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"is_active":        true,
		"is_assigned":      true,
		"deadline":         bson.M{"$gte": now, "$lte": cutoff},
		"status":           bson.M{"$nin": bson.A{models.ProjectCompleted, models.ProjectCancelled}},
		"reminder_sent_at": bson.M{"$exists": false},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Project
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkReminded stamps reminder_sent_at.
func (s *Store) MarkReminded(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return s.updateOne(ctx, id, bson.M{"$set": bson.M{"reminder_sent_at": at}})
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
