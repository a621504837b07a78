package taskstore

import (
	"context"
	"time"

	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Task, error) {
	var t models.Task
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

func (s *Store) Create(ctx context.Context, t models.Task) (models.Task, error) {
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	if t.Status == "" {
		t.Status = models.TaskTodo
	}
	if t.Status == models.TaskDone {
		t.Progress = 100
		t.CompletedAt = &now
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// ListByProject returns the project's tasks in creation order.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"project": projectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Task
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByProject returns the total number of tasks and how many are done.
func (s *Store) CountByProject(ctx context.Context, projectID primitive.ObjectID) (total, done int64, err error) {
	total, err = s.c.CountDocuments(ctx, bson.M{"project": projectID})
	if err != nil || total == 0 {
		return total, 0, err
	}
	done, err = s.c.CountDocuments(ctx, bson.M{"project": projectID, "status": models.TaskDone})
	return total, done, err
}

// UpdateStatus sets the status. Moving to done stamps completed_at and
// pins progress at 100; leaving done clears completed_at.
func (s *Store) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	now := time.Now().UTC()
	update := bson.M{}
	if status == models.TaskDone {
		update["$set"] = bson.M{"status": status, "progress": 100, "completed_at": now, "updated_at": now}
	} else {
		update["$set"] = bson.M{"status": status, "updated_at": now}
		update["$unset"] = bson.M{"completed_at": ""}
	}
	return s.updateOne(ctx, id, update)
}

func (s *Store) UpdateProgress(ctx context.Context, id primitive.ObjectID, progress int) error {
	return s.updateOne(ctx, id, bson.M{"$set": bson.M{"progress": progress, "updated_at": time.Now().UTC()}})
}

// UpdateAssignee sets or, when assignee is nil, clears assigned_to.
func (s *Store) UpdateAssignee(ctx context.Context, id primitive.ObjectID, assignee *primitive.ObjectID) error {
	now := time.Now().UTC()
	if assignee == nil {
		return s.updateOne(ctx, id, bson.M{
			"$set":   bson.M{"updated_at": now},
			"$unset": bson.M{"assigned_to": "", "reminder_sent_at": ""},
		})
	}
	return s.updateOne(ctx, id, bson.M{
		"$set":   bson.M{"assigned_to": *assignee, "updated_at": now},
		"$unset": bson.M{"reminder_sent_at": ""},
	})
}

// DeleteByProject removes every task of the project.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListDueForReminder returns assigned, unfinished tasks due between now and
// cutoff that have not been reminded yet.
func (s *Store) ListDueForReminder(ctx context.Context, now, cutoff time.Time) ([]models.Task, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"assigned_to":      bson.M{"$exists": true},
		"status":           bson.M{"$ne": models.TaskDone},
		"due_date":         bson.M{"$gte": now, "$lte": cutoff},
		"reminder_sent_at": bson.M{"$exists": false},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Task
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

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
