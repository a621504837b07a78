// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Collections lists every collection the app writes, in creation order.
var Collections = []string{"users", "teams", "projects", "tasks", "notifications"}

// EnsureAll creates the collections (if missing) and attaches JSON-Schema
// validators. Deployments that reject collMod/validators (e.g. some
// DocumentDB versions) are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	schemas := map[string]bson.M{
		"users":         usersSchema(),
		"teams":         teamsSchema(),
		"projects":      projectsSchema(),
		"tasks":         tasksSchema(),
		"notifications": notificationsSchema(),
	}

	var problems []string
	for _, coll := range Collections {
		if err := ensureCollection(ctx, db, coll, logger); err != nil {
			problems = append(problems, coll+": "+err.Error())
			continue
		}
		err := setValidator(ctx, db, coll, schemas[coll])
		switch {
		case err == nil:
			logger.Debug("validator ensured", zap.String("collection", coll))
		case hasCode(err, 59, "no such command"), hasCode(err, 115, "not implemented", "not supported"):
			logger.Info("validator skipped (unsupported)", zap.String("collection", coll))
		default:
			problems = append(problems, coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, logger *zap.Logger) error {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err == nil && len(names) > 0 {
		return nil
	}
	// Listing failed or the collection is missing: create and tolerate a race.
	if err := db.CreateCollection(ctx, name); err != nil {
		if hasCode(err, 48, "already exists", "namespace exists") {
			return nil
		}
		return err
	}
	logger.Info("created collection", zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, schema bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	return db.RunCommand(ctx, cmd).Err()
}

// hasCode reports whether err is a command error with code, or its message
// contains one of phrases.
func hasCode(err error, code int32, phrases ...string) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name", "email", "role", "is_active"},
			"properties": bson.M{
				"full_name": nonBlank,
				"email":     nonBlank,
				"role":      bson.M{"enum": bson.A{"admin", "team_leader", "member"}},
				"teams":     bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
				"is_active": bson.M{"bsonType": "bool"},
			},
		},
	}
}

func teamsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "team_leader", "is_active"},
			"properties": bson.M{
				"name":        nonBlank,
				"team_leader": bson.M{"bsonType": "objectId"},
				"members":     bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
				"is_active":   bson.M{"bsonType": "bool"},
			},
		},
	}
}

func projectsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "status", "created_by", "is_active"},
			"properties": bson.M{
				"name": nonBlank,
				"status": bson.M{"enum": bson.A{
					models.ProjectPlanning, models.ProjectInProgress, models.ProjectTesting,
					models.ProjectCompleted, models.ProjectOnHold, models.ProjectCancelled,
				}},
				"team":        bson.M{"bsonType": "objectId"},
				"created_by":  bson.M{"bsonType": "objectId"},
				"is_assigned": bson.M{"bsonType": "bool"},
				"is_active":   bson.M{"bsonType": "bool"},
			},
		},
	}
}

func tasksSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "project", "status"},
			"properties": bson.M{
				"title":       nonBlank,
				"project":     bson.M{"bsonType": "objectId"},
				"assigned_to": bson.M{"bsonType": "objectId"},
				"status": bson.M{"enum": bson.A{
					models.TaskTodo, models.TaskInProgress, models.TaskReview, models.TaskDone,
				}},
				"progress": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0, "maximum": 100},
			},
		},
	}
}

func notificationsSchema() bson.M {
	types := bson.A{}
	for _, t := range []models.NotificationType{
		models.NotifyTaskAssigned, models.NotifyTaskUpdated, models.NotifyProjectAssigned,
		models.NotifyProjectUpdated, models.NotifyProjectAccepted, models.NotifyProjectRejected,
		models.NotifyDeadlineReminder, models.NotifySystemAnnouncement,
		models.NotifyTeamJoinRequest, models.NotifyTeamInvitation,
	} {
		types = append(types, string(t))
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"recipient", "type", "title", "is_read"},
			"properties": bson.M{
				"recipient": bson.M{"bsonType": "objectId"},
				"type":      bson.M{"enum": types},
				"title":     bson.M{"bsonType": "string"},
				"is_read":   bson.M{"bsonType": "bool"},
				"status":    bson.M{"enum": bson.A{models.RequestPending}},
			},
		},
	}
}
