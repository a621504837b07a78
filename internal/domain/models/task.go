// internal/domain/models/task.go
package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task status values.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskReview     = "review"
	TaskDone       = "done"
)

// NormalizeTaskStatus lowercases s and folds the legacy "completed" value
// into TaskDone. It returns "" for anything that is not a task status.
func NormalizeTaskStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "completed":
		return TaskDone
	case TaskTodo, TaskInProgress, TaskReview, TaskDone:
		return s
	}
	return ""
}

// Task belongs to exactly one project.
//
// AssignedTo is nil while nobody owns the task.
type Task struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	Title       string              `bson:"title" json:"title"`
	Description string              `bson:"description" json:"description"`
	Project     primitive.ObjectID  `bson:"project" json:"project"`
	AssignedTo  *primitive.ObjectID `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	CreatedBy   primitive.ObjectID  `bson:"created_by" json:"created_by"`
	Status      string              `bson:"status" json:"status"`
	Priority    string              `bson:"priority,omitempty" json:"priority,omitempty"`
	Progress    int                 `bson:"progress" json:"progress"`
	DueDate     *time.Time          `bson:"due_date,omitempty" json:"due_date,omitempty"`
	CompletedAt *time.Time          `bson:"completed_at,omitempty" json:"completed_at,omitempty"`

	ReminderSentAt *time.Time `bson:"reminder_sent_at,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
