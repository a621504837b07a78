// internal/domain/models/project.go
package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project business status values. These are independent of the assignment
// lifecycle tracked by AssignedAt/AcceptedAt/RejectedAt.
const (
	ProjectPlanning   = "planning"
	ProjectInProgress = "in_progress"
	ProjectTesting    = "testing"
	ProjectCompleted  = "completed"
	ProjectOnHold     = "on_hold"
	ProjectCancelled  = "cancelled"
)

// ValidProjectStatus reports whether s is one of the business status values.
func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectPlanning, ProjectInProgress, ProjectTesting, ProjectCompleted, ProjectOnHold, ProjectCancelled:
		return true
	}
	return false
}

// Project is a unit of work that an admin assigns to a team.
//
// The assignment lifecycle is encoded in three timestamps. Use State()
// rather than inspecting them directly.
type Project struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	Name        string              `bson:"name" json:"name"`
	NameCI      string              `bson:"name_ci" json:"-"`
	Description string              `bson:"description" json:"description"`
	Team        *primitive.ObjectID `bson:"team,omitempty" json:"team,omitempty"`
	CreatedBy   primitive.ObjectID  `bson:"created_by" json:"created_by"`
	Status      string              `bson:"status" json:"status"`
	Priority    string              `bson:"priority,omitempty" json:"priority,omitempty"`
	StartDate   *time.Time          `bson:"start_date,omitempty" json:"start_date,omitempty"`
	Deadline    *time.Time          `bson:"deadline,omitempty" json:"deadline,omitempty"`

	AssignedAt *time.Time `bson:"assigned_at,omitempty" json:"assigned_at,omitempty"`
	AcceptedAt *time.Time `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
	RejectedAt *time.Time `bson:"rejected_at,omitempty" json:"rejected_at,omitempty"`
	IsAssigned bool       `bson:"is_assigned" json:"is_assigned"`

	ReminderSentAt *time.Time `bson:"reminder_sent_at,omitempty" json:"-"`
	IsActive       bool       `bson:"is_active" json:"is_active"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// AssignmentState is the derived assignment status of a project.
type AssignmentState string

const (
	StateUnassigned AssignmentState = "unassigned"
	StatePending    AssignmentState = "pending"
	StateAccepted   AssignmentState = "accepted"
	StateRejected   AssignmentState = "rejected"
)

// DeriveState projects the three lifecycle timestamps onto a state.
//
// A document carrying both AcceptedAt and RejectedAt violates the lifecycle
// invariant; the most recent decision wins.
func DeriveState(assignedAt, acceptedAt, rejectedAt *time.Time) AssignmentState {
	if assignedAt == nil {
		return StateUnassigned
	}
	switch {
	case acceptedAt != nil && rejectedAt != nil:
		if rejectedAt.After(*acceptedAt) {
			return StateRejected
		}
		return StateAccepted
	case acceptedAt != nil:
		return StateAccepted
	case rejectedAt != nil:
		return StateRejected
	}
	return StatePending
}

// State returns the project's assignment state.
func (p Project) State() AssignmentState {
	return DeriveState(p.AssignedAt, p.AcceptedAt, p.RejectedAt)
}

// ProjectProgress returns the completion percentage for a project with
// total tasks of which done are finished. A project without tasks is at 0.
func ProjectProgress(total, done int64) int {
	if total <= 0 {
		return 0
	}
	if done > total {
		done = total
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}
