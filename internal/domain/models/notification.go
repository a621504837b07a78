// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType is the closed set of notification kinds.
type NotificationType string

const (
	NotifyTaskAssigned       NotificationType = "task-assigned"
	NotifyTaskUpdated        NotificationType = "task-updated"
	NotifyProjectAssigned    NotificationType = "project-assigned"
	NotifyProjectUpdated     NotificationType = "project-updated"
	NotifyProjectAccepted    NotificationType = "project-accepted"
	NotifyProjectRejected    NotificationType = "project-rejected"
	NotifyDeadlineReminder   NotificationType = "deadline-reminder"
	NotifySystemAnnouncement NotificationType = "system-announcement"
	NotifyTeamJoinRequest    NotificationType = "team-join-request"
	NotifyTeamInvitation     NotificationType = "team-invitation"
)

// IsRequest reports whether t is an actionable request that the recipient
// accepts or declines. Request notifications are de-duplicated while pending
// and deleted once answered.
func (t NotificationType) IsRequest() bool {
	return t == NotifyTeamJoinRequest || t == NotifyTeamInvitation
}

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotifyTaskAssigned, NotifyTaskUpdated, NotifyProjectAssigned, NotifyProjectUpdated,
		NotifyProjectAccepted, NotifyProjectRejected, NotifyDeadlineReminder,
		NotifySystemAnnouncement, NotifyTeamJoinRequest, NotifyTeamInvitation:
		return true
	}
	return false
}

// Request notification status.
const (
	RequestPending = "pending"
)

// TargetKind discriminates Target.
type TargetKind string

const (
	TargetNone    TargetKind = ""
	TargetTask    TargetKind = "task"
	TargetProject TargetKind = "project"
	TargetTeam    TargetKind = "team"
)

// Target is the entity a notification concerns. Build it with TaskTarget,
// ProjectTarget, TeamTarget or NoTarget and switch on Kind to render it.
type Target struct {
	Kind TargetKind         `bson:"kind" json:"type"`
	ID   primitive.ObjectID `bson:"id,omitempty" json:"id,omitempty"`
}

func NoTarget() Target                           { return Target{} }
func TaskTarget(id primitive.ObjectID) Target    { return Target{Kind: TargetTask, ID: id} }
func ProjectTarget(id primitive.ObjectID) Target { return Target{Kind: TargetProject, ID: id} }
func TeamTarget(id primitive.ObjectID) Target    { return Target{Kind: TargetTeam, ID: id} }

// TeamID returns the referenced team, if the target is a team.
func (t Target) TeamID() (primitive.ObjectID, bool) {
	return t.ID, t.Kind == TargetTeam
}

// Notification is a message delivered to a single recipient.
type Notification struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	Recipient   primitive.ObjectID  `bson:"recipient" json:"recipient"`
	Sender      *primitive.ObjectID `bson:"sender,omitempty" json:"sender,omitempty"`
	Type        NotificationType    `bson:"type" json:"type"`
	Title       string              `bson:"title" json:"title"`
	Message     string              `bson:"message" json:"message"`
	Target      Target              `bson:"target" json:"target"`
	ActionURL   string              `bson:"action_url,omitempty" json:"action_url,omitempty"`
	Data        map[string]any      `bson:"data,omitempty" json:"data,omitempty"`
	IsRead      bool                `bson:"is_read" json:"is_read"`
	ReadAt      *time.Time          `bson:"read_at,omitempty" json:"read_at,omitempty"`
	Status      string              `bson:"status,omitempty" json:"status,omitempty"`           // request types only
	Counterpart *primitive.ObjectID `bson:"counterpart,omitempty" json:"counterpart,omitempty"` // request types only

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
