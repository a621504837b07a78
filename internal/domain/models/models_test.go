package models

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDeriveState(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t0.Add(2 * time.Hour)

	tests := []struct {
		name               string
		assigned, acc, rej *time.Time
		want               AssignmentState
	}{
		{"never assigned", nil, nil, nil, StateUnassigned},
		{"decision without assignment", nil, &t1, nil, StateUnassigned},
		{"pending", &t0, nil, nil, StatePending},
		{"accepted", &t0, &t1, nil, StateAccepted},
		{"rejected", &t0, nil, &t1, StateRejected},
		{"both, reject later", &t0, &t1, &t2, StateRejected},
		{"both, accept later", &t0, &t2, &t1, StateAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveState(tt.assigned, tt.acc, tt.rej); got != tt.want {
				t.Errorf("DeriveState = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProjectProgress(t *testing.T) {
	tests := []struct {
		total, done int64
		want        int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{3, 1, 33},
		{3, 2, 67},
		{4, 4, 100},
		{2, 5, 100},
	}
	for _, tt := range tests {
		if got := ProjectProgress(tt.total, tt.done); got != tt.want {
			t.Errorf("ProjectProgress(%d, %d) = %d, want %d", tt.total, tt.done, got, tt.want)
		}
	}
}

func TestNormalizeTaskStatus(t *testing.T) {
	tests := map[string]string{
		"todo":          TaskTodo,
		" In_Progress ": TaskInProgress,
		"REVIEW":        TaskReview,
		"done":          TaskDone,
		"completed":     TaskDone,
		"in-progress":   "",
		"":              "",
	}
	for in, want := range tests {
		if got := NormalizeTaskStatus(in); got != want {
			t.Errorf("NormalizeTaskStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNotificationTypes(t *testing.T) {
	if !NotifyTeamInvitation.IsRequest() || !NotifyTeamJoinRequest.IsRequest() {
		t.Error("team requests must be request types")
	}
	if NotifyTaskAssigned.IsRequest() {
		t.Error("task-assigned is informational")
	}
	if NotificationType("bogus").Valid() {
		t.Error("unknown type reported valid")
	}
	id := primitive.NewObjectID()
	if got, ok := TeamTarget(id).TeamID(); !ok || got != id {
		t.Error("TeamTarget must expose its team id")
	}
	if _, ok := ProjectTarget(id).TeamID(); ok {
		t.Error("project target is not a team")
	}
}
