package taskstore_test

import (
	"testing"
	"time"

	taskstore "github.com/dalemusser/projecthub/internal/app/store/tasks"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/dalemusser/projecthub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CountByProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := primitive.NewObjectID()
	p := fixtures.CreateProject(ctx, "P", admin)
	for i, st := range []string{models.TaskDone, models.TaskDone, models.TaskDone, models.TaskTodo} {
		fixtures.CreateTask(ctx, "t"+string(rune('a'+i)), p.ID, admin, nil, st)
	}
	fixtures.CreateTask(ctx, "elsewhere", primitive.NewObjectID(), admin, nil, models.TaskDone)

	total, done, err := store.CountByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("CountByProject failed: %v", err)
	}
	if total != 4 || done != 3 {
		t.Fatalf("CountByProject: got %d/%d, want 4/3", total, done)
	}
	if got := models.ProjectProgress(total, done); got != 75 {
		t.Errorf("ProjectProgress: got %d, want 75", got)
	}
}

func TestStore_UpdateStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	task, err := store.Create(ctx, models.Task{Title: "Write docs", Project: primitive.NewObjectID(), CreatedBy: primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.Status != models.TaskTodo {
		t.Errorf("default Status: got %q", task.Status)
	}

	if err := store.UpdateStatus(ctx, task.ID, models.TaskDone); err != nil {
		t.Fatalf("UpdateStatus(done) failed: %v", err)
	}
	got, _ := store.GetByID(ctx, task.ID)
	if got.CompletedAt == nil || got.Progress != 100 {
		t.Errorf("after done: completed_at=%v progress=%d", got.CompletedAt, got.Progress)
	}

	if err := store.UpdateStatus(ctx, task.ID, models.TaskReview); err != nil {
		t.Fatalf("UpdateStatus(review) failed: %v", err)
	}
	got, _ = store.GetByID(ctx, task.ID)
	if got.CompletedAt != nil {
		t.Error("expected completed_at cleared after leaving done")
	}
}

func TestStore_UpdateAssignee(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	task, err := store.Create(ctx, models.Task{Title: "T", Project: primitive.NewObjectID()})
	if err != nil {
		t.Fatal(err)
	}
	uid := primitive.NewObjectID()
	if err := store.UpdateAssignee(ctx, task.ID, &uid); err != nil {
		t.Fatalf("UpdateAssignee failed: %v", err)
	}
	got, _ := store.GetByID(ctx, task.ID)
	if got.AssignedTo == nil || *got.AssignedTo != uid {
		t.Fatalf("AssignedTo: got %v", got.AssignedTo)
	}
	if err := store.UpdateAssignee(ctx, task.ID, nil); err != nil {
		t.Fatalf("UpdateAssignee(nil) failed: %v", err)
	}
	got, _ = store.GetByID(ctx, task.ID)
	if got.AssignedTo != nil {
		t.Errorf("expected unassigned task, got %v", got.AssignedTo)
	}
}

func TestStore_DeleteByProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := primitive.NewObjectID()
	p := fixtures.CreateProject(ctx, "P", admin)
	fixtures.CreateTask(ctx, "a", p.ID, admin, nil, "")
	fixtures.CreateTask(ctx, "b", p.ID, admin, nil, "")
	keep := fixtures.CreateTask(ctx, "c", primitive.NewObjectID(), admin, nil, "")

	n, err := store.DeleteByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("DeleteByProject failed: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	if _, err := store.GetByID(ctx, keep.ID); err != nil {
		t.Errorf("unrelated task removed: %v", err)
	}
}

func TestStore_ListDueForReminder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	due := now.Add(time.Hour)
	uid := primitive.NewObjectID()
	assigned, _ := store.Create(ctx, models.Task{Title: "due", Project: primitive.NewObjectID(), AssignedTo: &uid, DueDate: &due})
	_, _ = store.Create(ctx, models.Task{Title: "nobody", Project: primitive.NewObjectID(), DueDate: &due})

	got, err := store.ListDueForReminder(ctx, now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ListDueForReminder failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != assigned.ID {
		t.Fatalf("ListDueForReminder: got %v", got)
	}
	if err := store.MarkReminded(ctx, assigned.ID, now); err != nil {
		t.Fatal(err)
	}
	got, _ = store.ListDueForReminder(ctx, now, now.Add(24*time.Hour))
	if len(got) != 0 {
		t.Errorf("expected no tasks after MarkReminded, got %d", len(got))
	}
}
