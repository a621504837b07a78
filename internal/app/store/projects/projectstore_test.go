package projectstore_test

import (
	"errors"
	"testing"
	"time"

	projectstore "github.com/dalemusser/projecthub/internal/app/store/projects"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/dalemusser/projecthub/internal/testutil"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create_StartsUnassigned(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now()
	team := primitive.NewObjectID()
	created, err := store.Create(ctx, models.Project{
		Name:       "Apollo",
		CreatedBy:  primitive.NewObjectID(),
		Team:       &team,
		AssignedAt: &now,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.State() != models.StateUnassigned || created.Team != nil {
		t.Errorf("expected unassigned project, got state %q team %v", created.State(), created.Team)
	}
	if created.Status != models.ProjectPlanning {
		t.Errorf("Status: got %q, want planning", created.Status)
	}
}

func TestStore_LifecycleTimestamps(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fixtures.CreateProject(ctx, "Hermes", primitive.NewObjectID())
	teamA := primitive.NewObjectID()
	teamB := primitive.NewObjectID()
	t0 := time.Now().UTC().Truncate(time.Millisecond)

	if err := store.Assign(ctx, p.ID, teamA, t0); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	got, _ := store.GetByID(ctx, p.ID)
	if got.State() != models.StatePending || (got.Team == nil || *got.Team != teamA) {
		t.Fatalf("after Assign: state %q team %v", got.State(), got.Team)
	}

	if err := store.Accept(ctx, p.ID, t0.Add(time.Second)); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	got, _ = store.GetByID(ctx, p.ID)
	if got.State() != models.StateAccepted || !got.IsAssigned || got.RejectedAt != nil {
		t.Fatalf("after Accept: %+v", got)
	}

	if err := store.Reject(ctx, p.ID, t0.Add(2*time.Second)); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	got, _ = store.GetByID(ctx, p.ID)
	if got.State() != models.StateRejected || got.IsAssigned || got.AcceptedAt != nil {
		t.Fatalf("after Reject: %+v", got)
	}

	if err := store.Assign(ctx, p.ID, teamB, t0.Add(3*time.Second)); err != nil {
		t.Fatalf("reassign failed: %v", err)
	}
	got, _ = store.GetByID(ctx, p.ID)
	if got.State() != models.StatePending || (got.Team == nil || *got.Team != teamB) || got.RejectedAt != nil || got.AcceptedAt != nil {
		t.Fatalf("after reassign: %+v", got)
	}

	if err := store.Accept(ctx, primitive.NewObjectID(), t0); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("Accept on missing project: got %v", err)
	}
}

func TestStore_List_ByTeams(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := primitive.NewObjectID()
	teamA := primitive.NewObjectID()
	a := fixtures.CreateProject(ctx, "A", admin)
	fixtures.CreateProject(ctx, "B", admin)
	if err := store.Assign(ctx, a.ID, teamA, time.Now()); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	all, err := store.List(ctx, projectstore.ListFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List(all): got %d, want 2", len(all))
	}

	scoped, err := store.List(ctx, projectstore.ListFilter{Teams: []primitive.ObjectID{teamA}})
	if err != nil {
		t.Fatalf("List(scoped) failed: %v", err)
	}
	if len(scoped) != 1 || scoped[0].ID != a.ID {
		t.Errorf("List(scoped): got %v", scoped)
	}

	if err := store.SoftDelete(ctx, a.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	active, _ := store.List(ctx, projectstore.ListFilter{})
	if len(active) != 1 {
		t.Errorf("List after SoftDelete: got %d, want 1", len(active))
	}
}

func TestStore_UpdateAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fixtures.CreateProject(ctx, "Old", primitive.NewObjectID())
	name := "New Name"
	status := models.ProjectInProgress
	if err := store.Update(ctx, p.ID, projectstore.Patch{Name: &name, Status: &status}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ := store.GetByID(ctx, p.ID)
	if got.Name != name || got.Status != status || got.NameCI != text.Fold(name) {
		t.Errorf("after Update: %+v", got)
	}

	n, err := store.Delete(ctx, p.ID)
	if err != nil || n != 1 {
		t.Fatalf("Delete: n=%d err=%v", n, err)
	}
	if _, err := store.GetByID(ctx, p.ID); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("GetByID after Delete: got %v", err)
	}
}

func TestStore_ListDueForReminder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	soon := now.Add(12 * time.Hour)
	p := fixtures.CreateProject(ctx, "Due", primitive.NewObjectID())
	if err := store.Assign(ctx, p.ID, primitive.NewObjectID(), now); err != nil {
		t.Fatal(err)
	}
	if err := store.Accept(ctx, p.ID, now); err != nil {
		t.Fatal(err)
	}
	if err := store.Update(ctx, p.ID, projectstore.Patch{Deadline: &soon}); err != nil {
		t.Fatal(err)
	}

	due, err := store.ListDueForReminder(ctx, now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ListDueForReminder failed: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due project, got %d", len(due))
	}
	if err := store.MarkReminded(ctx, p.ID, now); err != nil {
		t.Fatalf("MarkReminded failed: %v", err)
	}
	due, _ = store.ListDueForReminder(ctx, now, now.Add(24*time.Hour))
	if len(due) != 0 {
		t.Errorf("expected reminded project to be skipped, got %d", len(due))
	}
}
