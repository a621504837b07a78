package bootstrap

import (
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/projecthub/internal/app/system/authutil"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/dalemusser/projecthub/internal/testutil"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestEnsureAdmin_CreatesNew(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := EnsureAdmin(ctx, db, " Admin@Test.com ", "Site Admin", "first-password", testLogger())
	if err != nil {
		t.Fatalf("EnsureAdmin failed: %v", err)
	}
	if u.ID.IsZero() {
		t.Error("expected the created user to be returned")
	}

	var user models.User
	err = db.Collection("users").FindOne(ctx, bson.M{"email": "admin@test.com"}).Decode(&user)
	if err != nil {
		t.Fatalf("failed to find created user: %v", err)
	}
	if user.Role != "admin" {
		t.Errorf("expected role 'admin', got %q", user.Role)
	}
	if !user.IsActive {
		t.Error("expected admin to be active")
	}
	if !authutil.CheckPassword("first-password", user.PasswordHash) {
		t.Error("expected the configured password to verify")
	}
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	hash, err := authutil.HashPassword("original-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	existing := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     "Existing User",
		FullNameCI:   text.Fold("Existing User"),
		Email:        "existing@test.com",
		PasswordHash: hash,
		Role:         "member",
		Teams:        []primitive.ObjectID{},
		IsActive:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := db.Collection("users").InsertOne(ctx, existing); err != nil {
		t.Fatalf("failed to create existing user: %v", err)
	}

	if _, err := EnsureAdmin(ctx, db, existing.Email, "", "another-password", testLogger()); err != nil {
		t.Fatalf("EnsureAdmin failed: %v", err)
	}

	var user models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": existing.ID}).Decode(&user); err != nil {
		t.Fatalf("failed to find user: %v", err)
	}
	if user.Role != "admin" {
		t.Errorf("expected role 'admin', got %q", user.Role)
	}
	if !user.IsActive {
		t.Error("expected promoted admin to be reactivated")
	}
	if !authutil.CheckPassword("original-password", user.PasswordHash) {
		t.Error("existing password must not be replaced")
	}
}

func TestEnsureAdmin_RejectsBadInput(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := EnsureAdmin(ctx, nil, "not-an-email", "", "", testLogger()); err == nil {
		t.Error("expected an error for an invalid email")
	}
	if _, err := EnsureAdmin(ctx, nil, "a@b.com", "", "123", testLogger()); err == nil {
		t.Error("expected an error for a too-short password")
	}
}

func TestValidateAppConfig(t *testing.T) {
	good := AppConfig{
		JWTSecret:        strings.Repeat("k", 32),
		ReminderInterval: time.Minute,
		ReminderWindow:   time.Hour,
		AuditLogAuth:     "all",
		AuditLogAdmin:    "db",
	}

	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid prod", "prod", func(*AppConfig) {}, false},
		{"short secret in prod", "prod", func(c *AppConfig) { c.JWTSecret = "short" }, true},
		{"short secret in dev", "dev", func(c *AppConfig) { c.JWTSecret = "short" }, false},
		{"zero interval", "dev", func(c *AppConfig) { c.ReminderInterval = 0 }, true},
		{"negative window", "dev", func(c *AppConfig) { c.ReminderWindow = -time.Hour }, true},
		{"unknown audit mode", "dev", func(c *AppConfig) { c.AuditLogAdmin = "verbose" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := good
			tt.mutate(&cfg)
			err := validateAppConfig(tt.env, cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewServices_WiresGraph(t *testing.T) {
	db := testutil.SetupTestDB(t)

	svc := NewServices(db, nil, "http://localhost:3000", testLogger())
	if svc.Lifecycle == nil || svc.TaskService == nil || svc.TeamService == nil || svc.TeamRequests == nil {
		t.Fatal("expected every service to be built")
	}
	if svc.Dispatcher == nil || svc.Filter == nil || svc.Index == nil {
		t.Fatal("expected dispatcher and visibility to be built")
	}
	if w := svc.DeadlineReminder(testLogger(), time.Minute, time.Hour); w == nil {
		t.Fatal("expected a reminder worker")
	}
}
