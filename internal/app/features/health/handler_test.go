package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/projecthub/internal/app/features/health"
	"github.com/dalemusser/projecthub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type pingFunc func(ctx context.Context, rp *readpref.ReadPref) error

func (f pingFunc) Ping(ctx context.Context, rp *readpref.ReadPref) error { return f(ctx, rp) }

func serve(t *testing.T, h *health.Handler) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest("GET", "/health", nil))
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return rec, body
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rec, body := serve(t, health.NewHandler(db.Client(), nil, zap.NewNop()))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}
	if body["status"] != "ok" || body["database"] != "connected" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestServe_DatabaseDown(t *testing.T) {
	down := pingFunc(func(context.Context, *readpref.ReadPref) error { return errors.New("no reachable servers") })
	rec, body := serve(t, health.NewHandler(down, nil, zap.NewNop()))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	if body["database"] != "disconnected" {
		t.Errorf("expected database disconnected, got %q", body["database"])
	}
}

func TestServe_RedisDownIsDegraded(t *testing.T) {
	up := pingFunc(func(context.Context, *readpref.ReadPref) error { return nil })
	redisDown := func(context.Context) error { return errors.New("connection refused") }
	rec, body := serve(t, health.NewHandler(up, redisDown, zap.NewNop()))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if body["status"] != "degraded" || body["realtime"] != "disconnected" {
		t.Errorf("unexpected body %v", body)
	}
}
