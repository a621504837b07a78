// Package notifytest provides an in-memory notify.Store for tests.
package notifytest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	notificationstore "github.com/dalemusser/projecthub/internal/app/store/notifications"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MemStore keeps notifications in memory and enforces the same pending
// request uniqueness as the notifications index. Set Fail to make every
// call return that error.
type MemStore struct {
	mu    sync.Mutex
	items []models.Notification
	Fail  error
}

func NewMemStore() *MemStore { return &MemStore{} }

// All returns a copy of every stored notification in insertion order.
func (s *MemStore) All() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.items...)
}

// For returns the notifications of recipient with type t.
func (s *MemStore) For(recipient primitive.ObjectID, t models.NotificationType) []models.Notification {
	var out []models.Notification
	for _, n := range s.All() {
		if n.Recipient == recipient && n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

func (s *MemStore) Create(_ context.Context, n models.Notification) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return models.Notification{}, s.Fail
	}
	if n.Status == models.RequestPending && n.Counterpart != nil {
		for _, ex := range s.items {
			if ex.Status == models.RequestPending && ex.Type == n.Type &&
				ex.Target.ID == n.Target.ID && ex.Counterpart != nil && *ex.Counterpart == *n.Counterpart {
				return models.Notification{}, notificationstore.ErrDuplicatePending
			}
		}
	}
	n.ID = primitive.NewObjectID()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	s.items = append(s.items, n)
	return n, nil
}

func (s *MemStore) GetByID(_ context.Context, id primitive.ObjectID) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return models.Notification{}, s.Fail
	}
	for _, n := range s.items {
		if n.ID == id {
			return n, nil
		}
	}
	return models.Notification{}, mongo.ErrNoDocuments
}

func (s *MemStore) ListForRecipient(_ context.Context, recipient primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return nil, s.Fail
	}
	var out []models.Notification
	for i := len(s.items) - 1; i >= 0; i-- {
		n := s.items[i]
		if n.Recipient != recipient || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) CountUnread(_ context.Context, recipient primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return 0, s.Fail
	}
	var n int64
	for _, it := range s.items {
		if it.Recipient == recipient && !it.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) MarkRead(_ context.Context, id, recipient primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].Recipient == recipient {
			s.items[i].IsRead = true
			s.items[i].ReadAt = &at
			return nil
		}
	}
	return mongo.ErrNoDocuments
}

func (s *MemStore) MarkAllRead(_ context.Context, recipient primitive.ObjectID, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return 0, s.Fail
	}
	var changed int64
	for i := range s.items {
		if s.items[i].Recipient == recipient && !s.items[i].IsRead {
			s.items[i].IsRead = true
			s.items[i].ReadAt = &at
			changed++
		}
	}
	return changed, nil
}

func (s *MemStore) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return 0, s.Fail
	}
	for i, n := range s.items {
		if n.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *MemStore) ExistsPending(_ context.Context, t models.NotificationType, teamID, counterpart primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return false, s.Fail
	}
	for _, n := range s.items {
		if n.Type == t && n.Status == models.RequestPending && n.Target.Kind == models.TargetTeam &&
			n.Target.ID == teamID && n.Counterpart != nil && *n.Counterpart == counterpart {
			return true, nil
		}
	}
	return false, nil
}

// ErrInjected is a convenience error for failure tests.
var ErrInjected = errors.New("injected store failure")
