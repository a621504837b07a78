// Package notify creates notification records for state changes and
// manages their read state.
//
// Informational notifications are best effort: Emit never fails the caller
// and duplicates are allowed. Request-style notifications (team join
// requests and invitations) are actionable and go through Request, which
// refuses a second pending request for the same team and counterpart.
package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	notificationstore "github.com/dalemusser/projecthub/internal/app/store/notifications"
	"github.com/dalemusser/projecthub/internal/app/system/apperr"
	"github.com/dalemusser/projecthub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Store is the persistence the dispatcher needs.
type Store interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Notification, error)
	ListForRecipient(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id, recipient primitive.ObjectID, at time.Time) error
	MarkAllRead(ctx context.Context, recipient primitive.ObjectID, at time.Time) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
	ExistsPending(ctx context.Context, t models.NotificationType, teamID, counterpart primitive.ObjectID) (bool, error)
}

// Publisher pushes a stored notification to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, n models.Notification) error
}

// Message describes a notification to create.
type Message struct {
	Type      models.NotificationType
	Recipient primitive.ObjectID
	Sender    *primitive.ObjectID
	Target    models.Target
	Title     string
	Message   string
	ActionURL string // defaults to the target's canonical path
	Data      map[string]any
}

type Dispatcher struct {
	store   Store
	pub     Publisher
	log     *zap.Logger
	baseURL string
	now     func() time.Time
}

type Option func(*Dispatcher)

// WithPublisher enables realtime fan-out after each insert.
func WithPublisher(p Publisher) Option {
	return func(d *Dispatcher) { d.pub = p }
}

// WithBaseURL prefixes generated action URLs.
func WithBaseURL(u string) Option {
	return func(d *Dispatcher) { d.baseURL = strings.TrimRight(u, "/") }
}

// WithClock overrides time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func New(store Store, logger *zap.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		store: store,
		log:   logger,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Emit stores an informational notification. Failures are logged and
// reported as false; they never reach the caller as errors.
func (d *Dispatcher) Emit(ctx context.Context, m Message) bool {
	log := d.log.With(
		zap.String("notification_type", string(m.Type)),
		zap.String("user_id", m.Recipient.Hex()),
	)
	if !m.Type.Valid() || m.Type.IsRequest() {
		log.Warn("refusing to emit notification of unsupported type")
		return false
	}
	if m.Recipient.IsZero() {
		log.Warn("notification has no recipient")
		return false
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), d.log, "notify.emit")
	defer cancel()

	n, err := d.store.Create(ctx, d.build(m))
	if err != nil {
		log.Error("failed to store notification", zap.Error(err))
		return false
	}
	d.publish(ctx, n)
	return true
}

// Request stores a pending request-style notification. counterpart is the
// non-team party: the requester of a join request, the invitee of an
// invitation. A matching pending request yields an apperr.ErrConflict.
func (d *Dispatcher) Request(ctx context.Context, m Message, counterpart primitive.ObjectID) (models.Notification, error) {
	if !m.Type.IsRequest() {
		return models.Notification{}, apperr.Validation("not a request notification type")
	}
	teamID, ok := m.Target.TeamID()
	if !ok || teamID.IsZero() {
		return models.Notification{}, apperr.Validation("request must target a team")
	}
	if m.Recipient.IsZero() || counterpart.IsZero() {
		return models.Notification{}, apperr.Validation("request needs a recipient and a counterpart")
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), d.log, "notify.request")
	defer cancel()

	exists, err := d.store.ExistsPending(ctx, m.Type, teamID, counterpart)
	if err != nil {
		return models.Notification{}, apperr.Downstream("check pending request", err)
	}
	if exists {
		return models.Notification{}, apperr.Conflict("a matching request is already pending")
	}

	n := d.build(m)
	n.Status = models.RequestPending
	n.Counterpart = &counterpart
	n, err = d.store.Create(ctx, n)
	if errors.Is(err, notificationstore.ErrDuplicatePending) {
		return models.Notification{}, apperr.Conflict("a matching request is already pending")
	}
	if err != nil {
		return models.Notification{}, apperr.Downstream("store request", err)
	}
	d.publish(ctx, n)
	return n, nil
}

// Get returns recipient's notification id. Notifications of other users are
// reported as not found.
func (d *Dispatcher) Get(ctx context.Context, recipient, id primitive.ObjectID) (models.Notification, error) {
	n, err := d.store.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && n.Recipient != recipient) {
		return models.Notification{}, apperr.NotFound("notification not found")
	}
	if err != nil {
		return models.Notification{}, apperr.Downstream("load notification", err)
	}
	return n, nil
}

func (d *Dispatcher) List(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error) {
	out, err := d.store.ListForRecipient(ctx, recipient, unreadOnly, limit)
	if err != nil {
		return nil, apperr.Downstream("list notifications", err)
	}
	if out == nil {
		out = []models.Notification{}
	}
	return out, nil
}

func (d *Dispatcher) UnreadCount(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	n, err := d.store.CountUnread(ctx, recipient)
	if err != nil {
		return 0, apperr.Downstream("count unread notifications", err)
	}
	return n, nil
}

// MarkRead sets isRead and readAt on one of recipient's notifications.
func (d *Dispatcher) MarkRead(ctx context.Context, recipient, id primitive.ObjectID) error {
	err := d.store.MarkRead(ctx, id, recipient, d.now())
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound("notification not found")
	}
	if err != nil {
		return apperr.Downstream("mark notification read", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of recipient read.
func (d *Dispatcher) MarkAllRead(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	n, err := d.store.MarkAllRead(ctx, recipient, d.now())
	if err != nil {
		return 0, apperr.Downstream("mark all notifications read", err)
	}
	return n, nil
}

// Dismiss deletes one of recipient's notifications.
func (d *Dispatcher) Dismiss(ctx context.Context, recipient, id primitive.ObjectID) error {
	if _, err := d.Get(ctx, recipient, id); err != nil {
		return err
	}
	return d.remove(ctx, id)
}

// Resolve deletes a request-style notification once it has been accepted
// or declined. Request records are not archived.
func (d *Dispatcher) Resolve(ctx context.Context, n models.Notification) error {
	if !n.Type.IsRequest() {
		return apperr.Validation("only requests can be accepted or declined")
	}
	return d.remove(ctx, n.ID)
}

func (d *Dispatcher) remove(ctx context.Context, id primitive.ObjectID) error {
	deleted, err := d.store.Delete(ctx, id)
	if err != nil {
		return apperr.Downstream("delete notification", err)
	}
	if deleted == 0 {
		return apperr.NotFound("notification not found")
	}
	return nil
}

func (d *Dispatcher) build(m Message) models.Notification {
	url := m.ActionURL
	if url == "" {
		url = targetPath(m.Target)
	}
	if url != "" && strings.HasPrefix(url, "/") {
		url = d.baseURL + url
	}
	return models.Notification{
		Recipient: m.Recipient,
		Sender:    m.Sender,
		Type:      m.Type,
		Title:     htmlsanitize.PlainText(m.Title),
		Message:   htmlsanitize.PlainText(m.Message),
		Target:    m.Target,
		ActionURL: url,
		Data:      m.Data,
		CreatedAt: d.now(),
	}
}

func (d *Dispatcher) publish(ctx context.Context, n models.Notification) {
	if d.pub == nil {
		return
	}
	if err := d.pub.Publish(ctx, n); err != nil {
		d.log.Warn("realtime publish failed",
			zap.String("notification_type", string(n.Type)),
			zap.String("user_id", n.Recipient.Hex()),
			zap.Error(err))
	}
}

func targetPath(t models.Target) string {
	switch t.Kind {
	case models.TargetTask:
		return "/tasks/" + t.ID.Hex()
	case models.TargetProject:
		return "/projects/" + t.ID.Hex()
	case models.TargetTeam:
		return "/teams/" + t.ID.Hex()
	}
	return ""
}
