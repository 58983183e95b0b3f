package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"taskmarket.com/engagement/internal/constants"
	apperrors "taskmarket.com/engagement/internal/errors"
	"taskmarket.com/engagement/internal/events"
	repository "taskmarket.com/engagement/internal/repositories"
)

// Notice is a user-facing alert produced by a state transition.
type Notice struct {
	UserID   string
	Title    string
	Message  string
	Category constants.NotificationCategory
	DeepLink string
}

// Notifier delivers notices. Delivery is best effort: implementations log
// their own failures and never report them to the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// AuditRecord is one entry of a booking's audit trail.
type AuditRecord struct {
	BookingID     string
	TaskID        string
	UserID        string
	EventType     constants.AuditEventType
	EventCategory constants.AuditCategory
	Payload       map[string]any
}

// Auditor records audit entries. Failures are logged and swallowed.
type Auditor interface {
	Record(ctx context.Context, rec AuditRecord)
}

// Dependencies are the collaborators shared by the lifecycle services.
type Dependencies struct {
	Store    *repository.Store
	Notifier Notifier
	Auditor  Auditor
	Feed     events.Publisher
	Logger   *slog.Logger
	Clock    func() time.Time
}

type base struct {
	store    *repository.Store
	notifier Notifier
	auditor  Auditor
	feed     events.Publisher
	log      *slog.Logger
	clock    func() time.Time
}

func newBase(d Dependencies) base {
	b := base{
		store:    d.Store,
		notifier: d.Notifier,
		auditor:  d.Auditor,
		feed:     d.Feed,
		log:      d.Logger,
		clock:    d.Clock,
	}
	if b.notifier == nil {
		b.notifier = nopNotifier{}
	}
	if b.auditor == nil {
		b.auditor = nopAuditor{}
	}
	if b.feed == nil {
		b.feed = events.Fanout{}
	}
	if b.log == nil {
		b.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if b.clock == nil {
		b.clock = time.Now
	}
	return b
}

func (b *base) now() time.Time {
	return b.clock().UTC()
}

// outbox collects the side effects of a transaction. They are flushed only
// after the transaction commits and never affect its outcome.
type outbox struct {
	notices []Notice
	audits  []AuditRecord
	changes []events.Change
}

func (o *outbox) notify(n Notice) {
	o.notices = append(o.notices, n)
}

func (o *outbox) audit(rec AuditRecord) {
	o.audits = append(o.audits, rec)
}

func (o *outbox) changed(topic, entity, id, action, status string) {
	o.changes = append(o.changes, events.Change{
		Topic:    topic,
		Entity:   entity,
		EntityID: id,
		Action:   action,
		Status:   status,
	})
}

func (b *base) flush(ctx context.Context, o *outbox) {
	for _, rec := range o.audits {
		b.auditor.Record(ctx, rec)
	}
	for _, n := range o.notices {
		b.notifier.Notify(ctx, n)
	}
	now := b.now()
	for _, c := range o.changes {
		c.At = now
		b.feed.Publish(ctx, c)
	}
}

// conflict turns a lost conditional write into an InvalidStateTransition
// carrying msg. Other errors pass through.
func conflict(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrOptimisticLock) {
		return apperrors.ErrInvalidStateTransition.With(format, args...)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}

func taskLink(taskID string) string {
	return "/tasks/" + taskID
}

func bookingLink(bookingID string) string {
	return "/bookings/" + bookingID
}

func chatLink(bookingID string) string {
	return "/bookings/" + bookingID + "/chat"
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notice) {}

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, AuditRecord) {}
