package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"taskmarket.com/engagement/internal/events"
	model "taskmarket.com/engagement/internal/models"
	"taskmarket.com/engagement/internal/queue"
	repository "taskmarket.com/engagement/internal/repositories"
)

// DeliveryChannel pushes a stored notification to the user.
type DeliveryChannel interface {
	Deliver(ctx context.Context, n *model.Notification) error
}

// FeedDelivery announces notifications on the user's change-feed topic.
type FeedDelivery struct {
	Feed events.Publisher
}

func (f FeedDelivery) Deliver(ctx context.Context, n *model.Notification) error {
	f.Feed.Publish(ctx, events.Change{
		Topic:    events.UserTopic(n.UserID),
		Entity:   "notification",
		EntityID: n.ID,
		Action:   events.ActionInsert,
		At:       time.Now().UTC(),
	})
	return nil
}

type NotificationConfig struct {
	Workers      int
	QueueSize    int
	MaxAttempts  int
	RequeueEvery time.Duration
}

// NotificationService stores in-app notifications and delivers them through
// a bounded worker pool. Notify never fails the caller: rows that could not
// be queued stay pending and are picked up by the requeue loop.
type NotificationService struct {
	queue       chan string
	wg          sync.WaitGroup
	requeueWG   sync.WaitGroup
	enqueued    sync.Map
	repo        *repository.NotificationRepository
	tokens      queue.TokenManager
	channels    []DeliveryChannel
	maxAttempts int
	requeueStop chan struct{}
	log         *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func NewNotificationService(
	repo *repository.NotificationRepository,
	tokens queue.TokenManager,
	cfg NotificationConfig,
	log *slog.Logger,
	channels ...DeliveryChannel,
) *NotificationService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	n := &NotificationService{
		queue:       make(chan string, cfg.QueueSize),
		repo:        repo,
		tokens:      tokens,
		channels:    channels,
		maxAttempts: cfg.MaxAttempts,
		requeueStop: make(chan struct{}),
		log:         log,
	}

	if cfg.RequeueEvery > 0 {
		n.requeueWG.Add(1)
		go n.requeuePendingLoop(cfg.RequeueEvery)
	}

	for i := 1; i <= cfg.Workers; i++ {
		n.wg.Add(1)
		go n.worker(i)
	}

	return n
}

// Notify stores the notification and queues it for delivery.
func (n *NotificationService) Notify(ctx context.Context, notice Notice) {
	row := &model.Notification{
		UserID:   notice.UserID,
		Title:    notice.Title,
		Message:  notice.Message,
		Category: notice.Category,
		DeepLink: notice.DeepLink,
	}
	if err := n.repo.Create(ctx, row); err != nil {
		n.log.Error("notification not stored", "user_id", notice.UserID, "title", notice.Title, "error", err)
		return
	}

	if ok, full := n.enqueueIfNotPresent(ctx, row.ID); !ok && full {
		n.log.Warn("notification queue full, delivery deferred", "notification_id", row.ID)
	}
}

func (n *NotificationService) worker(workerID int) {
	defer n.wg.Done()

	n.log.Debug("notification worker started", "worker", workerID)

	for id := range n.queue {
		n.handle(workerID, id)
	}

	n.log.Debug("notification worker stopped", "worker", workerID)
}

func (n *NotificationService) handle(workerID int, id string) {
	ctx := context.Background()
	defer n.releaseToken(ctx, workerID)
	defer n.untrackEnqueued(id)

	row, err := n.repo.FindByID(ctx, id)
	if err != nil {
		n.log.Warn("notification vanished before delivery", "worker", workerID, "notification_id", id, "error", err)
		return
	}

	for _, ch := range n.channels {
		if err := ch.Deliver(ctx, row); err != nil {
			n.log.Warn("notification delivery failed", "worker", workerID, "notification_id", id, "error", err)
			if err := n.repo.MarkAttemptFailed(ctx, id, n.maxAttempts); err != nil {
				n.log.Error("notification attempt not recorded", "notification_id", id, "error", err)
			}
			return
		}
	}

	if err := n.repo.MarkDelivered(ctx, id); err != nil {
		n.log.Error("notification not marked delivered", "notification_id", id, "error", err)
	}
}

func (n *NotificationService) releaseToken(ctx context.Context, workerID int) {
	if err := n.tokens.ReleaseToken(ctx); err != nil {
		n.log.Warn("failed to release notification queue token", "worker", workerID, "error", err)
	}
}

func (n *NotificationService) requeuePendingLoop(every time.Duration) {
	defer n.requeueWG.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n.RequeuePending(context.Background())
		case <-n.requeueStop:
			return
		}
	}
}

// RequeuePending queues undelivered notifications until the queue is full
// and returns how many were queued.
func (n *NotificationService) RequeuePending(ctx context.Context) int {
	rows, err := n.repo.ListUndelivered(ctx, n.maxAttempts, cap(n.queue)+1)
	if err != nil {
		n.log.Error("requeue: failed to list pending notifications", "error", err)
		return 0
	}

	queued := 0
	for _, row := range rows {
		ok, full := n.enqueueIfNotPresent(ctx, row.ID)
		if full {
			break
		}
		if ok {
			queued++
		}
	}
	return queued
}

// enqueueIfNotPresent reports whether id was queued and whether it was
// refused because the queue is full.
func (n *NotificationService) enqueueIfNotPresent(ctx context.Context, id string) (bool, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return false, false
	}

	if !n.trackEnqueued(id) {
		return false, false
	}

	if err := n.tokens.AcquireToken(ctx); err != nil {
		n.untrackEnqueued(id)
		if !errors.Is(err, queue.ErrNoTokenAvailable) {
			n.log.Warn("notification queue token unavailable", "error", err)
		}
		return false, true
	}

	select {
	case n.queue <- id:
		return true, false
	default:
		n.untrackEnqueued(id)
		_ = n.tokens.ReleaseToken(ctx)
		return false, true
	}
}

func (n *NotificationService) trackEnqueued(id string) bool {
	_, loaded := n.enqueued.LoadOrStore(id, struct{}{})
	return !loaded
}

func (n *NotificationService) untrackEnqueued(id string) {
	n.enqueued.Delete(id)
}

func (n *NotificationService) ListForUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	return n.repo.ListForUser(ctx, userID, limit)
}

func (n *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	return conflict(n.repo.MarkRead(ctx, id, userID), "notification is already read")
}

// Shutdown stops the requeue loop, lets workers drain the queue and waits
// until they finish or ctx expires.
func (n *NotificationService) Shutdown(ctx context.Context) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.requeueStop)
	close(n.queue)
	n.mu.Unlock()

	n.requeueWG.Wait()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		n.log.Info("notification workers shut down cleanly")
	case <-ctx.Done():
		n.log.Warn("notification worker shutdown timed out")
	}
}
