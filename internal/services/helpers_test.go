package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	config "taskmarket.com/engagement/internal/configs"
	"taskmarket.com/engagement/internal/constants"
	"taskmarket.com/engagement/internal/events"
	model "taskmarket.com/engagement/internal/models"
	repository "taskmarket.com/engagement/internal/repositories"
)

const (
	owner   = "owner-1"
	worker1 = "worker-1"
	worker2 = "worker-2"
)

// recordingNotifier keeps every notice so tests can assert on them.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingNotifier) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) For(userID string) []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Notice
	for _, n := range r.notices {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type testEnv struct {
	store      *repository.Store
	notifier   *recordingNotifier
	hub        *events.Hub
	audit      *AuditService
	escrow     *EscrowService
	tasks      *TaskService
	bids       *BidService
	bookings   *BookingService
	checklists *ChecklistService
}

func setupTestStore(t *testing.T) *repository.Store {
	t.Helper()

	db, err := config.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return repository.NewStore(db)
}

func newTestEnv(t *testing.T, clock func() time.Time) *testEnv {
	t.Helper()

	store := setupTestStore(t)
	env := &testEnv{
		store:    store,
		notifier: &recordingNotifier{},
		hub:      events.NewHub(),
	}
	env.audit = NewAuditService(store.Audit, nil)

	deps := Dependencies{
		Store:    store,
		Notifier: env.notifier,
		Auditor:  env.audit,
		Feed:     env.hub,
		Clock:    clock,
	}
	env.escrow = NewEscrowService(store, 10)
	env.tasks = NewTaskService(deps, env.escrow)
	env.bids = NewBidService(deps, env.escrow)
	env.bookings = NewBookingService(deps, env.escrow, DefaultCancellationPolicy())
	env.checklists = NewChecklistService(deps, env.bookings)
	return env
}

func money(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func openTask(t *testing.T, env *testEnv) *model.Task {
	t.Helper()

	task, err := env.tasks.CreateTask(context.Background(), owner, TaskInput{
		Title:       "Assemble a wardrobe",
		Description: "Flat-pack wardrobe, tools provided",
		Category:    "assembly",
		Location:    "Berlin",
		PayAmount:   money(120),
		BudgetType:  constants.BudgetFixed,
	}, true)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func submitBid(t *testing.T, env *testEnv, taskID, bidder string, amount int64) *model.Bid {
	t.Helper()

	bid, err := env.bids.SubmitBid(context.Background(), taskID, bidder, BidInput{Amount: money(amount)})
	if err != nil {
		t.Fatalf("submit bid by %s: %v", bidder, err)
	}
	return bid
}

func mustTask(t *testing.T, env *testEnv, id string) *model.Task {
	t.Helper()
	task, err := env.store.Tasks.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load task: %v", err)
	}
	return task
}

func mustBooking(t *testing.T, env *testEnv, id string) *model.Booking {
	t.Helper()
	booking, err := env.store.Bookings.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load booking: %v", err)
	}
	return booking
}

func mustPayment(t *testing.T, env *testEnv, bookingID string) *model.Payment {
	t.Helper()
	payment, err := env.escrow.Payment(context.Background(), bookingID)
	if err != nil {
		t.Fatalf("load payment: %v", err)
	}
	return payment
}

func assertBalance(t *testing.T, env *testEnv, account string, want decimal.Decimal) {
	t.Helper()
	got, err := env.escrow.Balance(context.Background(), account)
	if err != nil {
		t.Fatalf("balance of %s: %v", account, err)
	}
	if !got.Equal(want) {
		t.Errorf("balance of %s: expected %s, got %s", account, want, got)
	}
}
