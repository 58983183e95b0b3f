package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	config "taskmarket.com/engagement/internal/configs"
	"taskmarket.com/engagement/internal/constants"
	apperrors "taskmarket.com/engagement/internal/errors"
	model "taskmarket.com/engagement/internal/models"
)

func setupTestStore(t *testing.T) *Store {
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
	return NewStore(db)
}

func newTask(t *testing.T, s *Store) *model.Task {
	t.Helper()

	task := &model.Task{
		OwnerID:    "owner",
		Title:      "Move a sofa",
		PayAmount:  decimal.NewFromInt(40),
		BudgetType: constants.BudgetFixed,
		Status:     constants.TaskStatusOpen,
	}
	if err := s.Tasks.Create(context.Background(), task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func TestTaskRepository_StaleVersionIsRejected(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	task := newTask(t, s)

	stale := *task
	task.Title = "Move a sofa upstairs"
	if err := s.Tasks.Update(ctx, task); err != nil {
		t.Fatalf("update: %v", err)
	}

	stale.Title = "Move two sofas"
	if err := s.Tasks.Update(ctx, &stale); !errors.Is(err, ErrOptimisticLock) {
		t.Errorf("expected ErrOptimisticLock, got %v", err)
	}
}

func TestTaskRepository_TransitionStatusIsConditional(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	task := newTask(t, s)

	open := []constants.TaskStatus{constants.TaskStatusOpen}
	if err := s.Tasks.TransitionStatus(ctx, task.ID, open, constants.TaskStatusInProgress); err != nil {
		t.Fatalf("first transition: %v", err)
	}
	if err := s.Tasks.TransitionStatus(ctx, task.ID, open, constants.TaskStatusInProgress); !errors.Is(err, ErrOptimisticLock) {
		t.Errorf("expected the second transition to lose, got %v", err)
	}
}

func TestStore_TransactionRollsBack(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	var id string
	err := s.Transaction(ctx, func(tx *Store) error {
		task := newTask(t, tx)
		id = task.ID
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := s.Tasks.FindByID(ctx, id); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected rolled back task to be missing, got %v", err)
	}
}

func TestBidRepository_DuplicateBid(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	task := newTask(t, s)

	bid := func() *model.Bid {
		return &model.Bid{TaskID: task.ID, BidderID: "w1", Amount: decimal.NewFromInt(30)}
	}
	if err := s.Bids.Create(ctx, bid()); err != nil {
		t.Fatalf("first bid: %v", err)
	}
	if err := s.Bids.Create(ctx, bid()); !errors.Is(err, apperrors.ErrDuplicateBid) {
		t.Errorf("expected ErrDuplicateBid, got %v", err)
	}
}

func TestPaymentRepository_Balance(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, amount := range []int64{-100, 45, 5} {
		err := s.Payments.AppendEntry(ctx, &model.LedgerEntry{
			AccountID: "owner",
			BookingID: "b1",
			EntryType: constants.LedgerRefund,
			Amount:    decimal.NewFromInt(amount),
		})
		if err != nil {
			t.Fatalf("append entry: %v", err)
		}
	}

	balance, err := s.Payments.Balance(ctx, "owner")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(-50)) {
		t.Errorf("expected -50, got %s", balance)
	}
}
