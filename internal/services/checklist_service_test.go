package services

import (
	"context"
	"errors"
	"testing"

	"taskmarket.com/engagement/internal/constants"
	apperrors "taskmarket.com/engagement/internal/errors"
	model "taskmarket.com/engagement/internal/models"
)

// engaged returns a task with the given checklist and an accepted booking
// for worker1 at 100.
func engaged(t *testing.T, env *testEnv, items ...ItemInput) (*model.Task, string, []*model.ChecklistItem) {
	t.Helper()
	ctx := context.Background()

	task := openTask(t, env)
	defined := make([]*model.ChecklistItem, 0, len(items))
	for _, in := range items {
		item, err := env.checklists.DefineItem(ctx, task.ID, owner, in)
		if err != nil {
			t.Fatalf("define item %q: %v", in.Title, err)
		}
		defined = append(defined, item)
	}

	bid := submitBid(t, env, task.ID, worker1, 100)
	bookingID, err := env.bids.AcceptBid(ctx, task.ID, bid.ID, owner)
	if err != nil {
		t.Fatalf("accept bid: %v", err)
	}
	return task, bookingID, defined
}

func TestChecklistService_PhotoRejectRetryApprove(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	task, bookingID, items := engaged(t, env,
		ItemInput{Title: "Photo of finished wardrobe", RequiresPhoto: true, RequiresApproval: true},
		ItemInput{Title: "Remove packaging"},
	)
	photoItem, plainItem := items[0], items[1]

	if photoItem.DisplayOrder != 0 || plainItem.DisplayOrder != 1 {
		t.Errorf("expected display order 0 and 1, got %d and %d", photoItem.DisplayOrder, plainItem.DisplayOrder)
	}

	if _, err := env.checklists.CompleteItem(ctx, photoItem.ID, bookingID, worker1, "  "); !errors.Is(err, apperrors.ErrPhotoRequired) {
		t.Fatalf("expected ErrPhotoRequired, got %v", err)
	}
	if _, err := env.checklists.CompleteItem(ctx, plainItem.ID, bookingID, worker2, ""); !errors.Is(err, apperrors.ErrAuthorization) {
		t.Fatalf("expected only the worker to complete items, got %v", err)
	}

	plain, err := env.checklists.CompleteItem(ctx, plainItem.ID, bookingID, worker1, "")
	if err != nil {
		t.Fatalf("complete plain item: %v", err)
	}
	if plain.Status != constants.CompletionApproved {
		t.Errorf("expected item without approval to be approved at once, got %s", plain.Status)
	}
	if got := mustBooking(t, env, bookingID).Status; got != constants.BookingStatusAccepted {
		t.Fatalf("booking must wait for the remaining item, got %s", got)
	}

	first, err := env.checklists.CompleteItem(ctx, photoItem.ID, bookingID, worker1, "https://cdn.example.com/p/1.jpg")
	if err != nil {
		t.Fatalf("complete photo item: %v", err)
	}
	if first.Status != constants.CompletionPending {
		t.Errorf("expected pending completion, got %s", first.Status)
	}

	if _, err := env.checklists.CompleteItem(ctx, photoItem.ID, bookingID, worker1, "https://cdn.example.com/p/2.jpg"); !errors.Is(err, apperrors.ErrInvalidStateTransition) {
		t.Errorf("expected a second completion to be refused, got %v", err)
	}

	if _, err := env.checklists.RejectItem(ctx, first.ID, owner, ""); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected a rejection reason to be required, got %v", err)
	}
	rejected, err := env.checklists.RejectItem(ctx, first.ID, owner, "door is crooked")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != constants.CompletionRejected || rejected.RejectionReason != "door is crooked" {
		t.Errorf("unexpected rejected completion %+v", rejected)
	}

	progress, err := env.checklists.Progress(ctx, bookingID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.Total != 2 || progress.Approved != 1 || progress.Rejected != 1 || progress.Complete {
		t.Errorf("unexpected progress %+v", progress)
	}

	if err := env.checklists.RetryItem(ctx, first.ID, worker1); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if _, err := env.store.Checklists.FindCompletion(ctx, first.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected rejected completion to be deleted, got %v", err)
	}

	second, err := env.checklists.CompleteItem(ctx, photoItem.ID, bookingID, worker1, "https://cdn.example.com/p/3.jpg")
	if err != nil {
		t.Fatalf("complete after retry: %v", err)
	}
	if _, err := env.checklists.ApproveItem(ctx, second.ID, worker1); !errors.Is(err, apperrors.ErrAuthorization) {
		t.Errorf("expected only the owner to approve, got %v", err)
	}
	approved, err := env.checklists.ApproveItem(ctx, second.ID, owner)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != constants.CompletionApproved || approved.ReviewedBy != owner {
		t.Errorf("unexpected approved completion %+v", approved)
	}

	if got := mustBooking(t, env, bookingID).Status; got != constants.BookingStatusCompleted {
		t.Errorf("expected booking completed after final approval, got %s", got)
	}
	if got := mustTask(t, env, task.ID).Status; got != constants.TaskStatusCompleted {
		t.Errorf("expected task completed, got %s", got)
	}
	assertBalance(t, env, worker1, money(90))
	assertBalance(t, env, constants.PlatformAccount, money(10))

	if _, err := env.checklists.ApproveItem(ctx, second.ID, owner); !errors.Is(err, apperrors.ErrInvalidStateTransition) {
		t.Errorf("expected review of a closed checklist to fail, got %v", err)
	}
}

func TestChecklistService_RetryOnlyRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, bookingID, items := engaged(t, env, ItemInput{Title: "Sweep floor", RequiresApproval: true})

	c, err := env.checklists.CompleteItem(ctx, items[0].ID, bookingID, worker1, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := env.checklists.RetryItem(ctx, c.ID, worker1); !errors.Is(err, apperrors.ErrInvalidStateTransition) {
		t.Errorf("expected retry of a pending completion to fail, got %v", err)
	}
	if err := env.checklists.RetryItem(ctx, c.ID, worker2); !errors.Is(err, apperrors.ErrAuthorization) {
		t.Errorf("expected retry by another worker to fail, got %v", err)
	}
}

func TestChecklistService_ItemsLockedOnceCompleted(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, bookingID, items := engaged(t, env,
		ItemInput{Title: "Mount shelf", RequiresApproval: true},
		ItemInput{Title: "Tidy up", RequiresApproval: true},
	)
	locked, free := items[0], items[1]

	if _, err := env.checklists.CompleteItem(ctx, locked.ID, bookingID, worker1, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := env.checklists.UpdateItem(ctx, locked.ID, owner, ItemInput{Title: "Mount two shelves"}); !errors.Is(err, apperrors.ErrItemHasCompletion) {
		t.Errorf("expected ErrItemHasCompletion on update, got %v", err)
	}
	if err := env.checklists.DeleteItem(ctx, locked.ID, owner); !errors.Is(err, apperrors.ErrItemHasCompletion) {
		t.Errorf("expected ErrItemHasCompletion on delete, got %v", err)
	}

	order := 5
	updated, err := env.checklists.UpdateItem(ctx, free.ID, owner, ItemInput{Title: "Tidy up properly", DisplayOrder: &order})
	if err != nil {
		t.Fatalf("update free item: %v", err)
	}
	if updated.Title != "Tidy up properly" || updated.DisplayOrder != 5 {
		t.Errorf("unexpected updated item %+v", updated)
	}

	if err := env.checklists.DeleteItem(ctx, free.ID, worker1); !errors.Is(err, apperrors.ErrAuthorization) {
		t.Errorf("expected only the owner to delete items, got %v", err)
	}
	if err := env.checklists.DeleteItem(ctx, free.ID, owner); err != nil {
		t.Fatalf("delete free item: %v", err)
	}

	list, err := env.checklists.ListItems(ctx, locked.TaskID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(list) != 1 || list[0].ID != locked.ID {
		t.Errorf("expected only the locked item to remain, got %+v", list)
	}
}

func TestChecklistService_CompletionNeedsAcceptedBooking(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	task := openTask(t, env)
	item, err := env.checklists.DefineItem(ctx, task.ID, owner, ItemInput{Title: "Water plants"})
	if err != nil {
		t.Fatalf("define item: %v", err)
	}
	booking := hire(t, env, task.ID, worker1, 40, nil)

	if _, err := env.checklists.CompleteItem(ctx, item.ID, booking.ID, worker1, ""); !errors.Is(err, apperrors.ErrInvalidStateTransition) {
		t.Errorf("expected pending booking to refuse completions, got %v", err)
	}

	other := openTask(t, env)
	foreign, err := env.checklists.DefineItem(ctx, other.ID, owner, ItemInput{Title: "Feed cat"})
	if err != nil {
		t.Fatalf("define foreign item: %v", err)
	}
	if _, err := env.checklists.CompleteItem(ctx, foreign.ID, booking.ID, worker1, ""); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected item of another task to be refused, got %v", err)
	}
}

func TestChecklistService_AutoApprovedLastItemCompletesBooking(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, bookingID, items := engaged(t, env, ItemInput{Title: "Lock the door"})

	if _, err := env.checklists.CompleteItem(ctx, items[0].ID, bookingID, worker1, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := mustBooking(t, env, bookingID).Status; got != constants.BookingStatusCompleted {
		t.Errorf("expected booking completed, got %s", got)
	}
}

func TestChecklistService_DeletingLastOpenItemCompletesBooking(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, bookingID, items := engaged(t, env,
		ItemInput{Title: "Paint wall", RequiresApproval: true},
		ItemInput{Title: "Paint ceiling", RequiresApproval: true},
	)

	completion, err := env.checklists.CompleteItem(ctx, items[0].ID, bookingID, worker1, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := env.checklists.ApproveItem(ctx, completion.ID, owner); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := mustBooking(t, env, bookingID).Status; got != constants.BookingStatusAccepted {
		t.Fatalf("expected booking still accepted, got %s", got)
	}

	if err := env.checklists.DeleteItem(ctx, items[1].ID, owner); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := mustBooking(t, env, bookingID).Status; got != constants.BookingStatusCompleted {
		t.Errorf("expected booking completed once the open item was removed, got %s", got)
	}
	assertBalance(t, env, worker1, money(90))
}
