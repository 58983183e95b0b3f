package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskmarket.com/engagement/internal/constants"
	apperrors "taskmarket.com/engagement/internal/errors"
	model "taskmarket.com/engagement/internal/models"
)

func hire(t *testing.T, env *testEnv, taskID, workerID string, amount int64, scheduledAt *time.Time) *model.Booking {
	t.Helper()

	booking, err := env.bookings.CreateHireRequest(context.Background(), owner, HireInput{
		TaskID:      taskID,
		WorkerID:    workerID,
		Amount:      money(amount),
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		t.Fatalf("hire %s: %v", workerID, err)
	}
	return booking
}

func TestBookingService_DeclineRefundsAndKeepsTaskOpen(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	task := openTask(t, env)
	booking := hire(t, env, task.ID, worker1, 150, nil)

	if booking.Status != constants.BookingStatusPending || booking.WorkerDecision != constants.DecisionPending {
		t.Fatalf("expected pending hire, got %s/%s", booking.Status, booking.WorkerDecision)
	}
	if p := mustPayment(t, env, booking.ID); p.Status != constants.PaymentHeld || !p.Amount.Equal(money(150)) {
		t.Fatalf("expected 150 held, got %s %s", p.Status, p.Amount)
	}
	assertBalance(t, env, owner, money(-150))

	_, err := env.bookings.Decline(ctx, booking.ID, worker1, constants.DeclineReasonOther, "")
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected details to be required for other, got %v", err)
	}

	declined, err := env.bookings.Decline(ctx, booking.ID, worker1, constants.DeclineReasonScheduleConflict, "")
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.Status != constants.BookingStatusDeclined || declined.DeclineReason != "Schedule conflict" {
		t.Errorf("unexpected declined booking %+v", declined)
	}
	if declined.DecidedAt == nil {
		t.Error("decided_at must be set")
	}

	payment := mustPayment(t, env, booking.ID)
	if payment.Status != constants.PaymentRefunded || !payment.RefundedAmount.Equal(money(150)) {
		t.Errorf("expected full refund, got %s %s", payment.Status, payment.RefundedAmount)
	}
	assertBalance(t, env, owner, money(0))
	assertBalance(t, env, worker1, money(0))

	if got := mustTask(t, env, task.ID).Status; got != constants.TaskStatusOpen {
		t.Errorf("expected task open after decline, got %s", got)
	}
	if len(env.notifier.For(owner)) == 0 {
		t.Error("owner was not told about the decline")
	}

	if _, err := env.bookings.Accept(ctx, booking.ID, worker1); !errors.Is(err, apperrors.ErrInvalidStateTransition) {
		t.Errorf("expected declined booking to be final, got %v", err)
	}
}

func TestBookingService_AcceptClosesCompetition(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	task := openTask(t, env)
	bid := submitBid(t, env, task.ID, "bidder-9", 60)
	first := hire(t, env, task.ID, worker1, 100, nil)
	second := hire(t, env, task.ID, worker2, 110, nil)

	if _, err := env.bookings.Accept(ctx, first.ID, worker2); !errors.Is(err, apperrors.ErrAuthorization) {
		t.Fatalf("expected only the hired worker to accept, got %v", err)
	}

	accepted, err := env.bookings.Accept(ctx, first.ID, worker1)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != constants.BookingStatusAccepted || accepted.WorkerDecision != constants.DecisionAccepted {
		t.Errorf("unexpected accepted booking %+v", accepted)
	}
	if got := mustTask(t, env, task.ID).Status; got != constants.TaskStatusInProgress {
		t.Errorf("expected task in_progress, got %s", got)
	}

	if got := mustBooking(t, env, second.ID).Status; got != constants.BookingStatusCancelled {
		t.Errorf("expected competing hire withdrawn, got %s", got)
	}
	if p := mustPayment(t, env, second.ID); p.Status != constants.PaymentRefunded {
		t.Errorf("expected competing hire refunded, got %s", p.Status)
	}
	if b, _ := env.bids.GetBid(ctx, bid.ID); b.Status != constants.BidStatusRejected {
		t.Errorf("expected pending bid rejected, got %s", b.Status)
	}

	// Only the accepted hire is still held.
	assertBalance(t, env, owner, money(-100))

	if _, err := env.bookings.Accept(ctx, second.ID, worker2); !errors.Is(err, apperrors.ErrInvalidStateTransition) {
		t.Errorf("expected withdrawn hire to stay closed, got %v", err)
	}
}

func TestBookingService_HireValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	task := openTask(t, env)

	_, err := env.bookings.CreateHireRequest(ctx, owner, HireInput{TaskID: task.ID, WorkerID: owner, Amount: money(10)})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected self hire to be rejected, got %v", err)
	}

	_, err = env.bookings.CreateHireRequest(ctx, owner, HireInput{TaskID: task.ID, WorkerID: worker1, Amount: money(0)})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected zero amount to be rejected, got %v", err)
	}

	_, err = env.bookings.CreateHireRequest(ctx, worker2, HireInput{TaskID: task.ID, WorkerID: worker1, Amount: money(10)})
	if !errors.Is(err, apperrors.ErrAuthorization) {
		t.Errorf("expected non-owner hire to be rejected, got %v", err)
	}

	hire(t, env, task.ID, worker1, 50, nil)
	_, err = env.bookings.CreateHireRequest(ctx, owner, HireInput{TaskID: task.ID, WorkerID: worker1, Amount: money(60)})
	if !errors.Is(err, apperrors.ErrInvalidStateTransition) {
		t.Errorf("expected a second open hire for the same worker to fail, got %v", err)
	}
}

func TestBookingService_CompleteRequiresApprovedChecklist(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	task := openTask(t, env)
	item, err := env.checklists.DefineItem(ctx, task.ID, owner, ItemInput{Title: "Hang doors", RequiresApproval: true})
	if err != nil {
		t.Fatalf("define item: %v", err)
	}
	bid := submitBid(t, env, task.ID, worker1, 100)
	bookingID, err := env.bids.AcceptBid(ctx, task.ID, bid.ID, owner)
	if err != nil {
		t.Fatalf("accept bid: %v", err)
	}

	if _, _, err := env.bookings.Complete(ctx, bookingID, owner); !errors.Is(err, apperrors.ErrInvalidStateTransition) {
		t.Fatalf("expected completion to wait for the checklist, got %v", err)
	}

	if _, err := env.checklists.CompleteItem(ctx, item.ID, bookingID, worker1, ""); err != nil {
		t.Fatalf("complete item: %v", err)
	}
	if _, _, err := env.bookings.Complete(ctx, bookingID, worker1); !errors.Is(err, apperrors.ErrInvalidStateTransition) {
		t.Fatalf("expected a pending item to block completion, got %v", err)
	}
	if got := mustBooking(t, env, bookingID).Status; got != constants.BookingStatusAccepted {
		t.Errorf("expected booking still accepted, got %s", got)
	}
	if _, _, err := env.bookings.Complete(ctx, bookingID, "stranger"); !errors.Is(err, apperrors.ErrAuthorization) {
		t.Errorf("expected outsiders to be refused, got %v", err)
	}
}

func TestBookingService_CompleteWithEmptyChecklistReleasesEscrow(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	task := openTask(t, env)
	bid := submitBid(t, env, task.ID, worker1, 200)
	bookingID, err := env.bids.AcceptBid(ctx, task.ID, bid.ID, owner)
	if err != nil {
		t.Fatalf("accept bid: %v", err)
	}

	booking, settlement, err := env.bookings.Complete(ctx, bookingID, worker1)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if booking.Status != constants.BookingStatusCompleted || booking.CompletedAt == nil {
		t.Errorf("unexpected completed booking %+v", booking)
	}
	if !settlement.Payout.Equal(money(180)) || !settlement.Fee.Equal(money(20)) || !settlement.Refunded.IsZero() {
		t.Errorf("unexpected settlement %+v", settlement)
	}
	if got := mustTask(t, env, task.ID).Status; got != constants.TaskStatusCompleted {
		t.Errorf("expected task completed, got %s", got)
	}
	if p := mustPayment(t, env, bookingID); p.Status != constants.PaymentReleased {
		t.Errorf("expected payment released, got %s", p.Status)
	}

	assertBalance(t, env, owner, money(-200))
	assertBalance(t, env, worker1, money(180))
	assertBalance(t, env, constants.PlatformAccount, money(20))

	if _, _, err := env.bookings.Complete(ctx, bookingID, worker1); !errors.Is(err, apperrors.ErrInvalidStateTransition) {
		t.Errorf("expected second completion to fail, got %v", err)
	}
}

func TestBookingService_CancelAppliesPolicyAndReopensTask(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	env := newTestEnv(t, func() time.Time { return now })
	ctx := context.Background()

	task := openTask(t, env)
	scheduled := now.Add(30 * time.Hour)
	booking := hire(t, env, task.ID, worker1, 100, &scheduled)
	if _, err := env.bookings.Accept(ctx, booking.ID, worker1); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, _, err := env.bookings.Cancel(ctx, booking.ID, "stranger", ""); !errors.Is(err, apperrors.ErrAuthorization) {
		t.Fatalf("expected outsiders to be refused, got %v", err)
	}

	cancelled, settlement, err := env.bookings.Cancel(ctx, booking.ID, owner, "plans changed")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != constants.BookingStatusCancelled || cancelled.CancelledBy != owner {
		t.Errorf("unexpected cancelled booking %+v", cancelled)
	}
	if !settlement.Refunded.Equal(money(50)) || !settlement.Payout.Equal(money(45)) || !settlement.Fee.Equal(money(5)) {
		t.Errorf("expected 50 refunded, 45 paid out and 5 fee, got %+v", settlement)
	}
	if p := mustPayment(t, env, booking.ID); p.Status != constants.PaymentPartiallyRefunded {
		t.Errorf("expected partially refunded payment, got %s", p.Status)
	}

	assertBalance(t, env, owner, money(-50))
	assertBalance(t, env, worker1, money(45))

	if got := mustTask(t, env, task.ID).Status; got != constants.TaskStatusOpen {
		t.Errorf("expected task reopened, got %s", got)
	}
	if len(env.notifier.For(worker1)) == 0 {
		t.Error("worker was not told about the cancellation")
	}

	if _, _, err := env.bookings.Cancel(ctx, booking.ID, owner, ""); !errors.Is(err, apperrors.ErrInvalidStateTransition) {
		t.Errorf("expected cancelling twice to fail, got %v", err)
	}
}

func TestBookingService_AuditTrail(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	task := openTask(t, env)
	booking := hire(t, env, task.ID, worker1, 75, nil)
	if _, err := env.bookings.Decline(ctx, booking.ID, worker1, constants.DeclineReasonTooFar, "across town"); err != nil {
		t.Fatalf("decline: %v", err)
	}

	trail, err := env.audit.ListForBooking(ctx, booking.ID)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}

	seen := map[constants.AuditEventType]bool{}
	for _, ev := range trail {
		seen[ev.EventType] = true
	}
	for _, want := range []constants.AuditEventType{
		constants.AuditHireRequested,
		constants.AuditEscrowHeld,
		constants.AuditHireDeclined,
		constants.AuditEscrowRefunded,
	} {
		if !seen[want] {
			t.Errorf("missing audit event %s in %v", want, seen)
		}
	}
}

func TestBookingService_ConcurrentAcceptHasOneWinner(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	task := openTask(t, env)
	booking := hire(t, env, task.ID, worker1, 100, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.bookings.Accept(ctx, booking.ID, worker1)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case !errors.Is(err, apperrors.ErrInvalidStateTransition):
			t.Errorf("loser should fail with ErrInvalidStateTransition, got %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one acceptance, got %d", successes)
	}

	if got := mustBooking(t, env, booking.ID).Status; got != constants.BookingStatusAccepted {
		t.Errorf("expected booking accepted, got %s", got)
	}
	if got := mustTask(t, env, task.ID).Status; got != constants.TaskStatusInProgress {
		t.Errorf("expected task in_progress, got %s", got)
	}
	assertBalance(t, env, owner, money(-100))
}

func TestBookingService_WorkerCancellingPendingHireRefundsInFull(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	env := newTestEnv(t, func() time.Time { return now })
	ctx := context.Background()

	task := openTask(t, env)
	scheduled := now.Add(2 * time.Hour)
	booking := hire(t, env, task.ID, worker1, 150, &scheduled)

	_, settlement, err := env.bookings.Cancel(ctx, booking.ID, worker1, "")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !settlement.Refunded.Equal(money(150)) || !settlement.Payout.IsZero() || !settlement.Fee.IsZero() {
		t.Errorf("expected a full refund, got %+v", settlement)
	}
	if p := mustPayment(t, env, booking.ID); p.Status != constants.PaymentRefunded {
		t.Errorf("expected refunded payment, got %s", p.Status)
	}
	assertBalance(t, env, owner, money(0))
	assertBalance(t, env, worker1, money(0))
	assertBalance(t, env, constants.PlatformAccount, money(0))
}

func TestBookingService_WorkerCancellingLateRefundsInFull(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	env := newTestEnv(t, func() time.Time { return now })
	ctx := context.Background()

	task := openTask(t, env)
	scheduled := now.Add(2 * time.Hour)
	booking := hire(t, env, task.ID, worker1, 100, &scheduled)
	if _, err := env.bookings.Accept(ctx, booking.ID, worker1); err != nil {
		t.Fatalf("accept: %v", err)
	}

	_, settlement, err := env.bookings.Cancel(ctx, booking.ID, worker1, "sick")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !settlement.Refunded.Equal(money(100)) || !settlement.Payout.IsZero() {
		t.Errorf("expected a full refund, got %+v", settlement)
	}
	assertBalance(t, env, owner, money(0))
	assertBalance(t, env, worker1, money(0))

	if got := mustTask(t, env, task.ID).Status; got != constants.TaskStatusOpen {
		t.Errorf("expected task reopened, got %s", got)
	}
}

func TestBookingService_CancelledBidBookingFreesTaskForOneNewWinner(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	task := openTask(t, env)
	first := submitBid(t, env, task.ID, worker1, 100)
	bookingID, err := env.bids.AcceptBid(ctx, task.ID, first.ID, owner)
	if err != nil {
		t.Fatalf("accept first bid: %v", err)
	}
	if _, _, err := env.bookings.Cancel(ctx, bookingID, owner, "changed my mind"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if b, _ := env.bids.GetBid(ctx, first.ID); b.Status != constants.BidStatusRejected {
		t.Errorf("expected the cancelled booking's bid rejected, got %s", b.Status)
	}
	if got := mustTask(t, env, task.ID).Status; got != constants.TaskStatusOpen {
		t.Fatalf("expected task reopened, got %s", got)
	}

	if _, err := env.bids.AcceptBid(ctx, task.ID, first.ID, owner); !errors.Is(err, apperrors.ErrInvalidStateTransition) {
		t.Errorf("expected the old bid to stay closed, got %v", err)
	}

	second := submitBid(t, env, task.ID, worker2, 90)
	if _, err := env.bids.AcceptBid(ctx, task.ID, second.ID, owner); err != nil {
		t.Fatalf("accept second bid: %v", err)
	}
	assertBalance(t, env, owner, money(-90))

	bids, err := env.bids.ListBids(ctx, task.ID)
	if err != nil {
		t.Fatalf("list bids: %v", err)
	}
	accepted := 0
	for _, b := range bids {
		if b.Status == constants.BidStatusAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Errorf("expected one accepted bid, got %d", accepted)
	}

	bookings, err := env.bookings.ListForTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("list bookings: %v", err)
	}
	active := 0
	for _, b := range bookings {
		if b.Status == constants.BookingStatusAccepted {
			active++
		}
	}
	if active != 1 {
		t.Errorf("expected one accepted booking, got %d", active)
	}
}
