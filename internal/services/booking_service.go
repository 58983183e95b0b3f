package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"taskmarket.com/engagement/internal/constants"
	apperrors "taskmarket.com/engagement/internal/errors"
	"taskmarket.com/engagement/internal/events"
	model "taskmarket.com/engagement/internal/models"
	repository "taskmarket.com/engagement/internal/repositories"
)

type HireInput struct {
	TaskID      string          `json:"task_id" validate:"required"`
	WorkerID    string          `json:"worker_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0,lte=100000"`
	Message     string          `json:"message" validate:"max=1000"`
	ScheduledAt *time.Time      `json:"scheduled_at"`
}

// BookingService drives a booking through
// pending → accepted → completed, or into declined or cancelled.
// Every transition is a conditional write; a lost race surfaces as
// ErrInvalidStateTransition and changes nothing.
type BookingService struct {
	base
	escrow *EscrowService
	policy CancellationPolicy
}

func NewBookingService(d Dependencies, escrow *EscrowService, policy CancellationPolicy) *BookingService {
	return &BookingService{base: newBase(d), escrow: escrow, policy: policy}
}

// CreateHireRequest issues a direct hire. The amount is held in escrow before
// the worker can decide, so a decline always has funds to refund.
func (s *BookingService) CreateHireRequest(ctx context.Context, ownerID string, in HireInput) (*model.Booking, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.WorkerID == ownerID {
		return nil, apperrors.ErrValidation.With("you cannot hire yourself")
	}

	out := &outbox{}
	var booking *model.Booking

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		task, err := s.ownedTask(ctx, tx, in.TaskID, ownerID)
		if err != nil {
			return err
		}
		if task.Status != constants.TaskStatusOpen {
			return apperrors.ErrInvalidStateTransition.With("task is %s, hiring requires an open task", task.Status)
		}

		if _, err := tx.Bookings.FindOpenForWorker(ctx, task.ID, in.WorkerID); err == nil {
			return apperrors.ErrInvalidStateTransition.With("worker already has an open hire request for this task")
		} else if !isNotFound(err) {
			return err
		}

		booking = &model.Booking{
			TaskID:         task.ID,
			OwnerID:        ownerID,
			WorkerID:       in.WorkerID,
			Amount:         in.Amount,
			Message:        in.Message,
			Status:         constants.BookingStatusPending,
			WorkerDecision: constants.DecisionPending,
			ScheduledAt:    in.ScheduledAt,
		}
		if err := tx.Bookings.Create(ctx, booking); err != nil {
			return err
		}
		if _, err := s.escrow.Hold(ctx, tx, booking, out); err != nil {
			return err
		}

		out.audit(AuditRecord{
			BookingID: booking.ID, TaskID: task.ID, UserID: ownerID,
			EventType: constants.AuditHireRequested, EventCategory: constants.AuditCategoryBooking,
			Payload: map[string]any{"worker_id": in.WorkerID, "amount": in.Amount.StringFixed(2)},
		})
		out.notify(Notice{
			UserID:   in.WorkerID,
			Title:    "New hire request",
			Message:  "You have been asked to take on \"" + task.Title + "\" for " + in.Amount.StringFixed(2) + ".",
			Category: constants.CategoryHire,
			DeepLink: bookingLink(booking.ID),
		})
		out.changed(events.TaskTopic(task.ID), "booking", booking.ID, events.ActionInsert, string(booking.Status))
		out.changed(events.UserTopic(in.WorkerID), "booking", booking.ID, events.ActionInsert, string(booking.Status))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.flush(ctx, out)
	s.log.Info("hire request created", "booking_id", booking.ID, "task_id", booking.TaskID, "worker_id", booking.WorkerID)
	return booking, nil
}

// Accept records the worker's acceptance. Escrow stays held until the
// checklist is approved. Competing bids and hire requests are closed.
func (s *BookingService) Accept(ctx context.Context, bookingID, workerID string) (*model.Booking, error) {
	out := &outbox{}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		booking, err := s.workerBooking(ctx, tx, bookingID, workerID)
		if err != nil {
			return err
		}

		now := s.now()
		err = tx.Bookings.Transition(ctx, bookingID,
			[]constants.BookingStatus{constants.BookingStatusPending},
			map[string]interface{}{
				"status":          constants.BookingStatusAccepted,
				"worker_decision": constants.DecisionAccepted,
				"decided_at":      now,
			})
		if err != nil {
			return conflict(err, "booking is %s and can no longer be accepted", booking.Status)
		}

		err = tx.Tasks.TransitionStatus(ctx, booking.TaskID,
			[]constants.TaskStatus{constants.TaskStatusOpen}, constants.TaskStatusInProgress)
		if err != nil {
			return conflict(err, "task is no longer open for hiring")
		}

		if err := closeCompetition(ctx, tx, s.escrow, now, booking.TaskID, bookingID, "", out); err != nil {
			return err
		}

		out.audit(AuditRecord{
			BookingID: bookingID, TaskID: booking.TaskID, UserID: workerID,
			EventType: constants.AuditHireAccepted, EventCategory: constants.AuditCategoryBooking,
		})
		out.notify(Notice{
			UserID:   booking.OwnerID,
			Title:    "Hire request accepted",
			Message:  "Your hire request was accepted. You can now chat with your tasker.",
			Category: constants.CategoryHire,
			DeepLink: chatLink(bookingID),
		})
		out.changed(events.TaskTopic(booking.TaskID), "booking", bookingID, events.ActionUpdate, string(constants.BookingStatusAccepted))
		out.changed(events.TaskTopic(booking.TaskID), "task", booking.TaskID, events.ActionUpdate, string(constants.TaskStatusInProgress))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.flush(ctx, out)
	s.log.Info("hire request accepted", "booking_id", bookingID, "worker_id", workerID)
	return s.store.Bookings.FindByID(ctx, bookingID)
}

// Decline rejects a pending hire. The held amount is refunded in full and
// the task is reopened.
func (s *BookingService) Decline(ctx context.Context, bookingID, workerID, reason, details string) (*model.Booking, error) {
	text, err := DeclineReason(reason, details)
	if err != nil {
		return nil, err
	}

	out := &outbox{}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		booking, err := s.workerBooking(ctx, tx, bookingID, workerID)
		if err != nil {
			return err
		}

		err = tx.Bookings.Transition(ctx, bookingID,
			[]constants.BookingStatus{constants.BookingStatusPending},
			map[string]interface{}{
				"status":          constants.BookingStatusDeclined,
				"worker_decision": constants.DecisionDeclined,
				"decline_reason":  text,
				"decided_at":      s.now(),
			})
		if err != nil {
			return conflict(err, "booking is %s and can no longer be declined", booking.Status)
		}

		if _, err := s.escrow.Refund(ctx, tx, booking, booking.Amount, "declined: "+text, out); err != nil {
			return err
		}
		if err := reopenTask(ctx, tx, booking.TaskID, bookingID, out); err != nil {
			return err
		}

		out.audit(AuditRecord{
			BookingID: bookingID, TaskID: booking.TaskID, UserID: workerID,
			EventType: constants.AuditHireDeclined, EventCategory: constants.AuditCategoryBooking,
			Payload: map[string]any{"reason": text},
		})
		out.notify(Notice{
			UserID:   booking.OwnerID,
			Title:    "Hire request declined",
			Message:  "Your hire request was declined: " + text,
			Category: constants.CategoryHire,
			DeepLink: taskLink(booking.TaskID),
		})
		out.changed(events.TaskTopic(booking.TaskID), "booking", bookingID, events.ActionUpdate, string(constants.BookingStatusDeclined))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.flush(ctx, out)
	s.log.Info("hire request declined", "booking_id", bookingID, "reason", text)
	return s.store.Bookings.FindByID(ctx, bookingID)
}

// Complete finishes an accepted booking whose checklist is fully approved
// and releases escrow to the worker. Either party may trigger it.
func (s *BookingService) Complete(ctx context.Context, bookingID, actorID string) (*model.Booking, Settlement, error) {
	booking, err := s.store.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, Settlement{}, err
	}
	if actorID != booking.OwnerID && actorID != booking.WorkerID {
		return nil, Settlement{}, apperrors.ErrAuthorization.With("only the parties of a booking can complete it")
	}

	out := &outbox{}
	var settlement Settlement

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		settlement, err = s.complete(ctx, tx, bookingID, out)
		return err
	})
	if err != nil {
		return nil, Settlement{}, err
	}

	s.flush(ctx, out)
	s.log.Info("booking completed", "booking_id", bookingID, "payout", settlement.Payout.StringFixed(2))
	completed, err := s.store.Bookings.FindByID(ctx, bookingID)
	return completed, settlement, err
}

// TryComplete completes the booking if its checklist is fully approved and
// reports whether it did. It is re-run after every approval.
func (s *BookingService) TryComplete(ctx context.Context, bookingID string) (bool, error) {
	out := &outbox{}
	completed := false

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		booking, err := tx.Bookings.FindByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status != constants.BookingStatusAccepted {
			return nil
		}

		eligible, err := s.eligible(ctx, tx, booking)
		if err != nil || !eligible {
			return err
		}

		if _, err := s.complete(ctx, tx, bookingID, out); err != nil {
			return err
		}
		completed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if completed {
		s.flush(ctx, out)
		s.log.Info("booking completed after final approval", "booking_id", bookingID)
	}
	return completed, nil
}

func (s *BookingService) complete(ctx context.Context, tx *repository.Store, bookingID string, out *outbox) (Settlement, error) {
	booking, err := tx.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		return Settlement{}, err
	}
	if booking.Status != constants.BookingStatusAccepted {
		return Settlement{}, apperrors.ErrInvalidStateTransition.With("booking is %s, only accepted bookings can be completed", booking.Status)
	}

	eligible, err := s.eligible(ctx, tx, booking)
	if err != nil {
		return Settlement{}, err
	}
	if !eligible {
		return Settlement{}, apperrors.ErrInvalidStateTransition.With("every checklist item must be approved before completion")
	}

	err = tx.Bookings.Transition(ctx, bookingID,
		[]constants.BookingStatus{constants.BookingStatusAccepted},
		map[string]interface{}{
			"status":       constants.BookingStatusCompleted,
			"completed_at": s.now(),
		})
	if err != nil {
		return Settlement{}, conflict(err, "booking was modified concurrently")
	}

	settlement, err := s.escrow.Release(ctx, tx, booking, out)
	if err != nil {
		return Settlement{}, err
	}

	err = tx.Tasks.TransitionStatus(ctx, booking.TaskID,
		[]constants.TaskStatus{constants.TaskStatusInProgress}, constants.TaskStatusCompleted)
	if err != nil {
		return Settlement{}, conflict(err, "task is not in progress")
	}

	out.audit(AuditRecord{
		BookingID: bookingID, TaskID: booking.TaskID, UserID: booking.OwnerID,
		EventType: constants.AuditBookingCompleted, EventCategory: constants.AuditCategoryBooking,
		Payload: map[string]any{"payout": settlement.Payout.StringFixed(2), "fee": settlement.Fee.StringFixed(2)},
	})
	for _, user := range []string{booking.OwnerID, booking.WorkerID} {
		out.notify(Notice{
			UserID:   user,
			Title:    "Task completed",
			Message:  "All checklist items were approved and the booking is complete.",
			Category: constants.CategoryBooking,
			DeepLink: bookingLink(bookingID),
		})
	}
	out.changed(events.TaskTopic(booking.TaskID), "booking", bookingID, events.ActionUpdate, string(constants.BookingStatusCompleted))
	out.changed(events.TaskTopic(booking.TaskID), "task", booking.TaskID, events.ActionUpdate, string(constants.TaskStatusCompleted))
	return settlement, nil
}

func (s *BookingService) eligible(ctx context.Context, tx *repository.Store, booking *model.Booking) (bool, error) {
	items, err := tx.Checklists.ListItems(ctx, booking.TaskID)
	if err != nil {
		return false, err
	}
	completions, err := tx.Checklists.ListCompletions(ctx, booking.ID)
	if err != nil {
		return false, err
	}
	return AllItemsApproved(items, completions), nil
}

// Cancel ends a booking before completion. When the owner cancels an
// accepted booking the cancellation policy decides the refunded share and the
// rest goes to the worker. A pending hire, or a worker backing out, is
// refunded in full.
func (s *BookingService) Cancel(ctx context.Context, bookingID, actorID, reason string) (*model.Booking, Settlement, error) {
	out := &outbox{}
	var settlement Settlement

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		booking, err := tx.Bookings.FindByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if actorID != booking.OwnerID && actorID != booking.WorkerID {
			return apperrors.ErrAuthorization.With("only the parties of a booking can cancel it")
		}

		now := s.now()
		err = tx.Bookings.Transition(ctx, bookingID,
			[]constants.BookingStatus{constants.BookingStatusPending, constants.BookingStatusAccepted},
			map[string]interface{}{
				"status":       constants.BookingStatusCancelled,
				"cancelled_at": now,
				"cancelled_by": actorID,
			})
		if err != nil {
			return conflict(err, "booking is %s and can no longer be cancelled", booking.Status)
		}

		percent := 100
		if booking.Status == constants.BookingStatusAccepted && actorID == booking.OwnerID {
			percent = s.policy.RefundPercent(booking.ScheduledAt, now)
		}
		refund := PercentOf(booking.Amount, percent)
		reasonText := strings.TrimSpace(reason)
		if reasonText == "" {
			reasonText = "cancelled"
		}

		settlement, err = s.escrow.Refund(ctx, tx, booking, refund, reasonText, out)
		if err != nil {
			return err
		}
		if err := retireBid(ctx, tx, booking, out); err != nil {
			return err
		}
		if err := reopenTask(ctx, tx, booking.TaskID, bookingID, out); err != nil {
			return err
		}

		other := booking.OwnerID
		if actorID == booking.OwnerID {
			other = booking.WorkerID
		}
		out.audit(AuditRecord{
			BookingID: bookingID, TaskID: booking.TaskID, UserID: actorID,
			EventType: constants.AuditBookingCancelled, EventCategory: constants.AuditCategoryBooking,
			Payload: map[string]any{"reason": reasonText, "refund_percent": percent},
		})
		out.notify(Notice{
			UserID:   other,
			Title:    "Booking cancelled",
			Message:  "The booking was cancelled: " + reasonText,
			Category: constants.CategoryBooking,
			DeepLink: bookingLink(bookingID),
		})
		out.changed(events.TaskTopic(booking.TaskID), "booking", bookingID, events.ActionUpdate, string(constants.BookingStatusCancelled))
		return nil
	})
	if err != nil {
		return nil, Settlement{}, err
	}

	s.flush(ctx, out)
	s.log.Info("booking cancelled", "booking_id", bookingID, "by", actorID, "refunded", settlement.Refunded.StringFixed(2))
	cancelled, err := s.store.Bookings.FindByID(ctx, bookingID)
	return cancelled, settlement, err
}

// Get returns a booking visible to actorID.
func (s *BookingService) Get(ctx context.Context, bookingID, actorID string) (*model.Booking, error) {
	booking, err := s.store.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actorID != booking.OwnerID && actorID != booking.WorkerID {
		return nil, apperrors.ErrAuthorization.With("only the parties of a booking can view it")
	}
	return booking, nil
}

func (s *BookingService) ListForTask(ctx context.Context, taskID string) ([]model.Booking, error) {
	return s.store.Bookings.ListByTask(ctx, taskID)
}

func (s *BookingService) ListForUser(ctx context.Context, userID string) ([]model.Booking, error) {
	return s.store.Bookings.ListByUser(ctx, userID)
}

func (s *BookingService) workerBooking(ctx context.Context, tx *repository.Store, bookingID, workerID string) (*model.Booking, error) {
	booking, err := tx.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.WorkerID != workerID {
		return nil, apperrors.ErrAuthorization.With("only the hired worker can respond to this request")
	}
	return booking, nil
}

// closeCompetition runs once a task has its engagement: remaining pending
// bids are rejected and other pending hire requests are withdrawn.
func closeCompetition(
	ctx context.Context,
	tx *repository.Store,
	escrow *EscrowService,
	now time.Time,
	taskID, keepBookingID, keepBidID string,
	out *outbox,
) error {
	rejected, err := tx.Bids.RejectSiblings(ctx, taskID, keepBidID)
	if err != nil {
		return err
	}
	for _, bidder := range rejected {
		out.notify(Notice{
			UserID:   bidder,
			Title:    "Bid not selected",
			Message:  "Another offer was chosen for this task.",
			Category: constants.CategoryBid,
			DeepLink: taskLink(taskID),
		})
	}
	if len(rejected) > 0 {
		out.changed(events.TaskTopic(taskID), "bid", taskID, events.ActionUpdate, string(constants.BidStatusRejected))
	}

	_, err = withdrawPendingHires(ctx, tx, escrow, now, taskID, keepBookingID, "", "another offer was accepted", out)
	return err
}

// withdrawPendingHires cancels every pending booking of the task except
// keepID and refunds each in full.
func withdrawPendingHires(
	ctx context.Context,
	tx *repository.Store,
	escrow *EscrowService,
	now time.Time,
	taskID, keepID, actorID, reason string,
	out *outbox,
) ([]model.Booking, error) {
	bookings, err := tx.Bookings.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	var withdrawn []model.Booking
	for i := range bookings {
		b := &bookings[i]
		if b.ID == keepID || b.Status != constants.BookingStatusPending {
			continue
		}

		err := tx.Bookings.Transition(ctx, b.ID,
			[]constants.BookingStatus{constants.BookingStatusPending},
			map[string]interface{}{
				"status":       constants.BookingStatusCancelled,
				"cancelled_at": now,
				"cancelled_by": actorID,
			})
		if err != nil {
			return nil, conflict(err, "hire request %s changed concurrently", b.ID)
		}
		if _, err := escrow.Refund(ctx, tx, b, b.Amount, reason, out); err != nil {
			return nil, err
		}

		out.notify(Notice{
			UserID:   b.WorkerID,
			Title:    "Hire request withdrawn",
			Message:  "The hire request was withdrawn: " + reason,
			Category: constants.CategoryHire,
			DeepLink: taskLink(taskID),
		})
		out.changed(events.TaskTopic(taskID), "booking", b.ID, events.ActionUpdate, string(constants.BookingStatusCancelled))
		withdrawn = append(withdrawn, *b)
	}
	return withdrawn, nil
}

// retireBid rejects the bid a cancelled booking came from, so the task can
// accept a new winner without two accepted bids.
func retireBid(ctx context.Context, tx *repository.Store, booking *model.Booking, out *outbox) error {
	if booking.BidID == nil {
		return nil
	}
	err := tx.Bids.TransitionStatus(ctx, *booking.BidID, constants.BidStatusAccepted, constants.BidStatusRejected)
	switch {
	case err == nil:
		out.changed(events.TaskTopic(booking.TaskID), "bid", *booking.BidID, events.ActionUpdate, string(constants.BidStatusRejected))
		return nil
	case errors.Is(err, repository.ErrOptimisticLock):
		return nil
	}
	return err
}

// reopenTask makes the task available for bidding and hiring again unless
// another booking is still active on it.
func reopenTask(ctx context.Context, tx *repository.Store, taskID, endedBookingID string, out *outbox) error {
	active, err := tx.Bookings.FindActiveForTask(ctx, taskID)
	switch {
	case err == nil && active.ID != endedBookingID:
		return nil
	case err != nil && !isNotFound(err):
		return err
	}

	err = tx.Tasks.TransitionStatus(ctx, taskID,
		[]constants.TaskStatus{constants.TaskStatusInProgress}, constants.TaskStatusOpen)
	if err == nil {
		out.changed(events.TaskTopic(taskID), "task", taskID, events.ActionUpdate, string(constants.TaskStatusOpen))
		return nil
	}
	if errors.Is(err, repository.ErrOptimisticLock) {
		// Already open, or cancelled or completed in the meantime.
		return nil
	}
	return err
}
