package services

import (
	"context"

	"github.com/shopspring/decimal"

	"taskmarket.com/engagement/internal/constants"
	apperrors "taskmarket.com/engagement/internal/errors"
	"taskmarket.com/engagement/internal/events"
	model "taskmarket.com/engagement/internal/models"
	repository "taskmarket.com/engagement/internal/repositories"
)

type BidInput struct {
	Amount         decimal.Decimal `json:"amount" validate:"gt=0,lte=100000"`
	Message        string          `json:"message" validate:"max=1000"`
	EstimatedHours *float64        `json:"estimated_hours" validate:"omitempty,gt=0,lte=10000"`
}

// BidUpdate carries the fields a bidder wants to change; nil keeps the
// current value.
type BidUpdate struct {
	Amount         *decimal.Decimal
	Message        *string
	EstimatedHours *float64
}

// BidService is the bid ledger of a task: one bid per bidder, listed
// cheapest first, resolved to a single winner.
type BidService struct {
	base
	escrow *EscrowService
}

func NewBidService(d Dependencies, escrow *EscrowService) *BidService {
	return &BidService{base: newBase(d), escrow: escrow}
}

func (s *BidService) SubmitBid(ctx context.Context, taskID, bidderID string, in BidInput) (*model.Bid, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	task, err := s.store.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.OwnerID == bidderID {
		return nil, apperrors.ErrAuthorization.With("you cannot bid on your own task")
	}
	if task.Status != constants.TaskStatusOpen {
		return nil, apperrors.ErrInvalidStateTransition.With("task is %s and not open for bidding", task.Status)
	}

	if _, err := s.store.Bids.FindByTaskAndBidder(ctx, taskID, bidderID); err == nil {
		return nil, apperrors.ErrDuplicateBid
	} else if !isNotFound(err) {
		return nil, err
	}

	bid := &model.Bid{
		TaskID:         taskID,
		BidderID:       bidderID,
		Amount:         in.Amount,
		Message:        in.Message,
		EstimatedHours: in.EstimatedHours,
	}
	if err := s.store.Bids.Create(ctx, bid); err != nil {
		return nil, err
	}

	out := &outbox{}
	out.notify(Notice{
		UserID:   task.OwnerID,
		Title:    "New bid received",
		Message:  "A new bid of " + in.Amount.StringFixed(2) + " was placed on \"" + task.Title + "\".",
		Category: constants.CategoryBid,
		DeepLink: taskLink(taskID),
	})
	out.changed(events.TaskTopic(taskID), "bid", bid.ID, events.ActionInsert, string(bid.Status))
	s.flush(ctx, out)

	s.log.Info("bid submitted", "bid_id", bid.ID, "task_id", taskID, "bidder_id", bidderID)
	return bid, nil
}

func (s *BidService) UpdateBid(ctx context.Context, bidID, bidderID string, upd BidUpdate) (*model.Bid, error) {
	bid, err := s.ownedBid(ctx, bidID, bidderID)
	if err != nil {
		return nil, err
	}

	in := BidInput{Amount: bid.Amount, Message: bid.Message, EstimatedHours: bid.EstimatedHours}
	if upd.Amount != nil {
		in.Amount = *upd.Amount
	}
	if upd.Message != nil {
		in.Message = *upd.Message
	}
	if upd.EstimatedHours != nil {
		in.EstimatedHours = upd.EstimatedHours
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	if bid.Status != constants.BidStatusPending {
		return nil, apperrors.ErrInvalidStateTransition.With("bid is %s and can no longer be changed", bid.Status)
	}

	bid.Amount = in.Amount
	bid.Message = in.Message
	bid.EstimatedHours = in.EstimatedHours
	if err := s.store.Bids.UpdateTerms(ctx, bid); err != nil {
		return nil, conflict(err, "bid is no longer pending or was changed concurrently")
	}

	out := &outbox{}
	out.changed(events.TaskTopic(bid.TaskID), "bid", bid.ID, events.ActionUpdate, string(bid.Status))
	s.flush(ctx, out)
	return bid, nil
}

// WithdrawBid deletes a pending bid, which frees the bidder to bid again.
func (s *BidService) WithdrawBid(ctx context.Context, bidID, bidderID string) error {
	bid, err := s.ownedBid(ctx, bidID, bidderID)
	if err != nil {
		return err
	}

	if err := s.store.Bids.DeletePending(ctx, bidID); err != nil {
		return conflict(err, "bid is %s and can no longer be withdrawn", bid.Status)
	}

	out := &outbox{}
	out.changed(events.TaskTopic(bid.TaskID), "bid", bid.ID, events.ActionDelete, "")
	s.flush(ctx, out)

	s.log.Info("bid withdrawn", "bid_id", bidID, "task_id", bid.TaskID)
	return nil
}

// AcceptBid makes bid the winner of its task and returns the booking that
// represents the engagement. In one transaction the bid is accepted, the
// task moves to in_progress, sibling bids are rejected and the booking is
// located or created with its escrow held. The task transition is the guard
// against accepting two bids concurrently.
//
// Calling AcceptBid again for an already accepted bid returns the booking it
// produced. It fails once that booking has been cancelled.
func (s *BidService) AcceptBid(ctx context.Context, taskID, bidID, ownerID string) (string, error) {
	out := &outbox{}
	var bookingID string

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		task, err := s.ownedTask(ctx, tx, taskID, ownerID)
		if err != nil {
			return err
		}

		bid, err := tx.Bids.FindByID(ctx, bidID)
		if err != nil {
			return err
		}
		if bid.TaskID != task.ID {
			return apperrors.ErrValidation.With("bid %s does not belong to task %s", bidID, taskID)
		}

		switch bid.Status {
		case constants.BidStatusPending:
		case constants.BidStatusAccepted:
			booking, err := tx.Bookings.FindLiveForBid(ctx, bid.ID)
			if isNotFound(err) {
				return apperrors.ErrInvalidStateTransition.With("the booking of bid %s was cancelled", bid.ID)
			}
			if err != nil {
				return err
			}
			bookingID = booking.ID
			s.log.Info("bid already accepted", "bid_id", bid.ID, "booking_id", booking.ID)
			return nil
		default:
			return apperrors.ErrInvalidStateTransition.With("bid is %s and cannot be accepted", bid.Status)
		}

		err = tx.Bids.TransitionStatus(ctx, bid.ID, constants.BidStatusPending, constants.BidStatusAccepted)
		if err != nil {
			return conflict(err, "bid is no longer pending")
		}
		err = tx.Tasks.TransitionStatus(ctx, task.ID,
			[]constants.TaskStatus{constants.TaskStatusOpen}, constants.TaskStatusInProgress)
		if err != nil {
			return conflict(err, "task is %s, another offer was already accepted", task.Status)
		}
		out.changed(events.TaskTopic(task.ID), "task", task.ID, events.ActionUpdate, string(constants.TaskStatusInProgress))

		booking, err := s.locateOrCreateBooking(ctx, tx, task, bid, out)
		if err != nil {
			return err
		}
		bookingID = booking.ID

		if err := closeCompetition(ctx, tx, s.escrow, s.now(), task.ID, booking.ID, bid.ID, out); err != nil {
			return err
		}

		out.audit(AuditRecord{
			BookingID: booking.ID, TaskID: task.ID, UserID: ownerID,
			EventType: constants.AuditBidAccepted, EventCategory: constants.AuditCategoryBooking,
			Payload: map[string]any{"bid_id": bid.ID, "amount": bid.Amount.StringFixed(2)},
		})
		out.notify(Notice{
			UserID:   bid.BidderID,
			Title:    "Your bid was accepted",
			Message:  "Your bid on \"" + task.Title + "\" was accepted. Say hello to your client!",
			Category: constants.CategoryBid,
			DeepLink: chatLink(booking.ID),
		})
		out.changed(events.TaskTopic(task.ID), "bid", bid.ID, events.ActionUpdate, string(constants.BidStatusAccepted))
		return nil
	})
	if err != nil {
		return "", err
	}

	s.flush(ctx, out)
	s.log.Info("bid accepted", "bid_id", bidID, "task_id", taskID, "booking_id", bookingID)
	return bookingID, nil
}

// locateOrCreateBooking returns the bidder's open booking on the task,
// accepting it and linking it to the bid if still pending, or creates an
// accepted one with escrow.
func (s *BidService) locateOrCreateBooking(
	ctx context.Context,
	tx *repository.Store,
	task *model.Task,
	bid *model.Bid,
	out *outbox,
) (*model.Booking, error) {
	now := s.now()

	existing, err := tx.Bookings.FindOpenForWorker(ctx, task.ID, bid.BidderID)
	switch {
	case err == nil:
		if existing.Status == constants.BookingStatusPending {
			err = tx.Bookings.Transition(ctx, existing.ID,
				[]constants.BookingStatus{constants.BookingStatusPending},
				map[string]interface{}{
					"status":          constants.BookingStatusAccepted,
					"worker_decision": constants.DecisionAccepted,
					"decided_at":      now,
					"bid_id":          bid.ID,
				})
			if err != nil {
				return nil, conflict(err, "booking changed concurrently")
			}
			existing.Status = constants.BookingStatusAccepted
			existing.BidID = &bid.ID
			out.changed(events.TaskTopic(task.ID), "booking", existing.ID, events.ActionUpdate, string(existing.Status))
		}
		return existing, nil
	case !isNotFound(err):
		return nil, err
	}

	bidID := bid.ID
	booking := &model.Booking{
		TaskID:         task.ID,
		OwnerID:        task.OwnerID,
		WorkerID:       bid.BidderID,
		BidID:          &bidID,
		Amount:         bid.Amount,
		Message:        bid.Message,
		Status:         constants.BookingStatusAccepted,
		WorkerDecision: constants.DecisionAccepted,
		DecidedAt:      &now,
	}
	if err := tx.Bookings.Create(ctx, booking); err != nil {
		return nil, err
	}
	if _, err := s.escrow.Hold(ctx, tx, booking, out); err != nil {
		return nil, err
	}

	out.changed(events.TaskTopic(task.ID), "booking", booking.ID, events.ActionInsert, string(booking.Status))
	return booking, nil
}

func (s *BidService) RejectBid(ctx context.Context, bidID, ownerID string) (*model.Bid, error) {
	bid, err := s.store.Bids.FindByID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	task, err := s.ownedTask(ctx, s.store, bid.TaskID, ownerID)
	if err != nil {
		return nil, err
	}

	err = s.store.Bids.TransitionStatus(ctx, bidID, constants.BidStatusPending, constants.BidStatusRejected)
	if err != nil {
		return nil, conflict(err, "bid is %s and cannot be rejected", bid.Status)
	}
	bid.Status = constants.BidStatusRejected

	out := &outbox{}
	out.notify(Notice{
		UserID:   bid.BidderID,
		Title:    "Bid declined",
		Message:  "Your bid on \"" + task.Title + "\" was declined.",
		Category: constants.CategoryBid,
		DeepLink: taskLink(task.ID),
	})
	out.changed(events.TaskTopic(task.ID), "bid", bid.ID, events.ActionUpdate, string(bid.Status))
	s.flush(ctx, out)
	return bid, nil
}

func (s *BidService) GetBid(ctx context.Context, bidID string) (*model.Bid, error) {
	return s.store.Bids.FindByID(ctx, bidID)
}

// ListBids returns the task's bids cheapest first, ties in submission order.
func (s *BidService) ListBids(ctx context.Context, taskID string) ([]model.Bid, error) {
	bids, err := s.store.Bids.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	SortBids(bids)
	return bids, nil
}

func (s *BidService) ListBidsByBidder(ctx context.Context, bidderID string) ([]model.Bid, error) {
	return s.store.Bids.ListByBidder(ctx, bidderID)
}

func (s *BidService) ownedBid(ctx context.Context, bidID, bidderID string) (*model.Bid, error) {
	bid, err := s.store.Bids.FindByID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid.BidderID != bidderID {
		return nil, apperrors.ErrAuthorization.With("only the bidder can change this bid")
	}
	return bid, nil
}
