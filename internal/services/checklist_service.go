package services

import (
	"context"
	"errors"
	"strings"

	"taskmarket.com/engagement/internal/constants"
	apperrors "taskmarket.com/engagement/internal/errors"
	"taskmarket.com/engagement/internal/events"
	model "taskmarket.com/engagement/internal/models"
	repository "taskmarket.com/engagement/internal/repositories"
)

type ItemInput struct {
	Title            string `json:"title" validate:"required,max=200"`
	Description      string `json:"description" validate:"max=2000"`
	RequiresPhoto    bool   `json:"requires_photo"`
	RequiresApproval bool   `json:"requires_giver_approval"`
	DisplayOrder     *int   `json:"display_order" validate:"omitempty,gte=0"`
}

// ChecklistService tracks proof of completion per booking. Each completion
// moves pending → approved or rejected; a rejected completion is deleted
// before the worker retries.
type ChecklistService struct {
	base
	bookings *BookingService
}

func NewChecklistService(d Dependencies, bookings *BookingService) *ChecklistService {
	return &ChecklistService{base: newBase(d), bookings: bookings}
}

func (s *ChecklistService) DefineItem(ctx context.Context, taskID, ownerID string, in ItemInput) (*model.ChecklistItem, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	task, err := s.ownedTask(ctx, s.store, taskID, ownerID)
	if err != nil {
		return nil, err
	}
	if task.Status == constants.TaskStatusCompleted || task.Status == constants.TaskStatusCancelled {
		return nil, apperrors.ErrInvalidStateTransition.With("task is %s, its checklist is closed", task.Status)
	}

	order := 0
	if in.DisplayOrder != nil {
		order = *in.DisplayOrder
	} else if order, err = s.store.Checklists.NextDisplayOrder(ctx, taskID); err != nil {
		return nil, err
	}

	item := &model.ChecklistItem{
		TaskID:                taskID,
		Title:                 in.Title,
		Description:           in.Description,
		RequiresPhoto:         in.RequiresPhoto,
		RequiresGiverApproval: in.RequiresApproval,
		DisplayOrder:          order,
	}
	if err := s.store.Checklists.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	out := &outbox{}
	out.changed(events.TaskTopic(taskID), "checklist_item", item.ID, events.ActionInsert, "")
	s.flush(ctx, out)
	return item, nil
}

// UpdateItem edits an item that nobody has completed yet.
func (s *ChecklistService) UpdateItem(ctx context.Context, itemID, ownerID string, in ItemInput) (*model.ChecklistItem, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	item, err := s.ownedItem(ctx, itemID, ownerID)
	if err != nil {
		return nil, err
	}

	count, err := s.store.Checklists.CountCompletionsForItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperrors.ErrItemHasCompletion
	}

	item.Title = in.Title
	item.Description = in.Description
	item.RequiresPhoto = in.RequiresPhoto
	item.RequiresGiverApproval = in.RequiresApproval
	if in.DisplayOrder != nil {
		item.DisplayOrder = *in.DisplayOrder
	}
	if err := s.store.Checklists.UpdateItem(ctx, item); err != nil {
		return nil, err
	}

	out := &outbox{}
	out.changed(events.TaskTopic(item.TaskID), "checklist_item", item.ID, events.ActionUpdate, "")
	s.flush(ctx, out)
	return item, nil
}

func (s *ChecklistService) DeleteItem(ctx context.Context, itemID, ownerID string) error {
	item, err := s.ownedItem(ctx, itemID, ownerID)
	if err != nil {
		return err
	}

	if err := s.store.Checklists.DeleteItemWithoutCompletions(ctx, itemID); err != nil {
		if errors.Is(err, repository.ErrOptimisticLock) {
			return apperrors.ErrItemHasCompletion
		}
		return err
	}

	out := &outbox{}
	out.changed(events.TaskTopic(item.TaskID), "checklist_item", item.ID, events.ActionDelete, "")
	s.flush(ctx, out)

	// The removed item may have been the last one left to approve. An emptied
	// checklist still waits for an explicit Complete.
	remaining, err := s.store.Checklists.ListItems(ctx, item.TaskID)
	if err != nil || len(remaining) == 0 {
		return nil
	}
	active, err := s.store.Bookings.FindActiveForTask(ctx, item.TaskID)
	switch {
	case err == nil:
		s.reevaluate(ctx, active.ID)
	case !isNotFound(err):
		s.log.Error("checklist completion check failed", "task_id", item.TaskID, "error", err)
	}
	return nil
}

func (s *ChecklistService) ListItems(ctx context.Context, taskID string) ([]model.ChecklistItem, error) {
	return s.store.Checklists.ListItems(ctx, taskID)
}

// CompleteItem records the worker's fulfillment of item within booking.
// Items without owner approval are approved immediately.
func (s *ChecklistService) CompleteItem(ctx context.Context, itemID, bookingID, workerID, photoURL string) (*model.ChecklistCompletion, error) {
	item, err := s.store.Checklists.FindItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	booking, err := s.store.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.TaskID != item.TaskID {
		return nil, apperrors.ErrValidation.With("checklist item does not belong to this booking's task")
	}
	if booking.WorkerID != workerID {
		return nil, apperrors.ErrAuthorization.With("only the hired worker can complete checklist items")
	}
	if booking.Status != constants.BookingStatusAccepted {
		return nil, apperrors.ErrInvalidStateTransition.With("booking is %s, checklist items can only be completed while it is accepted", booking.Status)
	}

	photoURL = strings.TrimSpace(photoURL)
	if item.RequiresPhoto && photoURL == "" {
		return nil, apperrors.ErrPhotoRequired
	}

	status := constants.CompletionApproved
	if item.RequiresGiverApproval {
		status = constants.CompletionPending
	}

	completion := &model.ChecklistCompletion{
		ChecklistItemID: itemID,
		BookingID:       bookingID,
		CompletedBy:     workerID,
		PhotoURL:        photoURL,
		Status:          status,
	}
	if err := s.store.Checklists.CreateCompletion(ctx, completion); err != nil {
		return nil, conflict(err, "item was already completed for this booking")
	}

	out := &outbox{}
	out.audit(AuditRecord{
		BookingID: bookingID, TaskID: item.TaskID, UserID: workerID,
		EventType: constants.AuditItemCompleted, EventCategory: constants.AuditCategoryChecklist,
		Payload: map[string]any{"item_id": itemID, "status": string(status), "has_photo": photoURL != ""},
	})
	if status == constants.CompletionPending {
		out.notify(Notice{
			UserID:   booking.OwnerID,
			Title:    "Checklist item ready for review",
			Message:  "\"" + item.Title + "\" was marked done and needs your approval.",
			Category: constants.CategoryChecklist,
			DeepLink: bookingLink(bookingID),
		})
	}
	out.changed(events.TaskTopic(item.TaskID), "checklist_completion", completion.ID, events.ActionInsert, string(status))
	s.flush(ctx, out)

	if status == constants.CompletionApproved {
		s.reevaluate(ctx, bookingID)
	}
	return completion, nil
}

func (s *ChecklistService) ApproveItem(ctx context.Context, completionID, ownerID string) (*model.ChecklistCompletion, error) {
	return s.review(ctx, completionID, ownerID, constants.CompletionApproved, "")
}

func (s *ChecklistService) RejectItem(ctx context.Context, completionID, ownerID, reason string) (*model.ChecklistCompletion, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.ErrValidation.With("a rejection reason is required")
	}
	return s.review(ctx, completionID, ownerID, constants.CompletionRejected, reason)
}

func (s *ChecklistService) review(
	ctx context.Context,
	completionID, ownerID string,
	to constants.CompletionStatus,
	reason string,
) (*model.ChecklistCompletion, error) {
	completion, err := s.store.Checklists.FindCompletion(ctx, completionID)
	if err != nil {
		return nil, err
	}
	booking, err := s.store.Bookings.FindByID(ctx, completion.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.OwnerID != ownerID {
		return nil, apperrors.ErrAuthorization.With("only the task owner can review checklist items")
	}
	if booking.Status != constants.BookingStatusAccepted {
		return nil, apperrors.ErrInvalidStateTransition.With("booking is %s, its checklist is closed", booking.Status)
	}

	if err := s.store.Checklists.ReviewCompletion(ctx, completionID, to, ownerID, reason); err != nil {
		return nil, conflict(err, "completion is %s, only pending completions can be reviewed", completion.Status)
	}

	item, err := s.store.Checklists.FindItem(ctx, completion.ChecklistItemID)
	if err != nil {
		return nil, err
	}

	eventType, title, message := constants.AuditItemApproved, "Checklist item approved", "\""+item.Title+"\" was approved."
	if to == constants.CompletionRejected {
		eventType, title, message = constants.AuditItemRejected, "Checklist item rejected", "\""+item.Title+"\" was rejected: "+reason
	}

	out := &outbox{}
	out.audit(AuditRecord{
		BookingID: booking.ID, TaskID: booking.TaskID, UserID: ownerID,
		EventType: eventType, EventCategory: constants.AuditCategoryChecklist,
		Payload: map[string]any{"item_id": item.ID, "completion_id": completionID, "reason": reason},
	})
	out.notify(Notice{
		UserID:   booking.WorkerID,
		Title:    title,
		Message:  message,
		Category: constants.CategoryChecklist,
		DeepLink: bookingLink(booking.ID),
	})
	out.changed(events.TaskTopic(booking.TaskID), "checklist_completion", completionID, events.ActionUpdate, string(to))
	s.flush(ctx, out)

	if to == constants.CompletionApproved {
		s.reevaluate(ctx, booking.ID)
	}
	return s.store.Checklists.FindCompletion(ctx, completionID)
}

// RetryItem deletes a rejected completion so the item can be completed again.
func (s *ChecklistService) RetryItem(ctx context.Context, completionID, workerID string) error {
	completion, err := s.store.Checklists.FindCompletion(ctx, completionID)
	if err != nil {
		return err
	}
	booking, err := s.store.Bookings.FindByID(ctx, completion.BookingID)
	if err != nil {
		return err
	}
	if booking.WorkerID != workerID {
		return apperrors.ErrAuthorization.With("only the hired worker can retry checklist items")
	}

	if err := s.store.Checklists.DeleteRejectedCompletion(ctx, completionID); err != nil {
		return conflict(err, "completion is %s, only rejected completions can be retried", completion.Status)
	}

	out := &outbox{}
	out.audit(AuditRecord{
		BookingID: booking.ID, TaskID: booking.TaskID, UserID: workerID,
		EventType: constants.AuditItemRetried, EventCategory: constants.AuditCategoryChecklist,
		Payload: map[string]any{"item_id": completion.ChecklistItemID, "completion_id": completionID},
	})
	out.changed(events.TaskTopic(booking.TaskID), "checklist_completion", completionID, events.ActionDelete, "")
	s.flush(ctx, out)
	return nil
}

func (s *ChecklistService) Completions(ctx context.Context, bookingID string) ([]model.ChecklistCompletion, error) {
	return s.store.Checklists.ListCompletions(ctx, bookingID)
}

// Progress reports the checklist state of a booking.
func (s *ChecklistService) Progress(ctx context.Context, bookingID string) (Progress, error) {
	booking, err := s.store.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		return Progress{}, err
	}
	items, err := s.store.Checklists.ListItems(ctx, booking.TaskID)
	if err != nil {
		return Progress{}, err
	}
	completions, err := s.store.Checklists.ListCompletions(ctx, bookingID)
	if err != nil {
		return Progress{}, err
	}
	return ChecklistProgress(items, completions), nil
}

// reevaluate completes the booking once every item is approved. The approval
// itself already succeeded, so failures here are only logged.
func (s *ChecklistService) reevaluate(ctx context.Context, bookingID string) {
	if s.bookings == nil {
		return
	}
	if _, err := s.bookings.TryComplete(ctx, bookingID); err != nil {
		s.log.Error("checklist completion check failed", "booking_id", bookingID, "error", err)
	}
}

func (s *ChecklistService) ownedItem(ctx context.Context, itemID, ownerID string) (*model.ChecklistItem, error) {
	item, err := s.store.Checklists.FindItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedTask(ctx, s.store, item.TaskID, ownerID); err != nil {
		return nil, err
	}
	return item, nil
}
