package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"taskmarket.com/engagement/internal/constants"
	apperrors "taskmarket.com/engagement/internal/errors"
	"taskmarket.com/engagement/internal/events"
	model "taskmarket.com/engagement/internal/models"
	repository "taskmarket.com/engagement/internal/repositories"
)

type TaskInput struct {
	Title       string               `json:"title" validate:"required,max=200"`
	Description string               `json:"description" validate:"required,max=5000"`
	Category    string               `json:"category" validate:"max=64"`
	Location    string               `json:"location" validate:"max=255"`
	PayAmount   decimal.Decimal      `json:"pay_amount" validate:"gt=0,lte=100000"`
	BudgetType  constants.BudgetType `json:"budget_type" validate:"required,oneof=fixed hourly"`
}

type TaskService struct {
	base
	escrow *EscrowService
}

func NewTaskService(d Dependencies, escrow *EscrowService) *TaskService {
	return &TaskService{base: newBase(d), escrow: escrow}
}

// CreateTask stores a new task. Unpublished tasks are drafts and only need a
// title; publishing validates the whole task.
func (s *TaskService) CreateTask(ctx context.Context, ownerID string, in TaskInput, publish bool) (*model.Task, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperrors.ErrAuthorization.With("an owner is required")
	}

	status := constants.TaskStatusDraft
	if publish {
		if err := validateInput(in); err != nil {
			return nil, err
		}
		status = constants.TaskStatusOpen
	} else if err := validateDraft(in); err != nil {
		return nil, err
	}

	task := &model.Task{
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Location:    in.Location,
		PayAmount:   in.PayAmount,
		BudgetType:  budgetOrDefault(in.BudgetType),
		Status:      status,
	}
	if err := s.store.Tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	s.log.Info("task created", "task_id", task.ID, "owner_id", ownerID, "status", task.Status)
	s.flush(ctx, &outbox{changes: []events.Change{{
		Topic: events.TaskTopic(task.ID), Entity: "task", EntityID: task.ID,
		Action: events.ActionInsert, Status: string(task.Status),
	}}})
	return task, nil
}

// UpdateDraft auto-saves a draft. Published tasks are immutable here.
func (s *TaskService) UpdateDraft(ctx context.Context, taskID, ownerID string, in TaskInput) (*model.Task, error) {
	if err := validateDraft(in); err != nil {
		return nil, err
	}

	task, err := s.ownedTask(ctx, s.store, taskID, ownerID)
	if err != nil {
		return nil, err
	}
	if task.Status != constants.TaskStatusDraft {
		return nil, apperrors.ErrInvalidStateTransition.With("only draft tasks can be edited, task is %s", task.Status)
	}

	task.Title = in.Title
	task.Description = in.Description
	task.Category = in.Category
	task.Location = in.Location
	task.PayAmount = in.PayAmount
	task.BudgetType = budgetOrDefault(in.BudgetType)

	if err := s.store.Tasks.Update(ctx, task); err != nil {
		return nil, conflict(err, "task %s was modified concurrently", taskID)
	}
	return task, nil
}

func (s *TaskService) PublishTask(ctx context.Context, taskID, ownerID string) (*model.Task, error) {
	task, err := s.ownedTask(ctx, s.store, taskID, ownerID)
	if err != nil {
		return nil, err
	}

	err = validateInput(TaskInput{
		Title:       task.Title,
		Description: task.Description,
		Category:    task.Category,
		Location:    task.Location,
		PayAmount:   task.PayAmount,
		BudgetType:  task.BudgetType,
	})
	if err != nil {
		return nil, err
	}

	err = s.store.Tasks.TransitionStatus(ctx, taskID,
		[]constants.TaskStatus{constants.TaskStatusDraft}, constants.TaskStatusOpen)
	if err != nil {
		return nil, conflict(err, "only draft tasks can be published, task is %s", task.Status)
	}

	out := &outbox{}
	out.changed(events.TaskTopic(taskID), "task", taskID, events.ActionUpdate, string(constants.TaskStatusOpen))
	s.flush(ctx, out)

	return s.store.Tasks.FindByID(ctx, taskID)
}

// CancelTask withdraws a task that has no accepted engagement. Pending bids
// are rejected and pending hire requests are cancelled with a full refund.
func (s *TaskService) CancelTask(ctx context.Context, taskID, ownerID string) (*model.Task, error) {
	out := &outbox{}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		task, err := s.ownedTask(ctx, tx, taskID, ownerID)
		if err != nil {
			return err
		}

		err = tx.Tasks.TransitionStatus(ctx, taskID,
			[]constants.TaskStatus{constants.TaskStatusDraft, constants.TaskStatusOpen},
			constants.TaskStatusCancelled)
		if err != nil {
			return conflict(err, "task in status %s cannot be cancelled", task.Status)
		}

		rejected, err := tx.Bids.RejectPending(ctx, taskID)
		if err != nil {
			return err
		}
		for _, bidder := range rejected {
			out.notify(Notice{
				UserID:   bidder,
				Title:    "Task cancelled",
				Message:  "The task \"" + task.Title + "\" was cancelled by its owner.",
				Category: constants.CategoryBid,
				DeepLink: taskLink(taskID),
			})
		}

		if _, err := withdrawPendingHires(ctx, tx, s.escrow, s.now(), taskID, "", ownerID, "task cancelled", out); err != nil {
			return err
		}

		out.changed(events.TaskTopic(taskID), "task", taskID, events.ActionUpdate, string(constants.TaskStatusCancelled))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.flush(ctx, out)
	s.log.Info("task cancelled", "task_id", taskID)
	return s.store.Tasks.FindByID(ctx, taskID)
}

func (s *TaskService) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return s.store.Tasks.FindByID(ctx, id)
}

func (s *TaskService) ListTasks(ctx context.Context, status constants.TaskStatus) ([]model.Task, error) {
	if status != "" && !status.Valid() {
		return nil, apperrors.ErrValidation.With("unknown task status %q", status)
	}
	return s.store.Tasks.List(ctx, status)
}

func (s *base) ownedTask(ctx context.Context, store *repository.Store, taskID, ownerID string) (*model.Task, error) {
	task, err := store.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != ownerID {
		return nil, apperrors.ErrAuthorization.With("only the task owner can do this")
	}
	return task, nil
}

func validateDraft(in TaskInput) error {
	if err := validate.Var(in.Title, "required,max=200"); err != nil {
		return apperrors.ErrValidation.With("title is required and must be at most 200 characters")
	}
	if in.PayAmount.IsNegative() {
		return apperrors.ErrValidation.With("pay_amount must not be negative")
	}
	if in.BudgetType != "" && !in.BudgetType.Valid() {
		return apperrors.ErrValidation.With("budget_type must be one of [fixed hourly]")
	}
	return nil
}

func budgetOrDefault(b constants.BudgetType) constants.BudgetType {
	if b == "" {
		return constants.BudgetFixed
	}
	return b
}
