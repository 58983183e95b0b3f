package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskmarket.com/engagement/internal/constants"
	model "taskmarket.com/engagement/internal/models"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	now := time.Now().UTC()
	task.ID = uuid.NewString()
	task.Version = 1
	task.CreatedAt = now
	task.UpdatedAt = now

	return translate(r.db.WithContext(ctx).Create(task).Error)
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (r *TaskRepository) List(ctx context.Context, status constants.TaskStatus) ([]model.Task, error) {
	var tasks []model.Task
	query := r.db.WithContext(ctx).Order("created_at desc")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&tasks).Error
	return tasks, translate(err)
}

// Update writes the editable fields of task, guarded by its version.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND version = ?", task.ID, task.Version).
		Updates(map[string]interface{}{
			"title":       task.Title,
			"description": task.Description,
			"category":    task.Category,
			"location":    task.Location,
			"pay_amount":  task.PayAmount,
			"budget_type": task.BudgetType,
			"updated_at":  now,
			"version":     gorm.Expr("version + 1"),
		})

	if res.Error != nil {
		return translate(res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrOptimisticLock
	}

	task.Version++
	task.UpdatedAt = now
	return nil
}

// TransitionStatus moves a task to `to` only if it is currently in one of
// `from`. It returns ErrOptimisticLock when no row matched.
func (r *TaskRepository) TransitionStatus(
	ctx context.Context,
	id string,
	from []constants.TaskStatus,
	to constants.TaskStatus,
) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
			"version":    gorm.Expr("version + 1"),
		})

	if res.Error != nil {
		return translate(res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrOptimisticLock
	}

	return nil
}
