package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"taskmarket.com/engagement/internal/constants"
)

type Task struct {
	ID          string               `gorm:"primaryKey;size:36" json:"id"`
	OwnerID     string               `gorm:"size:64;not null;index" json:"owner_id"`
	Title       string               `gorm:"not null" json:"title"`
	Description string               `gorm:"not null" json:"description"`
	Category    string               `gorm:"size:64" json:"category"`
	Location    string               `json:"location"`
	PayAmount   decimal.Decimal      `gorm:"type:numeric;not null" json:"pay_amount"`
	BudgetType  constants.BudgetType `gorm:"type:varchar(10);not null" json:"budget_type"`
	Status      constants.TaskStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Version     uint                 `gorm:"not null;default:1" json:"version"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func (t *Task) AfterFind(tx *gorm.DB) error {
	if !t.Status.Valid() {
		return fmt.Errorf("task %s: unknown status %q", t.ID, t.Status)
	}
	if !t.BudgetType.Valid() {
		return fmt.Errorf("task %s: unknown budget type %q", t.ID, t.BudgetType)
	}
	return nil
}
