package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type TaskRequestData struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Location    string          `json:"location"`
	PayAmount   decimal.Decimal `json:"pay_amount"`
	BudgetType  string          `json:"budget_type"`
	Publish     bool            `json:"publish"`
}

type BidRequestData struct {
	Amount         decimal.Decimal `json:"amount"`
	Message        string          `json:"message"`
	EstimatedHours *float64        `json:"estimated_hours"`
}

type BidPatchRequestData struct {
	Amount         *decimal.Decimal `json:"amount"`
	Message        *string          `json:"message"`
	EstimatedHours *float64         `json:"estimated_hours"`
}

type HireRequestData struct {
	WorkerID    string          `json:"worker_id"`
	Amount      decimal.Decimal `json:"amount"`
	Message     string          `json:"message"`
	ScheduledAt *time.Time      `json:"scheduled_at"`
}

type DeclineRequestData struct {
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

type CancelRequestData struct {
	Reason string `json:"reason"`
}

type ChecklistItemRequestData struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	RequiresPhoto    bool   `json:"requires_photo"`
	RequiresApproval bool   `json:"requires_giver_approval"`
	DisplayOrder     *int   `json:"display_order"`
}

type CompleteItemRequestData struct {
	BookingID string `json:"booking_id"`
	PhotoURL  string `json:"photo_url"`
}

type RejectItemRequestData struct {
	Reason string `json:"reason"`
}
