package dto

import (
	"github.com/shopspring/decimal"

	model "taskmarket.com/engagement/internal/models"
)

type AcceptBidResponse struct {
	BookingID string `json:"booking_id"`
}

type WalletResponse struct {
	AccountID string              `json:"account_id"`
	Balance   decimal.Decimal     `json:"balance"`
	Entries   []model.LedgerEntry `json:"entries"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}
