package services

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	configs "taskmarket.com/engagement/internal/configs"
	"taskmarket.com/engagement/internal/constants"
	apperrors "taskmarket.com/engagement/internal/errors"
	model "taskmarket.com/engagement/internal/models"
)

var hundred = decimal.NewFromInt(100)

// SortBids orders bids by ascending amount. Bids with equal amounts keep
// their submission order, so the input must already be in that order.
func SortBids(bids []model.Bid) {
	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].Amount.LessThan(bids[j].Amount)
	})
}

// Progress summarises a booking's checklist.
type Progress struct {
	Total    int  `json:"total"`
	Approved int  `json:"approved"`
	Pending  int  `json:"pending"`
	Rejected int  `json:"rejected"`
	Percent  int  `json:"percent"`
	Complete bool `json:"complete"`
}

// ChecklistProgress computes progress of the items against the completions
// recorded for one booking. Percent is for display only; Complete is the
// gate and requires every item to be approved.
func ChecklistProgress(items []model.ChecklistItem, completions []model.ChecklistCompletion) Progress {
	byItem := make(map[string]constants.CompletionStatus, len(completions))
	for _, c := range completions {
		byItem[c.ChecklistItemID] = c.Status
	}

	p := Progress{Total: len(items)}
	for _, item := range items {
		switch byItem[item.ID] {
		case constants.CompletionApproved:
			p.Approved++
		case constants.CompletionPending:
			p.Pending++
		case constants.CompletionRejected:
			p.Rejected++
		}
	}

	if p.Total > 0 {
		p.Percent = p.Approved * 100 / p.Total
	}
	p.Complete = p.Approved == p.Total
	return p
}

// AllItemsApproved reports whether every item has an approved completion
// among completions. An empty checklist is trivially approved.
func AllItemsApproved(items []model.ChecklistItem, completions []model.ChecklistCompletion) bool {
	return ChecklistProgress(items, completions).Complete
}

// PlatformFee is the share of amount the marketplace keeps, rounded to cents.
func PlatformFee(amount decimal.Decimal, percent int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(percent))).Div(hundred).Round(2)
}

// PercentOf returns percent% of amount rounded to cents.
func PercentOf(amount decimal.Decimal, percent int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(percent))).Div(hundred).Round(2)
}

// CancellationPolicy maps the time left before a booking's scheduled start to
// the percentage of the held amount refunded to the owner.
type CancellationPolicy struct {
	FullRefund    time.Duration
	PartialRefund time.Duration
	PartialPct    int
	LateRefund    time.Duration
	LatePct       int
}

func NewCancellationPolicy(cfg configs.CancellationConfig) CancellationPolicy {
	return CancellationPolicy{
		FullRefund:    time.Duration(cfg.FullRefundHours) * time.Hour,
		PartialRefund: time.Duration(cfg.PartialRefundHours) * time.Hour,
		PartialPct:    cfg.PartialRefundPercent,
		LateRefund:    time.Duration(cfg.LateRefundHours) * time.Hour,
		LatePct:       cfg.LateRefundPercent,
	}
}

// DefaultCancellationPolicy: full refund from 48h out, half from 24h, a
// quarter from 12h, nothing after.
func DefaultCancellationPolicy() CancellationPolicy {
	return NewCancellationPolicy(configs.CancellationConfig{
		FullRefundHours:      48,
		PartialRefundHours:   24,
		PartialRefundPercent: 50,
		LateRefundHours:      12,
		LateRefundPercent:    25,
	})
}

// RefundPercent evaluates the policy at now. Bookings without a schedule are
// refunded in full.
func (p CancellationPolicy) RefundPercent(scheduledAt *time.Time, now time.Time) int {
	if scheduledAt == nil {
		return 100
	}

	left := scheduledAt.Sub(now)
	switch {
	case left >= p.FullRefund:
		return 100
	case left >= p.PartialRefund:
		return p.PartialPct
	case left >= p.LateRefund:
		return p.LatePct
	default:
		return 0
	}
}

// DeclineReason normalises the reason a worker gives for declining. A known
// code is replaced by its label; "other" needs details; anything else is
// kept as free text.
func DeclineReason(reason, details string) (string, error) {
	reason = strings.TrimSpace(reason)
	details = strings.TrimSpace(details)

	if reason == "" {
		return "", apperrors.ErrValidation.With("a decline reason is required")
	}

	label, known := constants.DeclineReasonLabels[reason]
	switch {
	case reason == constants.DeclineReasonOther && details == "":
		return "", apperrors.ErrValidation.With("please describe the reason for declining")
	case known && details != "":
		return label + ": " + details, nil
	case known:
		return label, nil
	case details != "":
		return reason + ": " + details, nil
	default:
		return reason, nil
	}
}
