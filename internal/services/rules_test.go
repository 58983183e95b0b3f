package services

import (
	"errors"
	"testing"
	"time"

	"taskmarket.com/engagement/internal/constants"
	apperrors "taskmarket.com/engagement/internal/errors"
	model "taskmarket.com/engagement/internal/models"
)

func TestSortBids_AscendingAndStable(t *testing.T) {
	bids := []model.Bid{
		{ID: "a", Amount: money(100)},
		{ID: "b", Amount: money(80)},
		{ID: "c", Amount: money(100)},
		{ID: "d", Amount: money(50)},
	}

	SortBids(bids)

	want := []string{"d", "b", "a", "c"}
	for i, id := range want {
		if bids[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, bids[i].ID)
		}
	}
}

func TestChecklistProgress(t *testing.T) {
	items := []model.ChecklistItem{{ID: "i1"}, {ID: "i2"}, {ID: "i3"}, {ID: "i4"}}

	cases := []struct {
		name        string
		completions []model.ChecklistCompletion
		want        Progress
	}{
		{
			name: "nothing done",
			want: Progress{Total: 4},
		},
		{
			name: "mixed",
			completions: []model.ChecklistCompletion{
				{ChecklistItemID: "i1", Status: constants.CompletionApproved},
				{ChecklistItemID: "i2", Status: constants.CompletionPending},
				{ChecklistItemID: "i3", Status: constants.CompletionRejected},
			},
			want: Progress{Total: 4, Approved: 1, Pending: 1, Rejected: 1, Percent: 25},
		},
		{
			name: "all approved",
			completions: []model.ChecklistCompletion{
				{ChecklistItemID: "i1", Status: constants.CompletionApproved},
				{ChecklistItemID: "i2", Status: constants.CompletionApproved},
				{ChecklistItemID: "i3", Status: constants.CompletionApproved},
				{ChecklistItemID: "i4", Status: constants.CompletionApproved},
			},
			want: Progress{Total: 4, Approved: 4, Percent: 100, Complete: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ChecklistProgress(items, tc.completions); got != tc.want {
				t.Errorf("expected %+v, got %+v", tc.want, got)
			}
		})
	}

	if !AllItemsApproved(nil, nil) {
		t.Error("an empty checklist should count as approved")
	}
}

func TestPlatformFee(t *testing.T) {
	cases := []struct {
		amount  int64
		percent int
		want    string
	}{
		{100, 10, "10"},
		{150, 10, "15"},
		{0, 10, "0"},
		{99, 15, "14.85"},
	}
	for _, tc := range cases {
		got := PlatformFee(money(tc.amount), tc.percent)
		if got.String() != tc.want {
			t.Errorf("fee of %d at %d%%: expected %s, got %s", tc.amount, tc.percent, tc.want, got)
		}
	}
}

func TestCancellationPolicy_RefundPercent(t *testing.T) {
	policy := DefaultCancellationPolicy()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(d)
		return &ts
	}

	cases := []struct {
		name      string
		scheduled *time.Time
		want      int
	}{
		{"unscheduled", nil, 100},
		{"three days out", at(72 * time.Hour), 100},
		{"exactly 48h", at(48 * time.Hour), 100},
		{"30h out", at(30 * time.Hour), 50},
		{"exactly 24h", at(24 * time.Hour), 50},
		{"18h out", at(18 * time.Hour), 25},
		{"6h out", at(6 * time.Hour), 0},
		{"already started", at(-time.Hour), 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.RefundPercent(tc.scheduled, now); got != tc.want {
				t.Errorf("expected %d%%, got %d%%", tc.want, got)
			}
		})
	}
}

func TestDeclineReason(t *testing.T) {
	cases := []struct {
		reason, details string
		want            string
		wantErr         bool
	}{
		{reason: constants.DeclineReasonNotAvailable, want: "Not available"},
		{reason: constants.DeclineReasonTooFar, details: "other side of town", want: "Too far away: other side of town"},
		{reason: constants.DeclineReasonOther, details: "moving house", want: "Other: moving house"},
		{reason: constants.DeclineReasonOther, wantErr: true},
		{reason: "  ", wantErr: true},
		{reason: "feeling unwell", want: "feeling unwell"},
	}

	for _, tc := range cases {
		got, err := DeclineReason(tc.reason, tc.details)
		if tc.wantErr {
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Errorf("%q: expected ErrValidation, got %v", tc.reason, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("%q/%q: expected %q, got %q (%v)", tc.reason, tc.details, tc.want, got, err)
		}
	}
}
