package constants

type LedgerEntryType string

const (
	LedgerEscrowHold    LedgerEntryType = "escrow_hold"
	LedgerEscrowRelease LedgerEntryType = "escrow_release"
	LedgerPlatformFee   LedgerEntryType = "platform_fee"
	LedgerRefund        LedgerEntryType = "refund"
)

// PlatformAccount receives platform fees in the ledger.
const PlatformAccount = "platform"

type NotificationCategory string

const (
	CategoryBid       NotificationCategory = "bid"
	CategoryHire      NotificationCategory = "hire"
	CategoryBooking   NotificationCategory = "booking"
	CategoryChecklist NotificationCategory = "checklist"
	CategoryPayment   NotificationCategory = "payment"
)

type AuditEventType string

const (
	AuditBidAccepted      AuditEventType = "bid_accepted"
	AuditHireRequested    AuditEventType = "hire_requested"
	AuditHireAccepted     AuditEventType = "hire_accepted"
	AuditHireDeclined     AuditEventType = "hire_declined"
	AuditBookingCompleted AuditEventType = "booking_completed"
	AuditBookingCancelled AuditEventType = "booking_cancelled"
	AuditItemCompleted    AuditEventType = "checklist_item_completed"
	AuditItemApproved     AuditEventType = "checklist_item_approved"
	AuditItemRejected     AuditEventType = "checklist_item_rejected"
	AuditItemRetried      AuditEventType = "checklist_item_retried"
	AuditEscrowHeld       AuditEventType = "escrow_held"
	AuditEscrowReleased   AuditEventType = "escrow_released"
	AuditEscrowRefunded   AuditEventType = "escrow_refunded"
)

type AuditCategory string

const (
	AuditCategoryBooking   AuditCategory = "booking"
	AuditCategoryChecklist AuditCategory = "checklist"
	AuditCategoryPayment   AuditCategory = "payment"
)

// Decline reasons a worker can pick from. DeclineReasonOther needs details.
const (
	DeclineReasonNotAvailable     = "not_available"
	DeclineReasonScheduleConflict = "schedule_conflict"
	DeclineReasonTooFar           = "too_far"
	DeclineReasonPriceTooLow      = "price_too_low"
	DeclineReasonOther            = "other"
)

var DeclineReasonLabels = map[string]string{
	DeclineReasonNotAvailable:     "Not available",
	DeclineReasonScheduleConflict: "Schedule conflict",
	DeclineReasonTooFar:           "Too far away",
	DeclineReasonPriceTooLow:      "Price too low",
	DeclineReasonOther:            "Other",
}

// Bid input bounds.
const (
	MaxBidAmount     = 100000
	MaxBidMessageLen = 1000
)
