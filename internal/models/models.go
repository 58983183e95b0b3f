package model

// All lists every persisted model, in migration order.
func All() []any {
	return []any{
		&Task{},
		&Bid{},
		&Booking{},
		&ChecklistItem{},
		&ChecklistCompletion{},
		&Payment{},
		&LedgerEntry{},
		&Notification{},
		&AuditEvent{},
	}
}
