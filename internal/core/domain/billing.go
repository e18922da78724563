package domain

import "time"

// StaffEntry maps a display name to the ledger identifier used when
// submitting time entries.
type StaffEntry struct {
	DisplayName string `json:"display_name"`
	StaffID     string `json:"staff_id"`
}

type TimeEntry struct {
	ID      string  `json:"id,omitempty"`
	StaffID string  `json:"staff_id"`
	Date    string  `json:"date"`
	Hours   float64 `json:"hours"`
	Project string  `json:"project,omitempty"`
	Notes   string  `json:"notes,omitempty"`
}

type TimeEntryFilter struct {
	StaffID string
	From    time.Time
	To      time.Time
}
