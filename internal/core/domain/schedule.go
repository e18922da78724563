package domain

import (
	"math"
	"sort"
	"time"
)

// DirectoryEntry maps a display name to its canonical contact address.
type DirectoryEntry struct {
	DisplayName string `json:"display_name"`
	Address     string `json:"address"`
}

type CalendarEvent struct {
	ID              string    `json:"id,omitempty"`
	Subject         string    `json:"subject"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	IsAllDay        bool      `json:"is_all_day,omitempty"`
	ConferencingURL string    `json:"conferencing_url,omitempty"`
}

// MeetingRequest is the payload for creating a calendar event.
type MeetingRequest struct {
	Subject            string    `json:"subject"`
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	OrganizerName      string    `json:"organizer_name"`
	OrganizerAddress   string    `json:"organizer_address"`
	Attendees          []string  `json:"attendees,omitempty"`
	Body               string    `json:"body,omitempty"`
	ConferencingEnable bool      `json:"conferencing_enabled"`
}

type BusyInterval struct {
	Subject string    `json:"subject,omitempty"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

type FreeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Hours float64   `json:"hours"`
}

// ComputeFreeSlots sweeps sorted busy intervals within [open, close) and
// returns the positive-duration gaps. Inputs must already be normalized to
// one timezone; the sweep itself is timezone-agnostic.
func ComputeFreeSlots(busy []BusyInterval, open, close time.Time) []FreeSlot {
	if !open.Before(close) {
		return nil
	}
	if len(busy) == 0 {
		return []FreeSlot{newFreeSlot(open, close)}
	}

	sorted := append([]BusyInterval(nil), busy...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	slots := make([]FreeSlot, 0, len(sorted)+1)
	if open.Before(sorted[0].Start) {
		slots = append(slots, newFreeSlot(open, sorted[0].Start))
	}
	for i := 0; i < len(sorted)-1; i++ {
		gapStart := sorted[i].End
		gapEnd := sorted[i+1].Start
		if gapStart.Before(gapEnd) {
			slots = append(slots, newFreeSlot(gapStart, gapEnd))
		}
	}
	last := sorted[len(sorted)-1].End
	if last.Before(close) {
		slots = append(slots, newFreeSlot(last, close))
	}
	return slots
}

func newFreeSlot(start, end time.Time) FreeSlot {
	hours := end.Sub(start).Hours()
	return FreeSlot{
		Start: start,
		End:   end,
		Hours: math.Round(hours*10) / 10,
	}
}
