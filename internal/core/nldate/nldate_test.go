package nldate

import (
	"testing"
	"time"
)

// anchor returns a fixed reference instant expressed in UTC that falls on
// the given weekday in the business timezone.
func anchor(t *testing.T, weekday time.Weekday) time.Time {
	t.Helper()
	// 2026-08-24 is a Monday; walk forward to the requested weekday.
	base := time.Date(2026, 8, 24, 15, 0, 0, 0, Location())
	for base.Weekday() != weekday {
		base = base.AddDate(0, 0, 1)
	}
	return base.UTC()
}

func TestResolveDateKeywords(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, Location())

	tests := []struct {
		phrase string
		want   string
	}{
		{"", "2026-08-24"},
		{"today", "2026-08-24"},
		{"Tomorrow", "2026-08-25"},
		{"yesterday", "2026-08-23"},
		{"2026-09-01", "2026-09-01"},
		{"9/1/2026", "2026-09-01"},
		{"march 3, 2027", "2027-03-03"},
	}
	for _, tc := range tests {
		if got := ResolveDate(tc.phrase, now); got != tc.want {
			t.Fatalf("ResolveDate(%q) = %q, want %q", tc.phrase, got, tc.want)
		}
	}
}

func TestResolveDateEveningStaysOnBusinessDay(t *testing.T) {
	// 23:30 Eastern is already the next day in UTC; "today" must still
	// resolve to the Eastern calendar date.
	now := time.Date(2026, 8, 24, 23, 30, 0, 0, Location()).UTC()
	if got := ResolveDate("today", now); got != "2026-08-24" {
		t.Fatalf("ResolveDate(today) late evening = %q, want 2026-08-24", got)
	}
}

func TestResolveDateNextWeekdayAlwaysRollsForward(t *testing.T) {
	names := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	for _, current := range []time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
		time.Thursday, time.Friday, time.Saturday,
	} {
		now := anchor(t, current)
		localToday := now.In(Location())
		for name, target := range names {
			got := ResolveDate("next "+name, now)
			day, err := time.ParseInLocation(DateLayout, got, Location())
			if err != nil {
				t.Fatalf("parse resolved date %q: %v", got, err)
			}
			ahead := int(day.Sub(time.Date(localToday.Year(), localToday.Month(), localToday.Day(), 0, 0, 0, 0, Location())).Hours() / 24)
			if ahead < 1 || ahead > 7 {
				t.Fatalf("next %s from %s resolved %d days ahead", name, current, ahead)
			}
			if day.Weekday() != target {
				t.Fatalf("next %s from %s resolved to weekday %s", name, current, day.Weekday())
			}
		}
	}
}

func TestResolveDateThisComingWeekday(t *testing.T) {
	monday := anchor(t, time.Monday)
	if got := ResolveDate("this coming monday", monday); got != monday.In(Location()).AddDate(0, 0, 7).Format(DateLayout) {
		t.Fatalf("this coming monday on a Monday = %q, want +7 days", got)
	}

	tuesday := anchor(t, time.Tuesday)
	want := tuesday.In(Location()).AddDate(0, 0, 6).Format(DateLayout)
	if got := ResolveDate("this coming monday", tuesday); got != want {
		t.Fatalf("this coming monday on a Tuesday = %q, want %q", got, want)
	}

	// Without the "coming" qualifier, a matching weekday resolves to today.
	if got := ResolveDate("this monday", monday); got != monday.In(Location()).Format(DateLayout) {
		t.Fatalf("this monday on a Monday = %q, want today", got)
	}
}

func TestResolveDateUnparseableFallsBackToToday(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, Location())
	if got := ResolveDate("whenever works", now); got != "2026-08-24" {
		t.Fatalf("unparseable phrase = %q, want today", got)
	}
}

func TestResolveClockTime(t *testing.T) {
	tests := []struct {
		phrase     string
		hour, min  int
		shouldFail bool
	}{
		{"930", 9, 30, false},
		{"2", 14, 0, false}, // PM-assumption heuristic
		{"11:00 AM", 11, 0, false},
		{"1430", 14, 30, false},
		{"7:15", 19, 15, false},
		{"12 am", 0, 0, false},
		{"5pm", 17, 0, false},
		{"9", 9, 0, false},
		{"", 0, 0, true},
		{"noonish", 0, 0, true},
		{"1299", 0, 0, true},
	}
	for _, tc := range tests {
		hour, minute, err := ResolveClockTime(tc.phrase)
		if tc.shouldFail {
			if err == nil {
				t.Fatalf("ResolveClockTime(%q) expected error", tc.phrase)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ResolveClockTime(%q) error = %v", tc.phrase, err)
		}
		if hour != tc.hour || minute != tc.min {
			t.Fatalf("ResolveClockTime(%q) = %d:%02d, want %d:%02d", tc.phrase, hour, minute, tc.hour, tc.min)
		}
	}
}

func TestZonedInstantHandlesDSTBoundary(t *testing.T) {
	// Eastern time is UTC-5 in January and UTC-4 in July.
	winter, err := ZonedInstant("2026-01-15", 10, 0)
	if err != nil {
		t.Fatalf("ZonedInstant winter error = %v", err)
	}
	if winter.UTC().Hour() != 15 {
		t.Fatalf("winter 10:00 Eastern = %02d:00 UTC, want 15:00", winter.UTC().Hour())
	}

	summer, err := ZonedInstant("2026-07-15", 10, 0)
	if err != nil {
		t.Fatalf("ZonedInstant summer error = %v", err)
	}
	if summer.UTC().Hour() != 14 {
		t.Fatalf("summer 10:00 Eastern = %02d:00 UTC, want 14:00", summer.UTC().Hour())
	}
}

func TestZonedInstantRejectsBadDate(t *testing.T) {
	if _, err := ZonedInstant("not-a-date", 9, 0); err == nil {
		t.Fatalf("expected error for invalid date")
	}
}
