// Package nldate resolves natural-language date and time phrases into
// canonical calendar dates and timezone-correct instants. All "today"
// calculations are anchored to the business timezone, never the server
// timezone or UTC: naive UTC arithmetic is off by one day during the
// evening hours in the business timezone.
package nldate

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// BusinessTimezone is the fixed civil timezone for all user-facing
	// date/time resolution.
	BusinessTimezone = "America/New_York"

	// DateLayout is the canonical output format.
	DateLayout = "2006-01-02"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var (
	isoDateRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	slashDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	clockRe     = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
	compactRe   = regexp.MustCompile(`^(\d{3,4})\s*(am|pm)?$`)
)

// Location returns the business timezone location.
func Location() *time.Location {
	loc, err := time.LoadLocation(BusinessTimezone)
	if err != nil {
		// The tzdata for US Eastern ships with every supported platform;
		// a load failure means a broken environment.
		panic(fmt.Sprintf("load business timezone: %v", err))
	}
	return loc
}

// ResolveDate converts a phrase like "next monday", "tomorrow" or
// "3/14/2026" into YYYY-MM-DD. Empty or unparseable input resolves to
// today in the business timezone; unparseable input additionally logs a
// warning rather than failing, because date resolution feeds tool
// arguments and must never block a request.
func ResolveDate(phrase string, now time.Time) string {
	local := now.In(Location())
	today := local.Format(DateLayout)

	p := strings.ToLower(strings.TrimSpace(phrase))
	if p == "" || p == "today" {
		return today
	}

	switch p {
	case "tomorrow":
		return local.AddDate(0, 0, 1).Format(DateLayout)
	case "yesterday":
		return local.AddDate(0, 0, -1).Format(DateLayout)
	}

	if target, ok := strings.CutPrefix(p, "next "); ok {
		if wd, known := weekdays[strings.TrimSpace(target)]; known {
			return local.AddDate(0, 0, daysUntilNextWeek(local.Weekday(), wd)).Format(DateLayout)
		}
	}

	if wd, coming, ok := sameWeekdayPhrase(p); ok {
		return local.AddDate(0, 0, daysUntilThisWeek(local.Weekday(), wd, coming)).Format(DateLayout)
	}

	if isoDateRe.MatchString(p) {
		return p
	}
	if m := slashDateRe.FindStringSubmatch(p); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		}
	}

	if parsed, ok := parseGenericDate(p); ok {
		return parsed.Format(DateLayout)
	}

	slog.Warn("unparseable_date_phrase", "phrase", phrase, "fallback", today)
	return today
}

// daysUntilNextWeek always rolls to next week's occurrence: "next monday"
// said on a Monday means seven days out, never zero.
func daysUntilNextWeek(current, target time.Weekday) int {
	days := (int(target) - int(current) + 7) % 7
	if days == 0 {
		days = 7
	}
	return days
}

// daysUntilThisWeek resolves "this <weekday>" style phrases: the same-week
// occurrence if still ahead, the current day when it matches and no
// "coming" qualifier is present, or a full week out when the qualifier is
// present and today already is that weekday.
func daysUntilThisWeek(current, target time.Weekday, coming bool) int {
	days := (int(target) - int(current) + 7) % 7
	if days == 0 && coming {
		days = 7
	}
	return days
}

func sameWeekdayPhrase(p string) (wd time.Weekday, coming bool, ok bool) {
	for _, prefix := range []string{"this coming ", "coming ", "this "} {
		if target, found := strings.CutPrefix(p, prefix); found {
			if known, exists := weekdays[strings.TrimSpace(target)]; exists {
				return known, prefix != "this ", true
			}
		}
	}
	return 0, false, false
}

func parseGenericDate(p string) (time.Time, bool) {
	layouts := []string{
		"January 2, 2006",
		"January 2 2006",
		"Jan 2, 2006",
		"Jan 2 2006",
		"2 January 2006",
		"2006/01/02",
	}
	candidate := capitalizeWords(p)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, candidate, Location()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func capitalizeWords(p string) string {
	words := strings.Fields(p)
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// ResolveClockTime parses "H", "H:MM", "HHMM"/"HMM" with an optional
// AM/PM suffix. When AM/PM is absent and the hour is below 8, PM is
// assumed: "book it at 2" almost always means 2pm in business usage. This
// is a deliberate, documented guess.
func ResolveClockTime(phrase string) (hour, minute int, err error) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	if p == "" {
		return 0, 0, fmt.Errorf("%w: empty time phrase", errInvalidTime)
	}

	var meridiem string
	if m := compactRe.FindStringSubmatch(p); m != nil && len(m[1]) >= 3 {
		digits := m[1]
		meridiem = m[2]
		hour, _ = strconv.Atoi(digits[:len(digits)-2])
		minute, _ = strconv.Atoi(digits[len(digits)-2:])
	} else if m := clockRe.FindStringSubmatch(p); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		meridiem = m[3]
	} else {
		return 0, 0, fmt.Errorf("%w: %q", errInvalidTime, phrase)
	}

	if minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute out of range in %q", errInvalidTime, phrase)
	}

	switch meridiem {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	default:
		// PM-assumption heuristic for bare low hours.
		if hour < 8 {
			hour += 12
		}
	}
	if hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour out of range in %q", errInvalidTime, phrase)
	}
	return hour, minute, nil
}

var errInvalidTime = errors.New("invalid clock time")

// ZonedInstant builds the instant for the given civil date and time of day
// in the business timezone. time.Date resolves the UTC offset for the
// specific date, so standard versus daylight-saving time is handled
// without a hardcoded offset.
func ZonedInstant(date string, hour, minute int) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, date, Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, Location()), nil
}
