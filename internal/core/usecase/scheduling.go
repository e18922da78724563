package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harborworks/concierge/internal/core/domain"
	"github.com/harborworks/concierge/internal/core/nldate"
	"github.com/harborworks/concierge/internal/core/ports"
)

const (
	businessOpenHour  = 9
	businessCloseHour = 17

	maxSampleNames = 5
)

// SchedulingService owns directory name resolution, availability checks
// and meeting creation against the external directory/calendar service.
type SchedulingService struct {
	directory ports.Directory
	now       func() time.Time
}

func NewSchedulingService(directory ports.Directory, now func() time.Time) *SchedulingService {
	if now == nil {
		now = time.Now
	}
	return &SchedulingService{directory: directory, now: now}
}

func (s *SchedulingService) ListDirectory(ctx context.Context) (*DirectoryListResult, error) {
	entries, err := s.directory.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list directory entries: %w", err)
	}
	return &DirectoryListResult{Entries: entries}, nil
}

// ResolvePerson maps free text to exactly one directory entry. It never
// guesses: an exact case-insensitive display-name match wins, then a
// unique substring match; anything else is an error carrying a short
// sample of known names.
func (s *SchedulingService) ResolvePerson(ctx context.Context, person string) (domain.DirectoryEntry, error) {
	person = strings.TrimSpace(person)
	if person == "" {
		return domain.DirectoryEntry{}, domain.WrapError(domain.ErrInvalidInput, "resolve person", fmt.Errorf("person is required"))
	}
	if strings.Contains(person, "@") {
		return domain.DirectoryEntry{DisplayName: person, Address: person}, nil
	}

	entries, err := s.directory.ListUsers(ctx)
	if err != nil {
		return domain.DirectoryEntry{}, fmt.Errorf("resolve person %q: %w", person, err)
	}

	lowered := strings.ToLower(person)
	for _, entry := range entries {
		if strings.ToLower(entry.DisplayName) == lowered {
			return entry, nil
		}
	}

	var partial []domain.DirectoryEntry
	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.DisplayName), lowered) {
			partial = append(partial, entry)
		}
	}
	if len(partial) == 1 {
		return partial[0], nil
	}

	samples := sampleNames(entries)
	if len(partial) > 1 {
		return domain.DirectoryEntry{}, domain.WrapError(domain.ErrInvalidInput, "resolve person",
			fmt.Errorf("name %q is ambiguous (%d matches); known people include: %s", person, len(partial), samples))
	}
	return domain.DirectoryEntry{}, domain.WrapError(domain.ErrNotFound, "resolve person",
		fmt.Errorf("no directory entry matches %q; known people include: %s", person, samples))
}

func sampleNames(entries []domain.DirectoryEntry) string {
	names := make([]string, 0, maxSampleNames)
	for _, entry := range entries {
		if len(names) == maxSampleNames {
			break
		}
		names = append(names, entry.DisplayName)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Availability returns the person's busy intervals for the resolved date,
// normalized to the business timezone, plus the free gaps within the
// 9:00-17:00 business-hours window.
func (s *SchedulingService) Availability(ctx context.Context, person, datePhrase string) (*AvailabilityResult, error) {
	entry, err := s.ResolvePerson(ctx, person)
	if err != nil {
		return nil, err
	}

	date := nldate.ResolveDate(datePhrase, s.now())
	open, err := nldate.ZonedInstant(date, businessOpenHour, 0)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "availability", err)
	}
	close, err := nldate.ZonedInstant(date, businessCloseHour, 0)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "availability", err)
	}

	events, err := s.directory.CalendarView(ctx, entry.Address, open, close)
	if err != nil {
		return nil, fmt.Errorf("calendar view for %s: %w", entry.Address, err)
	}

	loc := nldate.Location()
	busy := make([]domain.BusyInterval, 0, len(events))
	for _, event := range events {
		if event.IsAllDay {
			continue
		}
		// Normalize before sorting and comparing; clipping to the window
		// keeps the sweep bounded.
		start := event.Start.In(loc)
		end := event.End.In(loc)
		if start.Before(open) {
			start = open
		}
		if end.After(close) {
			end = close
		}
		if !start.Before(end) {
			continue
		}
		busy = append(busy, domain.BusyInterval{Subject: event.Subject, Start: start, End: end})
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })

	result := &AvailabilityResult{
		Person:   entry.DisplayName,
		Address:  entry.Address,
		Date:     date,
		Timezone: nldate.BusinessTimezone,
	}
	for _, interval := range busy {
		result.Busy = append(result.Busy, AvailabilityWindow{
			Start:   interval.Start.Format("15:04"),
			End:     interval.End.Format("15:04"),
			Subject: interval.Subject,
		})
	}
	for _, slot := range domain.ComputeFreeSlots(busy, open, close) {
		result.FreeSlots = append(result.FreeSlots, FreeWindow{
			Start: slot.Start.In(loc).Format("15:04"),
			End:   slot.End.In(loc).Format("15:04"),
			Hours: slot.Hours,
		})
	}
	return result, nil
}

// BookingParams are the validated inputs to Book.
type BookingParams struct {
	Person           string
	Subject          string
	Start            string
	End              string
	OrganizerName    string
	OrganizerAddress string
	Attendees        []string
	Body             string
}

func (s *SchedulingService) Book(ctx context.Context, params BookingParams) (*BookingResult, error) {
	// The organizer address must come from a directory lookup, never be
	// inferred; the error text tells the model exactly how to recover.
	if strings.TrimSpace(params.OrganizerAddress) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "book meeting",
			fmt.Errorf("organizerAddress is required and must not be guessed; call %s first to look it up", toolListDirectoryEntries))
	}
	if strings.TrimSpace(params.Subject) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "book meeting", fmt.Errorf("subject is required"))
	}

	start, err := parseMeetingTime(params.Start)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "book meeting", fmt.Errorf("invalid start: %w", err))
	}
	end, err := parseMeetingTime(params.End)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "book meeting", fmt.Errorf("invalid end: %w", err))
	}
	if !end.After(start) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "book meeting",
			fmt.Errorf("end %s must be after start %s", params.End, params.Start))
	}

	entry, err := s.ResolvePerson(ctx, params.Person)
	if err != nil {
		return nil, err
	}

	attendees := append([]string{entry.Address}, params.Attendees...)
	created, err := s.directory.CreateEvent(ctx, params.OrganizerAddress, domain.MeetingRequest{
		Subject:            params.Subject,
		Start:              start,
		End:                end,
		OrganizerName:      params.OrganizerName,
		OrganizerAddress:   params.OrganizerAddress,
		Attendees:          attendees,
		Body:               params.Body,
		ConferencingEnable: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	loc := nldate.Location()
	localStart := created.Start.In(loc)
	localEnd := created.End.In(loc)
	return &BookingResult{
		Subject:         created.Subject,
		Person:          entry.DisplayName,
		Weekday:         localStart.Weekday().String(),
		Date:            localStart.Format(nldate.DateLayout),
		StartTime:       localStart.Format("15:04"),
		EndTime:         localEnd.Format("15:04"),
		DurationMinutes: int(localEnd.Sub(localStart).Minutes()),
		ConferencingURL: created.ConferencingURL,
		Attendees:       attendees,
	}, nil
}

func parseMeetingTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date-time")
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
	for _, layout := range layouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, raw, nldate.Location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date-time %q", raw)
}
