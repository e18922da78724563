package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/harborworks/concierge/internal/core/domain"
	"github.com/harborworks/concierge/internal/core/nldate"
)

type fakeDirectory struct {
	users     []domain.DirectoryEntry
	usersErr  error
	listCalls int

	events []domain.CalendarEvent
	calErr error

	createdReq  *domain.MeetingRequest
	createdAddr string
	createEvent *domain.CalendarEvent
	createErr   error
}

func (d *fakeDirectory) ListUsers(context.Context) ([]domain.DirectoryEntry, error) {
	d.listCalls++
	return d.users, d.usersErr
}

func (d *fakeDirectory) CalendarView(_ context.Context, _ string, _, _ time.Time) ([]domain.CalendarEvent, error) {
	return d.events, d.calErr
}

func (d *fakeDirectory) CreateEvent(_ context.Context, address string, req domain.MeetingRequest) (*domain.CalendarEvent, error) {
	d.createdAddr = address
	d.createdReq = &req
	if d.createErr != nil {
		return nil, d.createErr
	}
	if d.createEvent != nil {
		return d.createEvent, nil
	}
	created := domain.CalendarEvent{Subject: req.Subject, Start: req.Start, End: req.End}
	return &created, nil
}

var testDirectory = []domain.DirectoryEntry{
	{DisplayName: "Jordan Reyes", Address: "jordan.reyes@harborworks.example"},
	{DisplayName: "Jordan Blake", Address: "jordan.blake@harborworks.example"},
	{DisplayName: "Riley Chen", Address: "riley.chen@harborworks.example"},
}

func schedulingAt(dir *fakeDirectory, now time.Time) *SchedulingService {
	return NewSchedulingService(dir, func() time.Time { return now })
}

func TestResolvePersonExactMatchWins(t *testing.T) {
	dir := &fakeDirectory{users: testDirectory}
	svc := schedulingAt(dir, time.Now())

	entry, err := svc.ResolvePerson(context.Background(), "jordan reyes")
	if err != nil {
		t.Fatalf("ResolvePerson: %v", err)
	}
	if entry.Address != "jordan.reyes@harborworks.example" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestResolvePersonUniqueSubstring(t *testing.T) {
	dir := &fakeDirectory{users: testDirectory}
	svc := schedulingAt(dir, time.Now())

	entry, err := svc.ResolvePerson(context.Background(), "riley")
	if err != nil {
		t.Fatalf("ResolvePerson: %v", err)
	}
	if entry.DisplayName != "Riley Chen" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestResolvePersonAmbiguousNeverGuesses(t *testing.T) {
	dir := &fakeDirectory{users: testDirectory}
	svc := schedulingAt(dir, time.Now())

	_, err := svc.ResolvePerson(context.Background(), "jordan")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input for ambiguous name, got %v", err)
	}
	if !strings.Contains(err.Error(), "ambiguous") || !strings.Contains(err.Error(), "Riley Chen") {
		t.Fatalf("error must carry sample names: %v", err)
	}
}

func TestResolvePersonNotFoundListsKnownNames(t *testing.T) {
	dir := &fakeDirectory{users: testDirectory}
	svc := schedulingAt(dir, time.Now())

	_, err := svc.ResolvePerson(context.Background(), "casey")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if !strings.Contains(err.Error(), "Jordan Blake") {
		t.Fatalf("error must carry sample names: %v", err)
	}
}

func TestResolvePersonAddressPassesThroughWithoutLookup(t *testing.T) {
	dir := &fakeDirectory{users: testDirectory}
	svc := schedulingAt(dir, time.Now())

	entry, err := svc.ResolvePerson(context.Background(), "outside@partner.example")
	if err != nil {
		t.Fatalf("ResolvePerson: %v", err)
	}
	if entry.Address != "outside@partner.example" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if dir.listCalls != 0 {
		t.Fatalf("an explicit address must not hit the directory")
	}
}

func TestAvailabilityComputesFreeSlotsInBusinessHours(t *testing.T) {
	loc := nldate.Location()
	day := "2026-08-28"
	dir := &fakeDirectory{
		users: testDirectory,
		events: []domain.CalendarEvent{
			{Subject: "standup", Start: time.Date(2026, 8, 28, 9, 0, 0, 0, loc), End: time.Date(2026, 8, 28, 10, 0, 0, 0, loc)},
			{Subject: "review", Start: time.Date(2026, 8, 28, 14, 0, 0, 0, loc), End: time.Date(2026, 8, 28, 15, 0, 0, 0, loc)},
		},
	}
	svc := schedulingAt(dir, time.Date(2026, 8, 28, 8, 0, 0, 0, loc))

	result, err := svc.Availability(context.Background(), "riley", day)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if result.Date != day || result.Timezone != nldate.BusinessTimezone {
		t.Fatalf("unexpected result header: %+v", result)
	}
	if len(result.Busy) != 2 || result.Busy[0].Start != "09:00" || result.Busy[1].End != "15:00" {
		t.Fatalf("unexpected busy windows: %+v", result.Busy)
	}

	if len(result.FreeSlots) != 2 {
		t.Fatalf("expected 2 free slots, got %+v", result.FreeSlots)
	}
	first, second := result.FreeSlots[0], result.FreeSlots[1]
	if first.Start != "10:00" || first.End != "14:00" || first.Hours != 4.0 {
		t.Fatalf("unexpected first slot: %+v", first)
	}
	if second.Start != "15:00" || second.End != "17:00" || second.Hours != 2.0 {
		t.Fatalf("unexpected second slot: %+v", second)
	}
}

func TestAvailabilitySkipsAllDayAndClipsToWindow(t *testing.T) {
	loc := nldate.Location()
	dir := &fakeDirectory{
		users: testDirectory,
		events: []domain.CalendarEvent{
			{Subject: "out of office", IsAllDay: true, Start: time.Date(2026, 8, 28, 0, 0, 0, 0, loc), End: time.Date(2026, 8, 29, 0, 0, 0, 0, loc)},
			{Subject: "early sync", Start: time.Date(2026, 8, 28, 8, 0, 0, 0, loc), End: time.Date(2026, 8, 28, 9, 30, 0, 0, loc)},
			{Subject: "evening call", Start: time.Date(2026, 8, 28, 16, 30, 0, 0, loc), End: time.Date(2026, 8, 28, 19, 0, 0, 0, loc)},
		},
	}
	svc := schedulingAt(dir, time.Date(2026, 8, 28, 8, 0, 0, 0, loc))

	result, err := svc.Availability(context.Background(), "riley", "2026-08-28")
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if len(result.Busy) != 2 {
		t.Fatalf("all-day events must be skipped, got %+v", result.Busy)
	}
	if result.Busy[0].Start != "09:00" || result.Busy[0].End != "09:30" {
		t.Fatalf("early event must clip to the window open: %+v", result.Busy[0])
	}
	if result.Busy[1].End != "17:00" {
		t.Fatalf("late event must clip to the window close: %+v", result.Busy[1])
	}
	if len(result.FreeSlots) != 1 || result.FreeSlots[0].Start != "09:30" || result.FreeSlots[0].End != "16:30" {
		t.Fatalf("unexpected free slots: %+v", result.FreeSlots)
	}
}

func TestBookRequiresLookedUpOrganizerAddress(t *testing.T) {
	dir := &fakeDirectory{users: testDirectory}
	svc := schedulingAt(dir, time.Now())

	_, err := svc.Book(context.Background(), BookingParams{
		Person:  "riley",
		Subject: "sync",
		Start:   "2026-08-28 10:00",
		End:     "2026-08-28 10:30",
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input, got %v", err)
	}
	if !strings.Contains(err.Error(), toolListDirectoryEntries) {
		t.Fatalf("error must point the model at the directory tool: %v", err)
	}
	if dir.createdReq != nil {
		t.Fatalf("no event may be created without an organizer address")
	}
}

func TestBookRejectsInvertedTimeRange(t *testing.T) {
	svc := schedulingAt(&fakeDirectory{users: testDirectory}, time.Now())

	_, err := svc.Book(context.Background(), BookingParams{
		OrganizerAddress: "owner@harborworks.example",
		Person:           "riley",
		Subject:          "sync",
		Start:            "2026-08-28 11:00",
		End:              "2026-08-28 10:30",
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input, got %v", err)
	}
}

func TestBookCreatesConferencedEvent(t *testing.T) {
	loc := nldate.Location()
	dir := &fakeDirectory{
		users: testDirectory,
		createEvent: &domain.CalendarEvent{
			Subject:         "quarterly sync",
			Start:           time.Date(2026, 8, 28, 10, 0, 0, 0, loc),
			End:             time.Date(2026, 8, 28, 10, 30, 0, 0, loc),
			ConferencingURL: "https://teams.example/join/abc",
		},
	}
	svc := schedulingAt(dir, time.Date(2026, 8, 28, 8, 0, 0, 0, loc))

	booking, err := svc.Book(context.Background(), BookingParams{
		OrganizerAddress: "owner@harborworks.example",
		OrganizerName:    "Owner",
		Person:           "riley",
		Subject:          "quarterly sync",
		Start:            "2026-08-28 10:00",
		End:              "2026-08-28 10:30",
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if dir.createdAddr != "owner@harborworks.example" {
		t.Fatalf("event must be created on the organizer's calendar, got %q", dir.createdAddr)
	}
	if !dir.createdReq.ConferencingEnable {
		t.Fatalf("conferencing must always be requested")
	}
	if len(dir.createdReq.Attendees) != 1 || dir.createdReq.Attendees[0] != "riley.chen@harborworks.example" {
		t.Fatalf("resolved attendee must be on the request: %v", dir.createdReq.Attendees)
	}

	if booking.Weekday != "Friday" || booking.Date != "2026-08-28" {
		t.Fatalf("unexpected booking day: %+v", booking)
	}
	if booking.StartTime != "10:00" || booking.EndTime != "10:30" || booking.DurationMinutes != 30 {
		t.Fatalf("unexpected booking times: %+v", booking)
	}
	if booking.ConferencingURL != "https://teams.example/join/abc" {
		t.Fatalf("conferencing URL must surface: %+v", booking)
	}
	if booking.Person != "Riley Chen" {
		t.Fatalf("booking must carry the resolved display name: %+v", booking)
	}
}
