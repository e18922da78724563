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

const maxHoursPerEntry = 24

// BillingService owns staff resolution and time-entry operations against
// the external accounting service. Submissions are single-attempt; a
// downstream rejection surfaces to the model as a tool error.
type BillingService struct {
	ledger     ports.TimeLedger
	timesheets ports.TimesheetWriter
	now        func() time.Time
}

func NewBillingService(ledger ports.TimeLedger, timesheets ports.TimesheetWriter, now func() time.Time) *BillingService {
	if now == nil {
		now = time.Now
	}
	return &BillingService{ledger: ledger, timesheets: timesheets, now: now}
}

func (s *BillingService) ListStaff(ctx context.Context) (*StaffListResult, error) {
	entries, err := s.ledger.ListStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return &StaffListResult{Entries: entries}, nil
}

// ResolveStaff follows the same rules as directory resolution: exact
// case-insensitive match, then unique substring match, never a guess.
func (s *BillingService) ResolveStaff(ctx context.Context, person string) (domain.StaffEntry, error) {
	person = strings.TrimSpace(person)
	if person == "" {
		return domain.StaffEntry{}, domain.WrapError(domain.ErrInvalidInput, "resolve staff", fmt.Errorf("person is required"))
	}

	entries, err := s.ledger.ListStaff(ctx)
	if err != nil {
		return domain.StaffEntry{}, fmt.Errorf("resolve staff %q: %w", person, err)
	}

	lowered := strings.ToLower(person)
	for _, entry := range entries {
		if strings.ToLower(entry.DisplayName) == lowered {
			return entry, nil
		}
	}

	var partial []domain.StaffEntry
	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.DisplayName), lowered) {
			partial = append(partial, entry)
		}
	}
	if len(partial) == 1 {
		return partial[0], nil
	}

	samples := sampleStaffNames(entries)
	if len(partial) > 1 {
		return domain.StaffEntry{}, domain.WrapError(domain.ErrInvalidInput, "resolve staff",
			fmt.Errorf("name %q is ambiguous (%d matches); known staff include: %s", person, len(partial), samples))
	}
	return domain.StaffEntry{}, domain.WrapError(domain.ErrNotFound, "resolve staff",
		fmt.Errorf("no staff entry matches %q; known staff include: %s", person, samples))
}

func sampleStaffNames(entries []domain.StaffEntry) string {
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

func (s *BillingService) LogTime(ctx context.Context, person, datePhrase string, hours float64, project, notes string) (*TimeEntryResult, error) {
	if hours <= 0 || hours > maxHoursPerEntry {
		return nil, domain.WrapError(domain.ErrInvalidInput, "log time entry",
			fmt.Errorf("hours must be greater than 0 and at most %d, got %v", maxHoursPerEntry, hours))
	}

	staff, err := s.ResolveStaff(ctx, person)
	if err != nil {
		return nil, err
	}

	entry := domain.TimeEntry{
		StaffID: staff.StaffID,
		Date:    nldate.ResolveDate(datePhrase, s.now()),
		Hours:   hours,
		Project: strings.TrimSpace(project),
		Notes:   strings.TrimSpace(notes),
	}
	submitted, err := s.ledger.SubmitTimeEntry(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("submit time entry: %w", err)
	}
	return &TimeEntryResult{StaffName: staff.DisplayName, Entry: *submitted}, nil
}

func (s *BillingService) ListEntries(ctx context.Context, person, fromPhrase, toPhrase string) (*TimeEntriesResult, error) {
	staff, err := s.ResolveStaff(ctx, person)
	if err != nil {
		return nil, err
	}

	from, to, err := s.resolveRange(fromPhrase, toPhrase)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledger.ListTimeEntries(ctx, domain.TimeEntryFilter{
		StaffID: staff.StaffID,
		From:    from,
		To:      to,
	})
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}

	total := 0.0
	for _, entry := range entries {
		total += entry.Hours
	}
	return &TimeEntriesResult{
		StaffName:  staff.DisplayName,
		From:       from.In(nldate.Location()).Format(nldate.DateLayout),
		To:         to.In(nldate.Location()).Format(nldate.DateLayout),
		Entries:    entries,
		TotalHours: total,
	}, nil
}

func (s *BillingService) ExportTimesheet(ctx context.Context, person, fromPhrase, toPhrase string) (*TimesheetExportResult, error) {
	listed, err := s.ListEntries(ctx, person, fromPhrase, toPhrase)
	if err != nil {
		return nil, err
	}

	path, err := s.timesheets.WriteTimesheet(listed.StaffName, listed.Entries)
	if err != nil {
		return nil, fmt.Errorf("write timesheet: %w", err)
	}
	return &TimesheetExportResult{
		StaffName: listed.StaffName,
		Path:      path,
		Entries:   len(listed.Entries),
	}, nil
}

// resolveRange defaults to the trailing seven days ending today.
func (s *BillingService) resolveRange(fromPhrase, toPhrase string) (time.Time, time.Time, error) {
	toDate := nldate.ResolveDate(toPhrase, s.now())
	fromDate := ""
	if strings.TrimSpace(fromPhrase) != "" {
		fromDate = nldate.ResolveDate(fromPhrase, s.now())
	}

	to, err := nldate.ZonedInstant(toDate, 23, 59)
	if err != nil {
		return time.Time{}, time.Time{}, domain.WrapError(domain.ErrInvalidInput, "resolve range", err)
	}

	var from time.Time
	if fromDate == "" {
		from = to.AddDate(0, 0, -7)
	} else {
		from, err = nldate.ZonedInstant(fromDate, 0, 0)
		if err != nil {
			return time.Time{}, time.Time{}, domain.WrapError(domain.ErrInvalidInput, "resolve range", err)
		}
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, domain.WrapError(domain.ErrInvalidInput, "resolve range",
			fmt.Errorf("from %s is after to %s", fromDate, toDate))
	}
	return from, to, nil
}
