// Package report renders billing data into downloadable files.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/harborworks/concierge/internal/core/domain"
)

const sheetName = "Timesheet"

// TimesheetWriter renders time entries into an XLSX workbook under the
// configured output directory.
type TimesheetWriter struct {
	outputDir string
	now       func() time.Time
}

func NewTimesheetWriter(outputDir string, now func() time.Time) *TimesheetWriter {
	if now == nil {
		now = time.Now
	}
	return &TimesheetWriter{outputDir: outputDir, now: now}
}

func (w *TimesheetWriter) WriteTimesheet(staffName string, entries []domain.TimeEntry) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	file := excelize.NewFile()
	defer func() {
		_ = file.Close()
	}()

	sheet, err := file.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	file.SetActiveSheet(sheet)
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("drop default sheet: %w", err)
	}

	headers := []string{"Date", "Hours", "Project", "Notes"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", fmt.Errorf("header cell name: %w", err)
		}
		if err := file.SetCellValue(sheetName, cell, header); err != nil {
			return "", fmt.Errorf("write header: %w", err)
		}
	}

	total := 0.0
	for row, entry := range entries {
		values := []any{entry.Date, entry.Hours, entry.Project, entry.Notes}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return "", fmt.Errorf("entry cell name: %w", err)
			}
			if err := file.SetCellValue(sheetName, cell, value); err != nil {
				return "", fmt.Errorf("write entry: %w", err)
			}
		}
		total += entry.Hours
	}

	totalRow := len(entries) + 2
	if err := file.SetCellValue(sheetName, fmt.Sprintf("A%d", totalRow), "Total"); err != nil {
		return "", fmt.Errorf("write total label: %w", err)
	}
	if err := file.SetCellValue(sheetName, fmt.Sprintf("B%d", totalRow), total); err != nil {
		return "", fmt.Errorf("write total hours: %w", err)
	}

	path := filepath.Join(w.outputDir, w.fileName(staffName))
	if err := file.SaveAs(path); err != nil {
		return "", fmt.Errorf("save timesheet: %w", err)
	}
	return path, nil
}

// fileName flattens the staff name into a filesystem-safe slug with a
// timestamp so repeated exports never overwrite each other.
func (w *TimesheetWriter) fileName(staffName string) string {
	slug := strings.ToLower(strings.TrimSpace(staffName))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, slug)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "timesheet"
	}
	return fmt.Sprintf("%s-%s.xlsx", slug, w.now().UTC().Format("20060102-150405"))
}
