// Package ledger implements the time-entry accounting boundary against an
// API-key authenticated HTTP service.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harborworks/concierge/internal/core/domain"
)

type Config struct {
	BaseURL string
	APIKey  string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type staffPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *Client) ListStaff(ctx context.Context) ([]domain.StaffEntry, error) {
	var response struct {
		Staff []staffPayload `json:"staff"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/staff", nil, &response, "list staff"); err != nil {
		return nil, err
	}

	entries := make([]domain.StaffEntry, 0, len(response.Staff))
	for _, staff := range response.Staff {
		entries = append(entries, domain.StaffEntry{
			DisplayName: staff.Name,
			StaffID:     staff.ID,
		})
	}
	return entries, nil
}

type timeEntryPayload struct {
	ID      string  `json:"id,omitempty"`
	StaffID string  `json:"staff_id"`
	Date    string  `json:"date"`
	Hours   float64 `json:"hours"`
	Project string  `json:"project,omitempty"`
	Notes   string  `json:"notes,omitempty"`
}

func (c *Client) SubmitTimeEntry(ctx context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error) {
	payload := timeEntryPayload{
		StaffID: entry.StaffID,
		Date:    entry.Date,
		Hours:   entry.Hours,
		Project: entry.Project,
		Notes:   entry.Notes,
	}

	var response timeEntryPayload
	if err := c.doJSON(ctx, http.MethodPost, "/time-entries", payload, &response, "submit time entry"); err != nil {
		return nil, err
	}

	created := decodeEntry(response)
	return &created, nil
}

func (c *Client) ListTimeEntries(ctx context.Context, filter domain.TimeEntryFilter) ([]domain.TimeEntry, error) {
	query := url.Values{}
	if filter.StaffID != "" {
		query.Set("staff_id", filter.StaffID)
	}
	if !filter.From.IsZero() {
		query.Set("from", filter.From.UTC().Format(time.RFC3339))
	}
	if !filter.To.IsZero() {
		query.Set("to", filter.To.UTC().Format(time.RFC3339))
	}

	path := "/time-entries"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var response struct {
		Entries []timeEntryPayload `json:"entries"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &response, "list time entries"); err != nil {
		return nil, err
	}

	out := make([]domain.TimeEntry, 0, len(response.Entries))
	for _, payload := range response.Entries {
		out = append(out, decodeEntry(payload))
	}
	return out, nil
}

func decodeEntry(payload timeEntryPayload) domain.TimeEntry {
	return domain.TimeEntry{
		ID:      payload.ID,
		StaffID: payload.StaffID,
		Date:    payload.Date,
		Hours:   payload.Hours,
		Project: payload.Project,
		Notes:   payload.Notes,
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any, operation string) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", operation, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(operation, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func statusError(operation string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	cause := fmt.Errorf("status %s: %s", resp.Status, strings.TrimSpace(string(raw)))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.WrapError(domain.ErrUnauthorized, operation, cause)
	case resp.StatusCode == http.StatusForbidden:
		return domain.WrapError(domain.ErrPermission, operation, cause)
	case resp.StatusCode == http.StatusNotFound:
		return domain.WrapError(domain.ErrNotFound, operation, cause)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return domain.WrapError(domain.ErrTemporary, operation, cause)
	default:
		return domain.WrapError(domain.ErrInvalidInput, operation, cause)
	}
}
