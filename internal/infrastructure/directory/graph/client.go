// Package graph implements the directory and calendar boundary against a
// Microsoft Graph style HTTP API: user listing, calendar views and event
// creation, authenticated with a client-credentials bearer token.
package graph

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
	"github.com/harborworks/concierge/internal/infrastructure/cache"
)

const tokenCacheKey = "directory-access-token"

type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string

	// TokenTTL bounds how long a fetched token is reused. Kept below the
	// provider's real expiry so a cached token is never presented stale.
	TokenTTL time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     *cache.TTLMap[string]
}

func New(cfg Config, clock cache.Clock) *Client {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 45 * time.Minute
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     cache.NewTTLMap[string](cfg.TokenTTL, clock),
	}
}

type userPayload struct {
	DisplayName string `json:"displayName"`
	Mail        string `json:"mail"`
}

type listUsersResponse struct {
	Value []userPayload `json:"value"`
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.DirectoryEntry, error) {
	var response listUsersResponse
	if err := c.doJSON(ctx, http.MethodGet, "/users", nil, &response, "list users"); err != nil {
		return nil, err
	}

	entries := make([]domain.DirectoryEntry, 0, len(response.Value))
	for _, user := range response.Value {
		if user.Mail == "" {
			continue
		}
		entries = append(entries, domain.DirectoryEntry{
			DisplayName: user.DisplayName,
			Address:     user.Mail,
		})
	}
	return entries, nil
}

type eventTimePayload struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type onlineMeetingPayload struct {
	JoinURL string `json:"joinUrl"`
}

type eventPayload struct {
	ID            string                `json:"id,omitempty"`
	Subject       string                `json:"subject"`
	Start         eventTimePayload      `json:"start"`
	End           eventTimePayload      `json:"end"`
	IsAllDay      bool                  `json:"isAllDay,omitempty"`
	OnlineMeeting *onlineMeetingPayload `json:"onlineMeeting,omitempty"`
}

type calendarViewResponse struct {
	Value []eventPayload `json:"value"`
}

func (c *Client) CalendarView(ctx context.Context, address string, start, end time.Time) ([]domain.CalendarEvent, error) {
	path := fmt.Sprintf("/users/%s/calendarView?startDateTime=%s&endDateTime=%s",
		url.PathEscape(address),
		url.QueryEscape(start.UTC().Format(time.RFC3339)),
		url.QueryEscape(end.UTC().Format(time.RFC3339)),
	)

	var response calendarViewResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &response, "calendar view"); err != nil {
		return nil, err
	}

	events := make([]domain.CalendarEvent, 0, len(response.Value))
	for _, payload := range response.Value {
		event, err := decodeEvent(payload)
		if err != nil {
			return nil, fmt.Errorf("decode calendar event: %w", err)
		}
		events = append(events, event)
	}
	return events, nil
}

func (c *Client) CreateEvent(ctx context.Context, address string, req domain.MeetingRequest) (*domain.CalendarEvent, error) {
	attendees := make([]map[string]any, 0, len(req.Attendees))
	for _, attendee := range req.Attendees {
		attendees = append(attendees, map[string]any{
			"emailAddress": map[string]string{"address": attendee},
			"type":         "required",
		})
	}

	payload := map[string]any{
		"subject": req.Subject,
		"start":   eventTimePayload{DateTime: req.Start.UTC().Format("2006-01-02T15:04:05"), TimeZone: "UTC"},
		"end":     eventTimePayload{DateTime: req.End.UTC().Format("2006-01-02T15:04:05"), TimeZone: "UTC"},
		"body": map[string]string{
			"contentType": "text",
			"content":     req.Body,
		},
		"attendees":             attendees,
		"isOnlineMeeting":       req.ConferencingEnable,
		"onlineMeetingProvider": "teamsForBusiness",
	}

	var response eventPayload
	path := fmt.Sprintf("/users/%s/events", url.PathEscape(address))
	if err := c.doJSON(ctx, http.MethodPost, path, payload, &response, "create event"); err != nil {
		return nil, err
	}

	event, err := decodeEvent(response)
	if err != nil {
		return nil, fmt.Errorf("decode created event: %w", err)
	}
	return &event, nil
}

func decodeEvent(payload eventPayload) (domain.CalendarEvent, error) {
	start, err := parseGraphTime(payload.Start)
	if err != nil {
		return domain.CalendarEvent{}, err
	}
	end, err := parseGraphTime(payload.End)
	if err != nil {
		return domain.CalendarEvent{}, err
	}

	event := domain.CalendarEvent{
		ID:       payload.ID,
		Subject:  payload.Subject,
		Start:    start,
		End:      end,
		IsAllDay: payload.IsAllDay,
	}
	if payload.OnlineMeeting != nil {
		event.ConferencingURL = payload.OnlineMeeting.JoinURL
	}
	return event, nil
}

// parseGraphTime handles the API's zone-qualified local timestamps; bare
// timestamps default to the named zone, UTC when none resolves.
func parseGraphTime(payload eventTimePayload) (time.Time, error) {
	loc := time.UTC
	if payload.TimeZone != "" {
		if parsed, err := time.LoadLocation(payload.TimeZone); err == nil {
			loc = parsed
		}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.0000000", "2006-01-02T15:04:05"} {
		if ts, err := time.ParseInLocation(layout, payload.DateTime, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable event time: %q", payload.DateTime)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any, operation string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

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
	req.Header.Set("Authorization", "Bearer "+token)
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

// statusError maps HTTP failures onto the domain error kinds the tool
// layer uses to pick remediation hints.
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

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	if token, ok := c.tokens.Get(tokenCacheKey); ok {
		return token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("scope", c.cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.WrapError(domain.ErrTemporary, "fetch token", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", statusError("fetch token", resp)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", domain.WrapError(domain.ErrUnauthorized, "fetch token", fmt.Errorf("empty access token"))
	}

	c.tokens.Put(tokenCacheKey, token.AccessToken)
	return token.AccessToken, nil
}
