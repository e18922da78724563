package graph

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/harborworks/concierge/internal/core/domain"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(Config{
		BaseURL:      server.URL,
		TokenURL:     server.URL + "/token",
		ClientID:     "id",
		ClientSecret: "secret",
		Scope:        "default",
	}, nil)
	return client, server
}

func TestListUsersReusesCachedToken(t *testing.T) {
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Fatalf("unexpected grant type: %s", r.Form.Get("grant_type"))
		}
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
	})
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			t.Fatalf("missing bearer token: %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"value":[
			{"displayName":"Jordan Lee","mail":"jordan@harborworks.example"},
			{"displayName":"No Mailbox","mail":""}
		]}`))
	})

	client, _ := newTestClient(t, mux)

	for i := 0; i < 3; i++ {
		entries, err := client.ListUsers(context.Background())
		if err != nil {
			t.Fatalf("ListUsers() error = %v", err)
		}
		if len(entries) != 1 || entries[0].Address != "jordan@harborworks.example" {
			t.Fatalf("unexpected entries: %+v", entries)
		}
	}
	if tokenCalls != 1 {
		t.Fatalf("expected 1 token fetch, got %d", tokenCalls)
	}
}

func TestCalendarViewParsesZoneQualifiedTimes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	})
	mux.HandleFunc("/users/jordan@harborworks.example/calendarView", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":[{
			"id":"ev-1",
			"subject":"Standup",
			"start":{"dateTime":"2026-08-24T09:00:00.0000000","timeZone":"America/New_York"},
			"end":{"dateTime":"2026-08-24T09:30:00.0000000","timeZone":"America/New_York"}
		}]}`))
	})

	client, _ := newTestClient(t, mux)
	events, err := client.CalendarView(context.Background(), "jordan@harborworks.example",
		time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("CalendarView() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	// 09:00 Eastern in August is 13:00 UTC.
	if got := events[0].Start.UTC().Hour(); got != 13 {
		t.Fatalf("expected 13:00 UTC start, got %d:00", got)
	}
}

func TestStatusErrorsMapToDomainKinds(t *testing.T) {
	cases := []struct {
		status int
		kind   error
	}{
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrPermission},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusServiceUnavailable, domain.ErrTemporary},
	}

	for _, tc := range cases {
		mux := http.NewServeMux()
		mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
		})
		status := tc.status
		mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", status)
		})

		client, _ := newTestClient(t, mux)
		_, err := client.ListUsers(context.Background())
		if !domain.IsKind(err, tc.kind) {
			t.Fatalf("status %d: expected kind %v, got %v", tc.status, tc.kind, err)
		}
	}
}

func TestCreateEventSendsUTCWindowAndDecodesJoinURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	})
	mux.HandleFunc("/users/jordan@harborworks.example/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		_, _ = w.Write([]byte(`{
			"id":"ev-2",
			"subject":"Project kickoff",
			"start":{"dateTime":"2026-08-25T14:00:00","timeZone":"UTC"},
			"end":{"dateTime":"2026-08-25T15:00:00","timeZone":"UTC"},
			"onlineMeeting":{"joinUrl":"https://meet.example/ev-2"}
		}`))
	})

	client, _ := newTestClient(t, mux)
	event, err := client.CreateEvent(context.Background(), "jordan@harborworks.example", domain.MeetingRequest{
		Subject:            "Project kickoff",
		Start:              time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC),
		End:                time.Date(2026, 8, 25, 15, 0, 0, 0, time.UTC),
		OrganizerAddress:   "pat@harborworks.example",
		ConferencingEnable: true,
	})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if event.ConferencingURL != "https://meet.example/ev-2" {
		t.Fatalf("unexpected conferencing url: %s", event.ConferencingURL)
	}
}
