package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/option"
)

var lima = time.FixedZone("UTC-05:00", -5*60*60)

type request struct {
	method string
	path   string
	query  map[string]string
	body   map[string]any
}

type recorder struct {
	mu   sync.Mutex
	reqs []request
}

func (r *recorder) at(i int) request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reqs[i]
}

func newTestCalendar(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Calendar, *recorder) {
	t.Helper()
	seen := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := request{method: r.Method, path: r.URL.Path, query: map[string]string{}}
		for k := range r.URL.Query() {
			req.query[k] = r.URL.Query().Get(k)
		}
		if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPatch) {
			json.NewDecoder(r.Body).Decode(&req.body)
		}
		seen.mu.Lock()
		seen.reqs = append(seen.reqs, req)
		seen.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cal, err := New(context.Background(), "primary", lima,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatal(err)
	}
	return cal, seen
}

func TestListParsesEvents(t *testing.T) {
	cal, seen := newTestCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[
			{"id":"a","summary":"Gimnasio","start":{"dateTime":"2026-10-17T13:00:00Z"},"end":{"dateTime":"2026-10-17T14:00:00Z"}},
			{"id":"b","summary":"Feriado","start":{"date":"2026-10-18"},"end":{"date":"2026-10-19"}},
			{"id":"c","summary":"Borrado","status":"cancelled","start":{"dateTime":"2026-10-17T15:00:00Z"},"end":{"dateTime":"2026-10-17T16:00:00Z"}}
		]}`))
	})

	start := time.Date(2026, 10, 17, 0, 0, 0, 0, lima)
	events, err := cal.List(context.Background(), start, start.AddDate(0, 0, 7))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID != "a" || !events[0].Start.Equal(time.Date(2026, 10, 17, 8, 0, 0, 0, lima)) {
		t.Errorf("first = %+v", events[0])
	}
	if !events[1].Start.Equal(time.Date(2026, 10, 18, 0, 0, 0, 0, lima)) {
		t.Errorf("all-day start = %v", events[1].Start)
	}

	req := seen.at(0)
	if !strings.HasSuffix(req.path, "/calendars/primary/events") {
		t.Errorf("path = %s", req.path)
	}
	if req.query["singleEvents"] != "true" || req.query["orderBy"] != "startTime" {
		t.Errorf("query = %v", req.query)
	}
	if req.query["timeMin"] != "2026-10-17T00:00:00-05:00" {
		t.Errorf("timeMin = %s", req.query["timeMin"])
	}
}

func TestInsertSendsLocalTimes(t *testing.T) {
	cal, seen := newTestCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"new","summary":"Reunión","start":{"dateTime":"2026-10-17T09:00:00-05:00"},"end":{"dateTime":"2026-10-17T10:00:00-05:00"}}`))
	})

	start := time.Date(2026, 10, 17, 9, 0, 0, 0, lima)
	ev, err := cal.Insert(context.Background(), "Reunión", start, start.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if ev.ID != "new" {
		t.Errorf("id = %q", ev.ID)
	}
	req := seen.at(0)
	if req.method != http.MethodPost {
		t.Errorf("method = %s", req.method)
	}
	if req.body["summary"] != "Reunión" {
		t.Errorf("body = %v", req.body)
	}
	startBody, _ := req.body["start"].(map[string]any)
	if startBody["dateTime"] != "2026-10-17T09:00:00-05:00" {
		t.Errorf("start = %v", startBody)
	}
}

func TestUpdatePatches(t *testing.T) {
	cal, seen := newTestCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"a","summary":"Dentista","start":{"dateTime":"2026-10-20T09:00:00-05:00"},"end":{"dateTime":"2026-10-20T10:00:00-05:00"}}`))
	})

	start := time.Date(2026, 10, 20, 9, 0, 0, 0, lima)
	if _, err := cal.Update(context.Background(), "a", "Dentista", start, start.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	req := seen.at(0)
	if req.method != http.MethodPatch || !strings.HasSuffix(req.path, "/events/a") {
		t.Errorf("%s %s", req.method, req.path)
	}
}

func TestDeleteAndErrors(t *testing.T) {
	cal, seen := newTestCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/events/missing") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := cal.Delete(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	if seen.at(0).method != http.MethodDelete {
		t.Errorf("method = %s", seen.at(0).method)
	}
	if err := cal.Delete(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown event")
	}
}

func TestCredentialOptions(t *testing.T) {
	if got := len(CredentialOptions("", "")); got != 1 {
		t.Errorf("no credentials: %d options", got)
	}
	if got := len(CredentialOptions(`{"type":"service_account"}`, "/tmp/creds.json")); got != 2 {
		t.Errorf("json credentials: %d options", got)
	}
}
