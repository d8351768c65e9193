package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"climate_scheduler/internal/models"
	"climate_scheduler/internal/service"
)

func TestLogsHandler_ParsesFiltersAndForwardsGroup(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	el := &mockEventLog{resp: []models.ScheduleEvent{
		{GroupName: "living", Trigger: models.TriggerScheduled},
	}}
	s := &service.Service{Authorization: auth, Scheduler: &mockScheduler{}, Management: &mockManagement{}, EventLog: el}
	r := newTestRouter(s)

	w := doRequest(r, http.MethodGet, "/api/v1/logs/events?from=2026-03-01&to=2026-03-02&group=living", nil, "valid")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}

	if el.lastFilter.GroupName != "living" {
		t.Fatalf("group filter not forwarded: %+v", el.lastFilter)
	}
	wantFrom := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !el.lastFilter.From.Equal(wantFrom) {
		t.Fatalf("from mismatch: %v", el.lastFilter.From)
	}
	// Date-only "to" covers the whole day.
	wantTo := time.Date(2026, 3, 2, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	if !el.lastFilter.To.Equal(wantTo) {
		t.Fatalf("to should be end of day, got %v", el.lastFilter.To)
	}

	var resp struct {
		Count  int                    `json:"count"`
		Events []models.ScheduleEvent `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 || len(resp.Events) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestLogsHandler_InvalidTimeIsBadRequest(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	s := &service.Service{Authorization: auth, Scheduler: &mockScheduler{}, Management: &mockManagement{}, EventLog: &mockEventLog{}}
	r := newTestRouter(s)

	if w := doRequest(r, http.MethodGet, "/api/v1/logs/events?from=notatime", nil, "valid"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad time, got %d", w.Code)
	}
}

func TestPerformanceHandler_ReturnsSessions(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	perf := &mockPerformance{resp: []models.PerformanceSession{
		{EntityID: "climate.living", SessionType: "heating", RatePerHour: 1.9, Completed: true},
	}}
	s := &service.Service{Authorization: auth, Scheduler: &mockScheduler{}, Management: &mockManagement{}, Performance: perf}
	r := newTestRouter(s)

	w := doRequest(r, http.MethodGet, "/api/v1/logs/performance/climate.living?window=168h", nil, "valid")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Count    int                         `json:"count"`
		Sessions []models.PerformanceSession `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 || resp.Sessions[0].SessionType != "heating" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
