package tui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fangio/fangio/internal/schema"
)

func TestRenderEvent(t *testing.T) {
	cases := []struct {
		name string
		evt  schema.AuditEvent
		want []string
	}{
		{
			"plan created",
			schema.AuditEvent{Type: schema.EventPlanCreated, Data: map[string]any{"goal": "check health"}},
			[]string{"plan created", "check health"},
		},
		{
			"step started",
			schema.AuditEvent{Type: schema.EventStepStarted, StepID: "step-1", Data: map[string]any{"tool": "docker.ps"}},
			[]string{"started", "step-1", "docker.ps"},
		},
		{
			"step output first line only",
			schema.AuditEvent{Type: schema.EventStepOutput, StepID: "step-1", Data: map[string]any{"stdout": "line one\nline two"}},
			[]string{"output", "line one …"},
		},
		{
			"step error",
			schema.AuditEvent{Type: schema.EventStepError, StepID: "step-2", Data: map[string]any{"error": "Step not approved, skipping"}},
			[]string{"error", "Step not approved, skipping"},
		},
		{
			"execution finished",
			schema.AuditEvent{Type: schema.EventExecutionFinished},
			[]string{"execution finished"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			line := renderEvent(tc.evt)
			for _, want := range tc.want {
				if !strings.Contains(line, want) {
					t.Errorf("renderEvent = %q, missing %q", line, want)
				}
			}
		})
	}
}

func TestModelAccumulatesEvents(t *testing.T) {
	source := make(chan schema.AuditEvent, 4)
	m := New("plan-1", source)

	next, _ := m.Update(eventMsg(schema.AuditEvent{Type: schema.EventStepStarted, StepID: "step-1"}))
	m = next.(Model)
	if m.count != 1 || m.done {
		t.Errorf("after one event: count=%d done=%v", m.count, m.done)
	}

	next, _ = m.Update(eventMsg(schema.AuditEvent{Type: schema.EventExecutionFinished}))
	m = next.(Model)
	if !m.done {
		t.Error("execution.finished did not mark the model done")
	}
	if !strings.Contains(m.statusLine(), "execution finished") {
		t.Errorf("status = %q", m.statusLine())
	}
}

func TestModelQuitKeys(t *testing.T) {
	m := New("plan-1", make(chan schema.AuditEvent))
	keys := []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	}
	for _, key := range keys {
		if _, cmd := m.Update(key); cmd == nil {
			t.Errorf("key %q did not quit", key.String())
		}
	}
}

func TestWaitForEventClosedChannel(t *testing.T) {
	source := make(chan schema.AuditEvent)
	close(source)
	if msg := waitForEvent(source)(); msg != (streamClosedMsg{}) {
		t.Errorf("msg = %#v, want streamClosedMsg", msg)
	}
}

func TestFollowSSE(t *testing.T) {
	events := []schema.AuditEvent{
		{PlanID: "plan-1", Type: schema.EventPlanCreated, Timestamp: "2026-02-19T00:00:00Z"},
		{PlanID: "plan-1", Type: schema.EventExecutionFinished, Timestamp: "2026-02-19T00:00:01Z"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("planId") != "plan-1" {
			t.Errorf("planId = %q", r.URL.Query().Get("planId"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(": keepalive\n\n"))
		for _, evt := range events {
			data, _ := json.Marshal(evt)
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
		}
	}))
	defer srv.Close()

	ch, err := FollowSSE(context.Background(), srv.URL, "plan-1")
	if err != nil {
		t.Fatalf("FollowSSE: %v", err)
	}

	var got []schema.AuditEvent
	for evt := range ch {
		got = append(got, evt)
	}
	if len(got) != 2 || got[0].Type != schema.EventPlanCreated || got[1].Type != schema.EventExecutionFinished {
		t.Errorf("streamed events = %+v", got)
	}
}

func TestFollowSSEBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	if _, err := FollowSSE(context.Background(), srv.URL, "plan-1"); err == nil {
		t.Error("expected error for non-200 stream response")
	}
}

func writeRunFile(t *testing.T, dir, planID string, events []schema.AuditEvent) {
	t.Helper()
	data, err := json.Marshal(events)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "runs"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "runs", planID+".json"), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWatchRunExistingFile(t *testing.T) {
	dir := t.TempDir()
	writeRunFile(t, dir, "plan-1", []schema.AuditEvent{
		{PlanID: "plan-1", Type: schema.EventPlanCreated, Timestamp: "2026-02-19T00:00:00Z"},
		{PlanID: "plan-1", Type: schema.EventExecutionFinished, Timestamp: "2026-02-19T00:00:01Z"},
	})

	ch, err := WatchRun(context.Background(), dir, "plan-1")
	if err != nil {
		t.Fatalf("WatchRun: %v", err)
	}

	var got []schema.AuditEvent
	for evt := range ch {
		got = append(got, evt)
	}
	if len(got) != 2 {
		t.Errorf("got %d events, want 2", len(got))
	}
}

func TestWatchRunFileAppearsLater(t *testing.T) {
	dir := t.TempDir()

	ch, err := WatchRun(context.Background(), dir, "plan-1")
	if err != nil {
		t.Fatalf("WatchRun: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		data, _ := json.Marshal([]schema.AuditEvent{
			{PlanID: "plan-1", Type: schema.EventExecutionFinished, Timestamp: "2026-02-19T00:00:00Z"},
		})
		_ = os.WriteFile(filepath.Join(dir, "runs", "plan-1.json"), data, 0644)
	}()

	select {
	case evt, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before delivering the run")
		}
		if evt.Type != schema.EventExecutionFinished {
			t.Errorf("event = %+v", evt)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("run file appearance not noticed")
	}
}
