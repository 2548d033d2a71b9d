package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fangio/fangio/internal/event"
	"github.com/fangio/fangio/internal/schema"
	"github.com/fangio/fangio/internal/store"
	"github.com/fangio/fangio/internal/tool"
)

// cannedExecutor returns scripted results per tool name so step sequencing
// can be verified without spawning subprocesses.
type cannedExecutor struct {
	results map[string]tool.Result
	errs    map[string]error
	calls   []string
}

func (c *cannedExecutor) Execute(_ context.Context, name string, _ map[string]any) (tool.Result, error) {
	c.calls = append(c.calls, name)
	if err, ok := c.errs[name]; ok {
		return tool.Result{}, err
	}
	return c.results[name], nil
}

func newTestEngine(t *testing.T, exec ToolExecutor) (*Engine, *store.Store) {
	t.Helper()
	st := store.New(t.TempDir(), event.NewBus(), nil)
	return New(st, exec, nil), st
}

func twoStepPlan() *schema.Plan {
	return &schema.Plan{
		PlanID:    "plan-1",
		Goal:      "diagnose containers",
		CreatedAt: schema.Timestamp(time.Now()),
		Steps: []schema.PlanStep{
			{ID: "step-1", Tool: "docker.ps", Args: map[string]any{}, Risk: schema.RiskLow, Description: "List", Approved: true, ApprovedAt: schema.Timestamp(time.Now())},
			{ID: "step-2", Tool: "docker.restart", Args: map[string]any{"container": "api"}, Risk: schema.RiskMedium, Description: "Restart", Approved: true, ApprovedAt: schema.Timestamp(time.Now())},
		},
		Metadata: &schema.PlanMetadata{TraceID: "t-1", ResponseID: "r-1", Channel: "api"},
	}
}

func eventTypes(events []schema.AuditEvent) []schema.EventType {
	out := make([]schema.EventType, len(events))
	for i, evt := range events {
		out[i] = evt.Type
	}
	return out
}

func assertTypes(t *testing.T, got []schema.AuditEvent, want []schema.EventType) {
	t.Helper()
	types := eventTypes(got)
	if len(types) != len(want) {
		t.Fatalf("event sequence = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event sequence = %v, want %v", types, want)
		}
	}
}

func TestExecuteHappyPath(t *testing.T) {
	exec := &cannedExecutor{results: map[string]tool.Result{
		"docker.ps":      {Stdout: "CONTAINER ID"},
		"docker.restart": {Stdout: "api"},
	}}
	e, st := newTestEngine(t, exec)
	st.StorePlan(twoStepPlan())

	if err := e.Execute(context.Background(), "plan-1"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	events := st.Events("plan-1")
	assertTypes(t, events, []schema.EventType{
		schema.EventStepStarted, schema.EventStepOutput, schema.EventStepFinished,
		schema.EventStepStarted, schema.EventStepOutput, schema.EventStepFinished,
		schema.EventExecutionFinished,
	})

	if len(exec.calls) != 2 || exec.calls[0] != "docker.ps" || exec.calls[1] != "docker.restart" {
		t.Errorf("tool calls = %v", exec.calls)
	}

	// Output payloads carry the captured result plus trace context.
	out := events[1].Data
	if out["stdout"] != "CONTAINER ID" || out["traceId"] != "t-1" || out["channel"] != "api" {
		t.Errorf("step.output data = %v", out)
	}
}

func TestExecuteSkipsUnapprovedSteps(t *testing.T) {
	exec := &cannedExecutor{}
	e, st := newTestEngine(t, exec)

	p := twoStepPlan()
	p.Steps[1].Approved = false
	p.Steps[1].ApprovedAt = ""
	st.StorePlan(p)

	if err := e.Execute(context.Background(), "plan-1"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	events := st.Events("plan-1")
	assertTypes(t, events, []schema.EventType{
		schema.EventStepStarted, schema.EventStepOutput, schema.EventStepFinished,
		schema.EventStepError, schema.EventStepFinished,
		schema.EventExecutionFinished,
	})

	if events[3].Data["error"] != "Step not approved, skipping" {
		t.Errorf("skip message = %v", events[3].Data["error"])
	}
	if len(exec.calls) != 1 {
		t.Errorf("unapproved step reached the executor: %v", exec.calls)
	}
}

func TestExecuteHighRiskSkipMessage(t *testing.T) {
	e, st := newTestEngine(t, &cannedExecutor{})

	p := twoStepPlan()
	p.Steps[0].Risk = schema.RiskHigh
	p.Steps[0].Approved = false
	p.Steps[0].ApprovedAt = ""
	p.Steps = p.Steps[:1]
	st.StorePlan(p)

	if err := e.Execute(context.Background(), "plan-1"); err != nil {
		t.Fatal(err)
	}

	events := st.Events("plan-1")
	if events[0].Data["error"] != "High-risk step not approved, skipping" {
		t.Errorf("high-risk skip message = %v", events[0].Data["error"])
	}
}

func TestExecuteStepFailureIsolated(t *testing.T) {
	exec := &cannedExecutor{
		results: map[string]tool.Result{"docker.restart": {Stdout: "api"}},
		errs:    map[string]error{"docker.ps": errors.New("docker daemon unreachable")},
	}
	e, st := newTestEngine(t, exec)
	st.StorePlan(twoStepPlan())

	if err := e.Execute(context.Background(), "plan-1"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	events := st.Events("plan-1")
	assertTypes(t, events, []schema.EventType{
		schema.EventStepStarted, schema.EventStepError, schema.EventStepFinished,
		schema.EventStepStarted, schema.EventStepOutput, schema.EventStepFinished,
		schema.EventExecutionFinished,
	})
	if events[1].Data["error"] != "docker daemon unreachable" {
		t.Errorf("error payload = %v", events[1].Data)
	}
	if len(exec.calls) != 2 {
		t.Errorf("second step not attempted after first failed: %v", exec.calls)
	}
}

func TestExecuteUnknownPlan(t *testing.T) {
	e, _ := newTestEngine(t, &cannedExecutor{})
	if err := e.Execute(context.Background(), "plan-404"); !errors.Is(err, store.ErrPlanNotFound) {
		t.Errorf("err = %v, want ErrPlanNotFound", err)
	}
}

func TestExecutePersistsRun(t *testing.T) {
	exec := &cannedExecutor{results: map[string]tool.Result{
		"docker.ps":      {},
		"docker.restart": {},
	}}
	e, st := newTestEngine(t, exec)
	st.StorePlan(twoStepPlan())

	if err := e.Execute(context.Background(), "plan-1"); err != nil {
		t.Fatal(err)
	}

	live := st.Events("plan-1")
	st.Reset()
	persisted, err := st.Replay("plan-1")
	if err != nil {
		t.Fatalf("Replay from disk: %v", err)
	}
	if len(persisted) != len(live) {
		t.Errorf("persisted %d events, live had %d", len(persisted), len(live))
	}
	if persisted[len(persisted)-1].Type != schema.EventExecutionFinished {
		t.Error("run does not end with execution.finished")
	}
}

func TestExecuteSucceedsWhenPersistFails(t *testing.T) {
	// Point the store at a regular file so run persistence cannot create
	// its directory. The in-memory log stays authoritative and Execute
	// still reports success.
	dataDir := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(dataDir, []byte("not a directory"), 0644); err != nil {
		t.Fatal(err)
	}

	exec := &cannedExecutor{results: map[string]tool.Result{
		"docker.ps":      {},
		"docker.restart": {},
	}}
	st := store.New(dataDir, event.NewBus(), nil)
	e := New(st, exec, nil)
	st.StorePlan(twoStepPlan())

	if err := e.Execute(context.Background(), "plan-1"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	events := st.Events("plan-1")
	if len(events) == 0 || events[len(events)-1].Type != schema.EventExecutionFinished {
		t.Errorf("event log incomplete after persist failure: %v", eventTypes(events))
	}
}

func TestEveryEventCarriesTraceContext(t *testing.T) {
	exec := &cannedExecutor{results: map[string]tool.Result{
		"docker.ps":      {},
		"docker.restart": {},
	}}
	e, st := newTestEngine(t, exec)
	st.StorePlan(twoStepPlan())

	if err := e.Execute(context.Background(), "plan-1"); err != nil {
		t.Fatal(err)
	}

	for _, evt := range st.Events("plan-1") {
		if evt.Data["traceId"] != "t-1" || evt.Data["responseId"] != "r-1" || evt.Data["channel"] != "api" {
			t.Errorf("%s missing trace context: %v", evt.Type, evt.Data)
		}
	}
}

func TestLegacyPlanFallbackContext(t *testing.T) {
	exec := &cannedExecutor{results: map[string]tool.Result{"docker.ps": {}}}
	e, st := newTestEngine(t, exec)

	p := twoStepPlan()
	p.Metadata = nil
	p.Steps = p.Steps[:1]
	st.StorePlan(p)

	if err := e.Execute(context.Background(), "plan-1"); err != nil {
		t.Fatal(err)
	}

	evt := st.Events("plan-1")[0]
	if evt.Data["traceId"] != "plan-1" || evt.Data["channel"] != "unknown" {
		t.Errorf("legacy fallback context = %v", evt.Data)
	}
}
