package schema

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewMetadataDefaults(t *testing.T) {
	m := NewMetadata("", "", "")
	if m.TraceID == "" || m.ResponseID == "" {
		t.Error("expected generated ids for blank trace fields")
	}
	if m.Channel != "api" {
		t.Errorf("default channel = %q, want api", m.Channel)
	}
}

func TestNewMetadataCallerValuesWin(t *testing.T) {
	m := NewMetadata("trace-123", "resp-123", "copilot_studio")
	if m.TraceID != "trace-123" || m.ResponseID != "resp-123" || m.Channel != "copilot_studio" {
		t.Errorf("caller-supplied metadata not preserved: %+v", m)
	}
}

func TestEventContextLegacyFallback(t *testing.T) {
	p := &Plan{PlanID: "plan-legacy"}
	ctx := p.EventContext()
	if ctx.TraceID != "plan-legacy" || ctx.ResponseID != "plan-legacy" || ctx.Channel != "unknown" {
		t.Errorf("legacy fallback = %+v", ctx)
	}
}

func TestContextDataTraceFieldsWin(t *testing.T) {
	p := &Plan{
		PlanID:   "plan-1",
		Metadata: &PlanMetadata{TraceID: "t", ResponseID: "r", Channel: "c"},
	}
	data := p.ContextData(map[string]any{"traceId": "stale", "goal": "g"})
	if data["traceId"] != "t" || data["responseId"] != "r" || data["channel"] != "c" {
		t.Errorf("trace fields not enforced: %v", data)
	}
	if data["goal"] != "g" {
		t.Errorf("payload field lost: %v", data)
	}
}

func TestContextDataAllocatesNilMap(t *testing.T) {
	p := &Plan{PlanID: "plan-1"}
	data := p.ContextData(nil)
	if len(data) != 3 {
		t.Errorf("expected exactly the trace fields, got %v", data)
	}
}

func validPlanJSON(t *testing.T, mutate func(map[string]any)) []byte {
	t.Helper()
	plan := map[string]any{
		"planId":    "plan-1",
		"goal":      "test goal",
		"createdAt": "2026-02-19T00:00:00Z",
		"steps": []any{
			map[string]any{
				"id":          "step-1",
				"tool":        "git.status",
				"args":        map[string]any{},
				"risk":        "low",
				"description": "Check repository status",
				"approved":    true,
				"approvedAt":  "2026-02-19T00:00:01Z",
			},
		},
	}
	if mutate != nil {
		mutate(plan)
	}
	data, err := json.Marshal(plan)
	if err != nil {
		t.Fatalf("marshal plan: %v", err)
	}
	return data
}

func TestValidatePlan(t *testing.T) {
	t.Run("valid plan round-trips", func(t *testing.T) {
		p, err := ValidatePlan(validPlanJSON(t, nil))
		if err != nil {
			t.Fatalf("ValidatePlan: %v", err)
		}
		if p.PlanID != "plan-1" || len(p.Steps) != 1 || p.Steps[0].Tool != "git.status" {
			t.Errorf("decoded plan = %+v", p)
		}
	})

	t.Run("rejects invalid risk level", func(t *testing.T) {
		data := validPlanJSON(t, func(m map[string]any) {
			m["steps"].([]any)[0].(map[string]any)["risk"] = "critical"
		})
		if _, err := ValidatePlan(data); err == nil {
			t.Error("expected schema error for invalid risk")
		}
	})

	t.Run("rejects missing planId", func(t *testing.T) {
		data := validPlanJSON(t, func(m map[string]any) { delete(m, "planId") })
		if _, err := ValidatePlan(data); err == nil {
			t.Error("expected schema error for missing planId")
		}
	})

	t.Run("rejects duplicate step ids", func(t *testing.T) {
		data := validPlanJSON(t, func(m map[string]any) {
			step := m["steps"].([]any)[0]
			m["steps"] = []any{step, step}
		})
		if _, err := ValidatePlan(data); err == nil {
			t.Error("expected error for duplicate step ids")
		}
	})

	t.Run("rejects approvedAt on unapproved step", func(t *testing.T) {
		data := validPlanJSON(t, func(m map[string]any) {
			m["steps"].([]any)[0].(map[string]any)["approved"] = false
		})
		if _, err := ValidatePlan(data); err == nil {
			t.Error("expected error for approvedAt without approval")
		}
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		if _, err := ValidatePlan([]byte("{not json")); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestValidateRun(t *testing.T) {
	events := []AuditEvent{
		{PlanID: "plan-1", Type: EventPlanCreated, Timestamp: Timestamp(time.Now())},
		{PlanID: "plan-1", Type: EventStepStarted, StepID: "step-1", Timestamp: Timestamp(time.Now())},
	}
	data, err := json.Marshal(events)
	if err != nil {
		t.Fatalf("marshal events: %v", err)
	}

	loaded, err := ValidateRun(data)
	if err != nil {
		t.Fatalf("ValidateRun: %v", err)
	}
	if len(loaded) != 2 || loaded[1].StepID != "step-1" {
		t.Errorf("loaded events = %+v", loaded)
	}

	if _, err := ValidateRun([]byte(`[{"planId":"p","type":"bogus.type","timestamp":"x"}]`)); err == nil {
		t.Error("expected schema error for unknown event type")
	}
}

func TestUnapprovedStepIDs(t *testing.T) {
	p := &Plan{Steps: []PlanStep{
		{ID: "a", Approved: true},
		{ID: "b"},
		{ID: "c"},
	}}
	ids := p.UnapprovedStepIDs()
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "c" {
		t.Errorf("UnapprovedStepIDs = %v", ids)
	}
}
