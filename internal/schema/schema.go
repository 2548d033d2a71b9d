// Package schema defines the plan and audit-event data model shared by the
// store, the approval gate, the execution engine, and the HTTP API. Payloads
// loaded from disk are validated against embedded JSON Schemas so a corrupted
// or hand-edited file is rejected instead of poisoning the in-memory state.
package schema

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel classifies how dangerous a plan step is. Low-risk steps are
// auto-approved at plan creation; medium and high require operator approval.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid reports whether r is one of the known risk levels.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// EventType enumerates the audit event types emitted for a plan.
type EventType string

const (
	EventPlanCreated       EventType = "plan.created"
	EventStepApproved      EventType = "step.approved"
	EventStepStarted       EventType = "step.started"
	EventStepOutput        EventType = "step.output"
	EventStepError         EventType = "step.error"
	EventStepFinished      EventType = "step.finished"
	EventExecutionFinished EventType = "execution.finished"
)

// PlanStep is one tool-backed unit of work within a plan. Steps execute in
// declared order. A step with Approved=false must have ApprovedAt empty.
type PlanStep struct {
	ID          string         `json:"id"`
	Tool        string         `json:"tool"`
	Args        map[string]any `json:"args"`
	Risk        RiskLevel      `json:"risk"`
	Description string         `json:"description"`
	Approved    bool           `json:"approved"`
	ApprovedAt  string         `json:"approvedAt,omitempty"`
}

// Plan is an ordered set of steps addressing a stated goal. Step order is
// execution order and never changes after creation; the only mutation a plan
// sees after creation is approval flags and timestamps.
type Plan struct {
	PlanID    string        `json:"planId"`
	Goal      string        `json:"goal"`
	CreatedAt string        `json:"createdAt"`
	Steps     []PlanStep    `json:"steps"`
	Metadata  *PlanMetadata `json:"metadata,omitempty"`
}

// Step returns the step with the given id, or nil.
func (p *Plan) Step(id string) *PlanStep {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}

// UnapprovedStepIDs returns the ids of all steps not currently approved,
// in declared order.
func (p *Plan) UnapprovedStepIDs() []string {
	var ids []string
	for i := range p.Steps {
		if !p.Steps[i].Approved {
			ids = append(ids, p.Steps[i].ID)
		}
	}
	return ids
}

// AuditEvent is one entry in a plan's append-only event log. Events for a
// plan form a total order by emission; replay reproduces that exact order
// and content.
type AuditEvent struct {
	PlanID    string         `json:"planId"`
	Type      EventType      `json:"type"`
	StepID    string         `json:"stepId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// PlanMetadata is the trace context attached to a plan at creation time and
// echoed into every event payload for that plan. Immutable once attached.
type PlanMetadata struct {
	TraceID    string `json:"traceId"`
	ResponseID string `json:"responseId"`
	Channel    string `json:"channel"`
}

// NewMetadata builds trace metadata for a freshly created plan.
// Caller-supplied values win; blank ids are replaced with generated UUIDs
// and a blank channel defaults to "api".
func NewMetadata(traceID, responseID, channel string) *PlanMetadata {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	if responseID == "" {
		responseID = uuid.NewString()
	}
	if channel == "" {
		channel = "api"
	}
	return &PlanMetadata{TraceID: traceID, ResponseID: responseID, Channel: channel}
}

// EventContext returns the plan's trace context. Plans created before
// metadata support fall back to the plan id with channel "unknown".
func (p *Plan) EventContext() PlanMetadata {
	if p.Metadata != nil {
		return *p.Metadata
	}
	return PlanMetadata{TraceID: p.PlanID, ResponseID: p.PlanID, Channel: "unknown"}
}

// ContextData merges the plan's trace context into an event payload.
// The trace fields always win over same-named keys in data. A nil data map
// is allocated so every event carries the context.
func (p *Plan) ContextData(data map[string]any) map[string]any {
	ctx := p.EventContext()
	out := make(map[string]any, len(data)+3)
	for k, v := range data {
		out[k] = v
	}
	out["traceId"] = ctx.TraceID
	out["responseId"] = ctx.ResponseID
	out["channel"] = ctx.Channel
	return out
}

// Timestamp formats t in the ISO-8601 form used throughout the wire contract.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NewPlanID generates a unique plan identifier.
func NewPlanID() string {
	return "plan-" + uuid.NewString()
}
