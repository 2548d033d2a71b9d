// Package engine drives the per-plan step state machine: approved steps run
// through the tool sandbox, unapproved steps are skipped with an error
// event, and every step produces a step.finished regardless of outcome. One
// step's failure never aborts the run; a run always terminates with exactly
// one execution.finished event and a persisted run artifact.
package engine

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/fangio/fangio/internal/errors"
	"github.com/fangio/fangio/internal/schema"
	"github.com/fangio/fangio/internal/store"
	"github.com/fangio/fangio/internal/tool"
)

// ToolExecutor runs a named tool with the given arguments. Implemented by
// *tool.Registry; tests substitute canned responses.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) (tool.Result, error)
}

// Engine executes plans against a store and a tool executor.
type Engine struct {
	store *store.Store
	tools ToolExecutor
	log   *slog.Logger
	now   func() time.Time
}

// New creates an Engine.
func New(st *store.Store, tools ToolExecutor, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: st, tools: tools, log: log, now: time.Now}
}

// Execute runs a plan's steps in declared order, emitting the audit event
// sequence and persisting the completed run. Steps of the same plan never
// overlap; distinct plans may execute concurrently.
func (e *Engine) Execute(ctx context.Context, planID string) error {
	plan, err := e.store.GetPlanOrLoad(planID)
	if err != nil {
		return errors.NewPlanError("execute plan", err).WithPlanID(planID)
	}

	for i := range plan.Steps {
		e.runStep(ctx, plan, &plan.Steps[i])
	}

	e.emit(plan, schema.EventExecutionFinished, "", nil)

	// Persistence failures are logged by the store; in-memory state
	// remains authoritative.
	_ = e.store.PersistRun(planID)
	return nil
}

// runStep emits the event sequence for one step. Approved steps produce
// [started, output|error, finished]; unapproved steps produce
// [error, finished] without ever invoking the tool.
func (e *Engine) runStep(ctx context.Context, plan *schema.Plan, step *schema.PlanStep) {
	if !step.Approved {
		msg := "Step not approved, skipping"
		if step.Risk == schema.RiskHigh {
			msg = "High-risk step not approved, skipping"
		}
		e.emit(plan, schema.EventStepError, step.ID, map[string]any{"error": msg})
		e.emit(plan, schema.EventStepFinished, step.ID, nil)
		return
	}

	e.emit(plan, schema.EventStepStarted, step.ID, map[string]any{
		"tool": step.Tool,
		"args": step.Args,
	})

	result, err := e.tools.Execute(ctx, step.Tool, step.Args)
	if err != nil {
		e.emit(plan, schema.EventStepError, step.ID, map[string]any{"error": err.Error()})
		e.emit(plan, schema.EventStepFinished, step.ID, nil)
		return
	}

	e.emit(plan, schema.EventStepOutput, step.ID, result.Data())
	e.emit(plan, schema.EventStepFinished, step.ID, nil)
}

// Launch starts a fire-and-forget execution. Failures and panics are
// reported to the log sink, never to the caller: by the time Launch is
// invoked the caller has already confirmed the execution's preconditions
// and responded.
func (e *Engine) Launch(planID string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("plan execution panicked",
					"plan_id", planID,
					"panic", r,
					"stack", string(debug.Stack()))
			}
		}()
		if err := e.Execute(context.Background(), planID); err != nil {
			e.log.Error("plan execution failed", "plan_id", planID, "error", err)
		}
	}()
}

// emit enriches the payload with the plan's trace context and appends it to
// the plan's event log.
func (e *Engine) emit(plan *schema.Plan, t schema.EventType, stepID string, data map[string]any) {
	e.store.EmitEvent(schema.AuditEvent{
		PlanID:    plan.PlanID,
		Type:      t,
		StepID:    stepID,
		Data:      plan.ContextData(data),
		Timestamp: schema.Timestamp(e.now()),
	})
}

// SetNow overrides the engine's clock. Test helper.
func (e *Engine) SetNow(now func() time.Time) { e.now = now }
