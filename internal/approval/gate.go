// Package approval implements the approval state machine for plan steps:
// operator approval of risky steps, auto-approval of low-risk steps at plan
// creation, and time-bounded approval validity enforced at execution time.
package approval

import (
	"fmt"
	"time"

	"github.com/fangio/fangio/internal/errors"
	"github.com/fangio/fangio/internal/schema"
	"github.com/fangio/fangio/internal/store"
)

// Sentinel errors returned by gate operations.
var (
	ErrPlanNotFound     = errors.ErrPlanNotFound
	ErrApprovalsExpired = errors.ErrApprovalsExpired
)

// Gate validates and applies approval mutations against the store.
// TTL of zero (or negative) disables approval expiry checking.
type Gate struct {
	store *store.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewGate creates a Gate backed by st. ttl bounds how long an approval stays
// valid before execution; pass 0 to disable expiry.
func NewGate(st *store.Store, ttl time.Duration) *Gate {
	return &Gate{store: st, ttl: ttl, now: time.Now}
}

// Approve marks the referenced steps approved and stamps their approval
// timestamps with the time of this call. Step ids that do not exist on the
// plan are silently ignored so partial or late approvals against a stale
// client view succeed for the steps that do exist. Each newly approved step
// emits a step.approved event.
func (g *Gate) Approve(planID string, stepIDs []string) error {
	plan, err := g.store.GetPlanOrLoad(planID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}

	now := g.now()
	stamp := schema.Timestamp(now)
	for _, stepID := range stepIDs {
		step := plan.Step(stepID)
		if step == nil {
			continue
		}
		step.Approved = true
		step.ApprovedAt = stamp

		g.store.EmitEvent(schema.AuditEvent{
			PlanID:    planID,
			Type:      schema.EventStepApproved,
			StepID:    stepID,
			Data:      plan.ContextData(nil),
			Timestamp: schema.Timestamp(g.now()),
		})
	}

	g.store.UpdatePlan(plan)
	return nil
}

// CheckExpiry revokes approvals older than the gate's TTL. An approved step
// whose approvedAt is missing, unparseable, or expired has its approval
// reset and its id collected. If anything was revoked the plan is persisted
// with the reset and ErrApprovalsExpired is returned alongside the ids, so
// the caller can demand re-approval before execution.
func (g *Gate) CheckExpiry(plan *schema.Plan) ([]string, error) {
	if g.ttl <= 0 {
		return nil, nil
	}

	now := g.now()
	var expired []string
	for i := range plan.Steps {
		step := &plan.Steps[i]
		if !step.Approved {
			continue
		}
		if !approvalValid(step.ApprovedAt, now, g.ttl) {
			step.Approved = false
			step.ApprovedAt = ""
			expired = append(expired, step.ID)
		}
	}

	if len(expired) == 0 {
		return nil, nil
	}
	g.store.UpdatePlan(plan)
	return expired, ErrApprovalsExpired
}

// approvalValid reports whether an approval stamped at approvedAt is still
// inside the TTL at time now. A missing or malformed stamp is invalid.
func approvalValid(approvedAt string, now time.Time, ttl time.Duration) bool {
	if approvedAt == "" {
		return false
	}
	at, err := time.Parse(time.RFC3339Nano, approvedAt)
	if err != nil {
		return false
	}
	return now.Sub(at) <= ttl
}

// AutoApprove applies the plan-creation approval rules: low-risk steps are
// approved and stamped, and any step the planner pre-approved without a
// timestamp gets one. Risky steps are left for the operator.
func AutoApprove(plan *schema.Plan, now time.Time) {
	stamp := schema.Timestamp(now)
	for i := range plan.Steps {
		step := &plan.Steps[i]
		switch {
		case step.Risk == schema.RiskLow:
			step.Approved = true
			step.ApprovedAt = stamp
		case step.Approved && step.ApprovedAt == "":
			step.ApprovedAt = stamp
		}
	}
}

// SetNow overrides the gate's clock. Test helper.
func (g *Gate) SetNow(now func() time.Time) { g.now = now }
