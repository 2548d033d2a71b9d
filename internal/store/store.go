// Package store owns the canonical in-memory plan and event state and its
// on-disk mirror. Plans are persisted individually under plans/ so approvals
// survive a process restart; completed runs are written once under runs/ and
// replayed verbatim. In-memory correctness takes precedence over durability:
// a persistence failure is logged and swallowed so a storage hiccup never
// crashes an in-flight run.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fangio/fangio/internal/errors"
	"github.com/fangio/fangio/internal/event"
	"github.com/fangio/fangio/internal/schema"
)

// Sentinel errors returned by store lookups.
var (
	ErrPlanNotFound = errors.ErrPlanNotFound
	ErrRunNotFound  = errors.ErrRunNotFound
)

const (
	plansDir = "plans"
	runsDir  = "runs"
)

// Store holds plans and per-plan event logs in memory and mirrors them to a
// data directory. All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	plans  map[string]*schema.Plan
	events map[string][]schema.AuditEvent
	bus    *event.Bus
	dir    string
	log    *slog.Logger
}

// New creates a Store rooted at dir. Events emitted through the store are
// fanned out on bus synchronously.
func New(dir string, bus *event.Bus, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		plans:  make(map[string]*schema.Plan),
		events: make(map[string][]schema.AuditEvent),
		bus:    bus,
		dir:    dir,
		log:    log,
	}
}

// Bus returns the event bus events are fanned out on.
func (s *Store) Bus() *event.Bus { return s.bus }

// StorePlan registers a plan in memory, initializes its event log if absent,
// and persists it to plans/<planId>.json. A persistence failure is logged
// and does not undo the in-memory registration.
func (s *Store) StorePlan(p *schema.Plan) {
	s.mu.Lock()
	s.plans[p.PlanID] = p
	if _, ok := s.events[p.PlanID]; !ok {
		s.events[p.PlanID] = []schema.AuditEvent{}
	}
	s.mu.Unlock()

	if err := s.writePlan(p); err != nil {
		s.log.Error("persist plan failed", "plan_id", p.PlanID, "error", err)
	}
}

// GetPlan returns the in-memory plan, or ErrPlanNotFound.
func (s *Store) GetPlan(planID string) (*schema.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[planID]
	if !ok {
		return nil, ErrPlanNotFound
	}
	return p, nil
}

// GetPlanOrLoad returns the in-memory plan, falling back to a validated
// on-disk load. A successfully loaded plan is cached in memory.
func (s *Store) GetPlanOrLoad(planID string) (*schema.Plan, error) {
	if p, err := s.GetPlan(planID); err == nil {
		return p, nil
	}

	data, err := os.ReadFile(s.planPath(planID))
	if err != nil {
		return nil, ErrPlanNotFound
	}
	p, err := schema.ValidatePlan(data)
	if err != nil {
		s.log.Warn("persisted plan failed validation", "plan_id", planID, "error", err)
		return nil, ErrPlanNotFound
	}

	s.mu.Lock()
	s.plans[p.PlanID] = p
	if _, ok := s.events[p.PlanID]; !ok {
		s.events[p.PlanID] = []schema.AuditEvent{}
	}
	s.mu.Unlock()
	return p, nil
}

// UpdatePlan overwrites the in-memory and persisted plan record. Used for
// approval mutations and approval-expiry resets.
func (s *Store) UpdatePlan(p *schema.Plan) {
	s.mu.Lock()
	s.plans[p.PlanID] = p
	s.mu.Unlock()

	if err := s.writePlan(p); err != nil {
		s.log.Error("persist plan failed", "plan_id", p.PlanID, "error", err)
	}
}

// EmitEvent appends an event to the plan's in-memory log and synchronously
// notifies current bus subscribers. Emission never blocks on disk I/O.
func (s *Store) EmitEvent(evt schema.AuditEvent) {
	s.mu.Lock()
	s.events[evt.PlanID] = append(s.events[evt.PlanID], evt)
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(evt)
	}
}

// Events returns a copy of the current in-memory event log for a plan.
// The copy is empty, not nil, when no events exist.
func (s *Store) Events(planID string) []schema.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schema.AuditEvent, len(s.events[planID]))
	copy(out, s.events[planID])
	return out
}

// PersistRun writes the full in-memory event log for a plan to
// runs/<planId>.json. It is a no-op if no log exists for the plan.
func (s *Store) PersistRun(planID string) error {
	s.mu.RLock()
	log, ok := s.events[planID]
	events := make([]schema.AuditEvent, len(log))
	copy(events, log)
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	if err := s.writeJSON(filepath.Join(s.dir, runsDir), planID+".json", events); err != nil {
		s.log.Error("persist run failed", "plan_id", planID, "error", err)
		return err
	}
	return nil
}

// LoadRun reads and validates a persisted run file. Any read, parse, or
// validation failure is reported as ErrRunNotFound.
func (s *Store) LoadRun(planID string) ([]schema.AuditEvent, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, runsDir, planID+".json"))
	if err != nil {
		return nil, ErrRunNotFound
	}
	events, err := schema.ValidateRun(data)
	if err != nil {
		s.log.Warn("persisted run failed validation", "plan_id", planID, "error", err)
		return nil, ErrRunNotFound
	}
	return events, nil
}

// Replay returns the live in-memory log when present, otherwise the
// persisted run. Replay has no side effects and is restartable.
func (s *Store) Replay(planID string) ([]schema.AuditEvent, error) {
	if events := s.Events(planID); len(events) > 0 {
		return events, nil
	}
	return s.LoadRun(planID)
}

// Reset clears all in-memory maps without touching disk. Used by tests and
// admin tooling to simulate a process restart.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans = make(map[string]*schema.Plan)
	s.events = make(map[string][]schema.AuditEvent)
}

func (s *Store) planPath(planID string) string {
	return filepath.Join(s.dir, plansDir, planID+".json")
}

func (s *Store) writePlan(p *schema.Plan) error {
	return s.writeJSON(filepath.Join(s.dir, plansDir), p.PlanID+".json", p)
}

// writeJSON writes v atomically: marshal, write to a temp file, rename into
// place.
func (s *Store) writeJSON(dir, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	target := filepath.Join(dir, name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
