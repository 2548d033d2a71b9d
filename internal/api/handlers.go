package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fangio/fangio/internal/approval"
	"github.com/fangio/fangio/internal/schema"
	"github.com/fangio/fangio/internal/store"
)

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type createPlanRequest struct {
	Goal       string `json:"goal"`
	TraceID    string `json:"traceId,omitempty"`
	ResponseID string `json:"responseId,omitempty"`
	Channel    string `json:"channel,omitempty"`
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded for plan creation")
		return
	}

	var req createPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Goal) == "" {
		writeError(w, http.StatusBadRequest, "goal is required")
		return
	}

	plan, err := s.planner.Generate(r.Context(), req.Goal)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	channel := req.Channel
	if channel == "" {
		channel = strings.TrimSpace(r.Header.Get("X-Fangio-Channel"))
	}
	plan.Metadata = schema.NewMetadata(
		strings.TrimSpace(req.TraceID),
		strings.TrimSpace(req.ResponseID),
		strings.TrimSpace(channel),
	)

	approval.AutoApprove(plan, time.Now())
	s.store.StorePlan(plan)

	s.store.EmitEvent(schema.AuditEvent{
		PlanID: plan.PlanID,
		Type:   schema.EventPlanCreated,
		Data: plan.ContextData(map[string]any{
			"goal":      plan.Goal,
			"stepCount": len(plan.Steps),
		}),
		Timestamp: schema.Timestamp(time.Now()),
	})

	writeJSON(w, http.StatusOK, map[string]any{"planId": plan.PlanID, "plan": plan})
}

type approveRequest struct {
	PlanID  string   `json:"planId"`
	StepIDs []string `json:"stepIds"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PlanID == "" || req.StepIDs == nil {
		writeError(w, http.StatusBadRequest, "planId and stepIds are required")
		return
	}

	if err := s.gate.Approve(req.PlanID, req.StepIDs); err != nil {
		if errors.Is(err, approval.ErrPlanNotFound) {
			writeError(w, http.StatusNotFound, "Plan not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type executeRequest struct {
	PlanID string `json:"planId"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PlanID == "" {
		writeError(w, http.StatusBadRequest, "planId is required")
		return
	}

	plan, err := s.store.GetPlanOrLoad(req.PlanID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Plan not found")
		return
	}

	if expired, err := s.gate.CheckExpiry(plan); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":          "One or more step approvals have expired and must be re-approved",
			"expiredStepIds": expired,
		})
		return
	}

	if unapproved := plan.UnapprovedStepIDs(); len(unapproved) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "Not all steps are approved",
			"unapprovedStepIds": unapproved,
		})
		return
	}

	// Preconditions hold; the run proceeds in the background and reports
	// only through the event stream.
	s.engine.Launch(req.PlanID)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	planID := r.URL.Query().Get("planId")
	if planID == "" {
		writeError(w, http.StatusBadRequest, "planId query parameter is required")
		return
	}

	events, err := s.store.Replay(planID)
	if err != nil && !errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if events == nil {
		events = []schema.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.planner.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
