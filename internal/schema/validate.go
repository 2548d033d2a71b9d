package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/fangio/fangio/internal/errors"
)

// planSchemaJSON is the JSON Schema for a persisted plan file.
const planSchemaJSON = `{
  "type": "object",
  "required": ["planId", "goal", "createdAt", "steps"],
  "properties": {
    "planId": {"type": "string", "minLength": 1},
    "goal": {"type": "string"},
    "createdAt": {"type": "string"},
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "tool", "args", "risk", "description"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "tool": {"type": "string", "minLength": 1},
          "args": {"type": "object"},
          "risk": {"enum": ["low", "medium", "high"]},
          "description": {"type": "string"},
          "approved": {"type": "boolean"},
          "approvedAt": {"type": "string"}
        }
      }
    },
    "metadata": {
      "type": "object",
      "required": ["traceId", "responseId", "channel"],
      "properties": {
        "traceId": {"type": "string"},
        "responseId": {"type": "string"},
        "channel": {"type": "string"}
      }
    }
  }
}`

// runSchemaJSON is the JSON Schema for a persisted run file: an ordered
// sequence of audit events.
const runSchemaJSON = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["planId", "type", "timestamp"],
    "properties": {
      "planId": {"type": "string", "minLength": 1},
      "type": {
        "enum": [
          "plan.created", "step.approved", "step.started", "step.output",
          "step.error", "step.finished", "execution.finished"
        ]
      },
      "stepId": {"type": "string"},
      "data": {"type": "object"},
      "timestamp": {"type": "string"}
    }
  }
}`

var (
	compileOnce sync.Once
	planSchema  *sjsonschema.Schema
	runSchema   *sjsonschema.Schema
	compileErr  error
)

func compileSchemas() {
	planSchema, compileErr = compileSchema("plan.schema.json", planSchemaJSON)
	if compileErr != nil {
		return
	}
	runSchema, compileErr = compileSchema("run.schema.json", runSchemaJSON)
}

func compileSchema(name, src string) (*sjsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal([]byte(src), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", name, err)
	}
	c := sjsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", name, err)
	}
	sch, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return sch, nil
}

// ValidatePlan decodes and validates a serialized plan. Both the JSON Schema
// check and the Go-side invariants (unique step ids, approvedAt only on
// approved steps) must pass.
func ValidatePlan(data []byte) (*Plan, error) {
	compileOnce.Do(compileSchemas)
	if compileErr != nil {
		return nil, compileErr
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if err := planSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrPlanInvalid, err)
	}

	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}

	seen := make(map[string]bool, len(p.Steps))
	for i := range p.Steps {
		step := &p.Steps[i]
		if seen[step.ID] {
			return nil, fmt.Errorf("%w: plan %s: duplicate step id %q", errors.ErrPlanInvalid, p.PlanID, step.ID)
		}
		seen[step.ID] = true
		if !step.Approved && step.ApprovedAt != "" {
			return nil, fmt.Errorf("%w: plan %s: step %s has approvedAt without approval", errors.ErrPlanInvalid, p.PlanID, step.ID)
		}
	}
	return &p, nil
}

// ValidateRun decodes and validates a serialized run file.
func ValidateRun(data []byte) ([]AuditEvent, error) {
	compileOnce.Do(compileSchemas)
	if compileErr != nil {
		return nil, compileErr
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	if err := runSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("run schema: %w", err)
	}

	var events []AuditEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return events, nil
}
