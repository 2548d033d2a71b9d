// Package tool implements the tool sandbox: a registry of named tools with
// schema-validated arguments, executed as bounded subprocesses. An unknown
// tool name and invalid arguments for a known tool are distinct error kinds,
// and a tool run is always bounded by a timeout and a maximum captured
// output size so it fails rather than hangs or exhausts memory.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/fangio/fangio/internal/errors"
	"github.com/fangio/fangio/internal/schema"
)

// ErrUnknownTool is returned when a tool name is not in the registry.
var ErrUnknownTool = errors.ErrToolNotFound

// ArgsError reports that arguments failed a known tool's schema.
type ArgsError struct {
	Tool string
	Err  error
}

func (e *ArgsError) Error() string {
	return fmt.Sprintf("invalid args for tool %q: %v", e.Tool, e.Err)
}

func (e *ArgsError) Unwrap() error { return e.Err }

// Result is the captured output of one tool run.
type Result struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
}

// Data returns the result as an event payload map.
func (r Result) Data() map[string]any {
	return map[string]any{
		"stdout":   r.Stdout,
		"stderr":   r.Stderr,
		"exitCode": r.ExitCode,
	}
}

// RunFunc executes a tool with already-validated arguments.
type RunFunc func(ctx context.Context, rn *Runner, args map[string]any) (Result, error)

// Tool is one registered capability: a name, a risk classification, an
// argument schema, and a run function.
type Tool struct {
	Name        string
	Description string
	Risk        schema.RiskLevel
	ArgsSchema  *sjsonschema.Schema
	Run         RunFunc
}

// Meta describes a tool for planner prompts and status output.
type Meta struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Risk        schema.RiskLevel `json:"risk"`
}

// Registry maps tool names to implementations.
// It is safe for concurrent use once built.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	runner *Runner
}

// NewRegistry creates an empty registry whose tools run through rn.
func NewRegistry(rn *Runner) *Registry {
	return &Registry{tools: make(map[string]*Tool), runner: rn}
}

// Register adds a tool, replacing any existing tool of the same name.
func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
}

// Lookup returns the named tool, or ErrUnknownTool.
func (r *Registry) Lookup(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return t, nil
}

// Execute validates args against the named tool's schema and runs it.
// The error distinguishes an unknown tool from invalid arguments.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (Result, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return Result{}, err
	}

	if t.ArgsSchema != nil {
		if err := t.ArgsSchema.Validate(toJSONValue(args)); err != nil {
			return Result{}, &ArgsError{Tool: name, Err: err}
		}
	}

	return t.Run(ctx, r.runner, args)
}

// Catalog returns metadata for all registered tools.
func (r *Registry) Catalog() []Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Meta, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, Meta{Name: t.Name, Description: t.Description, Risk: t.Risk})
	}
	return out
}

// toJSONValue normalizes args through a JSON round trip so schema validation
// sees the same value shapes as a decoded request body.
func toJSONValue(args map[string]any) any {
	if args == nil {
		return map[string]any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return args
	}
	return v
}

// MustCompileSchema compiles an embedded JSON Schema document. It panics on
// failure, which can only happen from a programming error in the catalog.
func MustCompileSchema(name, src string) *sjsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(src), &doc); err != nil {
		panic(fmt.Sprintf("tool schema %s: %v", name, err))
	}
	c := sjsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("tool schema %s: %v", name, err))
	}
	sch, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("tool schema %s: %v", name, err))
	}
	return sch
}
