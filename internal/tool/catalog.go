package tool

import (
	"context"

	"github.com/fangio/fangio/internal/schema"
)

var noArgsSchema = MustCompileSchema("no-args.schema.json", `{
  "type": "object",
  "additionalProperties": false
}`)

var containerArgsSchema = MustCompileSchema("container-args.schema.json", `{
  "type": "object",
  "required": ["container"],
  "additionalProperties": false,
  "properties": {
    "container": {"type": "string", "minLength": 1}
  }
}`)

var urlArgsSchema = MustCompileSchema("url-args.schema.json", `{
  "type": "object",
  "required": ["url"],
  "additionalProperties": false,
  "properties": {
    "url": {"type": "string", "pattern": "^https?://"}
  }
}`)

var searchArgsSchema = MustCompileSchema("search-args.schema.json", `{
  "type": "object",
  "required": ["path", "pattern"],
  "additionalProperties": false,
  "properties": {
    "path": {"type": "string", "minLength": 1, "maxLength": 512},
    "pattern": {"type": "string", "minLength": 1, "maxLength": 128, "pattern": "^[A-Za-z0-9*._?-]+$"}
  }
}`)

// NewCatalog builds the built-in tool registry: docker and git inspection,
// a confined filesystem search, and an HTTP probe. roots confines
// filesystem.search; empty means the working directory only.
func NewCatalog(rn *Runner, roots []string) *Registry {
	r := NewRegistry(rn)
	policy := newPathPolicy(roots)

	r.Register(&Tool{
		Name:        "docker.ps",
		Description: "List all running Docker containers",
		Risk:        schema.RiskLow,
		ArgsSchema:  noArgsSchema,
		Run: func(ctx context.Context, rn *Runner, _ map[string]any) (Result, error) {
			return rn.Command(ctx, "docker", "ps", "--format", "json")
		},
	})

	r.Register(&Tool{
		Name:        "docker.stats",
		Description: "Get resource usage statistics for all running containers",
		Risk:        schema.RiskLow,
		ArgsSchema:  noArgsSchema,
		Run: func(ctx context.Context, rn *Runner, _ map[string]any) (Result, error) {
			return rn.Command(ctx, "docker", "stats", "--no-stream", "--format", "json")
		},
	})

	r.Register(&Tool{
		Name:        "docker.logs",
		Description: "Get the last 100 lines of logs from a container",
		Risk:        schema.RiskLow,
		ArgsSchema:  containerArgsSchema,
		Run: func(ctx context.Context, rn *Runner, args map[string]any) (Result, error) {
			return rn.Command(ctx, "docker", "logs", "--tail", "100", stringArg(args, "container"))
		},
	})

	r.Register(&Tool{
		Name:        "docker.restart",
		Description: "Restart a Docker container",
		Risk:        schema.RiskMedium,
		ArgsSchema:  containerArgsSchema,
		Run: func(ctx context.Context, rn *Runner, args map[string]any) (Result, error) {
			return rn.Command(ctx, "docker", "restart", stringArg(args, "container"))
		},
	})

	r.Register(&Tool{
		Name:        "git.status",
		Description: "Get the status of the Git repository",
		Risk:        schema.RiskLow,
		ArgsSchema:  noArgsSchema,
		Run: func(ctx context.Context, rn *Runner, _ map[string]any) (Result, error) {
			return rn.Command(ctx, "git", "status", "--porcelain")
		},
	})

	r.Register(&Tool{
		Name:        "filesystem.search",
		Description: "Search for files matching a pattern in a directory",
		Risk:        schema.RiskLow,
		ArgsSchema:  searchArgsSchema,
		Run: func(ctx context.Context, rn *Runner, args map[string]any) (Result, error) {
			searchPath, err := policy.resolve(stringArg(args, "path"))
			if err != nil {
				return Result{}, err
			}
			return rn.Command(ctx, "find", searchPath, "-maxdepth", "3", "-name", stringArg(args, "pattern"))
		},
	})

	r.Register(&Tool{
		Name:        "http.probe",
		Description: "Probe an HTTP endpoint and return status code and response time",
		Risk:        schema.RiskLow,
		ArgsSchema:  urlArgsSchema,
		Run: func(ctx context.Context, rn *Runner, args map[string]any) (Result, error) {
			return rn.Command(ctx, "curl", "-s", "-o", "/dev/null",
				"-w", "%{http_code} %{time_total}", stringArg(args, "url"))
		},
	})

	return r
}

// stringArg extracts a string argument already guaranteed by schema
// validation; a missing or mistyped value yields the empty string.
func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}
