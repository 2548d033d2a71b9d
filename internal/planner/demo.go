package planner

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fangio/fangio/internal/schema"
)

//go:embed demo_plans.yaml
var demoPlansYAML []byte

// demoCatalog is the decoded canned-plan catalog.
type demoCatalog struct {
	Plans []demoPlan `yaml:"plans"`
}

type demoPlan struct {
	Name     string     `yaml:"name"`
	Keywords []string   `yaml:"keywords"`
	Goal     string     `yaml:"goal"`
	Steps    []demoStep `yaml:"steps"`
}

type demoStep struct {
	ID          string         `yaml:"id"`
	Tool        string         `yaml:"tool"`
	Args        map[string]any `yaml:"args"`
	Risk        string         `yaml:"risk"`
	Description string         `yaml:"description"`
	Approved    bool           `yaml:"approved"`
}

var catalog = mustLoadCatalog()

func mustLoadCatalog() demoCatalog {
	var c demoCatalog
	if err := yaml.Unmarshal(demoPlansYAML, &c); err != nil {
		panic(fmt.Sprintf("demo plan catalog: %v", err))
	}
	return c
}

// DemoPlan returns a canned plan matching the goal's keywords, defaulting to
// the first catalog entry. The returned plan carries a fresh id and creation
// time so repeated demo runs stay distinguishable.
func DemoPlan(goal string) *schema.Plan {
	selected := catalog.Plans[0]
	lower := strings.ToLower(goal)
	for _, dp := range catalog.Plans {
		if matchesAny(lower, dp.Keywords) {
			selected = dp
			break
		}
	}

	plan := &schema.Plan{
		PlanID:    schema.NewPlanID(),
		Goal:      goal,
		CreatedAt: schema.Timestamp(time.Now()),
	}
	for _, ds := range selected.Steps {
		args := ds.Args
		if args == nil {
			args = map[string]any{}
		}
		plan.Steps = append(plan.Steps, schema.PlanStep{
			ID:          ds.ID,
			Tool:        ds.Tool,
			Args:        args,
			Risk:        schema.RiskLevel(ds.Risk),
			Description: ds.Description,
			Approved:    ds.Approved,
		})
	}
	return plan
}

func matchesAny(goal string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(goal, kw) {
			return true
		}
	}
	return false
}
