package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one multi-actor test case loaded from YAML. Each step drives
// one facade operation as a named actor; step results can bind to names
// later steps reference as $name.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario exercises.
	Description string `yaml:"description"`

	// Identities registers extra directory entries (package -> uid) on top
	// of the well-known table.
	Identities map[string]int64 `yaml:"identities,omitempty"`

	// Actors maps the short names steps use to application packages. Every
	// actor is constructed before the first step runs.
	Actors map[string]string `yaml:"actors"`

	// Steps is the ordered list of facade operations to execute.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one facade operation performed by one actor.
type Step struct {
	// Actor is the short name of the acting application.
	Actor string `yaml:"actor"`

	// Op names the facade operation (see the Op constants).
	Op string `yaml:"op"`

	// Args holds the operation arguments. Integer arguments may reference
	// earlier bindings as "$name".
	Args map[string]any `yaml:"args,omitempty"`

	// Bind stores the step's resulting id or count under this name.
	Bind string `yaml:"bind,omitempty"`

	// Expect is a subset match against the step's result bag, e.g.
	// {count: 2} or {id: $phone}.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion validates the final trace.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	// Op names the operation the assertion counts or looks for.
	Op string `yaml:"op,omitempty"`

	// Actor restricts trace_contains and trace_count to one actor.
	Actor string `yaml:"actor,omitempty"`

	// Count is the expected occurrence count for trace_count.
	Count int `yaml:"count,omitempty"`

	// Ops is the expected operation order for trace_order. Subsequence
	// match: other operations may appear in between.
	Ops []string `yaml:"ops,omitempty"`
}

// Facade operation names used in scenario steps.
const (
	OpCreateContact         = "create_contact"
	OpCreateName            = "create_name"
	OpCreatePhone           = "create_phone"
	OpUpdateException       = "update_exception"
	OpAggregateForRecord    = "aggregate_for_record"
	OpDataCount             = "data_count"
	OpSetSuperPrimaryPhone  = "set_super_primary_phone"
	OpPrimaryPhoneID        = "primary_phone_id"
	OpCreateGroup           = "create_group"
	OpCreateGroupMembership = "create_group_membership"
)

// Assertion type names.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

var knownOps = map[string]bool{
	OpCreateContact:         true,
	OpCreateName:            true,
	OpCreatePhone:           true,
	OpUpdateException:       true,
	OpAggregateForRecord:    true,
	OpDataCount:             true,
	OpSetSuperPrimaryPhone:  true,
	OpPrimaryPhoneID:        true,
	OpCreateGroup:           true,
	OpCreateGroupMembership: true,
}

// LoadScenario reads, schema-checks, and parses a scenario YAML file.
// Decoding rejects unknown fields, so a typo like "step:" for "steps:"
// fails loudly instead of silently running nothing.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	// CUE checks shape and value constraints over the raw document before
	// the struct decode, so schema errors carry field paths.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := validateSchema(raw); err != nil {
		return nil, fmt.Errorf("scenario schema: %w", err)
	}

	var scenario Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks cross-field rules the schema cannot express:
// steps act as declared actors, binds are defined before use, expects only
// name result fields.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Actors) == 0 {
		return fmt.Errorf("actors map is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	bound := make(map[string]bool)
	for i, step := range s.Steps {
		if step.Actor == "" {
			return fmt.Errorf("steps[%d]: actor is required", i)
		}
		if _, ok := s.Actors[step.Actor]; !ok {
			return fmt.Errorf("steps[%d]: actor %q is not declared", i, step.Actor)
		}
		if !knownOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		for key, arg := range step.Args {
			ref, ok := bindingRef(arg)
			if ok && !bound[ref] {
				return fmt.Errorf("steps[%d]: arg %q references undefined binding $%s", i, key, ref)
			}
		}
		for key, want := range step.Expect {
			if key != "id" && key != "count" {
				return fmt.Errorf("steps[%d]: expect field %q is not a result field", i, key)
			}
			ref, ok := bindingRef(want)
			if ok && !bound[ref] {
				return fmt.Errorf("steps[%d]: expect %q references undefined binding $%s", i, key, ref)
			}
		}
		if step.Bind != "" {
			bound[step.Bind] = true
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// bindingRef reports whether a YAML value is a "$name" binding reference.
func bindingRef(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || len(s) < 2 || s[0] != '$' {
		return "", false
	}
	return s[1:], true
}
