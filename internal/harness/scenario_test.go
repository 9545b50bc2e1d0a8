package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenarioYAML = `
name: sample
description: one actor creates a contact
actors:
  green: com.example.green
steps:
  - actor: green
    op: create_contact
    args: { restricted: true, name: Smith }
    bind: smith
  - actor: green
    op: aggregate_for_record
    args: { record: $smith }
    bind: agg
  - actor: green
    op: data_count
    args: { aggregate: $agg }
    expect: { count: 1 }
assertions:
  - type: trace_count
    op: create_contact
    count: 1
`

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(validScenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "sample", s.Name)
	assert.Equal(t, map[string]string{"green": "com.example.green"}, s.Actors)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, OpCreateContact, s.Steps[0].Op)
	assert.Equal(t, "smith", s.Steps[0].Bind)
	assert.Equal(t, "$smith", s.Steps[1].Args["record"])
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, AssertTraceCount, s.Assertions[0].Type)
}

func TestParseScenarioRejectsUnknownField(t *testing.T) {
	// "step:" instead of "steps:" must fail loudly.
	_, err := ParseScenario([]byte(`
name: typo
description: misspelled steps key
actors:
  green: com.example.green
step:
  - actor: green
    op: create_contact
`))
	require.Error(t, err)
}

func TestParseScenarioRejectsUnknownOp(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: bad-op
description: op outside the facade
actors:
  green: com.example.green
steps:
  - actor: green
    op: drop_all_tables
`))
	require.Error(t, err)
}

func TestParseScenarioRejectsUndeclaredActor(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: bad-actor
description: step by an actor that was never declared
actors:
  green: com.example.green
steps:
  - actor: blue
    op: create_contact
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not declared")
}

func TestParseScenarioRejectsUndefinedBinding(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: bad-binding
description: reference before bind
actors:
  green: com.example.green
steps:
  - actor: green
    op: data_count
    args: { aggregate: $nowhere }
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "$nowhere")
}

func TestParseScenarioRejectsBadExpectField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: bad-expect
description: expect names a field no result carries
actors:
  green: com.example.green
steps:
  - actor: green
    op: create_contact
    expect: { rows: 1 }
`))
	require.Error(t, err)
}

func TestParseScenarioRequiresSteps(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: empty
description: no steps at all
actors:
  green: com.example.green
steps: []
`))
	require.Error(t, err)
}

func TestValidateAssertionRules(t *testing.T) {
	cases := []struct {
		name string
		a    Assertion
	}{
		{"missing type", Assertion{}},
		{"unknown type", Assertion{Type: "final_state"}},
		{"contains without op", Assertion{Type: AssertTraceContains}},
		{"order without ops", Assertion{Type: AssertTraceOrder}},
		{"count without op", Assertion{Type: AssertTraceCount, Count: 1}},
		{"negative count", Assertion{Type: AssertTraceCount, Op: OpCreateContact, Count: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, validateAssertion(0, tc.a))
		})
	}
}

func TestLoadScenarioFromFile(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/restricted_contact.yaml")
	require.NoError(t, err)
	assert.Equal(t, "restricted-contact", s.Name)
	assert.Len(t, s.Steps, 5)
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/does_not_exist.yaml")
	require.Error(t, err)
}
