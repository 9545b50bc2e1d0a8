package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/crosshatch/internal/values"
)

// snapshot flattens a finished trace into a value bag whose canonical JSON
// form is the golden file content.
func snapshot(scenarioName string, trace []TraceEvent) values.Values {
	events := make(values.List, len(trace))
	for i, e := range trace {
		events[i] = e.toValues()
	}
	return values.Values{
		"scenario": values.String(scenarioName),
		"trace":    events,
	}
}

// MarshalTrace serializes a trace to canonical JSON: sorted keys, NFC
// strings, no HTML escaping. Two runs of the same scenario produce
// identical bytes, which is what makes golden comparison a plain byte
// diff.
func MarshalTrace(scenarioName string, trace []TraceEvent) ([]byte, error) {
	data, err := values.MarshalCanonical(snapshot(scenarioName, trace))
	if err != nil {
		return nil, fmt.Errorf("marshal trace for %q: %w", scenarioName, err)
	}
	return data, nil
}

// RunWithGolden executes a scenario and compares its trace against the
// golden file testdata/golden/{name}.golden. Regenerate goldens with
// go test ./internal/harness -update.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already-obtained result's trace against the
// golden file for scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalTrace(scenarioName, result.Trace)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
