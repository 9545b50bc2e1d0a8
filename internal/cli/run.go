package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/crosshatch/internal/harness"
	"github.com/roach88/crosshatch/internal/values"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Execute a scenario file and print its trace",
		Long: `Execute a multi-actor scenario against a fresh record service.

The scenario runs in a temporary state directory with deterministic key
generation, so repeated runs of the same file print identical traces.

Example:
  crosshatch run testdata/scenarios/restricted_contact.yaml
  crosshatch run scenario.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		formatter.Error("E201", fmt.Sprintf("load scenario: %v", err), nil)
		return WrapExitError(ExitCommandError, "load scenario", err)
	}
	formatter.VerboseLog("scenario %s: %d actors, %d steps", scenario.Name, len(scenario.Actors), len(scenario.Steps))

	result, err := harness.Run(scenario)
	if err != nil {
		formatter.Error("E202", fmt.Sprintf("run scenario: %v", err), nil)
		return WrapExitError(ExitCommandError, "run scenario", err)
	}

	if err := printResult(formatter, scenario, result); err != nil {
		return WrapExitError(ExitCommandError, "write output", err)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func printResult(f *OutputFormatter, scenario *harness.Scenario, result *harness.Result) error {
	if f.Format == "json" {
		trace, err := harness.MarshalTrace(scenario.Name, result.Trace)
		if err != nil {
			return err
		}
		return f.Success(map[string]any{
			"pass":   result.Pass,
			"trace":  json.RawMessage(trace),
			"errors": result.Errors,
		})
	}

	fmt.Fprintf(f.Writer, "scenario %s: %s\n", scenario.Name, passLabel(result.Pass))
	for _, e := range result.Trace {
		fmt.Fprintf(f.Writer, "  %3d  %-8s %-24s%s%s\n", e.Seq, e.Actor, e.Op, bagText(" ", e.Args), bagText(" -> ", e.Result))
	}
	for _, msg := range result.Errors {
		fmt.Fprintf(f.Writer, "  FAIL %s\n", msg)
	}
	return nil
}

func passLabel(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}

// bagText renders a value bag compactly for the text trace, prefixed when
// non-empty.
func bagText(prefix string, bag values.Values) string {
	if len(bag) == 0 {
		return ""
	}
	data, err := values.MarshalCanonical(bag)
	if err != nil {
		return prefix + "<unserializable>"
	}
	return prefix + string(data)
}
