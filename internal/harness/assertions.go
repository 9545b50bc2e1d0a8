package harness

import (
	"fmt"
	"strings"
)

// EvaluateAssertions checks scenario assertions against a finished trace
// and returns one message per failed assertion. All assertions are
// evaluated; nothing fails fast.
func EvaluateAssertions(trace []TraceEvent, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var msg string
		switch a.Type {
		case AssertTraceContains:
			msg = assertTraceContains(trace, a)
		case AssertTraceOrder:
			msg = assertTraceOrder(trace, a)
		case AssertTraceCount:
			msg = assertTraceCount(trace, a)
		default:
			msg = fmt.Sprintf("unknown assertion type %q", a.Type)
		}
		if msg != "" {
			failures = append(failures, fmt.Sprintf("assertion %d (%s): %s", i, a.Type, msg))
		}
	}
	return failures
}

// matches reports whether an event satisfies an assertion's op and
// optional actor constraint.
func matches(e TraceEvent, a Assertion) bool {
	if e.Op != a.Op {
		return false
	}
	return a.Actor == "" || e.Actor == a.Actor
}

func assertTraceContains(trace []TraceEvent, a Assertion) string {
	for _, e := range trace {
		if matches(e, a) {
			return ""
		}
	}
	if a.Actor != "" {
		return fmt.Sprintf("no %s by %s in trace", a.Op, a.Actor)
	}
	return fmt.Sprintf("no %s in trace", a.Op)
}

// assertTraceOrder checks that the listed ops appear in order as a
// subsequence of the trace; unrelated operations may appear in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) string {
	next := 0
	for _, e := range trace {
		if next < len(a.Ops) && e.Op == a.Ops[next] {
			next++
		}
	}
	if next < len(a.Ops) {
		return fmt.Sprintf("trace is missing %s at position %d of [%s]",
			a.Ops[next], next, strings.Join(a.Ops, " "))
	}
	return ""
}

func assertTraceCount(trace []TraceEvent, a Assertion) string {
	count := 0
	for _, e := range trace {
		if matches(e, a) {
			count++
		}
	}
	if count != a.Count {
		return fmt.Sprintf("%s appears %d times, want %d", a.Op, count, a.Count)
	}
	return ""
}
