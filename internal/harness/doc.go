// Package harness simulates multiple independently-identified applications
// driving one shared record service, so the service's per-owner restriction
// logic can be exercised end to end.
//
// An Env is the base environment for one test case: a state directory, the
// shared identity directory, and the registry of running service instances.
// Actors are built over an Env; each actor carries its own identity context
// and resolver but all actors attached at the same authority talk to the
// same service instance, which is what makes cross-identity scenarios work.
//
// # Scenario Format
//
// Multi-actor scenarios are defined in YAML files:
//
//	name: scenario_name
//	description: "What this scenario exercises"
//	actors:
//	  green: com.example.green
//	  red: net.example.red
//	steps:
//	  - actor: green
//	    op: create_contact
//	    args: { restricted: true, name: Smith }
//	    bind: smith
//	  - actor: green
//	    op: data_count
//	    args: { aggregate: $smith_agg }
//	    expect: { count: 1 }
//	assertions:
//	  - type: trace_count
//	    op: create_contact
//	    count: 1
//
// Step results bind to names with `bind:`; later args reference them as
// `$name`. Decoding is strict (unknown fields rejected) and the decoded
// document is additionally validated against an embedded CUE schema.
//
// # Deterministic Execution
//
// Scenarios run against a fresh state directory with a sequence key
// generator and a logical step clock, so the same scenario produces a
// byte-identical trace on every run. Traces serialize to canonical JSON and
// compare against golden files.
package harness
