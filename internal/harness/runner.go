package harness

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/roach88/crosshatch/internal/directory"
	"github.com/roach88/crosshatch/internal/recordsvc"
	"github.com/roach88/crosshatch/internal/testutil"
	"github.com/roach88/crosshatch/internal/values"
)

// Run executes a scenario and returns its result. Every run gets a fresh
// state directory, a sequence key generator, and a logical step clock, so
// the same scenario always produces a byte-identical trace.
//
// An operation error aborts the run: a failing facade call means a broken
// fixture or a service regression, not a scenario outcome. Expect and
// assertion mismatches do not abort; they fail the result.
func Run(scenario *Scenario) (*Result, error) {
	stateDir, err := os.MkdirTemp("", "crosshatch-scenario-")
	if err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	defer os.RemoveAll(stateDir)

	dir := directory.WellKnown()
	for _, pkg := range sortedKeys(scenario.Identities) {
		if err := dir.Add(scenario.Identities[pkg], pkg); err != nil {
			return nil, fmt.Errorf("register identity %q: %w", pkg, err)
		}
	}

	env := NewEnv(stateDir, WithDirectory(dir), WithLogger(testutil.DiscardLogger()))
	factory := recordsvc.Factory(
		recordsvc.WithKeyGenerator(recordsvc.NewSequenceGenerator(scenario.Name)),
	)

	actors := make(map[string]*Actor, len(scenario.Actors))
	for _, alias := range sortedKeys(scenario.Actors) {
		actor, err := NewActor(env, scenario.Actors[alias], factory, recordsvc.DefaultAuthority)
		if err != nil {
			return nil, fmt.Errorf("construct actor %q: %w", alias, err)
		}
		actors[alias] = actor
	}

	r := &runner{
		scenario: scenario,
		actors:   actors,
		clock:    testutil.NewStepClock(),
		result:   NewResult(),
	}

	ctx := context.Background()
	for i, step := range scenario.Steps {
		if err := r.runStep(ctx, i, step); err != nil {
			return nil, err
		}
	}

	for _, msg := range EvaluateAssertions(r.result.Trace, scenario.Assertions) {
		r.result.AddError(msg)
	}
	return r.result, nil
}

type runner struct {
	scenario *Scenario
	actors   map[string]*Actor
	clock    *testutil.StepClock
	result   *Result
}

func (r *runner) runStep(ctx context.Context, index int, step Step) error {
	actor := r.actors[step.Actor]
	args, res, bind, err := r.execute(ctx, actor, step)
	if err != nil {
		return fmt.Errorf("step %d (%s %s): %w", index, step.Actor, step.Op, err)
	}

	r.result.AddTrace(r.clock.Next(), step.Actor, step.Op, args, res)
	if step.Bind != "" {
		r.result.Bindings[step.Bind] = bind
	}

	for _, key := range sortedKeys(step.Expect) {
		want, err := r.intValue(step.Expect[key])
		if err != nil {
			return fmt.Errorf("step %d (%s %s): expect %q: %w", index, step.Actor, step.Op, key, err)
		}
		got, ok := res[key].(values.Int)
		if !ok {
			r.result.AddError(fmt.Sprintf("step %d (%s %s): result has no %q field", index, step.Actor, step.Op, key))
			continue
		}
		if int64(got) != want {
			r.result.AddError(fmt.Sprintf("step %d (%s %s): %s = %d, want %d", index, step.Actor, step.Op, key, got, want))
		}
	}
	return nil
}

// execute dispatches one facade operation and returns the resolved argument
// bag, the result bag, and the value a bind would store.
func (r *runner) execute(ctx context.Context, actor *Actor, step Step) (values.Values, values.Values, int64, error) {
	switch step.Op {
	case OpCreateContact:
		restricted, err := r.boolArg(step, "restricted")
		if err != nil {
			return nil, nil, 0, err
		}
		name, hasName := step.Args["name"].(string)
		args := values.Values{"restricted": values.Bool(restricted)}
		var id int64
		if hasName {
			args["name"] = values.String(name)
			id, err = actor.CreateContactWithName(ctx, restricted, name)
		} else {
			id, err = actor.CreateContact(ctx, restricted)
		}
		return args, idResult(id), id, err

	case OpCreateName:
		recordID, err := r.intArg(step, "record")
		if err != nil {
			return nil, nil, 0, err
		}
		name, err := r.stringArg(step, "name")
		if err != nil {
			return nil, nil, 0, err
		}
		id, err := actor.CreateName(ctx, recordID, name)
		args := values.Values{"record": values.Int(recordID), "name": values.String(name)}
		return args, idResult(id), id, err

	case OpCreatePhone:
		recordID, err := r.intArg(step, "record")
		if err != nil {
			return nil, nil, 0, err
		}
		number, err := r.stringArg(step, "number")
		if err != nil {
			return nil, nil, 0, err
		}
		id, err := actor.CreatePhone(ctx, recordID, number)
		args := values.Values{"record": values.Int(recordID), "number": values.String(number)}
		return args, idResult(id), id, err

	case OpUpdateException:
		providerPkg, err := r.packageArg(step, "provider")
		if err != nil {
			return nil, nil, 0, err
		}
		clientPkg, err := r.packageArg(step, "client")
		if err != nil {
			return nil, nil, 0, err
		}
		allow, err := r.boolArg(step, "allow")
		if err != nil {
			return nil, nil, 0, err
		}
		err = actor.UpdateException(ctx, providerPkg, clientPkg, allow)
		args := values.Values{
			"provider": values.String(providerPkg),
			"client":   values.String(clientPkg),
			"allow":    values.Bool(allow),
		}
		return args, nil, 0, err

	case OpAggregateForRecord:
		recordID, err := r.intArg(step, "record")
		if err != nil {
			return nil, nil, 0, err
		}
		id, err := actor.AggregateForRecord(ctx, recordID)
		return values.Values{"record": values.Int(recordID)}, idResult(id), id, err

	case OpDataCount:
		aggID, err := r.intArg(step, "aggregate")
		if err != nil {
			return nil, nil, 0, err
		}
		count, err := actor.DataCountForAggregate(ctx, aggID)
		args := values.Values{"aggregate": values.Int(aggID)}
		return args, values.Values{"count": values.Int(count)}, int64(count), err

	case OpSetSuperPrimaryPhone:
		dataID, err := r.intArg(step, "data")
		if err != nil {
			return nil, nil, 0, err
		}
		err = actor.SetSuperPrimaryPhone(ctx, dataID)
		return values.Values{"data": values.Int(dataID)}, nil, 0, err

	case OpPrimaryPhoneID:
		aggID, err := r.intArg(step, "aggregate")
		if err != nil {
			return nil, nil, 0, err
		}
		id, err := actor.PrimaryPhoneID(ctx, aggID)
		return values.Values{"aggregate": values.Int(aggID)}, idResult(id), id, err

	case OpCreateGroup:
		name, err := r.stringArg(step, "name")
		if err != nil {
			return nil, nil, 0, err
		}
		id, err := actor.CreateGroup(ctx, name)
		return values.Values{"name": values.String(name)}, idResult(id), id, err

	case OpCreateGroupMembership:
		recordID, err := r.intArg(step, "record")
		if err != nil {
			return nil, nil, 0, err
		}
		groupID, err := r.intArg(step, "group")
		if err != nil {
			return nil, nil, 0, err
		}
		id, err := actor.CreateGroupMembership(ctx, recordID, groupID)
		args := values.Values{"record": values.Int(recordID), "group": values.Int(groupID)}
		return args, idResult(id), id, err

	default:
		return nil, nil, 0, fmt.Errorf("unknown op %q", step.Op)
	}
}

func idResult(id int64) values.Values {
	return values.Values{"id": values.Int(id)}
}

// intValue resolves a YAML scalar that may be an integer literal or a
// "$name" binding reference.
func (r *runner) intValue(v any) (int64, error) {
	if ref, ok := bindingRef(v); ok {
		bound, ok := r.result.Bindings[ref]
		if !ok {
			return 0, fmt.Errorf("undefined binding $%s", ref)
		}
		return bound, nil
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	default:
		return 0, fmt.Errorf("want integer or $binding, got %T", v)
	}
}

func (r *runner) intArg(step Step, key string) (int64, error) {
	v, ok := step.Args[key]
	if !ok {
		return 0, fmt.Errorf("missing arg %q", key)
	}
	n, err := r.intValue(v)
	if err != nil {
		return 0, fmt.Errorf("arg %q: %w", key, err)
	}
	return n, nil
}

func (r *runner) stringArg(step Step, key string) (string, error) {
	v, ok := step.Args[key]
	if !ok {
		return "", fmt.Errorf("missing arg %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("arg %q: want string, got %T", key, v)
	}
	return s, nil
}

// boolArg reads an optional boolean argument; absent means false.
func (r *runner) boolArg(step Step, key string) (bool, error) {
	v, ok := step.Args[key]
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("arg %q: want bool, got %T", key, v)
	}
	return b, nil
}

// packageArg reads an application reference: either a declared actor's
// short name or a literal package string, so exception rules can name
// unregistered callers.
func (r *runner) packageArg(step Step, key string) (string, error) {
	s, err := r.stringArg(step, key)
	if err != nil {
		return "", err
	}
	if pkg, ok := r.scenario.Actors[s]; ok {
		return pkg, nil
	}
	return s, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
