package flow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Action is the control signal a unit's Post phase returns. Actions carry
// no payload; data moves through the Shared context.
type Action string

// ActionDefault is substituted when Post yields no explicit action.
const ActionDefault Action = "default"

// Common actions used across the application's flows. Any other string is
// a valid custom action.
const (
	ActionError Action = "error"
	ActionExit  Action = "exit"
)

// ErrNoStart is returned by a Flow constructed without a start runner.
var ErrNoStart = errors.New("flow: no start node")

// Runner is the minimal contract shared by nodes and flows so that a flow
// can appear as a unit of work inside a larger flow. The run and successor
// methods are unexported on purpose: the set of runner kinds is closed.
type Runner interface {
	// Name returns the runner's identity, used in observer callbacks.
	Name() string

	// SetParams replaces the runner's own static params.
	SetParams(Params)

	run(ctx context.Context, shared Shared) (Action, error)
	successor(Action) (Runner, bool)
}

var (
	_ Runner = (*Node)(nil)
	_ Runner = (*Flow)(nil)
	_ Runner = (*BatchNode)(nil)
	_ Runner = (*ParallelBatchNode)(nil)
	_ Runner = (*BatchFlow)(nil)
	_ Runner = (*ParallelBatchFlow)(nil)
)

// PrepHook runs before a flow's traversal; it may read and write the
// Shared context like any prepare phase.
type PrepHook func(ctx context.Context, shared Shared) (any, error)

// PostHook runs after a flow's traversal completes. Because the real work
// of a nested flow is the traversal itself, the hook receives only the
// prep result and must derive its outcome action from the Shared context.
type PostHook func(ctx context.Context, shared Shared, prep any) (Action, error)

// Flow is a directed graph of runners connected by action-labeled
// transitions. Flow satisfies Runner, so flows nest as units of work.
type Flow struct {
	name   string
	start  Runner
	params Params
	next   map[Action]Runner
	obs    Observer

	prep PrepHook
	post PostHook
}

// FlowOption configures a Flow at construction time.
type FlowOption func(*Flow)

// WithObserver attaches an observer to the flow. Events cover the flow's
// own lifecycle and each unit it runs, including nested flows.
func WithObserver(obs Observer) FlowOption {
	return func(f *Flow) {
		if obs != nil {
			f.obs = obs
		}
	}
}

// WithFlowParams sets the flow's own params, merged down into every unit
// it runs (unit-level keys win).
func WithFlowParams(p Params) FlowOption {
	return func(f *Flow) { f.params = p }
}

// WithPrep sets the flow's prepare hook.
func WithPrep(h PrepHook) FlowOption {
	return func(f *Flow) { f.prep = h }
}

// WithPost sets the flow's finalize hook, consulted for the flow's own
// outcome action when it is nested inside a parent flow.
func WithPost(h PostHook) FlowOption {
	return func(f *Flow) { f.post = h }
}

// NewFlow creates a flow that starts traversal at start.
func NewFlow(name string, start Runner, opts ...FlowOption) *Flow {
	if name == "" {
		panic("flow: flow name must not be empty")
	}
	f := &Flow{
		name:  name,
		start: start,
		next:  make(map[Action]Runner),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns the flow's identity.
func (f *Flow) Name() string { return f.name }

// On registers the successor used when this flow, nested as a unit inside
// a parent flow, produces the given action.
func (f *Flow) On(action Action, next Runner) *Flow {
	f.next[action] = next
	return f
}

// Then registers the successor for ActionDefault.
func (f *Flow) Then(next Runner) *Flow {
	return f.On(ActionDefault, next)
}

// SetParams replaces the flow's own params.
func (f *Flow) SetParams(p Params) { f.params = p }

// Run executes the flow against the given shared context and returns the
// flow's own outcome action. Callers populate shared before the run and
// read results from it afterward.
func (f *Flow) Run(ctx context.Context, shared Shared) (Action, error) {
	return f.run(ctx, shared)
}

func (f *Flow) run(ctx context.Context, shared Shared) (Action, error) {
	ctx = WithParams(ctx, mergeParams(ParamsFrom(ctx), f.params))

	// A nested flow without its own observer inherits the ambient one so
	// the parent keeps seeing events from the whole subtree.
	obs := f.obs
	if obs == nil {
		obs = observerFrom(ctx)
	}
	ctx = withObserver(ctx, obs)

	obs.OnFlowStart(ctx, f.name)

	var prep any
	if f.prep != nil {
		var err error
		prep, err = f.prep(ctx, shared)
		if err != nil {
			err = fmt.Errorf("flow %s: prep: %w", f.name, err)
			obs.OnFlowFailed(ctx, f.name, err)
			return "", err
		}
	}

	if err := orchestrate(ctx, shared, f.start, obs); err != nil {
		err = fmt.Errorf("flow %s: %w", f.name, err)
		obs.OnFlowFailed(ctx, f.name, err)
		return "", err
	}

	action := ActionDefault
	if f.post != nil {
		var err error
		action, err = f.post(ctx, shared, prep)
		if err != nil {
			err = fmt.Errorf("flow %s: post: %w", f.name, err)
			obs.OnFlowFailed(ctx, f.name, err)
			return "", err
		}
		if action == "" {
			action = ActionDefault
		}
	}

	obs.OnFlowCompleted(ctx, f.name, action)
	return action, nil
}

func (f *Flow) successor(action Action) (Runner, bool) {
	next, ok := f.next[action]
	return next, ok
}

// orchestrate walks the graph from start: run the current unit, resolve
// the produced action against that unit's transition table, move to the
// successor, and stop when no successor is registered. Action matching is
// exact; an unmatched action is a normal terminal state.
func orchestrate(ctx context.Context, shared Shared, start Runner, obs Observer) error {
	if start == nil {
		return ErrNoStart
	}

	current := start
	for current != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		began := time.Now()
		obs.OnNodeStart(ctx, current.Name())

		action, err := current.run(ctx, shared)

		obs.OnNodeCompleted(ctx, current.Name(), action, err, time.Since(began))
		if err != nil {
			return err
		}

		next, ok := current.successor(action)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}
