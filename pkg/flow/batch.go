package flow

import (
	"context"
	"fmt"
)

// BatchLogic is the three-phase contract for a batch unit of work. Prep
// returns a finite, ordered collection of items; Exec runs once per item,
// in order, under the node's retry policy applied independently per item;
// Post receives the results in the same order and length as the items.
type BatchLogic interface {
	Prep(ctx context.Context, shared Shared) ([]any, error)
	Exec(ctx context.Context, item any) (any, error)
	Post(ctx context.Context, shared Shared, items []any, results []any) (Action, error)
}

// BatchFuncs adapts plain functions to the BatchLogic contract, like Funcs
// does for Logic. Nil PrepFn yields an empty batch; nil PostFn returns
// ActionDefault.
type BatchFuncs struct {
	PrepFn     func(ctx context.Context, shared Shared) ([]any, error)
	ExecFn     func(ctx context.Context, item any) (any, error)
	PostFn     func(ctx context.Context, shared Shared, items []any, results []any) (Action, error)
	FallbackFn func(ctx context.Context, item any, execErr error) (any, error)
}

func (f BatchFuncs) Prep(ctx context.Context, shared Shared) ([]any, error) {
	if f.PrepFn == nil {
		return nil, nil
	}
	return f.PrepFn(ctx, shared)
}

func (f BatchFuncs) Exec(ctx context.Context, item any) (any, error) {
	if f.ExecFn == nil {
		return nil, nil
	}
	return f.ExecFn(ctx, item)
}

func (f BatchFuncs) Post(ctx context.Context, shared Shared, items []any, results []any) (Action, error) {
	if f.PostFn == nil {
		return ActionDefault, nil
	}
	return f.PostFn(ctx, shared, items, results)
}

func (f BatchFuncs) ExecFallback(ctx context.Context, item any, execErr error) (any, error) {
	if f.FallbackFn == nil {
		return nil, execErr
	}
	return f.FallbackFn(ctx, item, execErr)
}

// BatchNode runs its Exec phase once per element of the prepared
// collection, sequentially, in collection order.
type BatchNode struct {
	name   string
	logic  BatchLogic
	retry  RetryPolicy
	params Params
	next   map[Action]Runner
}

// NewBatchNode creates a batch unit of work wrapping the given logic.
func NewBatchNode(name string, logic BatchLogic, opts ...NodeOption) *BatchNode {
	n := newBatchConfig(name, logic, opts...)
	return &BatchNode{
		name:   n.name,
		logic:  logic,
		retry:  n.retry,
		params: n.params,
		next:   make(map[Action]Runner),
	}
}

// newBatchConfig reuses the Node option plumbing for batch variants.
func newBatchConfig(name string, logic BatchLogic, opts ...NodeOption) *Node {
	if name == "" {
		panic("flow: node name must not be empty")
	}
	if logic == nil {
		panic(fmt.Sprintf("flow: node %q has nil logic", name))
	}
	n := &Node{name: name, retry: RetryPolicy{MaxAttempts: 1}}
	for _, opt := range opts {
		opt(n)
	}
	n.retry = n.retry.normalized()
	return n
}

// Name returns the node's identity.
func (n *BatchNode) Name() string { return n.name }

// On registers the successor for an exact action.
func (n *BatchNode) On(action Action, next Runner) *BatchNode {
	n.next[action] = next
	return n
}

// Then registers the successor for ActionDefault.
func (n *BatchNode) Then(next Runner) *BatchNode {
	return n.On(ActionDefault, next)
}

// SetParams replaces the node's own params.
func (n *BatchNode) SetParams(p Params) { n.params = p }

// Run executes the batch lifecycle once, outside any flow.
func (n *BatchNode) Run(ctx context.Context, shared Shared) (Action, error) {
	return n.run(ctx, shared)
}

func (n *BatchNode) run(ctx context.Context, shared Shared) (Action, error) {
	ctx = WithParams(ctx, mergeParams(ParamsFrom(ctx), n.params))

	items, err := n.logic.Prep(ctx, shared)
	if err != nil {
		return "", fmt.Errorf("node %s: prep: %w", n.name, err)
	}

	results := make([]any, len(items))
	for i, item := range items {
		out, err := execWithRetry(ctx, n.name, n.logic, n.retry, item)
		if err != nil {
			return "", fmt.Errorf("node %s: item %d: %w", n.name, i, err)
		}
		results[i] = out
	}

	action, err := n.logic.Post(ctx, shared, items, results)
	if err != nil {
		return "", fmt.Errorf("node %s: post: %w", n.name, err)
	}
	if action == "" {
		action = ActionDefault
	}
	return action, nil
}

func (n *BatchNode) successor(action Action) (Runner, bool) {
	next, ok := n.next[action]
	return next, ok
}

// BatchPrep produces the ordered parameter fragments a batch flow iterates
// over. It may read and write the Shared context.
type BatchPrep func(ctx context.Context, shared Shared) ([]Params, error)

// BatchFlow runs its wrapped graph once per parameter fragment, in
// fragment order, against the same Shared context. Each run sees the
// flow's params with the fragment merged on top (fragment keys win);
// nesting batch flows composes fragments from all enclosing levels.
type BatchFlow struct {
	name   string
	start  Runner
	params Params
	next   map[Action]Runner
	obs    Observer

	prep BatchPrep
	post PostHook
}

// BatchFlowOption configures a BatchFlow at construction time.
type BatchFlowOption func(*BatchFlow)

// WithBatchObserver attaches an observer to the batch flow.
func WithBatchObserver(obs Observer) BatchFlowOption {
	return func(f *BatchFlow) {
		if obs != nil {
			f.obs = obs
		}
	}
}

// WithBatchFlowParams sets the batch flow's own params.
func WithBatchFlowParams(p Params) BatchFlowOption {
	return func(f *BatchFlow) { f.params = p }
}

// WithBatchPost sets the finalize hook consulted for the batch flow's own
// outcome action.
func WithBatchPost(h PostHook) BatchFlowOption {
	return func(f *BatchFlow) { f.post = h }
}

// NewBatchFlow creates a batch flow that runs the graph rooted at start
// once per fragment produced by prep.
func NewBatchFlow(name string, start Runner, prep BatchPrep, opts ...BatchFlowOption) *BatchFlow {
	if name == "" {
		panic("flow: flow name must not be empty")
	}
	if prep == nil {
		panic(fmt.Sprintf("flow: batch flow %q has nil prep", name))
	}
	f := &BatchFlow{
		name:  name,
		start: start,
		next:  make(map[Action]Runner),
		prep:  prep,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns the flow's identity.
func (f *BatchFlow) Name() string { return f.name }

// On registers the successor for an exact action.
func (f *BatchFlow) On(action Action, next Runner) *BatchFlow {
	f.next[action] = next
	return f
}

// Then registers the successor for ActionDefault.
func (f *BatchFlow) Then(next Runner) *BatchFlow {
	return f.On(ActionDefault, next)
}

// SetParams replaces the flow's own params.
func (f *BatchFlow) SetParams(p Params) { f.params = p }

// Run executes the batch flow against the given shared context.
func (f *BatchFlow) Run(ctx context.Context, shared Shared) (Action, error) {
	return f.run(ctx, shared)
}

func (f *BatchFlow) run(ctx context.Context, shared Shared) (Action, error) {
	base := mergeParams(ParamsFrom(ctx), f.params)
	ctx = WithParams(ctx, base)

	obs := f.obs
	if obs == nil {
		obs = observerFrom(ctx)
	}
	ctx = withObserver(ctx, obs)

	obs.OnFlowStart(ctx, f.name)

	fragments, err := f.prep(ctx, shared)
	if err != nil {
		err = fmt.Errorf("flow %s: prep: %w", f.name, err)
		obs.OnFlowFailed(ctx, f.name, err)
		return "", err
	}

	for i, fragment := range fragments {
		runCtx := WithParams(ctx, mergeParams(base, fragment))
		if err := orchestrate(runCtx, shared, f.start, obs); err != nil {
			err = fmt.Errorf("flow %s: fragment %d: %w", f.name, i, err)
			obs.OnFlowFailed(ctx, f.name, err)
			return "", err
		}
	}

	action := ActionDefault
	if f.post != nil {
		action, err = f.post(ctx, shared, nil)
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

func (f *BatchFlow) successor(action Action) (Runner, bool) {
	next, ok := f.next[action]
	return next, ok
}
