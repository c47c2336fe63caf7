package flow

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ParallelBatchNode is a BatchNode whose Exec phase fans out across
// goroutines, one per item. Prep and Post still run once, sequentially,
// outside the concurrent region, so they remain the only phases that may
// touch the Shared context. Results are slotted by item index, so the
// aggregated list matches input order regardless of completion order.
//
// The engine applies no throttling; callers are responsible for bounding
// concurrency and for keeping the per-item Exec calls independent.
type ParallelBatchNode struct {
	name   string
	logic  BatchLogic
	retry  RetryPolicy
	params Params
	next   map[Action]Runner
}

// NewParallelBatchNode creates a concurrent batch unit of work.
func NewParallelBatchNode(name string, logic BatchLogic, opts ...NodeOption) *ParallelBatchNode {
	n := newBatchConfig(name, logic, opts...)
	return &ParallelBatchNode{
		name:   n.name,
		logic:  logic,
		retry:  n.retry,
		params: n.params,
		next:   make(map[Action]Runner),
	}
}

// Name returns the node's identity.
func (n *ParallelBatchNode) Name() string { return n.name }

// On registers the successor for an exact action.
func (n *ParallelBatchNode) On(action Action, next Runner) *ParallelBatchNode {
	n.next[action] = next
	return n
}

// Then registers the successor for ActionDefault.
func (n *ParallelBatchNode) Then(next Runner) *ParallelBatchNode {
	return n.On(ActionDefault, next)
}

// SetParams replaces the node's own params.
func (n *ParallelBatchNode) SetParams(p Params) { n.params = p }

// Run executes the batch lifecycle once, outside any flow.
func (n *ParallelBatchNode) Run(ctx context.Context, shared Shared) (Action, error) {
	return n.run(ctx, shared)
}

func (n *ParallelBatchNode) run(ctx context.Context, shared Shared) (Action, error) {
	ctx = WithParams(ctx, mergeParams(ParamsFrom(ctx), n.params))

	items, err := n.logic.Prep(ctx, shared)
	if err != nil {
		return "", fmt.Errorf("node %s: prep: %w", n.name, err)
	}

	results := make([]any, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			out, err := execWithRetry(gctx, n.name, n.logic, n.retry, item)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("node %s: %w", n.name, err)
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

func (n *ParallelBatchNode) successor(action Action) (Runner, bool) {
	next, ok := n.next[action]
	return next, ok
}

// ParallelBatchFlow is a BatchFlow whose per-fragment sub-runs execute
// concurrently. The fragment prep and the finalize hook stay sequential:
// they are the single-writer seam around the concurrent region. Units run
// inside the fragments must confine Shared mutation accordingly; the
// engine adds no locking.
type ParallelBatchFlow struct {
	name   string
	start  Runner
	params Params
	next   map[Action]Runner
	obs    Observer

	prep BatchPrep
	post PostHook
}

// NewParallelBatchFlow creates a batch flow whose fragments run
// concurrently.
func NewParallelBatchFlow(name string, start Runner, prep BatchPrep, opts ...BatchFlowOption) *ParallelBatchFlow {
	inner := NewBatchFlow(name, start, prep, opts...)
	return &ParallelBatchFlow{
		name:   inner.name,
		start:  inner.start,
		params: inner.params,
		next:   make(map[Action]Runner),
		obs:    inner.obs,
		prep:   inner.prep,
		post:   inner.post,
	}
}

// Name returns the flow's identity.
func (f *ParallelBatchFlow) Name() string { return f.name }

// On registers the successor for an exact action.
func (f *ParallelBatchFlow) On(action Action, next Runner) *ParallelBatchFlow {
	f.next[action] = next
	return f
}

// Then registers the successor for ActionDefault.
func (f *ParallelBatchFlow) Then(next Runner) *ParallelBatchFlow {
	return f.On(ActionDefault, next)
}

// SetParams replaces the flow's own params.
func (f *ParallelBatchFlow) SetParams(p Params) { f.params = p }

// Run executes the batch flow against the given shared context.
func (f *ParallelBatchFlow) Run(ctx context.Context, shared Shared) (Action, error) {
	return f.run(ctx, shared)
}

func (f *ParallelBatchFlow) run(ctx context.Context, shared Shared) (Action, error) {
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

	g, gctx := errgroup.WithContext(ctx)
	for i, fragment := range fragments {
		g.Go(func() error {
			runCtx := WithParams(gctx, mergeParams(base, fragment))
			if err := orchestrate(runCtx, shared, f.start, obs); err != nil {
				return fmt.Errorf("fragment %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		err = fmt.Errorf("flow %s: %w", f.name, err)
		obs.OnFlowFailed(ctx, f.name, err)
		return "", err
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

func (f *ParallelBatchFlow) successor(action Action) (Runner, bool) {
	next, ok := f.next[action]
	return next, ok
}
