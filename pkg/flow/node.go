package flow

import (
	"context"
	"fmt"
	"time"
)

// Logic is the three-phase contract a unit of work implements.
//
// Prep may read and write the Shared context. Exec must not touch it:
// Exec is the retried phase and has to be safe to invoke repeatedly with
// the same prep result. Post writes results back into the Shared context
// and returns the outcome action; returning the empty action with a nil
// error means ActionDefault.
type Logic interface {
	Prep(ctx context.Context, shared Shared) (any, error)
	Exec(ctx context.Context, prep any) (any, error)
	Post(ctx context.Context, shared Shared, prep, exec any) (Action, error)
}

// Fallback may be implemented by a Logic (or BatchLogic) to recover after
// Exec has exhausted its retry attempts. Returning a nil error substitutes
// the returned value for the Exec result and lets Post run normally;
// returning an error aborts the run with that error.
type Fallback interface {
	ExecFallback(ctx context.Context, prep any, execErr error) (any, error)
}

// Base is a no-op Logic intended for embedding. Prep and Exec return nil,
// Post returns ActionDefault. Embed it and override the phases you need.
type Base struct{}

func (Base) Prep(context.Context, Shared) (any, error) { return nil, nil }

func (Base) Exec(context.Context, any) (any, error) { return nil, nil }

func (Base) Post(context.Context, Shared, any, any) (Action, error) {
	return ActionDefault, nil
}

// Funcs adapts plain functions to the Logic contract. Nil fields fall back
// to the Base behavior. If FallbackFn is set, Funcs also implements
// Fallback.
type Funcs struct {
	PrepFn     func(ctx context.Context, shared Shared) (any, error)
	ExecFn     func(ctx context.Context, prep any) (any, error)
	PostFn     func(ctx context.Context, shared Shared, prep, exec any) (Action, error)
	FallbackFn func(ctx context.Context, prep any, execErr error) (any, error)
}

func (f Funcs) Prep(ctx context.Context, shared Shared) (any, error) {
	if f.PrepFn == nil {
		return nil, nil
	}
	return f.PrepFn(ctx, shared)
}

func (f Funcs) Exec(ctx context.Context, prep any) (any, error) {
	if f.ExecFn == nil {
		return nil, nil
	}
	return f.ExecFn(ctx, prep)
}

func (f Funcs) Post(ctx context.Context, shared Shared, prep, exec any) (Action, error) {
	if f.PostFn == nil {
		return ActionDefault, nil
	}
	return f.PostFn(ctx, shared, prep, exec)
}

func (f Funcs) ExecFallback(ctx context.Context, prep any, execErr error) (any, error) {
	if f.FallbackFn == nil {
		return nil, execErr
	}
	return f.FallbackFn(ctx, prep, execErr)
}

// Node is a single unit of work in a flow: a Logic plus identity, retry
// policy, static params, and the outgoing transition table.
type Node struct {
	name   string
	logic  Logic
	retry  RetryPolicy
	params Params
	next   map[Action]Runner
}

// NodeOption configures a Node at construction time.
type NodeOption func(*Node)

// WithRetry sets the node's retry policy for the Exec phase.
func WithRetry(p RetryPolicy) NodeOption {
	return func(n *Node) { n.retry = p }
}

// WithNodeParams sets the node's own params. They win over params merged
// down from an enclosing flow.
func WithNodeParams(p Params) NodeOption {
	return func(n *Node) { n.params = p }
}

// NewNode creates a unit of work wrapping the given logic.
// It panics on empty name or nil logic, mirroring transition-table
// construction being a programming-time concern.
func NewNode(name string, logic Logic, opts ...NodeOption) *Node {
	if name == "" {
		panic("flow: node name must not be empty")
	}
	if logic == nil {
		panic(fmt.Sprintf("flow: node %q has nil logic", name))
	}
	n := &Node{
		name:  name,
		logic: logic,
		retry: RetryPolicy{MaxAttempts: 1},
		next:  make(map[Action]Runner),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.retry = n.retry.normalized()
	return n
}

// Name returns the node's identity.
func (n *Node) Name() string { return n.name }

// On registers the successor for an exact action. Registering the same
// action twice replaces the earlier successor. Returns n for chaining.
func (n *Node) On(action Action, next Runner) *Node {
	n.next[action] = next
	return n
}

// Then registers the successor for ActionDefault.
func (n *Node) Then(next Runner) *Node {
	return n.On(ActionDefault, next)
}

// SetParams replaces the node's own params.
func (n *Node) SetParams(p Params) { n.params = p }

// Run executes prepare→exec→post once and returns the resulting action
// without consulting the transition table. It is meant for exercising a
// node in isolation (tests, or single-shot invocations outside a flow);
// production traversal goes through a Flow.
func (n *Node) Run(ctx context.Context, shared Shared) (Action, error) {
	return n.run(ctx, shared)
}

func (n *Node) run(ctx context.Context, shared Shared) (Action, error) {
	ctx = WithParams(ctx, mergeParams(ParamsFrom(ctx), n.params))

	prep, err := n.logic.Prep(ctx, shared)
	if err != nil {
		return "", fmt.Errorf("node %s: prep: %w", n.name, err)
	}

	exec, err := execWithRetry(ctx, n.name, n.logic, n.retry, prep)
	if err != nil {
		return "", fmt.Errorf("node %s: %w", n.name, err)
	}

	action, err := n.logic.Post(ctx, shared, prep, exec)
	if err != nil {
		return "", fmt.Errorf("node %s: post: %w", n.name, err)
	}
	if action == "" {
		action = ActionDefault
	}
	return action, nil
}

func (n *Node) successor(action Action) (Runner, bool) {
	next, ok := n.next[action]
	return next, ok
}

// execLogic is the slice of Logic/BatchLogic that execWithRetry needs:
// batch nodes share the same per-item retry loop.
type execLogic interface {
	Exec(ctx context.Context, prep any) (any, error)
}

// execWithRetry drives the retried phase: invoke Exec up to
// policy.MaxAttempts times, waiting policy.Wait before each retry, then
// hand the final error to the logic's ExecFallback if it has one.
// The backoff wait is context-aware so a cancelled run never sleeps.
func execWithRetry(ctx context.Context, name string, logic execLogic, policy RetryPolicy, prep any) (any, error) {
	policy = policy.normalized()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		out, err := logic.Exec(ctx, prep)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt == policy.MaxAttempts {
			break
		}

		observerFrom(ctx).OnNodeRetry(ctx, name, attempt, err)

		if policy.Wait > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(policy.Wait):
			}
		}
	}

	if fb, ok := logic.(Fallback); ok {
		out, err := fb.ExecFallback(ctx, prep, lastErr)
		if err != nil {
			return nil, fmt.Errorf("exec failed after %d attempts: %w", policy.MaxAttempts, err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("exec failed after %d attempts: %w", policy.MaxAttempts, lastErr)
}
