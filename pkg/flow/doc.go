// Package flow provides a small, embeddable workflow engine built around
// three-phase units of work connected by labeled transitions.
//
// The engine never performs I/O itself. It schedules opaque units of work
// (nodes) and routes control between them based on the action each node
// produces. Data moves exclusively through a Shared context; actions carry
// control signals only.
//
// # Core Concepts
//
//  1. Node: the smallest schedulable unit. Authors implement Logic
//     (Prep, Exec, Post); Exec is the retried phase and must not touch
//     the Shared context.
//  2. Flow: a directed graph of runners connected by action-labeled
//     transitions. A Flow satisfies the same contract as a Node, so flows
//     nest inside larger flows.
//  3. BatchNode / BatchFlow: iteration variants whose Prep produces an
//     ordered collection (items, or parameter fragments for a wrapped
//     sub-flow).
//  4. ParallelBatchNode / ParallelBatchFlow: fan the Exec phase (or the
//     per-fragment sub-runs) out across goroutines while keeping Prep and
//     Post sequential.
//
// A minimal flow:
//
//	hello := flow.NewNode("hello", flow.Funcs{
//	    ExecFn: func(ctx context.Context, prep any) (any, error) {
//	        return "hi", nil
//	    },
//	    PostFn: func(ctx context.Context, shared flow.Shared, prep, exec any) (flow.Action, error) {
//	        shared["greeting"] = exec
//	        return flow.ActionDefault, nil
//	    },
//	})
//
//	f := flow.NewFlow("greet", hello)
//	_, err := f.Run(ctx, flow.Shared{})
//
// Transitions are declared on the source runner:
//
//	review.On("approved", payment)
//	review.On("needs_revision", revise)
//	review.On("rejected", finish)
//	revise.Then(review)
//	payment.Then(finish)
//
// Action matching is exact. A produced action with no registered successor
// ends the traversal at that node; there is no implicit fallback to the
// default edge.
//
// Retries apply to Exec only, configured per node via RetryPolicy. Once
// attempts are exhausted the optional ExecFallback hook may substitute a
// result; otherwise the final error propagates and aborts the traversal.
package flow
