package flow

import "context"

// Shared is the mutable context a single top-level run threads through
// every unit of work. The engine imposes no schema on its contents.
type Shared map[string]any

// String returns the value for key as a string, or "" when the key is
// absent or holds a non-string.
func (s Shared) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Bool returns the value for key as a bool, or false when the key is
// absent or holds a non-bool.
func (s Shared) Bool(key string) bool {
	v, _ := s[key].(bool)
	return v
}

// Params is the immutable per-invocation parameter set, distinct from the
// Shared context. Enclosing flows merge their params down into each unit
// they run, with inner keys winning on collision.
type Params map[string]any

type paramsKey struct{}

// WithParams returns a context carrying the given params. Flows call this
// before each unit run; unit authors normally only read via ParamsFrom.
func WithParams(ctx context.Context, p Params) context.Context {
	return context.WithValue(ctx, paramsKey{}, p)
}

// ParamsFrom returns the params attached to ctx, or nil when none are set.
func ParamsFrom(ctx context.Context) Params {
	p, _ := ctx.Value(paramsKey{}).(Params)
	return p
}

// mergeParams overlays inner onto outer without mutating either.
// Inner keys win. A nil result is never returned.
func mergeParams(outer, inner Params) Params {
	merged := make(Params, len(outer)+len(inner))
	for k, v := range outer {
		merged[k] = v
	}
	for k, v := range inner {
		merged[k] = v
	}
	return merged
}

type observerKey struct{}

// withObserver attaches the flow's observer so retry notifications can be
// emitted from inside a node's Exec loop.
func withObserver(ctx context.Context, obs Observer) context.Context {
	return context.WithValue(ctx, observerKey{}, obs)
}

func observerFrom(ctx context.Context) Observer {
	if obs, ok := ctx.Value(observerKey{}).(Observer); ok {
		return obs
	}
	return NoopObserver{}
}
