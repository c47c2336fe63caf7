package flow

import (
	"context"
	"log/slog"
	"time"
)

// Observer receives callbacks from the engine for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be
// done asynchronously so as not to delay traversal.
type Observer interface {
	// OnFlowStart is called once when a flow's run begins, before its
	// prepare hook.
	OnFlowStart(ctx context.Context, flowName string)

	// OnFlowCompleted is called when a flow's run finishes without error,
	// with the flow's own outcome action.
	OnFlowCompleted(ctx context.Context, flowName string, action Action)

	// OnFlowFailed is called when a flow's run is aborted by an error.
	OnFlowFailed(ctx context.Context, flowName string, err error)

	// OnNodeStart is called before a unit of work runs during traversal.
	OnNodeStart(ctx context.Context, nodeName string)

	// OnNodeCompleted is called after a unit of work returns, for both
	// successes and failures (err != nil).
	OnNodeCompleted(ctx context.Context, nodeName string, action Action, err error, duration time.Duration)

	// OnNodeRetry is called after a failed Exec attempt when another
	// attempt remains. attempt is 1-based.
	OnNodeRetry(ctx context.Context, nodeName string, attempt int, err error)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnFlowStart(ctx context.Context, flowName string)                   {}
func (NoopObserver) OnFlowCompleted(ctx context.Context, flowName string, action Action) {}
func (NoopObserver) OnFlowFailed(ctx context.Context, flowName string, err error)       {}
func (NoopObserver) OnNodeStart(ctx context.Context, nodeName string)                   {}
func (NoopObserver) OnNodeCompleted(ctx context.Context, nodeName string, action Action, err error, d time.Duration) {
}
func (NoopObserver) OnNodeRetry(ctx context.Context, nodeName string, attempt int, err error) {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnFlowStart(ctx context.Context, flowName string) {
	for _, o := range c.observers {
		o.OnFlowStart(ctx, flowName)
	}
}

func (c *CompositeObserver) OnFlowCompleted(ctx context.Context, flowName string, action Action) {
	for _, o := range c.observers {
		o.OnFlowCompleted(ctx, flowName, action)
	}
}

func (c *CompositeObserver) OnFlowFailed(ctx context.Context, flowName string, err error) {
	for _, o := range c.observers {
		o.OnFlowFailed(ctx, flowName, err)
	}
}

func (c *CompositeObserver) OnNodeStart(ctx context.Context, nodeName string) {
	for _, o := range c.observers {
		o.OnNodeStart(ctx, nodeName)
	}
}

func (c *CompositeObserver) OnNodeCompleted(ctx context.Context, nodeName string, action Action, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnNodeCompleted(ctx, nodeName, action, err, d)
	}
}

func (c *CompositeObserver) OnNodeRetry(ctx context.Context, nodeName string, attempt int, err error) {
	for _, o := range c.observers {
		o.OnNodeRetry(ctx, nodeName, attempt, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs flow and node lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnFlowStart(ctx context.Context, flowName string) {
	o.Logger.InfoContext(ctx, "flow_start",
		slog.String("flow", flowName),
	)
}

func (o *LoggingObserver) OnFlowCompleted(ctx context.Context, flowName string, action Action) {
	o.Logger.InfoContext(ctx, "flow_completed",
		slog.String("flow", flowName),
		slog.String("action", string(action)),
	)
}

func (o *LoggingObserver) OnFlowFailed(ctx context.Context, flowName string, err error) {
	o.Logger.ErrorContext(ctx, "flow_failed",
		slog.String("flow", flowName),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnNodeStart(ctx context.Context, nodeName string) {
	o.Logger.DebugContext(ctx, "node_start",
		slog.String("node", nodeName),
	)
}

func (o *LoggingObserver) OnNodeCompleted(ctx context.Context, nodeName string, action Action, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "node_completed",
		slog.String("node", nodeName),
		slog.String("action", string(action)),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnNodeRetry(ctx context.Context, nodeName string, attempt int, err error) {
	o.Logger.WarnContext(ctx, "node_retry",
		slog.String("node", nodeName),
		slog.Int("attempt", attempt),
		slog.Any("error", err),
	)
}
