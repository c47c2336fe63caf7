package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/rag"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/session"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/pkg/flow"
)

// Worker pulls tasks from a Queue and executes the matching flow.
type Worker struct {
	pipeline *rag.Pipeline
	queue    Queue
	logger   *slog.Logger
	flowOpts []flow.FlowOption
}

// WorkerOption configures a Worker at construction time.
type WorkerOption func(*Worker)

// WithLogger sets the worker's logger.
func WithLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = l }
}

// WithFlowOptions sets options, such as observers, applied to every flow
// the worker assembles.
func WithFlowOptions(opts ...flow.FlowOption) WorkerOption {
	return func(w *Worker) { w.flowOpts = opts }
}

// NewWorker creates a new Worker.
func NewWorker(p *rag.Pipeline, queue Queue, opts ...WorkerOption) *Worker {
	w := &Worker{
		pipeline: p,
		queue:    queue,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// EnqueueIngest enqueues a task to ingest a website or an uploaded PDF
// for the session. It does NOT run the flow itself; that is done by
// ProcessOne.
func (w *Worker) EnqueueIngest(ctx context.Context, sessionID, inputType, inputValue string, pdf []byte, filename string) error {
	return w.queue.Enqueue(ctx, Task{
		ID:         uuid.NewString(),
		Type:       TaskTypeIngest,
		SessionID:  sessionID,
		InputType:  inputType,
		InputValue: inputValue,
		PDF:        pdf,
		Filename:   filename,
		EnqueuedAt: time.Now(),
	})
}

// EnqueueGenerateFAQs enqueues a task to generate FAQs from the
// session's processed content.
func (w *Worker) EnqueueGenerateFAQs(ctx context.Context, sessionID string) error {
	return w.queue.Enqueue(ctx, Task{
		ID:         uuid.NewString(),
		Type:       TaskTypeGenerateFAQs,
		SessionID:  sessionID,
		EnqueuedAt: time.Now(),
	})
}

// ProcessOne pulls a single task from the queue and processes it.
// Returns (processed, error):
//   - processed == false, err != nil: nothing processed, dequeue failed
//     (usually context cancellation).
//   - processed == true: a task was processed; err reports a flow engine
//     failure. Domain failures are written into the session instead.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	w.logger.Info("processing task",
		"task_id", task.ID, "type", task.Type, "session_id", task.SessionID)

	switch task.Type {
	case TaskTypeIngest:
		return true, w.runIngest(ctx, task)
	case TaskTypeGenerateFAQs:
		return true, w.runGenerateFAQs(ctx, task)
	default:
		return true, fmt.Errorf("unknown task type: %s", task.Type)
	}
}

func (w *Worker) runIngest(ctx context.Context, task *Task) error {
	shared := flow.Shared{
		rag.KeySessionID:  task.SessionID,
		rag.KeyInputType:  task.InputType,
		rag.KeyInputValue: task.InputValue,
	}

	if len(task.PDF) > 0 {
		path, cleanup, err := spoolPDF(task.PDF)
		if err != nil {
			return w.failSession(ctx, task.SessionID,
				fmt.Sprintf("Failed to store uploaded file: %v", err))
		}
		defer cleanup()
		shared[rag.KeyInputValue] = path
		shared[rag.KeyOriginalFilename] = task.Filename
	}

	if _, err := rag.NewSetupFlow(w.pipeline, w.flowOpts...).Run(ctx, shared); err != nil {
		return w.failSession(ctx, task.SessionID,
			fmt.Sprintf("Content processing failed: %v", err))
	}
	return nil
}

func (w *Worker) runGenerateFAQs(ctx context.Context, task *Task) error {
	sess, err := w.pipeline.Sessions.Get(ctx, task.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			w.logger.Error("session gone before faq generation",
				"session_id", task.SessionID)
			return nil
		}
		return fmt.Errorf("load session %s: %w", task.SessionID, err)
	}

	shared := flow.Shared{
		rag.KeySessionID:        task.SessionID,
		rag.KeyInputType:        sess.InputType,
		rag.KeyInputValue:       sess.InputValue,
		rag.KeyProcessedContent: sess.ProcessedContent,
	}
	if _, err := rag.NewFAQFlow(w.pipeline, w.flowOpts...).Run(ctx, shared); err != nil {
		return w.failSession(ctx, task.SessionID,
			fmt.Sprintf("FAQ generation failed: %v", err))
	}
	return nil
}

// failSession records an engine failure as a terminal session state so
// clients polling the status see the outcome. The original error is
// returned for the run loop to log.
func (w *Worker) failSession(ctx context.Context, sessionID, msg string) error {
	if _, err := w.pipeline.Sessions.Update(ctx, sessionID, session.Update{
		Status:  session.Stat(session.StatusError),
		Message: session.Str(msg),
	}); err != nil {
		w.logger.Error("failed to record task failure",
			"session_id", sessionID, "error", err)
	}
	return errors.New(msg)
}

// Run processes tasks until the context is cancelled. Task failures are
// logged, not fatal.
func (w *Worker) Run(ctx context.Context) error {
	for {
		processed, err := w.ProcessOne(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("task failed", "error", err)
		}
		if !processed && ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// spoolPDF writes uploaded bytes to a temp file and returns its path
// with a cleanup func.
func spoolPDF(data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "upload-*.pdf")
	if err != nil {
		return "", nil, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
