package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medbook-ai/booking-assistant/pkg/logging"
)

// Dispatcher exposes the queue-backed entrypoints used by transport handlers.
type Dispatcher interface {
	StartConversation(ctx context.Context, req StartRequest) (*Response, error)
	ProcessMessage(ctx context.Context, req MessageRequest) (*Response, error)
	Shutdown(ctx context.Context) error
}

// ErrOrchestratorClosed indicates the dispatcher is no longer accepting work.
var ErrOrchestratorClosed = errors.New("conversation: orchestrator closed")

type jobType string

const (
	jobTypeStart   jobType = "start"
	jobTypeMessage jobType = "message"
)

// conversationJob is one unit of work handed to the worker pool.
type conversationJob struct {
	ID      string
	Kind    jobType
	Start   StartRequest
	Message MessageRequest
}

// jobQueue decouples handlers from the workers that drain it. Dequeue blocks
// until a job is available or ctx is done.
type jobQueue interface {
	Enqueue(ctx context.Context, job conversationJob) error
	Dequeue(ctx context.Context) (conversationJob, error)
}

// Orchestrator routes conversation work through a queue before invoking the
// engine. Handlers stay decoupled from processing, and turn ordering within a
// worker is serialized even when the websocket layer fires concurrently.
type Orchestrator struct {
	processor Service
	queue     jobQueue
	logger    *logging.Logger
	workers   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	pending sync.Map // jobID -> chan dispatchResult
}

var _ Service = (*Orchestrator)(nil)
var _ Dispatcher = (*Orchestrator)(nil)

const defaultWorkers = 2

// OrchestratorOption configures the dispatcher.
type OrchestratorOption func(*Orchestrator)

// WithWorkerCount overrides the number of worker goroutines draining the queue.
func WithWorkerCount(workers int) OrchestratorOption {
	return func(o *Orchestrator) {
		if workers > 0 {
			o.workers = workers
		}
	}
}

// NewOrchestrator wires a queue-backed dispatcher around the supplied service.
func NewOrchestrator(processor Service, queue jobQueue, logger *logging.Logger, opts ...OrchestratorOption) *Orchestrator {
	if processor == nil {
		panic("conversation: processor cannot be nil")
	}
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		processor: processor,
		queue:     queue,
		logger:    logger,
		workers:   defaultWorkers,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(o)
	}

	for i := 0; i < o.workers; i++ {
		o.wg.Add(1)
		go o.runWorker(i + 1)
	}

	return o
}

// StartConversation enqueues the request and blocks until the engine completes.
func (o *Orchestrator) StartConversation(ctx context.Context, req StartRequest) (*Response, error) {
	return o.dispatch(ctx, conversationJob{Kind: jobTypeStart, Start: req})
}

// ProcessMessage enqueues a conversation turn and returns the processed output.
func (o *Orchestrator) ProcessMessage(ctx context.Context, req MessageRequest) (*Response, error) {
	return o.dispatch(ctx, conversationJob{Kind: jobTypeMessage, Message: req})
}

// GetHistory reads are cheap and skip the queue entirely.
func (o *Orchestrator) GetHistory(ctx context.Context, conversationID string) ([]Message, error) {
	return o.processor.GetHistory(ctx, conversationID)
}

// Shutdown stops worker goroutines and notifies any pending callers.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	o.pending.Range(func(key, value any) bool {
		if ch, ok := value.(chan dispatchResult); ok {
			select {
			case ch <- dispatchResult{err: ErrOrchestratorClosed}:
			default:
			}
		}
		o.pending.Delete(key)
		return true
	})

	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, job conversationJob) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	job.ID = uuid.NewString()

	resultCh := make(chan dispatchResult, 1)
	o.pending.Store(job.ID, resultCh)
	defer o.pending.Delete(job.ID)

	if err := o.queue.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("conversation: failed to enqueue job: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultCh:
		return res.response, res.err
	}
}

func (o *Orchestrator) runWorker(workerID int) {
	defer o.wg.Done()
	o.logger.Debug("conversation orchestrator worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		job, err := o.queue.Dequeue(o.ctx)
		if err != nil {
			if o.ctx.Err() != nil {
				o.logger.Debug("conversation orchestrator worker stopping", "worker_id", workerID)
				return
			}
			o.logger.Error("failed to dequeue conversation job", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		o.handleJob(job)
	}
}

func (o *Orchestrator) handleJob(job conversationJob) {
	var (
		resp *Response
		err  error
	)
	switch job.Kind {
	case jobTypeStart:
		resp, err = o.processor.StartConversation(o.ctx, job.Start)
	case jobTypeMessage:
		resp, err = o.processor.ProcessMessage(o.ctx, job.Message)
	default:
		err = fmt.Errorf("conversation: unknown job type %q", job.Kind)
	}

	o.deliverResult(job.ID, resp, err)
}

func (o *Orchestrator) deliverResult(jobID string, resp *Response, err error) {
	value, ok := o.pending.Load(jobID)
	if !ok {
		o.logger.Debug("no waiting caller for conversation job", "job_id", jobID)
		return
	}

	ch, ok := value.(chan dispatchResult)
	if !ok {
		o.logger.Error("conversation orchestrator pending map corrupted", "job_id", jobID)
		o.pending.Delete(jobID)
		return
	}

	select {
	case ch <- dispatchResult{response: resp, err: err}:
	default:
	}
}

type dispatchResult struct {
	response *Response
	err      error
}
