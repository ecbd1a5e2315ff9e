package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	poolTracer = otel.Tracer("trackify/scheduler")
	poolMeter  = otel.Meter("trackify/scheduler")

	jobSeconds, _  = poolMeter.Float64Histogram("scheduler.job.duration", metric.WithDescription("Job execution time"), metric.WithUnit("s"))
	jobResults, _  = poolMeter.Int64Counter("scheduler.job.total", metric.WithDescription("Executed jobs by status"))
	jobRejected, _ = poolMeter.Int64Counter("scheduler.job.rejected", metric.WithDescription("Jobs refused at submit by reason"))
)

var (
	ErrQueueFull  = errors.New("job queue full")
	ErrPoolClosed = errors.New("worker pool closed")
	// ErrJobPending means the same kind of job for the same user is already
	// queued or running.
	ErrJobPending = errors.New("job already pending for user")
)

const defaultJobTimeout = 2 * time.Minute

// WorkerPool runs jobs on a fixed set of goroutines. At most one job of a
// given type per user is queued or running at a time, so a listener trigger
// cannot overlap a scheduled run for the same user in this process.
type WorkerPool struct {
	size    int
	pause   time.Duration
	timeout time.Duration
	queue   chan Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	pending map[string]struct{}
}

// NewWorkerPool creates a pool of size workers with room for queueSize
// waiting jobs. Each worker sleeps for pause after every job.
func NewWorkerPool(size int, pause time.Duration, queueSize int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		size:    size,
		pause:   pause,
		timeout: defaultJobTimeout,
		queue:   make(chan Job, queueSize),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]struct{}),
	}
}

// pendingKey groups jobs by concrete type and user.
func pendingKey(job Job) string {
	return fmt.Sprintf("%T/%s", job, job.UserID())
}

func (wp *WorkerPool) Start() {
	log.Printf("Worker pool: starting %d workers", wp.size)
	for id := 1; id <= wp.size; id++ {
		wp.wg.Add(1)
		go wp.work(id)
	}
}

func (wp *WorkerPool) work(id int) {
	defer wp.wg.Done()

	for {
		var job Job
		var ok bool
		select {
		case <-wp.ctx.Done():
			return
		case job, ok = <-wp.queue:
			if !ok {
				return
			}
		}

		wp.run(id, job)

		if wp.pause <= 0 {
			continue
		}
		timer := time.NewTimer(wp.pause)
		select {
		case <-timer.C:
		case <-wp.ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (wp *WorkerPool) run(workerID int, job Job) {
	defer wp.release(job)

	ctx, cancel := context.WithTimeout(wp.ctx, wp.timeout)
	defer cancel()

	ctx, span := poolTracer.Start(ctx, "scheduler.job",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.String("job.user_id", job.UserID()),
			attribute.String("job.description", job.Description()),
		),
	)
	defer span.End()

	start := time.Now()
	err := job.Execute(ctx)
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("Worker %d: %s failed after %s: %v", workerID, job.Description(), elapsed.Round(time.Millisecond), err)
	} else {
		log.Printf("Worker %d: %s done in %s", workerID, job.Description(), elapsed.Round(time.Millisecond))
	}

	jobResults.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	jobSeconds.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}

func (wp *WorkerPool) release(job Job) {
	wp.mu.Lock()
	delete(wp.pending, pendingKey(job))
	wp.mu.Unlock()
}

func (wp *WorkerPool) reject(job Job, reason string, err error) error {
	jobRejected.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
	return fmt.Errorf("%w: %s", err, job.Description())
}

// Submit queues job without blocking. It fails with ErrPoolClosed after
// shutdown, ErrJobPending when an equivalent job is still in the pool and
// ErrQueueFull when there is no room.
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.closed {
		return ErrPoolClosed
	}

	key := pendingKey(job)
	if _, busy := wp.pending[key]; busy {
		return wp.reject(job, "pending", ErrJobPending)
	}

	select {
	case wp.queue <- job:
		wp.pending[key] = struct{}{}
		return nil
	default:
		return wp.reject(job, "queue_full", ErrQueueFull)
	}
}

// SubmitBatch queues jobs and returns how many were accepted.
func (wp *WorkerPool) SubmitBatch(jobs []Job) int {
	accepted := 0
	for _, job := range jobs {
		if err := wp.Submit(job); err != nil {
			log.Printf("Worker pool: skipping job for user %s: %v", job.UserID(), err)
			continue
		}
		accepted++
	}
	log.Printf("Worker pool: accepted %d/%d jobs", accepted, len(jobs))
	return accepted
}

// ShutdownWithTimeout stops intake and lets workers drain the queue. After
// timeout the context of still-running jobs is cancelled.
func (wp *WorkerPool) ShutdownWithTimeout(timeout time.Duration) {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.queue)
	wp.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		log.Println("Worker pool: drained")
	case <-time.After(timeout):
		log.Println("Worker pool: drain timed out, cancelling running jobs")
	}
	wp.cancel()
}
