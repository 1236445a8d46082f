package core

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orrn/printflow/internal/config"
	"github.com/orrn/printflow/internal/metrics"
)

// Store persists the full queue list. The whole list is rewritten on every
// mutation; Load returning an error is never fatal to the queue.
type Store interface {
	Save(jobs []*QueuedJob) error
	Load() ([]*QueuedJob, error)
}

// Executor runs one attempt of one job.
type Executor interface {
	Execute(ctx context.Context, job *QueuedJob) error
}

// DeliveryAssigner is implemented by executors that stamp a delivery
// number on the job before the attempt runs. The queue calls it in the
// same critical section that bumps Attempts, so the number is written
// under the queue lock and persisted with the attempt bookkeeping.
type DeliveryAssigner interface {
	AssignDeliveryNumber(job *QueuedJob)
}

// Recorder archives a job after it completes successfully.
type Recorder interface {
	RecordCompleted(job *QueuedJob) error
}

// Notifier receives queue lifecycle events.
type Notifier interface {
	JobQueued(job *QueuedJob)
	JobCompleted(job *QueuedJob)
	JobAttemptFailed(job *QueuedJob, errMsg string)
}

// QueueStatus is a point-in-time snapshot. Pending always equals Total:
// the head job is simultaneously pending and being attempted.
type QueueStatus struct {
	Total   int
	Pending int
	Jobs    []QueuedJob
}

// Queue is the durable FIFO holding area for pending jobs. A single worker
// processes the head job with infinite retry; a job leaves the queue only
// through success or an administrative Clear.
type Queue struct {
	store    Store
	exec     Executor
	recorder Recorder
	notifier Notifier
	cfg      *config.QueueConfig
	now      func() time.Time

	mu   sync.Mutex
	jobs []*QueuedJob

	wake    chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

func NewQueue(store Store, exec Executor, recorder Recorder, notifier Notifier, cfg *config.QueueConfig) *Queue {
	if cfg == nil {
		cfg = &config.QueueConfig{
			RetryDelay:        10 * time.Second,
			PrinterRetryDelay: 30 * time.Second,
			MaxRetryDelay:     5 * time.Minute,
		}
	}
	return &Queue{
		store:    store,
		exec:     exec,
		recorder: recorder,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// Start loads the persisted list and launches the worker. If jobs survived
// a restart, processing resumes without a new enqueue.
func (q *Queue) Start() error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = true
	// A fresh channel per run so a queue stopped and started again gets a
	// worker whose backoff waits still block.
	q.stopCh = make(chan struct{})
	stop := q.stopCh

	jobs, err := q.store.Load()
	if err != nil {
		log.Printf("[queue] persisted queue unreadable, starting empty: %v", err)
		jobs = nil
	}
	q.jobs = jobs
	metrics.QueueDepth.Set(float64(len(q.jobs)))
	pending := len(jobs)
	q.mu.Unlock()

	if pending > 0 {
		log.Printf("[queue] resuming %d persisted job(s)", pending)
		q.signalWake()
	}

	q.wg.Add(1)
	go q.worker(stop)

	return nil
}

// Stop halts the worker after the in-flight dispatch returns. Queued jobs
// stay persisted for the next start.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.mu.Unlock()

	close(q.stopCh)
	q.wg.Wait()
}

// Enqueue validates the job, appends it to the tail, persists the list and
// wakes the worker. It never blocks past the synchronous persist.
func (q *Queue) Enqueue(job *PrintJob, printerIndex int) (string, error) {
	if err := ValidateJob(job); err != nil {
		return "", fmt.Errorf("invalid job: %w", err)
	}

	qj := &QueuedJob{
		ID:           newJobID(),
		Job:          job,
		PrinterIndex: printerIndex,
		CreatedAt:    q.now(),
	}

	q.mu.Lock()
	q.jobs = append(q.jobs, qj)
	q.persistLocked()
	q.mu.Unlock()

	metrics.JobsEnqueued.Inc()
	log.Printf("[queue] job %s queued (%s)", qj.ID, job.DisplayName)

	if q.notifier != nil {
		q.notifier.JobQueued(qj)
	}
	q.signalWake()

	return qj.ID, nil
}

// Status returns a snapshot of the current list.
func (q *Queue) Status() QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]QueuedJob, len(q.jobs))
	for i, j := range q.jobs {
		jobs[i] = *j
		// Detach the job so snapshot readers never alias fields the
		// worker mutates mid-attempt.
		jobCopy := *j.Job
		jobs[i].Job = &jobCopy
	}
	return QueueStatus{
		Total:   len(jobs),
		Pending: len(jobs),
		Jobs:    jobs,
	}
}

// Clear empties the list and persists. Administrative escape hatch; the
// in-flight attempt, if any, still runs to completion.
func (q *Queue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := len(q.jobs)
	q.jobs = nil
	q.persistLocked()
	log.Printf("[queue] cleared %d job(s)", dropped)
	return nil
}

func (q *Queue) worker(stop <-chan struct{}) {
	defer q.wg.Done()

	for {
		head := q.head()
		if head == nil {
			select {
			case <-stop:
				return
			case <-q.wake:
				continue
			}
		}

		q.mu.Lock()
		head.Attempts++
		now := q.now()
		head.LastAttemptAt = &now
		if assigner, ok := q.exec.(DeliveryAssigner); ok {
			assigner.AssignDeliveryNumber(head)
		}
		q.persistLocked()
		q.mu.Unlock()

		metrics.JobAttempts.Inc()

		err := q.exec.Execute(context.Background(), head)
		if err == nil {
			q.finish(head)
			continue
		}

		kind := Classify(err)
		log.Printf("[queue] job %s attempt %d failed (%s): %v", head.ID, head.Attempts, kind, err)
		metrics.JobFailures.WithLabelValues(kind.String()).Inc()

		q.mu.Lock()
		q.persistLocked()
		q.mu.Unlock()

		if q.notifier != nil {
			q.notifier.JobAttemptFailed(head, err.Error())
		}

		select {
		case <-stop:
			return
		case <-time.After(BackoffDelay(q.cfg, head.Attempts, kind)):
		}
	}
}

func (q *Queue) finish(head *QueuedJob) {
	q.mu.Lock()
	if len(q.jobs) > 0 && q.jobs[0] == head {
		q.jobs = q.jobs[1:]
	}
	q.persistLocked()
	q.mu.Unlock()

	metrics.JobsCompleted.Inc()
	log.Printf("[queue] job %s completed after %d attempt(s), delivery %s",
		head.ID, head.Attempts, head.Job.DeliveryNumber)

	if q.recorder != nil {
		if err := q.recorder.RecordCompleted(head); err != nil {
			log.Printf("[queue] history record for job %s failed: %v", head.ID, err)
		}
	}
	if q.notifier != nil {
		q.notifier.JobCompleted(head)
	}
}

func (q *Queue) head() *QueuedJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil
	}
	return q.jobs[0]
}

// persistLocked rewrites the durable list. A persist failure is logged,
// not fatal: the in-memory list stays authoritative for this process.
func (q *Queue) persistLocked() {
	if err := q.store.Save(q.jobs); err != nil {
		log.Printf("[queue] persist failed: %v", err)
	}
	metrics.QueueDepth.Set(float64(len(q.jobs)))
}

func (q *Queue) signalWake() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// BackoffDelay is the wait before retrying a failed head job:
// min(attempts x base, cap), with the base tiered by failure kind so an
// offline device is polled slowly while transient errors recover fast.
func BackoffDelay(cfg *config.QueueConfig, attempts int, kind Kind) time.Duration {
	base := cfg.RetryDelay
	if kind == KindPrinterUnavailable {
		base = cfg.PrinterRetryDelay
	}
	if attempts < 1 {
		attempts = 1
	}
	d := time.Duration(attempts) * base
	if cfg.MaxRetryDelay > 0 && d > cfg.MaxRetryDelay {
		d = cfg.MaxRetryDelay
	}
	return d
}

func newJobID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
