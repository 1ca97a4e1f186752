package ingestion_engine

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/markdave123-py/vectordb/internal/logging"
	"github.com/markdave123-py/vectordb/internal/models"
)

type Ingestor interface {
	IngestFile(ctx context.Context, path string) models.ProcessingResult
	IngestDirectory(ctx context.Context, dir string) ([]models.ProcessingResult, error)
	HealthCheck(ctx context.Context) models.HealthStatus
}

var _ Ingestor = (*DocumentIngestor)(nil)

var ErrQueueFull = errors.New("ingest queue is full")

type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
)

// Job is a queued request to ingest a file or a directory.
type Job struct {
	ID         string                    `json:"id"`
	Path       string                    `json:"path"`
	Status     JobStatus                 `json:"status"`
	Results    []models.ProcessingResult `json:"results,omitempty"`
	Error      string                    `json:"error,omitempty"`
	EnqueuedAt time.Time                 `json:"enqueued_at"`
	FinishedAt *time.Time                `json:"finished_at,omitempty"`
}

// maxRetainedJobs bounds the status history; the oldest finished entries go first.
const maxRetainedJobs = 1024

// JobQueue runs ingestion in background workers fed by a bounded channel.
type JobQueue struct {
	ingestor Ingestor
	jobs     chan *Job
	logger   *zap.Logger

	mu     sync.Mutex
	byID   map[string]*Job
	order  []string
	retain int
}

// NewJobQueue constructs a queue holding at most capacity pending jobs.
func NewJobQueue(ing Ingestor, capacity int, logger *zap.Logger) *JobQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &JobQueue{
		ingestor: ing,
		jobs:     make(chan *Job, capacity),
		logger:   logging.OrNop(logger),
		byID:     make(map[string]*Job),
		retain:   maxRetainedJobs,
	}
}

// Start runs numWorkers goroutines until ctx is done.
func (q *JobQueue) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					q.logger.Debug("ingest worker shutting down", zap.Int("worker", w))
					return
				case job := <-q.jobs:
					q.logger.Info("processing job", zap.String("job", job.ID), zap.String("path", job.Path), zap.Int("worker", w))
					q.process(ctx, job)
				}
			}
		}(w)
	}
}

// Enqueue schedules path for ingestion without blocking.
func (q *JobQueue) Enqueue(path string) (string, error) {
	job := &Job{
		ID:         uuid.NewString(),
		Path:       path,
		Status:     JobQueued,
		EnqueuedAt: time.Now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	select {
	case q.jobs <- job:
	default:
		return "", ErrQueueFull
	}

	q.byID[job.ID] = job
	q.order = append(q.order, job.ID)
	q.evict()
	return job.ID, nil
}

// evict drops the oldest finished jobs beyond the retention limit. Queued and
// running jobs are never dropped. Callers hold q.mu.
func (q *JobQueue) evict() {
	excess := len(q.order) - q.retain
	if excess <= 0 {
		return
	}
	kept := q.order[:0]
	for _, id := range q.order {
		if excess > 0 && q.byID[id].Status == JobDone {
			delete(q.byID, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept
}

// Status returns a snapshot of the job with the given ID.
func (q *JobQueue) Status(id string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.byID[id]
	if !ok {
		return Job{}, false
	}
	cp := *job
	cp.Results = append([]models.ProcessingResult(nil), job.Results...)
	return cp, true
}

func (q *JobQueue) process(ctx context.Context, job *Job) {
	q.update(job, func(j *Job) { j.Status = JobRunning })

	var (
		results []models.ProcessingResult
		err     error
	)
	info, statErr := os.Stat(job.Path)
	switch {
	case statErr != nil:
		err = statErr
	case info.IsDir():
		results, err = q.ingestor.IngestDirectory(ctx, job.Path)
	default:
		results = []models.ProcessingResult{q.ingestor.IngestFile(ctx, job.Path)}
	}
	if err != nil {
		q.logger.Error("job failed", zap.String("job", job.ID), zap.Error(err))
	}

	q.update(job, func(j *Job) {
		now := time.Now()
		j.Status = JobDone
		j.Results = results
		j.FinishedAt = &now
		if err != nil {
			j.Error = err.Error()
		}
	})
}

func (q *JobQueue) update(job *Job, fn func(*Job)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	fn(job)
}
