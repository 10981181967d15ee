package classify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/smerrill/worktrace/internal/core/db"
)

// Job asks for one recorded event to be classified
type Job struct {
	EventID int64
	Request Request
}

// Worker runs classification off the capture path. Jobs are fire-and-
// forget: the capture tick never waits on analysis, and completion order
// is not guaranteed. A full queue drops the job rather than blocking.
type Worker struct {
	store    *db.DB
	analyzer Analyzer
	log      zerolog.Logger
	jobs     chan Job
	done     chan struct{}
}

// NewWorker creates a classification worker with a bounded job queue
func NewWorker(store *db.DB, analyzer Analyzer, queueSize int, log zerolog.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Worker{
		store:    store,
		analyzer: analyzer,
		log:      log,
		jobs:     make(chan Job, queueSize),
		done:     make(chan struct{}),
	}
}

// Submit queues a job without blocking. Returns false when the queue is
// full and the job was dropped.
func (w *Worker) Submit(job Job) bool {
	select {
	case w.jobs <- job:
		return true
	default:
		w.log.Warn().Int64("event", job.EventID).Msg("classify: queue full, job dropped")
		return false
	}
}

// Run processes jobs until the context is cancelled
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-w.jobs:
			w.process(ctx, job)
		}
	}
}

// Done is closed once Run has returned
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) process(ctx context.Context, job Job) {
	result, err := w.analyzer.Analyze(ctx, job.Request)
	if err != nil {
		w.log.Warn().Err(err).Int64("event", job.EventID).Msg("classify: analysis failed")
		return
	}
	if !result.Success {
		w.log.Debug().Str("error", result.Error).Int64("event", job.EventID).Msg("classify: no result")
		return
	}

	err = w.store.AttachClassification(job.EventID, result.ClientCode, result.Confidence, result.Description, result.Model)
	if err != nil {
		w.log.Error().Err(err).Int64("event", job.EventID).Msg("classify: attach failed")
		return
	}
	w.log.Debug().Int64("event", job.EventID).Str("model", result.Model).Msg("classify: attached")
}
