package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/pulse/core"
	"github.com/poiesic/pulse/ingestion"
)

// Job types registered by the import runner.
const (
	JobTypeNPSImport     = "nps_csv_import"
	JobTypeZendeskImport = "zendesk_json_import"
	JobTypeBatchIngest   = "batch_ingest"
)

// ErrPipelineRequired is returned when an ingestion pipeline is not provided.
var ErrPipelineRequired = errors.New("ingestion pipeline required")

// ErrTrackerRequired is returned when a job tracker is not provided.
var ErrTrackerRequired = errors.New("job tracker required")

// defaultWorkers bounds how many imports run concurrently.
const defaultWorkers = 4

// ImportRunner executes bulk imports as tracked background jobs on a worker
// pool. Each submitted import occupies one worker until it finishes.
type ImportRunner struct {
	pipeline *ingestion.Pipeline
	tracker  *Tracker
	pool     *ants.Pool
	logger   *slog.Logger
}

// NewImportRunner creates a runner backed by a fixed-size worker pool.
func NewImportRunner(pipeline *ingestion.Pipeline, tracker *Tracker) (*ImportRunner, error) {
	return NewImportRunnerWithWorkers(pipeline, tracker, defaultWorkers)
}

// NewImportRunnerWithWorkers creates a runner with an explicit pool size.
func NewImportRunnerWithWorkers(pipeline *ingestion.Pipeline, tracker *Tracker, workers int) (*ImportRunner, error) {
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	if tracker == nil {
		return nil, ErrTrackerRequired
	}
	if workers < 1 {
		workers = 1
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}

	return &ImportRunner{
		pipeline: pipeline,
		tracker:  tracker,
		pool:     pool,
		logger:   slog.Default().With("component", "import-runner"),
	}, nil
}

// Release shuts down the worker pool. In-flight imports finish; the runner
// should not be used afterwards.
func (r *ImportRunner) Release() {
	r.pool.Release()
}

// SubmitNPSCSV queues an NPS survey CSV import and returns the tracking job.
func (r *ImportRunner) SubmitNPSCSV(path string) (Job, error) {
	return r.submit(JobTypeNPSImport, func(ctx context.Context, opts *ingestion.BatchOptions) ([]*core.FeedbackItem, error) {
		return r.pipeline.IngestNPSCSV(ctx, path, opts)
	})
}

// SubmitZendeskJSON queues a Zendesk export import and returns the tracking job.
func (r *ImportRunner) SubmitZendeskJSON(path string) (Job, error) {
	return r.submit(JobTypeZendeskImport, func(ctx context.Context, opts *ingestion.BatchOptions) ([]*core.FeedbackItem, error) {
		return r.pipeline.IngestZendeskJSON(ctx, path, opts)
	})
}

// SubmitBatch queues already-loaded records for ingestion and returns the
// tracking job.
func (r *ImportRunner) SubmitBatch(records []ingestion.RawRecord, source core.Source) (Job, error) {
	return r.submit(JobTypeBatchIngest, func(ctx context.Context, opts *ingestion.BatchOptions) ([]*core.FeedbackItem, error) {
		return r.pipeline.IngestBatch(ctx, records, source, opts)
	})
}

type importFunc func(ctx context.Context, opts *ingestion.BatchOptions) ([]*core.FeedbackItem, error)

// submit registers a job and hands the import to the pool. The worker wires
// the tracker into the pipeline's progress and cancellation hooks, so
// cancelling the job stops the import between records.
func (r *ImportRunner) submit(jobType string, run importFunc) (Job, error) {
	job := r.tracker.Create(jobType)

	err := r.pool.Submit(func() {
		r.tracker.Start(job.ID)

		opts := &ingestion.BatchOptions{
			Progress: func(p ingestion.BatchProgress) {
				r.tracker.UpdateProgress(job.ID, ProgressUpdate{
					Current:    &p.Done,
					Total:      &p.Total,
					Successful: &p.Succeeded,
					Errors:     &p.Failed,
				})
			},
			IsCancelled: func() bool {
				return r.tracker.IsCancelled(job.ID)
			},
		}

		items, err := run(context.Background(), opts)
		switch {
		case errors.Is(err, ingestion.ErrCancelled):
			// Tracker already holds the CANCELLED state; keep the partial
			// count visible.
			msg := fmt.Sprintf("cancelled after %d items", len(items))
			r.tracker.UpdateProgress(job.ID, ProgressUpdate{Message: &msg})
			r.logger.Info("import cancelled", "job", job.ID, "ingested", len(items))
		case err != nil:
			r.tracker.Fail(job.ID, err.Error())
			r.logger.Error("import failed", "job", job.ID, "err", err)
		default:
			r.tracker.Complete(job.ID, map[string]any{"ingested": len(items)})
			r.logger.Info("import complete", "job", job.ID, "ingested", len(items))
		}
	})
	if err != nil {
		r.tracker.Fail(job.ID, err.Error())
		return job, err
	}

	return job, nil
}
