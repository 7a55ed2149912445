package pipelinejob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"commissions/internal/apperr"
	"commissions/internal/config"
	"commissions/internal/imageindex"
	"commissions/internal/imaging"
	"commissions/internal/logging"
	"commissions/internal/preflight"
)

const lockRetryDelay = 100 * time.Millisecond

// ErrLockTimeout is returned when ctx ends while waiting for another run to
// release the pipeline lock.
var ErrLockTimeout = errors.New("timed out waiting for pipeline lock")

// Runner performs one pass over the source directory.
type Runner interface {
	Run(ctx context.Context) (imaging.BatchReport, error)
}

// Status is a point-in-time view of the job.
type Status struct {
	Running    bool                 `json:"running"`
	CurrentRun string               `json:"currentRunId,omitempty"`
	LastRunID  string               `json:"lastRunId,omitempty"`
	LastRunAt  *time.Time           `json:"lastRunAt,omitempty"`
	LastReport *imaging.BatchReport `json:"lastReport,omitempty"`
	LastError  string               `json:"lastError,omitempty"`
	Runs       int64                `json:"runs"`
}

// Succeeded reports whether the most recent run finished without a
// directory-level error and without failed files.
func (s Status) Succeeded() bool {
	return s.LastRunAt != nil && s.LastError == "" && (s.LastReport == nil || !s.LastReport.HasFailures())
}

// Job serializes pipeline runs and tracks their outcome.
type Job struct {
	runner     Runner
	lockPath   string
	imagesDir  string
	webpDir    string
	indexName  string
	writeIndex bool
	metrics    *Metrics
	logger     *slog.Logger

	mu     sync.Mutex
	status Status
}

// Option customizes a Job.
type Option func(*Job)

// WithRunner replaces the default imaging pipeline.
func WithRunner(r Runner) Option {
	return func(j *Job) { j.runner = r }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(j *Job) { j.metrics = m }
}

// New builds a Job for cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Job {
	logger = logging.NewComponentLogger(logger, "pipeline")
	j := &Job{
		runner:     imaging.New(cfg, logger),
		lockPath:   cfg.PipelineLockPath(),
		imagesDir:  cfg.Paths.ImagesDir,
		webpDir:    cfg.WebPDir(),
		indexName:  cfg.Pipeline.IndexFileName,
		writeIndex: cfg.Pipeline.WriteIndex,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Status returns a copy of the current job status.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	status := j.status
	if status.LastReport != nil {
		report := *status.LastReport
		report.Failed = append([]string(nil), report.Failed...)
		status.LastReport = &report
	}
	return status
}

// Run executes one pipeline pass. It blocks until any other run holding the
// lock (in this process or another) finishes, or ctx ends. Per-file failures
// are reported in the returned BatchReport; the error is reserved for lock,
// preflight, and directory-level failures.
func (j *Job) Run(ctx context.Context) (imaging.BatchReport, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, j.logger)

	lock := flock.New(j.lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = ErrLockTimeout
		}
		err = apperr.Wrap(apperr.ErrIO, "acquire pipeline lock", "", fmt.Errorf("%s: %w", j.lockPath, err))
		j.record(runID, time.Now(), imaging.BatchReport{}, err, false)
		return imaging.BatchReport{}, err
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			logger.Warn("pipeline lock release failed", logging.Error(unlockErr))
		}
	}()

	j.begin(runID)
	j.metrics.started()
	start := time.Now()
	logger.Info("pipeline run started", logging.String("images_dir", j.imagesDir))

	report, err := j.execute(ctx, logger)
	report.RunID = runID
	j.metrics.finished(report, err, time.Since(start))
	j.record(runID, time.Now(), report, err, err == nil)
	if err != nil {
		logging.ErrorWithContext(logger, "pipeline run failed", "pipeline_run_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the images directory exists and is writable"),
		)
		return report, err
	}
	return report, nil
}

func (j *Job) execute(ctx context.Context, logger *slog.Logger) (imaging.BatchReport, error) {
	if err := preflight.Require(preflight.CheckDirectoryAccess("Images directory", j.imagesDir)); err != nil {
		return imaging.BatchReport{}, apperr.Wrap(apperr.ErrIO, "pipeline preflight", "", err)
	}
	report, err := j.runner.Run(ctx)
	if err != nil {
		return report, err
	}
	if j.writeIndex {
		runID, _ := logging.RunIDFromContext(ctx)
		idx, err := imageindex.Write(j.webpDir, j.indexName, runID)
		if err != nil {
			logging.WarnWithContext(logger, "derivative index not written", "index_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "gallery keeps the previous index until the next run"),
			)
		} else {
			logger.Debug("derivative index written", logging.Int("entries", len(idx.Entries)))
		}
	}
	return report, nil
}

func (j *Job) begin(runID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status.Running = true
	j.status.CurrentRun = runID
}

func (j *Job) record(runID string, at time.Time, report imaging.BatchReport, err error, hasReport bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	at = at.UTC()
	j.status.Running = false
	j.status.CurrentRun = ""
	j.status.LastRunID = runID
	j.status.LastRunAt = &at
	j.status.Runs++
	j.status.LastError = ""
	j.status.LastReport = nil
	if err != nil {
		j.status.LastError = err.Error()
	}
	if hasReport {
		j.status.LastReport = &report
	}
}
