package imaging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"commissions/internal/apperr"
	"commissions/internal/config"
	"commissions/internal/logging"
)

// BatchReport aggregates the outcomes of one pipeline run.
type BatchReport struct {
	RunID      string        `json:"run_id,omitempty"`
	Processed  int           `json:"processed"`
	Skipped    int           `json:"skipped"`
	Failed     []string      `json:"failed"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	SourceDir  string        `json:"source_dir"`
	Candidates int           `json:"candidates"`
}

// Total returns the number of files that received an outcome.
func (r BatchReport) Total() int {
	return r.Processed + r.Skipped + len(r.Failed)
}

// HasFailures reports whether any file failed to convert.
func (r BatchReport) HasFailures() bool {
	return len(r.Failed) > 0
}

// Pipeline runs the converter over every candidate in SourceDir.
type Pipeline struct {
	SourceDir string
	Workers   int
	Converter *Converter
	Logger    *slog.Logger
}

// New builds a Pipeline from configuration using the production codecs.
func New(cfg *config.Config, logger *slog.Logger) *Pipeline {
	logger = logging.NewComponentLogger(logger, "imaging")
	return &Pipeline{
		SourceDir: cfg.Paths.ImagesDir,
		Workers:   cfg.WorkerCount(),
		Converter: NewConverter(cfg.WebPDir(), cfg.Pipeline.JPEGQuality, cfg.Pipeline.WebPQuality, cfg.Pipeline.PreserveMetadata, logger),
		Logger:    logger,
	}
}

// RunPipeline converts everything under cfg's images directory.
func RunPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (BatchReport, error) {
	return New(cfg, logger).Run(ctx)
}

// Run ensures the derivative directory exists, scans the source directory and
// converts every candidate on a pool of Workers goroutines. Per-file failures
// are collected in the report; the returned error is reserved for
// directory-level failures. A run in flight is not cancelled by ctx.
func (p *Pipeline) Run(ctx context.Context) (BatchReport, error) {
	logger := logging.WithContext(ctx, p.Logger)
	runID, _ := logging.RunIDFromContext(ctx)
	report := BatchReport{
		RunID:     runID,
		Failed:    []string{},
		StartedAt: time.Now().UTC(),
		SourceDir: p.SourceDir,
	}

	if err := os.MkdirAll(p.Converter.DerivativeDir, 0o755); err != nil {
		return report, apperr.Wrap(apperr.ErrIO, "create derivative directory", "", fmt.Errorf("mkdir %s: %w", p.Converter.DerivativeDir, err))
	}
	sources, err := Scan(p.SourceDir)
	if err != nil {
		return report, err
	}
	report.Candidates = len(sources)

	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}

	// Each goroutine writes only its own slot.
	outcomes := make([]Outcome, len(sources))
	eg := &errgroup.Group{}
	eg.SetLimit(workers)
	for i, src := range sources {
		eg.Go(func() error {
			outcomes[i] = p.Converter.ConvertOne(ctx, src)
			return nil
		})
	}
	_ = eg.Wait()

	for i, outcome := range outcomes {
		switch outcome {
		case OutcomeProcessed:
			report.Processed++
		case OutcomeSkipped:
			report.Skipped++
		default:
			report.Failed = append(report.Failed, sources[i].FileName)
		}
	}
	sort.Strings(report.Failed)
	report.Duration = time.Since(report.StartedAt)

	summary := []logging.Attr{
		logging.Int("processed", report.Processed),
		logging.Int("skipped", report.Skipped),
		logging.Int("failed", len(report.Failed)),
		logging.Duration("duration", report.Duration),
	}
	if report.HasFailures() {
		summary = append(summary,
			logging.Strings("failed_files", report.Failed),
			logging.String(logging.FieldErrorHint, "inspect the failed files and re-upload them"),
			logging.String(logging.FieldImpact, "derivatives for failed files are stale or missing"),
		)
		logging.WarnWithContext(logger, "pipeline completed with failures", "pipeline_failures", summary...)
	} else {
		logger.Info("pipeline complete", logging.Args(summary...)...)
	}
	return report, nil
}
