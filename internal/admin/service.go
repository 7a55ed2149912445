// Package admin implements the write path behind the admin screen: every
// mutation is applied to the catalog and, once it has succeeded, the image
// pipeline is run. The mutation's reported result never depends on how the
// pipeline run went; pipeline failures are logged and visible through the
// job status.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"commissions/internal/apperr"
	"commissions/internal/catalog"
	"commissions/internal/imaging"
	"commissions/internal/logging"
)

// PipelineRunner is the job triggered after each successful mutation.
type PipelineRunner interface {
	Run(ctx context.Context) (imaging.BatchReport, error)
}

// Service applies admin mutations.
type Service struct {
	store    *catalog.Store
	pipeline PipelineRunner
	async    bool
	logger   *slog.Logger

	wg sync.WaitGroup
}

// Option customizes a Service.
type Option func(*Service)

// WithAsyncPipeline returns mutation results without waiting for the
// pipeline run they trigger. Wait blocks until those runs finish.
func WithAsyncPipeline() Option {
	return func(s *Service) { s.async = true }
}

// New builds a Service. pipeline may be nil to skip asset regeneration.
func New(store *catalog.Store, pipeline PipelineRunner, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		pipeline: pipeline,
		logger:   logging.NewComponentLogger(logger, "admin"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wait blocks until every pipeline run started by this service has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Snapshot returns the data the admin screen renders.
func (s *Service) Snapshot(ctx context.Context) (catalog.Snapshot, error) {
	return s.store.AdminSnapshot(ctx)
}

// CreateCharacter adds a character at the end of the order.
func (s *Service) CreateCharacter(ctx context.Context, name string, status string) apperr.Result {
	parsed, err := catalog.ParseStatus(status)
	if err != nil {
		return s.fail(ctx, "create character", apperr.Validation("Invalid character status."))
	}
	character, err := s.store.CreateCharacter(ctx, name, parsed)
	if err != nil {
		return s.fail(ctx, "create character", err)
	}
	return s.succeed(ctx, "create character", fmt.Sprintf("Character %q created.", character.Name))
}

// UpdateCharacter renames a character and sets its status.
func (s *Service) UpdateCharacter(ctx context.Context, id int64, name string, status string) apperr.Result {
	parsed, err := catalog.ParseStatus(status)
	if err != nil {
		return s.fail(ctx, "update character", apperr.Validation("Invalid character status."))
	}
	if err := s.store.RenameCharacter(ctx, id, name, parsed); err != nil {
		return s.fail(ctx, "update character", err)
	}
	character, err := s.store.GetCharacter(ctx, id)
	if err != nil {
		return s.succeed(ctx, "update character", "Character updated.")
	}
	return s.succeed(ctx, "update character", fmt.Sprintf("Character %q updated.", character.Name))
}

// DeleteCharacter removes a character and its commissions.
func (s *Service) DeleteCharacter(ctx context.Context, id int64) apperr.Result {
	if _, err := s.store.DeleteCharacter(ctx, id); err != nil {
		return s.fail(ctx, "delete character", err)
	}
	return s.succeed(ctx, "delete character", "Character deleted.")
}

// ReorderCharacters applies a drag-and-drop result.
func (s *Service) ReorderCharacters(ctx context.Context, active, stale []int64) apperr.Result {
	if err := s.store.Reindex(ctx, active, stale); err != nil {
		return s.fail(ctx, "reorder characters", err)
	}
	return s.succeed(ctx, "reorder characters", "Character order updated.")
}

// CreateCommission adds a commission to a character.
func (s *Service) CreateCommission(ctx context.Context, in catalog.CommissionInput) apperr.Result {
	commission, err := s.store.CreateCommission(ctx, in)
	if err != nil {
		return s.fail(ctx, "create commission", err)
	}
	return s.succeed(ctx, "create commission",
		fmt.Sprintf("Commission %q added to %s.", commission.FileName, commission.CharacterName))
}

// UpdateCommission replaces a commission's fields.
func (s *Service) UpdateCommission(ctx context.Context, id int64, in catalog.CommissionInput) apperr.Result {
	commission, err := s.store.UpdateCommission(ctx, id, in)
	if err != nil {
		return s.fail(ctx, "update commission", err)
	}
	return s.succeed(ctx, "update commission", fmt.Sprintf("Commission %q updated.", commission.FileName))
}

// DeleteCommission removes a commission.
func (s *Service) DeleteCommission(ctx context.Context, id int64) apperr.Result {
	if err := s.store.DeleteCommission(ctx, id); err != nil {
		return s.fail(ctx, "delete commission", err)
	}
	return s.succeed(ctx, "delete commission", "Commission deleted.")
}

func (s *Service) succeed(ctx context.Context, operation, message string) apperr.Result {
	s.triggerPipeline(ctx, operation)
	return apperr.OK(message)
}

func (s *Service) fail(ctx context.Context, operation string, err error) apperr.Result {
	logger := logging.WithContext(ctx, s.logger)
	attrs := []logging.Attr{
		logging.String("operation", operation),
		logging.String("error_kind", apperr.Kind(err)),
		logging.Error(err),
	}
	switch apperr.Kind(err) {
	case "validation", "not_found":
		logger.Info("admin mutation rejected", logging.Args(attrs...)...)
	default:
		logging.ErrorWithContext(logger, "admin mutation failed", "admin_mutation_failed", attrs...)
	}
	return apperr.ResultFrom(err, "")
}

// triggerPipeline runs the pipeline once after a successful mutation. Errors
// are logged and never surface in the mutation result.
func (s *Service) triggerPipeline(ctx context.Context, operation string) {
	if s.pipeline == nil {
		return
	}
	run := func(ctx context.Context) {
		logger := logging.WithContext(ctx, s.logger)
		report, err := s.pipeline.Run(ctx)
		if err != nil {
			logging.WarnWithContext(logger, "pipeline run after mutation failed", "pipeline_after_mutation_failed",
				logging.String("operation", operation),
				logging.Error(err),
				logging.String(logging.FieldImpact, "saved changes are live but derivatives may be stale"),
				logging.String(logging.FieldErrorHint, "run `commissions convert` once the cause is fixed"),
			)
			return
		}
		logger.Debug("pipeline run after mutation finished",
			logging.String("operation", operation),
			logging.String(logging.FieldRunID, report.RunID),
		)
	}
	if !s.async {
		run(ctx)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		run(context.WithoutCancel(ctx))
	}()
}
