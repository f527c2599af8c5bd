package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aniketwaliyan/tap-fastly/internal/catalog"
	"github.com/aniketwaliyan/tap-fastly/internal/extract"
)

// Orchestrator runs one sync task per selected stream
type Orchestrator struct {
	catalog *catalog.Catalog
	syncer  Syncer
	logger  *slog.Logger
}

// NewOrchestrator creates a new sync orchestrator
func NewOrchestrator(cat *catalog.Catalog, syncer Syncer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		catalog: cat,
		syncer:  syncer,
		logger:  logger,
	}
}

// Execute syncs every selected stream concurrently and waits for all of
// them. The first fatal error cancels the remaining tasks and is returned.
func (o *Orchestrator) Execute(ctx context.Context) error {
	selected := o.catalog.Selected()
	if len(selected) == 0 {
		o.logger.Warn("no streams selected")
		return nil
	}
	for _, entry := range selected {
		if _, err := extract.ParseStreamKind(entry.TapStreamID); err != nil {
			return fmt.Errorf("invalid catalog: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, entry := range selected {
		entry := entry
		g.Go(func() error {
			return o.runStream(ctx, entry)
		})
	}
	return g.Wait()
}

func (o *Orchestrator) runStream(ctx context.Context, entry catalog.Entry) error {
	log := o.logger.With("stream", entry.TapStreamID)
	log.Info("starting sync")
	started := time.Now()
	if err := o.syncer.Sync(ctx, entry); err != nil {
		log.Error("sync failed", "error", err)
		return err
	}
	log.Info("sync completed", "duration", time.Since(started).Round(time.Millisecond))
	return nil
}
