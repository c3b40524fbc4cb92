package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	appconfig "github.com/kestrelodds/arbiter/internal/pkg/config"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

// Store is the retention sweeper's read/write surface.
type Store interface {
	MarkFinishedMatches(ctx context.Context, now time.Time, liveWindow time.Duration) (int64, error)
	HistoryOlderThan(ctx context.Context, cutoff time.Time) ([]models.OddsHistory, error)
	DeleteHistoryOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteMatchesOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteArbitrageOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper runs the periodic retention cleanup, exporting history to cold
// storage before the hard delete when archival is enabled.
type Sweeper struct {
	store    Store
	exporter *Exporter // nil when archiving is disabled
	cfg      appconfig.RetentionConfig
	logger   *slog.Logger
}

func NewSweeper(store Store, exporter *Exporter, cfg appconfig.RetentionConfig, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: store, exporter: exporter, cfg: cfg, logger: logger}
}

// Run ticks on cfg.SweepEvery until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepEvery())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("archive: sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one pass in order: advance match status, archive then
// delete expired history, delete old matches (cascading current_odds),
// delete old inactive arbitrage rows.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := time.Now()

	finished, err := s.store.MarkFinishedMatches(ctx, now, s.cfg.MatchLive())
	if err != nil {
		return fmt.Errorf("archive: marking finished matches: %w", err)
	}
	s.logger.Info("archive: marked finished matches", "count", finished)

	historyCutoff := now.Add(-s.cfg.History())
	if s.exporter != nil {
		rows, err := s.store.HistoryOlderThan(ctx, historyCutoff)
		if err != nil {
			return fmt.Errorf("archive: loading old history: %w", err)
		}
		if len(rows) > 0 {
			key, err := s.exporter.Export(ctx, rows)
			if err != nil {
				return fmt.Errorf("archive: exporting old history: %w", err)
			}
			s.logger.Info("archive: exported history to cold storage", "key", key, "rows", len(rows))
		}
	}
	deletedHistory, err := s.store.DeleteHistoryOlderThan(ctx, historyCutoff)
	if err != nil {
		return fmt.Errorf("archive: deleting old history: %w", err)
	}
	s.logger.Info("archive: deleted old history rows", "count", deletedHistory)

	deletedMatches, err := s.store.DeleteMatchesOlderThan(ctx, now.Add(-s.cfg.Matches()))
	if err != nil {
		return fmt.Errorf("archive: deleting old matches: %w", err)
	}
	s.logger.Info("archive: deleted old matches", "count", deletedMatches)

	deletedArb, err := s.store.DeleteArbitrageOlderThan(ctx, now.Add(-s.cfg.Arbitrage()))
	if err != nil {
		return fmt.Errorf("archive: deleting old arbitrage rows: %w", err)
	}
	s.logger.Info("archive: deleted old arbitrage rows", "count", deletedArb)

	return nil
}
