// Package scheduler runs every provider adapter on a fixed cadence, feeds
// their output through the resolver and persister, then the arbitrage
// engine, once all providers in the cycle have settled.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kestrelodds/arbiter/internal/pkg/arbitrage"
	"github.com/kestrelodds/arbiter/internal/pkg/codec"
	"github.com/kestrelodds/arbiter/internal/pkg/config"
	"github.com/kestrelodds/arbiter/internal/pkg/interfaces"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
	"github.com/kestrelodds/arbiter/internal/pkg/persist"
	"github.com/kestrelodds/arbiter/internal/pkg/publisher"
	"github.com/kestrelodds/arbiter/internal/pkg/resolver"
	"github.com/kestrelodds/arbiter/internal/pkg/telemetry"
)

// ProviderHandle names one configured adapter for the cycle loop. ID is the
// provider's stable small integer id, carried here so persisted
// counts can be attributed back to a provider after resolution without
// re-deriving it from RawMatch.ProviderID.
type ProviderHandle struct {
	ID      int
	Name    string
	Adapter interfaces.Adapter
}

// Store is the write surface the scheduler drives each cycle.
type Store interface {
	UpsertMatches(ctx context.Context, matches []models.Match) error
	WriteOddsDetectMovement(ctx context.Context, rows []models.CurrentOdds, thresholdPercent float64) ([]persist.Movement, error)
}

type Scheduler struct {
	providers []ProviderHandle
	resolver  *resolver.Resolver
	store     Store
	engine    *arbitrage.Engine
	pub       *publisher.Publisher
	cfg       config.ScrapeConfig
	arbCfg    config.ArbitrageConfig
	logger    *slog.Logger
	telemetry *telemetry.Recorder

	running atomic.Bool
}

func New(providers []ProviderHandle, res *resolver.Resolver, store Store, engine *arbitrage.Engine, pub *publisher.Publisher, cfg config.ScrapeConfig, arbCfg config.ArbitrageConfig, logger *slog.Logger, rec *telemetry.Recorder) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = telemetry.NewRecorder()
	}
	return &Scheduler{providers: providers, resolver: res, store: store, engine: engine, pub: pub, cfg: cfg, arbCfg: arbCfg, logger: logger, telemetry: rec}
}

// Telemetry exposes the scheduler's counters for the /stats surface.
func (s *Scheduler) Telemetry() *telemetry.Recorder {
	return s.telemetry
}

// Run ticks on cfg.Interval until ctx is cancelled. A cycle still in flight
// when the next tick fires is skipped rather than overlapped.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.running.CompareAndSwap(false, true) {
				s.logger.Warn("scheduler: skipping cycle, previous one still running")
				continue
			}
			go func() {
				defer s.running.Store(false)
				if err := s.RunCycle(ctx); err != nil {
					s.logger.Error("scheduler: cycle failed", "error", err)
				}
			}()
		}
	}
}

// RunCycle executes one full scrape→resolve→persist→arbitrage→publish
// pass, bounded by the configured cycle deadline.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	cycleCtx, cancel := context.WithTimeout(ctx, s.cfg.CycleDeadline())
	defer cancel()

	raw := s.scrapeAll(cycleCtx)

	decisions, err := s.resolver.ResolveBatch(cycleCtx, raw)
	if err != nil {
		return err
	}

	if err := s.persist(cycleCtx, decisions); err != nil {
		return err
	}

	// Arbitrage runs only after every provider has persisted or been
	// skipped, never against a mid-cycle snapshot.
	now := time.Now()
	events, err := s.engine.Run(cycleCtx, now)
	if err != nil {
		return err
	}
	for _, e := range events {
		s.pub.Publish(e)
	}
	return nil
}

// scrapeAll runs every provider's every supported sport concurrently,
// isolating one provider's failure from the rest.
func (s *Scheduler) scrapeAll(ctx context.Context) []models.RawMatch {
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var all []models.RawMatch

	for _, ph := range s.providers {
		ph := ph
		for _, sport := range ph.Adapter.SupportedSports() {
			sport := sport
			g.Go(func() error {
				start := time.Now()
				matches, err := ph.Adapter.Scrape(gctx, sport)
				s.telemetry.RecordScrape(ph.Name, time.Since(start), err)
				if err != nil {
					s.logger.Error("scheduler: scrape failed", "provider", ph.Name, "sport", sport.String(), "error", err)
					if sl, ok := ph.Adapter.(interfaces.SessionLifecycle); ok {
						if cerr := sl.Close(context.Background()); cerr != nil {
							s.logger.Warn("scheduler: closing failed session", "provider", ph.Name, "error", cerr)
						}
					}
					return nil // per-provider isolation: never fail the group
				}
				mu.Lock()
				all = append(all, matches...)
				mu.Unlock()
				return nil
			})
		}
	}
	// errgroup.Wait's error is always nil here since provider failures are
	// swallowed above; ctx cancellation on deadline still stops stragglers.
	_ = g.Wait()
	return all
}

// persist orders the writes: matches upsert before odds write, resolver
// decisions merged into CurrentOdds rows first.
func (s *Scheduler) persist(ctx context.Context, decisions []resolver.Decision) error {
	matches := make([]models.Match, 0, len(decisions))
	seen := make(map[string]bool, len(decisions))
	for _, d := range decisions {
		if !seen[d.Match.ID] {
			seen[d.Match.ID] = true
			matches = append(matches, d.Match)
		}
	}
	if err := s.store.UpsertMatches(ctx, matches); err != nil {
		return err
	}

	var rows []models.CurrentOdds
	now := time.Now()
	for _, d := range decisions {
		for _, o := range d.Raw.Odds {
			if err := codec.ValidateRow(o.CanonicalKey.BetTypeID, o.P1, o.P2, o.P3); err != nil {
				s.logger.Warn("scheduler: dropping malformed odds row", "component", "persist", "provider_id", d.Raw.ProviderID, "bet_type_id", o.CanonicalKey.BetTypeID, "error", err)
				continue
			}
			rows = append(rows, models.CurrentOdds{
				MatchID:      d.Match.ID,
				ProviderID:   d.Raw.ProviderID,
				CanonicalKey: o.CanonicalKey,
				P1:           o.P1,
				P2:           o.P2,
				P3:           o.P3,
				UpdatedAt:    now,
			})
		}
	}

	movements, err := s.store.WriteOddsDetectMovement(ctx, rows, s.arbCfg.LineMovementPercent)
	if err != nil {
		return err
	}
	for _, m := range movements {
		s.pub.Publish(persist.MovementToEvent(m, now))
	}

	s.recordPersistedByProvider(decisions, rows)
	return nil
}

// recordPersistedByProvider attributes this cycle's persisted counts back
// to each contributing provider for /stats.
func (s *Scheduler) recordPersistedByProvider(decisions []resolver.Decision, rows []models.CurrentOdds) {
	matchesByProvider := make(map[int]int)
	for _, d := range decisions {
		matchesByProvider[d.Raw.ProviderID]++
	}
	pricesByProvider := make(map[int]int)
	for _, r := range rows {
		pricesByProvider[r.ProviderID]++
	}
	for _, ph := range s.providers {
		if matchesByProvider[ph.ID] == 0 && pricesByProvider[ph.ID] == 0 {
			continue
		}
		s.telemetry.RecordPersisted(ph.Name, matchesByProvider[ph.ID], pricesByProvider[ph.ID])
	}
}
