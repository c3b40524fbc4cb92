// Package arbitrage implements the detection engine: grouping
// live odds by (match, bet type, margin), finding the best cross-provider
// legs, and emitting profitable combinations with stake splits.
package arbitrage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kestrelodds/arbiter/internal/pkg/config"
	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
	"github.com/kestrelodds/arbiter/internal/pkg/persist"
)

// Store is the subset of *persist.Store the engine needs, named here so
// tests can supply an in-memory fake. It both feeds the detector and
// records its output.
type Store interface {
	LiveOddsBefore(ctx context.Context, now time.Time) ([]persist.LiveOdds, error)
	ActiveArbitrage(ctx context.Context) ([]models.Arbitrage, error)
	UpsertArbitrage(ctx context.Context, a models.Arbitrage) error
	DeactivateArbitrage(ctx context.Context, contentHashes []string) error
}

type Engine struct {
	store Store
	cfg   config.ArbitrageConfig
	dedup DedupGuard
}

func New(store Store, cfg config.ArbitrageConfig) *Engine {
	return &Engine{store: store, cfg: cfg}
}

// NewWithDedup additionally wires a content-hash dedup guard, for
// deployments running more than one scheduler instance against the same
// store.
func NewWithDedup(store Store, cfg config.ArbitrageConfig, dedup DedupGuard) *Engine {
	return &Engine{store: store, cfg: cfg, dedup: dedup}
}

type groupKey struct {
	MatchID   string
	BetTypeID enums.BetTypeID
	Margin    float64
}

// Run executes one arbitrage pass: detect against currently
// live odds, upsert/refresh active rows, deactivate anything no longer
// present, and return the publisher events for the delta
// ("arbitrage.new"/"arbitrage.expired"). It must run after every provider in
// the cycle has persisted, never against a mid-cycle snapshot.
func (e *Engine) Run(ctx context.Context, now time.Time) ([]models.Event, error) {
	rows, err := e.store.LiveOddsBefore(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("arbitrage: loading live odds: %w", err)
	}
	detected := Detect(rows, e.cfg, now)

	activeBefore, err := e.store.ActiveArbitrage(ctx)
	if err != nil {
		return nil, fmt.Errorf("arbitrage: loading active rows: %w", err)
	}
	wasActive := make(map[string]bool, len(activeBefore))
	for _, a := range activeBefore {
		wasActive[a.ContentHash] = true
	}

	stillActive := make(map[string]bool, len(detected))
	var events []models.Event
	for _, a := range detected {
		stillActive[a.ContentHash] = true
		if err := e.store.UpsertArbitrage(ctx, a); err != nil {
			return nil, fmt.Errorf("arbitrage: upserting %s: %w", a.ContentHash, err)
		}
		if !wasActive[a.ContentHash] {
			claimed := true
			if e.dedup != nil {
				claimed = e.dedup.ClaimNew(ctx, a.ContentHash, time.Until(a.ExpiresAt))
			}
			if claimed {
				events = append(events, newEvent(models.EventArbitrageNew, a, now))
			}
		}
	}

	var expired []string
	for _, a := range activeBefore {
		if stillActive[a.ContentHash] {
			continue
		}
		expired = append(expired, a.ContentHash)
		events = append(events, newEvent(models.EventArbitrageExpired, a, now))
	}
	if err := e.store.DeactivateArbitrage(ctx, expired); err != nil {
		return nil, fmt.Errorf("arbitrage: deactivating expired: %w", err)
	}

	// Value/diff signals are a non-authoritative byproduct of the same
	// grouping pass: they never gate arbitrage detection
	// or block this Run on error, they only add publisher events.
	values, _ := ComputeSignals(rows, e.cfg, now)
	for _, v := range values {
		v := v
		events = append(events, models.Event{
			Kind:       models.EventOddsValue,
			MatchID:    v.MatchID,
			BetTypeID:  v.BetTypeID,
			Margin:     v.Margin,
			Selection:  v.Selection,
			Value:      &v,
			OccurredAt: now,
		})
	}

	return events, nil
}

func newEvent(kind models.EventKind, a models.Arbitrage, now time.Time) models.Event {
	pct := a.ProfitPercent
	return models.Event{
		Kind:          kind,
		MatchID:       a.MatchID,
		BetTypeID:     a.BetTypeID,
		Margin:        a.Margin,
		Legs:          a.BestLegs,
		Stakes:        a.Stakes,
		ProfitPercent: &pct,
		OccurredAt:    now,
	}
}

// Detect runs the full detection pass over every (match, bet type, margin)
// group present in rows, pure and side-effect free so it can be unit tested
// without a store.
func Detect(rows []persist.LiveOdds, cfg config.ArbitrageConfig, now time.Time) []models.Arbitrage {
	groups := make(map[groupKey][]persist.LiveOdds)
	for _, r := range rows {
		k := groupKey{MatchID: r.MatchID, BetTypeID: r.BetTypeID, Margin: r.Margin}
		groups[k] = append(groups[k], r)
	}

	tick := cfg.ProfitTick
	if tick <= 0 {
		tick = 0.01
	}

	var out []models.Arbitrage
	// Deterministic iteration so content hashes (and any downstream ordering
	// a caller relies on) don't depend on Go's randomized map order.
	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].MatchID != keys[j].MatchID {
			return keys[i].MatchID < keys[j].MatchID
		}
		if keys[i].BetTypeID != keys[j].BetTypeID {
			return keys[i].BetTypeID < keys[j].BetTypeID
		}
		return keys[i].Margin < keys[j].Margin
	})

	for _, k := range keys {
		bt, ok := enums.Lookup(k.BetTypeID)
		if !ok {
			continue // unmapped bet type, never combined (codec invariant)
		}
		group := groups[k]

		var legs []models.Leg
		switch bt.Arity {
		case enums.ArityTwo, enums.ArityThree:
			legs = bestLegsFixedArity(group, int(bt.Arity))
		case enums.ArityOne:
			legs = bestLegsPartitioned(group, bt)
		}
		if legs == nil {
			continue
		}

		arb, ok := buildArbitrage(k, legs, group[0].MatchStartTime, tick, cfg.MinProfitPercentage, now)
		if ok {
			out = append(out, arb)
		}
	}
	return out
}

// bestLegsFixedArity implements step 1 for arity 2/3 bet types: for each
// outcome i, the provider offering the maximum price, ties broken by the
// lowest provider id. Two outcomes may legitimately share a provider.
func bestLegsFixedArity(group []persist.LiveOdds, arity int) []models.Leg {
	legs := make([]models.Leg, arity)
	for i := range legs {
		legs[i] = models.Leg{OutcomeIndex: i + 1, Price: -1}
	}
	for _, row := range group {
		prices := [3]*float64{row.P1, row.P2, row.P3}
		for i := 0; i < arity; i++ {
			p := prices[i]
			if p == nil || *p <= 0 {
				continue
			}
			cur := legs[i]
			if *p > cur.Price || (*p == cur.Price && row.ProviderID < cur.ProviderID) {
				legs[i] = models.Leg{ProviderID: row.ProviderID, OutcomeIndex: i + 1, Price: *p}
			}
		}
	}
	for _, l := range legs {
		if l.Price <= 0 {
			return nil // outcome never observed; group is incomplete
		}
	}
	return legs
}

// bestLegsPartitioned handles arity-1 bet types: only combine
// selections when the codec's declared Partition for this bet type is
// fully covered by the group's observed selections.
func bestLegsPartitioned(group []persist.LiveOdds, bt enums.BetType) []models.Leg {
	if len(bt.Partitions) == 0 {
		return nil // never declared combinable
	}
	bySelection := make(map[string][]persist.LiveOdds)
	for _, row := range group {
		bySelection[row.Selection] = append(bySelection[row.Selection], row)
	}

	for _, part := range bt.Partitions {
		complete := true
		for _, sel := range part.Selections {
			if _, ok := bySelection[sel]; !ok {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}

		legs := make([]models.Leg, len(part.Selections))
		for i, sel := range part.Selections {
			best := models.Leg{OutcomeIndex: i + 1, Price: -1}
			for _, row := range bySelection[sel] {
				if row.P1 == nil || *row.P1 <= 0 {
					continue
				}
				if *row.P1 > best.Price || (*row.P1 == best.Price && row.ProviderID < best.ProviderID) {
					best = models.Leg{ProviderID: row.ProviderID, OutcomeIndex: i + 1, Price: *row.P1}
				}
			}
			if best.Price <= 0 {
				return nil
			}
			legs[i] = best
		}
		return legs
	}
	return nil
}

// buildArbitrage computes the implied-probability sum, profit percentage,
// unit-stake split, and the permutation-stable content hash.
func buildArbitrage(k groupKey, legs []models.Leg, matchStart time.Time, tick, minProfitPct float64, now time.Time) (models.Arbitrage, bool) {
	var impliedSum float64
	for _, l := range legs {
		impliedSum += 1 / l.Price
	}
	if impliedSum >= 1 {
		return models.Arbitrage{}, false
	}

	profitPct := codecRoundTick((1/impliedSum-1)*100, tick)
	if profitPct < minProfitPct {
		return models.Arbitrage{}, false
	}

	stakes := make([]decimal.Decimal, len(legs))
	for i, l := range legs {
		stakes[i] = decimal.NewFromFloat(1 / l.Price / impliedSum)
	}

	return models.Arbitrage{
		ID:            uuid.New().String(),
		MatchID:       k.MatchID,
		BetTypeID:     k.BetTypeID,
		Margin:        k.Margin,
		ProfitPercent: decimal.NewFromFloat(profitPct),
		BestLegs:      legs,
		Stakes:        stakes,
		ContentHash:   contentHash(legs),
		DetectedAt:    now,
		LastSeenAt:    now,
		ExpiresAt:     matchStart,
		Active:        true,
	}, true
}

func codecRoundTick(v, tick float64) float64 {
	if tick <= 0 {
		return v
	}
	return math.Round(v/tick) * tick
}

// contentHash is deterministic over the sorted multiset of
// (provider_id, outcome_index, price rounded to 0.001), so re-detection of an unchanged opportunity is a no-op
// regardless of the order legs were discovered in.
func contentHash(legs []models.Leg) string {
	sorted := make([]models.Leg, len(legs))
	copy(sorted, legs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ProviderID != sorted[j].ProviderID {
			return sorted[i].ProviderID < sorted[j].ProviderID
		}
		return sorted[i].OutcomeIndex < sorted[j].OutcomeIndex
	})

	h := sha256.New()
	for _, l := range sorted {
		fmt.Fprintf(h, "%d|%d|%.3f;", l.ProviderID, l.OutcomeIndex, l.Price)
	}
	return hex.EncodeToString(h.Sum(nil))
}
