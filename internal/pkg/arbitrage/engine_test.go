package arbitrage

import (
	"testing"
	"time"

	"github.com/kestrelodds/arbiter/internal/pkg/config"
	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
	"github.com/kestrelodds/arbiter/internal/pkg/persist"
)

func f(v float64) *float64 { return &v }

// Two providers
// on a 1X2 market with prices (2.10, 3.50, 4.20) and (2.30, 3.60, 3.80)
// produce best legs (2.30, 3.60, 4.20), profit ≈ 5.18%, stakes
// (0.457, 0.292, 0.250).
func TestDetect_WorkedExample(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	rows := []persist.LiveOdds{
		{
			CurrentOdds:    models.CurrentOdds{MatchID: "m1", ProviderID: 1, CanonicalKey: models.CanonicalKey{BetTypeID: enums.BetType1X2}, P1: f(2.10), P2: f(3.50), P3: f(4.20)},
			MatchStartTime: start,
		},
		{
			CurrentOdds:    models.CurrentOdds{MatchID: "m1", ProviderID: 2, CanonicalKey: models.CanonicalKey{BetTypeID: enums.BetType1X2}, P1: f(2.30), P2: f(3.60), P3: f(3.80)},
			MatchStartTime: start,
		},
	}

	cfg := config.ArbitrageConfig{ProfitTick: 0.01, MinProfitPercentage: 0.5}
	got := Detect(rows, cfg, time.Now())
	if len(got) != 1 {
		t.Fatalf("expected one arbitrage, got %d", len(got))
	}

	arb := got[0]
	if arb.MatchID != "m1" || arb.BetTypeID != enums.BetType1X2 {
		t.Fatalf("unexpected group: %+v", arb)
	}

	wantProfit := 5.18
	gotProfit, _ := arb.ProfitPercent.Float64()
	if diff := gotProfit - wantProfit; diff > 0.05 || diff < -0.05 {
		t.Fatalf("profit percent = %v, want ~%v", gotProfit, wantProfit)
	}

	if len(arb.BestLegs) != 3 {
		t.Fatalf("expected 3 legs, got %d", len(arb.BestLegs))
	}
	wantPrices := map[int]float64{1: 2.30, 2: 3.60, 3: 4.20}
	wantProviders := map[int]int{1: 2, 2: 2, 3: 1}
	for _, leg := range arb.BestLegs {
		if leg.Price != wantPrices[leg.OutcomeIndex] {
			t.Errorf("outcome %d price = %v, want %v", leg.OutcomeIndex, leg.Price, wantPrices[leg.OutcomeIndex])
		}
		if leg.ProviderID != wantProviders[leg.OutcomeIndex] {
			t.Errorf("outcome %d provider = %d, want %d", leg.OutcomeIndex, leg.ProviderID, wantProviders[leg.OutcomeIndex])
		}
	}

	var stakeSum float64
	for _, s := range arb.Stakes {
		v, _ := s.Float64()
		stakeSum += v
	}
	if diff := stakeSum - 1; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("stakes sum = %v, want 1", stakeSum)
	}
}

// An implied probability sum ≥ 1 is never emitted as an arbitrage.
func TestDetect_NonArbitrageRejected(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	rows := []persist.LiveOdds{
		{
			CurrentOdds:    models.CurrentOdds{MatchID: "m1", ProviderID: 1, CanonicalKey: models.CanonicalKey{BetTypeID: enums.BetType1X2}, P1: f(1.80), P2: f(3.00), P3: f(3.50)},
			MatchStartTime: start,
		},
	}
	got := Detect(rows, config.ArbitrageConfig{ProfitTick: 0.01}, time.Now())
	if len(got) != 0 {
		t.Fatalf("expected no arbitrage when the implied probability sum is >= 1, got %d", len(got))
	}
}

// The hash is deterministic over the sorted multiset of legs, independent
// of discovery order.
func TestDetect_ContentHashStableUnderPermutation(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	forward := []persist.LiveOdds{
		{CurrentOdds: models.CurrentOdds{MatchID: "m1", ProviderID: 1, CanonicalKey: models.CanonicalKey{BetTypeID: enums.BetType1X2}, P1: f(2.10), P2: f(3.50), P3: f(4.20)}, MatchStartTime: start},
		{CurrentOdds: models.CurrentOdds{MatchID: "m1", ProviderID: 2, CanonicalKey: models.CanonicalKey{BetTypeID: enums.BetType1X2}, P1: f(2.30), P2: f(3.60), P3: f(3.80)}, MatchStartTime: start},
	}
	reversed := []persist.LiveOdds{forward[1], forward[0]}

	cfg := config.ArbitrageConfig{ProfitTick: 0.01}
	a := Detect(forward, cfg, time.Now())
	b := Detect(reversed, cfg, time.Now())
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("expected one arbitrage from each row order, got %d/%d", len(a), len(b))
	}
	if a[0].ContentHash != b[0].ContentHash {
		t.Errorf("content hash differs across row order: %s vs %s", a[0].ContentHash, b[0].ContentHash)
	}
}

// Arity-1 rows only combine when every selection in the declared partition
// is present.
func TestDetect_Arity1RequiresCompletePartition(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	rows := []persist.LiveOdds{
		{CurrentOdds: models.CurrentOdds{MatchID: "m1", ProviderID: 1, CanonicalKey: models.CanonicalKey{BetTypeID: enums.BetTypeHalftimeFulltime, Selection: "1/1"}, P1: f(3.0)}, MatchStartTime: start},
		{CurrentOdds: models.CurrentOdds{MatchID: "m1", ProviderID: 2, CanonicalKey: models.CanonicalKey{BetTypeID: enums.BetTypeHalftimeFulltime, Selection: "X/X"}, P1: f(4.0)}, MatchStartTime: start},
	}
	got := Detect(rows, config.ArbitrageConfig{ProfitTick: 0.01}, time.Now())
	if len(got) != 0 {
		t.Fatalf("expected no arbitrage with an incomplete HT/FT partition, got %d", len(got))
	}
}
