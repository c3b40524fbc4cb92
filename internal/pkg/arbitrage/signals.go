package arbitrage

import (
	"time"

	"github.com/kestrelodds/arbiter/internal/pkg/config"
	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
	"github.com/kestrelodds/arbiter/internal/pkg/persist"
)

// outcomeKey names one priced outcome across providers: a canonical key
// plus which of p1/p2/p3 is being compared.
type outcomeKey struct {
	MatchID      string
	BetTypeID    enums.BetTypeID
	Margin       float64
	Selection    string
	OutcomeIndex int
}

type observation struct {
	ProviderID int
	Price      float64
}

// ComputeSignals derives the value/diff side channel from the same grouped
// rows the detector sees: reference price = average across observed
// bookmakers (there is no fixed "sharp books" list to weight), diff = the
// max/min spread per outcome. Neither signal gates or is gated by
// arbitrage detection.
func ComputeSignals(rows []persist.LiveOdds, cfg config.ArbitrageConfig, now time.Time) ([]models.ValueSignal, []models.DiffSignal) {
	byOutcome := make(map[outcomeKey][]observation)
	for _, r := range rows {
		for i, p := range [3]*float64{r.P1, r.P2, r.P3} {
			if p == nil || *p <= 0 {
				continue
			}
			k := outcomeKey{MatchID: r.MatchID, BetTypeID: r.BetTypeID, Margin: r.Margin, Selection: r.Selection, OutcomeIndex: i + 1}
			byOutcome[k] = append(byOutcome[k], observation{ProviderID: r.ProviderID, Price: *p})
		}
	}

	var values []models.ValueSignal
	var diffs []models.DiffSignal
	for k, obs := range byOutcome {
		if len(obs) < 2 {
			continue
		}

		var sum float64
		for _, o := range obs {
			sum += o.Price
		}
		fair := sum / float64(len(obs))

		max, min := obs[0], obs[0]
		for _, o := range obs {
			if o.Price > max.Price || (o.Price == max.Price && o.ProviderID < max.ProviderID) {
				max = o
			}
			if o.Price < min.Price || (o.Price == min.Price && o.ProviderID < min.ProviderID) {
				min = o
			}
		}

		for _, o := range obs {
			valuePct := (o.Price/fair - 1) * 100
			if valuePct >= cfg.MinValuePercent {
				values = append(values, models.ValueSignal{
					MatchID: k.MatchID, BetTypeID: k.BetTypeID, Margin: k.Margin, Selection: k.Selection,
					ProviderID: o.ProviderID, BookmakerPrice: o.Price, FairPrice: fair, ValuePercent: valuePct,
					FoundAt: now,
				})
			}
		}

		if min.Price > 0 {
			diffPct := (max.Price - min.Price) / min.Price * 100
			if diffPct >= cfg.MinDiffPercent {
				diffs = append(diffs, models.DiffSignal{
					MatchID: k.MatchID, BetTypeID: k.BetTypeID, Margin: k.Margin, Selection: k.Selection,
					MaxPrice: max.Price, MaxProvider: max.ProviderID,
					MinPrice: min.Price, MinProvider: min.ProviderID,
					DiffPercent: diffPct, FoundAt: now,
				})
			}
		}
	}
	return values, diffs
}
