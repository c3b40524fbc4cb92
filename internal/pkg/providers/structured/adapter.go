// Package structured implements the "structured" adapter shape: hierarchical
// JSON with first-class bet_type_id/bet_outcomes[]/market_name fields.
package structured

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kestrelodds/arbiter/internal/pkg/codec"
	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/httputil"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

type Config struct {
	ProviderID int
	BaseURL    string
	APIKey     string
	HTTP       httputil.Config
	Sports     map[enums.SportID]int // provider's own numeric sport id
}

type Adapter struct {
	providerID int
	baseURL    string
	apiKey     string
	sports     map[enums.SportID]int
	client     *httputil.Client
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Adapter {
	return &Adapter{
		providerID: cfg.ProviderID,
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		sports:     cfg.Sports,
		client:     httputil.New(cfg.HTTP),
		logger:     logger,
	}
}

func (a *Adapter) BaseURL() string { return a.baseURL }

func (a *Adapter) SupportedSports() []enums.SportID {
	out := make([]enums.SportID, 0, len(a.sports))
	for s := range a.sports {
		out = append(out, s)
	}
	return out
}

type matchup struct {
	ID         int64     `json:"id"`
	Home       string    `json:"home"`
	Away       string    `json:"away"`
	League     string    `json:"league"`
	StartsUTC  time.Time `json:"starts"`
}

type straightMarket struct {
	MatchupID int64         `json:"matchupId"`
	Type      string        `json:"type"` // "moneyline" | "total" | "spread"
	Period    int           `json:"period"`
	Prices    []priceAmerican `json:"prices"`
}

type priceAmerican struct {
	Designation string  `json:"designation"` // "home" | "away" | "draw" | "over" | "under"
	Price       int     `json:"price"`        // American odds
	Points      float64 `json:"points"`
}

func (a *Adapter) Scrape(ctx context.Context, sport enums.SportID) ([]models.RawMatch, error) {
	sportID, ok := a.sports[sport]
	if !ok {
		return nil, fmt.Errorf("structured: sport %s not supported", sport)
	}

	matchupsBody, err := a.client.Get(ctx, a.baseURL+"/0.1/sports/matchups", map[string]string{
		"sportId": fmt.Sprint(sportID),
	})
	if err != nil {
		return nil, fmt.Errorf("structured: fetching matchups: %w", err)
	}
	var matchups []matchup
	if err := json.Unmarshal(matchupsBody, &matchups); err != nil {
		return nil, fmt.Errorf("structured: decoding matchups: %w", err)
	}

	marketsBody, err := a.client.Get(ctx, a.baseURL+"/0.1/sports/markets/straight", map[string]string{
		"sportId": fmt.Sprint(sportID),
	})
	if err != nil {
		return nil, fmt.Errorf("structured: fetching markets: %w", err)
	}
	var markets []straightMarket
	if err := json.Unmarshal(marketsBody, &markets); err != nil {
		return nil, fmt.Errorf("structured: decoding markets: %w", err)
	}

	byMatchup := map[int64][]straightMarket{}
	for _, m := range markets {
		byMatchup[m.MatchupID] = append(byMatchup[m.MatchupID], m)
	}

	out := make([]models.RawMatch, 0, len(matchups))
	for _, mu := range matchups {
		rm := models.RawMatch{
			ProviderID:  a.providerID,
			SportID:     sport,
			HomeTeamRaw: mu.Home,
			AwayTeamRaw: mu.Away,
			League:      mu.League,
			StartTime:   mu.StartsUTC,
			ExternalID:  fmt.Sprint(mu.ID),
		}
		for _, market := range byMatchup[mu.ID] {
			rm.Odds = append(rm.Odds, a.decodeMarket(market)...)
		}
		out = append(out, rm)
	}
	return out, nil
}

// decodeMarket appends one or more RawOdds for a straight market:
// moneyline -> arity-3 1X2 when a draw is priced, else arity-2 match
// winner; total/spread -> arity-2 with a margin from Points.
func (a *Adapter) decodeMarket(m straightMarket) []models.RawOdds {
	switch m.Type {
	case "moneyline":
		return a.decodeMoneyline(m)
	case "total":
		return a.decodeTwoWay(m, enums.BetTypeTotalOverUnder, "over", "under")
	case "spread":
		return a.decodeTwoWay(m, enums.BetTypeAsianHandicap, "home", "away")
	default:
		if a.logger != nil {
			a.logger.Debug("unmapped market", "component", "codec", "provider_id", a.providerID, "market_type", m.Type)
		}
		return nil
	}
}

// decodeMoneyline builds a three-way 1X2 row when the market prices a draw,
// or a two-way match-winner row when it doesn't (tennis and other
// moneyline-only sports never carry a draw price, so they can't share
// BetType1X2's fixed arity of three).
func (a *Adapter) decodeMoneyline(m straightMarket) []models.RawOdds {
	prices := map[string]float64{}
	for _, p := range m.Prices {
		prices[p.Designation] = americanToDecimal(p.Price)
	}
	home, hasHome := prices["home"]
	away, hasAway := prices["away"]
	draw, hasDraw := prices["draw"]
	if !hasHome || !hasAway {
		return nil
	}

	if !hasDraw {
		key := codec.CanonicalKeyFromBetType(enums.BetTypeMatchWinner)
		row := models.RawOdds{CanonicalKey: key, Scope: enums.ScopeMainMatch, ObservedAt: time.Now()}
		row.P1, row.P2 = &home, &away
		return []models.RawOdds{row}
	}

	key := codec.CanonicalKeyFromBetType(enums.BetType1X2)
	row := models.RawOdds{CanonicalKey: key, Scope: enums.ScopeMainMatch, ObservedAt: time.Now()}
	row.P1, row.P2, row.P3 = &home, &draw, &away
	return []models.RawOdds{row}
}

func (a *Adapter) decodeTwoWay(m straightMarket, betType enums.BetTypeID, sideA, sideB string) []models.RawOdds {
	var margin float64
	prices := map[string]float64{}
	for _, p := range m.Prices {
		prices[p.Designation] = americanToDecimal(p.Price)
		margin = p.Points
	}
	pa, hasA := prices[sideA]
	pb, hasB := prices[sideB]
	if !hasA || !hasB {
		return nil
	}
	key := codec.CanonicalKeyFromBetType(betType)
	key.Margin = codec.RoundTick(margin, codec.MarginTick)
	row := models.RawOdds{CanonicalKey: key, Scope: enums.ScopeMainMatch, ObservedAt: time.Now()}
	row.P1 = &pa
	row.P2 = &pb
	return []models.RawOdds{row}
}

// americanToDecimal converts American-style odds to decimal.
func americanToDecimal(american int) float64 {
	if american > 0 {
		return 1 + float64(american)/100
	}
	return 1 + 100/float64(-american)
}
