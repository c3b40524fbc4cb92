// Package flatplatform implements the "flat platform" adapter shape: one
// list endpoint queried per sport by its scopeMarket code, markets
// identified by short codes. No separate config-dict endpoint is fetched.
package flatplatform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/kestrelodds/arbiter/internal/pkg/codec"
	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/httputil"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

// Config is the static per-provider block this adapter needs.
type Config struct {
	ProviderID int
	BaseURL    string
	Lang       string
	Version    string
	HTTP       httputil.Config
}

type Adapter struct {
	providerID int
	baseURL    string
	lang       string
	version    string
	client     *httputil.Client
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Adapter {
	return &Adapter{
		providerID: cfg.ProviderID,
		baseURL:    cfg.BaseURL,
		lang:       cfg.Lang,
		version:    cfg.Version,
		client:     httputil.New(cfg.HTTP),
		logger:     logger,
	}
}

func (a *Adapter) BaseURL() string { return a.baseURL }

func (a *Adapter) SupportedSports() []enums.SportID {
	sports := make([]enums.SportID, 0, len(scopeMarketBySport))
	for s := range scopeMarketBySport {
		sports = append(sports, s)
	}
	return sports
}

// wireEvent mirrors the flat platform's hierarchical event shape: a Level-1
// row is the main match, Level>1 rows with a ParentID are its statistical
// or per-factor sub-events.
type wireEvent struct {
	ID        string      `json:"id"`
	Level     int         `json:"level"`
	ParentID  int64       `json:"parentId"`
	Home      string      `json:"team1"`
	Away      string      `json:"team2"`
	StartUnix int64       `json:"startTime"`
	Factors   []wireFactor `json:"factors"`
}

type wireFactor struct {
	F     string  `json:"f"` // short factor code, keys factorTable
	V     float64 `json:"v"` // price
	Param string  `json:"param"`
}

func (a *Adapter) Scrape(ctx context.Context, sport enums.SportID) ([]models.RawMatch, error) {
	scope, ok := scopeMarket(sport)
	if !ok {
		return nil, fmt.Errorf("flatplatform: sport %s not supported", sport)
	}

	body, err := a.client.Get(ctx, a.baseURL, map[string]string{
		"lang":        a.lang,
		"version":     a.version,
		"scopeMarket": scope,
	})
	if err != nil {
		return nil, fmt.Errorf("flatplatform: fetching sport %s: %w", sport, err)
	}

	var events []wireEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("flatplatform: decoding response body: %w", err)
	}

	byParent := map[string][]wireEvent{}
	mains := map[string]wireEvent{}
	for _, e := range events {
		if e.Level == 1 {
			mains[e.ID] = e
			continue
		}
		if e.ParentID > 0 {
			key := strconv.FormatInt(e.ParentID, 10)
			byParent[key] = append(byParent[key], e)
		}
	}

	matches := make([]models.RawMatch, 0, len(mains))
	for id, main := range mains {
		rm := models.RawMatch{
			ProviderID:  a.providerID,
			SportID:     sport,
			HomeTeamRaw: main.Home,
			AwayTeamRaw: main.Away,
			StartTime:   time.Unix(main.StartUnix, 0).UTC(),
			ExternalID:  id,
		}
		rm.Odds = append(rm.Odds, a.decodeFactors(main.Factors, enums.ScopeMainMatch)...)
		for _, sub := range byParent[id] {
			rm.Odds = append(rm.Odds, a.decodeFactors(sub.Factors, enums.ScopeMainMatch)...)
		}
		matches = append(matches, rm)
	}
	return matches, nil
}

// mappingTable projects factorTable down to the plain codec.Mapping shape
// codec.Encode expects, dropping the per-factor Outcome slot that's this
// adapter's own concern rather than the codec's.
var mappingTable = func() map[string]codec.Mapping {
	out := make(map[string]codec.Mapping, len(factorTable))
	for code, spec := range factorTable {
		out[code] = spec.Mapping
	}
	return out
}()

// decodeFactors reassembles the wire's one-price-per-outcome factors into
// RawOdds rows (a row for a bet type of arity k carries all k price
// fields). Factors sharing a canonical (bet_type_id, margin) key are
// grouped by their declared Outcome slot; arity-1 factors (Outcome == 0)
// already carry a complete selection and need no grouping.
func (a *Adapter) decodeFactors(factors []wireFactor, scope enums.EventScope) []models.RawOdds {
	type group struct {
		key    models.CanonicalKey
		prices [3]*float64
	}
	groups := make(map[models.CanonicalKey]*group)
	var order []models.CanonicalKey
	var standalone []models.RawOdds

	for _, f := range factors {
		spec, ok := factorTable[f.F]
		if !ok {
			if a.logger != nil {
				a.logger.Debug("unmapped market", "component", "codec", "provider_id", a.providerID, "factor", f.F)
			}
			continue
		}
		key, err := codec.Encode(a.logger, a.providerID, f.F, mappingTable, codec.Params{
			Line:  parseFloat(f.Param),
			Token: f.Param,
		})
		if err != nil {
			continue // unmapped market: already logged by codec.Encode, drop silently
		}

		price := f.V
		if spec.Outcome == 0 {
			row := models.RawOdds{CanonicalKey: key, Scope: scope, ObservedAt: time.Now()}
			row.P1 = &price
			standalone = append(standalone, row)
			continue
		}

		g, exists := groups[key]
		if !exists {
			g = &group{key: key}
			groups[key] = g
			order = append(order, key)
		}
		if idx := spec.Outcome - 1; idx >= 0 && idx < len(g.prices) {
			g.prices[idx] = &price
		}
	}

	out := make([]models.RawOdds, 0, len(order)+len(standalone))
	for _, k := range order {
		g := groups[k]
		row := models.RawOdds{CanonicalKey: g.key, Scope: scope, ObservedAt: time.Now()}
		row.P1, row.P2, row.P3 = g.prices[0], g.prices[1], g.prices[2]
		out = append(out, row)
	}
	return append(out, standalone...)
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
