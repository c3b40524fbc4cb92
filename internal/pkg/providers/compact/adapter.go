// Package compact implements the "compressed overview" adapter shape: a
// single per-sport endpoint with short field names (I, O1, O2, S, L, E per
// match; G, T, P, C per event) and
// decode tables living in the adapter.
package compact

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
	SportCodes map[enums.SportID]int
	HTTP       httputil.Config
}

type Adapter struct {
	providerID int
	baseURL    string
	sportCodes map[enums.SportID]int
	client     *httputil.Client
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Adapter {
	return &Adapter{
		providerID: cfg.ProviderID,
		baseURL:    cfg.BaseURL,
		sportCodes: cfg.SportCodes,
		client:     httputil.New(cfg.HTTP),
		logger:     logger,
	}
}

func (a *Adapter) BaseURL() string { return a.baseURL }

func (a *Adapter) SupportedSports() []enums.SportID {
	out := make([]enums.SportID, 0, len(a.sportCodes))
	for s := range a.sportCodes {
		out = append(out, s)
	}
	return out
}

type wireResponse struct {
	Value []wireMatch `json:"Value"`
}

type wireMatch struct {
	I  int64       `json:"I"`
	O1 string      `json:"O1"`
	O2 string      `json:"O2"`
	S  int64       `json:"S"`
	L  string      `json:"L"`
	E  []wireEvent `json:"E"`
}

// wireEvent's G (group) and T (type within group) jointly select the
// canonical key, mirroring xbet1's Event.G/Event.T convention (G=1
// moneyline, G=2 handicap, G=17 total).
type wireEvent struct {
	G int     `json:"G"`
	T int     `json:"T"`
	P float64 `json:"P"`
	C float64 `json:"C"`
}

func (a *Adapter) Scrape(ctx context.Context, sport enums.SportID) ([]models.RawMatch, error) {
	sportCode, ok := a.sportCodes[sport]
	if !ok {
		return nil, fmt.Errorf("compact: sport %s not supported", sport)
	}

	body, err := a.client.Get(ctx, a.baseURL+"/GetMatchesZip", map[string]string{
		"sport": fmt.Sprint(sportCode),
	})
	if err != nil {
		return nil, fmt.Errorf("compact: fetching sport %s: %w", sport, err)
	}

	var resp wireResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("compact: decoding response body: %w", err)
	}

	out := make([]models.RawMatch, 0, len(resp.Value))
	for _, wm := range resp.Value {
		rm := models.RawMatch{
			ProviderID:  a.providerID,
			SportID:     sport,
			HomeTeamRaw: wm.O1,
			AwayTeamRaw: wm.O2,
			League:      wm.L,
			StartTime:   time.Unix(wm.S, 0).UTC(),
			ExternalID:  fmt.Sprint(wm.I),
		}
		rm.Odds = a.decodeEvents(wm.E)
		out = append(out, rm)
	}
	return out, nil
}

// groupTable maps (group, type) pairs to canonical bet types: G=1
// moneyline (T 1/2/3 = home/draw/away), G=17 total over/under, G=2 Asian
// handicap.
var groupTable = map[[2]int]enums.BetTypeID{
	{1, 1}: enums.BetType1X2,
	{1, 2}: enums.BetType1X2,
	{1, 3}: enums.BetType1X2,
	{17, 1}: enums.BetTypeTotalOverUnder,
	{17, 2}: enums.BetTypeTotalOverUnder,
	{2, 1}:  enums.BetTypeAsianHandicap,
	{2, 2}:  enums.BetTypeAsianHandicap,
}

func (a *Adapter) decodeEvents(events []wireEvent) []models.RawOdds {
	byBetType := map[enums.BetTypeID]*models.RawOdds{}
	order := []enums.BetTypeID{}
	for _, e := range events {
		betTypeID, ok := groupTable[[2]int{e.G, e.T}]
		if !ok {
			if a.logger != nil {
				a.logger.Debug("unmapped market", "component", "codec", "provider_id", a.providerID, "group", e.G, "type", e.T)
			}
			continue
		}
		row, exists := byBetType[betTypeID]
		if !exists {
			key := codec.CanonicalKeyFromBetType(betTypeID)
			key.Margin = codec.RoundTick(e.P, codec.MarginTick)
			row = &models.RawOdds{CanonicalKey: key, Scope: enums.ScopeMainMatch, ObservedAt: time.Now()}
			byBetType[betTypeID] = row
			order = append(order, betTypeID)
		}
		price := e.C
		switch slotForType(e.G, e.T) {
		case 1:
			row.P1 = &price
		case 2:
			row.P2 = &price
		case 3:
			row.P3 = &price
		}
	}
	out := make([]models.RawOdds, 0, len(order))
	for _, id := range order {
		out = append(out, *byBetType[id])
	}
	return out
}

func slotForType(group, t int) int {
	if group == 1 {
		// xbet1 moneyline: T 1/2/3 = home/draw/away, already in canonical slot order.
		return t
	}
	// two-outcome groups (handicap/total): T 1/2 = p1/p2.
	return t
}
