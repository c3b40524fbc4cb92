// Package browser implements the browser-driven adapter shape: identical
// RawMatch output contract, but the HTTP channel is a headless browser
// session used to pass anti-bot challenges. Session lifetime is
// at least one scrape cycle; on failure the session is torn down and
// recreated on the next cycle.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/kestrelodds/arbiter/internal/pkg/codec"
	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

type Config struct {
	ProviderID int
	MirrorURL  string
	SportPaths map[enums.SportID]string
	UserAgent  string
}

type Adapter struct {
	cfg    Config
	logger *slog.Logger

	mu         sync.Mutex
	allocCtx   context.Context
	allocStop  context.CancelFunc
	browserCtx context.Context
	browserStop context.CancelFunc
}

func New(cfg Config, logger *slog.Logger) *Adapter {
	return &Adapter{cfg: cfg, logger: logger}
}

func (a *Adapter) BaseURL() string { return a.cfg.MirrorURL }

func (a *Adapter) SupportedSports() []enums.SportID {
	out := make([]enums.SportID, 0, len(a.cfg.SportPaths))
	for s := range a.cfg.SportPaths {
		out = append(out, s)
	}
	return out
}

// ensureSession lazily starts a headless chromedp session, reused across
// calls within a cycle.
func (a *Adapter) ensureSession(ctx context.Context) (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.browserCtx != nil {
		return a.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(a.cfg.UserAgent),
	)
	allocCtx, allocStop := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserStop := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		allocStop()
		return nil, fmt.Errorf("browser: starting session: %w", err)
	}

	a.allocCtx, a.allocStop = allocCtx, allocStop
	a.browserCtx, a.browserStop = browserCtx, browserStop
	return browserCtx, nil
}

// Close tears down the session. Called by the scheduler when a cycle's
// browser-driven scrape fails; the next cycle starts a fresh session.
func (a *Adapter) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.browserStop != nil {
		a.browserStop()
	}
	if a.allocStop != nil {
		a.allocStop()
	}
	a.browserCtx, a.browserStop = nil, nil
	a.allocCtx, a.allocStop = nil, nil
	return nil
}

func (a *Adapter) Scrape(ctx context.Context, sport enums.SportID) ([]models.RawMatch, error) {
	path, ok := a.cfg.SportPaths[sport]
	if !ok {
		return nil, fmt.Errorf("browser: sport %s not supported", sport)
	}

	browserCtx, err := a.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	var body string
	err = chromedp.Run(browserCtx,
		chromedp.Navigate(a.cfg.MirrorURL+path),
		chromedp.Sleep(2*time.Second),
		chromedp.Text("body", &body, chromedp.ByQuery),
	)
	if err != nil {
		// session is presumed lost; caller tears it down via Close and
		// retries on the next cycle.
		return nil, fmt.Errorf("browser: navigating %s: %w", path, err)
	}

	var wire wireOverview
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return nil, fmt.Errorf("browser: decoding overview body: %w", err)
	}

	out := make([]models.RawMatch, 0, len(wire.Matches))
	for _, m := range wire.Matches {
		rm := models.RawMatch{
			ProviderID:  a.cfg.ProviderID,
			SportID:     sport,
			HomeTeamRaw: m.Home,
			AwayTeamRaw: m.Away,
			StartTime:   time.Unix(m.StartUnix, 0).UTC(),
			ExternalID:  m.ID,
		}
		if row, ok := decodeOutcomes(m.Outcomes); ok {
			rm.Odds = append(rm.Odds, row)
		}
		out = append(out, rm)
	}
	return out, nil
}

// decodeOutcomes merges every outcome on the overview page's single 1X2
// market into one RawOdds row, since the wire reports one price per slot
// rather than a complete row (same discipline as flatplatform.decodeFactors
// and compact's byBetType grouping). ok is false until all three slots have
// arrived: a persisted row carries exactly k price fields for its bet
// type's arity k.
func decodeOutcomes(outcomes []wireOutcome) (models.RawOdds, bool) {
	row := models.RawOdds{CanonicalKey: codec.CanonicalKeyFromBetType(enums.BetType1X2), Scope: enums.ScopeMainMatch, ObservedAt: time.Now()}
	for _, o := range outcomes {
		price := o.Price
		switch o.Slot {
		case 1:
			row.P1 = &price
		case 2:
			row.P2 = &price
		case 3:
			row.P3 = &price
		}
	}
	return row, row.P1 != nil && row.P2 != nil && row.P3 != nil
}

type wireOverview struct {
	Matches []wireMatch `json:"matches"`
}

type wireMatch struct {
	ID        string         `json:"id"`
	Home      string         `json:"home"`
	Away      string         `json:"away"`
	StartUnix int64          `json:"start"`
	Outcomes  []wireOutcome  `json:"outcomes"`
}

type wireOutcome struct {
	Slot  int     `json:"slot"`
	Price float64 `json:"price"`
}
