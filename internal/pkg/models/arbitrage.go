package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
)

// Leg is one priced outcome of an arbitrage combination.
type Leg struct {
	ProviderID   int
	OutcomeIndex int
	Price        float64
}

// Arbitrage is a detected risk-free opportunity across providers.
// ProfitPercent and Stakes use decimal.Decimal so re-detection of an
// unchanged set of legs stores byte-identical values across cycles. The
// content hash is computed from BestLegs alone.
type Arbitrage struct {
	ID            string
	MatchID       string
	BetTypeID     enums.BetTypeID
	Margin        float64
	ProfitPercent decimal.Decimal
	BestLegs      []Leg
	Stakes        []decimal.Decimal // parallel to BestLegs, sums to 1 within 1e-9
	ContentHash   string
	DetectedAt    time.Time
	LastSeenAt    time.Time
	ExpiresAt     time.Time
	Active        bool
}
