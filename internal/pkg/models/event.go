package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
)

// EventKind is the publisher's event taxonomy.
type EventKind string

const (
	EventArbitrageNew     EventKind = "arbitrage.new"
	EventArbitrageExpired EventKind = "arbitrage.expired"
	EventOddsUpdate       EventKind = "odds.update"
	// EventOddsValue is a non-authoritative value-bet signal, never gating
	// arbitrage detection.
	EventOddsValue EventKind = "odds.value"
)

// Event is the publisher's wire payload shape.
type Event struct {
	Kind          EventKind
	MatchID       string
	BetTypeID     enums.BetTypeID
	Margin        float64
	Selection     string
	Legs          []Leg
	Stakes        []decimal.Decimal
	ProfitPercent *decimal.Decimal
	Value         *ValueSignal // set only for EventOddsValue
	OccurredAt    time.Time
}
