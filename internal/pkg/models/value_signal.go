package models

import (
	"time"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
)

// ValueSignal is the arbitrage engine's secondary, non-authoritative output
//: a single
// bookmaker pricing above the fair price, the plain average of the prices
// observed across bookmakers on the same wager. Weaker than arbitrage — never persisted,
// never gates detection.
type ValueSignal struct {
	MatchID        string
	BetTypeID      enums.BetTypeID
	Margin         float64
	Selection      string
	ProviderID     int
	BookmakerPrice float64
	FairPrice      float64
	ValuePercent   float64
	FoundAt        time.Time
}

// DiffSignal is the simpler max/min odds gap between bookmakers on the same
// wager.
type DiffSignal struct {
	MatchID      string
	BetTypeID    enums.BetTypeID
	Margin       float64
	Selection    string
	MaxPrice     float64
	MaxProvider  int
	MinPrice     float64
	MinProvider  int
	DiffPercent  float64
	FoundAt      time.Time
}
