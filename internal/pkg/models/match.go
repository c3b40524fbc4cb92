package models

import (
	"time"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
)

// RawOdds is one provider price row already encoded through the canonical
// market codec. Only the first
// Arity(BetTypeID) price fields are meaningful; the rest are left nil and
// must never be consulted.
type RawOdds struct {
	CanonicalKey
	P1, P2, P3 *float64
	Scope      enums.EventScope
	ObservedAt time.Time
}

// RawMatch is a single event as reported by one provider during one scrape,
// before the resolver has folded it into an internal Match.
type RawMatch struct {
	ProviderID    int
	SportID       enums.SportID
	HomeTeamRaw   string
	AwayTeamRaw   string
	League        string // empty if the provider doesn't expose one
	StartTime     time.Time
	ExternalID    string // provider-local event id, empty if the provider has none
	Odds          []RawOdds
}

// MatchStatus tracks the lifecycle the sweeper advances on a schedule
//.
type MatchStatus string

const (
	MatchUpcoming  MatchStatus = "upcoming"
	MatchLive      MatchStatus = "live"
	MatchFinished  MatchStatus = "finished"
	MatchCancelled MatchStatus = "cancelled"
)

// Match is the resolver's internal, cross-provider identity for one
// real-world event. Team1Norm/Team2Norm back the database's
// unique index on (team1_norm, team2_norm, sport_id, start_time).
type Match struct {
	ID          string
	Team1Raw    string
	Team2Raw    string
	Team1Norm   string
	Team2Norm   string
	SportID     enums.SportID
	LeagueID    *string
	StartTime   time.Time
	ExternalIDs map[int]string // provider id -> provider-local event id
	Status      MatchStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasExternalID reports whether providerID has already been merged into
// this match's id map, so the resolver can decide whether a merge is new.
func (m *Match) HasExternalID(providerID int) bool {
	_, ok := m.ExternalIDs[providerID]
	return ok
}
