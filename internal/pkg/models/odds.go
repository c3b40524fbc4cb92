package models

import "time"

// CurrentOdds is the latest-known price for one (match, provider, wager)
// combination. MatchID, ProviderID and the three embedded CanonicalKey
// fields form the five-tuple primary key the persister upserts in place.
type CurrentOdds struct {
	MatchID    string
	ProviderID int
	CanonicalKey
	P1, P2, P3 *float64
	UpdatedAt  time.Time
}

func (c CurrentOdds) Key() OddsKey {
	return OddsKey{MatchID: c.MatchID, ProviderID: c.ProviderID, CanonicalKey: c.CanonicalKey}
}

// OddsHistory is an append-only observation of CurrentOdds, retained for a
// rolling window.
type OddsHistory struct {
	MatchID    string
	ProviderID int
	CanonicalKey
	P1, P2, P3 *float64
	ObservedAt time.Time
}

// FromCurrent snapshots a CurrentOdds row into a history row at t.
func FromCurrent(c CurrentOdds, t time.Time) OddsHistory {
	return OddsHistory{
		MatchID:      c.MatchID,
		ProviderID:   c.ProviderID,
		CanonicalKey: c.CanonicalKey,
		P1:           c.P1,
		P2:           c.P2,
		P3:           c.P3,
		ObservedAt:   t,
	}
}
