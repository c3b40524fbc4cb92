package models

import (
	"fmt"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
)

// CanonicalKey is the provider-independent (bet_type_id, selection,
// margin) tuple naming a real-world wager. Margin is
// rounded to a fixed tick by the codec before it ever reaches this struct,
// so two providers offering the identical wager produce a byte-identical key.
type CanonicalKey struct {
	BetTypeID enums.BetTypeID
	Selection string
	Margin    float64
}

func (k CanonicalKey) String() string {
	if k.Selection == "" {
		return fmt.Sprintf("bt%d@%g", k.BetTypeID, k.Margin)
	}
	return fmt.Sprintf("bt%d:%s@%g", k.BetTypeID, k.Selection, k.Margin)
}

// OddsKey is the five-tuple primary key of CurrentOdds.
type OddsKey struct {
	MatchID    string
	ProviderID int
	CanonicalKey
}
