package codec

import (
	"fmt"
	"regexp"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

// selectionGrammar matches the full selection vocabulary: half/FT prefixes, H/A/X team-side tokens, GG/NG, correct scores, exact
// goal counts, goal ranges, joined by & or |, possibly repeated.
var selectionGrammar = regexp.MustCompile(
	`^(?:(?:H[12]|FT):)?(?:[0-9]+:[0-9]+|other|T[0-9]+|[0-9]+\+|[0-9]+-[0-9]+|GG|NG|[HAX]|[12X]/[12X])(?:[&|](?:(?:H[12]|FT):)?(?:[0-9]+:[0-9]+|other|T[0-9]+|[0-9]+\+|[0-9]+-[0-9]+|GG|NG|[HAX]|[12X]/[12X]))*$`,
)

// ValidateKey rejects a canonical key whose selection syntax violates the
// grammar. Arity-2/3 bet types must carry an empty selection.
func ValidateKey(key models.CanonicalKey) error {
	bt, ok := enums.Lookup(key.BetTypeID)
	if !ok {
		return fmt.Errorf("codec: unknown bet type id %d", key.BetTypeID)
	}
	if bt.Arity != enums.ArityOne {
		if key.Selection != "" {
			return fmt.Errorf("codec: bet type %q has arity %d, must not carry a selection, got %q", bt.Name, bt.Arity, key.Selection)
		}
		return nil
	}
	if key.Selection == "" {
		return fmt.Errorf("codec: bet type %q is selection-bearing but selection is empty", bt.Name)
	}
	if !selectionGrammar.MatchString(key.Selection) {
		return fmt.Errorf("codec: selection %q does not match the canonical grammar", key.Selection)
	}
	return nil
}

// ValidateRow enforces the arity invariant: a row for a
// bet type of arity k must carry exactly k non-null price fields, the rest
// must be nil and are never consulted by callers.
func ValidateRow(betTypeID enums.BetTypeID, p1, p2, p3 *float64) error {
	bt, ok := enums.Lookup(betTypeID)
	if !ok {
		return fmt.Errorf("codec: unknown bet type id %d", betTypeID)
	}
	fields := []*float64{p1, p2, p3}
	for i, f := range fields {
		want := i < int(bt.Arity)
		if (f != nil) != want {
			if want {
				return fmt.Errorf("codec: bet type %q (arity %d) missing price field p%d", bt.Name, bt.Arity, i+1)
			}
			return fmt.Errorf("codec: bet type %q (arity %d) has unexpected price field p%d", bt.Name, bt.Arity, i+1)
		}
		if f != nil && (*f <= 1.0 || *f != *f) { // *f != *f catches NaN
			return fmt.Errorf("codec: bet type %q price field p%d = %v is not a valid decimal price", bt.Name, i+1, *f)
		}
	}
	return nil
}
