// Package codec is the canonical market codec: it projects every provider's
// vendor-specific market encoding into the fixed (bet_type_id, selection,
// margin) vocabulary, and back to a human label for the publisher.
package codec

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

// ErrUnmapped marks a vendor code the codec doesn't know. This is not an
// error condition: callers log it to the unmapped-market channel at debug
// and drop the row, never forwarding it.
var ErrUnmapped = errors.New("codec: unmapped vendor market")

// MarginTick is the rounding precision canonical margins are quantized to,
// so two providers' floating handicap lines compare equal.
const MarginTick = 0.01

// Params carries the provider's raw market parameters into a Mapping's
// selection/margin builders. Fields are populated by the calling adapter;
// unused ones stay at zero value.
type Params struct {
	Line      float64 // handicap or total threshold, already provider's own sign
	Half      int     // 1 or 2, zero if not half-scoped
	HomeScore int
	AwayScore int
	Token     string // vendor's raw selection token, for combo/localized folding
}

// Mapping is one vendor code's translation rule, supplied by an adapter's
// static table. SelectionFn returns "" for
// bet types with no selection (arity 2/3).
type Mapping struct {
	BetTypeID   enums.BetTypeID
	InvertSign  bool // one platform family reports handicaps negated
	SelectionFn func(Params) (string, error)
	MarginFn    func(Params) float64
	// RerouteFn lets a mapping switch bet type based on the built selection,
	// e.g. goal-range rows carrying a standalone digit reroute to
	// exact_goals. Returning
	// ok=false keeps BetTypeID/selection as built.
	RerouteFn func(selection string) (betTypeID enums.BetTypeID, rerouted string, ok bool)
}

// Encode looks up vendorCode in table and builds the canonical key. Unknown
// codes return ErrUnmapped, never a hard error.
func Encode(logger *slog.Logger, providerID int, vendorCode string, table map[string]Mapping, params Params) (models.CanonicalKey, error) {
	m, ok := table[vendorCode]
	if !ok {
		if logger != nil {
			logger.Debug("unmapped market", "component", "codec", "provider_id", providerID, "vendor_code", vendorCode)
		}
		return models.CanonicalKey{}, ErrUnmapped
	}

	var selection string
	if m.SelectionFn != nil {
		sel, err := m.SelectionFn(params)
		if err != nil {
			return models.CanonicalKey{}, fmt.Errorf("codec: building selection for %q: %w", vendorCode, err)
		}
		selection = sel
	}

	betTypeID := m.BetTypeID
	if m.RerouteFn != nil {
		if rid, rsel, ok := m.RerouteFn(selection); ok {
			betTypeID, selection = rid, rsel
		}
	}

	margin := params.Line
	if m.MarginFn != nil {
		margin = m.MarginFn(params)
	}
	if m.InvertSign {
		margin = -margin
	}
	margin = RoundTick(margin, MarginTick)

	key := models.CanonicalKey{BetTypeID: betTypeID, Selection: selection, Margin: margin}
	if err := ValidateKey(key); err != nil {
		return models.CanonicalKey{}, fmt.Errorf("codec: %q produced invalid key: %w", vendorCode, err)
	}
	return key, nil
}

// Decode renders a canonical key as a human-readable label for the publisher.
func Decode(key models.CanonicalKey) string {
	bt, ok := enums.Lookup(key.BetTypeID)
	if !ok {
		return fmt.Sprintf("unknown(%d)", key.BetTypeID)
	}
	switch {
	case key.Selection != "" && key.Margin != 0:
		return fmt.Sprintf("%s %s @ %g", bt.Name, key.Selection, key.Margin)
	case key.Selection != "":
		return fmt.Sprintf("%s %s", bt.Name, key.Selection)
	case key.Margin != 0:
		return fmt.Sprintf("%s @ %g", bt.Name, key.Margin)
	default:
		return bt.Name
	}
}

// CanonicalKeyFromBetType builds a bare key for an arity-2/3 bet type that
// carries no selection and a zero margin, for adapters that don't need a
// vendor lookup table (e.g. a structured adapter's first-class bet type ids).
func CanonicalKeyFromBetType(id enums.BetTypeID) models.CanonicalKey {
	return models.CanonicalKey{BetTypeID: id}
}

// RoundTick rounds v to the nearest multiple of tick.
func RoundTick(v, tick float64) float64 {
	if tick <= 0 {
		return v
	}
	return math.Round(v/tick) * tick
}
