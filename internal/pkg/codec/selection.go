package codec

import (
	"fmt"
	"strconv"
	"strings"
)

// Half prefixes and the halftime/fulltime separator.
const (
	HalfOnePrefix  = "H1:"
	HalfTwoPrefix  = "H2:"
	FullTimePrefix = "FT:"
	comboAnd       = "&"
	comboOr        = "|"
	htftSeparator  = "/"
)

// NormalizeHalfTimeFullTime converts one provider's "-" separated
// halftime/fulltime selection ("1-1") to the canonical "/" form ("1/1").
// Only applies to the three-token
// alphabet {1,X,2}; anything else is returned unchanged so goal-range
// selections ("0-2") are never mistaken for HT/FT pairs.
func NormalizeHalfTimeFullTime(raw string) string {
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 || !isResultToken(parts[0]) || !isResultToken(parts[1]) {
		return raw
	}
	return parts[0] + htftSeparator + parts[1]
}

func isResultToken(s string) bool {
	switch s {
	case "1", "X", "2":
		return true
	default:
		return false
	}
}

// FoldLocalizedComboTokens folds one provider's Roman-numeral half
// suffixes (I, II) and localized team labels (Tim1, Tim2) onto the
// H1:/H2: and H/A/GG/NG vocabulary.
func FoldLocalizedComboTokens(raw string) string {
	s := raw
	s = strings.ReplaceAll(s, "II:", HalfTwoPrefix)
	s = strings.ReplaceAll(s, "I:", HalfOnePrefix)
	s = strings.ReplaceAll(s, "Tim1", "H")
	s = strings.ReplaceAll(s, "Tim2", "A")
	// GG/NG already match the canonical BTTS tokens; left as-is.
	return s
}

// BuildHalfPrefixed builds a half-scoped selection, e.g. half=1, inner="0-1"
// -> "H1:0-1".
func BuildHalfPrefixed(half int, inner string) (string, error) {
	switch half {
	case 1:
		return HalfOnePrefix + inner, nil
	case 2:
		return HalfTwoPrefix + inner, nil
	default:
		return "", fmt.Errorf("codec: invalid half %d", half)
	}
}

// BuildCorrectScore renders a "X:Y" correct-score selection, or "other" when
// either home or away is negative, e.g. the sentinel -1 (the declared catch-all, see
// enums.correctScorePartition).
func BuildCorrectScore(home, away int) string {
	if home < 0 || away < 0 {
		return "other"
	}
	return fmt.Sprintf("%d:%d", home, away)
}

// BuildExactGoals renders a "T"-prefixed exact-goal-count selection.
func BuildExactGoals(n int) string {
	return "T" + strconv.Itoa(n)
}

// ParseCorrectScoreToken parses a vendor's raw "X:Y" score token into the
// canonical correct-score selection, falling back to the declared "other"
// catch-all (enums.correctScorePartition) when the token isn't a clean,
// non-negative pair.
func ParseCorrectScoreToken(token string) string {
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 {
		return "other"
	}
	home, errH := strconv.Atoi(parts[0])
	away, errA := strconv.Atoi(parts[1])
	if errH != nil || errA != nil || home < 0 || away < 0 {
		return "other"
	}
	return BuildCorrectScore(home, away)
}

// RerouteGoalRangeToExactGoals: a goal-range bet type carrying a standalone digit
// selection ("3") names an exact count, not a range, and must be re-routed
// to the exact-goals bet type with a "T" prefix. ok is false when sel is a
// genuine range ("0-2"/"3+") and no rerouting applies.
func RerouteGoalRangeToExactGoals(sel string) (rerouted string, ok bool) {
	if sel == "" {
		return "", false
	}
	if _, err := strconv.Atoi(sel); err != nil {
		return "", false
	}
	return BuildExactGoals(mustAtoi(sel)), true
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// BuildGoalRange renders an "A-B" or "N+" goal-range selection.
func BuildGoalRange(low, high int) string {
	if high < 0 {
		return strconv.Itoa(low) + "+"
	}
	return fmt.Sprintf("%d-%d", low, high)
}

// BuildCombo joins selection fragments with the AND separator, e.g.
// BuildCombo("H1:1+", "FT:2+") -> "H1:1+&FT:2+".
func BuildCombo(parts ...string) string {
	return strings.Join(parts, comboAnd)
}

// BuildAlternatives joins selection fragments with the OR separator, e.g.
// BuildAlternatives("1", "3+") -> "1|3+".
func BuildAlternatives(parts ...string) string {
	return strings.Join(parts, comboOr)
}
