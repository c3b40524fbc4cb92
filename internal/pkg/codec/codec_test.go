package codec

import (
	"testing"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

// Two providers offering the same real-world wager must encode identically.
func TestEncode_CrossProviderAgreement(t *testing.T) {
	tableA := map[string]Mapping{
		"1X2_FT": {BetTypeID: enums.BetType1X2},
	}
	tableB := map[string]Mapping{
		"match_result": {BetTypeID: enums.BetType1X2},
	}

	keyA, err := Encode(nil, 1, "1X2_FT", tableA, Params{})
	if err != nil {
		t.Fatalf("provider A encode: %v", err)
	}
	keyB, err := Encode(nil, 2, "match_result", tableB, Params{})
	if err != nil {
		t.Fatalf("provider B encode: %v", err)
	}
	if keyA != keyB {
		t.Fatalf("expected identical canonical keys, got %v vs %v", keyA, keyB)
	}
}

// Provider X reports -1.0 in its own (inverted) convention,
// provider Y reports +1.0 in the canonical convention; both must encode to
// margin = +1.0.
func TestEncode_HandicapSignInversion(t *testing.T) {
	tableX := map[string]Mapping{ // negated-convention family
		"handicap": {BetTypeID: enums.BetTypeAsianHandicap, InvertSign: true},
	}
	tableY := map[string]Mapping{ // canonical convention
		"handicap": {BetTypeID: enums.BetTypeAsianHandicap},
	}

	keyX, err := Encode(nil, 1, "handicap", tableX, Params{Line: -1.0})
	if err != nil {
		t.Fatalf("provider X encode: %v", err)
	}
	keyY, err := Encode(nil, 2, "handicap", tableY, Params{Line: 1.0})
	if err != nil {
		t.Fatalf("provider Y encode: %v", err)
	}
	if keyX.Margin != 1.0 || keyY.Margin != 1.0 {
		t.Fatalf("expected both margins = +1.0, got %v and %v", keyX.Margin, keyY.Margin)
	}
}

// Unknown vendor codes are not an error, they're ErrUnmapped.
func TestEncode_Unmapped(t *testing.T) {
	_, err := Encode(nil, 1, "nonsense_code", map[string]Mapping{}, Params{})
	if err != ErrUnmapped {
		t.Fatalf("expected ErrUnmapped, got %v", err)
	}
}

// One provider emits "1-1" with a dash separator, must normalize to "1/1".
func TestNormalizeHalfTimeFullTime(t *testing.T) {
	cases := map[string]string{
		"1-1": "1/1",
		"1-X": "1/X",
		"2-2": "2/2",
		"0-2": "0-2", // goal range, must not be mistaken for HT/FT
		"3+":  "3+",
	}
	for in, want := range cases {
		if got := NormalizeHalfTimeFullTime(in); got != want {
			t.Errorf("NormalizeHalfTimeFullTime(%q) = %q, want %q", in, got, want)
		}
	}
}

// One provider emits combo selections with Roman-numeral half suffixes and
// localized team labels; these must fold onto the canonical H1:/H2: and
// H/A vocabulary, leaving GG/NG and already-canonical tokens untouched.
func TestFoldLocalizedComboTokens(t *testing.T) {
	cases := map[string]string{
		"Tim1":        "H",
		"Tim2":        "A",
		"I:Tim1":      "H1:H",
		"II:Tim2":     "H2:A",
		"I:GG&II:NG":  "H1:GG&H2:NG",
		"I:1+&II:2+":  "H1:1+&H2:2+",
		"GG":          "GG",
		"H1:GG&H2:NG": "H1:GG&H2:NG", // already canonical, must be a fixed point
	}
	for in, want := range cases {
		if got := FoldLocalizedComboTokens(in); got != want {
			t.Errorf("FoldLocalizedComboTokens(%q) = %q, want %q", in, got, want)
		}
	}
}

// Every folded selection must also satisfy the canonical grammar when
// encoded through a mapping table, so localized tokens can never leak past
// ValidateKey.
func TestEncode_LocalizedComboFolding(t *testing.T) {
	table := map[string]Mapping{
		"first_goal": {
			BetTypeID: enums.BetTypeFirstGoal,
			SelectionFn: func(p Params) (string, error) {
				return FoldLocalizedComboTokens(p.Token), nil
			},
		},
	}
	for _, token := range []string{"Tim1", "Tim2", "I:Tim1", "II:Tim2"} {
		key, err := Encode(nil, 1, "first_goal", table, Params{Token: token})
		if err != nil {
			t.Fatalf("encode %q: %v", token, err)
		}
		if err := ValidateKey(key); err != nil {
			t.Errorf("folded selection %q fails validation: %v", key.Selection, err)
		}
	}
}

// A goal-range bet type carrying a standalone digit selection must reroute
// to exact_goals with a "T" prefix.
func TestRerouteGoalRangeToExactGoals(t *testing.T) {
	rerouted, ok := RerouteGoalRangeToExactGoals("3")
	if !ok || rerouted != "T3" {
		t.Fatalf("expected reroute to T3, got %q, ok=%v", rerouted, ok)
	}
	if _, ok := RerouteGoalRangeToExactGoals("0-2"); ok {
		t.Fatalf("expected no reroute for a genuine range")
	}
	if _, ok := RerouteGoalRangeToExactGoals("3+"); ok {
		t.Fatalf("expected no reroute for an open-ended range")
	}
}

func TestValidateKey(t *testing.T) {
	cases := []struct {
		name string
		key  models.CanonicalKey
		ok   bool
	}{
		{"1x2 no selection", models.CanonicalKey{BetTypeID: enums.BetType1X2}, true},
		{"1x2 with selection rejected", models.CanonicalKey{BetTypeID: enums.BetType1X2, Selection: "1"}, false},
		{"correct score", models.CanonicalKey{BetTypeID: enums.BetTypeCorrectScore, Selection: "2:1"}, true},
		{"correct score other", models.CanonicalKey{BetTypeID: enums.BetTypeCorrectScore, Selection: "other"}, true},
		{"correct score missing selection", models.CanonicalKey{BetTypeID: enums.BetTypeCorrectScore}, false},
		{"htft", models.CanonicalKey{BetTypeID: enums.BetTypeHalftimeFulltime, Selection: "1/X"}, true},
		{"htft bad separator", models.CanonicalKey{BetTypeID: enums.BetTypeHalftimeFulltime, Selection: "1-X"}, false},
		{"exact goals", models.CanonicalKey{BetTypeID: enums.BetTypeExactGoals, Selection: "T3"}, true},
		{"goal range", models.CanonicalKey{BetTypeID: enums.BetTypeGoalRange, Selection: "0-2"}, true},
		{"open goal range", models.CanonicalKey{BetTypeID: enums.BetTypeGoalRange, Selection: "3+"}, true},
		{"combo", models.CanonicalKey{BetTypeID: enums.BetTypeFirstGoal, Selection: "H"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateKey(tc.key)
			if (err == nil) != tc.ok {
				t.Errorf("ValidateKey(%+v) error = %v, want ok=%v", tc.key, err, tc.ok)
			}
		})
	}
}

func TestValidateRow(t *testing.T) {
	p := func(v float64) *float64 { return &v }

	if err := ValidateRow(enums.BetType1X2, p(2.1), p(3.2), p(4.0)); err != nil {
		t.Errorf("arity-3 full row should be valid: %v", err)
	}
	if err := ValidateRow(enums.BetType1X2, p(2.1), p(3.2), nil); err == nil {
		t.Errorf("arity-3 row missing p3 should be rejected")
	}
	if err := ValidateRow(enums.BetTypeTotalOverUnder, p(1.9), p(1.95), nil); err != nil {
		t.Errorf("arity-2 row should be valid: %v", err)
	}
	if err := ValidateRow(enums.BetTypeTotalOverUnder, p(1.9), p(1.95), p(1.5)); err == nil {
		t.Errorf("arity-2 row with p3 set should be rejected")
	}
	if err := ValidateRow(enums.BetTypeCorrectScore, p(5.5), nil, nil); err != nil {
		t.Errorf("arity-1 row should be valid: %v", err)
	}
	if err := ValidateRow(enums.BetTypeMatchWinner, p(1.8), p(2.0), nil); err != nil {
		t.Errorf("match-winner row should be valid: %v", err)
	}
	if err := ValidateRow(enums.BetTypeMatchWinner, p(1.8), p(2.0), p(3.0)); err == nil {
		t.Errorf("match-winner row with p3 set should be rejected")
	}
}

func TestDecode(t *testing.T) {
	got := Decode(models.CanonicalKey{BetTypeID: enums.BetTypeAsianHandicap, Margin: 1.5})
	want := "Asian handicap @ 1.5"
	if got != want {
		t.Errorf("Decode() = %q, want %q", got, want)
	}
}
