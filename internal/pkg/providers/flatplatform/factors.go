package flatplatform

import (
	"github.com/kestrelodds/arbiter/internal/pkg/codec"
	"github.com/kestrelodds/arbiter/internal/pkg/enums"
)

// factorSpec is one vendor factor code's translation rule plus, for
// multi-outcome bet types, which price slot it fills. A single wire factor
// carries exactly one outcome's price, so a 1X2 market arrives as three
// separate factor codes (one per outcome) that share the same canonical
// (bet_type_id, margin) and must be reassembled into one row.
// Outcome is 0 for already-complete arity-1 rows (correct score, HT/FT,
// goal range/exact goals), which carry their own selection and need no
// reassembly.
type factorSpec struct {
	codec.Mapping
	Outcome int
}

// factorTable maps this family's short numeric factor codes to canonical
// bet types and outcome slots.
var factorTable = map[string]factorSpec{
	// 1X2: three factor codes sharing bet_type_id=1X2, margin=0.
	"1": {Mapping: codec.Mapping{BetTypeID: enums.BetType1X2}, Outcome: 1},
	"2": {Mapping: codec.Mapping{BetTypeID: enums.BetType1X2}, Outcome: 2},
	"3": {Mapping: codec.Mapping{BetTypeID: enums.BetType1X2}, Outcome: 3},

	// Double chance: 1X, 12, X2.
	"911_1X": {Mapping: codec.Mapping{BetTypeID: enums.BetTypeDoubleChance}, Outcome: 1},
	"911_12": {Mapping: codec.Mapping{BetTypeID: enums.BetTypeDoubleChance}, Outcome: 2},
	"911_X2": {Mapping: codec.Mapping{BetTypeID: enums.BetTypeDoubleChance}, Outcome: 3},

	// Total over/under: margin comes from the factor's own param (Pt), shared
	// by both sides of the same line.
	"912_over": {
		Mapping: codec.Mapping{
			BetTypeID: enums.BetTypeTotalOverUnder,
			MarginFn:  func(p codec.Params) float64 { return p.Line },
		},
		Outcome: 1,
	},
	"912_under": {
		Mapping: codec.Mapping{
			BetTypeID: enums.BetTypeTotalOverUnder,
			MarginFn:  func(p codec.Params) float64 { return p.Line },
		},
		Outcome: 2,
	},

	// Asian handicap: negated-convention family. Both
	// outcome factors of one market instance carry the same vendor-side
	// home-relative line in their param, so both invert identically and
	// land in the same (bet_type_id, margin) group.
	"913_home": {
		Mapping: codec.Mapping{
			BetTypeID:  enums.BetTypeAsianHandicap,
			InvertSign: true,
			MarginFn:   func(p codec.Params) float64 { return p.Line },
		},
		Outcome: 1,
	},
	"913_away": {
		Mapping: codec.Mapping{
			BetTypeID:  enums.BetTypeAsianHandicap,
			InvertSign: true,
			MarginFn:   func(p codec.Params) float64 { return p.Line },
		},
		Outcome: 2,
	},

	"921_1": {Mapping: codec.Mapping{BetTypeID: enums.BetType1X2FirstHalf}, Outcome: 1},
	"921_2": {Mapping: codec.Mapping{BetTypeID: enums.BetType1X2FirstHalf}, Outcome: 2},
	"921_3": {Mapping: codec.Mapping{BetTypeID: enums.BetType1X2FirstHalf}, Outcome: 3},

	"922_1": {Mapping: codec.Mapping{BetTypeID: enums.BetType1X2SecondHalf}, Outcome: 1},
	"922_2": {Mapping: codec.Mapping{BetTypeID: enums.BetType1X2SecondHalf}, Outcome: 2},
	"922_3": {Mapping: codec.Mapping{BetTypeID: enums.BetType1X2SecondHalf}, Outcome: 3},

	"923_yes": {Mapping: codec.Mapping{BetTypeID: enums.BetTypeBothTeamsToScore}, Outcome: 1},
	"923_no":  {Mapping: codec.Mapping{BetTypeID: enums.BetTypeBothTeamsToScore}, Outcome: 2},

	"924_odd":  {Mapping: codec.Mapping{BetTypeID: enums.BetTypeOddEven}, Outcome: 1},
	"924_even": {Mapping: codec.Mapping{BetTypeID: enums.BetTypeOddEven}, Outcome: 2},

	"925": {
		Mapping: codec.Mapping{
			BetTypeID: enums.BetTypeCorrectScore,
			SelectionFn: func(p codec.Params) (string, error) {
				return codec.ParseCorrectScoreToken(p.Token), nil
			},
		},
	},
	"926": {
		// first team to score; the vendor labels sides Tim1/Tim2 and scopes
		// per-half variants with Roman-numeral suffixes (I:, II:), so the
		// raw token is folded onto the H/A and H1:/H2: vocabulary.
		Mapping: codec.Mapping{
			BetTypeID: enums.BetTypeFirstGoal,
			SelectionFn: func(p codec.Params) (string, error) {
				return codec.FoldLocalizedComboTokens(p.Token), nil
			},
		},
	},
	"927": {
		Mapping: codec.Mapping{
			BetTypeID: enums.BetTypeHalftimeFulltime,
			SelectionFn: func(p codec.Params) (string, error) {
				return codec.NormalizeHalfTimeFullTime(p.Token), nil
			},
		},
	},
	"928": {
		// this family reports exact-goal-count markets as "goal range" with
		// a standalone digit selection; reroute here.
		Mapping: codec.Mapping{
			BetTypeID: enums.BetTypeGoalRange,
			SelectionFn: func(p codec.Params) (string, error) {
				return p.Token, nil
			},
			RerouteFn: func(selection string) (enums.BetTypeID, string, bool) {
				if rerouted, ok := codec.RerouteGoalRangeToExactGoals(selection); ok {
					return enums.BetTypeExactGoals, rerouted, true
				}
				return 0, "", false
			},
		},
	},

	"930_over":  {Mapping: codec.Mapping{BetTypeID: enums.BetTypeTotalCornersOverUnder, MarginFn: func(p codec.Params) float64 { return p.Line }}, Outcome: 1},
	"930_under": {Mapping: codec.Mapping{BetTypeID: enums.BetTypeTotalCornersOverUnder, MarginFn: func(p codec.Params) float64 { return p.Line }}, Outcome: 2},

	"931_over":  {Mapping: codec.Mapping{BetTypeID: enums.BetTypeTotalCardsOverUnder, MarginFn: func(p codec.Params) float64 { return p.Line }}, Outcome: 1},
	"931_under": {Mapping: codec.Mapping{BetTypeID: enums.BetTypeTotalCardsOverUnder, MarginFn: func(p codec.Params) float64 { return p.Line }}, Outcome: 2},
}
