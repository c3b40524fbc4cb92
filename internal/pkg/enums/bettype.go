package enums

// Arity fixes how many price fields a BetType's rows carry.
type Arity int

const (
	ArityOne   Arity = 1 // selection-bearing: only p1 meaningful
	ArityTwo   Arity = 2 // two-outcome: p1, p2
	ArityThree Arity = 3 // three-outcome: p1, p2, p3
)

// EventScope distinguishes the main match result from the statistical
// sub-events the same providers also price.
type EventScope string

const (
	ScopeMainMatch     EventScope = "main_match"
	ScopeCorners       EventScope = "corners"
	ScopeYellowCards   EventScope = "yellow_cards"
	ScopeFouls         EventScope = "fouls"
	ScopeShotsOnTarget EventScope = "shots_on_target"
	ScopeOffsides      EventScope = "offsides"
	ScopeThrowIns      EventScope = "throw_ins"
)

// BetTypeID is the small integer id of a bet type.
type BetTypeID int

// Partition names a closed, complete set of arity-1 selections that together
// cover every possible outcome of an event; the arbitrage engine only
// combines arity-1 rows against a declared partition. nil/empty means
// "never combine" (safe default).
type Partition struct {
	Name       string
	Selections []string
}

// BetType is one entry in the closed vocabulary the CMC projects every
// provider market into.
type BetType struct {
	ID         BetTypeID
	Name       string
	Arity      Arity
	Scope      EventScope
	Partitions []Partition // only meaningful for Arity == ArityOne
}

const (
	BetType1X2 BetTypeID = iota + 1
	BetType1X2FirstHalf
	BetType1X2SecondHalf
	BetTypeDoubleChance
	BetTypeEuropeanHandicap
	BetTypeTotalOverUnder
	BetTypeAsianHandicap
	BetTypeBothTeamsToScore
	BetTypeOddEven
	BetTypeCorrectScore
	BetTypeHalftimeFulltime
	BetTypeExactGoals
	BetTypeGoalRange
	BetTypeFirstGoal
	BetTypeTotalCornersOverUnder
	BetTypeExactCorners
	BetTypeCornersHandicap
	BetTypeTotalCardsOverUnder
	BetTypeExactCards
	BetTypeTotalFoulsOverUnder
	BetTypeExactFouls
	BetTypeTotalShotsOnTargetOverUnder
	BetTypeExactShotsOnTarget
	BetTypeTotalOffsidesOverUnder
	BetTypeExactOffsides
	BetTypeTotalThrowInsOverUnder
	BetTypeExactThrowIns
	BetTypeTotalCorners1stHalf
	BetTypeTotalCards1stHalf
	BetTypeMatchWinner
)

// correctScorePartition declares the closed set of correct-score selections
// plus an explicit "any other" catch-all. The catch-all is declared here,
// not inferred from row count by the engine.
var correctScorePartition = Partition{
	Name: "correct_score_full",
	Selections: []string{
		"0:0", "1:0", "0:1", "1:1", "2:0", "0:2", "2:1", "1:2", "2:2",
		"3:0", "0:3", "3:1", "1:3", "3:2", "2:3", "3:3", "other",
	},
}

// htftPartition declares the nine halftime/fulltime selections.
var htftPartition = Partition{
	Name:       "halftime_fulltime",
	Selections: []string{"1/1", "1/X", "1/2", "X/1", "X/X", "X/2", "2/1", "2/X", "2/2"},
}

var registry = map[BetTypeID]BetType{
	BetType1X2:             {BetType1X2, "1X2", ArityThree, ScopeMainMatch, nil},
	BetType1X2FirstHalf:    {BetType1X2FirstHalf, "1X2 (1st half)", ArityThree, ScopeMainMatch, nil},
	BetType1X2SecondHalf:   {BetType1X2SecondHalf, "1X2 (2nd half)", ArityThree, ScopeMainMatch, nil},
	BetTypeDoubleChance:    {BetTypeDoubleChance, "Double chance", ArityThree, ScopeMainMatch, nil},
	BetTypeEuropeanHandicap: {BetTypeEuropeanHandicap, "European handicap", ArityThree, ScopeMainMatch, nil},
	BetTypeTotalOverUnder:  {BetTypeTotalOverUnder, "Total over/under", ArityTwo, ScopeMainMatch, nil},
	BetTypeAsianHandicap:   {BetTypeAsianHandicap, "Asian handicap", ArityTwo, ScopeMainMatch, nil},
	BetTypeBothTeamsToScore: {BetTypeBothTeamsToScore, "Both teams to score", ArityTwo, ScopeMainMatch, nil},
	BetTypeOddEven:         {BetTypeOddEven, "Odd/even total goals", ArityTwo, ScopeMainMatch, nil},
	BetTypeCorrectScore:    {BetTypeCorrectScore, "Correct score", ArityOne, ScopeMainMatch, []Partition{correctScorePartition}},
	BetTypeHalftimeFulltime: {BetTypeHalftimeFulltime, "Halftime/fulltime", ArityOne, ScopeMainMatch, []Partition{htftPartition}},
	BetTypeExactGoals:      {BetTypeExactGoals, "Exact goals", ArityOne, ScopeMainMatch, nil},
	BetTypeGoalRange:       {BetTypeGoalRange, "Goal range", ArityOne, ScopeMainMatch, nil},
	BetTypeFirstGoal:       {BetTypeFirstGoal, "First goal", ArityOne, ScopeMainMatch, []Partition{{"first_goal", []string{"H", "A", "X"}}}},

	BetTypeTotalCornersOverUnder: {BetTypeTotalCornersOverUnder, "Total corners over/under", ArityTwo, ScopeCorners, nil},
	BetTypeExactCorners:         {BetTypeExactCorners, "Exact corners", ArityOne, ScopeCorners, nil},
	BetTypeCornersHandicap:      {BetTypeCornersHandicap, "Corners handicap", ArityTwo, ScopeCorners, nil},

	BetTypeTotalCardsOverUnder: {BetTypeTotalCardsOverUnder, "Total cards over/under", ArityTwo, ScopeYellowCards, nil},
	BetTypeExactCards:          {BetTypeExactCards, "Exact cards", ArityOne, ScopeYellowCards, nil},

	BetTypeTotalFoulsOverUnder: {BetTypeTotalFoulsOverUnder, "Total fouls over/under", ArityTwo, ScopeFouls, nil},
	BetTypeExactFouls:          {BetTypeExactFouls, "Exact fouls", ArityOne, ScopeFouls, nil},

	BetTypeTotalShotsOnTargetOverUnder: {BetTypeTotalShotsOnTargetOverUnder, "Total shots on target over/under", ArityTwo, ScopeShotsOnTarget, nil},
	BetTypeExactShotsOnTarget:          {BetTypeExactShotsOnTarget, "Exact shots on target", ArityOne, ScopeShotsOnTarget, nil},

	BetTypeTotalOffsidesOverUnder: {BetTypeTotalOffsidesOverUnder, "Total offsides over/under", ArityTwo, ScopeOffsides, nil},
	BetTypeExactOffsides:          {BetTypeExactOffsides, "Exact offsides", ArityOne, ScopeOffsides, nil},

	BetTypeTotalThrowInsOverUnder: {BetTypeTotalThrowInsOverUnder, "Total throw-ins over/under", ArityTwo, ScopeThrowIns, nil},
	BetTypeExactThrowIns:          {BetTypeExactThrowIns, "Exact throw-ins", ArityOne, ScopeThrowIns, nil},

	BetTypeTotalCorners1stHalf: {BetTypeTotalCorners1stHalf, "Total corners over/under (1st half)", ArityTwo, ScopeCorners, nil},
	BetTypeTotalCards1stHalf:   {BetTypeTotalCards1stHalf, "Total cards over/under (1st half)", ArityTwo, ScopeYellowCards, nil},

	// Two-way match result, for sports with no draw outcome (tennis, and any
	// other moneyline-only sport) — distinct from BetType1X2's fixed arity
	// three, so a provider offering no draw price never produces a
	// partially-filled 1X2 row.
	BetTypeMatchWinner: {BetTypeMatchWinner, "Match winner", ArityTwo, ScopeMainMatch, nil},
}

// Lookup returns the BetType descriptor for an id.
func Lookup(id BetTypeID) (BetType, bool) {
	bt, ok := registry[id]
	return bt, ok
}

// MustLookup panics on an unknown id; only ever called with compile-time constants.
func MustLookup(id BetTypeID) BetType {
	bt, ok := registry[id]
	if !ok {
		panic("enums: unknown bet type id")
	}
	return bt
}

// AllBetTypes returns every registered bet type, for startup validation and docs.
func AllBetTypes() []BetType {
	out := make([]BetType, 0, len(registry))
	for _, bt := range registry {
		out = append(out, bt)
	}
	return out
}
