package flatplatform

import "github.com/kestrelodds/arbiter/internal/pkg/enums"

// scopeMarket is the flat-platform family's per-sport query-param value
// selecting which market scope the single list endpoint returns. Lives
// here rather than the generic enums package because it's wire detail
// specific to this adapter shape, not a cross-sport vocabulary.
var scopeMarketBySport = map[enums.SportID]string{
	enums.Football:    "1600",
	enums.Basketball:  "1601",
	enums.Tennis:       "1603",
	enums.Hockey:       "1604",
	enums.TableTennis: "1607",
}

func scopeMarket(sport enums.SportID) (string, bool) {
	v, ok := scopeMarketBySport[sport]
	return v, ok
}
