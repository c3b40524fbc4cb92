package publisher

import (
	"time"

	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

const dialTimeout = 5 * time.Second

// wireLeg is one entry of the wire payload's legs array.
type wireLeg struct {
	Provider int     `json:"provider"`
	Outcome  int     `json:"outcome"`
	Price    float64 `json:"price"`
}

// wirePayload is the event's outbound JSON shape: kind, match, bet type,
// margin, optional selection, legs, stakes, and profit percentage.
type wirePayload struct {
	Kind      string    `json:"kind"`
	Match     string    `json:"match"`
	BetType   int       `json:"bet_type"`
	Margin    float64   `json:"margin"`
	Selection string    `json:"selection,omitempty"`
	Legs      []wireLeg `json:"legs,omitempty"`
	Stakes    []string  `json:"stakes,omitempty"`
	ProfitPct string    `json:"profit_pct,omitempty"`
}

func wireEvent(e models.Event) wirePayload {
	legs := make([]wireLeg, len(e.Legs))
	for i, l := range e.Legs {
		legs[i] = wireLeg{Provider: l.ProviderID, Outcome: l.OutcomeIndex, Price: l.Price}
	}
	stakes := make([]string, len(e.Stakes))
	for i, s := range e.Stakes {
		stakes[i] = s.String()
	}
	p := wirePayload{
		Kind:      string(e.Kind),
		Match:     e.MatchID,
		BetType:   int(e.BetTypeID),
		Margin:    e.Margin,
		Selection: e.Selection,
		Legs:      legs,
		Stakes:    stakes,
	}
	if e.ProfitPercent != nil {
		p.ProfitPct = e.ProfitPercent.String()
	}
	return p
}
