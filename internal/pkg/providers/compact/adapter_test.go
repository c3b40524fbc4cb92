package compact

import (
	"testing"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
)

// TestDecodeEvents_GroupsMoneylineIntoOneRow covers the G=1 moneyline: its
// three T events must collapse into a single BetType1X2 row with the prices
// in canonical slot order.
func TestDecodeEvents_GroupsMoneylineIntoOneRow(t *testing.T) {
	a := &Adapter{providerID: 4}
	rows := a.decodeEvents([]wireEvent{
		{G: 1, T: 1, C: 2.10},
		{G: 1, T: 2, C: 3.40},
		{G: 1, T: 3, C: 3.90},
	})
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	row := rows[0]
	if row.CanonicalKey.BetTypeID != enums.BetType1X2 {
		t.Fatalf("expected BetType1X2, got %v", row.CanonicalKey.BetTypeID)
	}
	if row.P1 == nil || row.P2 == nil || row.P3 == nil {
		t.Fatalf("expected all three prices set, got %+v", row)
	}
	if *row.P1 != 2.10 || *row.P2 != 3.40 || *row.P3 != 3.90 {
		t.Fatalf("prices out of slot order: %v %v %v", *row.P1, *row.P2, *row.P3)
	}
}

// TestDecodeEvents_TotalCarriesParameter covers the G=17 total: both T
// events share one row keyed on the rounded line parameter, p3 stays unset.
func TestDecodeEvents_TotalCarriesParameter(t *testing.T) {
	a := &Adapter{providerID: 4}
	rows := a.decodeEvents([]wireEvent{
		{G: 17, T: 1, P: 2.5, C: 1.85},
		{G: 17, T: 2, P: 2.5, C: 1.95},
	})
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	row := rows[0]
	if row.CanonicalKey.BetTypeID != enums.BetTypeTotalOverUnder {
		t.Fatalf("expected BetTypeTotalOverUnder, got %v", row.CanonicalKey.BetTypeID)
	}
	if row.CanonicalKey.Margin != 2.5 {
		t.Fatalf("expected margin 2.5, got %v", row.CanonicalKey.Margin)
	}
	if row.P1 == nil || row.P2 == nil {
		t.Fatalf("expected over/under prices set, got %+v", row)
	}
	if row.P3 != nil {
		t.Fatalf("expected p3 unset for a two-outcome group, got %v", *row.P3)
	}
}

// TestDecodeEvents_SkipsUnmappedGroups: groups outside the decode table are
// dropped without disturbing the rows around them.
func TestDecodeEvents_SkipsUnmappedGroups(t *testing.T) {
	a := &Adapter{providerID: 4}
	rows := a.decodeEvents([]wireEvent{
		{G: 1, T: 1, C: 1.50},
		{G: 99, T: 1, C: 1.01},
		{G: 1, T: 3, C: 6.20},
	})
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	row := rows[0]
	if row.P1 == nil || *row.P1 != 1.50 {
		t.Fatalf("p1 = %v, want 1.50", row.P1)
	}
	if row.P3 == nil || *row.P3 != 6.20 {
		t.Fatalf("p3 = %v, want 6.20", row.P3)
	}
	if row.P2 != nil {
		t.Fatalf("expected the draw slot empty, got %v", *row.P2)
	}
}
