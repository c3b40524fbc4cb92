package browser

import "testing"

// TestDecodeOutcomes_MergesSlots covers the same defect class fixed in
// flatplatform: the overview page reports one price per outcome slot, and
// all three must land in a single RawOdds row.
func TestDecodeOutcomes_MergesSlots(t *testing.T) {
	row, ok := decodeOutcomes([]wireOutcome{
		{Slot: 1, Price: 2.05},
		{Slot: 2, Price: 3.30},
		{Slot: 3, Price: 3.60},
	})
	if !ok {
		t.Fatalf("expected a complete row")
	}
	if row.P1 == nil || row.P2 == nil || row.P3 == nil {
		t.Fatalf("expected all three outcome prices set, got %+v", row)
	}
	if *row.P1 != 2.05 || *row.P2 != 3.30 || *row.P3 != 3.60 {
		t.Fatalf("unexpected prices: %v %v %v", *row.P1, *row.P2, *row.P3)
	}
}

// TestDecodeOutcomes_IncompleteDropped: a match missing one outcome slot
// must not produce a partially-filled row.
func TestDecodeOutcomes_IncompleteDropped(t *testing.T) {
	if _, ok := decodeOutcomes([]wireOutcome{
		{Slot: 1, Price: 2.05},
		{Slot: 2, Price: 3.30},
	}); ok {
		t.Fatalf("expected an incomplete outcome set to be rejected")
	}
}
