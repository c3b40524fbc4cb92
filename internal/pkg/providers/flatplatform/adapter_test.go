package flatplatform

import (
	"testing"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
)

// TestDecodeFactors_GroupsMultiOutcomeMarket covers the defect this adapter
// used to have: a 1X2 market arrives as three separate factor codes and
// must land in one RawOdds row with p1/p2/p3 all set, not three rows with
// one price each.
func TestDecodeFactors_GroupsMultiOutcomeMarket(t *testing.T) {
	a := &Adapter{providerID: 7}
	rows := a.decodeFactors([]wireFactor{
		{F: "1", V: 2.10},
		{F: "2", V: 3.40},
		{F: "3", V: 3.20},
	}, enums.ScopeMainMatch)

	if len(rows) != 1 {
		t.Fatalf("expected one grouped row, got %d", len(rows))
	}
	row := rows[0]
	if row.CanonicalKey.BetTypeID != enums.BetType1X2 {
		t.Fatalf("expected bet type 1X2, got %v", row.CanonicalKey.BetTypeID)
	}
	if row.P1 == nil || row.P2 == nil || row.P3 == nil {
		t.Fatalf("expected all three outcome prices set, got %+v", row)
	}
	if *row.P1 != 2.10 || *row.P2 != 3.40 || *row.P3 != 3.20 {
		t.Fatalf("unexpected prices: %v %v %v", *row.P1, *row.P2, *row.P3)
	}
}

// TestDecodeFactors_TwoOutcomeMarket covers an arity-2 market (both teams to
// score), which must never populate p3.
func TestDecodeFactors_TwoOutcomeMarket(t *testing.T) {
	a := &Adapter{providerID: 7}
	rows := a.decodeFactors([]wireFactor{
		{F: "923_yes", V: 1.85},
		{F: "923_no", V: 1.95},
	}, enums.ScopeMainMatch)

	if len(rows) != 1 {
		t.Fatalf("expected one grouped row, got %d", len(rows))
	}
	row := rows[0]
	if row.P1 == nil || row.P2 == nil {
		t.Fatalf("expected p1/p2 set, got %+v", row)
	}
	if row.P3 != nil {
		t.Fatalf("expected p3 unset for an arity-2 bet type, got %v", *row.P3)
	}
}

// TestDecodeFactors_StandaloneArityOneRow covers a correct-score factor,
// which carries a complete selection on its own and must not be grouped
// with anything.
func TestDecodeFactors_StandaloneArityOneRow(t *testing.T) {
	a := &Adapter{providerID: 7}
	rows := a.decodeFactors([]wireFactor{
		{F: "925", V: 9.0, Param: "2:1"},
	}, enums.ScopeMainMatch)

	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	row := rows[0]
	if row.CanonicalKey.Selection != "2:1" {
		t.Fatalf("expected correct-score selection 2:1, got %q", row.CanonicalKey.Selection)
	}
	if row.P1 == nil || *row.P1 != 9.0 {
		t.Fatalf("expected p1 = 9.0, got %+v", row.P1)
	}
	if row.P2 != nil || row.P3 != nil {
		t.Fatalf("expected a standalone row to leave p2/p3 unset")
	}
}

// TestDecodeFactors_FoldsLocalizedTokens covers the first-goal factor,
// whose vendor tokens use localized team labels and Roman-numeral half
// suffixes and must come out in the canonical H/A and H1:/H2: vocabulary.
func TestDecodeFactors_FoldsLocalizedTokens(t *testing.T) {
	a := &Adapter{providerID: 7}
	rows := a.decodeFactors([]wireFactor{
		{F: "926", V: 1.70, Param: "Tim1"},
		{F: "926", V: 2.30, Param: "II:Tim2"},
	}, enums.ScopeMainMatch)

	if len(rows) != 2 {
		t.Fatalf("expected two standalone rows, got %d", len(rows))
	}
	if got := rows[0].CanonicalKey.Selection; got != "H" {
		t.Fatalf("expected selection H, got %q", got)
	}
	if got := rows[1].CanonicalKey.Selection; got != "H2:A" {
		t.Fatalf("expected selection H2:A, got %q", got)
	}
}

// An unrecognized factor code is dropped silently rather than producing a
// malformed row.
func TestDecodeFactors_UnmappedCodeDropped(t *testing.T) {
	a := &Adapter{providerID: 7}
	rows := a.decodeFactors([]wireFactor{{F: "999999", V: 1.5}}, enums.ScopeMainMatch)
	if len(rows) != 0 {
		t.Fatalf("expected unmapped factor to be dropped, got %d rows", len(rows))
	}
}
