package telemetry

import "testing"

func TestRecorder_Snapshot(t *testing.T) {
	r := NewRecorder()
	r.RecordScrape("acme", 0, nil)
	r.RecordScrape("acme", 0, errFake{})
	r.RecordPersisted("acme", 2, 5)
	r.RecordUnmappedMarket("acme")
	r.RecordUnmappedMarket("acme")

	snap := r.Snapshot()
	got, ok := snap["acme"]
	if !ok {
		t.Fatalf("expected a snapshot entry for acme")
	}
	if got.Requests != 2 || got.Errors != 1 {
		t.Errorf("requests/errors = %d/%d, want 2/1", got.Requests, got.Errors)
	}
	if got.MatchesPersisted != 2 || got.PricesPersisted != 5 {
		t.Errorf("persisted = %d/%d, want 2/5", got.MatchesPersisted, got.PricesPersisted)
	}
	if got.UnmappedMarkets != 2 {
		t.Errorf("unmapped markets = %d, want 2", got.UnmappedMarkets)
	}
}

type errFake struct{}

func (errFake) Error() string { return "fake" }
