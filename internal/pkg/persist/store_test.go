package persist

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	// One connection, or each pooled conn would see its own empty :memory: db.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := New(db)
	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return s, db
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
		t.Fatalf("counting %s: %v", table, err)
	}
	return n
}

func fp(v float64) *float64 { return &v }

func testMatch(id, t1, t2 string, start time.Time) models.Match {
	now := start.Add(-24 * time.Hour)
	return models.Match{
		ID:          id,
		Team1Raw:    t1,
		Team2Raw:    t2,
		Team1Norm:   t1,
		Team2Norm:   t2,
		SportID:     enums.Football,
		StartTime:   start,
		ExternalIDs: map[int]string{1: "ext-" + id},
		Status:      models.MatchUpcoming,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func oddsRow(matchID string, providerID int, updated time.Time) models.CurrentOdds {
	return models.CurrentOdds{
		MatchID:      matchID,
		ProviderID:   providerID,
		CanonicalKey: models.CanonicalKey{BetTypeID: enums.BetType1X2},
		P1:           fp(2.10),
		P2:           fp(3.50),
		P3:           fp(4.20),
		UpdatedAt:    updated,
	}
}

// Writing the identical batch twice must leave current_odds untouched and
// append a second observation per row to odds_history.
func TestWriteOdds_SecondWriteReplacesInPlace(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	batch := []models.CurrentOdds{
		oddsRow("m1", 1, now),
		oddsRow("m1", 2, now),
	}
	if err := s.WriteOdds(ctx, batch); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := s.WriteOdds(ctx, batch); err != nil {
		t.Fatalf("second write: %v", err)
	}

	if got := countRows(t, db, "current_odds"); got != 2 {
		t.Errorf("current_odds rows = %d, want 2", got)
	}
	if got := countRows(t, db, "odds_history"); got != 4 {
		t.Errorf("odds_history rows = %d, want 4", got)
	}
}

// Two rows sharing the five-tuple key inside one batch collapse to one
// upsert, with the later observation winning.
func TestWriteOdds_DedupesBatchByKey(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := oddsRow("m1", 1, now)
	second := oddsRow("m1", 1, now.Add(time.Second))
	second.P1 = fp(2.25)

	if err := s.WriteOdds(ctx, []models.CurrentOdds{first, second}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := countRows(t, db, "current_odds"); got != 1 {
		t.Fatalf("current_odds rows = %d, want 1", got)
	}
	if got := countRows(t, db, "odds_history"); got != 1 {
		t.Errorf("odds_history rows = %d, want 1", got)
	}

	var p1 float64
	if err := db.QueryRow("SELECT p1 FROM current_odds").Scan(&p1); err != nil {
		t.Fatalf("reading p1: %v", err)
	}
	if p1 != 2.25 {
		t.Errorf("p1 = %v, want the later observation 2.25", p1)
	}
}

// A second provider reporting the same normalized team pair, sport, and
// start time must merge into the existing row instead of inserting a new one.
func TestUpsertMatches_MergesOnNormalizedKeyConflict(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	m := testMatch("m1", "partizan", "crvena zvezda", start)
	if err := s.UpsertMatches(ctx, []models.Match{m}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	merged := testMatch("m2", "partizan", "crvena zvezda", start)
	merged.ExternalIDs = map[int]string{1: "ext-m1", 2: "ext-other"}
	if err := s.UpsertMatches(ctx, []models.Match{merged}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if got := countRows(t, db, "match"); got != 1 {
		t.Fatalf("match rows = %d, want 1", got)
	}

	got, err := s.CandidatesInWindow(ctx, enums.Football, start.Add(-time.Hour), start.Add(time.Hour))
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("candidates = %d, want 1", len(got))
	}
	if got[0].ID != "m1" {
		t.Errorf("match id = %q, want the original m1", got[0].ID)
	}
	if got[0].ExternalIDs[2] != "ext-other" {
		t.Errorf("external ids not merged: %v", got[0].ExternalIDs)
	}
}

func TestWriteOddsDetectMovement(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := s.WriteOddsDetectMovement(ctx, []models.CurrentOdds{oddsRow("m1", 1, now)}, 5); err != nil {
		t.Fatalf("initial write: %v", err)
	}

	moved := oddsRow("m1", 1, now.Add(2*time.Second))
	moved.P1 = fp(2.40) // +14.3% on 2.10
	movements, err := s.WriteOddsDetectMovement(ctx, []models.CurrentOdds{moved}, 5)
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("movements = %d, want 1", len(movements))
	}
	if movements[0].OldPrice != 2.10 || movements[0].NewPrice != 2.40 {
		t.Errorf("movement prices = (%v, %v), want (2.10, 2.40)", movements[0].OldPrice, movements[0].NewPrice)
	}

	// A move below the threshold stays silent.
	small := oddsRow("m1", 1, now.Add(4*time.Second))
	small.P1 = fp(2.42)
	movements, err = s.WriteOddsDetectMovement(ctx, []models.CurrentOdds{small}, 5)
	if err != nil {
		t.Fatalf("third write: %v", err)
	}
	if len(movements) != 0 {
		t.Errorf("movements = %d, want 0 below threshold", len(movements))
	}
}

func TestDeleteMatchesOlderThan_CascadesCurrentOdds(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	oldStart := time.Date(2026, 1, 1, 18, 0, 0, 0, time.UTC)
	newStart := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	if err := s.UpsertMatches(ctx, []models.Match{
		testMatch("old", "a", "b", oldStart),
		testMatch("new", "c", "d", newStart),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.WriteOdds(ctx, []models.CurrentOdds{
		oddsRow("old", 1, oldStart),
		oddsRow("new", 1, newStart),
	}); err != nil {
		t.Fatalf("write odds: %v", err)
	}

	deleted, err := s.DeleteMatchesOlderThan(ctx, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if got := countRows(t, db, "match"); got != 1 {
		t.Errorf("match rows = %d, want 1", got)
	}
	if got := countRows(t, db, "current_odds"); got != 1 {
		t.Errorf("current_odds rows = %d, want 1 after cascade", got)
	}
}

func TestMarkFinishedMatches(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	if err := s.UpsertMatches(ctx, []models.Match{
		testMatch("done", "a", "b", now.Add(-5*time.Hour)),
		testMatch("soon", "c", "d", now.Add(time.Hour)),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	n, err := s.MarkFinishedMatches(ctx, now, 4*time.Hour)
	if err != nil {
		t.Fatalf("mark finished: %v", err)
	}
	if n != 1 {
		t.Errorf("marked = %d, want 1", n)
	}
}

func arbitrageFixture(id, hash string, now time.Time) models.Arbitrage {
	return models.Arbitrage{
		ID:            id,
		MatchID:       "m1",
		BetTypeID:     enums.BetType1X2,
		ProfitPercent: decimal.NewFromFloat(5.18),
		BestLegs: []models.Leg{
			{ProviderID: 2, OutcomeIndex: 1, Price: 2.30},
			{ProviderID: 2, OutcomeIndex: 2, Price: 3.60},
			{ProviderID: 1, OutcomeIndex: 3, Price: 4.20},
		},
		Stakes: []decimal.Decimal{
			decimal.NewFromFloat(0.457),
			decimal.NewFromFloat(0.292),
			decimal.NewFromFloat(0.250),
		},
		ContentHash: hash,
		DetectedAt:  now,
		LastSeenAt:  now,
		ExpiresAt:   now.Add(6 * time.Hour),
		Active:      true,
	}
}

func TestUpsertArbitrage_ContentHashIdempotent(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := arbitrageFixture("a1", "hash-1", now)
	if err := s.UpsertArbitrage(ctx, a); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	again := arbitrageFixture("a2", "hash-1", now.Add(2*time.Second))
	if err := s.UpsertArbitrage(ctx, again); err != nil {
		t.Fatalf("re-detection upsert: %v", err)
	}

	if got := countRows(t, db, "arbitrage"); got != 1 {
		t.Fatalf("arbitrage rows = %d, want 1", got)
	}

	active, err := s.ActiveArbitrage(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active = %d, want 1", len(active))
	}
	if active[0].ID != "a1" {
		t.Errorf("id = %q, want the original a1", active[0].ID)
	}
	if len(active[0].BestLegs) != 3 {
		t.Errorf("legs = %d, want 3", len(active[0].BestLegs))
	}

	if err := s.DeactivateArbitrage(ctx, []string{"hash-1"}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, err = s.ActiveArbitrage(ctx)
	if err != nil {
		t.Fatalf("active after deactivate: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active = %d, want 0 after deactivation", len(active))
	}
}
