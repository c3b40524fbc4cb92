package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

type fakeStore struct {
	candidates []models.Match
	odds       map[string][]models.CurrentOdds
}

func (f *fakeStore) CandidatesInWindow(ctx context.Context, sport enums.SportID, start, end time.Time) ([]models.Match, error) {
	return f.candidates, nil
}

func (f *fakeStore) CurrentOddsForMatch(ctx context.Context, matchID string) ([]models.CurrentOdds, error) {
	return f.odds[matchID], nil
}

// "Crvena Zvezda" vs "Partizan" from one provider and "Partizan" vs "Red
// Star Belgrade" from another must merge into one match.
func TestResolve_FuzzyMatchAcrossOrderFlip(t *testing.T) {
	kickoff := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	existing := models.Match{
		ID:          "m1",
		Team1Raw:    "Crvena Zvezda",
		Team2Raw:    "Partizan",
		Team1Norm:   "crvena zvezda",
		Team2Norm:   "partizan",
		SportID:     enums.Football,
		StartTime:   kickoff,
		ExternalIDs: map[int]string{1: "ext-1"},
	}
	store := &fakeStore{candidates: []models.Match{existing}, odds: map[string][]models.CurrentOdds{}}
	r := New(store)

	rm := models.RawMatch{
		ProviderID:  2,
		SportID:     enums.Football,
		HomeTeamRaw: "Partizan",
		AwayTeamRaw: "Red Star Belgrade",
		StartTime:   kickoff,
		ExternalID:  "ext-2",
		League:      "",
	}

	decision, err := r.Resolve(context.Background(), rm)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if decision.IsNew {
		t.Fatalf("expected reuse of existing match, got a new one (score=%v)", decision.Score)
	}
	if decision.Match.ID != "m1" {
		t.Fatalf("expected to reuse m1, got %q", decision.Match.ID)
	}
	if !decision.Match.HasExternalID(2) {
		t.Fatalf("expected provider 2's external id merged into the match")
	}
}

// TestResolve_CategoryGuardBlocksFalsePositive covers the category-exclusion
// guard: a senior team's overlapping kickoff and near-identical raw name
// must not let it merge into its own U19 match.
func TestResolve_CategoryGuardBlocksFalsePositive(t *testing.T) {
	kickoff := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	existing := models.Match{
		ID:        "m1",
		Team1Raw:  "Partizan U19",
		Team2Raw:  "Red Star U19",
		Team1Norm: "partizan",
		Team2Norm: "red star",
		SportID:   enums.Football,
		StartTime: kickoff,
	}
	store := &fakeStore{candidates: []models.Match{existing}, odds: map[string][]models.CurrentOdds{}}
	r := New(store)

	rm := models.RawMatch{
		ProviderID:  2,
		SportID:     enums.Football,
		HomeTeamRaw: "Partizan",
		AwayTeamRaw: "Red Star",
		StartTime:   kickoff,
		ExternalID:  "ext-2",
	}

	decision, err := r.Resolve(context.Background(), rm)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !decision.IsNew {
		t.Fatalf("expected the senior match to be created as new, not merged into the U19 candidate")
	}
}

func TestResolve_NoCandidateCreatesNew(t *testing.T) {
	store := &fakeStore{}
	r := New(store)

	rm := models.RawMatch{
		ProviderID:  1,
		SportID:     enums.Tennis,
		HomeTeamRaw: "Djokovic",
		AwayTeamRaw: "Alcaraz",
		StartTime:   time.Now(),
		ExternalID:  "ext-1",
	}

	decision, err := r.Resolve(context.Background(), rm)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !decision.IsNew {
		t.Fatalf("expected a new match when there are no candidates")
	}
	if decision.Match.ID == "" {
		t.Fatalf("expected a generated id for the new match")
	}
}

// Batches are resolved in sport-then-start-time order regardless of input
// order.
func TestResolveBatch_DeterministicOrder(t *testing.T) {
	store := &fakeStore{}
	r := New(store)

	t1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	raw := []models.RawMatch{
		{SportID: enums.Tennis, StartTime: t1, HomeTeamRaw: "A", AwayTeamRaw: "B"},
		{SportID: enums.Football, StartTime: t2, HomeTeamRaw: "C", AwayTeamRaw: "D"},
		{SportID: enums.Football, StartTime: t1, HomeTeamRaw: "E", AwayTeamRaw: "F"},
	}
	decisions, err := r.ResolveBatch(context.Background(), raw)
	if err != nil {
		t.Fatalf("ResolveBatch: %v", err)
	}
	if len(decisions) != 3 {
		t.Fatalf("expected 3 decisions, got %d", len(decisions))
	}
	if decisions[0].Match.Team1Raw != "C" || decisions[1].Match.Team1Raw != "E" || decisions[2].Match.Team1Raw != "A" {
		t.Fatalf("expected sport-then-start-time order, got %q, %q, %q",
			decisions[0].Match.Team1Raw, decisions[1].Match.Team1Raw, decisions[2].Match.Team1Raw)
	}
}
