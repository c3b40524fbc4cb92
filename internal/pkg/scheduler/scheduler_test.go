package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/kestrelodds/arbiter/internal/pkg/config"
	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
	"github.com/kestrelodds/arbiter/internal/pkg/persist"
	"github.com/kestrelodds/arbiter/internal/pkg/resolver"
)

type fakeStore struct {
	wrote []models.CurrentOdds
}

func (f *fakeStore) UpsertMatches(ctx context.Context, matches []models.Match) error { return nil }

func (f *fakeStore) WriteOddsDetectMovement(ctx context.Context, rows []models.CurrentOdds, thresholdPercent float64) ([]persist.Movement, error) {
	f.wrote = append(f.wrote, rows...)
	return nil, nil
}

func price(v float64) *float64 { return &v }

// TestPersist_DropsMalformedRows: a row whose non-nil price fields don't
// match its bet type's arity is dropped before it ever
// reaches the store, regardless of which adapter produced it.
func TestPersist_DropsMalformedRows(t *testing.T) {
	store := &fakeStore{}
	s := &Scheduler{store: store, arbCfg: config.ArbitrageConfig{}, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	match := models.Match{ID: "m1"}
	decisions := []resolver.Decision{
		{
			Match: match,
			Raw: models.RawMatch{
				ProviderID: 1,
				Odds: []models.RawOdds{
					// complete arity-3 row: kept.
					{CanonicalKey: models.CanonicalKey{BetTypeID: enums.BetType1X2}, P1: price(2.1), P2: price(3.3), P3: price(3.4)},
					// arity-3 bet type missing p3: dropped.
					{CanonicalKey: models.CanonicalKey{BetTypeID: enums.BetType1X2}, P1: price(2.1), P2: price(3.3)},
					// arity-2 bet type carrying an unexpected p3: dropped.
					{CanonicalKey: models.CanonicalKey{BetTypeID: enums.BetTypeTotalOverUnder}, P1: price(1.9), P2: price(1.95), P3: price(1.5)},
				},
			},
		},
	}

	if err := s.persist(context.Background(), decisions); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if len(store.wrote) != 1 {
		t.Fatalf("expected exactly one valid row to reach the store, got %d", len(store.wrote))
	}
	if store.wrote[0].CanonicalKey.BetTypeID != enums.BetType1X2 {
		t.Fatalf("unexpected surviving row: %+v", store.wrote[0])
	}
}
