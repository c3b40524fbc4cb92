package persist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

// Movement is one line-movement alert: a price that moved by more than the
// configured threshold between two writes of the same primary key.
type Movement struct {
	Row      models.CurrentOdds
	OldPrice float64
	NewPrice float64
	DeltaPct float64
}

// WriteOddsDetectMovement behaves like WriteOdds, but additionally compares
// each row's P1 against the price it is replacing and returns every change
// whose magnitude exceeds thresholdPercent. A zero threshold disables the
// check entirely.
func (s *Store) WriteOddsDetectMovement(ctx context.Context, rows []models.CurrentOdds, thresholdPercent float64) ([]Movement, error) {
	deduped := dedupeByKey(rows)
	if len(deduped) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("persist: begin odds tx: %w", err)
	}
	defer tx.Rollback()

	var movements []Movement
	for _, row := range deduped {
		if thresholdPercent > 0 && row.P1 != nil {
			var oldPrice *float64
			err := tx.QueryRowContext(ctx, `
				SELECT p1 FROM current_odds
				WHERE match_id = $1 AND provider_id = $2 AND bet_type_id = $3 AND margin = $4 AND selection = $5
			`, row.MatchID, row.ProviderID, int(row.BetTypeID), row.Margin, row.Selection).Scan(&oldPrice)
			if err != nil && err != sql.ErrNoRows {
				return nil, fmt.Errorf("persist: reading prior price: %w", err)
			}
			if oldPrice != nil && *oldPrice > 0 {
				delta := (*row.P1 - *oldPrice) / *oldPrice * 100
				if abs(delta) > thresholdPercent {
					movements = append(movements, Movement{Row: row, OldPrice: *oldPrice, NewPrice: *row.P1, DeltaPct: delta})
				}
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO current_odds (match_id, provider_id, bet_type_id, margin, selection, p1, p2, p3, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (match_id, provider_id, bet_type_id, margin, selection) DO UPDATE SET
				p1 = $6, p2 = $7, p3 = $8, updated_at = $9
		`, row.MatchID, row.ProviderID, int(row.BetTypeID), row.Margin, row.Selection, row.P1, row.P2, row.P3, row.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("persist: upserting current odds: %w", err)
		}

		hist := models.FromCurrent(row, row.UpdatedAt)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO odds_history (match_id, provider_id, bet_type_id, margin, selection, p1, p2, p3, observed_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, hist.MatchID, hist.ProviderID, int(hist.BetTypeID), hist.Margin, hist.Selection, hist.P1, hist.P2, hist.P3, hist.ObservedAt)
		if err != nil {
			return nil, fmt.Errorf("persist: appending odds history: %w", err)
		}
	}
	return movements, tx.Commit()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// MovementToEvent converts a detected movement into the publisher's
// odds.update payload.
func MovementToEvent(m Movement, now time.Time) models.Event {
	return models.Event{
		Kind:       models.EventOddsUpdate,
		MatchID:    m.Row.MatchID,
		BetTypeID:  m.Row.BetTypeID,
		Margin:     m.Row.Margin,
		Selection:  m.Row.Selection,
		OccurredAt: now,
	}
}
