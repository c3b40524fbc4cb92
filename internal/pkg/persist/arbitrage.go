package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

// LiveOdds is one current_odds row joined with its match's start time, the
// shape the arbitrage engine groups over: all currently-valid odds rows
// for matches whose start time has not passed.
type LiveOdds struct {
	models.CurrentOdds
	MatchStartTime time.Time
}

// LiveOddsBefore returns every current_odds row belonging to a match whose
// start time is still after now.
func (s *Store) LiveOddsBefore(ctx context.Context, now time.Time) ([]LiveOdds, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.match_id, o.provider_id, o.bet_type_id, o.margin, o.selection, o.p1, o.p2, o.p3, o.updated_at, m.start_time
		FROM current_odds o JOIN match m ON m.id = o.match_id
		WHERE m.start_time > $1
	`, now)
	if err != nil {
		return nil, fmt.Errorf("persist: querying live odds: %w", err)
	}
	defer rows.Close()

	var out []LiveOdds
	for rows.Next() {
		var row LiveOdds
		var betTypeID int
		if err := rows.Scan(&row.MatchID, &row.ProviderID, &betTypeID, &row.Margin, &row.Selection, &row.P1, &row.P2, &row.P3, &row.UpdatedAt, &row.MatchStartTime); err != nil {
			return nil, fmt.Errorf("persist: scanning live odds: %w", err)
		}
		row.BetTypeID = enums.BetTypeID(betTypeID)
		out = append(out, row)
	}
	return out, rows.Err()
}

// arbitrageRow is the JSON-serializable shape persisted in arbitrage's
// best_legs/stake_split columns.
type arbitrageRow struct {
	Legs   []models.Leg      `json:"legs"`
	Stakes []decimal.Decimal `json:"stakes"`
}

// UpsertArbitrage inserts a new row, or — on a content_hash collision with
// an existing row, active or not — sets its expires_at, marks it active and
// leaves everything else untouched. The table has no last-seen column, so
// no last-seen time is stored.
func (s *Store) UpsertArbitrage(ctx context.Context, a models.Arbitrage) error {
	legs, err := json.Marshal(a.BestLegs)
	if err != nil {
		return fmt.Errorf("persist: marshaling legs: %w", err)
	}
	stakes, err := json.Marshal(a.Stakes)
	if err != nil {
		return fmt.Errorf("persist: marshaling stakes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO arbitrage (id, match_id, bet_type_id, margin, profit_pct, best_legs, stake_split, content_hash, detected_at, expires_at, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,true)
		ON CONFLICT (content_hash) DO UPDATE SET
			expires_at = $10, active = true
	`, a.ID, a.MatchID, int(a.BetTypeID), a.Margin, a.ProfitPercent.String(), string(legs), string(stakes), a.ContentHash, a.DetectedAt, a.ExpiresAt)
	if err != nil {
		return fmt.Errorf("persist: upserting arbitrage %s: %w", a.ContentHash, err)
	}
	return nil
}

// ActiveArbitrage returns every row currently marked active, for the
// engine's expiry pass.
func (s *Store) ActiveArbitrage(ctx context.Context) ([]models.Arbitrage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, match_id, bet_type_id, margin, profit_pct, best_legs, stake_split, content_hash, detected_at, expires_at
		FROM arbitrage WHERE active = true
	`)
	if err != nil {
		return nil, fmt.Errorf("persist: querying active arbitrage: %w", err)
	}
	defer rows.Close()

	var out []models.Arbitrage
	for rows.Next() {
		var a models.Arbitrage
		var betTypeID int
		var profitPct, legsJSON, stakesJSON string
		if err := rows.Scan(&a.ID, &a.MatchID, &betTypeID, &a.Margin, &profitPct, &legsJSON, &stakesJSON, &a.ContentHash, &a.DetectedAt, &a.ExpiresAt); err != nil {
			return nil, fmt.Errorf("persist: scanning arbitrage: %w", err)
		}
		a.BetTypeID = enums.BetTypeID(betTypeID)
		a.Active = true
		pct, err := decimal.NewFromString(profitPct)
		if err != nil {
			return nil, fmt.Errorf("persist: parsing profit_pct: %w", err)
		}
		a.ProfitPercent = pct
		var row arbitrageRow
		if err := json.Unmarshal([]byte(legsJSON), &row.Legs); err != nil {
			return nil, fmt.Errorf("persist: decoding best_legs: %w", err)
		}
		if err := json.Unmarshal([]byte(stakesJSON), &row.Stakes); err != nil {
			return nil, fmt.Errorf("persist: decoding stake_split: %w", err)
		}
		a.BestLegs = row.Legs
		a.Stakes = row.Stakes
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeactivateArbitrage marks the given hashes inactive, one UPDATE per hash
// inside a single transaction.
func (s *Store) DeactivateArbitrage(ctx context.Context, contentHashes []string) error {
	if len(contentHashes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persist: begin deactivate tx: %w", err)
	}
	defer tx.Rollback()
	for _, h := range contentHashes {
		if _, err := tx.ExecContext(ctx, `UPDATE arbitrage SET active = false WHERE content_hash = $1`, h); err != nil {
			return fmt.Errorf("persist: deactivating %s: %w", h, err)
		}
	}
	return tx.Commit()
}
