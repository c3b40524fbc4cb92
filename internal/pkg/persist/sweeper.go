package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

// MarkFinishedMatches flips any upcoming match whose start time plus
// liveWindow has passed to finished.
func (s *Store) MarkFinishedMatches(ctx context.Context, now time.Time, liveWindow time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE match SET status = $1, updated_at = $2
		WHERE status = $3 AND start_time <= $4
	`, string(models.MatchFinished), now, string(models.MatchUpcoming), now.Add(-liveWindow))
	if err != nil {
		return 0, fmt.Errorf("persist: marking finished matches: %w", err)
	}
	return res.RowsAffected()
}

// HistoryOlderThan returns odds_history rows observed before cutoff, for
// the archive sweeper to export to cold storage before the hard delete
//.
func (s *Store) HistoryOlderThan(ctx context.Context, cutoff time.Time) ([]models.OddsHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT match_id, provider_id, bet_type_id, margin, selection, p1, p2, p3, observed_at
		FROM odds_history WHERE observed_at < $1
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("persist: querying old history: %w", err)
	}
	defer rows.Close()

	var out []models.OddsHistory
	for rows.Next() {
		var h models.OddsHistory
		var betTypeID int
		if err := rows.Scan(&h.MatchID, &h.ProviderID, &betTypeID, &h.Margin, &h.Selection, &h.P1, &h.P2, &h.P3, &h.ObservedAt); err != nil {
			return nil, fmt.Errorf("persist: scanning old history: %w", err)
		}
		h.BetTypeID = enums.BetTypeID(betTypeID)
		out = append(out, h)
	}
	return out, rows.Err()
}

// DeleteHistoryOlderThan hard-deletes odds_history rows observed before
// cutoff.
func (s *Store) DeleteHistoryOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM odds_history WHERE observed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("persist: deleting old history: %w", err)
	}
	return res.RowsAffected()
}

// DeleteMatchesOlderThan hard-deletes matches started before cutoff along
// with their current_odds rows. SQLite and lib/pq both lack a portable
// ON DELETE CASCADE guarantee across this module's two drivers, so the
// child delete is explicit rather than relied upon from the schema.
func (s *Store) DeleteMatchesOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("persist: begin delete matches tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM current_odds WHERE match_id IN (SELECT id FROM match WHERE start_time < $1)
	`, cutoff); err != nil {
		return 0, fmt.Errorf("persist: cascading current_odds delete: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM match WHERE start_time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("persist: deleting old matches: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// DeleteArbitrageOlderThan hard-deletes inactive arbitrage rows detected
// before cutoff.
func (s *Store) DeleteArbitrageOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM arbitrage WHERE active = false AND detected_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("persist: deleting old arbitrage: %w", err)
	}
	return res.RowsAffected()
}
