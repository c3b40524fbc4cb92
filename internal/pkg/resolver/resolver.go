// Package resolver implements the cross-provider match identity resolver:
// weighted candidate scoring with reuse/create threshold bands.
package resolver

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
	"github.com/kestrelodds/arbiter/internal/pkg/normalize"
)

// Scoring weights; they sum to 1.
const (
	weightTeamSimilarity = 0.50
	weightTimeProximity  = 0.25
	weightLeagueMatch    = 0.15
	weightPriceCoherence = 0.10

	thresholdReuse          = 85.0
	thresholdConditionalReuse = 70.0
	conditionalReuseWindow   = 30 * time.Minute
)

// CandidateStore is the persister's read side the resolver queries for
// same-sport, time-windowed candidates, plus the
// candidate's currently-known prices for the price-coherence score (step 3).
type CandidateStore interface {
	CandidatesInWindow(ctx context.Context, sport enums.SportID, start, end time.Time) ([]models.Match, error)
	CurrentOddsForMatch(ctx context.Context, matchID string) ([]models.CurrentOdds, error)
}

type Resolver struct {
	store    CandidateStore
	cache    CandidateCache
	cacheTTL time.Duration
}

func New(store CandidateStore) *Resolver {
	return &Resolver{store: store}
}

// NewWithCache additionally wires a same-cycle candidate cache: a cache hit skips the CandidateStore round-trip entirely, a miss
// falls through to it and populates the cache for the next lookup in the
// same cycle.
func NewWithCache(store CandidateStore, cache CandidateCache, ttl time.Duration) *Resolver {
	return &Resolver{store: store, cache: cache, cacheTTL: ttl}
}

// Decision is what the resolver decided for one RawMatch. Raw is carried
// alongside so callers can correlate the resolved Match back to its
// originating provider odds without re-deriving the batch's sort order.
type Decision struct {
	Match models.Match
	Raw   models.RawMatch
	IsNew bool
	Score float64
}

// ResolveBatch resolves every RawMatch in raw, in deterministic
// sport-then-start-time order so two runs that agree exactly on inputs
// always produce the same resolutions.
func (r *Resolver) ResolveBatch(ctx context.Context, raw []models.RawMatch) ([]Decision, error) {
	ordered := make([]models.RawMatch, len(raw))
	copy(ordered, raw)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SportID != ordered[j].SportID {
			return ordered[i].SportID < ordered[j].SportID
		}
		return ordered[i].StartTime.Before(ordered[j].StartTime)
	})

	decisions := make([]Decision, 0, len(ordered))
	for _, rm := range ordered {
		d, err := r.Resolve(ctx, rm)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}

// Resolve decides reuse-or-create for a single RawMatch.
func (r *Resolver) Resolve(ctx context.Context, rm models.RawMatch) (Decision, error) {
	team1Norm := normalize.Team(rm.HomeTeamRaw)
	team2Norm := normalize.Team(rm.AwayTeamRaw)

	window := time.Duration(rm.SportID.SimilarityWindowMinutes()) * time.Minute

	var candidates []models.Match
	hit := false
	bucket := rm.StartTime.Truncate(candidateCacheBucket)
	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, rm.SportID, bucket); ok {
			candidates, hit = cached, true
		}
	}
	if !hit {
		var err error
		candidates, err = r.store.CandidatesInWindow(ctx, rm.SportID, rm.StartTime.Add(-window), rm.StartTime.Add(window))
		if err != nil {
			return Decision{}, fmt.Errorf("resolver: querying candidates: %w", err)
		}
		if r.cache != nil {
			r.cache.Set(ctx, rm.SportID, bucket, candidates, r.cacheTTL)
		}
	}

	var best models.Match
	bestScore := -1.0
	for _, c := range candidates {
		// Category hard filter runs before any scoring: a senior team and
		// its U19/reserve/women's side must never merge no matter how
		// similar the raw names score.
		if !normalize.SameCategory(rm.HomeTeamRaw, rm.AwayTeamRaw, c.Team1Raw, c.Team2Raw) {
			continue
		}
		existingOdds, err := r.store.CurrentOddsForMatch(ctx, c.ID)
		if err != nil {
			return Decision{}, fmt.Errorf("resolver: loading candidate odds: %w", err)
		}
		s := score(rm, team1Norm, team2Norm, c, existingOdds)
		if s > bestScore {
			bestScore = s
			best = c
		}
	}

	if bestScore >= thresholdReuse {
		mergeExternalID(&best, rm)
		return Decision{Match: best, Raw: rm, IsNew: false, Score: bestScore}, nil
	}
	if bestScore >= thresholdConditionalReuse && timeDelta(rm.StartTime, best.StartTime) <= conditionalReuseWindow {
		mergeExternalID(&best, rm)
		return Decision{Match: best, Raw: rm, IsNew: false, Score: bestScore}, nil
	}

	now := time.Now()
	newMatch := models.Match{
		ID:          uuid.New().String(),
		Team1Raw:    rm.HomeTeamRaw,
		Team2Raw:    rm.AwayTeamRaw,
		Team1Norm:   team1Norm,
		Team2Norm:   team2Norm,
		SportID:     rm.SportID,
		StartTime:   rm.StartTime,
		ExternalIDs: map[int]string{rm.ProviderID: rm.ExternalID},
		Status:      models.MatchUpcoming,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return Decision{Match: newMatch, Raw: rm, IsNew: true, Score: bestScore}, nil
}

func mergeExternalID(m *models.Match, rm models.RawMatch) {
	if m.ExternalIDs == nil {
		m.ExternalIDs = map[int]string{}
	}
	m.ExternalIDs[rm.ProviderID] = rm.ExternalID
	m.UpdatedAt = time.Now()
}

func score(rm models.RawMatch, team1Norm, team2Norm string, candidate models.Match, candidateOdds []models.CurrentOdds) float64 {
	teamScore := bestOrientationSimilarity(team1Norm, team2Norm, candidate.Team1Norm, candidate.Team2Norm)
	timeScore := timeProximityScore(rm.StartTime, candidate.StartTime, time.Duration(rm.SportID.SimilarityWindowMinutes())*time.Minute)
	leagueScore := 0.0
	// League match contributes only when known on both sides.
	if rm.League != "" && candidate.LeagueID != nil && *candidate.LeagueID == rm.League {
		leagueScore = 100
	}
	priceScore := priceCoherenceScore(rm, candidateOdds)

	return weightTeamSimilarity*teamScore +
		weightTimeProximity*timeScore +
		weightLeagueMatch*leagueScore +
		weightPriceCoherence*priceScore
}

// priceCoherenceScore is the "any common market with odds within 20%"
// signal: 100 if at least one shared canonical key has
// comparable prices, 0 otherwise (no shared market is neutral, not penalized).
func priceCoherenceScore(rm models.RawMatch, candidateOdds []models.CurrentOdds) float64 {
	if len(candidateOdds) == 0 {
		return 0
	}
	byKey := make(map[models.CanonicalKey]models.CurrentOdds, len(candidateOdds))
	for _, c := range candidateOdds {
		byKey[c.CanonicalKey] = c
	}
	for _, o := range rm.Odds {
		existing, ok := byKey[o.CanonicalKey]
		if !ok || o.P1 == nil || existing.P1 == nil {
			continue
		}
		if withinPercent(*o.P1, *existing.P1, 20) {
			return 100
		}
	}
	return 0
}

func withinPercent(a, b, pct float64) bool {
	if b == 0 {
		return a == 0
	}
	diff := math.Abs(a-b) / math.Abs(b) * 100
	return diff <= pct
}

// bestOrientationSimilarity evaluates both team orientations and takes the
// better.
func bestOrientationSimilarity(t1, t2, c1, c2 string) float64 {
	direct := (normalize.TokenSortRatio(t1, c1) + normalize.TokenSortRatio(t2, c2)) / 2
	swapped := (normalize.TokenSortRatio(t1, c2) + normalize.TokenSortRatio(t2, c1)) / 2
	return math.Max(direct, swapped)
}

// timeProximityScore is a linear decay within the window.
func timeProximityScore(a, b time.Time, window time.Duration) float64 {
	delta := timeDelta(a, b)
	if delta >= window {
		return 0
	}
	return 100 * (1 - float64(delta)/float64(window))
}

func timeDelta(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
