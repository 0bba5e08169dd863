package services

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
)

const weightTolerance = 1e-9

// ScorerConfig configures a Scorer.
type ScorerConfig struct {
	Weights       domain.ScoreWeights
	Strategies    StrategyNames
	SLA           SLAPolicy
	HistoryWindow int
	CacheSize     int
	CacheTTL      time.Duration
	Parallelism   int
}

// DefaultScorerConfig returns the standard weights and strategies.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Weights:       domain.DefaultScoreWeights(),
		Strategies:    DefaultStrategyNames(),
		SLA:           DefaultSLAPolicy(),
		HistoryWindow: 200,
		CacheSize:     1024,
		CacheTTL:      30 * time.Second,
		Parallelism:   4,
	}
}

// Scorer turns ticket outcomes into technician score snapshots.
type Scorer struct {
	weights     domain.ScoreWeights
	strategies  componentStrategies
	sla         SLAPolicy
	window      int
	parallelism int

	outcomes  ports.OutcomeRepository
	snapshots ports.ScoreSnapshotRepository
	cache     *expirable.LRU[int64, domain.ScoreSnapshot]
	observer  ports.EngineObserver
	logger    *slog.Logger
	now       func() time.Time
}

var _ ports.Scorer = (*Scorer)(nil)

// NewScorer validates cfg and builds a scorer. Weights that do not sum to 1
// or unknown strategy names are a configuration error.
func NewScorer(
	cfg ScorerConfig,
	outcomes ports.OutcomeRepository,
	snapshots ports.ScoreSnapshotRepository,
	observer ports.EngineObserver,
	logger *slog.Logger,
) (*Scorer, error) {
	w := cfg.Weights
	for _, v := range []float64{w.ResolutionTime, w.CustomerImpact, w.SLACompliance, w.TicketComplexity, w.Quality} {
		if v < 0 || math.IsNaN(v) {
			return nil, apperrors.NewConfigurationError("score weights must be non-negative")
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return nil, apperrors.NewConfigurationError("score weights sum to %.6f, want 1.0", sum)
	}

	strategies, unknown := resolveStrategies(cfg.Strategies)
	if len(unknown) > 0 {
		return nil, apperrors.NewConfigurationError("unknown scoring strategies: %s", strings.Join(unknown, ", "))
	}

	if cfg.SLA == nil {
		cfg.SLA = DefaultSLAPolicy()
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 200
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}

	return &Scorer{
		weights:     w,
		strategies:  strategies,
		sla:         cfg.SLA,
		window:      cfg.HistoryWindow,
		parallelism: cfg.Parallelism,
		outcomes:    outcomes,
		snapshots:   snapshots,
		cache:       expirable.NewLRU[int64, domain.ScoreSnapshot](cfg.CacheSize, nil, cfg.CacheTTL),
		observer:    observer,
		logger:      logger.With("component", "scorer"),
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// Compute clamps the components and returns the weighted overall score
// rounded to one decimal.
func (s *Scorer) Compute(components domain.ScoreComponents) float64 {
	return domain.RoundToTenth(domain.ClampScore(s.weights.Apply(components.Clamped())))
}

// Evaluate returns the technician's current score, from cache when fresh.
// It never writes to the snapshot store, so ranking stays read-only.
func (s *Scorer) Evaluate(ctx context.Context, technicianID int64) (domain.ScoreSnapshot, error) {
	start := time.Now()
	if snap, ok := s.cache.Get(technicianID); ok {
		s.observer.ScoreComputed(time.Since(start), true)
		return snap, nil
	}

	// 1. Read the recent history window
	history, err := s.outcomes.ListByTechnician(ctx, technicianID, s.window)
	if err != nil {
		// Serve the last persisted score rather than failing routing outright.
		if last, lerr := s.snapshots.Latest(ctx, technicianID); lerr == nil && last != nil {
			s.logger.WarnContext(ctx, "outcome history unavailable, serving stored score",
				"technician_id", technicianID,
				"error", err,
			)
			return *last, nil
		}
		return domain.ScoreSnapshot{}, err
	}

	// 2. Evaluate component strategies and aggregate
	components := s.strategies.components(history, s.sla)
	snap := domain.ScoreSnapshot{
		TechnicianID: technicianID,
		Components:   components,
		Overall:      s.Compute(components),
		ComputedAt:   s.now(),
	}

	s.cache.Add(technicianID, snap)
	s.observer.ScoreComputed(time.Since(start), false)
	return snap, nil
}

// Snapshot is Evaluate for score cards. A score that has not been stored yet
// is persisted once; a failed write does not fail the read.
func (s *Scorer) Snapshot(ctx context.Context, technicianID int64) (domain.ScoreSnapshot, error) {
	snap, err := s.Evaluate(ctx, technicianID)
	if err != nil || snap.ID != 0 {
		return snap, err
	}

	saved, err := s.snapshots.Save(ctx, &snap)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to persist score snapshot",
			"technician_id", technicianID,
			"error", err,
		)
		return snap, nil
	}
	if saved != nil && saved.ID != 0 {
		snap.ID = saved.ID
		s.cache.Add(technicianID, snap)
	}
	return snap, nil
}

// SnapshotAll scores the given technicians concurrently. The result keeps
// the order of technicianIDs.
func (s *Scorer) SnapshotAll(ctx context.Context, technicianIDs []int64) ([]domain.ScoreSnapshot, error) {
	out := make([]domain.ScoreSnapshot, len(technicianIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, id := range technicianIDs {
		g.Go(func() error {
			snap, err := s.Snapshot(gctx, id)
			if err != nil {
				return err
			}
			out[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Invalidate drops the cached snapshot after new history arrives.
func (s *Scorer) Invalidate(technicianID int64) {
	s.cache.Remove(technicianID)
}
