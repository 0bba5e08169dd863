package domain

import (
	"math"
	"time"
)

// NeutralComponentScore is used for any component that has no history to
// draw from, so new technicians stay schedulable.
const NeutralComponentScore = 50.0

// ScoreComponents are the five named performance factors, each 0..100.
type ScoreComponents struct {
	ResolutionTime   float64
	CustomerImpact   float64
	SLACompliance    float64
	TicketComplexity float64
	Quality          float64
}

// NeutralComponents returns the baseline used for technicians without history.
func NeutralComponents() ScoreComponents {
	return ScoreComponents{
		ResolutionTime:   NeutralComponentScore,
		CustomerImpact:   NeutralComponentScore,
		SLACompliance:    NeutralComponentScore,
		TicketComplexity: NeutralComponentScore,
		Quality:          NeutralComponentScore,
	}
}

// Clamped returns a copy with every component forced into [0,100].
func (c ScoreComponents) Clamped() ScoreComponents {
	return ScoreComponents{
		ResolutionTime:   ClampScore(c.ResolutionTime),
		CustomerImpact:   ClampScore(c.CustomerImpact),
		SLACompliance:    ClampScore(c.SLACompliance),
		TicketComplexity: ClampScore(c.TicketComplexity),
		Quality:          ClampScore(c.Quality),
	}
}

// ScoreWeights holds one weight per component.
type ScoreWeights struct {
	ResolutionTime   float64
	CustomerImpact   float64
	SLACompliance    float64
	TicketComplexity float64
	Quality          float64
}

// DefaultScoreWeights are the weights the score cards are built around.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		ResolutionTime:   0.30,
		CustomerImpact:   0.25,
		SLACompliance:    0.20,
		TicketComplexity: 0.15,
		Quality:          0.10,
	}
}

// Sum adds the weights.
func (w ScoreWeights) Sum() float64 {
	return w.ResolutionTime + w.CustomerImpact + w.SLACompliance + w.TicketComplexity + w.Quality
}

// Apply computes the unrounded weighted sum.
func (w ScoreWeights) Apply(c ScoreComponents) float64 {
	return w.ResolutionTime*c.ResolutionTime +
		w.CustomerImpact*c.CustomerImpact +
		w.SLACompliance*c.SLACompliance +
		w.TicketComplexity*c.TicketComplexity +
		w.Quality*c.Quality
}

// ScoreSnapshot is a derived, recomputable performance score.
type ScoreSnapshot struct {
	ID           int64
	TechnicianID int64
	Components   ScoreComponents
	Overall      float64
	ComputedAt   time.Time
}

// ClampScore forces v into [0,100]; NaN becomes 0.
func ClampScore(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// RoundToTenth rounds to one decimal place.
func RoundToTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
