package services

import (
	"slices"
	"strings"
	"time"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
)

// SLAPolicy maps ticket priority to its resolution target.
type SLAPolicy map[domain.TicketPriority]time.Duration

// DefaultSLAPolicy returns the standard resolution targets.
func DefaultSLAPolicy() SLAPolicy {
	return SLAPolicy{
		domain.PriorityCritical: 4 * time.Hour,
		domain.PriorityHigh:     8 * time.Hour,
		domain.PriorityNormal:   24 * time.Hour,
		domain.PriorityLow:      72 * time.Hour,
	}
}

// Target returns the target for priority, falling back to the normal target.
func (p SLAPolicy) Target(priority domain.TicketPriority) time.Duration {
	if d, ok := p[priority]; ok && d > 0 {
		return d
	}
	if d, ok := p[domain.PriorityNormal]; ok && d > 0 {
		return d
	}
	return 24 * time.Hour
}

func (p SLAPolicy) ratio(o domain.TicketOutcome) float64 {
	return float64(o.ResolutionDuration()) / float64(p.Target(o.Priority))
}

// ComponentStrategy scores one component from a technician's outcomes. It
// returns false when the outcomes carry no usable data for the component.
type ComponentStrategy func(outcomes []domain.TicketOutcome, sla SLAPolicy) (float64, bool)

// StrategyNames selects one strategy per component.
type StrategyNames struct {
	ResolutionTime   string
	CustomerImpact   string
	SLACompliance    string
	TicketComplexity string
	Quality          string
}

// DefaultStrategyNames returns the strategies used when none are configured.
func DefaultStrategyNames() StrategyNames {
	return StrategyNames{
		ResolutionTime:   "sla_linear",
		CustomerImpact:   "impact_weighted_satisfaction",
		SLACompliance:    "met_ratio",
		TicketComplexity: "priority_impact_mix",
		Quality:          "first_time_fix",
	}
}

var (
	resolutionTimeStrategies = map[string]ComponentStrategy{
		"sla_linear":  slaLinear,
		"sla_inverse": slaInverse,
	}
	customerImpactStrategies = map[string]ComponentStrategy{
		"impact_weighted_satisfaction": impactWeightedSatisfaction,
		"satisfaction_mean":            satisfactionMean,
	}
	slaComplianceStrategies = map[string]ComponentStrategy{
		"met_ratio":          metRatio,
		"weighted_met_ratio": weightedMetRatio,
	}
	ticketComplexityStrategies = map[string]ComponentStrategy{
		"priority_impact_mix": priorityImpactMix,
	}
	qualityStrategies = map[string]ComponentStrategy{
		"first_time_fix":     firstTimeFix,
		"satisfaction_floor": satisfactionFloor,
	}
)

// componentStrategies is the resolved strategy set of a scorer.
type componentStrategies struct {
	resolutionTime   ComponentStrategy
	customerImpact   ComponentStrategy
	slaCompliance    ComponentStrategy
	ticketComplexity ComponentStrategy
	quality          ComponentStrategy
}

// resolveStrategies looks up every configured name. The returned slice lists
// unknown names as "component=name".
func resolveStrategies(names StrategyNames) (componentStrategies, []string) {
	var unknown []string
	pick := func(component, name string, registry map[string]ComponentStrategy) ComponentStrategy {
		fn, ok := registry[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			unknown = append(unknown, component+"="+name)
		}
		return fn
	}

	s := componentStrategies{
		resolutionTime:   pick("resolution_time", names.ResolutionTime, resolutionTimeStrategies),
		customerImpact:   pick("customer_impact", names.CustomerImpact, customerImpactStrategies),
		slaCompliance:    pick("sla_compliance", names.SLACompliance, slaComplianceStrategies),
		ticketComplexity: pick("ticket_complexity", names.TicketComplexity, ticketComplexityStrategies),
		quality:          pick("quality", names.Quality, qualityStrategies),
	}
	return s, unknown
}

// components evaluates every strategy. Missing data yields the neutral score.
func (s componentStrategies) components(outcomes []domain.TicketOutcome, sla SLAPolicy) domain.ScoreComponents {
	if len(outcomes) == 0 {
		return domain.NeutralComponents()
	}
	eval := func(fn ComponentStrategy) float64 {
		v, ok := fn(outcomes, sla)
		if !ok {
			return domain.NeutralComponentScore
		}
		return v
	}
	return domain.ScoreComponents{
		ResolutionTime:   eval(s.resolutionTime),
		CustomerImpact:   eval(s.customerImpact),
		SLACompliance:    eval(s.slaCompliance),
		TicketComplexity: eval(s.ticketComplexity),
		Quality:          eval(s.quality),
	}.Clamped()
}

func meanSLARatio(outcomes []domain.TicketOutcome, sla SLAPolicy) float64 {
	var sum float64
	for _, o := range outcomes {
		sum += sla.ratio(o)
	}
	return sum / float64(len(outcomes))
}

// slaLinear scores 100 for instant resolution, 50 at the target and 0 at
// twice the target.
func slaLinear(outcomes []domain.TicketOutcome, sla SLAPolicy) (float64, bool) {
	if len(outcomes) == 0 {
		return 0, false
	}
	return 100 * (1 - meanSLARatio(outcomes, sla)/2), true
}

func slaInverse(outcomes []domain.TicketOutcome, sla SLAPolicy) (float64, bool) {
	if len(outcomes) == 0 {
		return 0, false
	}
	return 100 / (1 + meanSLARatio(outcomes, sla)), true
}

// impactWeightedSatisfaction averages ratings (scaled to 0..100) weighting
// broader-impact tickets more heavily.
func impactWeightedSatisfaction(outcomes []domain.TicketOutcome, _ SLAPolicy) (float64, bool) {
	var sum, weights float64
	for _, o := range outcomes {
		if o.SatisfactionRating == nil {
			continue
		}
		w := float64(max(o.Impact.Rank(), 0) + 1)
		sum += w * *o.SatisfactionRating * 20
		weights += w
	}
	if weights == 0 {
		return 0, false
	}
	return sum / weights, true
}

func satisfactionMean(outcomes []domain.TicketOutcome, _ SLAPolicy) (float64, bool) {
	var sum float64
	var n int
	for _, o := range outcomes {
		if o.SatisfactionRating == nil {
			continue
		}
		sum += *o.SatisfactionRating * 20
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func metRatio(outcomes []domain.TicketOutcome, sla SLAPolicy) (float64, bool) {
	if len(outcomes) == 0 {
		return 0, false
	}
	met := 0
	for _, o := range outcomes {
		if o.ResolutionDuration() <= sla.Target(o.Priority) {
			met++
		}
	}
	return 100 * float64(met) / float64(len(outcomes)), true
}

// weightedMetRatio counts a met critical ticket four times a met low one.
func weightedMetRatio(outcomes []domain.TicketOutcome, sla SLAPolicy) (float64, bool) {
	var met, total float64
	for _, o := range outcomes {
		w := float64(max(o.Priority.Rank(), 0) + 1)
		total += w
		if o.ResolutionDuration() <= sla.Target(o.Priority) {
			met += w
		}
	}
	if total == 0 {
		return 0, false
	}
	return 100 * met / total, true
}

// priorityImpactMix rewards harder tickets: 70 points for priority and
// impact together, 30 for breadth of required skills (saturating at 3).
func priorityImpactMix(outcomes []domain.TicketOutcome, _ SLAPolicy) (float64, bool) {
	if len(outcomes) == 0 {
		return 0, false
	}
	var sum float64
	for _, o := range outcomes {
		severity := float64(max(o.Priority.Rank(), 0)+max(o.Impact.Rank(), 0)) / 6
		breadth := float64(min(o.RequiredSkillCount, 3)) / 3
		sum += 70*severity + 30*breadth
	}
	return sum / float64(len(outcomes)), true
}

func firstTimeFix(outcomes []domain.TicketOutcome, _ SLAPolicy) (float64, bool) {
	if len(outcomes) == 0 {
		return 0, false
	}
	fixed := 0
	for _, o := range outcomes {
		if !o.Reopened {
			fixed++
		}
	}
	return 100 * float64(fixed) / float64(len(outcomes)), true
}

func satisfactionFloor(outcomes []domain.TicketOutcome, _ SLAPolicy) (float64, bool) {
	rated := slices.DeleteFunc(slices.Clone(outcomes), func(o domain.TicketOutcome) bool {
		return o.SatisfactionRating == nil
	})
	if len(rated) == 0 {
		return 0, false
	}
	happy := 0
	for _, o := range rated {
		if *o.SatisfactionRating >= 4 {
			happy++
		}
	}
	return 100 * float64(happy) / float64(len(rated)), true
}
