package orchestrator

import (
	"fmt"
	"sync"
)

// ReflectWeights blends the five reflection metrics into one score. The
// exact values are tunable; only the relative ordering of outcomes is load-
// bearing.
type ReflectWeights struct {
	Satisfaction  float64
	GoalAchieved  float64
	EmotionChange float64
	Latency       float64
	ToolSuccess   float64
}

// DefaultReflectWeights returns the standard metric blend.
func DefaultReflectWeights() ReflectWeights {
	return ReflectWeights{
		Satisfaction:  0.3,
		GoalAchieved:  0.3,
		EmotionChange: 0.2,
		Latency:       0.1,
		ToolSuccess:   0.1,
	}
}

// Outcome bucket cutoffs.
const (
	outcomeSuccessAt = 0.8
	outcomePartialAt = 0.5
	outcomeUnknownAt = 0.3
)

// Reflector scores completed pipeline runs and derives recommendations.
type Reflector struct {
	weights ReflectWeights
}

// NewReflector creates a reflector with the given weights.
func NewReflector(weights ReflectWeights) *Reflector {
	return &Reflector{weights: weights}
}

// Evaluate computes the metrics for one run, blends them, buckets the
// result and derives strengths, weaknesses and recommendations.
func (r *Reflector) Evaluate(rec *InteractionRecord) *Evaluation {
	m := r.measure(rec)
	score := r.weights.Satisfaction*m.Satisfaction +
		r.weights.GoalAchieved*m.GoalAchieved +
		r.weights.EmotionChange*m.EmotionChange +
		r.weights.Latency*m.LatencyScore +
		r.weights.ToolSuccess*m.ToolSuccessRate

	ev := &Evaluation{Metrics: m, Score: score, Outcome: bucket(score)}
	for _, a := range assessments {
		if a.weak(m) {
			ev.Weaknesses = append(ev.Weaknesses, a.name)
			ev.Recommendations = append(ev.Recommendations, a.recommendation)
		} else if a.strong(m) {
			ev.Strengths = append(ev.Strengths, a.name)
		}
	}
	return ev
}

func (r *Reflector) measure(rec *InteractionRecord) Metrics {
	var m Metrics

	// Tool success rate; a plan without tools counts as full success.
	total, ok := 0, 0
	for _, a := range rec.Actions {
		total++
		if a.Success {
			ok++
		}
	}
	if total == 0 {
		m.ToolSuccessRate = 1
	} else {
		m.ToolSuccessRate = float64(ok) / float64(total)
	}

	// Latency: full marks under 2s, fading to zero at 10s.
	sec := rec.Latency.Seconds()
	switch {
	case sec <= 2:
		m.LatencyScore = 1
	case sec >= 10:
		m.LatencyScore = 0
	default:
		m.LatencyScore = 1 - (sec-2)/8
	}

	// Satisfaction proxy: a substantive reply with no failed tools reads
	// well; degrade with failures or an empty reply.
	switch {
	case rec.Reply == "" || rec.FinalState == StateFallback:
		m.Satisfaction = 0.2
	case m.ToolSuccessRate < 1:
		m.Satisfaction = 0.6
	default:
		m.Satisfaction = 0.85
	}

	// Goal achievement: fallback means the goal was missed; partial tool
	// failure means partially met.
	switch {
	case rec.FinalState == StateFallback:
		m.GoalAchieved = 0
	case m.ToolSuccessRate < 1:
		m.GoalAchieved = 0.5
	default:
		m.GoalAchieved = 1
	}

	// Emotion change estimate: responding to a high-intensity negative
	// state is assumed to help somewhat; neutral exchanges sit in the
	// middle. A real estimate needs the next turn's reading.
	switch {
	case rec.Perception.Intensity >= 7 && rec.Reply != "":
		m.EmotionChange = 0.7
	case rec.Perception.Intensity >= 7:
		m.EmotionChange = 0.3
	default:
		m.EmotionChange = 0.5
	}
	return m
}

func bucket(score float64) Outcome {
	switch {
	case score >= outcomeSuccessAt:
		return OutcomeSuccess
	case score >= outcomePartialAt:
		return OutcomePartial
	case score >= outcomeUnknownAt:
		return OutcomeUnknown
	default:
		return OutcomeFailure
	}
}

// assessment pairs a metric threshold with a static recommendation.
type assessment struct {
	name           string
	weak           func(Metrics) bool
	strong         func(Metrics) bool
	recommendation string
}

var assessments = []assessment{
	{
		name:           "user_satisfaction",
		weak:           func(m Metrics) bool { return m.Satisfaction < 0.5 },
		strong:         func(m Metrics) bool { return m.Satisfaction >= 0.8 },
		recommendation: "increase empathetic phrasing in replies",
	},
	{
		name:           "goal_achievement",
		weak:           func(m Metrics) bool { return m.GoalAchieved < 0.5 },
		strong:         func(m Metrics) bool { return m.GoalAchieved >= 1 },
		recommendation: "revisit plan construction for this intent",
	},
	{
		name:           "tool_reliability",
		weak:           func(m Metrics) bool { return m.ToolSuccessRate < 0.5 },
		strong:         func(m Metrics) bool { return m.ToolSuccessRate >= 1 },
		recommendation: "check failing tools and their argument construction",
	},
	{
		name:           "latency",
		weak:           func(m Metrics) bool { return m.LatencyScore < 0.5 },
		strong:         func(m Metrics) bool { return m.LatencyScore >= 1 },
		recommendation: "reduce context size or parallelize tool calls",
	},
}

// DefaultExperienceCap bounds the rolling experience log.
const DefaultExperienceCap = 500

// ExperienceLog is the bounded, append-only log of interaction records.
type ExperienceLog struct {
	mu      sync.RWMutex
	records []*InteractionRecord
	cap     int
}

// NewExperienceLog creates a log holding at most capacity records.
func NewExperienceLog(capacity int) *ExperienceLog {
	if capacity <= 0 {
		capacity = DefaultExperienceCap
	}
	return &ExperienceLog{cap: capacity}
}

// Append adds a record, evicting the oldest beyond capacity.
func (l *ExperienceLog) Append(rec *InteractionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	if len(l.records) > l.cap {
		l.records = l.records[len(l.records)-l.cap:]
	}
}

// Records returns a snapshot of the log in append order.
func (l *ExperienceLog) Records() []*InteractionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*InteractionRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len reports the number of retained records.
func (l *ExperienceLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Summary aggregates outcome counts and the mean score across the log.
func (l *ExperienceLog) Summary() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.records) == 0 {
		return "no interactions recorded"
	}
	counts := make(map[Outcome]int)
	var total float64
	evaluated := 0
	for _, rec := range l.records {
		if rec.Evaluation == nil {
			continue
		}
		counts[rec.Evaluation.Outcome]++
		total += rec.Evaluation.Score
		evaluated++
	}
	if evaluated == 0 {
		return fmt.Sprintf("%d interactions, none evaluated", len(l.records))
	}
	return fmt.Sprintf("%d interactions: %d success, %d partial, %d unknown, %d failure, mean score %.2f",
		evaluated, counts[OutcomeSuccess], counts[OutcomePartial],
		counts[OutcomeUnknown], counts[OutcomeFailure], total/float64(evaluated))
}
