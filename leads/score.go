package leads

import (
	"fmt"
	"strconv"
	"strings"
)

// ScoringPolicy derives a lead score from its actions.
// Implementations must be monotonic and independent of action order.
type ScoringPolicy interface {
	Score(actions []Action) int
}

// WeightedPolicy scores a lead as the sum of per-type weights
type WeightedPolicy struct {
	weights map[ActionType]int
}

// DefaultWeights is used when no LEAD_SCORE_WEIGHTS override is configured
const DefaultWeights = "lead_phone=20,lead_message=15,lead_appointment=30,lead_email=10"

// NewWeightedPolicy builds a policy. Unknown action types score zero.
func NewWeightedPolicy(weights map[ActionType]int) (*WeightedPolicy, error) {
	w := make(map[ActionType]int, len(weights))
	for t, v := range weights {
		if !t.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidActionType, t)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: %s=%d", ErrNegativeWeight, t, v)
		}
		w[t] = v
	}
	return &WeightedPolicy{weights: w}, nil
}

// ParseWeights reads a "type=points,type=points" list
func ParseWeights(list string) (*WeightedPolicy, error) {
	weights := make(map[ActionType]int)
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid weight %q: expected type=points", part)
		}
		points, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid weight for %s: %w", name, err)
		}
		weights[ActionType(strings.TrimSpace(name))] = points
	}
	return NewWeightedPolicy(weights)
}

func (p *WeightedPolicy) Score(actions []Action) int {
	total := 0
	for _, a := range actions {
		total += p.weights[a.Type]
	}
	return total
}

// Weight returns the points awarded for one action of type t
func (p *WeightedPolicy) Weight(t ActionType) int {
	return p.weights[t]
}

// Categorize maps a score to its bucket
func Categorize(score int) Category {
	switch {
	case score >= 60:
		return CategoryHigh
	case score >= 25:
		return CategoryMedium
	default:
		return CategoryBase
	}
}
