package leads

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultPolicy(t *testing.T) *WeightedPolicy {
	t.Helper()
	p, err := ParseWeights(DefaultWeights)
	require.NoError(t, err)
	return p
}

func sampleActions() []Action {
	return []Action{
		{ID: "a1", Type: ActionPhone, Date: "20260101"},
		{ID: "a2", Type: ActionMessage, Date: "20260102"},
		{ID: "a3", Type: ActionMessage, Date: "20260103"},
		{ID: "a4", Type: ActionAppointment, Date: "20260104"},
		{ID: "a5", Type: ActionEmail, Date: "20260105"},
	}
}

func TestWeightedPolicy_Score(t *testing.T) {
	p := defaultPolicy(t)
	assert.Equal(t, 0, p.Score(nil))
	assert.Equal(t, 20+15+15+30+10, p.Score(sampleActions()))
}

func TestWeightedPolicy_Monotonic(t *testing.T) {
	p := defaultPolicy(t)
	actions := sampleActions()
	for _, extra := range ActionTypes {
		before := p.Score(actions)
		after := p.Score(append(append([]Action{}, actions...), Action{ID: "x", Type: extra}))
		assert.GreaterOrEqual(t, after, before, "adding %s lowered the score", extra)
	}

	// unknown types score nothing but never subtract
	withUnknown := append(append([]Action{}, actions...), Action{ID: "y", Type: "lead_unknown"})
	assert.Equal(t, p.Score(actions), p.Score(withUnknown))
}

func TestWeightedPolicy_OrderIndependent(t *testing.T) {
	p := defaultPolicy(t)
	actions := sampleActions()
	want := p.Score(actions)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]Action{}, actions...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, p.Score(shuffled))
	}
}

func TestCategorize_Boundaries(t *testing.T) {
	cases := map[int]Category{
		0:   CategoryBase,
		24:  CategoryBase,
		25:  CategoryMedium,
		59:  CategoryMedium,
		60:  CategoryHigh,
		250: CategoryHigh,
	}
	for score, want := range cases {
		assert.Equal(t, want, Categorize(score), "score %d", score)
	}
}

func TestParseWeights_Errors(t *testing.T) {
	_, err := ParseWeights("lead_phone=-5")
	assert.ErrorIs(t, err, ErrNegativeWeight)

	_, err = ParseWeights("lead_fax=5")
	assert.ErrorIs(t, err, ErrInvalidActionType)

	_, err = ParseWeights("lead_phone")
	assert.Error(t, err)

	_, err = ParseWeights("lead_phone=abc")
	assert.Error(t, err)
}

func TestParseWeights_Partial(t *testing.T) {
	p, err := ParseWeights(" lead_phone = 7 ,, ")
	require.NoError(t, err)
	assert.Equal(t, 7, p.Weight(ActionPhone))
	assert.Equal(t, 0, p.Weight(ActionEmail))
}
