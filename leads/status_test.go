package leads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusHistory_AppendOnly(t *testing.T) {
	h := NewStatusHistory()
	require.Equal(t, []Status{StatusNew}, h.Tracker)

	steps := []Status{StatusContacted, StatusScheduled, StatusClosed, StatusNew, StatusResponded}
	for i, next := range steps {
		prefix := append([]Status{}, h.Tracker...)
		changed, err := h.Transition(next)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Len(t, h.Tracker, i+2)
		assert.Equal(t, prefix, h.Tracker[:len(prefix)], "earlier entries must not move")
	}
	assert.Equal(t, StatusResponded, h.Current)
	assert.Equal(t, []Status{StatusNew, StatusContacted, StatusScheduled, StatusClosed, StatusNew, StatusResponded}, h.Tracker)
}

func TestStatusHistory_SameStatusIsNotATransition(t *testing.T) {
	h := NewStatusHistory()
	changed, err := h.Transition(StatusNew)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, h.Tracker, 1)
}

func TestStatusHistory_ClosedCanReopen(t *testing.T) {
	h := StatusHistory{Current: StatusClosed, Tracker: []Status{StatusNew, StatusClosed}}
	changed, err := h.Transition(StatusContacted)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusContacted, h.Current)
}

func TestStatusHistory_InvalidStatus(t *testing.T) {
	h := NewStatusHistory()
	_, err := h.Transition("archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.True(t, IsValidation(err))
	assert.Equal(t, StatusNew, h.Current)
	assert.Len(t, h.Tracker, 1)
}

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStatus("Contacted")
	assert.Error(t, err)
}
