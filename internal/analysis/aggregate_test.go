package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinkwright/agent-trajectory/internal/loader"
	"github.com/thinkwright/agent-trajectory/internal/oracle"
)

func threeConversations() []loader.Conversation {
	return []loader.Conversation{
		conv("c1", 1, loader.Turn{Role: "human", Content: "help"}, loader.Turn{Role: "agent", Content: "basic reply"}),
		conv("c2", 2, loader.Turn{Role: "human", Content: "help"}, loader.Turn{Role: "agent", Content: "better response"}),
		conv("c3", 3, loader.Turn{Role: "human", Content: "help"}, loader.Turn{Role: "agent", Content: "best response"}),
	}
}

func TestAggregateSingle(t *testing.T) {
	convs := threeConversations()
	r, err := AggregateSingle(convs, []oracle.Evaluation{uniform(6), uniform(7), uniform(8)})
	require.NoError(t, err)

	assert.Equal(t, ModeSingleShot, r.Mode)
	assert.Equal(t, 3, r.ConversationCount)
	assert.Equal(t, []float64{6, 7, 8}, r.Scores)
	assert.Equal(t, 7.0, r.AverageScore)
	assert.Equal(t, 2.0, r.TrendDelta)
	assert.Equal(t, oracle.TrajectoryImproving, r.Trajectory.Label)
	assert.Nil(t, r.Trajectory.Confidence)

	require.Len(t, r.Conversations, 3)
	row := r.Conversations[0]
	assert.Equal(t, "c1", row.ConversationID)
	assert.Equal(t, "2025-01-01T00:00:00+00:00", row.Timestamp)
	require.NotNil(t, row.CompositeScore)
	assert.Equal(t, 6.0, *row.CompositeScore)
	assert.Nil(t, row.Progression)
	assert.Equal(t, 1, row.Metrics.AgentTurnCount)
}

func TestAggregateSingleOneConversation(t *testing.T) {
	r, err := AggregateSingle(threeConversations()[:1], []oracle.Evaluation{uniform(9)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.TrendDelta)
	assert.Equal(t, oracle.TrajectoryFlat, r.Trajectory.Label)
}

func TestAggregateSingleLabelUsesRoundedDelta(t *testing.T) {
	// 6.2 - 6.0 is 0.20000000000000018 before rounding.
	r, err := AggregateSingle(threeConversations()[:2], []oracle.Evaluation{uniform(6), uniform(6.2)})
	require.NoError(t, err)
	assert.Equal(t, 0.2, r.TrendDelta)
	assert.Equal(t, oracle.TrajectoryFlat, r.Trajectory.Label)
}

func TestAggregateSingleOutOfBounds(t *testing.T) {
	bad := uniform(7)
	bad.Helpfulness = 11
	_, err := AggregateSingle(threeConversations(), []oracle.Evaluation{uniform(6), bad, uniform(8)})
	var oob *ScoreOutOfBoundsError
	require.True(t, errors.As(err, &oob))
	assert.Equal(t, "conversations[c2].helpfulness", oob.Field)
}

func TestAggregateSingleLengthMismatch(t *testing.T) {
	_, err := AggregateSingle(threeConversations(), []oracle.Evaluation{uniform(6)})
	require.Error(t, err)
}

func TestAggregateProgression(t *testing.T) {
	r, err := AggregateProgression(threeConversations(), progression(
		progress("c1", 6, 0), progress("c2", 7, 1), progress("c3", 8, 1),
	))
	require.NoError(t, err)

	assert.Equal(t, ModeProgression, r.Mode)
	assert.Equal(t, []float64{6, 7, 8}, r.Scores)
	assert.Equal(t, 7.0, r.AverageScore)
	assert.Equal(t, 2.0, r.TrendDelta)
	assert.Equal(t, oracle.TrajectoryImproving, r.Trajectory.Label)
	require.NotNil(t, r.Trajectory.Confidence)
	assert.Equal(t, 9.0, *r.Trajectory.Confidence)
	assert.Equal(t, "gets better", r.Trajectory.Summary)
	for _, row := range r.Conversations {
		assert.NotNil(t, row.Progression)
		assert.Nil(t, row.Evaluation)
	}
}

func TestAggregateProgressionTrustsOracleLabel(t *testing.T) {
	p := progression(progress("c1", 8, 0), progress("c3", 6, -2))
	p.TrajectoryLabel = oracle.TrajectoryMixed
	r, err := AggregateProgression(threeConversations(), p)
	require.NoError(t, err)
	assert.Equal(t, oracle.TrajectoryMixed, r.Trajectory.Label)
	assert.Equal(t, -2.0, r.TrendDelta)
}

func TestAggregateProgressionMissingEntry(t *testing.T) {
	r, err := AggregateProgression(threeConversations(), progression(
		progress("c1", 6, 0), progress("c3", 8, 2),
	))
	require.NoError(t, err)

	assert.Equal(t, 3, r.ConversationCount)
	assert.Nil(t, r.Conversations[1].Progression)
	assert.Equal(t, []float64{6, 8}, r.Scores)
	assert.Equal(t, 2.0, r.TrendDelta)
}

func TestAggregateProgressionDuplicateAndUnknownIDs(t *testing.T) {
	r, err := AggregateProgression(threeConversations(), progression(
		progress("c1", 6, 0), progress("c1", 9, 0), progress("ghost", 5, 0),
		progress("c2", 7, 1), progress("c3", 8, 1),
	))
	require.NoError(t, err)
	assert.Equal(t, 6.0, r.Conversations[0].Progression.OverallAgentQuality, "first entry wins")
	assert.Equal(t, []float64{6, 7, 8}, r.Scores)

	_, err = AggregateProgression(threeConversations(), progression(progress("ghost", 11, 0)))
	var oob *ScoreOutOfBoundsError
	require.True(t, errors.As(err, &oob), "unmatched entries are still checked")
}

func TestAggregateProgressionSingleScored(t *testing.T) {
	r, err := AggregateProgression(threeConversations(), progression(progress("c2", 7, 0)))
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.TrendDelta)
	assert.Equal(t, 7.0, r.AverageScore)
}

func TestEmptyReport(t *testing.T) {
	r := EmptyReport(ModeProgression)
	assert.Equal(t, 0, r.ConversationCount)
	assert.NotNil(t, r.Scores)
	assert.Empty(t, r.Scores)
	assert.Equal(t, oracle.TrajectoryFlat, r.Trajectory.Label)
	assert.Nil(t, r.Trajectory.Confidence)
}
