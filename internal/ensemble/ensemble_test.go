package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ragscore/internal/domain"
)

func rec(t *testing.T, gen, name string, value float64) domain.ScoreRecord {
	t.Helper()
	r, err := domain.NewScoreRecord(gen, "faithfulness", name, value, value > 0.5, nil)
	require.NoError(t, err)
	return r
}

func TestEnsemble_AllAny(t *testing.T) {
	tests := []struct {
		name    string
		a, b    float64
		wantAll float64
		wantAny float64
	}{
		{"both pass", 0.9, 0.9, 1, 1},
		{"one passes", 0.9, 0.2, 0, 1},
		{"none pass", 0.2, 0.2, 0, 0},
		{"threshold is strict", 0.5, 0.5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []domain.ScoreRecord{rec(t, "g1", "vectara", tt.a), rec(t, "g1", "g_eval", tt.b)}
			names := []string{"vectara", "g_eval"}

			all, err := Ensemble(records, names, StrategyAll, nil)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.InDelta(t, tt.wantAll, all[0].Value, 0)

			anyOut, err := Ensemble(records, names, StrategyAny, nil)
			require.NoError(t, err)
			require.Len(t, anyOut, 1)
			assert.InDelta(t, tt.wantAny, anyOut[0].Value, 0)
		})
	}
}

func TestEnsemble_Averages(t *testing.T) {
	records := []domain.ScoreRecord{
		rec(t, "g2", "a", 0.2), rec(t, "g2", "b", 0.6),
		rec(t, "g1", "a", 1), rec(t, "g1", "b", 0),
	}
	names := []string{"a", "b"}

	avg, err := Ensemble(records, names, StrategyAverage, nil)
	require.NoError(t, err)
	require.Len(t, avg, 2)
	assert.Equal(t, "g1", avg[0].GenerationID)
	assert.InDelta(t, 0.5, avg[0].Value, 1e-12)
	assert.False(t, avg[0].Success)
	assert.InDelta(t, 0.4, avg[1].Value, 1e-12)
	assert.Equal(t, "ensemble:average:a-b", avg[0].EvaluatorName)
	assert.Equal(t, "faithfulness", avg[0].Axis)

	weighted, err := Ensemble(records, names, StrategyWeightedAverage, map[string]float64{"a": 3, "b": 1})
	require.NoError(t, err)
	require.Len(t, weighted, 2)
	assert.InDelta(t, 0.75, weighted[0].Value, 1e-12)
	assert.True(t, weighted[0].Success)
	assert.InDelta(t, 0.3, weighted[1].Value, 1e-12)
	assert.Equal(t, "ensemble:weighted_average:a-b", weighted[0].EvaluatorName)
}

func TestEnsemble_SkipsIncompleteRowsAndAveragesDuplicates(t *testing.T) {
	records := []domain.ScoreRecord{
		rec(t, "g1", "a", 0.4), rec(t, "g1", "a", 0.8), rec(t, "g1", "b", 0.6),
		rec(t, "g2", "a", 1),
		rec(t, "g3", "b", 1), rec(t, "g3", "c", 1),
	}

	out, err := Ensemble(records, []string{"a", "b"}, StrategyAverage, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "g1", out[0].GenerationID)
	assert.InDelta(t, 0.6, out[0].Value, 1e-12)
}

func TestEnsemble_PreconditionErrors(t *testing.T) {
	mixed := []domain.ScoreRecord{rec(t, "g1", "a", 1)}
	other, err := domain.NewScoreRecord("g1", "formatting", "b", 1, true, nil)
	require.NoError(t, err)
	mixed = append(mixed, other)

	_, err = Ensemble(mixed, []string{"a", "b"}, StrategyAverage, nil)
	require.ErrorIs(t, err, ErrMixedAxes)

	records := []domain.ScoreRecord{rec(t, "g1", "a", 1), rec(t, "g1", "b", 0)}
	_, err = Ensemble(records, []string{"a", "b"}, StrategyWeightedAverage, nil)
	require.ErrorIs(t, err, ErrMissingWeights)

	_, err = Ensemble(records, []string{"a", "b"}, StrategyWeightedAverage, map[string]float64{"a": 1})
	require.ErrorIs(t, err, ErrMissingWeights)

	_, err = Ensemble(records, []string{"a", "b"}, StrategyWeightedAverage, map[string]float64{"a": 0, "b": 0})
	require.ErrorIs(t, err, ErrMissingWeights)

	_, err = Ensemble(records, []string{"a", "b"}, Strategy("median"), nil)
	require.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = Ensemble(records, []string{"a"}, StrategyAll, nil)
	require.ErrorIs(t, err, ErrTooFewEvaluators)

	// Configuration errors surface even with no records.
	_, err = Ensemble(nil, []string{"a", "b"}, StrategyWeightedAverage, nil)
	require.ErrorIs(t, err, ErrMissingWeights)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("WEIGHTED_AVERAGE")
	require.NoError(t, err)
	assert.Equal(t, StrategyWeightedAverage, s)

	_, err = ParseStrategy("vote")
	require.ErrorIs(t, err, ErrUnknownStrategy)
}
