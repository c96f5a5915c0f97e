package evaluator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRating(t *testing.T) {
	tests := []struct {
		raw     string
		rating  int
		outcome ParseOutcome
	}{
		{raw: "4", rating: 4, outcome: ParseOK},
		{raw: "  5\n", rating: 5, outcome: ParseOK},
		{raw: "Faithfulness: 3", rating: 3, outcome: ParseFallback},
		{raw: "- Coherence: 2 (some sentences are out of order)", rating: 2, outcome: ParseFallback},
		{raw: "no rating here", outcome: ParseFailed},
		{raw: "", outcome: ParseFailed},
		{raw: "0", outcome: ParseFailed},
		{raw: "9", outcome: ParseFailed},
		{raw: "Score: 10/10", outcome: ParseFailed},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.raw), func(t *testing.T) {
			res := ParseRating(tt.raw)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, tt.outcome != ParseFailed, res.OK())
			if res.OK() {
				assert.Equal(t, tt.rating, res.Rating)
			}
		})
	}
}

func TestNormalizeRating(t *testing.T) {
	want := map[int]float64{1: 0.0, 2: 0.25, 3: 0.5, 4: 0.75, 5: 1.0}
	for r, v := range want {
		assert.InDelta(t, v, NormalizeRating(r), 1e-12, "rating %d", r)
	}
}

func TestGEvalFaithfulness_Evaluate(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		value   float64
		success bool
	}{
		{name: "top rating", output: "5", value: 1, success: true},
		{name: "threshold", output: "4.", value: 0.75, success: false},
		{name: "midpoint", output: "Faithfulness: 3", value: 0.5, success: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &scriptedModel{responses: []string{tt.output}}
			ev, err := NewGEvalFaithfulness(Dependencies{Model: model})
			require.NoError(t, err)

			gen := newGeneration("#COT#thinking about sources#/COT#Sea levels rose [0].", "Sea levels rose.")
			recs, err := ev.Evaluate(context.Background(), gen)
			require.NoError(t, err)
			require.Len(t, recs, 1)

			rec := recs[0]
			assert.InDelta(t, tt.value, rec.Value, 1e-12)
			assert.Equal(t, tt.success, rec.Success)
			assert.Equal(t, AxisFaithfulnessGemini, rec.Axis)
			assert.Equal(t, "g_eval", rec.EvaluatorName)

			require.Len(t, model.prompts, 1)
			prompt := model.prompts[0]
			assert.Contains(t, prompt, gen.Query)
			assert.Contains(t, prompt, "[1]: Sea levels rose.")
			assert.Contains(t, prompt, "Sea levels rose [0].")
			assert.NotContains(t, prompt, "thinking about sources", "inner monologue is stripped")
		})
	}
}

func TestGEval_UnparseableOutputIsAbsent(t *testing.T) {
	model := &scriptedModel{responses: []string{"I would rather not rate this."}}
	ev, err := NewCoherence(Dependencies{Model: model})
	require.NoError(t, err)

	recs, err := ev.Evaluate(context.Background(), newGeneration("An answer."))
	require.NoError(t, err)
	assert.Nil(t, recs)
}

func TestGEval_ModelErrorPropagates(t *testing.T) {
	boom := errors.New("provider unavailable")
	ev, err := NewGEvalFaithfulness(Dependencies{Model: &scriptedModel{err: boom}})
	require.NoError(t, err)

	recs, err := ev.Evaluate(context.Background(), newGeneration("An answer."))
	require.ErrorIs(t, err, boom)
	assert.Nil(t, recs)
}

func TestGEval_NoResponseIsAbsent(t *testing.T) {
	model := &scriptedModel{responses: []string{"5"}}
	ev, err := NewCoherence(Dependencies{Model: model})
	require.NoError(t, err)

	recs, err := ev.Evaluate(context.Background(), newGenerationWithoutResponse())
	require.NoError(t, err)
	assert.Nil(t, recs)
	assert.Empty(t, model.prompts, "no judge call without a response")
}

func TestGEvalPolicy_IncludesPolicyText(t *testing.T) {
	model := &scriptedModel{responses: []string{"5"}}
	ev, err := NewGEvalPolicy(Dependencies{Model: model, PolicyText: "Never speculate about intent."})
	require.NoError(t, err)

	recs, err := ev.Evaluate(context.Background(), newGeneration("An answer."))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, AxisPolicy, recs[0].Axis)
	assert.True(t, recs[0].Success)
	assert.Contains(t, model.prompts[0], "Never speculate about intent.")
}

func TestSplitPolicyRules(t *testing.T) {
	policy := "The assistant must follow these rules:\n- Cite every claim.\n- Do not give legal advice.\n- Stay neutral."
	assert.Equal(t, []string{"Cite every claim.", "Do not give legal advice.", "Stay neutral."}, SplitPolicyRules(policy))
	assert.Nil(t, SplitPolicyRules("no bullets at all"))
}

func TestRuleLevelPolicy_Evaluate(t *testing.T) {
	policy := "Rules:\n- Cite every claim.\n- Do not give legal advice.\n- Stay neutral."
	model := &scriptedModel{responses: []string{"5", "unsure", "2"}}
	ev, err := NewRuleLevelPolicy(Dependencies{Model: model, PolicyText: policy})
	require.NoError(t, err)

	recs, err := ev.Evaluate(context.Background(), newGeneration("An answer."))
	require.NoError(t, err)
	require.Len(t, recs, 2, "the unparseable rule is skipped")

	assert.Equal(t, "g_eval-rule-0", recs[0].EvaluatorName)
	assert.InDelta(t, 1.0, recs[0].Value, 0)
	assert.True(t, recs[0].Success)
	assert.Equal(t, "g_eval-rule-2", recs[1].EvaluatorName)
	assert.InDelta(t, 0.25, recs[1].Value, 0)
	assert.False(t, recs[1].Success)

	require.Len(t, model.prompts, 3)
	assert.Contains(t, model.prompts[1], "Do not give legal advice.")
	assert.NotContains(t, model.prompts[1], "Stay neutral.")
}

func TestRuleLevelPolicy_RequiresRules(t *testing.T) {
	_, err := NewRuleLevelPolicy(Dependencies{Model: &scriptedModel{}, PolicyText: "one paragraph policy"})
	require.ErrorIs(t, err, ErrMissingDependency)
}
