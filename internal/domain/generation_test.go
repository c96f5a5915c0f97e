package domain //nolint:testpackage // Need access to unexported helpers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestGeneration_UnmarshalNested(t *testing.T) {
	raw := `{
		"uuid": "gen-42",
		"rag_request": {"query": "What is the target?", "document_id": "doc-1"},
		"rag_response": {
			"text": "The target is net zero [0].",
			"retrieved_documents": [
				{"page_content": "net zero by 2050", "metadata": {"page": 3}},
				{"page_content": "other"}
			]
		}
	}`

	var g Generation
	require.NoError(t, json.Unmarshal([]byte(raw), &g))

	assert.Equal(t, "gen-42", g.ID)
	assert.Equal(t, "What is the target?", g.Query)
	assert.Equal(t, "doc-1", g.DocumentID)
	assert.True(t, g.HasResponse)
	require.Len(t, g.Passages, 2)
	assert.Equal(t, "net zero by 2050", g.Passages[0].Text)
	assert.InDelta(t, 3.0, g.Passages[0].Metadata["page"], 0)
	require.NoError(t, g.Validate())
}

func TestGeneration_UnmarshalWithoutResponse(t *testing.T) {
	raw := `{"rag_request": {"query": "q", "document_id": "d"}, "rag_response": null}`

	var g Generation
	require.NoError(t, json.Unmarshal([]byte(raw), &g))

	assert.False(t, g.HasResponse)
	assert.Empty(t, g.Answer())
	assert.NotEmpty(t, g.ID, "id derived when uuid is missing")

	again := NewGeneration("", "q", "d", nil, nil)
	assert.Equal(t, again.ID, g.ID, "derived ids are deterministic")

	withAnswer := NewGeneration("", "q", "d", strPtr("None!"), nil)
	assert.NotEqual(t, g.ID, withAnswer.ID)
}

func TestGeneration_UnmarshalFlat(t *testing.T) {
	raw := `{"id": "flat-1", "query": "q", "answer": "a [0]", "passages": [{"page_content": "p"}]}`

	var g Generation
	require.NoError(t, json.Unmarshal([]byte(raw), &g))
	assert.Equal(t, "flat-1", g.ID)
	assert.Equal(t, "a [0]", g.AnswerText)
	assert.True(t, g.HasResponse)
	assert.Len(t, g.Passages, 1)
}

func TestGeneration_RoundTrip(t *testing.T) {
	g := NewGeneration("id-1", "q", "d", strPtr("answer"), []Passage{{Text: "p1"}})

	b, err := json.Marshal(g)
	require.NoError(t, err)

	var back Generation
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, g, back)
}

func TestGeneration_Answer(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		want      string
		monologue string
	}{
		{name: "plain", text: "Just an answer.", want: "Just an answer."},
		{
			name:      "inner monologue stripped",
			text:      "#COT# thinking about it #/COT# The answer [1].",
			want:      " The answer [1].",
			monologue: " thinking about it ",
		},
		{name: "unclosed marker kept", text: "#COT# oops", want: "#COT# oops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGeneration("id", "q", "", strPtr(tt.text), nil)
			assert.Equal(t, tt.want, g.Answer())
			assert.Equal(t, tt.monologue, g.InnerMonologue())
		})
	}
}

func TestGeneration_PassagesString(t *testing.T) {
	g := NewGeneration("id", "q", "", strPtr("a"), []Passage{{Text: "first"}, {Text: "second"}})
	assert.Equal(t, "[1]: first\n[2]: second", g.PassagesString())
}

func TestGeneration_Citations(t *testing.T) {
	g := NewGeneration("id", "q", "", strPtr("Claim one [0]. Claim two [1, 7]. Claim three [9]."),
		[]Passage{{Text: "a"}, {Text: "b"}, {Text: "c"}})

	cites := g.Citations()
	require.Len(t, cites, 3)
	assert.True(t, cites[0].Cited)
	assert.True(t, cites[1].Cited)
	assert.False(t, cites[2].Cited)
	assert.Equal(t, "c", cites[2].Text)

	assert.Equal(t, []int{7, 9}, g.FictitiousCitations())
	assert.Len(t, g.CitationNumbers(), 3)
}

func TestCitationGroups(t *testing.T) {
	assert.Equal(t, [][]int{{2}, {2, 5}, {}}, CitationGroups("x [2] y [2, 5] z []"))
	assert.Empty(t, CitationGroups("no brackets [a]"))
}
