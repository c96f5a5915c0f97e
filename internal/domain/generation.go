package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	cotOpen  = "#COT#"
	cotClose = "#/COT#"

	// missingResponse is substituted for the answer when deriving an id for
	// a generation without a response object.
	missingResponse = "None"
)

var (
	citationGroupRE = regexp.MustCompile(`\[[\d,\s]*\]`)
	digitsRE        = regexp.MustCompile(`\d+`)
)

// Passage is a retrieved source text shown to the answering model.
type Passage struct {
	Text     string         `json:"page_content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Generation is one question/answer pair produced by the upstream RAG pipeline.
// A generation without a response object (HasResponse false) is still scored
// by evaluators that define a value for the no-response case.
type Generation struct {
	ID          string    `validate:"required"`
	Query       string    `validate:"required"`
	DocumentID  string
	AnswerText  string
	HasResponse bool
	Passages    []Passage
}

// NewGeneration builds a generation, deriving a deterministic id when id is empty.
func NewGeneration(id, query, documentID string, answer *string, passages []Passage) Generation {
	g := Generation{
		ID:         id,
		Query:      query,
		DocumentID: documentID,
		Passages:   clonePassages(passages),
	}
	if answer != nil {
		g.AnswerText = *answer
		g.HasResponse = true
	}
	if g.ID == "" {
		g.ID = g.derivedID()
	}
	return g
}

// Validate checks the generation has an id and a query.
func (g Generation) Validate() error {
	if err := validate.Struct(g); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGeneration, err)
	}
	return nil
}

// derivedID hashes query, response text and document id into a stable UUID.
func (g Generation) derivedID() string {
	resp := missingResponse
	if g.HasResponse {
		resp = g.AnswerText
	}
	name := strings.Join([]string{g.Query, resp, g.DocumentID}, "_")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// Answer returns the answer text with any #COT#...#/COT# inner monologue removed.
func (g Generation) Answer() string {
	if !g.HasResponse {
		return ""
	}
	if strings.Contains(g.AnswerText, cotOpen) && strings.Contains(g.AnswerText, cotClose) {
		return strings.Split(g.AnswerText, cotClose)[1]
	}
	return g.AnswerText
}

// InnerMonologue returns the text between #COT# and #/COT#, or "" when absent.
func (g Generation) InnerMonologue() string {
	if !strings.Contains(g.AnswerText, cotOpen) || !strings.Contains(g.AnswerText, cotClose) {
		return ""
	}
	return strings.Split(strings.Split(g.AnswerText, cotOpen)[1], cotClose)[0]
}

// PassagesString renders passages as "[i]: text" lines, numbered from 1.
func (g Generation) PassagesString() string {
	lines := make([]string, len(g.Passages))
	for i, p := range g.Passages {
		lines[i] = fmt.Sprintf("[%d]: %s", i+1, p.Text)
	}
	return strings.Join(lines, "\n")
}

// CitationNumbers returns the set of citation numbers that refer to a real passage.
func (g Generation) CitationNumbers() map[int]struct{} {
	nums := make(map[int]struct{}, len(g.Passages))
	for i := range g.Passages {
		nums[i] = struct{}{}
	}
	return nums
}

// Citation records whether one passage was referenced by the answer.
type Citation struct {
	Index int    `json:"index"`
	Cited bool   `json:"cited"`
	Text  string `json:"text"`
}

// Citations reports, per retrieved passage, whether the answer cites it.
func (g Generation) Citations() []Citation {
	cited := make(map[int]bool)
	for _, group := range CitationGroups(g.Answer()) {
		for _, n := range group {
			cited[n] = true
		}
	}

	out := make([]Citation, len(g.Passages))
	for i, p := range g.Passages {
		out[i] = Citation{Index: i, Cited: cited[i], Text: p.Text}
	}
	return out
}

// FictitiousCitations returns cited numbers that do not refer to any passage, ascending.
func (g Generation) FictitiousCitations() []int {
	valid := g.CitationNumbers()
	seen := make(map[int]struct{})
	var out []int
	for _, group := range CitationGroups(g.Answer()) {
		for _, n := range group {
			if _, ok := valid[n]; ok {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

// CitationGroups extracts every bracketed numeric group ("[2]", "[2, 5]") in text.
// Empty brackets yield an empty group.
func CitationGroups(text string) [][]int {
	matches := citationGroupRE.FindAllString(text, -1)
	groups := make([][]int, 0, len(matches))
	for _, m := range matches {
		groups = append(groups, parseDigits(m))
	}
	return groups
}

func parseDigits(s string) []int {
	raw := digitsRE.FindAllString(s, -1)
	nums := make([]int, 0, len(raw))
	for _, d := range raw {
		n, err := strconv.Atoi(d)
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	return nums
}

func clonePassages(ps []Passage) []Passage {
	if ps == nil {
		return nil
	}
	out := make([]Passage, len(ps))
	for i, p := range ps {
		out[i] = Passage{Text: p.Text, Metadata: cloneMetadata(p.Metadata)}
	}
	return out
}

// ragRequest and ragResponse mirror the pipeline's nested wire form.
type ragRequest struct {
	Query      string `json:"query"`
	DocumentID string `json:"document_id"`
}

type ragResponse struct {
	Text               string    `json:"text"`
	RetrievedDocuments []Passage `json:"retrieved_documents"`
}

type generationWire struct {
	UUID        string       `json:"uuid,omitempty"`
	RAGRequest  *ragRequest  `json:"rag_request,omitempty"`
	RAGResponse *ragResponse `json:"rag_response"`

	// Flat form fields.
	ID       string    `json:"id,omitempty"`
	Query    string    `json:"query,omitempty"`
	Answer   *string   `json:"answer,omitempty"`
	Passages []Passage `json:"passages,omitempty"`
}

// MarshalJSON encodes the generation in the pipeline's nested form.
func (g Generation) MarshalJSON() ([]byte, error) {
	w := generationWire{
		UUID:       g.ID,
		RAGRequest: &ragRequest{Query: g.Query, DocumentID: g.DocumentID},
	}
	if g.HasResponse {
		w.RAGResponse = &ragResponse{Text: g.AnswerText, RetrievedDocuments: g.Passages}
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts either the nested pipeline form
// ({"uuid", "rag_request", "rag_response"}) or the flat form
// ({"id", "query", "answer", "passages"}).
func (g *Generation) UnmarshalJSON(data []byte) error {
	var w generationWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGeneration, err)
	}

	if w.RAGRequest != nil {
		var answer *string
		var passages []Passage
		if w.RAGResponse != nil {
			answer = &w.RAGResponse.Text
			passages = w.RAGResponse.RetrievedDocuments
		}
		*g = NewGeneration(w.UUID, w.RAGRequest.Query, w.RAGRequest.DocumentID, answer, passages)
		return nil
	}

	id := w.ID
	if id == "" {
		id = w.UUID
	}
	*g = NewGeneration(id, w.Query, "", w.Answer, w.Passages)
	return nil
}

// GenerationLine is one line of a generations NDJSON file.
type GenerationLine struct {
	Generation Generation `json:"generation"`
}
