package evaluator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/abadojack/whatlanggo"
	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"github.com/ahrav/go-ragscore/internal/domain"
)

// Formatting failure comments.
const (
	CommentQuotationsNotVerbatim = "quotations_not_verbatim"
	CommentNotEnglish            = "answer_not_english"
	CommentNoCitation            = "no_citation"
	CommentFictitiousCitation    = "fictitious_citation"
	CommentNoResponse            = "rag_response_is_none"
)

const (
	formattingRecordName = "rule_based"

	// Language detection is unreliable on short strings.
	minLanguageCheckLen = 50
	minSentenceLen      = 10
	// Characters inspected on each side of a sentence end for a citation group.
	citationWindow = 20
)

var (
	quotedSpanRE = regexp.MustCompile(`"([^"]*)"`)

	englishTokenizer = sync.OnceValues(func() (*sentences.DefaultSentenceTokenizer, error) {
		return english.NewSentenceTokenizer(nil)
	})
)

// Formatting runs deterministic checks on the raw answer: verbatim
// quotations, English language and per-sentence citations. The record is 1
// only if every check passes.
type Formatting struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

// NewFormatting loads the sentence tokenizer and returns the evaluator.
func NewFormatting() (*Formatting, error) {
	tok, err := englishTokenizer()
	if err != nil {
		return nil, fmt.Errorf("loading sentence tokenizer: %w", err)
	}
	return &Formatting{tokenizer: tok}, nil
}

// Name implements Evaluator.
func (f *Formatting) Name() string { return NameFormatting }

// Axis implements Evaluator.
func (f *Formatting) Axis() string { return AxisFormatting }

// Evaluate implements Evaluator.
func (f *Formatting) Evaluate(_ context.Context, gen domain.Generation) ([]domain.ScoreRecord, error) {
	if !gen.HasResponse {
		rec, err := domain.NewScoreRecord(gen.ID, AxisFormatting, formattingRecordName, 0, false,
			[]string{CommentNoResponse})
		if err != nil {
			return nil, err
		}
		return []domain.ScoreRecord{rec}, nil
	}

	answer := gen.AnswerText
	var comments []string
	if !QuotesVerbatim(answer, gen.PassagesString()) {
		comments = append(comments, CommentQuotationsNotVerbatim)
	}
	if !IsEnglish(answer) {
		comments = append(comments, CommentNotEnglish)
	}
	if c := f.CheckCitations(answer, gen.CitationNumbers()); c != "" {
		comments = append(comments, c)
	}

	value := 0.0
	if len(comments) == 0 {
		value = 1
	}
	rec, err := domain.NewScoreRecord(gen.ID, AxisFormatting, formattingRecordName, value, value == 1, comments)
	if err != nil {
		return nil, err
	}
	return []domain.ScoreRecord{rec}, nil
}

// QuotesVerbatim reports whether every double-quoted span in answer occurs,
// ignoring case, in source.
func QuotesVerbatim(answer, source string) bool {
	lowered := strings.ToLower(source)
	for _, m := range quotedSpanRE.FindAllStringSubmatch(answer, -1) {
		if !strings.Contains(lowered, strings.ToLower(m[1])) {
			return false
		}
	}
	return true
}

// IsEnglish reports whether answer is detected as English. Answers of at most
// 50 characters after trimming always pass.
func IsEnglish(answer string) bool {
	if len(strings.TrimSpace(answer)) <= minLanguageCheckLen {
		return true
	}
	return whatlanggo.Detect(answer).Lang == whatlanggo.Eng
}

// CheckCitations inspects the text around the end of each sentence for a
// bracketed citation group and returns the failure comment of the first
// offending sentence, or "" when every sentence is cited correctly.
//
// The first sentence may go uncited when it introduces a list (a colon near
// its end) and more sentences follow. Each group found must contain at least
// one number from valid.
func (f *Formatting) CheckCitations(answer string, valid map[int]struct{}) string {
	sents := f.tokenizer.Tokenize(answer)
	offset := 0
	for idx, s := range sents {
		end := sentenceEnd(answer, s.Text, &offset)
		if len(strings.TrimSpace(s.Text)) < minSentenceLen {
			continue
		}

		window := answer[max(0, end-citationWindow):min(len(answer), end+citationWindow)]
		groups := domain.CitationGroups(window)
		if len(groups) == 0 {
			if idx == 0 && strings.Contains(window, ":") && len(sents) > 1 {
				continue
			}
			return CommentNoCitation
		}
		for _, nums := range groups {
			if !intersects(nums, valid) {
				return CommentFictitiousCitation
			}
		}
	}
	return ""
}

// sentenceEnd locates text in answer at or after *offset and returns the byte
// position just past it, advancing *offset. Sentences the tokenizer rewrote
// are assumed to continue from the previous end.
func sentenceEnd(answer, text string, offset *int) int {
	trimmed := strings.TrimSpace(text)
	if pos := strings.Index(answer[*offset:], trimmed); pos >= 0 && trimmed != "" {
		*offset += pos + len(trimmed)
		return *offset
	}
	*offset = min(len(answer), *offset+len(text))
	return *offset
}

func intersects(nums []int, valid map[int]struct{}) bool {
	for _, n := range nums {
		if _, ok := valid[n]; ok {
			return true
		}
	}
	return false
}
