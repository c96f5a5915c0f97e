// Package evaluator implements the scoring units that grade one generation
// along a single quality axis, and the static registry that maps evaluator
// names to constructors.
//
// An evaluator returns zero or more score records. A nil slice with a nil
// error means the evaluator has no opinion on the generation (absent): the
// judge output could not be parsed, or the generation carries no response
// and the evaluator does not define a value for that case. Errors are
// reserved for failures of a collaborator (model call, external service).
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/ahrav/go-ragscore/internal/domain"
	"github.com/ahrav/go-ragscore/internal/llm"
)

// Registered evaluator names.
const (
	NameFormatting           = "formatting"
	NameSystemResponse       = "system_response"
	NameGEvalFaithfulness    = "g_eval_faithfulness"
	NameGEvalPolicy          = "g_eval_policy"
	NameGEvalRuleLevelPolicy = "g_eval_rule_level_policy"
	NameCoherence            = "coherence"
	NamePatronusLynx         = "patronus_lynx"
	NameVectara              = "vectara"
)

// Axes scored by the registered evaluators.
const (
	AxisFormatting         = "formatting"
	AxisSystemResponse     = "system_response"
	AxisFaithfulness       = "faithfulness"
	AxisFaithfulnessGemini = "faithfulness_gemini"
	AxisPolicy             = "cpr-generation-policy"
	AxisCoherence          = "coherence"
)

var (
	// ErrEvaluatorNotFound is returned by Registry.Get for an unregistered name.
	ErrEvaluatorNotFound = errors.New("no evaluator found")

	// ErrMissingDependency indicates an evaluator needs a collaborator that
	// was not supplied in Dependencies.
	ErrMissingDependency = errors.New("missing evaluator dependency")
)

// Evaluator scores generations on one axis.
type Evaluator interface {
	// Name is the registry key of the evaluator.
	Name() string
	// Axis is the quality dimension the evaluator scores.
	Axis() string
	// Evaluate returns the records for gen, or nil for no opinion.
	Evaluate(ctx context.Context, gen domain.Generation) ([]domain.ScoreRecord, error)
}

// Dependencies are the collaborators evaluators may need. Only the fields
// used by a given evaluator have to be set.
type Dependencies struct {
	Model llm.Completer
	// ModelErr records why Model could not be built. Model-backed evaluators
	// report it from Registry.Get so a misconfigured judge fails before any
	// generation is scored.
	ModelErr    error
	HTTPClient  *http.Client
	ExternalURL string
	PolicyText  string
	Logger      *slog.Logger
}

func (d Dependencies) logger(name string) *slog.Logger {
	l := d.Logger
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", "evaluator", "evaluator", name)
}

// judgeModel returns the model for judge evaluators or the reason there is none.
func (d Dependencies) judgeModel() (llm.Completer, error) {
	if d.ModelErr != nil {
		return nil, fmt.Errorf("%w: judge model: %w", ErrMissingDependency, d.ModelErr)
	}
	if d.Model == nil {
		return nil, fmt.Errorf("%w: judge model", ErrMissingDependency)
	}
	return d.Model, nil
}

func (d Dependencies) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return &http.Client{Timeout: defaultExternalTimeout}
}

const defaultExternalTimeout = 30 * time.Second

// Registration describes one evaluator in the registry.
type Registration struct {
	Name         string
	Axis         string
	QuestionType domain.QuestionType
	New          func(Dependencies) (Evaluator, error)
}

// registrations is the complete, static evaluator table.
var registrations = []Registration{
	{
		Name:         NameFormatting,
		Axis:         AxisFormatting,
		QuestionType: domain.QuestionCategorical,
		New:          func(Dependencies) (Evaluator, error) { return NewFormatting() },
	},
	{
		Name:         NameSystemResponse,
		Axis:         AxisSystemResponse,
		QuestionType: domain.QuestionCategorical,
		New:          func(Dependencies) (Evaluator, error) { return NewSystemResponse(), nil },
	},
	{
		Name:         NameGEvalFaithfulness,
		Axis:         AxisFaithfulnessGemini,
		QuestionType: domain.QuestionOrdinal,
		New:          NewGEvalFaithfulness,
	},
	{
		Name:         NameGEvalPolicy,
		Axis:         AxisPolicy,
		QuestionType: domain.QuestionOrdinal,
		New:          NewGEvalPolicy,
	},
	{
		Name:         NameGEvalRuleLevelPolicy,
		Axis:         AxisPolicy,
		QuestionType: domain.QuestionOrdinal,
		New:          NewRuleLevelPolicy,
	},
	{
		Name:         NameCoherence,
		Axis:         AxisCoherence,
		QuestionType: domain.QuestionOrdinal,
		New:          NewCoherence,
	},
	{
		Name:         NamePatronusLynx,
		Axis:         AxisFaithfulness,
		QuestionType: domain.QuestionCategorical,
		New:          NewLynx,
	},
	{
		Name:         NameVectara,
		Axis:         AxisFaithfulness,
		QuestionType: domain.QuestionCategorical,
		New:          NewVectara,
	},
}

// Registry resolves evaluator names to configured evaluators.
// It is read-only after construction and safe for concurrent use.
type Registry struct {
	deps    Dependencies
	entries map[string]Registration
}

// NewRegistry builds the registry over the static evaluator table.
func NewRegistry(deps Dependencies) *Registry {
	entries := make(map[string]Registration, len(registrations))
	for _, r := range registrations {
		entries[r.Name] = r
	}
	return &Registry{deps: deps, entries: entries}
}

// Get constructs the evaluator registered under name.
func (r *Registry) Get(name string) (Evaluator, error) {
	reg, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEvaluatorNotFound, name)
	}
	ev, err := reg.New(r.deps)
	if err != nil {
		return nil, fmt.Errorf("constructing evaluator %s: %w", name, err)
	}
	return ev, nil
}

// Registration returns the table entry for name.
func (r *Registry) Registration(name string) (Registration, bool) {
	reg, ok := r.entries[name]
	return reg, ok
}

// Names lists the registered evaluator names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve turns a list of selectors into evaluators. A selector is either an
// evaluator name or an axis, which selects every evaluator on that axis in
// table order. Duplicates are removed, first occurrence wins.
func (r *Registry) Resolve(selectors []string) ([]Evaluator, error) {
	var names []string
	seen := make(map[string]struct{})
	add := func(name string) {
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	for _, sel := range selectors {
		if _, ok := r.entries[sel]; ok {
			add(sel)
			continue
		}
		matched := false
		for _, reg := range registrations {
			if reg.Axis == sel {
				add(reg.Name)
				matched = true
			}
		}
		if !matched {
			return nil, fmt.Errorf("%w: %s", ErrEvaluatorNotFound, sel)
		}
	}

	evaluators := make([]Evaluator, 0, len(names))
	for _, name := range names {
		ev, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		evaluators = append(evaluators, ev)
	}
	return evaluators, nil
}
