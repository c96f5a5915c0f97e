package evaluator

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var promptTemplates = template.Must(template.New("prompts").Option("missingkey=error").ParseFS(templateFS, "templates/*.tmpl"))

// Template file names.
const (
	tmplFaithfulness = "faithfulness.tmpl"
	tmplPolicy       = "policy.tmpl"
	tmplRulePolicy   = "rule_policy.tmpl"
	tmplCoherence    = "coherence.tmpl"
	tmplLynx         = "lynx.tmpl"
)

// promptData is the set of fields judge templates may reference.
type promptData struct {
	Query   string
	Context string
	Answer  string
	Policy  string
	Rule    string
}

func renderPrompt(name string, data promptData) (string, error) {
	var sb strings.Builder
	if err := promptTemplates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return sb.String(), nil
}
