package prompt

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/fitplan/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	// NoContext is the context section used when nothing was retrieved
	NoContext = "No previous context available."

	unknownDate = "unknown"
)

//go:embed templates/default.md
var defaultPromptRaw string

var defaultPromptTmpl = template.Must(template.New("default").Option("missingkey=error").Parse(defaultPromptRaw))

// Default is the prompt template used when no model specific one is configured
var Default model.PromptTemplate = fromTemplate(defaultPromptTmpl)

// Data is the value templates are executed with
type Data struct {
	// Context is the rendered context section, or NoContext
	Context string
	// Documents holds the individual rendered context lines
	Documents []string
	Goal      string
	Input     string
}

// Build renders a prompt with tmpl, using Default when tmpl is nil
func Build(tmpl model.PromptTemplate, docs []*model.RagContextDocument, goal, input string) string {
	if tmpl == nil {
		tmpl = Default
	}
	return tmpl(docs, goal, input)
}

// Parse compiles a text/template into a PromptTemplate. The template is
// executed once with sample data so that field errors surface here and not
// while serving requests.
func Parse(name, text string) (model.PromptTemplate, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse prompt template", goerr.V("name", name))
	}

	now := time.Now()
	sample := []*model.RagContextDocument{
		{Content: "sample", Metadata: model.ContextMetadata{CreatedAt: &now}},
	}
	if _, err := execute(tmpl, sample, "goal", "input"); err != nil {
		return nil, goerr.Wrap(err, "failed to execute prompt template", goerr.V("name", name))
	}

	return fromTemplate(tmpl), nil
}

func fromTemplate(tmpl *template.Template) model.PromptTemplate {
	return func(docs []*model.RagContextDocument, goal, input string) string {
		out, err := execute(tmpl, docs, goal, input)
		if err != nil {
			logging.Default().Warn("prompt template failed, using default",
				"template", tmpl.Name(), "documents", len(docs), "error", err)
			out, _ = execute(defaultPromptTmpl, docs, goal, input)
		}
		return out
	}
}

func execute(tmpl *template.Template, docs []*model.RagContextDocument, goal, input string) (string, error) {
	lines := RenderDocuments(docs)
	data := Data{
		Context:   NoContext,
		Documents: lines,
		Goal:      goal,
		Input:     input,
	}
	if len(lines) > 0 {
		data.Context = strings.Join(lines, "\n")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderDocuments renders each context document as "- <content> (<date>)"
func RenderDocuments(docs []*model.RagContextDocument) []string {
	lines := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		lines = append(lines, "- "+strings.TrimSpace(doc.Content)+" ("+DateOf(doc.Metadata)+")")
	}
	return lines
}

// DateOf returns the date annotation of a context document: created_at,
// then timestamp, then "unknown"
func DateOf(meta model.ContextMetadata) string {
	switch {
	case meta.CreatedAt != nil && !meta.CreatedAt.IsZero():
		return meta.CreatedAt.Format(time.DateOnly)
	case meta.Timestamp != nil && !meta.Timestamp.IsZero():
		return meta.Timestamp.Format(time.DateOnly)
	default:
		return unknownDate
	}
}
