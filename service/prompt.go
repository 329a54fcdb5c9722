package service

import (
	"bytes"
	"embed"
	"io/fs"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/MilkTeaCat52/INVSC/exception"
)

//go:embed prompts/*.tmpl
var embeddedPrompts embed.FS

const (
	analysisSystemTemplate  = "analysis_system.tmpl"
	analysisTemplate        = "analysis.tmpl"
	judgementSystemTemplate = "judgement_system.tmpl"
	judgementTemplate       = "judgement.tmpl"
	rubricTemplate          = "rubric.tmpl"
)

type PromptBuilder interface {
	AnalysisSystemPrompt() (string, error)
	BuildAnalysisPrompt(sourceText string) (string, error)
	JudgementSystemPrompt() (string, error)
	CalibrationRubric() (string, error)
	BuildJudgementPrompt(calibrationRules string) (string, error)
}

// NewPromptBuilder reads templates from the prompts embedded in the binary.
func NewPromptBuilder() PromptBuilder {
	sub, err := fs.Sub(embeddedPrompts, "prompts")
	if err != nil {
		// embedded directory is fixed at build time
		panic(err)
	}
	return NewPromptBuilderFS(sub, "")
}

// NewPromptBuilderFS reads templates from templates. language tags the code
// fence around the submitted source and may be empty.
func NewPromptBuilderFS(templates fs.FS, language string) PromptBuilder {
	return &promptBuilderImpl{templates: templates, language: language}
}

type promptBuilderImpl struct {
	templates fs.FS
	language  string
}

type analysisData struct {
	Language string
	Source   string
}

type judgementData struct {
	Rubric string
}

func (p promptBuilderImpl) AnalysisSystemPrompt() (string, error) {
	return p.render(analysisSystemTemplate, nil)
}

func (p promptBuilderImpl) BuildAnalysisPrompt(sourceText string) (string, error) {
	return p.render(analysisTemplate, analysisData{Language: p.language, Source: sourceText})
}

func (p promptBuilderImpl) JudgementSystemPrompt() (string, error) {
	return p.render(judgementSystemTemplate, nil)
}

func (p promptBuilderImpl) CalibrationRubric() (string, error) {
	return p.render(rubricTemplate, nil)
}

func (p promptBuilderImpl) BuildJudgementPrompt(calibrationRules string) (string, error) {
	return p.render(judgementTemplate, judgementData{Rubric: calibrationRules})
}

// WithLanguage returns a builder over the same templates whose analysis
// prompt fences the source as language.
func WithLanguage(builder PromptBuilder, language string) PromptBuilder {
	if impl, ok := builder.(*promptBuilderImpl); ok {
		return &promptBuilderImpl{templates: impl.templates, language: language}
	}
	return builder
}

func (p promptBuilderImpl) render(name string, data interface{}) (string, error) {
	raw, err := fs.ReadFile(p.templates, name)
	if err != nil {
		return "", templateUnavailable(name, err)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return "", templateUnavailable(name, err)
	}
	var buf bytes.Buffer
	if err = tmpl.Execute(&buf, data); err != nil {
		return "", templateUnavailable(name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func templateUnavailable(name string, err error) error {
	return &exception.CustomError{
		Code:    exception.TemplateUnavailable,
		Message: exception.TemplateUnavailableMsg,
		Params:  map[string]interface{}{"template": name},
		Debug:   err.Error(),
		Cause:   err,
	}
}

var sourceLanguages = map[string]string{
	".scala": "scala",
	".sc":    "scala",
	".java":  "java",
	".kt":    "kotlin",
	".go":    "go",
	".py":    "python",
	".hs":    "haskell",
	".ml":    "ocaml",
	".c":     "c",
	".cpp":   "cpp",
	".rs":    "rust",
}

// LanguageForPath guesses the code fence language from a file extension.
func LanguageForPath(path string) string {
	return sourceLanguages[strings.ToLower(filepath.Ext(path))]
}
