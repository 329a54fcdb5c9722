package service

import (
	"testing"
	"testing/fstest"

	"github.com/MilkTeaCat52/INVSC/exception"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `object Main {
  def log3(x: Int): Int = {
    var n = 0; var nx = x
    // Invariant: 3^n * nx <= x
    while (nx >= 3) { nx = nx / 3; n += 1 }
    // Variant: nx
    n
  }
}`

func TestBuildAnalysisPrompt_InsertsSourceVerbatim(t *testing.T) {
	builder := NewPromptBuilder()

	prompt, err := builder.BuildAnalysisPrompt(sampleSource)
	require.NoError(t, err)

	assert.Contains(t, prompt, sampleSource)
	for _, step := range []string{
		"CODE UNDERSTANDING",
		"IDENTIFY ANNOTATIONS",
		"COUNTEREXAMPLE SEARCH",
		"Initialisation",
		"Maintenance",
		"Termination use",
		"Domain validity",
		"strictly decreases on EVERY iteration",
		"CORRECT or INCORRECT",
		"Negative inputs",
		"Do NOT output JSON yet",
	} {
		assert.Contains(t, prompt, step)
	}
}

func TestBuildAnalysisPrompt_SourceWithTemplateSyntaxIsNotExpanded(t *testing.T) {
	source := `val s = "{{.Source}} {{ end }}"`
	prompt, err := NewPromptBuilder().BuildAnalysisPrompt(source)
	require.NoError(t, err)
	assert.Contains(t, prompt, source)
}

func TestWithLanguage_FencesSource(t *testing.T) {
	builder := WithLanguage(NewPromptBuilder(), LanguageForPath("Main.SCALA"))
	prompt, err := builder.BuildAnalysisPrompt(sampleSource)
	require.NoError(t, err)
	assert.Contains(t, prompt, "```scala\n"+sampleSource+"\n```")

	assert.Equal(t, "", LanguageForPath("notes"))
	assert.Equal(t, "go", LanguageForPath("/tmp/x/main.go"))
}

func TestBuildJudgementPrompt_CarriesRubricAndContract(t *testing.T) {
	builder := NewPromptBuilder()
	rubric, err := builder.CalibrationRubric()
	require.NoError(t, err)

	for _, token := range []string{"**alpha**", "**alpha-minus**", "**alpha-beta**", "**beta-alpha**", "**beta**", "**beta-gamma**", "**gamma-beta**", "**gamma**"} {
		assert.Contains(t, rubric, token)
	}

	prompt, err := builder.BuildJudgementPrompt(rubric)
	require.NoError(t, err)
	assert.Contains(t, prompt, rubric)
	assert.Contains(t, prompt, "Do not contradict your own findings")
	assert.Contains(t, prompt, `"grade": "alpha|alpha-minus|alpha-beta|beta-alpha|beta|beta-gamma|gamma-beta|gamma"`)
	assert.Contains(t, prompt, `"severity": "warning|error"`)
}

func TestSystemPrompts(t *testing.T) {
	builder := NewPromptBuilder()

	analysis, err := builder.AnalysisSystemPrompt()
	require.NoError(t, err)
	assert.Contains(t, analysis, "skeptical")
	assert.Contains(t, analysis, "WRONG until")

	judgement, err := builder.JudgementSystemPrompt()
	require.NoError(t, err)
	assert.Contains(t, judgement, "ONLY in valid JSON")
}

func TestPromptBuilder_TemplateUnavailable(t *testing.T) {
	builder := NewPromptBuilderFS(fstest.MapFS{}, "")

	_, err := builder.BuildAnalysisPrompt(sampleSource)
	require.Error(t, err)
	assert.True(t, exception.HasCode(err, exception.TemplateUnavailable))
	assert.Contains(t, err.Error(), analysisTemplate)

	_, err = builder.BuildJudgementPrompt("rubric")
	assert.True(t, exception.HasCode(err, exception.TemplateUnavailable))
}

func TestPromptBuilder_BrokenTemplateIsUnavailable(t *testing.T) {
	builder := NewPromptBuilderFS(fstest.MapFS{
		analysisTemplate: {Data: []byte("{{ .Source ")},
	}, "")

	_, err := builder.BuildAnalysisPrompt(sampleSource)
	assert.True(t, exception.HasCode(err, exception.TemplateUnavailable))
}

func TestPromptBuilder_OverrideDirectory(t *testing.T) {
	builder := NewPromptBuilderFS(fstest.MapFS{
		analysisTemplate:  {Data: []byte("Check this:\n{{.Source}}\n")},
		judgementTemplate: {Data: []byte("Rules:\n{{.Rubric}}")},
	}, "")

	prompt, err := builder.BuildAnalysisPrompt("x := 1")
	require.NoError(t, err)
	assert.Equal(t, "Check this:\nx := 1", prompt)

	prompt, err = builder.BuildJudgementPrompt("be kind")
	require.NoError(t, err)
	assert.Equal(t, "Rules:\nbe kind", prompt)
}
