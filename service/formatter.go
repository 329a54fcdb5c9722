package service

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/MilkTeaCat52/INVSC/view"
	"github.com/charmbracelet/lipgloss"
)

const ruleWidth = 60

type FormatterService interface {
	Render(w io.Writer, result *view.JudgementResult, filename string) int
	RenderAnalysis(w io.Writer, analysis string)
	RenderJSON(w io.Writer, result *view.JudgementResult, filename string) (int, error)
	ExitCode(grade view.Grade) int
}

func NewFormatterService(noColor bool) FormatterService {
	return &formatterServiceImpl{noColor: noColor}
}

type formatterServiceImpl struct {
	noColor bool
}

func (f formatterServiceImpl) ExitCode(grade view.Grade) int {
	if grade.IsPassing() {
		return 0
	}
	return 1
}

func (f formatterServiceImpl) Render(w io.Writer, result *view.JudgementResult, filename string) int {
	r := lipgloss.NewRenderer(w)
	bold := f.style(r, "").Bold(true)
	warnStyle := f.style(r, "11")
	errStyle := f.style(r, "9")
	gradeStyle := f.style(r, gradeColor(result.Grade)).Bold(true)

	if len(result.Warnings) == 0 {
		fmt.Fprintln(w, f.style(r, "10").Render("No warnings. Immaculate."))
	}
	for _, warning := range result.Warnings {
		loc := filename
		if warning.Line != nil {
			loc = fmt.Sprintf("%s:%d", filename, *warning.Line)
		}
		tag := warnStyle.Render("warning:")
		if warning.Severity == view.SeverityError {
			tag = errStyle.Render("error:")
		}
		fmt.Fprintf(w, "%s %s %s\n", bold.Render(loc+":"), tag, warning.Message)
	}

	if result.Summary != "" {
		fmt.Fprintf(w, "\n%s %s\n", bold.Render("Tutor's remarks:"), result.Summary)
	}

	rule := strings.Repeat("─", ruleWidth)
	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintln(w, gradeStyle.Render(fmt.Sprintf("  Grade: %s (%s), %s", result.Grade.Symbol(), result.Grade.Title(), result.Grade.Class())))
	for _, line := range gradeVerdict(result.Grade) {
		fmt.Fprintln(w, gradeStyle.Render("  "+line))
	}
	fmt.Fprintf(w, "%s\n\n", rule)

	fmt.Fprintln(w, bold.Render(fmt.Sprintf("Compiling %s...", filename)))
	if result.Grade.IsPassing() {
		fmt.Fprintln(w, f.style(r, "10").Render("✓ Invariant check passed."))
	} else {
		fmt.Fprintln(w, errStyle.Render("✗ Compilation FAILED. Grade too low."))
		fmt.Fprintln(w, errStyle.Render(fmt.Sprintf("  invsc: error: code does not meet minimum invariant standards (need %s or above)", view.GradeAlphaBeta.Symbol())))
	}

	return f.ExitCode(result.Grade)
}

func (f formatterServiceImpl) RenderAnalysis(w io.Writer, analysis string) {
	r := lipgloss.NewRenderer(w)
	rule := f.style(r, "12").Render(strings.Repeat("─", ruleWidth))
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, f.style(r, "").Bold(true).Render("Examiner's analysis (chain-of-thought):"))
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, analysis)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
}

type jsonReport struct {
	File string `json:"file,omitempty"`
	*view.JudgementResult
}

func (f formatterServiceImpl) RenderJSON(w io.Writer, result *view.JudgementResult, filename string) (int, error) {
	data, err := json.MarshalIndent(jsonReport{File: filename, JudgementResult: result}, "", "  ")
	if err != nil {
		return 1, err
	}
	if _, err = fmt.Fprintln(w, string(data)); err != nil {
		return 1, err
	}
	return f.ExitCode(result.Grade), nil
}

func (f formatterServiceImpl) style(r *lipgloss.Renderer, color string) lipgloss.Style {
	s := r.NewStyle()
	if f.noColor || color == "" {
		return s
	}
	return s.Foreground(lipgloss.Color(color))
}

func gradeColor(grade view.Grade) string {
	switch grade {
	case view.GradeAlpha, view.GradeAlphaMinus:
		return "10"
	case view.GradeAlphaBeta, view.GradeBetaAlpha:
		return "11"
	case view.GradeBeta, view.GradeBetaGamma:
		return "9"
	case view.GradeGammaBeta, view.GradeGamma:
		return "13"
	}
	return ""
}

func gradeVerdict(grade view.Grade) []string {
	switch grade {
	case view.GradeAlpha:
		return []string{"Your tutor would be proud. Compilation permitted."}
	case view.GradeAlphaMinus:
		return []string{"Nearly flawless. One could quibble, but one shan't. Compilation permitted."}
	case view.GradeAlphaBeta:
		return []string{"Acceptable, though one expected better. Compilation permitted."}
	case view.GradeBetaAlpha:
		return []string{"Showing promise, but not enough. COMPILATION REFUSED."}
	case view.GradeBeta:
		return []string{"This is beneath you. COMPILATION REFUSED."}
	case view.GradeBetaGamma:
		return []string{"Your tutor is composing a strongly worded letter. COMPILATION REFUSED."}
	case view.GradeGammaBeta:
		return []string{"Were you even trying? COMPILATION VIOLENTLY REFUSED."}
	case view.GradeGamma:
		return []string{
			"Were you even trying? This is an embarrassment to the university.",
			"COMPILATION VIOLENTLY REFUSED.",
		}
	}
	return nil
}
