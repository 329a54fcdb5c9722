package service

import (
	"fmt"
	"io"
	"strings"

	"github.com/MilkTeaCat52/INVSC/view"
	"github.com/charmbracelet/lipgloss"
)

// GradeActionService reacts to a grade with the examination board's remarks.
type GradeActionService interface {
	Run(w io.Writer, grade view.Grade)
}

func NewGradeActionService(noColor bool) GradeActionService {
	return &gradeActionServiceImpl{noColor: noColor}
}

type gradeActionServiceImpl struct {
	noColor bool
}

type gradeRemark struct {
	heading string
	lines   []string
	border  lipgloss.Border
}

func (g gradeActionServiceImpl) Run(w io.Writer, grade view.Grade) {
	remark, ok := remarkFor(grade)
	if !ok {
		return
	}

	r := lipgloss.NewRenderer(w)
	style := r.NewStyle().
		Border(remark.border).
		Padding(1, 3).
		Bold(true)
	if !g.noColor {
		color := lipgloss.Color(gradeColor(grade))
		style = style.Foreground(color).BorderForeground(color)
	}

	body := remark.heading + "\n\n" + strings.Join(remark.lines, "\n")
	fmt.Fprintln(w, style.Render(body))
}

func remarkFor(grade view.Grade) (gradeRemark, bool) {
	heading := fmt.Sprintf("%s  %s, %s", grade.Symbol(), strings.ToUpper(grade.Title()), strings.ToUpper(grade.Class()))
	switch grade {
	case view.GradeAlpha:
		return gradeRemark{heading, []string{
			"The Examination Schools are pleased.",
			"You may proceed to All Souls.",
		}, lipgloss.DoubleBorder()}, true
	case view.GradeAlphaMinus:
		return gradeRemark{heading, []string{
			"A blemish, but a small one.",
			"The examiners will not mention it at High Table.",
		}, lipgloss.DoubleBorder()}, true
	case view.GradeAlphaBeta:
		return gradeRemark{heading, []string{
			"Adequate. Your tutor expected more,",
			"but will not send a stern letter.",
		}, lipgloss.RoundedBorder()}, true
	case view.GradeBetaAlpha:
		return gradeRemark{heading, []string{
			"Promising, but promise does not compile.",
			"COMPILATION DENIED.",
		}, lipgloss.RoundedBorder()}, true
	case view.GradeBeta:
		return gradeRemark{heading, []string{
			"Your tutor is writing a strongly worded",
			"letter to your Director of Studies.",
			"COMPILATION DENIED.",
		}, lipgloss.NormalBorder()}, true
	case view.GradeBetaGamma:
		return gradeRemark{heading, []string{
			"Correct code without a single invariant.",
			"The examiners are unamused.",
			"COMPILATION DENIED.",
		}, lipgloss.NormalBorder()}, true
	case view.GradeGammaBeta:
		return gradeRemark{heading, []string{
			"Your college has been asked to explain itself.",
			"COMPILATION VIOLENTLY DENIED.",
		}, lipgloss.ThickBorder()}, true
	case view.GradeGamma:
		return gradeRemark{heading, []string{
			"The Examination Schools are appalled.",
			"Your college has been notified.",
			"Please reconsider your life choices.",
			"COMPILATION VIOLENTLY DENIED.",
		}, lipgloss.ThickBorder()}, true
	}
	return gradeRemark{}, false
}
