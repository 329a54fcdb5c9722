package view

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// Grade is a verdict on the Oxford scale, ordered from best to worst.
// The zero value is not a grade.
type Grade uint8

const (
	GradeAlpha Grade = iota + 1
	GradeAlphaMinus
	GradeAlphaBeta
	GradeBetaAlpha
	GradeBeta
	GradeBetaGamma
	GradeGammaBeta
	GradeGamma
)

var allGrades = []Grade{
	GradeAlpha,
	GradeAlphaMinus,
	GradeAlphaBeta,
	GradeBetaAlpha,
	GradeBeta,
	GradeBetaGamma,
	GradeGammaBeta,
	GradeGamma,
}

var gradeTokens = map[string]Grade{
	"alpha":       GradeAlpha,
	"alpha-minus": GradeAlphaMinus,
	"alpha-beta":  GradeAlphaBeta,
	"beta-alpha":  GradeBetaAlpha,
	"beta":        GradeBeta,
	"beta-gamma":  GradeBetaGamma,
	"gamma-beta":  GradeGammaBeta,
	"gamma":       GradeGamma,
}

// gradeAliases maps spellings seen in model output (already lowercased and
// stripped of whitespace) to canonical tokens.
var gradeAliases = map[string]string{
	"alpha(-)":    "alpha-minus",
	"alpha-":      "alpha-minus",
	"alpha_minus": "alpha-minus",
	"alphaminus":  "alpha-minus",
	"alpha_-":     "alpha-minus",
	"alphabeta":   "alpha-beta",
	"alpha_beta":  "alpha-beta",
	"alpha/beta":  "alpha-beta",
	"betaalpha":   "beta-alpha",
	"beta_alpha":  "beta-alpha",
	"beta/alpha":  "beta-alpha",
	"betagamma":   "beta-gamma",
	"beta_gamma":  "beta-gamma",
	"beta/gamma":  "beta-gamma",
	"gammabeta":   "gamma-beta",
	"gamma_beta":  "gamma-beta",
	"gamma/beta":  "gamma-beta",
}

// AllGrades returns the scale from best to worst.
func AllGrades() []Grade {
	res := make([]Grade, len(allGrades))
	copy(res, allGrades)
	return res
}

// NormalizeGrade folds a raw grade string to its canonical token. The second
// result is false when nothing on the scale matches.
func NormalizeGrade(raw string) (string, bool) {
	folded := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(raw)))

	if _, ok := gradeTokens[folded]; ok {
		return folded, true
	}
	if token, ok := gradeAliases[folded]; ok {
		return token, true
	}
	return "", false
}

func ParseGrade(raw string) (Grade, bool) {
	token, ok := NormalizeGrade(raw)
	if !ok {
		return 0, false
	}
	return gradeTokens[token], true
}

func (g Grade) Valid() bool {
	return g >= GradeAlpha && g <= GradeGamma
}

// IsPassing reports whether the grade is alpha-beta or better.
func (g Grade) IsPassing() bool {
	switch g {
	case GradeAlpha, GradeAlphaMinus, GradeAlphaBeta:
		return true
	}
	return false
}

// Better reports whether g ranks strictly above other.
func (g Grade) Better(other Grade) bool {
	return g.Valid() && other.Valid() && g < other
}

func (g Grade) String() string {
	switch g {
	case GradeAlpha:
		return "alpha"
	case GradeAlphaMinus:
		return "alpha-minus"
	case GradeAlphaBeta:
		return "alpha-beta"
	case GradeBetaAlpha:
		return "beta-alpha"
	case GradeBeta:
		return "beta"
	case GradeBetaGamma:
		return "beta-gamma"
	case GradeGammaBeta:
		return "gamma-beta"
	case GradeGamma:
		return "gamma"
	}
	return fmt.Sprintf("Grade(%d)", uint8(g))
}

// Symbol is the Greek-letter notation examiners write in the margin.
func (g Grade) Symbol() string {
	switch g {
	case GradeAlpha:
		return "α"
	case GradeAlphaMinus:
		return "α⁻"
	case GradeAlphaBeta:
		return "αβ"
	case GradeBetaAlpha:
		return "βα"
	case GradeBeta:
		return "β"
	case GradeBetaGamma:
		return "βγ"
	case GradeGammaBeta:
		return "γβ"
	case GradeGamma:
		return "γ"
	}
	return "?"
}

func (g Grade) Title() string {
	switch g {
	case GradeAlpha:
		return "Alpha"
	case GradeAlphaMinus:
		return "Alpha Minus"
	case GradeAlphaBeta:
		return "Alpha-Beta"
	case GradeBetaAlpha:
		return "Beta-Alpha"
	case GradeBeta:
		return "Beta"
	case GradeBetaGamma:
		return "Beta-Gamma"
	case GradeGammaBeta:
		return "Gamma-Beta"
	case GradeGamma:
		return "Gamma"
	}
	return "Unknown"
}

func (g Grade) Class() string {
	switch g {
	case GradeAlpha:
		return "First Class Honours"
	case GradeAlphaMinus:
		return "First Class Honours (minor blemish)"
	case GradeAlphaBeta:
		return "Upper Second"
	case GradeBetaAlpha:
		return "Upper Second (lower end)"
	case GradeBeta:
		return "Lower Second"
	case GradeBetaGamma:
		return "Lower Second (barely)"
	case GradeGammaBeta:
		return "Third Class (upper end)"
	case GradeGamma:
		return "Third Class"
	}
	return "Unclassified"
}

func (g Grade) MarshalJSON() ([]byte, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid grade %d", uint8(g))
	}
	return json.Marshal(g.String())
}

func (g *Grade) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, ok := ParseGrade(raw)
	if !ok {
		return fmt.Errorf("unknown grade %q", raw)
	}
	*g = parsed
	return nil
}
