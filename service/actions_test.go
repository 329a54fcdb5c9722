package service

import (
	"bytes"
	"testing"

	"github.com/MilkTeaCat52/INVSC/view"
	"github.com/stretchr/testify/assert"
)

func TestGradeAction_EveryGradeHasRemark(t *testing.T) {
	actions := NewGradeActionService(true)
	for _, grade := range view.AllGrades() {
		var buf bytes.Buffer
		actions.Run(&buf, grade)
		assert.Contains(t, buf.String(), grade.Symbol(), grade.String())
	}
}

func TestGradeAction_FailingGradesDenyCompilation(t *testing.T) {
	actions := NewGradeActionService(true)
	for _, grade := range view.AllGrades() {
		var buf bytes.Buffer
		actions.Run(&buf, grade)
		if grade.IsPassing() {
			assert.NotContains(t, buf.String(), "DENIED", grade.String())
		} else {
			assert.Contains(t, buf.String(), "DENIED", grade.String())
		}
	}
}

func TestGradeAction_InvalidGradeIsSilent(t *testing.T) {
	var buf bytes.Buffer
	NewGradeActionService(true).Run(&buf, view.Grade(0))
	assert.Empty(t, buf.String())
}
