package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/MilkTeaCat52/INVSC/exception"
	"github.com/MilkTeaCat52/INVSC/service"
	"github.com/MilkTeaCat52/INVSC/view"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"
)

// CompileController drives one CLI invocation and returns the process exit code.
type CompileController interface {
	Run(ctx context.Context, req view.CompileRequest) int
}

func NewCompileController(judgementService service.JudgementService,
	batchService service.BatchService,
	formatterService service.FormatterService,
	gradeActionService service.GradeActionService,
	compilerExecutor service.CompilerExecutor,
	stdout io.Writer, stderr io.Writer, noColor bool) CompileController {
	return &compileControllerImpl{
		judgementService:   judgementService,
		batchService:       batchService,
		formatterService:   formatterService,
		gradeActionService: gradeActionService,
		compilerExecutor:   compilerExecutor,
		stdout:             stdout,
		stderr:             stderr,
		noColor:            noColor,
	}
}

type compileControllerImpl struct {
	judgementService   service.JudgementService
	batchService       service.BatchService
	formatterService   service.FormatterService
	gradeActionService service.GradeActionService
	compilerExecutor   service.CompilerExecutor
	stdout             io.Writer
	stderr             io.Writer
	noColor            bool
}

func (c compileControllerImpl) Run(ctx context.Context, req view.CompileRequest) int {
	if len(req.Sources) == 0 {
		c.printError(errors.New("no input files"))
		return 1
	}

	submissions, err := c.readSources(req.Sources)
	if err != nil {
		c.printError(err)
		return 1
	}
	if err = service.CheckCredential(req.Backend); err != nil {
		c.printError(err)
		return 1
	}

	var outcomes []view.SubmissionOutcome
	if len(submissions) == 1 {
		res, err := c.judgementService.EvaluateSubmission(ctx, submissions[0], req.Backend)
		outcomes = []view.SubmissionOutcome{{Submission: submissions[0], Result: res, Err: err}}
	} else {
		outcomes = c.batchService.EvaluateAll(ctx, submissions, req.Backend)
	}

	exitCode := 0
	for i, outcome := range outcomes {
		if len(outcomes) > 1 && !req.JSON {
			if i > 0 {
				fmt.Fprintln(c.stdout)
			}
			c.printPhase(c.stdout, "Examining "+outcome.Submission.Path)
		}
		exitCode = max(exitCode, c.report(ctx, req, outcome))
	}
	return exitCode
}

func (c compileControllerImpl) report(ctx context.Context, req view.CompileRequest, outcome view.SubmissionOutcome) int {
	path := outcome.Submission.Path
	if outcome.Err != nil {
		if exception.HasCode(outcome.Err, exception.Cancelled) {
			log.Debugf("grading %s was cancelled", path)
		}
		c.printFileError(path, outcome.Err)
		return 1
	}
	res := outcome.Result

	var exitCode int
	// keep stdout parseable in JSON mode
	out := c.stdout
	if req.JSON {
		out = c.stderr
		code, err := c.formatterService.RenderJSON(c.stdout, res, path)
		if err != nil {
			c.printFileError(path, err)
			return 1
		}
		exitCode = code
	} else {
		if req.Verbose && res.Analysis != "" {
			c.formatterService.RenderAnalysis(c.stdout, res.Analysis)
		}
		exitCode = c.formatterService.Render(c.stdout, res, path)
	}

	if !req.NoAction {
		fmt.Fprintln(out)
		c.gradeActionService.Run(out, res.Grade)
	}

	passing := res.Grade.IsPassing()
	if req.Force && !passing {
		c.printWarning(fmt.Sprintf("--force flag used. Compiling '%s' despite shameful grade. Your tutor will hear about this.", path))
	}

	if (passing || req.Force) && !req.NoCompile {
		fmt.Fprintln(out)
		compileExit, err := c.compilerExecutor.Compile(ctx, path)
		if err != nil {
			c.printFileError(path, err)
			return 1
		}
		if compileExit != 0 {
			exitCode = compileExit
		}
	}
	return exitCode
}

func (c compileControllerImpl) readSources(paths []string) ([]view.Submission, error) {
	submissions := make([]view.Submission, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, sourceError(exception.SourceNotFound, exception.SourceNotFoundMsg, path, nil)
			}
			return nil, sourceError(exception.SourceUnreadable, exception.SourceUnreadableMsg, path, err)
		}
		if !info.Mode().IsRegular() {
			return nil, sourceError(exception.SourceNotAFile, exception.SourceNotAFileMsg, path, nil)
		}
		if service.LanguageForPath(path) == "" {
			c.printWarning(fmt.Sprintf("'%s' is not a recognised source file", path))
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, sourceError(exception.SourceUnreadable, exception.SourceUnreadableMsg, path, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return nil, sourceError(exception.SourceEmpty, exception.SourceEmptyMsg, path, nil)
		}
		submissions = append(submissions, view.Submission{Path: path, Source: string(data)})
	}
	return submissions, nil
}

func sourceError(code string, message string, path string, cause error) error {
	customErr := &exception.CustomError{
		Code:    code,
		Message: message,
		Params:  map[string]interface{}{"path": path},
		Cause:   cause,
	}
	if cause != nil {
		customErr.Debug = cause.Error()
	}
	return customErr
}

func (c compileControllerImpl) printFileError(path string, err error) {
	c.printError(fmt.Errorf("%s: %w", path, err))
}

func (c compileControllerImpl) printError(err error) {
	msg := err.Error()
	var customErr *exception.CustomError
	if errors.As(err, &customErr) && customErr.Debug != "" {
		msg += ": " + customErr.Debug
	}
	fmt.Fprintln(c.stderr, c.style("9").Render("invsc: error: "+msg))
}

func (c compileControllerImpl) printWarning(msg string) {
	fmt.Fprintln(c.stderr, c.style("11").Render("invsc: warning: "+msg))
}

func (c compileControllerImpl) printPhase(w io.Writer, phase string) {
	fmt.Fprintln(w, c.style("12").Bold(true).Render("[INVSC] "+phase))
}

func (c compileControllerImpl) style(color string) lipgloss.Style {
	s := lipgloss.NewRenderer(c.stderr).NewStyle()
	if c.noColor {
		return s
	}
	return s.Foreground(lipgloss.Color(color))
}
