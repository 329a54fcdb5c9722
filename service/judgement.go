package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/MilkTeaCat52/INVSC/client"
	"github.com/MilkTeaCat52/INVSC/exception"
	"github.com/MilkTeaCat52/INVSC/utils"
	"github.com/MilkTeaCat52/INVSC/view"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	analysisTemperature  = 0.2
	judgementTemperature = 0.1
	judgementSchemaName  = "invsc_judgement"

	DefaultCallTimeout = 120 * time.Second
)

const (
	passAnalysis  = "analysis"
	passJudgement = "judgement"
)

type JudgementService interface {
	Evaluate(ctx context.Context, sourceText string, cfg view.BackendConfig) (*view.JudgementResult, error)
	EvaluateSubmission(ctx context.Context, submission view.Submission, cfg view.BackendConfig) (*view.JudgementResult, error)
}

func NewJudgementService(promptBuilder PromptBuilder, clientFactory client.ClientFactory) JudgementService {
	return &judgementServiceImpl{
		promptBuilder: promptBuilder,
		clientFactory: clientFactory,
	}
}

type judgementServiceImpl struct {
	promptBuilder PromptBuilder
	clientFactory client.ClientFactory
}

func (j judgementServiceImpl) Evaluate(ctx context.Context, sourceText string, cfg view.BackendConfig) (*view.JudgementResult, error) {
	return j.evaluate(ctx, j.promptBuilder, sourceText, cfg)
}

func (j judgementServiceImpl) EvaluateSubmission(ctx context.Context, submission view.Submission, cfg view.BackendConfig) (*view.JudgementResult, error) {
	builder := WithLanguage(j.promptBuilder, LanguageForPath(submission.Path))
	return j.evaluate(ctx, builder, submission.Source, cfg)
}

func (j judgementServiceImpl) evaluate(ctx context.Context, builder PromptBuilder, sourceText string, cfg view.BackendConfig) (*view.JudgementResult, error) {
	if err := CheckCredential(cfg); err != nil {
		return nil, err
	}

	runId := uuid.NewString()
	logger := log.WithFields(log.Fields{
		"run":     runId,
		"backend": backendName(cfg),
		"source":  utils.CreateSHA256Hash([]byte(sourceText))[:12],
	})

	analysisSystem, err := builder.AnalysisSystemPrompt()
	if err != nil {
		return nil, err
	}
	analysisPrompt, err := builder.BuildAnalysisPrompt(sourceText)
	if err != nil {
		return nil, err
	}
	judgementSystem, err := builder.JudgementSystemPrompt()
	if err != nil {
		return nil, err
	}
	rubric, err := builder.CalibrationRubric()
	if err != nil {
		return nil, err
	}
	judgementPrompt, err := builder.BuildJudgementPrompt(rubric)
	if err != nil {
		return nil, err
	}

	llm, err := j.clientFactory(cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logger.Infof("Run analysis pass")
	analysis, err := j.send(ctx, llm, cfg, passAnalysis, []view.Message{
		{Role: view.RoleSystem, Content: analysisSystem},
		{Role: view.RoleUser, Content: analysisPrompt},
	}, view.SendOptions{Temperature: analysisTemperature, Format: view.FormatText})
	if err != nil {
		return nil, err
	}
	analysis = strings.TrimSpace(analysis)
	logger.Infof("Finished analysis pass, it took %dms", time.Since(start).Milliseconds())
	logger.Tracef("analysis: %s", analysis)

	judgementOpts := view.SendOptions{Temperature: judgementTemperature, Format: view.FormatJSON}
	if cfg.StructuredOutput {
		judgementOpts.SchemaName = judgementSchemaName
		judgementOpts.Schema = client.JudgementResponseSchema
	}

	start = time.Now()
	logger.Infof("Run judgement pass")
	raw, err := j.send(ctx, llm, cfg, passJudgement, []view.Message{
		{Role: view.RoleSystem, Content: judgementSystem},
		{Role: view.RoleUser, Content: analysisPrompt},
		{Role: view.RoleAssistant, Content: analysis},
		{Role: view.RoleUser, Content: judgementPrompt},
	}, judgementOpts)
	if err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)
	logger.Infof("Finished judgement pass, it took %dms", time.Since(start).Milliseconds())
	logger.Tracef("judgement: %s", raw)

	result, err := ParseJudgement(raw)
	if err != nil {
		return nil, err
	}
	result.Analysis = analysis

	logger.Infof("Grade: %s, %d warnings", result.Grade, len(result.Warnings))
	return result, nil
}

// CheckCredential fails with MissingCredential when cfg carries no usable key.
func CheckCredential(cfg view.BackendConfig) error {
	if strings.TrimSpace(cfg.Credential) == "" {
		return &exception.CustomError{
			Code:    exception.MissingCredential,
			Message: exception.MissingCredentialMsg,
			Params:  map[string]interface{}{"backend": backendName(cfg)},
		}
	}
	return nil
}

// send issues one backend call under its own deadline.
func (j judgementServiceImpl) send(ctx context.Context, llm client.LLMClient, cfg view.BackendConfig, pass string, messages []view.Message, opts view.SendOptions) (string, error) {
	if ctx.Err() != nil {
		return "", cancelled(pass, ctx.Err())
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := llm.Send(callCtx, messages, opts)
	if err != nil {
		// the parent context being done means the caller gave up, not the backend
		if ctx.Err() != nil {
			return "", cancelled(pass, ctx.Err())
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = errors.Join(err, callCtx.Err())
		}
		return "", &exception.CustomError{
			Code:    exception.BackendError,
			Message: exception.BackendErrorMsg,
			Params:  map[string]interface{}{"backend": backendName(cfg), "pass": pass, "error": err.Error()},
			Cause:   err,
		}
	}
	if ctx.Err() != nil {
		return "", cancelled(pass, ctx.Err())
	}
	return text, nil
}

type judgementResponse struct {
	Grade    *string                 `json:"grade"`
	Summary  *string                 `json:"summary"`
	Warnings []judgementResponseItem `json:"warnings"`
}

type judgementResponseItem struct {
	Line     *int   `json:"line"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// ParseJudgement validates and normalizes the raw judgement pass output.
func ParseJudgement(raw string) (*view.JudgementResult, error) {
	var resp judgementResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, &exception.CustomError{
			Code:    exception.MalformedResponse,
			Message: exception.MalformedResponseMsg,
			Params:  map[string]interface{}{"reason": "invalid JSON: " + err.Error()},
			Raw:     raw,
			Cause:   err,
		}
	}
	if resp.Grade == nil {
		return nil, &exception.CustomError{
			Code:    exception.MalformedResponse,
			Message: exception.MalformedResponseMsg,
			Params:  map[string]interface{}{"reason": "missing 'grade' field"},
			Raw:     raw,
		}
	}

	grade, ok := view.ParseGrade(*resp.Grade)
	if !ok {
		return nil, &exception.CustomError{
			Code:    exception.UnknownGrade,
			Message: exception.UnknownGradeMsg,
			Params:  map[string]interface{}{"grade": *resp.Grade},
			Debug:   "expected one of: " + strings.Join(gradeTokens(), ", "),
			Raw:     raw,
		}
	}

	result := &view.JudgementResult{
		Grade:    grade,
		Warnings: make([]view.Warning, 0, len(resp.Warnings)),
	}
	if resp.Summary != nil {
		result.Summary = *resp.Summary
	}
	for _, item := range resp.Warnings {
		w := view.Warning{
			Line:     item.Line,
			Severity: view.SeverityWarning,
			Message:  item.Message,
		}
		if w.Line != nil && *w.Line < 1 {
			w.Line = nil
		}
		if view.Severity(strings.ToLower(strings.TrimSpace(item.Severity))) == view.SeverityError {
			w.Severity = view.SeverityError
		}
		result.Warnings = append(result.Warnings, w)
	}
	return result, nil
}

func cancelled(pass string, err error) error {
	return &exception.CustomError{
		Code:    exception.Cancelled,
		Message: exception.CancelledMsg,
		Params:  map[string]interface{}{"pass": pass},
		Cause:   err,
	}
}

func backendName(cfg view.BackendConfig) string {
	if cfg.Backend == "" {
		return string(view.BackendOpenAI)
	}
	return string(cfg.Backend)
}

func gradeTokens() []string {
	var res []string
	for _, g := range view.AllGrades() {
		res = append(res, g.String())
	}
	return res
}
