package view

type Severity string

const SeverityWarning Severity = "warning"
const SeverityError Severity = "error"

type Warning struct {
	Line     *int     `json:"line"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

type JudgementResult struct {
	Grade    Grade     `json:"grade"`
	Summary  string    `json:"summary"`
	Warnings []Warning `json:"warnings"`
	Analysis string    `json:"analysis,omitempty"`
}

// JudgementPayload is the shape the judgement pass must produce. It is used to
// generate the response schema for backends with structured output.
type JudgementPayload struct {
	Grade    string                    `json:"grade" jsonschema:"enum=alpha,enum=alpha-minus,enum=alpha-beta,enum=beta-alpha,enum=beta,enum=beta-gamma,enum=gamma-beta,enum=gamma"`
	Summary  string                    `json:"summary"`
	Warnings []JudgementPayloadWarning `json:"warnings"`
}

type JudgementPayloadWarning struct {
	Line     *int   `json:"line"`
	Severity string `json:"severity" jsonschema:"enum=warning,enum=error"`
	Message  string `json:"message"`
}
