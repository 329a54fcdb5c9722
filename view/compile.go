package view

type CompileRequest struct {
	Sources     []string
	Backend     BackendConfig
	NoCompile   bool
	NoAction    bool
	JSON        bool
	Force       bool
	Verbose     bool
}

type Submission struct {
	Path   string
	Source string
}

type SubmissionOutcome struct {
	Submission Submission
	Result     *JudgementResult
	Err        error
}
