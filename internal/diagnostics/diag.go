package diagnostics

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes raised during a run.
const (
	CodeDegenerate  = "STIM.DEGENERATE"
	CodeMissingLUT  = "SWEEP.MISSING_ASSET"
	CodeSinkFailure = "LOG.WRITE_FAILED"
	CodeRunDone     = "RUN.DONE"
	CodeRunAborted  = "RUN.ABORTED"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Reporter receives diagnostics as they are raised.
type Reporter func(Diagnostic)

// Report calls r if it is set.
func (r Reporter) Report(d Diagnostic) {
	if r != nil {
		r(d)
	}
}
