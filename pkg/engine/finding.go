package engine

// Severity is the canonical three-level scale used across all tools.
type Severity string

const (
	SeverityNote    Severity = "note"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Valid reports whether s is one of the three canonical levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityNote, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// ToolIdentity identifies the analysis engine that produced a finding.
type ToolIdentity struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	InfoURI string `json:"info_uri,omitempty"`
}

// Reachability is the evidence attached by the augmentation stage.
// Supported distinguishes evidence an oracle actually produced from the
// fixed sentinel for languages no oracle covers.
type Reachability struct {
	Evaluated bool     `json:"evaluated"`
	Supported bool     `json:"supported"`
	Reachable bool     `json:"reachable"`
	CallStack []string `json:"call_stack"`
	DataFlow  []string `json:"data_flow"`
}

// NotEvaluated is the fixed evidence returned when augmentation is disabled.
func NotEvaluated() *Reachability {
	return &Reachability{Evaluated: false, CallStack: []string{"reachability analysis disabled"}}
}

// NotSupported is the fixed evidence for languages without an oracle.
func NotSupported(language string) *Reachability {
	return &Reachability{Evaluated: true, CallStack: []string{"no reachability oracle for " + language}}
}

// PatchVerdict is the structured answer from the verification oracle.
type PatchVerdict struct {
	IsValid     bool    `json:"is_valid"`
	Confidence  float64 `json:"confidence"`
	Patch       string  `json:"patch_code,omitempty"`
	Explanation string  `json:"explanation"`
}

// FailedVerdict is the conservative default used whenever verification
// cannot produce a usable answer.
func FailedVerdict(reason string) *PatchVerdict {
	return &PatchVerdict{IsValid: false, Confidence: 0.0, Explanation: reason}
}

// Finding is a single normalized vulnerability observation from one tool.
// It is created by the normalizer and, apart from the one-shot enrichment
// below, read-only afterwards.
type Finding struct {
	FilePath string   `json:"file_path"` // project-relative, absolute as fallback
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	RuleID   string   `json:"rule_id"`
	RuleName string   `json:"rule_name"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Language string   `json:"language"`
	Snippet  string   `json:"snippet,omitempty"`

	Tool     ToolIdentity      `json:"tool"`
	Metadata map[string]string `json:"metadata,omitempty"`

	Reachability *Reachability `json:"reachability,omitempty"`
	Verdict      *PatchVerdict `json:"verdict,omitempty"`
}

// AttachReachability records evidence on the finding. The first write wins;
// later calls are ignored so the enrichment stays exactly-once.
func (f *Finding) AttachReachability(r *Reachability) {
	if f.Reachability == nil {
		f.Reachability = r
	}
}

// AttachVerdict records the verification verdict, first write wins.
func (f *Finding) AttachVerdict(v *PatchVerdict) {
	if f.Verdict == nil {
		f.Verdict = v
	}
}
