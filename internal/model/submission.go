package model

// SubmissionType selects which checker path a submission follows.
type SubmissionType string

const (
	Traditional  SubmissionType = "Traditional"
	Interaction  SubmissionType = "Interaction"
	SpecialJudge SubmissionType = "SpecialJudge"
)

// JudgeStatus is the enumerated outcome of judging, per-testcase and
// overall.
type JudgeStatus string

const (
	Pending             JudgeStatus = "Pending"
	RunningJudge        JudgeStatus = "RunningJudge"
	CompileError        JudgeStatus = "CompileError"
	Accepted            JudgeStatus = "Accepted"
	RuntimeError        JudgeStatus = "RuntimeError"
	WrongAnswer         JudgeStatus = "WrongAnswer"
	TimeLimitExceeded   JudgeStatus = "TimeLimitExceeded"
	MemoryLimitExceeded JudgeStatus = "MemoryLimitExceeded"
	OutputLimitExceeded JudgeStatus = "OutputLimitExceeded"
	PresentationError   JudgeStatus = "PresentationError"
	SystemError         JudgeStatus = "SystemError"
	Skipped             JudgeStatus = "Skipped"
)

// skipping verdicts: a testcase landing on one of these marks every
// later testcase in the same submission Skipped.
var skipStatuses = map[JudgeStatus]bool{
	TimeLimitExceeded:   true,
	MemoryLimitExceeded: true,
	OutputLimitExceeded: true,
}

// TriggersSkip reports whether a testcase verdict engages skipping of
// the remaining testcases.
func (s JudgeStatus) TriggersSkip() bool {
	return skipStatuses[s]
}

// AggregationPriority is walked in order; the first verdict present
// among a submission's testcase results becomes the overall verdict.
var AggregationPriority = []JudgeStatus{
	SystemError,
	OutputLimitExceeded,
	MemoryLimitExceeded,
	TimeLimitExceeded,
	RuntimeError,
	WrongAnswer,
	PresentationError,
}

// Testcase is one input/expected-output pair, echoed by uuid into the
// verdict.
type Testcase struct {
	UUID   string  `json:"uuid"`
	Input  FileRef `json:"input"`
	Output FileRef `json:"output"`
}

// Submission is one (user code, language, testset, limits) tuple to
// judge, as read off the task queue.
type Submission struct {
	SID          string         `json:"sid"`
	TimeLimit    int64          `json:"timeLimit"`    // ms
	MemoryLimit  int64          `json:"memoryLimit"`   // KiB
	Testcases    []Testcase     `json:"testcases"`
	Language     string         `json:"language"`
	Code         string         `json:"code"`
	Type         SubmissionType `json:"type"`
	AdditionCode string         `json:"additionCode,omitempty"`
}

// TestcaseResult is the per-testcase outcome, position- and
// uuid-aligned with the originating Testcase.
type TestcaseResult struct {
	UUID   string      `json:"uuid"`
	Time   int64       `json:"time"`   // ms
	Memory int64       `json:"memory"` // KiB
	Judge  JudgeStatus `json:"judge"`
}

// SubmissionResult is the terminal (or progress) record published to
// the result queue.
type SubmissionResult struct {
	SID       string           `json:"sid"`
	Time      int64            `json:"time"`   // ms
	Memory    int64            `json:"memory"` // KiB
	Testcases []TestcaseResult `json:"testcases"`
	Judge     JudgeStatus      `json:"judge"`
	Error     string           `json:"error,omitempty"`
}

// ProgressEvent builds the RunningJudge progress record that precedes
// the final result on the result queue.
func ProgressEvent(sid string) SubmissionResult {
	return SubmissionResult{SID: sid, Judge: RunningJudge}
}
