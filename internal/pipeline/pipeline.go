// Package pipeline implements the per-submission judging state
// machine: compile the user program, prepare the checker, run each
// test case under resource limits, aggregate a verdict with priority,
// and deterministically release sandbox-side resources.
package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"ptoj-judger/internal/checker"
	"ptoj-judger/internal/config"
	"ptoj-judger/internal/language"
	"ptoj-judger/internal/model"
	"ptoj-judger/pkg/errors"
	"ptoj-judger/pkg/logger"
)

// sandboxRunner is the subset of *sandbox.Client the pipeline needs.
type sandboxRunner interface {
	Run(ctx context.Context, req model.RunRequest) ([]model.SandboxResult, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// statusMap maps a non-Accepted sandbox status to a testcase verdict.
// Anything not listed (FileError, InternalError, unrecognized) falls
// through to SystemError.
var statusMap = map[model.SandboxStatus]model.JudgeStatus{
	model.StatusMemoryLimitExceeded: model.MemoryLimitExceeded,
	model.StatusTimeLimitExceeded:   model.TimeLimitExceeded,
	model.StatusOutputLimitExceeded: model.OutputLimitExceeded,
	model.StatusNonzeroExitStatus:   model.RuntimeError,
	model.StatusSignalled:           model.RuntimeError,
}

func mapStatus(s model.SandboxStatus) model.JudgeStatus {
	if v, ok := statusMap[s]; ok {
		return v
	}
	return model.SystemError
}

// Pipeline runs one submission to a terminal SubmissionResult.
type Pipeline struct {
	client     sandboxRunner
	submission model.Submission
	checker    checker.Checker
	lang       language.Entry
	log        *logger.Logger

	mu           sync.Mutex
	started      bool
	result       model.SubmissionResult
	compiledFile string
	cleanup      []func(context.Context)
}

// New builds a Pipeline. The checker is chosen externally by the
// submission's type (Traditional -> DefaultChecker, SpecialJudge /
// Interaction -> TestlibChecker compiled from AdditionCode).
func New(client sandboxRunner, submission model.Submission, lang language.Entry, chk checker.Checker, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Get()
	}
	return &Pipeline{
		client:     client,
		submission: submission,
		checker:    chk,
		lang:       lang,
		log:        log,
		result:     model.SubmissionResult{SID: submission.SID, Judge: model.Pending},
	}
}

// GetResult is idempotent: the first call runs the pipeline and
// cleanup; subsequent calls return the stored result without any
// further sandbox interaction.
func (p *Pipeline) GetResult(ctx context.Context) model.SubmissionResult {
	p.mu.Lock()
	if p.started {
		defer p.mu.Unlock()
		return p.result
	}
	p.started = true
	p.mu.Unlock()

	p.run(ctx)
	p.runCleanup(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

func (p *Pipeline) run(ctx context.Context) {
	ctx = logger.WithSubmissionID(ctx, p.submission.SID)

	if p.lang.NeedsCompile {
		if err := p.compile(ctx); err != nil {
			p.log.Error(ctx, "compile failed", zap.Error(err))
			p.setJudge(model.SystemError, "")
			return
		}
		if p.result.Judge != model.Pending {
			// compile() already recorded a terminal CompileError verdict.
			return
		}
		if p.compiledFile == "" {
			p.setJudge(model.SystemError, "no compiled file produced")
			return
		}
	}

	if len(p.submission.Testcases) == 0 {
		p.setJudge(model.SystemError, "No testcases provided")
		return
	}

	if err := p.checker.Compile(ctx); err != nil {
		p.log.Error(ctx, "checker compile failed", zap.Error(err))
		p.setJudge(model.SystemError, "")
		return
	}

	skipped := false
	results := make([]model.TestcaseResult, 0, len(p.submission.Testcases))
	for _, tc := range p.submission.Testcases {
		var tcResult model.TestcaseResult
		if skipped {
			tcResult = model.TestcaseResult{UUID: tc.UUID, Judge: model.Skipped}
		} else {
			var err error
			tcResult, err = p.runTestcase(ctx, tc)
			if err != nil {
				p.log.Error(ctx, "testcase failed", zap.String("uuid", tc.UUID), zap.Error(err))
				tcResult = model.TestcaseResult{UUID: tc.UUID, Judge: model.SystemError}
			}
		}
		results = append(results, tcResult)
		if tcResult.Judge.TriggersSkip() {
			skipped = true
		}
	}

	p.mu.Lock()
	p.result.Testcases = results
	p.mu.Unlock()

	if len(results) == 0 {
		p.setJudge(model.SystemError, "")
		return
	}

	p.aggregate(results)
}

func (p *Pipeline) compile(ctx context.Context) error {
	cmd := model.SandboxCmd{
		Args:         p.lang.CompileCmd,
		ProcLimit:    config.DefaultProcLimit,
		CPURateLimit: config.DefaultCPURateLimit,
		Files: []*model.FileRef{
			ref(model.MemoryFile(nil)),
			ref(model.Collector("stdout", config.DefaultOutputLimit)),
			ref(model.Collector("stderr", config.DefaultOutputLimit)),
		},
		CopyIn: map[string]model.FileRef{
			p.lang.SourceFilename: model.MemoryFile([]byte(p.submission.Code)),
		},
		CopyOutCached: []string{p.lang.CompiledFilename},
	}
	results, err := p.client.Run(ctx, model.RunRequest{Cmd: []model.SandboxCmd{cmd}})
	if err != nil {
		return errors.Wrapf(err, errors.TransportError, "pipeline: compile transport failure: %v", err)
	}
	result := results[0]
	if result.Status != model.StatusAccepted {
		p.setJudge(model.CompileError, string(result.Files["stderr"]))
		return nil
	}
	p.compiledFile = result.FileIDs[p.lang.CompiledFilename]
	p.scheduleDelete(p.compiledFile)
	return nil
}

func (p *Pipeline) scaledLimits() (cpu, clock, memory int64) {
	timeLimit := p.submission.TimeLimit
	if timeLimit <= 0 {
		timeLimit = config.DefaultTimeLimitMs
	}
	memoryLimit := p.submission.MemoryLimit
	if memoryLimit <= 0 {
		memoryLimit = config.DefaultMemoryLimitKiB
	}
	return p.lang.ScaledLimits(timeLimit, memoryLimit)
}

func (p *Pipeline) runtimeDependency() (name string, ref model.FileRef) {
	if p.lang.NeedsCompile {
		return p.lang.CompiledFilename, model.PreparedFile(p.compiledFile)
	}
	return p.lang.SourceFilename, model.MemoryFile([]byte(p.submission.Code))
}

func (p *Pipeline) runTestcase(ctx context.Context, tc model.Testcase) (model.TestcaseResult, error) {
	if p.submission.Type == model.Interaction {
		return p.runTestcaseInteractive(ctx, tc)
	}
	return p.runTestcaseTraditional(ctx, tc)
}

func (p *Pipeline) runTestcaseTraditional(ctx context.Context, tc model.Testcase) (model.TestcaseResult, error) {
	result := model.TestcaseResult{UUID: tc.UUID}
	cpuLimit, clockLimit, memoryLimit := p.scaledLimits()
	depName, depRef := p.runtimeDependency()

	cmd := model.SandboxCmd{
		Args:         p.lang.RunCmd,
		CPULimit:     cpuLimit,
		ClockLimit:   clockLimit,
		MemoryLimit:  memoryLimit,
		ProcLimit:    config.DefaultProcLimit,
		CPURateLimit: config.DefaultCPURateLimit,
		Files: []*model.FileRef{
			ref(tc.Input),
			ref(model.Collector("stdout", config.DefaultOutputLimit)),
			ref(model.Collector("stderr", config.DefaultOutputLimit)),
		},
		CopyIn: map[string]model.FileRef{
			depName: depRef,
		},
		CopyOutCached: []string{"stdout"},
	}

	results, err := p.client.Run(ctx, model.RunRequest{Cmd: []model.SandboxCmd{cmd}})
	if err != nil {
		return result, errors.Wrapf(err, errors.TransportError, "run testcase: %v", err)
	}
	run := results[0]

	result.Time = clamp(run.Time, cpuLimit) / 1_000_000
	result.Memory = clamp(run.Memory, memoryLimit) / 1024

	stdoutFileID := run.FileIDs["stdout"]
	outputFile := model.PreparedFile(stdoutFileID)

	if run.Status == model.StatusAccepted {
		verdict, err := p.checker.Check(ctx, tc.Input, tc.Output, outputFile)
		if err != nil {
			result.Judge = model.SystemError
		} else {
			result.Judge = verdict
		}
	} else {
		result.Judge = mapStatus(run.Status)
	}

	if stdoutFileID != "" {
		p.scheduleDelete(stdoutFileID)
	}
	return result, nil
}

func (p *Pipeline) runTestcaseInteractive(ctx context.Context, tc model.Testcase) (model.TestcaseResult, error) {
	result := model.TestcaseResult{UUID: tc.UUID}
	cpuLimit, clockLimit, memoryLimit := p.scaledLimits()
	depName, depRef := p.runtimeDependency()

	interactorFileID := p.checker.CompiledFileID()

	cmdUser := model.SandboxCmd{
		Args:         p.lang.RunCmd,
		CPULimit:     cpuLimit,
		ClockLimit:   clockLimit,
		MemoryLimit:  memoryLimit,
		ProcLimit:    config.DefaultProcLimit,
		CPURateLimit: config.DefaultCPURateLimit,
		Files: []*model.FileRef{
			nil,
			nil,
			ref(model.Collector("stderr", config.DefaultOutputLimit)),
		},
		CopyIn: map[string]model.FileRef{
			depName: depRef,
		},
	}
	cmdInteractor := model.SandboxCmd{
		Args:         []string{"./Interactor", "infile", "outfile", "ansfile"},
		ProcLimit:    config.DefaultProcLimit,
		CPURateLimit: config.DefaultCPURateLimit,
		Files: []*model.FileRef{
			nil,
			nil,
			ref(model.Collector("stderr", config.DefaultOutputLimit)),
		},
		CopyIn: map[string]model.FileRef{
			"Interactor": model.PreparedFile(interactorFileID),
			"infile":     tc.Input,
			"outfile":    model.MemoryFile(nil),
			"ansfile":    tc.Output,
		},
	}

	pipeMapping := []model.PipeMap{
		{In: model.PipeFd{Index: 0, Fd: 1}, Out: model.PipeFd{Index: 1, Fd: 0}},
		{In: model.PipeFd{Index: 1, Fd: 1}, Out: model.PipeFd{Index: 0, Fd: 0}},
	}

	results, err := p.client.Run(ctx, model.RunRequest{
		Cmd:         []model.SandboxCmd{cmdUser, cmdInteractor},
		PipeMapping: pipeMapping,
	})
	if err != nil {
		return result, errors.Wrapf(err, errors.TransportError, "run interactive testcase: %v", err)
	}
	userResult, interactorResult := results[0], results[1]

	result.Time = clamp(userResult.Time, cpuLimit) / 1_000_000
	result.Memory = clamp(userResult.Memory, memoryLimit) / 1024

	switch {
	case userResult.Status != model.StatusAccepted:
		result.Judge = mapStatus(userResult.Status)
	case interactorResult.Status != model.StatusAccepted:
		result.Judge = model.WrongAnswer
	default:
		result.Judge = model.Accepted
	}
	return result, nil
}

func (p *Pipeline) aggregate(results []model.TestcaseResult) {
	var maxTime, maxMemory int64
	allAccepted := true
	present := make(map[model.JudgeStatus]bool, len(results))
	for _, r := range results {
		if r.Time > maxTime {
			maxTime = r.Time
		}
		if r.Memory > maxMemory {
			maxMemory = r.Memory
		}
		present[r.Judge] = true
		if r.Judge != model.Accepted {
			allAccepted = false
		}
	}

	p.mu.Lock()
	p.result.Time = maxTime
	p.result.Memory = maxMemory
	p.mu.Unlock()

	if allAccepted {
		p.setJudge(model.Accepted, "")
		return
	}
	for _, status := range model.AggregationPriority {
		if present[status] {
			p.setJudge(status, "")
			return
		}
	}
	p.setJudge(model.SystemError, "")
}

func (p *Pipeline) setJudge(judge model.JudgeStatus, errMsg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result.Judge = judge
	if errMsg != "" {
		p.result.Error = errMsg
	}
}

// scheduleDelete queues a sandbox file for deletion, joined on the
// cleanup pass at the end of GetResult.
func (p *Pipeline) scheduleDelete(fileID string) {
	if fileID == "" {
		return
	}
	p.mu.Lock()
	p.cleanup = append(p.cleanup, func(ctx context.Context) {
		if err := p.client.DeleteFile(ctx, fileID); err != nil {
			p.log.Warn(ctx, "pipeline cleanup delete failed", zap.String("fileId", fileID), zap.Error(err))
		}
	})
	p.mu.Unlock()
}

func (p *Pipeline) runCleanup(ctx context.Context) {
	p.mu.Lock()
	tasks := p.cleanup
	p.cleanup = nil
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(t func(context.Context)) {
			defer wg.Done()
			t(ctx)
		}(task)
	}
	wg.Wait()
}

func ref(f model.FileRef) *model.FileRef { return &f }

func clamp(v, limit int64) int64 {
	if limit > 0 && v > limit {
		return limit
	}
	return v
}
