package checker

import (
	"context"

	"ptoj-judger/internal/config"
	"ptoj-judger/internal/model"
	"ptoj-judger/pkg/errors"
)

// runner is the subset of *sandbox.Client a checker needs, kept
// narrow so tests can fake it without a real HTTP server.
type runner interface {
	Run(ctx context.Context, req model.RunRequest) ([]model.SandboxResult, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// defaultStatusMap keys the verdict by the comparator's exit code, per
// the exitStatus-driven contract.
var defaultStatusMap = map[int]model.JudgeStatus{
	0: model.Accepted,
	1: model.WrongAnswer,
	2: model.PresentationError,
}

// DefaultChecker compiles a packaged comparator and runs it as
// `./Checker tc.in tc.out user.out`; the verdict comes from its exit
// code.
type DefaultChecker struct {
	client       runner
	code         string
	compiledFile string
	ownsCompiled bool
}

// NewDefaultChecker builds a DefaultChecker from the packaged
// comparator source.
func NewDefaultChecker(client runner, source string) *DefaultChecker {
	return &DefaultChecker{client: client, code: source}
}

func (c *DefaultChecker) Compile(ctx context.Context) error {
	if c.compiledFile != "" {
		return nil
	}
	cmd := model.SandboxCmd{
		Args:         compileCmd,
		ProcLimit:    config.DefaultProcLimit,
		CPURateLimit: config.DefaultCPURateLimit,
		Files: []*model.FileRef{
			refPtr(model.MemoryFile(nil)),
			refPtr(model.Collector("stdout", config.DefaultOutputLimit)),
			refPtr(model.Collector("stderr", config.DefaultOutputLimit)),
		},
		CopyIn: map[string]model.FileRef{
			checkerSourceFilename: model.MemoryFile([]byte(c.code)),
		},
		CopyOutCached: []string{checkerCompiledFilename},
	}
	results, err := c.client.Run(ctx, model.RunRequest{Cmd: []model.SandboxCmd{cmd}})
	if err != nil {
		return errors.Wrapf(err, errors.TransportError, "checker: compile transport failure: %v", err)
	}
	result := results[0]
	if result.Status != model.StatusAccepted {
		return errors.Newf(errors.CompilationError, "checker: failed to compile:\n%s", result.Files["stderr"])
	}
	c.compiledFile = result.FileIDs[checkerCompiledFilename]
	c.ownsCompiled = true
	return nil
}

func (c *DefaultChecker) Check(ctx context.Context, input, expected, actual model.FileRef) (model.JudgeStatus, error) {
	if c.compiledFile == "" {
		if err := c.Compile(ctx); err != nil {
			return model.SystemError, err
		}
	}
	cmd := model.SandboxCmd{
		Args:         []string{"./Checker", "tc.in", "tc.out", "user.out"},
		ProcLimit:    config.DefaultProcLimit,
		CPURateLimit: config.DefaultCPURateLimit,
		Files: []*model.FileRef{
			refPtr(model.MemoryFile(nil)),
			refPtr(model.Collector("stdout", config.DefaultOutputLimit)),
			refPtr(model.Collector("stderr", config.DefaultOutputLimit)),
		},
		CopyIn: map[string]model.FileRef{
			checkerCompiledFilename: model.PreparedFile(c.compiledFile),
			"tc.in":                 input,
			"tc.out":                expected,
			"user.out":              actual,
		},
	}
	results, err := c.client.Run(ctx, model.RunRequest{Cmd: []model.SandboxCmd{cmd}})
	if err != nil {
		return model.SystemError, errors.Wrapf(err, errors.TransportError, "checker: check transport failure: %v", err)
	}
	result := results[0]
	verdict, ok := defaultStatusMap[result.ExitStatus]
	if !ok {
		return model.SystemError, errors.Newf(errors.JudgeSystemError, "checker: unexpected exit status %d", result.ExitStatus)
	}
	return verdict, nil
}

func (c *DefaultChecker) Close(ctx context.Context) error {
	if !c.ownsCompiled || c.compiledFile == "" {
		return nil
	}
	return c.client.DeleteFile(ctx, c.compiledFile)
}

func (c *DefaultChecker) CompiledFileID() string { return c.compiledFile }

func refPtr(f model.FileRef) *model.FileRef { return &f }
