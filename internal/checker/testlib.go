package checker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"ptoj-judger/internal/config"
	"ptoj-judger/internal/model"
	"ptoj-judger/pkg/errors"
)

// fileCache is the subset of *sandbox.FileCache a TestlibChecker needs
// to dedupe compiled checker binaries by source hash.
type fileCache interface {
	Get(id string) (string, bool)
	Set(id, fileID string)
}

// TestlibChecker compiles user-supplied checker/interactor source
// linked against a packaged testlib.h and runs it as
// `./Checker infile outfile ansfile`; the verdict comes from sandbox
// status, not exit code.
type TestlibChecker struct {
	client       runner
	cache        fileCache
	code         string
	testlibH     []byte
	compiledFile string
	cacheKey     string
}

// NewTestlibChecker builds a TestlibChecker from submission-supplied
// source. Compiled binaries are deduplicated in cache by SHA-256 of
// the source, so two submissions sharing one special judge compile it
// once.
func NewTestlibChecker(client runner, cache fileCache, testlibH []byte, code string) *TestlibChecker {
	sum := sha256.Sum256([]byte(code))
	return &TestlibChecker{
		client:   client,
		cache:    cache,
		code:     code,
		testlibH: testlibH,
		cacheKey: "testlib-checker:" + hex.EncodeToString(sum[:]),
	}
}

func (c *TestlibChecker) Compile(ctx context.Context) error {
	if c.compiledFile != "" {
		return nil
	}
	if fileID, ok := c.cache.Get(c.cacheKey); ok {
		c.compiledFile = fileID
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
			testlibHeaderName:     model.MemoryFile(c.testlibH),
		},
		CopyOutCached: []string{checkerCompiledFilename},
	}
	results, err := c.client.Run(ctx, model.RunRequest{Cmd: []model.SandboxCmd{cmd}})
	if err != nil {
		return errors.Wrapf(err, errors.TransportError, "checker: testlib compile transport failure: %v", err)
	}
	result := results[0]
	if result.Status != model.StatusAccepted {
		return errors.Newf(errors.CompilationError, "checker: failed to compile testlib checker:\n%s", result.Files["stderr"])
	}
	c.compiledFile = result.FileIDs[checkerCompiledFilename]
	c.cache.Set(c.cacheKey, c.compiledFile)
	return nil
}

func (c *TestlibChecker) Check(ctx context.Context, input, expected, actual model.FileRef) (model.JudgeStatus, error) {
	if c.compiledFile == "" {
		if err := c.Compile(ctx); err != nil {
			return model.SystemError, err
		}
	}
	cmd := model.SandboxCmd{
		Args:         []string{"./Checker", "infile", "outfile", "ansfile"},
		ProcLimit:    config.DefaultProcLimit,
		CPURateLimit: config.DefaultCPURateLimit,
		Files: []*model.FileRef{
			refPtr(model.MemoryFile(nil)),
			refPtr(model.Collector("stdout", config.DefaultOutputLimit)),
			refPtr(model.Collector("stderr", config.DefaultOutputLimit)),
		},
		CopyIn: map[string]model.FileRef{
			checkerCompiledFilename: model.PreparedFile(c.compiledFile),
			"infile":                input,
			"outfile":               actual,
			"ansfile":               expected,
		},
	}
	results, err := c.client.Run(ctx, model.RunRequest{Cmd: []model.SandboxCmd{cmd}})
	if err != nil {
		return model.SystemError, errors.Wrapf(err, errors.TransportError, "checker: testlib check transport failure: %v", err)
	}
	result := results[0]
	switch result.Status {
	case model.StatusAccepted:
		return model.Accepted, nil
	case model.StatusNonzeroExitStatus:
		return model.WrongAnswer, nil
	default:
		return model.SystemError, nil
	}
}

// Close is a no-op: every compiled binary this checker produces is
// immediately registered with the File Cache, which owns its eviction.
func (c *TestlibChecker) Close(ctx context.Context) error {
	return nil
}

func (c *TestlibChecker) CompiledFileID() string { return c.compiledFile }
