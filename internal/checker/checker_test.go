package checker_test

import (
	"context"
	"testing"

	"ptoj-judger/internal/checker"
	"ptoj-judger/internal/model"
)

// fakeRunner implements the checker package's runner interface without a
// real sandbox, one queued result per Run call (or a repeating last one).
type fakeRunner struct {
	results  [][]model.SandboxResult
	callIdx  int
	deleted  []string
	runErr   error
	requests []model.RunRequest
}

func (f *fakeRunner) Run(ctx context.Context, req model.RunRequest) ([]model.SandboxResult, error) {
	f.requests = append(f.requests, req)
	if f.runErr != nil {
		return nil, f.runErr
	}
	idx := f.callIdx
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	f.callIdx++
	return f.results[idx], nil
}

func (f *fakeRunner) DeleteFile(ctx context.Context, fileID string) error {
	f.deleted = append(f.deleted, fileID)
	return nil
}

type fakeCache struct {
	store map[string]string
}

func newFakeCache() *fakeCache { return &fakeCache{store: make(map[string]string)} }

func (f *fakeCache) Get(id string) (string, bool) {
	v, ok := f.store[id]
	return v, ok
}

func (f *fakeCache) Set(id, fileID string) {
	f.store[id] = fileID
}

func compileOKResult(fileID string) model.SandboxResult {
	return model.SandboxResult{
		Status:  model.StatusAccepted,
		FileIDs: map[string]string{"Checker": fileID},
	}
}

// assertResourceLimits checks every command in every request the
// runner received carries a positive ProcLimit/CPURateLimit and that
// every output collector has a bounded (non-zero) max.
func assertResourceLimits(t *testing.T, requests []model.RunRequest) {
	t.Helper()
	if len(requests) == 0 {
		t.Fatalf("expected at least one recorded request")
	}
	for i, req := range requests {
		for _, cmd := range req.Cmd {
			if cmd.ProcLimit <= 0 {
				t.Fatalf("request %d: expected a positive ProcLimit, got %d", i, cmd.ProcLimit)
			}
			if cmd.CPURateLimit <= 0 {
				t.Fatalf("request %d: expected a positive CPURateLimit, got %d", i, cmd.CPURateLimit)
			}
			for _, f := range cmd.Files {
				if f != nil && f.IsCollector() && f.Max <= 0 {
					t.Fatalf("request %d: expected a bounded collector max, got %d", i, f.Max)
				}
			}
		}
	}
}
