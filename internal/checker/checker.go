// Package checker implements the two comparator variants: Default
// (exit-code protocol, packaged comparator) and Testlib (status-based,
// user-supplied source, used for special-judge and interactive
// problems).
package checker

import (
	"context"

	"ptoj-judger/internal/model"
)

// Checker is the polymorphic collaborator the pipeline depends on. It
// does not know whether it is talking to Default or Testlib.
type Checker interface {
	// Compile is idempotent: a no-op once a compiled binary is known,
	// whether freshly built or fetched from the File Cache.
	Compile(ctx context.Context) error
	// Check runs the comparator against input/expected/actual and
	// returns the testcase verdict. Performs no hidden I/O beyond one
	// sandbox /run call.
	Check(ctx context.Context, input, expected, actual model.FileRef) (model.JudgeStatus, error)
	// Close deletes the compiled binary if this checker created it;
	// File-Cache-owned entries are left alone.
	Close(ctx context.Context) error
	// CompiledFileID exposes the compiled binary's sandbox file id once
	// Compile has succeeded, empty otherwise. Used by interactive
	// judging to stage the interactor binary directly.
	CompiledFileID() string
}

const (
	checkerSourceFilename   = "Checker.cpp"
	checkerCompiledFilename = "Checker"
	testlibHeaderName       = "testlib.h"
)

var compileCmd = []string{
	"/usr/bin/g++-12", checkerSourceFilename, "-o", checkerCompiledFilename,
	"-std=c++17", "-O2", "-lm", "-w", "-fmax-errors=3", "--static",
}
