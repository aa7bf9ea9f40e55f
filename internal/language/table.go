// Package language holds the read-only registry mapping a language
// tag to its compile/run commands and resource-scaling factors.
package language

import (
	"fmt"
	"sync"

	"github.com/google/shlex"
)

// Entry is one language's static configuration.
type Entry struct {
	SourceFilename   string
	CompiledFilename string
	NeedsCompile     bool
	CompileCmd       []string
	RunCmd           []string
	TimeFactor       int64
	MemoryFactor     int64
}

// Table is a read-only registry of Entry by language tag. Registration
// is idempotent-forbidden: a tag may be registered only once.
type Table struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewTable builds an empty registry.
func NewTable() *Table {
	return &Table{entries: make(map[string]Entry)}
}

// Register adds an entry under tag. Registering the same tag twice
// fails.
func (t *Table) Register(tag string, e Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[tag]; ok {
		return fmt.Errorf("language: %q is already registered", tag)
	}
	if e.TimeFactor == 0 {
		e.TimeFactor = 1
	}
	if e.MemoryFactor == 0 {
		e.MemoryFactor = 1
	}
	t.entries[tag] = e
	return nil
}

// Get looks up tag. Lookup of an unknown tag fails.
func (t *Table) Get(tag string) (Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[tag]
	if !ok {
		return Entry{}, fmt.Errorf("language: %q is not registered", tag)
	}
	return e, nil
}

// ScaledLimits applies the entry's time/memory factors to a
// submission's stated limits, per the worker's fixed scaling rule:
// cpuLimit = timeLimit(ms)*timeFactor*1e6, memoryLimit =
// memoryLimit(KiB)*memoryFactor*1024, clockLimit = 2*cpuLimit.
func (e Entry) ScaledLimits(timeLimitMs, memoryLimitKiB int64) (cpuLimit, clockLimit, memoryLimit int64) {
	cpuLimit = timeLimitMs * e.TimeFactor * 1_000_000
	clockLimit = 2 * cpuLimit
	memoryLimit = memoryLimitKiB * e.MemoryFactor * 1024
	return
}

// ParseCommand splits a shell-style command string into argv, the way
// the worker's YAML config authors compile/run commands (mirroring the
// Python registry's literal `"/usr/bin/bash", "-c", " ".join([...])`
// multi-step commands for Java and Python compiles).
func ParseCommand(s string) ([]string, error) {
	argv, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("language: parse command %q: %w", s, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("language: empty command")
	}
	return argv, nil
}

// Tags used by the static default registry and by Submission.Language.
const (
	C      = "c"
	Cpp11  = "cpp11"
	Cpp17  = "cpp17"
	Java   = "java"
	Python = "python"
	PyPy   = "pypy"
)

// Defaults registers the static set covering C, C++11, C++17, Java,
// Python, PyPy with the original judger's exact toolchain invocations.
func Defaults() *Table {
	t := NewTable()
	must := func(tag string, e Entry) {
		if err := t.Register(tag, e); err != nil {
			panic(err)
		}
	}

	must(C, Entry{
		SourceFilename:   "Main.c",
		CompiledFilename: "Main",
		NeedsCompile:     true,
		CompileCmd: []string{
			"/usr/bin/gcc-12", "Main.c", "-o", "Main",
			"-std=c11", "-O2", "-lm", "-DONLINE_JUDGE",
			"-w", "-fmax-errors=3", "--static",
		},
		RunCmd: []string{"./Main"},
	})

	must(Cpp11, Entry{
		SourceFilename:   "Main.cpp",
		CompiledFilename: "Main",
		NeedsCompile:     true,
		CompileCmd: []string{
			"/usr/bin/g++-12", "Main.cpp", "-o", "Main",
			"-std=c++11", "-O2", "-lm", "-DONLINE_JUDGE",
			"-w", "-fmax-errors=3", "--static",
		},
		RunCmd: []string{"./Main"},
	})

	must(Cpp17, Entry{
		SourceFilename:   "Main.cpp",
		CompiledFilename: "Main",
		NeedsCompile:     true,
		CompileCmd: []string{
			"/usr/bin/g++-12", "Main.cpp", "-o", "Main",
			"-std=c++17", "-O2", "-lm", "-DONLINE_JUDGE",
			"-w", "-fmax-errors=3", "--static",
		},
		RunCmd: []string{"./Main"},
	})

	must(Java, Entry{
		SourceFilename:   "Main.java",
		CompiledFilename: "Main.jar",
		NeedsCompile:     true,
		CompileCmd: mustParse(
			"/usr/bin/bash -c \"/usr/bin/javac Main.java -encoding UTF-8 && /usr/bin/jar cvf Main.jar *.class\"",
		),
		RunCmd:       []string{"/usr/bin/java", "-DONLINE_JUDGE", "-cp", "Main.jar", "Main"},
		TimeFactor:   2,
		MemoryFactor: 2,
	})

	must(Python, Entry{
		SourceFilename:   "Main.py",
		CompiledFilename: "Main.pyc",
		NeedsCompile:     true,
		CompileCmd: mustParse(
			"/usr/bin/bash -c \"/usr/bin/python3.11 -m py_compile Main.py && mv __pycache__/Main.cpython-311.pyc Main.pyc\"",
		),
		RunCmd: []string{"/usr/bin/python3.11", "Main.pyc"},
	})

	must(PyPy, Entry{
		SourceFilename:   "Main.py",
		CompiledFilename: "Main.pyc",
		NeedsCompile:     true,
		CompileCmd: mustParse(
			"/usr/bin/bash -c \"/usr/bin/pypy3 -m py_compile Main.py && mv __pycache__/Main.pypy39.pyc Main.pyc\"",
		),
		RunCmd: []string{"/usr/bin/pypy3", "Main.pyc"},
	})

	return t
}

func mustParse(s string) []string {
	argv, err := ParseCommand(s)
	if err != nil {
		panic(err)
	}
	return argv
}
