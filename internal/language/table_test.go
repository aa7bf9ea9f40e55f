package language_test

import (
	"testing"

	"ptoj-judger/internal/language"
)

func TestRegisterIdempotentForbidden(t *testing.T) {
	t.Parallel()

	tbl := language.NewTable()
	if err := tbl.Register("cpp17", language.Entry{RunCmd: []string{"./Main"}}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := tbl.Register("cpp17", language.Entry{RunCmd: []string{"./Main"}}); err == nil {
		t.Fatalf("expected error re-registering the same tag")
	}
}

func TestGetUnknownTag(t *testing.T) {
	t.Parallel()

	tbl := language.NewTable()
	if _, err := tbl.Get("rust"); err == nil {
		t.Fatalf("expected error for unregistered tag")
	}
}

func TestRegisterDefaultsFactors(t *testing.T) {
	t.Parallel()

	tbl := language.NewTable()
	if err := tbl.Register("c", language.Entry{RunCmd: []string{"./Main"}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	e, err := tbl.Get("c")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e.TimeFactor != 1 || e.MemoryFactor != 1 {
		t.Fatalf("expected default factors of 1, got time=%d memory=%d", e.TimeFactor, e.MemoryFactor)
	}
}

func TestScaledLimits(t *testing.T) {
	t.Parallel()

	e := language.Entry{TimeFactor: 2, MemoryFactor: 2}
	cpu, clock, memory := e.ScaledLimits(1000, 262144)
	if cpu != 1000*2*1_000_000 {
		t.Fatalf("unexpected cpu limit: %d", cpu)
	}
	if clock != 2*cpu {
		t.Fatalf("unexpected clock limit: %d, want 2x cpu (%d)", clock, 2*cpu)
	}
	if memory != 262144*2*1024 {
		t.Fatalf("unexpected memory limit: %d", memory)
	}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	argv, err := language.ParseCommand(`/usr/bin/bash -c "/usr/bin/javac Main.java -encoding UTF-8 && /usr/bin/jar cvf Main.jar *.class"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"/usr/bin/bash", "-c", "/usr/bin/javac Main.java -encoding UTF-8 && /usr/bin/jar cvf Main.jar *.class"}
	if len(argv) != len(want) {
		t.Fatalf("argv length mismatch: got %v, want %v", argv, want)
	}
	for i := range want {
		if argv[i] != want[i] {
			t.Fatalf("argv[%d] = %q, want %q", i, argv[i], want[i])
		}
	}
}

func TestParseCommandEmpty(t *testing.T) {
	t.Parallel()

	if _, err := language.ParseCommand("   "); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestDefaultsRegistersAllTags(t *testing.T) {
	t.Parallel()

	tbl := language.Defaults()
	for _, tag := range []string{language.C, language.Cpp11, language.Cpp17, language.Java, language.Python, language.PyPy} {
		e, err := tbl.Get(tag)
		if err != nil {
			t.Fatalf("tag %s: %v", tag, err)
		}
		if !e.NeedsCompile {
			t.Fatalf("tag %s: expected NeedsCompile true", tag)
		}
		if len(e.RunCmd) == 0 {
			t.Fatalf("tag %s: expected non-empty RunCmd", tag)
		}
	}

	java, _ := tbl.Get(language.Java)
	if java.TimeFactor != 2 || java.MemoryFactor != 2 {
		t.Fatalf("java: expected time/memory factor 2, got %d/%d", java.TimeFactor, java.MemoryFactor)
	}

	cpp17, _ := tbl.Get(language.Cpp17)
	if cpp17.TimeFactor != 1 || cpp17.MemoryFactor != 1 {
		t.Fatalf("cpp17: expected default factors, got %d/%d", cpp17.TimeFactor, cpp17.MemoryFactor)
	}
}
