package assets_test

import (
	"strings"
	"testing"

	"ptoj-judger/internal/assets"
)

func TestTestlibHeaderIsNonEmpty(t *testing.T) {
	t.Parallel()

	header := assets.TestlibHeader()
	if len(header) == 0 {
		t.Fatalf("expected a non-empty embedded testlib header")
	}
}

func TestTestlibHeaderIncludesCstdarg(t *testing.T) {
	t.Parallel()

	header := string(assets.TestlibHeader())
	if !strings.Contains(header, "<cstdarg>") {
		t.Fatalf("expected the embedded header to include <cstdarg> for quitf's va_list usage")
	}
	if !strings.Contains(header, "va_start") {
		t.Fatalf("expected the embedded header to still define quitf's va_list body")
	}
}

func TestDefaultCheckerSourceHasMainEntryPoint(t *testing.T) {
	t.Parallel()

	src := assets.DefaultCheckerSource()
	if src == "" {
		t.Fatalf("expected non-empty default checker source")
	}
	if !strings.Contains(src, "main") {
		t.Fatalf("expected a main entry point in the default checker source")
	}
}
