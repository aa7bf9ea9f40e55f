package logger

import (
	"context"
	"testing"
)

func TestNewInvalidLevel(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Level: "not-a-level"}); err == nil {
		t.Fatalf("expected error for an invalid level")
	}
}

func TestIsDebug(t *testing.T) {
	t.Parallel()

	debugLog, err := New(Config{Level: "debug"})
	if err != nil {
		t.Fatalf("new debug logger: %v", err)
	}
	if !debugLog.IsDebug() {
		t.Fatalf("expected IsDebug true at debug level")
	}

	infoLog, err := New(Config{Level: "info"})
	if err != nil {
		t.Fatalf("new info logger: %v", err)
	}
	if infoLog.IsDebug() {
		t.Fatalf("expected IsDebug false at info level")
	}
}

func TestSubmissionIDRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithSubmissionID(context.Background(), "sub-42")
	if got := submissionID(ctx); got != "sub-42" {
		t.Fatalf("expected sub-42, got %q", got)
	}
	if got := submissionID(context.Background()); got != "" {
		t.Fatalf("expected empty string for a context with no submission id, got %q", got)
	}
}

func TestGetFallsBackToNopWithoutInit(t *testing.T) {
	global = nil
	l := Get()
	if l == nil {
		t.Fatalf("expected a non-nil fallback logger")
	}
	// Must not panic even though nothing was configured.
	l.Info(context.Background(), "probe")
}

func TestNilLoggerMethodsDoNotPanic(t *testing.T) {
	t.Parallel()

	var l *Logger
	l.Debug(context.Background(), "probe")
	l.Info(context.Background(), "probe")
	if err := l.Sync(); err != nil {
		t.Fatalf("expected nil Sync error on a nil logger, got %v", err)
	}
	if l.IsDebug() {
		t.Fatalf("expected IsDebug false on a nil logger")
	}
}
