package model_test

import (
	"testing"

	"ptoj-judger/internal/model"
)

func TestTriggersSkip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status model.JudgeStatus
		want   bool
	}{
		{model.TimeLimitExceeded, true},
		{model.MemoryLimitExceeded, true},
		{model.OutputLimitExceeded, true},
		{model.SystemError, false},
		{model.RuntimeError, false},
		{model.WrongAnswer, false},
		{model.Accepted, false},
	}
	for _, tc := range cases {
		if got := tc.status.TriggersSkip(); got != tc.want {
			t.Errorf("%s.TriggersSkip() = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestAggregationPriorityOrder(t *testing.T) {
	t.Parallel()

	want := []model.JudgeStatus{
		model.SystemError,
		model.OutputLimitExceeded,
		model.MemoryLimitExceeded,
		model.TimeLimitExceeded,
		model.RuntimeError,
		model.WrongAnswer,
		model.PresentationError,
	}
	if len(model.AggregationPriority) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(model.AggregationPriority), len(want))
	}
	for i := range want {
		if model.AggregationPriority[i] != want[i] {
			t.Fatalf("index %d: got %s, want %s", i, model.AggregationPriority[i], want[i])
		}
	}
}

func TestProgressEvent(t *testing.T) {
	t.Parallel()

	ev := model.ProgressEvent("sub-1")
	if ev.SID != "sub-1" {
		t.Fatalf("expected sid sub-1, got %s", ev.SID)
	}
	if ev.Judge != model.RunningJudge {
		t.Fatalf("expected RunningJudge, got %s", ev.Judge)
	}
}
