package services

import "testing"

type recordingSink struct {
	stages   []string
	percents []int
}

func (s *recordingSink) Report(stage string, percent int, detail string) {
	s.stages = append(s.stages, stage)
	s.percents = append(s.percents, percent)
}

func TestProgressReporterStageBases(t *testing.T) {
	cases := []struct {
		stage string
		want  int
	}{
		{"downloading", 0},
		{"extracting", 10},
		{"transcribing", 10},
		{"describing", 35},
		{"chunking", 35},
		{"embedding", 45},
		{"storing", 90},
		{"completed", 100},
	}
	for _, c := range cases {
		r := NewProgressReporter(nil)
		r.Stage(c.stage)
		if got := r.Percent(); got != c.want {
			t.Fatalf("stage %q: want=%d got=%d", c.stage, c.want, got)
		}
	}
}

func TestProgressReporterStageStepInterpolates(t *testing.T) {
	r := NewProgressReporter(nil)
	r.StageStep("embedding", 5, 10)
	// embedding band is 45-90
	if got := r.Percent(); got != 67 {
		t.Fatalf("halfway embedding: want=67 got=%d", got)
	}
	r.StageStep("embedding", 10, 10)
	if got := r.Percent(); got != 90 {
		t.Fatalf("finished embedding: want=90 got=%d", got)
	}
}

func TestProgressReporterNeverMovesBackwards(t *testing.T) {
	r := NewProgressReporter(nil)
	r.Stage("storing")
	if got := r.Percent(); got != 90 {
		t.Fatalf("storing: want=90 got=%d", got)
	}
	r.Stage("downloading")
	if got := r.Percent(); got != 90 {
		t.Fatalf("regression: want=90 got=%d", got)
	}
	r.StageStep("embedding", 1, 10)
	if got := r.Percent(); got != 90 {
		t.Fatalf("lower band after storing: want=90 got=%d", got)
	}
}

func TestProgressReporterUnknownStageKeepsPercent(t *testing.T) {
	sink := &recordingSink{}
	r := NewProgressReporter(sink)
	r.Stage("extracting")
	r.Stage("mystery_stage")

	if got := r.Percent(); got != 10 {
		t.Fatalf("unknown stage: want=10 got=%d", got)
	}
	if len(sink.stages) != 2 || sink.stages[1] != "mystery_stage" || sink.percents[1] != 10 {
		t.Fatalf("sink should still see the unknown stage at the old percent, got %v %v",
			sink.stages, sink.percents)
	}
}

func TestProgressReporterClampsStep(t *testing.T) {
	r := NewProgressReporter(nil)
	r.StageStep("embedding", 50, 10)
	if got := r.Percent(); got != 90 {
		t.Fatalf("over-step: want=90 got=%d", got)
	}
}
