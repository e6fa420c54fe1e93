package services

import (
	"fmt"
	"sync"
)

// Stage anchors. Each stage owns a band of the 0-100 range; progress within
// a stage interpolates across its band and can never move backwards.
var stageBands = map[string]struct{ base, width int }{
	"downloading":  {0, 10},
	"extracting":   {10, 25},
	"transcribing": {10, 35},
	"describing":   {35, 20},
	"chunking":     {35, 10},
	"embedding":    {45, 45},
	"storing":      {90, 10},
	"completed":    {100, 0},
}

// ProgressSink receives stage/percent updates. Implemented by the processor
// against the document repo; pipelines only see this interface.
type ProgressSink interface {
	Report(stage string, percent int, detail string)
}

// ProgressReporter maps stage-relative progress onto a monotonic 0-100
// percentage. Unknown stages keep the last percentage. Safe for concurrent
// use by parallel segment workers.
type ProgressReporter struct {
	mu   sync.Mutex
	last int
	sink ProgressSink
}

func NewProgressReporter(sink ProgressSink) *ProgressReporter {
	return &ProgressReporter{sink: sink}
}

// Stage reports entry into a stage (its band base).
func (p *ProgressReporter) Stage(stage string) {
	p.report(stage, 0, 1, "")
}

// StageStep reports completion of step out of total within a stage.
func (p *ProgressReporter) StageStep(stage string, step, total int) {
	detail := ""
	if total > 1 {
		detail = fmt.Sprintf("processing_chunk_%d_of_%d", step, total)
	}
	p.report(stage, step, total, detail)
}

func (p *ProgressReporter) report(stage string, step, total int, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	percent := p.last
	if band, ok := stageBands[stage]; ok {
		if total <= 0 {
			total = 1
		}
		if step < 0 {
			step = 0
		}
		if step > total {
			step = total
		}
		percent = band.base + band.width*step/total
	}
	if percent < p.last {
		percent = p.last
	}
	if percent > 100 {
		percent = 100
	}
	p.last = percent
	if p.sink != nil {
		p.sink.Report(stage, percent, detail)
	}
}

// Percent returns the last reported value.
func (p *ProgressReporter) Percent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
