// Package status carries per-stage progress reporting for the email
// creation pipeline. Reporting is purely observational: a missing or slow
// sink must never affect pipeline control flow.
package status

import "sync"

// Stage identifies one of the three pipeline steps.
type Stage string

const (
	StageTemplate    Stage = "template"
	StageContent     Stage = "content"
	StageCompilation Stage = "compilation"
)

// Update is a single status event. Progress is a fraction in [0.0, 1.0].
type Update struct {
	Stage    Stage   `json:"stage"`
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`
}

// Reporter receives status updates. Implementations must not block.
type Reporter interface {
	Report(u Update)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(u Update)

func (f ReporterFunc) Report(u Update) { f(u) }

// Nop returns a Reporter that discards all updates.
func Nop() Reporter {
	return ReporterFunc(func(Update) {})
}

// Multi fans one update out to several reporters.
func Multi(reporters ...Reporter) Reporter {
	return ReporterFunc(func(u Update) {
		for _, r := range reporters {
			if r != nil {
				r.Report(u)
			}
		}
	})
}

// Monotonic enforces the per-stage reporting contract on its way to the
// wrapped reporter: progress never decreases within a stage, is clamped to
// [0.0, 1.0], and 1.0 is delivered exactly once per stage. Updates arriving
// after a stage reported 1.0 are dropped. One Monotonic guards one pipeline
// run; it is not meant to be reused across runs.
type Monotonic struct {
	next Reporter

	mu   sync.Mutex
	high map[Stage]float64
	done map[Stage]bool
}

// NewMonotonic wraps next with the per-stage contract guard.
func NewMonotonic(next Reporter) *Monotonic {
	if next == nil {
		next = Nop()
	}
	return &Monotonic{
		next: next,
		high: make(map[Stage]float64),
		done: make(map[Stage]bool),
	}
}

func (m *Monotonic) Report(u Update) {
	m.mu.Lock()
	if m.done[u.Stage] {
		m.mu.Unlock()
		return
	}
	if u.Progress < 0 {
		u.Progress = 0
	}
	if u.Progress > 1 {
		u.Progress = 1
	}
	if u.Progress < m.high[u.Stage] {
		u.Progress = m.high[u.Stage]
	}
	m.high[u.Stage] = u.Progress
	if u.Progress >= 1 {
		m.done[u.Stage] = true
	}
	m.mu.Unlock()

	m.next.Report(u)
}

// Snapshot keeps the latest update per stage (last-write-wins). It is the
// sink backing the status polling endpoint.
type Snapshot struct {
	mu     sync.Mutex
	latest map[Stage]Update
}

func NewSnapshot() *Snapshot {
	return &Snapshot{latest: make(map[Stage]Update)}
}

func (s *Snapshot) Report(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[u.Stage] = u
}

// Stages returns the latest update for each stage that reported so far, in
// pipeline order.
func (s *Snapshot) Stages() []Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Update, 0, 3)
	for _, stage := range []Stage{StageTemplate, StageContent, StageCompilation} {
		if u, ok := s.latest[stage]; ok {
			out = append(out, u)
		}
	}
	return out
}

// ChannelReporter buffers updates on a channel for subscribers. When the
// buffer is full, updates are dropped rather than blocking the pipeline.
type ChannelReporter struct {
	ch chan Update
}

func NewChannelReporter(buffer int) *ChannelReporter {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelReporter{ch: make(chan Update, buffer)}
}

func (c *ChannelReporter) Report(u Update) {
	select {
	case c.ch <- u:
	default:
	}
}

// Updates exposes the subscription side of the reporter.
func (c *ChannelReporter) Updates() <-chan Update {
	return c.ch
}
