package util

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// TimerStats holds durations in milliseconds.
type TimerStats struct {
	Name  string
	Last  float64
	Total float64
	Count int64
	Min   float64
	Max   float64
}

func (t TimerStats) Average() float64 {
	if t.Count == 0 {
		return 0
	}
	return t.Total / float64(t.Count)
}

func (t TimerStats) String() string {
	return fmt.Sprintf("%s last: %.2fms, avg: %.2fms, min: %.2fms, max: %.2fms (%d runs)", t.Name, t.Last, t.Average(), t.Min, t.Max, t.Count)
}

// Timer collects named duration statistics. It is safe for concurrent use.
type Timer struct {
	mu         sync.Mutex
	states     map[string]*TimerStats
	timerNames []string
}

func NewTimer() *Timer {
	return &Timer{
		states: make(map[string]*TimerStats),
	}
}

func (t *Timer) Stats(name string) (TimerStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[name]
	if !ok {
		return TimerStats{}, false
	}
	return *state, true
}

func (t *Timer) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.timerNames...)
}

func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, state := range t.states {
		*state = TimerStats{Name: state.Name, Min: math.MaxFloat64, Max: 0}
	}
}

func (t *Timer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var sb strings.Builder
	for _, name := range t.timerNames {
		sb.WriteString(t.states[name].String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Start begins a measurement. Calling the returned func records it and
// returns the elapsed milliseconds.
func (t *Timer) Start(name string) func() float64 {
	start := time.Now()
	return func() float64 {
		return t.record(name, float64(time.Since(start).Microseconds())/1000.0)
	}
}

func (t *Timer) record(name string, durationInMS float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[name]
	if !ok {
		t.timerNames = append(t.timerNames, name)
		state = &TimerStats{Name: name, Min: math.MaxFloat64}
		t.states[name] = state
	}
	state.Last = durationInMS
	state.Total += durationInMS
	state.Count++
	state.Min = min(state.Min, durationInMS)
	state.Max = max(state.Max, durationInMS)
	return durationInMS
}
