package statsd

import (
	"sync"
	"time"
)

// Sample is one metric captured by a Recorder.
type Sample struct {
	Kind  string // count, gauge or timing
	Name  string
	Value float64
	Tags  map[string]string
}

// Recorder is a Sink that keeps every sample in memory.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
}

var _ Sink = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) add(kind, name string, value float64, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, Sample{Kind: kind, Name: name, Value: value, Tags: cloneTags(tags)})
}

// Count implements Sink.
func (r *Recorder) Count(name string, value int64, tags map[string]string) {
	r.add("count", name, float64(value), tags)
}

// Gauge implements Sink.
func (r *Recorder) Gauge(name string, value float64, tags map[string]string) {
	r.add("gauge", name, value, tags)
}

// Timing implements Sink.
func (r *Recorder) Timing(name string, value time.Duration, tags map[string]string) {
	r.add("timing", name, float64(value.Milliseconds()), tags)
}

// Samples returns a copy of everything recorded so far.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

// Total sums the values recorded under name whose tags include match.
func (r *Recorder) Total(name string, match map[string]string) float64 {
	var total float64
	for _, s := range r.Samples() {
		if s.Name != name || !tagsContain(s.Tags, match) {
			continue
		}
		total += s.Value
	}
	return total
}

func tagsContain(tags, match map[string]string) bool {
	for k, v := range match {
		if tags[k] != v {
			return false
		}
	}
	return true
}
