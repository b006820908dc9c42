package observability

import (
	"sort"
	"sync"
	"time"
)

const (
	latencyWindow = 100
	errorWindow   = 50
	topEntries    = 5
)

// ErrorSummary is one entry in the rolling error buffer.
type ErrorSummary struct {
	Time    time.Time `json:"time"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
}

// NameCount pairs a label with its usage count.
type NameCount struct {
	Name  string `json:"name"`
	Count uint64 `json:"count"`
}

// Snapshot is a read-only view of the collector state.
type Snapshot struct {
	TotalRequests      uint64         `json:"totalRequests"`
	SuccessfulRequests uint64         `json:"successfulRequests"`
	FailedRequests     uint64         `json:"failedRequests"`
	AverageLatencyMs   float64        `json:"averageLatencyMs"`
	FailoverRate       float64        `json:"failoverRate"`
	TopTools           []NameCount    `json:"topTools"`
	TopPersonas        []NameCount    `json:"topPersonas"`
	RecentErrors       []ErrorSummary `json:"recentErrors"`
}

// Collector accumulates process-lifetime counters and two bounded rolling
// buffers: the last 100 response-time samples and the last 50 error
// summaries, both FIFO-evicted. It is safe for concurrent use.
//
// Construct one per process and pass it by reference; tests construct a
// fresh instance instead of resetting shared state.
type Collector struct {
	mu sync.Mutex

	total     uint64
	success   uint64
	failed    uint64
	failovers uint64

	latencies []time.Duration
	errors    []ErrorSummary

	toolUse    map[string]uint64
	personaUse map[string]uint64
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		toolUse:    make(map[string]uint64),
		personaUse: make(map[string]uint64),
	}
}

// RecordRequest records one finished chat request and its latency.
func (c *Collector) RecordRequest(success bool, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	if success {
		c.success++
	} else {
		c.failed++
	}

	c.latencies = append(c.latencies, latency)
	if len(c.latencies) > latencyWindow {
		c.latencies = c.latencies[len(c.latencies)-latencyWindow:]
	}
}

// RecordFailover records a per-request switch to the secondary provider.
func (c *Collector) RecordFailover() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failovers++
}

// RecordTool records one tool execution.
func (c *Collector) RecordTool(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toolUse[name]++
}

// RecordPersona records one persona routing decision.
func (c *Collector) RecordPersona(personaType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.personaUse[personaType]++
}

// RecordError appends an error summary to the rolling buffer.
func (c *Collector) RecordError(kind, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errors = append(c.errors, ErrorSummary{
		Time:    time.Now(),
		Kind:    kind,
		Message: message,
	})
	if len(c.errors) > errorWindow {
		c.errors = c.errors[len(c.errors)-errorWindow:]
	}
}

// Snapshot returns a copy of the current state.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		TotalRequests:      c.total,
		SuccessfulRequests: c.success,
		FailedRequests:     c.failed,
		TopTools:           topOf(c.toolUse),
		TopPersonas:        topOf(c.personaUse),
		RecentErrors:       append([]ErrorSummary(nil), c.errors...),
	}

	if len(c.latencies) > 0 {
		var sum time.Duration
		for _, d := range c.latencies {
			sum += d
		}
		snap.AverageLatencyMs = float64(sum.Milliseconds()) / float64(len(c.latencies))
	}
	if c.total > 0 {
		snap.FailoverRate = float64(c.failovers) / float64(c.total)
	}

	return snap
}

// topOf returns the most-used entries of a counter map, highest first,
// capped at topEntries. Ties break alphabetically for stable output.
func topOf(counts map[string]uint64) []NameCount {
	out := make([]NameCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, NameCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > topEntries {
		out = out[:topEntries]
	}
	return out
}
