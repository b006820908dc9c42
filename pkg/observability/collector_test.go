package observability

import (
	"fmt"
	"testing"
	"time"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector()

	c.RecordRequest(true, 10*time.Millisecond)
	c.RecordRequest(true, 10*time.Millisecond)
	c.RecordRequest(false, 10*time.Millisecond)

	snap := c.Snapshot()
	if snap.TotalRequests != 3 {
		t.Errorf("expected 3 total, got %d", snap.TotalRequests)
	}
	if snap.SuccessfulRequests != 2 {
		t.Errorf("expected 2 successful, got %d", snap.SuccessfulRequests)
	}
	if snap.FailedRequests != 1 {
		t.Errorf("expected 1 failed, got %d", snap.FailedRequests)
	}
}

func TestCollector_LatencyWindowEvicts(t *testing.T) {
	c := NewCollector()

	// 120 old samples at 10ms, then 100 new ones at 30ms. Only the last
	// 100 samples count toward the average.
	for i := 0; i < 120; i++ {
		c.RecordRequest(true, 10*time.Millisecond)
	}
	for i := 0; i < 100; i++ {
		c.RecordRequest(true, 30*time.Millisecond)
	}

	snap := c.Snapshot()
	if snap.AverageLatencyMs != 30 {
		t.Errorf("expected average of 30ms over the window, got %v", snap.AverageLatencyMs)
	}
	if snap.TotalRequests != 220 {
		t.Errorf("lifetime counter must not be windowed, got %d", snap.TotalRequests)
	}
}

func TestCollector_ErrorWindowEvicts(t *testing.T) {
	c := NewCollector()

	for i := 0; i < 60; i++ {
		c.RecordError("transient", fmt.Sprintf("err-%d", i))
	}

	snap := c.Snapshot()
	if len(snap.RecentErrors) != 50 {
		t.Fatalf("expected 50 retained errors, got %d", len(snap.RecentErrors))
	}
	if snap.RecentErrors[0].Message != "err-10" {
		t.Errorf("expected oldest retained error err-10, got %q", snap.RecentErrors[0].Message)
	}
	if snap.RecentErrors[49].Message != "err-59" {
		t.Errorf("expected newest error err-59, got %q", snap.RecentErrors[49].Message)
	}
}

func TestCollector_FailoverRate(t *testing.T) {
	c := NewCollector()

	for i := 0; i < 4; i++ {
		c.RecordRequest(true, time.Millisecond)
	}
	c.RecordFailover()

	snap := c.Snapshot()
	if snap.FailoverRate != 0.25 {
		t.Errorf("expected failover rate 0.25, got %v", snap.FailoverRate)
	}
}

func TestCollector_TopToolsCappedAndSorted(t *testing.T) {
	c := NewCollector()

	counts := map[string]int{
		"search_equipment":      6,
		"get_vsd_faults":        4,
		"get_oil_analysis":      4,
		"get_breaker_settings":  2,
		"get_vibration_report":  1,
		"get_atex_certificates": 1,
	}
	for name, n := range counts {
		for i := 0; i < n; i++ {
			c.RecordTool(name)
		}
	}

	snap := c.Snapshot()
	if len(snap.TopTools) != 5 {
		t.Fatalf("expected the top list capped at 5, got %d", len(snap.TopTools))
	}
	if snap.TopTools[0].Name != "search_equipment" || snap.TopTools[0].Count != 6 {
		t.Errorf("unexpected leader: %+v", snap.TopTools[0])
	}
	// Equal counts break alphabetically for stable output.
	if snap.TopTools[1].Name != "get_oil_analysis" || snap.TopTools[2].Name != "get_vsd_faults" {
		t.Errorf("unexpected tie order: %+v", snap.TopTools[1:3])
	}
}

func TestCollector_SnapshotIsACopy(t *testing.T) {
	c := NewCollector()
	c.RecordError("fatal", "original")

	snap := c.Snapshot()
	snap.RecentErrors[0].Message = "mutated"

	if got := c.Snapshot().RecentErrors[0].Message; got != "original" {
		t.Errorf("snapshot mutation leaked into collector: %q", got)
	}
}
