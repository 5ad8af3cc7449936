package bottleneck

import (
	"strings"
	"testing"
)

func TestSummarize(t *testing.T) {
	doc := ParseOutput(discardLogger(), sampleOutput)
	s := Summarize(doc)
	if s == nil {
		t.Fatal("expected a summary")
	}

	if s.Download != 94.2 || s.Upload != 11.8 || s.Latency != 12.5 || s.Jitter != 0.7 {
		t.Errorf("unexpected throughput figures: %+v", s)
	}
	if s.Tool != "ndt" || s.ServerIP != "203.0.113.7" {
		t.Errorf("unexpected speedtest metadata: tool=%q server=%q", s.Tool, s.ServerIP)
	}
	if s.Hops != 2 {
		t.Errorf("expected 2 hops, got %d", s.Hops)
	}
	if s.SlowestHop != 2 || s.SlowestIP != "100.64.0.1" || s.SlowestRTTMs != 18.4 {
		t.Errorf("unexpected slowest hop: ttl=%d ip=%q rtt=%v", s.SlowestHop, s.SlowestIP, s.SlowestRTTMs)
	}

	str := s.String()
	if !strings.Contains(str, "down=94.20") || !strings.Contains(str, "slowest=ttl2") {
		t.Errorf("unexpected summary string: %s", str)
	}
}

func TestSummarizeSparseDocument(t *testing.T) {
	s := Summarize(map[string]any{"download": 3.0})
	if s == nil {
		t.Fatal("expected a summary")
	}
	if s.Download != 3 || s.Hops != 0 || s.SlowestHop != 0 || s.Tool != "" {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestSummarizeNonObject(t *testing.T) {
	for _, doc := range []any{nil, []any{1.0}, "text", 4.0} {
		if s := Summarize(doc); s != nil {
			t.Errorf("expected nil summary for %#v, got %+v", doc, s)
		}
	}
}
