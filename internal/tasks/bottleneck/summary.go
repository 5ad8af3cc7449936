package bottleneck

import (
	"fmt"
	"strings"

	"github.com/Jeffail/gabs/v2"
)

// Summary holds the headline figures of a bottleneck-finder document.
type Summary struct {
	Download float64
	Upload   float64
	Latency  float64
	Jitter   float64
	Tool     string
	ServerIP string

	// Hops is the number of distinct TTLs that answered a probe.
	Hops int
	// SlowestHop is the TTL with the highest round-trip time, 0 if unknown.
	SlowestHop   int
	SlowestIP    string
	SlowestRTTMs float64
}

// Summarize extracts a Summary from a parsed document. It returns nil when
// the document is not a JSON object.
func Summarize(doc any) *Summary {
	if _, ok := doc.(map[string]any); !ok {
		return nil
	}
	c := gabs.Wrap(doc)

	s := &Summary{
		Download: number(c, "download"),
		Upload:   number(c, "upload"),
		Latency:  number(c, "latency"),
		Jitter:   number(c, "jitter"),
		Tool:     str(c, "tslp", "metadata", "speedtest", "tool"),
		ServerIP: str(c, "tslp", "metadata", "speedtest", "serverIP"),
	}

	ttls := make(map[int]bool)
	for _, probe := range c.S("tslp", "ping").ChildrenMap() {
		ttl := int(number(probe, "ttl"))
		if ttl <= 0 {
			continue
		}
		ttls[ttl] = true
		if rtt := number(probe, "rtt"); rtt > s.SlowestRTTMs {
			s.SlowestRTTMs = rtt
			s.SlowestHop = ttl
			s.SlowestIP = str(probe, "replyIP")
		}
	}
	s.Hops = len(ttls)

	return s
}

// LogAttrs returns the summary as slog key/value pairs.
func (s *Summary) LogAttrs() []any {
	return []any{
		"download", s.Download,
		"upload", s.Upload,
		"latency", s.Latency,
		"jitter", s.Jitter,
		"tool", s.Tool,
		"hops", s.Hops,
		"slowest_hop", s.SlowestHop,
		"slowest_ip", s.SlowestIP,
	}
}

func (s *Summary) String() string {
	parts := []string{
		fmt.Sprintf("down=%.2f", s.Download),
		fmt.Sprintf("up=%.2f", s.Upload),
		fmt.Sprintf("latency=%.2f", s.Latency),
	}
	if s.Tool != "" {
		parts = append(parts, "tool="+s.Tool)
	}
	if s.SlowestHop > 0 {
		parts = append(parts, fmt.Sprintf("slowest=ttl%d(%s, %.1fms)", s.SlowestHop, s.SlowestIP, s.SlowestRTTMs))
	}
	return strings.Join(parts, " ")
}

func number(c *gabs.Container, path ...string) float64 {
	if v, ok := c.S(path...).Data().(float64); ok {
		return v
	}
	return 0
}

func str(c *gabs.Container, path ...string) string {
	if v, ok := c.S(path...).Data().(string); ok {
		return v
	}
	return ""
}
