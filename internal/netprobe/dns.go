// ===== internal/netprobe/dns.go =====
package netprobe

import (
	"fmt"
	"log"
	"net"
	"regexp"
	"strconv"
	"time"

	"github.com/miekg/dns"

	"delaykiller/internal/runner"
	"delaykiller/pkg/models"
)

// BenchResult is the measured latency of one candidate DNS server. A server
// whose probe output could not be parsed is recorded with Determined false;
// undetermined means "do not rank", never "zero/best".
type BenchResult struct {
	Server     string `json:"server"`
	AvgMillis  int    `json:"avg_ms"`
	Determined bool   `json:"determined"`
}

var averagePattern = regexp.MustCompile(`Average\s*=\s*(\d+)\s*ms`)

// DNSBench measures candidate server latency with a fixed count of timed
// echo probes per server, scraping the reported average round trip.
type DNSBench struct {
	run     runner.Runner
	Count   int
	Timeout time.Duration
}

// NewDNSBench creates an echo-based benchmark
func NewDNSBench(run runner.Runner) *DNSBench {
	return &DNSBench{run: run, Count: 3, Timeout: 2 * time.Second}
}

// Measure probes every candidate once; unparseable servers stay in the
// result list as undetermined rather than being excluded.
func (b *DNSBench) Measure(servers []string) []BenchResult {
	results := make([]BenchResult, 0, len(servers))
	for _, server := range servers {
		results = append(results, b.measureOne(server))
	}
	return results
}

func (b *DNSBench) measureOne(server string) BenchResult {
	res := BenchResult{Server: server}

	code, out := b.run.Run(10*time.Second, "ping",
		"-n", strconv.Itoa(b.Count),
		"-w", strconv.Itoa(int(b.Timeout.Milliseconds())),
		server)
	if code != models.StatusOK {
		return res
	}

	m := averagePattern.FindStringSubmatch(out)
	if m == nil {
		return res
	}
	avg, err := strconv.Atoi(m[1])
	if err != nil {
		return res
	}

	res.AvgMillis = avg
	res.Determined = true
	return res
}

// QueryBench measures latency with real DNS exchanges instead of echo
// probes, which also works against servers that drop ICMP.
type QueryBench struct {
	client   *dns.Client
	Count    int
	Question string
}

// NewQueryBench creates a query-based benchmark
func NewQueryBench() *QueryBench {
	return &QueryBench{
		client:   &dns.Client{Timeout: 2 * time.Second},
		Count:    3,
		Question: "www.example.com.",
	}
}

// Measure issues Count A-record queries per server and averages the
// reported round-trip times. Servers that answer nothing in time are
// recorded as undetermined.
func (q *QueryBench) Measure(servers []string) []BenchResult {
	results := make([]BenchResult, 0, len(servers))
	for _, server := range servers {
		results = append(results, q.measureOne(server))
	}
	return results
}

func (q *QueryBench) measureOne(server string) BenchResult {
	res := BenchResult{Server: server}
	addr := net.JoinHostPort(server, "53")

	var total time.Duration
	var got int
	for i := 0; i < q.Count; i++ {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(q.Question), dns.TypeA)
		_, rtt, err := q.client.Exchange(m, addr)
		if err != nil {
			log.Printf("Warning: query to %s failed: %v", server, err)
			continue
		}
		total += rtt
		got++
	}

	if got == 0 {
		return res
	}
	res.AvgMillis = int(total.Milliseconds()) / got
	res.Determined = true
	return res
}

// Best picks the determined server with the lowest average latency.
// Undetermined entries are never selected.
func Best(results []BenchResult) (BenchResult, bool) {
	var best BenchResult
	found := false
	for _, r := range results {
		if !r.Determined {
			continue
		}
		if !found || r.AvgMillis < best.AvgMillis {
			best = r
			found = true
		}
	}
	return best, found
}

// Format renders one benchmark line for display.
func Format(r BenchResult) string {
	if !r.Determined {
		return fmt.Sprintf("%-16s undetermined", r.Server)
	}
	return fmt.Sprintf("%-16s %d ms", r.Server, r.AvgMillis)
}
