// ===== internal/netprobe/mtu.go =====

// Package netprobe holds the read-only active measurements: path MTU
// discovery and DNS server latency benchmarking. Results feed suggestions
// to the tweak applier; nothing in this package mutates system state.
package netprobe

import (
	"strconv"
	"strings"
	"time"

	"delaykiller/internal/runner"
	"delaykiller/pkg/models"
)

// Default MTU discovery bounds.
const (
	DefaultMTUStart = 1500
	DefaultMTUFloor = 1200
	DefaultMTUStep  = 10

	// IP (20) plus ICMP (8) header bytes subtracted from the candidate
	// MTU to get the echo payload size.
	headerOverhead = 28
)

// MTUResult is the outcome of a path MTU discovery run. Undetermined means
// no candidate down to the floor got an unfragmented reply; it is distinct
// from any measured value.
type MTUResult struct {
	MTU        int  `json:"mtu"`
	Probes     int  `json:"probes"`
	Determined bool `json:"determined"`
}

// MTUDiscoverer probes the path MTU towards a fixed target by linear
// descent: one non-fragmenting echo per candidate, stepping down until a
// reply arrives or the floor is crossed. Deliberately simple and bounded
// (at most 31 probes with the defaults) rather than a binary search.
type MTUDiscoverer struct {
	run    runner.Runner
	Target string
	Start  int
	Floor  int
	Step   int
}

// NewMTUDiscoverer creates a discoverer against the given target
func NewMTUDiscoverer(run runner.Runner, target string) *MTUDiscoverer {
	return &MTUDiscoverer{
		run:    run,
		Target: target,
		Start:  DefaultMTUStart,
		Floor:  DefaultMTUFloor,
		Step:   DefaultMTUStep,
	}
}

// Discover runs the descent and returns the first candidate whose
// non-fragmenting probe succeeded. A non-positive Step would stall the
// descent, so it is replaced with the default to keep the probe count
// bounded.
func (d *MTUDiscoverer) Discover() MTUResult {
	res := MTUResult{}

	step := d.Step
	if step <= 0 {
		step = DefaultMTUStep
	}

	for candidate := d.Start; candidate >= d.Floor; candidate -= step {
		res.Probes++
		if d.probeOnce(candidate - headerOverhead) {
			res.MTU = candidate
			res.Determined = true
			return res
		}
	}
	return res
}

// probeOnce sends a single don't-fragment echo with the given payload size.
func (d *MTUDiscoverer) probeOnce(payload int) bool {
	code, out := d.run.Run(4*time.Second, "ping",
		"-f", "-l", strconv.Itoa(payload), "-n", "1", d.Target)
	return code == models.StatusOK && strings.Contains(out, "Reply")
}
