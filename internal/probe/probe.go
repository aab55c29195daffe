// ===== internal/probe/probe.go =====
package probe

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"delaykiller/internal/runner"
	"delaykiller/pkg/models"
	"delaykiller/pkg/utils"
)

// Probe issues read-only queries against the host utilities and scrapes
// their text output into settings records. Every field is matched
// independently: a field that fails to match is recorded as absent, never as
// an error for the whole record. Partial success is the normal case.
type Probe struct {
	run runner.Runner
}

// New creates a new state probe
func New(run runner.Runner) *Probe {
	return &Probe{run: run}
}

// tcpField is one scrapable TCP global parameter. Several vendor phrasings
// exist per field across Windows releases, so each field carries a list of
// patterns and the first non-empty capture wins.
type tcpField struct {
	name     string
	patterns []*regexp.Regexp
}

var tcpFields = []tcpField{
	{"autotuninglevel", compileAll(
		`(?i)Receive Window Auto-Tuning Level\s*:\s*(.+)`,
	)},
	{"ecncapability", compileAll(
		`(?i)ECN Capability\s*:\s*(.+)`,
	)},
	{"rss", compileAll(
		`(?i)Receive-Side Scaling State\s*:\s*(.+)`,
		`(?i)\brss\b\s*:\s*(.+)`,
	)},
	{"chimney", compileAll(
		`(?i)Chimney Offload State\s*:\s*(.+)`,
		`(?i)\bchimney\b\s*:\s*(.+)`,
	)},
	{"congestionprovider", compileAll(
		`(?i)Add-On Congestion Control Provider\s*:\s*(.+)`,
		`(?i)\bcongestionprovider\b\s*:\s*(.+)`,
	)},
	{"timestamps", compileAll(
		`(?i)RFC 1323 Timestamps\s*:\s*(.+)`,
		`(?i)\btimestamps\b\s*:\s*(.+)`,
	)},
}

func compileAll(exprs ...string) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// TCPGlobals queries the TCP global parameters with a single "show global"
// invocation and scrapes the six tracked fields.
func (p *Probe) TCPGlobals() models.TCPGlobals {
	var g models.TCPGlobals

	code, out := runner.Netsh(p.run, "interface", "tcp", "show", "global")
	if code != models.StatusOK || out == "" {
		return g
	}

	vals := make(map[string]string, len(tcpFields))
	for _, f := range tcpFields {
		for _, pat := range f.patterns {
			if m := pat.FindStringSubmatch(out); m != nil {
				if v := strings.TrimSpace(m[1]); v != "" {
					vals[f.name] = v
					break
				}
			}
		}
	}

	g.AutoTuningLevel = vals["autotuninglevel"]
	g.ECNCapability = vals["ecncapability"]
	g.RSS = vals["rss"]
	g.Chimney = vals["chimney"]
	g.CongestionProvider = vals["congestionprovider"]
	g.Timestamps = vals["timestamps"]
	return g
}

// DNSInfo queries the DNS configuration of the named interface. DHCP
// sourcing is detected by a literal DHCP token anywhere in the output;
// otherwise every dotted-quad address is collected in output order, primary
// first.
func (p *Probe) DNSInfo(iface string) models.DNSConfig {
	info := models.DNSConfig{Servers: []string{}}
	if iface == "" {
		return info
	}

	code, out := runner.Netsh(p.run, "interface", "ipv4", "show", "dns", fmt.Sprintf("name=%s", iface))
	if code != models.StatusOK || out == "" {
		return info
	}

	info.DHCP = dhcpToken.MatchString(out)
	if servers := utils.FindIPv4(out); servers != nil {
		info.Servers = servers
	}
	return info
}

var dhcpToken = regexp.MustCompile(`\b(DHCP|dhcp)\b`)

// ActivePowerGUID returns the GUID of the active power scheme, or "" when
// it could not be determined.
func (p *Probe) ActivePowerGUID() string {
	code, out := p.run.Run(4*time.Second, "powercfg", "/getactivescheme")
	if code != models.StatusOK || out == "" {
		return ""
	}
	return utils.FindGUID(out)
}

// Interfaces lists the host network interface names. The table output ends
// each row with the interface name, so rows are split on whitespace and the
// tail columns are rejoined; header and separator rows are filtered out.
func (p *Probe) Interfaces() []string {
	code, out := runner.Netsh(p.run, "interface", "show", "interface")
	if code != models.StatusOK || out == "" {
		code, out = runner.Netsh(p.run, "interface", "ipv4", "show", "interfaces")
		if code != models.StatusOK || out == "" {
			return nil
		}
	}

	var names []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "---") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		// "Admin State  State  Type  Interface Name" rows put the name in
		// column 4; the ipv4 fallback table ("Idx Met MTU State Name")
		// leads with a numeric index and puts it in column 5.
		name := strings.Join(fields[3:], " ")
		if isNumeric(fields[0]) && len(fields) >= 5 {
			name = strings.Join(fields[4:], " ")
		}
		if isHeaderToken(name) || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isHeaderToken(s string) bool {
	switch strings.ToLower(s) {
	case "interface name", "name", "state", "admin state", "idx", "interface",
		"type interface name", "state name":
		return true
	}
	return false
}
