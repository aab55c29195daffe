// ===== internal/restore/engine.go =====
package restore

import (
	"fmt"
	"log"
	"time"

	"delaykiller/internal/runner"
	"delaykiller/internal/snapshot"
	"delaykiller/pkg/models"
)

// Engine replays the reverse command sequence for a captured snapshot.
// Each field with a known value maps to exactly one command; absent fields
// are skipped silently since there is nothing to restore to.
type Engine struct {
	run   runner.Runner
	store *snapshot.Store
}

// NewEngine creates a restore engine
func NewEngine(run runner.Runner, store *snapshot.Store) *Engine {
	return &Engine{run: run, store: store}
}

// tcpRestoreOrder fixes the replay order of the TCP global fields.
var tcpRestoreOrder = []string{
	"autotuninglevel",
	"ecncapability",
	"rss",
	"chimney",
	"congestionprovider",
	"timestamps",
}

func tcpFieldValues(g models.TCPGlobals) map[string]string {
	return map[string]string{
		"autotuninglevel":    g.AutoTuningLevel,
		"ecncapability":      g.ECNCapability,
		"rss":                g.RSS,
		"chimney":            g.Chimney,
		"congestionprovider": g.CongestionProvider,
		"timestamps":         g.Timestamps,
	}
}

// Restore loads the snapshot and replays the reverse commands for the given
// scope. When no snapshot exists it reports failure so the caller can fall
// back to its fixed default sequence; that fallback chain belongs to the
// caller, not to this engine.
//
// Replay itself is best effort: individual command exit codes are not
// inspected, so a field that fails to apply does not stop the remaining
// fields from being restored, and the result stays OK once the snapshot
// loaded.
func (e *Engine) Restore(scope models.Scope) models.Result {
	snap, err := e.store.Load()
	if err != nil {
		log.Printf("Warning: restore: %v", err)
		return models.Result{Code: models.StatusError, Message: err.Error()}
	}

	if scope.Covers(models.ScopeTCP) {
		e.RestoreTCP(snap.TCP, nil)
	}
	if scope.Covers(models.ScopeDNS) {
		for iface, info := range snap.DNS {
			if iface == "" {
				continue
			}
			e.RestoreDNS(iface, info)
		}
	}
	if scope.Covers(models.ScopePower) {
		e.RestorePower(snap.Power)
	}

	log.Printf("Restored %s settings from snapshot", scope)
	return models.Result{Code: models.StatusOK, Message: fmt.Sprintf("restored %s settings from snapshot", scope)}
}

// RestoreTCP replays the captured TCP global values in fixed order. When
// only is non-nil, restoration is limited to the named fields so a tweak
// kind can undo exactly the fields it owns.
func (e *Engine) RestoreTCP(g models.TCPGlobals, only []string) {
	wanted := func(string) bool { return true }
	if only != nil {
		set := make(map[string]bool, len(only))
		for _, f := range only {
			set[f] = true
		}
		wanted = func(name string) bool { return set[name] }
	}

	vals := tcpFieldValues(g)
	for _, name := range tcpRestoreOrder {
		v := vals[name]
		if v == "" || !wanted(name) {
			continue
		}
		runner.Netsh(e.run, "interface", "tcp", "set", "global", fmt.Sprintf("%s=%s", name, v))
	}
}

// RestoreDNS replays the DNS configuration of one interface. Order matters:
// setting a static primary clears any existing secondary entries, so the
// primary must be (re)established before secondaries are added at index 2
// and up. The resolver cache is flushed afterwards.
func (e *Engine) RestoreDNS(iface string, info models.DNSConfig) {
	switch {
	case info.DHCP:
		runner.Netsh(e.run, "interface", "ipv4", "set", "dns", fmt.Sprintf("name=%s", iface), "source=dhcp")
	case len(info.Servers) > 0:
		runner.Netsh(e.run, "interface", "ipv4", "set", "dns", fmt.Sprintf("name=%s", iface), "static", info.Servers[0], "primary")
		for idx, server := range info.Servers[1:] {
			runner.Netsh(e.run, "interface", "ipv4", "add", "dns", fmt.Sprintf("name=%s", iface), server, fmt.Sprintf("index=%d", idx+2))
		}
	default:
		// Neither DHCP nor any server recorded: nothing actionable.
		return
	}

	e.FlushDNSCache()
}

// RestorePower reactivates the captured power scheme, if any.
func (e *Engine) RestorePower(guid string) {
	if guid == "" {
		return
	}
	e.run.Run(6*time.Second, "powercfg", "/setactive", guid)
}

// FlushDNSCache flushes the system resolver cache.
func (e *Engine) FlushDNSCache() (int, string) {
	return e.run.Run(10*time.Second, "ipconfig", "/flushdns")
}
