// ===== internal/tweak/applier.go =====

// Package tweak applies the opinionated "on" profiles and undoes them. The
// on path always issues a fixed command sequence; the off path prefers
// restoring whatever was captured in the snapshot and only falls back to a
// hardcoded default sequence when no snapshot exists. Each tweak kind owns a
// fixed set of fields and never touches fields owned by another kind.
package tweak

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"delaykiller/internal/config"
	"delaykiller/internal/platform"
	"delaykiller/internal/probe"
	"delaykiller/internal/restore"
	"delaykiller/internal/runner"
	"delaykiller/internal/snapshot"
	"delaykiller/pkg/models"
)

// Power plan GUIDs commonly used on Windows.
const (
	HighPerfGUID = "8c5e7fda-e8bf-4a96-9a85-a6e23a8c635c"
	BalancedGUID = "381b4222-f694-41f0-9685-ff5bb260df2e"
)

// Fields owned by each TCP-scoped tweak kind.
var (
	tcpTweakFields   = []string{"autotuninglevel", "ecncapability", "rss", "chimney"}
	lowLatencyFields = []string{"congestionprovider", "timestamps"}
)

// Applier mutates system state towards a tweak profile, optionally
// capturing a snapshot first so the change stays reversible.
type Applier struct {
	cfg   *config.Config
	run   runner.Runner
	store *snapshot.Store
	probe *probe.Probe
	eng   *restore.Engine
	host  platform.Info
}

// NewApplier creates a tweak applier
func NewApplier(cfg *config.Config, run runner.Runner, store *snapshot.Store, host platform.Info) *Applier {
	return &Applier{
		cfg:   cfg,
		run:   run,
		store: store,
		probe: probe.New(run),
		eng:   restore.NewEngine(run, store),
		host:  host,
	}
}

// Engine exposes the restore engine built on the same runner and store.
func (a *Applier) Engine() *restore.Engine {
	return a.eng
}

// Probe exposes the state probe built on the same runner.
func (a *Applier) Probe() *probe.Probe {
	return a.probe
}

// preflight gates every mutating operation: the external utilities must be
// present, and the process must hold admin rights.
func (a *Applier) preflight() (models.Result, bool) {
	if !a.host.Windows {
		return models.Result{Code: models.StatusUnsupported, Message: "unsupported platform"}, false
	}
	if !a.host.Elevated {
		return models.Result{Code: models.StatusAdminRequired, Message: "administrator rights required"}, false
	}
	return models.Result{}, true
}

// autoBackup captures the full snapshot before a mutation. A failed capture
// is logged and the mutation proceeds: some restoration capability is better
// than none, and the user's requested action takes priority.
func (a *Applier) autoBackup(enabled bool) {
	if !enabled {
		return
	}
	if _, ok := a.store.Capture(a.probe, a.cfg.Interface, models.ScopeAll); !ok {
		log.Printf("Warning: proceeding without a fresh backup")
	}
}

// Backup captures the current state of all scopes as a standalone action.
func (a *Applier) Backup() models.Result {
	if !a.host.Windows {
		return models.Result{Code: models.StatusUnsupported, Message: "unsupported platform"}
	}
	if _, ok := a.store.Capture(a.probe, a.cfg.Interface, models.ScopeAll); !ok {
		return models.Result{Code: models.StatusError, Message: "backup failed"}
	}
	return models.Result{Code: models.StatusOK, Message: "backup saved to " + a.store.Path()}
}

// seq tracks the first failure across a mutation command sequence. Commands
// issued before a failure are not rolled back; a timeout mid-sequence can
// leave state partially changed, matching how the utilities behave when
// killed.
type seq struct {
	run  runner.Runner
	code int
	msg  string
}

func (s *seq) record(code int, out, what string) {
	if code == models.StatusOK || s.code != models.StatusOK {
		return
	}
	s.code = code
	if code == models.StatusTimeout {
		s.msg = what + " timed out"
		return
	}
	s.msg = what + " failed"
	if out != "" {
		s.msg += ": " + out
	}
}

func (s *seq) netsh(args ...string) {
	code, out := runner.Netsh(s.run, args...)
	s.record(code, out, "netsh "+strings.Join(args, " "))
}

func (s *seq) result(okMsg string) models.Result {
	if s.code != models.StatusOK {
		return models.Result{Code: s.code, Message: s.msg}
	}
	return models.Result{Code: models.StatusOK, Message: okMsg}
}

// TCPTweaks applies or undoes the TCP global tweak profile.
func (a *Applier) TCPTweaks(enable, autoBackup bool) models.Result {
	if res, ok := a.preflight(); !ok {
		return res
	}
	a.autoBackup(autoBackup)

	s := &seq{run: a.run}
	if enable {
		// Microsoft-supported settings; chimney stays disabled on
		// modern Windows.
		s.netsh("interface", "tcp", "set", "global", "autotuninglevel=normal")
		s.netsh("interface", "tcp", "set", "global", "ecncapability=enabled")
		s.netsh("interface", "tcp", "set", "global", "rss=enabled")
		s.netsh("interface", "tcp", "set", "global", "chimney=disabled")
		return s.result("TCP tweaks applied")
	}

	if snap, err := a.loadSnapshot(); err == nil && !snap.TCP.Empty() {
		a.eng.RestoreTCP(snap.TCP, tcpTweakFields)
		return models.Result{Code: models.StatusOK, Message: "TCP tweaks restored from backup"}
	}

	s.netsh("interface", "tcp", "set", "global", "autotuninglevel=normal")
	s.netsh("interface", "tcp", "set", "global", "ecncapability=default")
	s.netsh("interface", "tcp", "set", "global", "rss=default")
	s.netsh("interface", "tcp", "set", "global", "chimney=disabled")
	return s.result("TCP tweaks reset to defaults")
}

// LowLatency applies or undoes the low-latency congestion profile.
func (a *Applier) LowLatency(enable, autoBackup bool) models.Result {
	if res, ok := a.preflight(); !ok {
		return res
	}
	a.autoBackup(autoBackup)

	s := &seq{run: a.run}
	if enable {
		s.netsh("interface", "tcp", "set", "global", "congestionprovider=ctcp")
		s.netsh("interface", "tcp", "set", "global", "timestamps=disabled")
		return s.result("low latency mode applied")
	}

	if snap, err := a.loadSnapshot(); err == nil &&
		(snap.TCP.CongestionProvider != "" || snap.TCP.Timestamps != "") {
		a.eng.RestoreTCP(snap.TCP, lowLatencyFields)
		return models.Result{Code: models.StatusOK, Message: "low latency settings restored from backup"}
	}

	s.netsh("interface", "tcp", "set", "global", "congestionprovider=none")
	s.netsh("interface", "tcp", "set", "global", "timestamps=enabled")
	return s.result("low latency mode reset to defaults")
}

// DNSMode applies or undoes the static fast-DNS profile on the configured
// interface. The primary is always set before secondaries are added because
// setting a static primary clears existing secondary entries.
func (a *Applier) DNSMode(enable, autoBackup bool) models.Result {
	if res, ok := a.preflight(); !ok {
		return res
	}
	iface := a.cfg.Interface
	if iface == "" {
		return models.Result{Code: models.StatusError, Message: "no interface configured"}
	}
	a.autoBackup(autoBackup)

	s := &seq{run: a.run}
	if enable {
		s.netsh("interface", "ipv4", "set", "dns", fmt.Sprintf("name=%s", iface), "static", a.cfg.PrimaryDNS, "primary")
		s.netsh("interface", "ipv4", "add", "dns", fmt.Sprintf("name=%s", iface), a.cfg.SecondaryDNS, "index=2")
		a.eng.FlushDNSCache()
		return s.result("DNS performance mode applied")
	}

	if snap, err := a.loadSnapshot(); err == nil {
		if info, ok := snap.DNS[iface]; ok && (info.DHCP || len(info.Servers) > 0) {
			a.eng.RestoreDNS(iface, info)
			return models.Result{Code: models.StatusOK, Message: "DNS restored from backup"}
		}
	}

	s.netsh("interface", "ipv4", "set", "dns", fmt.Sprintf("name=%s", iface), "source=dhcp")
	a.eng.FlushDNSCache()
	return s.result("DNS reset to DHCP")
}

// PowerPlan switches the active power scheme. Like every other kind, the
// off path prefers the snapshot's scheme over the Balanced fallback.
func (a *Applier) PowerPlan(high, autoBackup bool) models.Result {
	if res, ok := a.preflight(); !ok {
		return res
	}
	a.autoBackup(autoBackup)

	if high {
		return a.setPowerScheme(HighPerfGUID, "high performance power plan set")
	}

	if snap, err := a.loadSnapshot(); err == nil && snap.Power != "" {
		a.eng.RestorePower(snap.Power)
		return models.Result{Code: models.StatusOK, Message: "power plan restored from backup"}
	}
	return a.setPowerScheme(BalancedGUID, "balanced power plan set")
}

func (a *Applier) setPowerScheme(guid, okMsg string) models.Result {
	code, out := a.run.Run(6*time.Second, "powercfg", "/setactive", guid)
	if code == models.StatusTimeout {
		return models.Result{Code: code, Message: "powercfg timed out"}
	}
	if code != models.StatusOK {
		return models.Result{Code: models.StatusError, Message: out}
	}
	return models.Result{Code: models.StatusOK, Message: okMsg}
}

// FlushDNS flushes the resolver cache as a standalone action.
func (a *Applier) FlushDNS() models.Result {
	if !a.host.Windows {
		return models.Result{Code: models.StatusUnsupported, Message: "unsupported platform"}
	}
	code, out := a.eng.FlushDNSCache()
	if code == models.StatusTimeout {
		return models.Result{Code: code, Message: "flush timed out"}
	}
	if code != models.StatusOK {
		return models.Result{Code: models.StatusError, Message: out}
	}
	return models.Result{Code: models.StatusOK, Message: "DNS cache flushed"}
}

// ApplyMTU pins the interface MTU, typically to a value suggested by path
// MTU discovery. The MTU is not part of the snapshot parameter set.
func (a *Applier) ApplyMTU(mtu int) models.Result {
	if res, ok := a.preflight(); !ok {
		return res
	}
	if mtu <= 0 {
		return models.Result{Code: models.StatusError, Message: "invalid MTU"}
	}

	s := &seq{run: a.run}
	s.netsh("interface", "ipv4", "set", "subinterface", a.cfg.Interface,
		fmt.Sprintf("mtu=%d", mtu), "store=persistent")
	return s.result(fmt.Sprintf("MTU set to %d on %s", mtu, a.cfg.Interface))
}

// ApplyAll runs the enabled profile: one backup up front, then the TCP
// tweak, the optional low-latency, DNS and power tweaks in order.
func (a *Applier) ApplyAll() models.Result {
	if res, ok := a.preflight(); !ok {
		return res
	}
	a.autoBackup(a.cfg.AutoBackup)

	results := []string{
		"TCP: " + a.TCPTweaks(true, false).Message,
		"Latency: " + a.LowLatency(a.cfg.LowLatency, false).Message,
		"DNS: " + a.DNSMode(a.cfg.DNSMode, false).Message,
		"Power: " + a.PowerPlan(a.cfg.PowerHigh, false).Message,
	}

	log.Printf("Apply results: %s", strings.Join(results, " | "))
	return models.Result{Code: models.StatusOK, Message: strings.Join(results, "\n")}
}

// ResetAll undoes everything: whole-snapshot restore when one exists,
// otherwise each kind's fixed default sequence.
func (a *Applier) ResetAll() models.Result {
	if res, ok := a.preflight(); !ok {
		return res
	}

	if a.store.Exists() {
		if res := a.eng.Restore(models.ScopeAll); res.OK() {
			return models.Result{Code: models.StatusOK, Message: "settings restored from backup"}
		}
	}

	a.TCPTweaks(false, false)
	a.LowLatency(false, false)
	a.DNSMode(false, false)
	a.PowerPlan(false, false)
	return models.Result{Code: models.StatusOK, Message: "settings reset to defaults"}
}

func (a *Applier) loadSnapshot() (*models.Snapshot, error) {
	snap, err := a.store.Load()
	if err != nil {
		if !errors.Is(err, snapshot.ErrNoSnapshot) {
			log.Printf("Warning: snapshot unreadable: %v", err)
		}
		return nil, err
	}
	return snap, nil
}
