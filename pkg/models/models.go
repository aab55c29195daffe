// ===== pkg/models/models.go =====
package models

import (
	"time"
)

// Operation status codes shared by every public operation. Callers branch
// only on zero / non-zero; the specific non-zero values exist so the CLI can
// word its messages (prompt for elevation, report a timeout, etc.).
const (
	StatusOK            = 0
	StatusError         = 1
	StatusAdminRequired = 2
	StatusUnsupported   = 3
	StatusTimeout       = 124
)

// Result is the outcome of a public operation: a numeric status plus a
// human-readable message.
type Result struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Code == StatusOK
}

// Scope identifies one independently capturable/restorable parameter group.
type Scope string

const (
	ScopeTCP   Scope = "tcp"
	ScopeDNS   Scope = "dns"
	ScopePower Scope = "power"
	ScopeAll   Scope = "all"
)

// Covers reports whether this scope includes the other one.
func (s Scope) Covers(other Scope) bool {
	return s == ScopeAll || s == other
}

// TCPGlobals holds the six tracked TCP global parameters as the literal
// tokens printed by the configuration utility. An empty string means the
// value could not be determined; values are never reinterpreted, only
// replayed verbatim.
type TCPGlobals struct {
	AutoTuningLevel    string `json:"autotuninglevel,omitempty"`
	ECNCapability      string `json:"ecncapability,omitempty"`
	RSS                string `json:"rss,omitempty"`
	Chimney            string `json:"chimney,omitempty"`
	CongestionProvider string `json:"congestionprovider,omitempty"`
	Timestamps         string `json:"timestamps,omitempty"`
}

// Empty reports whether no field was determined.
func (t TCPGlobals) Empty() bool {
	return t == TCPGlobals{}
}

// DNSConfig is the DNS configuration of a single interface. If DHCP is true
// the server list is ignored on restore; if false, the ordered server list
// (primary first) is only actionable when non-empty.
type DNSConfig struct {
	DHCP    bool     `json:"dhcp"`
	Servers []string `json:"servers"`
}

// Snapshot is the single-slot record of system state at capture time.
// A new capture overwrites the previous snapshot; there is no history.
type Snapshot struct {
	TCP       TCPGlobals           `json:"tcp_globals"`
	DNS       map[string]DNSConfig `json:"dns"`
	Power     string               `json:"power,omitempty"`
	Timestamp int64                `json:"timestamp,omitempty"`
}

// CapturedAt returns the capture time, or the zero time when unknown.
func (s *Snapshot) CapturedAt() time.Time {
	if s.Timestamp == 0 {
		return time.Time{}
	}
	return time.Unix(s.Timestamp, 0)
}

// OpRecord is one entry in the in-memory operation history.
type OpRecord struct {
	Timestamp time.Time `json:"when"`
	UnixTime  int64     `json:"utime"`
	Action    string    `json:"action"`
	Code      int       `json:"code"`
	Message   string    `json:"message"`
}
