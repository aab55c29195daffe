// ===== internal/web/handlers.go =====
package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"delaykiller/internal/snapshot"
	"delaykiller/pkg/models"
)

// StatusJSON is the live-state view returned by /api/status.
type StatusJSON struct {
	Interface     string               `json:"interface"`
	TCP           models.TCPGlobals    `json:"tcp_globals"`
	DNS           models.DNSConfig     `json:"dns"`
	Power         string               `json:"power,omitempty"`
	SnapshotTaken string               `json:"snapshot_taken,omitempty"`
	HasSnapshot   bool                 `json:"has_snapshot"`
}

// handleStatus probes the current system state and reports it alongside
// snapshot availability. Probing is read-only, so serving this endpoint
// never changes anything.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	log.Printf("Request from %s: %s", r.RemoteAddr, r.URL.String())

	iface := s.cfg().Interface
	status := StatusJSON{
		Interface: iface,
		TCP:       s.probe.TCPGlobals(),
		DNS:       s.probe.DNSInfo(iface),
		Power:     s.probe.ActivePowerGUID(),
	}

	if snap, err := s.store.Load(); err == nil {
		status.HasSnapshot = true
		if ts := snap.CapturedAt(); !ts.IsZero() {
			status.SnapshotTaken = ts.Format(time.RFC3339)
		}
	}

	s.writeJSON(w, status)
}

// handleLog returns the recent operation history.
func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	log.Printf("Request from %s: %s", r.RemoteAddr, r.URL.String())

	entries := s.ops.Entries()
	if entries == nil {
		entries = []models.OpRecord{}
	}
	s.writeJSON(w, entries)
}

// handleSnapshot returns the raw stored snapshot, or 404 when none exists.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	log.Printf("Request from %s: %s", r.RemoteAddr, r.URL.String())

	snap, err := s.store.Load()
	if err != nil {
		if errors.Is(err, snapshot.ErrNoSnapshot) {
			http.Error(w, "no snapshot present", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, snap)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
