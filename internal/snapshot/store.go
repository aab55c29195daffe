// ===== internal/snapshot/store.go =====

// Package snapshot owns the single-slot on-disk backup of system state.
// A capture always fully re-probes the requested scope and the resulting
// snapshot overwrites the previous one wholesale; there is no history and
// no merging of old and new data. This trades audit depth for simplicity
// and is a documented limitation, not a bug.
package snapshot

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"delaykiller/internal/probe"
	"delaykiller/pkg/models"
	"delaykiller/pkg/utils"
)

// ErrNoSnapshot is returned by Load when no snapshot has been captured yet.
var ErrNoSnapshot = errors.New("no snapshot present")

// Store serializes snapshots to a well-known path. All other components go
// through Load/Save; nothing else touches the file directly.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a snapshot file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Capture probes the requested scope and saves the result, overwriting any
// previous snapshot. Failures are logged and reported as a boolean: backup
// is best-effort auxiliary work and must never block the action the user
// actually asked for.
func (s *Store) Capture(p *probe.Probe, iface string, scope models.Scope) (*models.Snapshot, bool) {
	snap := &models.Snapshot{
		DNS:       map[string]models.DNSConfig{},
		Timestamp: time.Now().Unix(),
	}

	if scope.Covers(models.ScopeTCP) {
		snap.TCP = p.TCPGlobals()
	}
	if scope.Covers(models.ScopeDNS) && iface != "" {
		snap.DNS[iface] = p.DNSInfo(iface)
	}
	if scope.Covers(models.ScopePower) {
		snap.Power = p.ActivePowerGUID()
	}

	if utils.CheckWarn(s.Save(snap), "backup failed") {
		return snap, false
	}

	log.Printf("Backup saved to %s", s.path)
	return snap, true
}

// Save writes the snapshot atomically: a temp file in the same directory is
// renamed over the slot so a crash mid-write never corrupts the previous
// snapshot.
func (s *Store) Save(snap *models.Snapshot) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return utils.WrapError(err, "failed to create snapshot directory")
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return utils.WrapError(err, "failed to encode snapshot")
	}

	tmp, err := os.CreateTemp(dir, ".backup-*.json")
	if err != nil {
		return utils.WrapError(err, "failed to create temp snapshot")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return utils.WrapError(err, "failed to write snapshot")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return utils.WrapError(err, "failed to close snapshot")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return utils.WrapError(err, "failed to replace snapshot")
	}
	return nil
}

// Load reads the current snapshot. Missing keys in the file mean "no
// information", which the zero values of the record already express.
func (s *Store) Load() (*models.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, utils.WrapError(err, "failed to read snapshot")
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, utils.WrapError(err, "failed to decode snapshot")
	}
	if snap.DNS == nil {
		snap.DNS = map[string]models.DNSConfig{}
	}
	return &snap, nil
}
