package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"delaykiller/internal/config"
	"delaykiller/internal/oplog"
	"delaykiller/internal/probe"
	"delaykiller/internal/snapshot"
	"delaykiller/pkg/models"
)

type fakeRunner struct {
	outputs map[string]string
}

func (f *fakeRunner) Run(_ time.Duration, name string, args ...string) (int, string) {
	return 0, f.outputs[strings.Join(append([]string{name}, args...), " ")]
}

func newTestServer(t *testing.T) (*Server, *snapshot.Store, *oplog.Log) {
	t.Helper()

	run := &fakeRunner{outputs: map[string]string{
		"netsh interface tcp show global":             "Receive Window Auto-Tuning Level : normal",
		"netsh interface ipv4 show dns name=Ethernet": "Statically Configured DNS Servers: 8.8.8.8",
		"powercfg /getactivescheme":                   "Power Scheme GUID: 381b4222-f694-41f0-9685-ff5bb260df2e  (Balanced)",
	}}

	cfg := config.DefaultConfig()
	cfg.BackupFile = filepath.Join(t.TempDir(), "backup.json")

	store := snapshot.NewStore(cfg.BackupFile)
	ops := oplog.New()
	src := func() *config.Config { return cfg }
	return NewServer(src, probe.New(run), store, ops), store, ops
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStatusEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var got StatusJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Interface != "Ethernet" {
		t.Errorf("interface = %q", got.Interface)
	}
	if got.TCP.AutoTuningLevel != "normal" {
		t.Errorf("autotuninglevel = %q", got.TCP.AutoTuningLevel)
	}
	if got.Power != "381b4222-f694-41f0-9685-ff5bb260df2e" {
		t.Errorf("power = %q", got.Power)
	}
	if got.HasSnapshot {
		t.Error("no snapshot saved yet")
	}
}

func TestStatusTracksConfigReload(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BackupFile = filepath.Join(t.TempDir(), "backup.json")

	srv := NewServer(func() *config.Config { return cfg },
		probe.New(&fakeRunner{}), snapshot.NewStore(cfg.BackupFile), oplog.New())

	var got StatusJSON
	if err := json.Unmarshal(get(t, srv, "/api/status").Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Interface != "Ethernet" {
		t.Fatalf("interface = %q", got.Interface)
	}

	// A config reload swaps the pointer behind the source; the handler
	// must report the new value without a server restart.
	reloaded := config.DefaultConfig()
	reloaded.Interface = "Wi-Fi 2"
	cfg = reloaded

	if err := json.Unmarshal(get(t, srv, "/api/status").Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Interface != "Wi-Fi 2" {
		t.Errorf("interface after reload = %q, want Wi-Fi 2", got.Interface)
	}
}

func TestStatusReportsSnapshot(t *testing.T) {
	srv, store, _ := newTestServer(t)
	if err := store.Save(&models.Snapshot{
		DNS:       map[string]models.DNSConfig{},
		Timestamp: time.Now().Unix(),
	}); err != nil {
		t.Fatal(err)
	}

	var got StatusJSON
	rec := get(t, srv, "/api/status")
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if !got.HasSnapshot {
		t.Error("snapshot presence not reported")
	}
	if got.SnapshotTaken == "" {
		t.Error("snapshot time missing")
	}
}

func TestLogEndpoint(t *testing.T) {
	srv, _, ops := newTestServer(t)

	rec := get(t, srv, "/api/log")
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("empty log should encode as [], got %q", body)
	}

	ops.Record("apply", models.Result{Code: models.StatusOK, Message: "done"})

	var entries []models.OpRecord
	rec = get(t, srv, "/api/log")
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Action != "apply" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	srv, store, _ := newTestServer(t)

	rec := get(t, srv, "/api/snapshot")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 without a snapshot", rec.Code)
	}

	if err := store.Save(&models.Snapshot{
		TCP:   models.TCPGlobals{RSS: "enabled"},
		DNS:   map[string]models.DNSConfig{},
		Power: "8c5e7fda-e8bf-4a96-9a85-a6e23a8c635c",
	}); err != nil {
		t.Fatal(err)
	}

	rec = get(t, srv, "/api/snapshot")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.TCP.RSS != "enabled" || snap.Power == "" {
		t.Errorf("snapshot = %+v", snap)
	}
}
