package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delaykiller/internal/probe"
	"delaykiller/pkg/models"
)

type fakeRunner struct {
	outputs map[string]string
}

func (f *fakeRunner) Run(_ time.Duration, name string, args ...string) (int, string) {
	return 0, f.outputs[strings.Join(append([]string{name}, args...), " ")]
}

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		TCP: models.TCPGlobals{
			AutoTuningLevel: "normal",
			RSS:             "enabled",
		},
		DNS: map[string]models.DNSConfig{
			"Ethernet": {DHCP: false, Servers: []string{"8.8.8.8", "8.8.4.4"}},
		},
		Power:     "381b4222-f694-41f0-9685-ff5bb260df2e",
		Timestamp: 1700000000,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "backup.json"))

	require.NoError(t, store.Save(testSnapshot()))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, testSnapshot(), got)
}

func TestLoadMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "backup.json"))

	_, err := store.Load()
	assert.True(t, errors.Is(err, ErrNoSnapshot))
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewStore(path).Load()
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoSnapshot))
}

func TestSaveOverwritesSingleSlot(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "backup.json"))

	first := testSnapshot()
	require.NoError(t, store.Save(first))

	second := testSnapshot()
	second.TCP.AutoTuningLevel = "disabled"
	require.NoError(t, store.Save(second))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "disabled", got.TCP.AutoTuningLevel)

	// No history files left behind, only the slot itself.
	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadMissingKeysMeanNoInformation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"dns":{}}`), 0o644))

	got, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.True(t, got.TCP.Empty())
	assert.Empty(t, got.Power)
	assert.NotNil(t, got.DNS)
}

func TestCaptureFullReprobe(t *testing.T) {
	f := &fakeRunner{outputs: map[string]string{
		"netsh interface tcp show global":             "Receive Window Auto-Tuning Level : normal\nECN Capability : disabled",
		"netsh interface ipv4 show dns name=Ethernet": "Statically Configured DNS Servers: 8.8.8.8",
		"powercfg /getactivescheme":                   "Power Scheme GUID: 8c5e7fda-e8bf-4a96-9a85-a6e23a8c635c  (High performance)",
	}}
	store := NewStore(filepath.Join(t.TempDir(), "backup.json"))

	snap, ok := store.Capture(probe.New(f), "Ethernet", models.ScopeAll)
	require.True(t, ok)
	assert.Equal(t, "normal", snap.TCP.AutoTuningLevel)
	assert.Equal(t, "disabled", snap.TCP.ECNCapability)
	assert.Equal(t, []string{"8.8.8.8"}, snap.DNS["Ethernet"].Servers)
	assert.Equal(t, "8c5e7fda-e8bf-4a96-9a85-a6e23a8c635c", snap.Power)
	assert.NotZero(t, snap.Timestamp)
	assert.True(t, store.Exists())
}

func TestCaptureScopedLeavesOtherScopesOut(t *testing.T) {
	f := &fakeRunner{outputs: map[string]string{
		"netsh interface ipv4 show dns name=Ethernet": "DNS servers configured through DHCP: 192.168.1.1",
		"powercfg /getactivescheme":                   "Power Scheme GUID: 381b4222-f694-41f0-9685-ff5bb260df2e  (Balanced)",
	}}
	store := NewStore(filepath.Join(t.TempDir(), "backup.json"))

	// A previous full snapshot exists; a DNS-only capture must not merge it.
	require.NoError(t, store.Save(testSnapshot()))

	snap, ok := store.Capture(probe.New(f), "Ethernet", models.ScopeDNS)
	require.True(t, ok)
	assert.True(t, snap.TCP.Empty())
	assert.Empty(t, snap.Power)
	assert.True(t, snap.DNS["Ethernet"].DHCP)

	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.True(t, reloaded.TCP.Empty())
}

func TestCaptureUnwritablePath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	store := NewStore(filepath.Join(blocker, "backup.json"))
	_, ok := store.Capture(probe.New(&fakeRunner{}), "Ethernet", models.ScopeAll)
	assert.False(t, ok)
}
