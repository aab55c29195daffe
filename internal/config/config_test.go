package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Interface != "Ethernet" {
		t.Errorf("interface = %q", cfg.Interface)
	}
	if cfg.PrimaryDNS != "8.8.8.8" || cfg.SecondaryDNS != "8.8.4.4" {
		t.Errorf("dns = %q / %q", cfg.PrimaryDNS, cfg.SecondaryDNS)
	}
	if !cfg.AutoBackup {
		t.Error("auto backup should default on")
	}
	if cfg.LowLatency || cfg.DNSMode || cfg.PowerHigh {
		t.Error("optional tweaks should default off")
	}
	if cfg.MTUStart != 1500 || cfg.MTUFloor != 1200 || cfg.MTUStep != 10 {
		t.Errorf("mtu bounds = %d/%d/%d", cfg.MTUStart, cfg.MTUFloor, cfg.MTUStep)
	}
	if cfg.BackupFile == "" {
		t.Error("backup file must have a default")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "delaykiller.ini")
	content := `# tweak profile
interface = Wi-Fi
lowlatency = true
dnsmode = true
primarydns = 1.1.1.1
secondarydns = 1.0.0.1
dnscandidates = 1.1.1.1, 9.9.9.9
mtustart = 1400
httplisten = 127.0.0.1:9000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Interface != "Wi-Fi" {
		t.Errorf("interface = %q", cfg.Interface)
	}
	if !cfg.LowLatency || !cfg.DNSMode {
		t.Error("toggles not applied")
	}
	if cfg.PowerHigh {
		t.Error("unset key must keep its default")
	}
	if cfg.PrimaryDNS != "1.1.1.1" || cfg.SecondaryDNS != "1.0.0.1" {
		t.Errorf("dns = %q / %q", cfg.PrimaryDNS, cfg.SecondaryDNS)
	}
	if want := []string{"1.1.1.1", "9.9.9.9"}; !reflect.DeepEqual(cfg.DNSCandidates, want) {
		t.Errorf("candidates = %v, want %v", cfg.DNSCandidates, want)
	}
	if cfg.MTUStart != 1400 || cfg.MTUFloor != 1200 {
		t.Errorf("mtu bounds = %d/%d", cfg.MTUStart, cfg.MTUFloor)
	}
	if cfg.HTTPListen != "127.0.0.1:9000" {
		t.Errorf("listen = %q", cfg.HTTPListen)
	}
}

func TestLoadFromFileCaseInsensitive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "delaykiller.ini")
	if err := os.WriteFile(path, []byte("Interface = Ethernet 2\nPowerHigh = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Interface != "Ethernet 2" || !cfg.PowerHigh {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.ini")); err == nil {
		t.Error("expected an error for a missing file")
	}
	if cfg.Interface != "Ethernet" {
		t.Error("defaults must survive a failed load")
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("DK_INTERFACE", "Wi-Fi 2")
	t.Setenv("DK_LOWLATENCY", "true")
	t.Setenv("DK_AUTOBACKUP", "false")
	t.Setenv("DK_DNSCANDIDATES", "9.9.9.9,149.112.112.112")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	if cfg.Interface != "Wi-Fi 2" {
		t.Errorf("interface = %q", cfg.Interface)
	}
	if !cfg.LowLatency {
		t.Error("DK_LOWLATENCY not applied")
	}
	if cfg.AutoBackup {
		t.Error("DK_AUTOBACKUP=false not applied")
	}
	if want := []string{"9.9.9.9", "149.112.112.112"}; !reflect.DeepEqual(cfg.DNSCandidates, want) {
		t.Errorf("candidates = %v", cfg.DNSCandidates)
	}
}

func TestNewLayersFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "delaykiller.ini")
	if err := os.WriteFile(path, []byte("interface = Wi-Fi\nprimarydns = 1.1.1.1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DK_INTERFACE", "Ethernet 3")

	cfg, err := New(path)
	if err != nil {
		t.Fatal(err)
	}

	// Environment wins over the file, the file wins over defaults.
	if cfg.Interface != "Ethernet 3" {
		t.Errorf("interface = %q", cfg.Interface)
	}
	if cfg.PrimaryDNS != "1.1.1.1" {
		t.Errorf("primary dns = %q", cfg.PrimaryDNS)
	}
	if cfg.SecondaryDNS != "8.8.4.4" {
		t.Errorf("secondary dns = %q", cfg.SecondaryDNS)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" 8.8.8.8 , , 1.1.1.1,")
	want := []string{"8.8.8.8", "1.1.1.1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitList = %v, want %v", got, want)
	}
}
