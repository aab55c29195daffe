// ===== internal/config/config.go =====
package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Config holds all application configuration
type Config struct {
	// Target selection
	Interface string

	// File paths
	BackupFile string

	// Tweak toggles (the profile applied by apply-all / the watch agent)
	LowLatency bool
	DNSMode    bool
	PowerHigh  bool
	AutoBackup bool

	// DNS settings
	PrimaryDNS    string
	SecondaryDNS  string
	DNSCandidates []string

	// Probe settings
	PingTarget string
	MTUStart   int
	MTUFloor   int
	MTUStep    int

	// Status API
	HTTPListen string
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Interface:     "Ethernet",
		BackupFile:    defaultBackupFile(),
		LowLatency:    false,
		DNSMode:       false,
		PowerHigh:     false,
		AutoBackup:    true,
		PrimaryDNS:    "8.8.8.8",
		SecondaryDNS:  "8.8.4.4",
		DNSCandidates: []string{"8.8.8.8", "8.8.4.4", "1.1.1.1", "1.0.0.1", "9.9.9.9"},
		PingTarget:    "8.8.8.8",
		MTUStart:      1500,
		MTUFloor:      1200,
		MTUStep:       10,
		HTTPListen:    "127.0.0.1:8068",
	}
}

func defaultBackupFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "delaykiller", "backup.json")
}

// LoadFromFile loads configuration from INI file
func (c *Config) LoadFromFile(filename string) error {
	cfg, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, filename)
	if err != nil {
		log.Printf("Skipping config file %s: %s", filename, err)
		return err
	}

	section := cfg.Section("")
	c.Interface = section.Key("interface").MustString(c.Interface)
	c.BackupFile = section.Key("backupfile").MustString(c.BackupFile)
	c.LowLatency = section.Key("lowlatency").MustBool(c.LowLatency)
	c.DNSMode = section.Key("dnsmode").MustBool(c.DNSMode)
	c.PowerHigh = section.Key("powerhigh").MustBool(c.PowerHigh)
	c.AutoBackup = section.Key("autobackup").MustBool(c.AutoBackup)
	c.PrimaryDNS = section.Key("primarydns").MustString(c.PrimaryDNS)
	c.SecondaryDNS = section.Key("secondarydns").MustString(c.SecondaryDNS)
	if v := section.Key("dnscandidates").String(); v != "" {
		c.DNSCandidates = splitList(v)
	}
	c.PingTarget = section.Key("pingtarget").MustString(c.PingTarget)
	c.MTUStart = section.Key("mtustart").MustInt(c.MTUStart)
	c.MTUFloor = section.Key("mtufloor").MustInt(c.MTUFloor)
	c.MTUStep = section.Key("mtustep").MustInt(c.MTUStep)
	c.HTTPListen = section.Key("httplisten").MustString(c.HTTPListen)

	return nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("DK_INTERFACE"); v != "" {
		c.Interface = v
	}
	if v := os.Getenv("DK_BACKUPFILE"); v != "" {
		c.BackupFile = v
	}
	if v := os.Getenv("DK_LOWLATENCY"); v != "" {
		c.LowLatency, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("DK_DNSMODE"); v != "" {
		c.DNSMode, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("DK_POWERHIGH"); v != "" {
		c.PowerHigh, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("DK_AUTOBACKUP"); v != "" {
		c.AutoBackup, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("DK_PRIMARYDNS"); v != "" {
		c.PrimaryDNS = v
	}
	if v := os.Getenv("DK_SECONDARYDNS"); v != "" {
		c.SecondaryDNS = v
	}
	if v := os.Getenv("DK_DNSCANDIDATES"); v != "" {
		c.DNSCandidates = splitList(v)
	}
	if v := os.Getenv("DK_PINGTARGET"); v != "" {
		c.PingTarget = v
	}
	if v := os.Getenv("DK_HTTPLISTEN"); v != "" {
		c.HTTPListen = v
	}
}

// New creates a new configuration instance
func New(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	// Load from file first
	cfg.LoadFromFile(configFile)

	// Override with environment variables
	cfg.LoadFromEnv()

	return cfg, nil
}

// splitList parses a comma-separated list, trimming blanks
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
