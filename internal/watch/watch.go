// ===== internal/watch/watch.go =====
package watch

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"delaykiller/internal/config"
	"delaykiller/internal/oplog"
	"delaykiller/internal/platform"
	"delaykiller/internal/runner"
	"delaykiller/internal/snapshot"
	"delaykiller/internal/tweak"
	"delaykiller/pkg/utils"
)

// Agent keeps the applied tweak profile in sync with the config file: when
// the file changes it reloads the configuration and re-applies the enabled
// profile. Outcomes land in the operation log.
type Agent struct {
	configFile string
	run        runner.Runner
	host       platform.Info
	ops        *oplog.Log

	mu      sync.RWMutex
	cfg     *config.Config
	applier *tweak.Applier

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

// New creates an agent bound to the given config file
func New(configFile string, run runner.Runner, host platform.Info, ops *oplog.Log) (*Agent, error) {
	cfg, err := config.New(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	a := &Agent{
		configFile: configFile,
		run:        run,
		host:       host,
		ops:        ops,
		cfg:        cfg,
		stopCh:     make(chan struct{}),
	}
	a.applier = a.buildApplier(cfg)
	return a, nil
}

func (a *Agent) buildApplier(cfg *config.Config) *tweak.Applier {
	store := snapshot.NewStore(cfg.BackupFile)
	return tweak.NewApplier(cfg, a.run, store, a.host)
}

// Start applies the current profile once, then begins watching the config
// file for changes.
func (a *Agent) Start() error {
	var err error
	a.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	a.ops.Record("apply", a.Applier().ApplyAll())

	go a.watchFiles()

	utils.CheckWarn(a.watcher.Add(a.configFile), "failed to watch "+a.configFile)
	return nil
}

// watchFiles reacts to config file writes until the agent is stopped.
func (a *Agent) watchFiles() {
	absConfig, _ := filepath.Abs(a.configFile)

	for {
		select {
		case event, ok := <-a.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write != fsnotify.Write {
				continue
			}
			absEvent, _ := filepath.Abs(event.Name)
			if absEvent != absConfig {
				continue
			}

			log.Printf("Config modified: %s", event.Name)
			a.reload()

		case err, ok := <-a.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)

		case <-a.stopCh:
			return
		}
	}
}

// reload re-reads the config and re-applies the enabled profile.
func (a *Agent) reload() {
	cfg, err := config.New(a.configFile)
	if err != nil {
		log.Printf("Error reloading configuration: %v", err)
		return
	}

	a.mu.Lock()
	a.cfg = cfg
	a.applier = a.buildApplier(cfg)
	applier := a.applier
	a.mu.Unlock()

	a.ops.Record("apply", applier.ApplyAll())
}

// Stop stops watching
func (a *Agent) Stop() {
	close(a.stopCh)
	if a.watcher != nil {
		a.watcher.Close()
	}
}

// Config returns the currently loaded configuration.
func (a *Agent) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Applier returns the applier built from the current configuration.
func (a *Agent) Applier() *tweak.Applier {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.applier
}
