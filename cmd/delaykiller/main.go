package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"delaykiller/internal/config"
	"delaykiller/internal/netprobe"
	"delaykiller/internal/oplog"
	"delaykiller/internal/platform"
	"delaykiller/internal/probe"
	"delaykiller/internal/restore"
	"delaykiller/internal/runner"
	"delaykiller/internal/snapshot"
	"delaykiller/internal/tweak"
	"delaykiller/internal/watch"
	"delaykiller/internal/web"
	"delaykiller/pkg/models"
	"delaykiller/pkg/utils"
)

const configFile = "delaykiller.ini"

var (
	sha1ver   string
	buildTime string
	repoName  string
)

// env bundles the components built from one configuration.
type env struct {
	cfg     *config.Config
	run     runner.Runner
	store   *snapshot.Store
	probe   *probe.Probe
	eng     *restore.Engine
	applier *tweak.Applier
	host    platform.Info
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.New(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if v := c.String("interface"); v != "" {
		cfg.Interface = v
	}

	run := runner.New()
	store := snapshot.NewStore(cfg.BackupFile)
	host := platform.Detect()

	return &env{
		cfg:     cfg,
		run:     run,
		store:   store,
		probe:   probe.New(run),
		eng:     restore.NewEngine(run, store),
		applier: tweak.NewApplier(cfg, run, store, host),
		host:    host,
	}, nil
}

// finish prints the operation message and converts a non-zero status into
// the process exit code.
func finish(res models.Result) error {
	fmt.Println(res.Message)
	if !res.OK() {
		return cli.Exit("", res.Code)
	}
	return nil
}

func main() {
	log.Printf("%s: Build %s, Time %s", repoName, sha1ver, buildTime)

	app := &cli.App{
		Name:  "delaykiller",
		Usage: "reversible network and power performance tweaks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: configFile,
				Usage: "configuration file",
			},
			&cli.StringFlag{
				Name:    "interface",
				Aliases: []string{"i"},
				Usage:   "target network interface (overrides config)",
			},
		},
		Commands: []*cli.Command{
			applyCommand(),
			resetCommand(),
			backupCommand(),
			restoreCommand(),
			statusCommand(),
			interfacesCommand(),
			flushDNSCommand(),
			mtuCommand(),
			dnsBenchCommand(),
			watchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func applyCommand() *cli.Command {
	return &cli.Command{
		Name:  "apply",
		Usage: "Apply the enabled tweak profile (backs up current state first)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "low-latency", Usage: "also enable the low latency profile"},
			&cli.BoolFlag{Name: "dns", Usage: "also enable DNS performance mode"},
			&cli.BoolFlag{Name: "power", Usage: "also switch to the high performance power plan"},
			&cli.BoolFlag{Name: "no-backup", Usage: "skip the automatic backup"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			if c.IsSet("low-latency") {
				e.cfg.LowLatency = c.Bool("low-latency")
			}
			if c.IsSet("dns") {
				e.cfg.DNSMode = c.Bool("dns")
			}
			if c.IsSet("power") {
				e.cfg.PowerHigh = c.Bool("power")
			}
			if c.Bool("no-backup") {
				e.cfg.AutoBackup = false
			}
			return finish(e.applier.ApplyAll())
		},
	}
}

func resetCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Undo all tweaks, preferring the captured snapshot",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			return finish(e.applier.ResetAll())
		},
	}
}

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Capture the current system state into the snapshot slot",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			return finish(e.applier.Backup())
		},
	}
}

func restoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "restore",
		Usage: "Replay the snapshot's reverse command sequence",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "scope",
				Value: string(models.ScopeAll),
				Usage: "tcp, dns, power or all",
			},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			scope := models.Scope(c.String("scope"))
			switch scope {
			case models.ScopeTCP, models.ScopeDNS, models.ScopePower, models.ScopeAll:
			default:
				return fmt.Errorf("unknown scope %q", scope)
			}
			if !e.host.Windows {
				return finish(models.Result{Code: models.StatusUnsupported, Message: "unsupported platform"})
			}
			if !e.host.Elevated {
				return finish(models.Result{Code: models.StatusAdminRequired, Message: "administrator rights required"})
			}
			return finish(e.eng.Restore(scope))
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show current settings and snapshot availability",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			if !e.host.Windows {
				return finish(models.Result{Code: models.StatusUnsupported, Message: "unsupported platform"})
			}

			g := e.probe.TCPGlobals()
			fmt.Printf("Interface:           %s\n", e.cfg.Interface)
			fmt.Printf("Auto-tuning level:   %s\n", orUnknown(g.AutoTuningLevel))
			fmt.Printf("ECN capability:      %s\n", orUnknown(g.ECNCapability))
			fmt.Printf("RSS:                 %s\n", orUnknown(g.RSS))
			fmt.Printf("Chimney offload:     %s\n", orUnknown(g.Chimney))
			fmt.Printf("Congestion provider: %s\n", orUnknown(g.CongestionProvider))
			fmt.Printf("Timestamps:          %s\n", orUnknown(g.Timestamps))

			dns := e.probe.DNSInfo(e.cfg.Interface)
			if dns.DHCP {
				fmt.Printf("DNS:                 DHCP\n")
			} else {
				fmt.Printf("DNS:                 %v\n", dns.Servers)
			}
			fmt.Printf("Power scheme:        %s\n", orUnknown(e.probe.ActivePowerGUID()))

			if snap, err := e.store.Load(); err == nil {
				fmt.Printf("Snapshot:            %s (%s)\n", e.store.Path(), snap.CapturedAt())
			} else {
				fmt.Printf("Snapshot:            none\n")
			}
			return nil
		},
	}
}

func orUnknown(v string) string {
	if v == "" {
		return "(unknown)"
	}
	return v
}

func interfacesCommand() *cli.Command {
	return &cli.Command{
		Name:  "interfaces",
		Usage: "List network interface names",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			if !e.host.Windows {
				return finish(models.Result{Code: models.StatusUnsupported, Message: "unsupported platform"})
			}
			for _, name := range e.probe.Interfaces() {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func flushDNSCommand() *cli.Command {
	return &cli.Command{
		Name:  "flushdns",
		Usage: "Flush the system resolver cache",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			return finish(e.applier.FlushDNS())
		},
	}
}

func mtuCommand() *cli.Command {
	return &cli.Command{
		Name:  "mtu",
		Usage: "Discover the path MTU by linear descent",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "target", Usage: "probe target (overrides config)"},
			&cli.BoolFlag{Name: "apply", Usage: "pin the discovered MTU on the interface"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			if !e.host.Windows {
				return finish(models.Result{Code: models.StatusUnsupported, Message: "unsupported platform"})
			}

			target := e.cfg.PingTarget
			if v := c.String("target"); v != "" {
				target = v
			}

			d := netprobe.NewMTUDiscoverer(e.run, target)
			d.Start = e.cfg.MTUStart
			d.Floor = e.cfg.MTUFloor
			d.Step = e.cfg.MTUStep

			res := d.Discover()
			if !res.Determined {
				return finish(models.Result{
					Code:    models.StatusError,
					Message: fmt.Sprintf("could not determine MTU after %d probes", res.Probes),
				})
			}

			fmt.Printf("Suggested MTU: %d (%d probes)\n", res.MTU, res.Probes)
			if c.Bool("apply") {
				return finish(e.applier.ApplyMTU(res.MTU))
			}
			return nil
		},
	}
}

func dnsBenchCommand() *cli.Command {
	return &cli.Command{
		Name:  "dnsbench",
		Usage: "Benchmark candidate DNS servers",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "query", Usage: "measure with DNS queries instead of echo probes"},
			&cli.BoolFlag{Name: "set", Usage: "apply the fastest server as static primary"},
			&cli.IntFlag{Name: "count", Value: 3, Usage: "probes per server"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}

			var results []netprobe.BenchResult
			if c.Bool("query") {
				b := netprobe.NewQueryBench()
				b.Count = c.Int("count")
				results = b.Measure(e.cfg.DNSCandidates)
			} else {
				if !e.host.Windows {
					return finish(models.Result{Code: models.StatusUnsupported, Message: "unsupported platform"})
				}
				b := netprobe.NewDNSBench(e.run)
				b.Count = c.Int("count")
				results = b.Measure(e.cfg.DNSCandidates)
			}

			for _, r := range results {
				fmt.Println(netprobe.Format(r))
			}

			best, ok := netprobe.Best(results)
			if !ok {
				return finish(models.Result{Code: models.StatusError, Message: "no server could be measured"})
			}
			fmt.Printf("Best: %s (%d ms)\n", best.Server, best.AvgMillis)

			if c.Bool("set") {
				e.cfg.PrimaryDNS = best.Server
				return finish(e.applier.DNSMode(true, e.cfg.AutoBackup))
			}
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Re-apply the profile when the config file changes and serve the status API",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}

			ops := oplog.New()
			agent, err := watch.New(c.String("config"), e.run, e.host, ops)
			if err != nil {
				return err
			}
			if err := agent.Start(); err != nil {
				return err
			}
			defer agent.Stop()

			server := web.NewServer(agent.Config, e.probe, e.store, ops)
			go func() {
				log.Printf("Starting status API on %s", agent.Config().HTTPListen)
				utils.CheckFatal(server.Start(), "status API failed")
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			<-sigChan

			log.Println("Shutting down...")
			return nil
		},
	}
}
