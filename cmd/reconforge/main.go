package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/ExclusiveAccount/reconforge/pkg/api"
	"github.com/ExclusiveAccount/reconforge/pkg/config"
	"github.com/ExclusiveAccount/reconforge/pkg/models"
	"github.com/ExclusiveAccount/reconforge/pkg/orchestrator"
	"github.com/ExclusiveAccount/reconforge/pkg/storage"
)

const (
	appName    = "reconforge"
	appVersion = "1.0.0"

	configMetadataKey = "config"
)

var log = logrus.New()

var errNotAuthorized = errors.New("refusing to scan: pass --authorized to confirm you are permitted to test this target")

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    appName,
		Usage:   "Single-host reconnaissance: DNS, WHOIS, CT subdomains, port scan and web probe",
		Version: appVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load default options from `FILE` (YAML or JSON)",
				EnvVars: []string{"RECONFORGE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"RECONFORGE_LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			file := config.DefaultFile()
			if path := c.String("config"); path != "" {
				loaded, err := config.LoadConfigFromFile(path)
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				file = loaded
			}
			if c.App.Metadata == nil {
				c.App.Metadata = map[string]interface{}{}
			}
			c.App.Metadata[configMetadataKey] = file

			logLevel := file.LogLevel
			if c.IsSet("log-level") || logLevel == "" {
				logLevel = c.String("log-level")
			}
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				level = logrus.InfoLevel
			}
			log.SetLevel(level)
			log.SetFormatter(&logrus.TextFormatter{
				FullTimestamp:   true,
				TimestampFormat: "2006-01-02 15:04:05",
			})

			return nil
		},
		Commands: []*cli.Command{
			commandScan(),
			commandProfiles(),
			commandServe(),
			commandShow(),
		},
	}
}

// fileConfig returns the configuration loaded in Before
func fileConfig(c *cli.Context) config.File {
	if file, ok := c.App.Metadata[configMetadataKey].(config.File); ok {
		return file
	}
	return config.DefaultFile()
}

// outputDir picks the flag value, then the config file, then the default
func outputDir(c *cli.Context, file config.File) string {
	if c.IsSet("output-dir") {
		return c.String("output-dir")
	}
	if file.OutputDir != "" {
		return file.OutputDir
	}
	return config.DefaultOutputDir
}

// commandScan returns the scan command configuration
func commandScan() *cli.Command {
	return &cli.Command{
		Name:    "scan",
		Aliases: []string{"s"},
		Usage:   "Run a reconnaissance scan against one target",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "target",
				Aliases: []string{"t"},
				Usage:   "Domain, IP address, URL or CIDR block",
			},
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"p"},
				Value:   config.ProfileFast,
				Usage:   "Scan profile (Fast, Full, Custom)",
			},
			&cli.StringSliceFlag{
				Name:    "modules",
				Aliases: []string{"m"},
				Usage:   "Modules to run, overriding the profile (dns, whois, subdomains, ports, web)",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Value: config.DefaultConcurrency,
				Usage: "Simultaneous connection attempts (1-50)",
			},
			&cli.Float64Flag{
				Name:  "timeout",
				Value: config.DefaultConnectTimeout,
				Usage: "Per-connection timeout in seconds (0.1-5.0)",
			},
			&cli.IntFlag{
				Name:  "cidr-limit",
				Value: config.DefaultCIDRLimit,
				Usage: "Maximum hosts scanned from a CIDR block",
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Value:   config.DefaultOutputDir,
				Usage:   "Directory for run artifacts",
			},
			&cli.BoolFlag{
				Name:  "authorized",
				Usage: "Confirm you are permitted to scan the target",
			},
			&cli.BoolFlag{
				Name:  "no-save",
				Usage: "Do not write results to disk",
			},
		},
		Action: runScan,
	}
}

// scanOptions layers explicitly set flags over the config file defaults
func scanOptions(c *cli.Context, file config.File) config.Options {
	opts := file.Options
	if c.IsSet("target") {
		opts.Target = c.String("target")
	}
	if c.IsSet("profile") || opts.Profile == "" {
		opts.Profile = c.String("profile")
	}
	if c.IsSet("modules") {
		opts.Modules = c.StringSlice("modules")
	}
	if c.IsSet("concurrency") {
		opts.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("timeout") {
		opts.ConnectTimeout = c.Float64("timeout")
	}
	if c.IsSet("cidr-limit") {
		opts.CIDRLimit = c.Int("cidr-limit")
	}
	return opts
}

func runScan(c *cli.Context) error {
	if !c.Bool("authorized") {
		return errNotAuthorized
	}

	file := fileConfig(c)
	cfg, err := config.NewRunConfig(scanOptions(c, file))
	if err != nil {
		return err
	}

	orch, err := orchestrator.New(log)
	if err != nil {
		return fmt.Errorf("failed to initialize orchestrator: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	printBanner()
	color.Green("Scanning %s (%s) with profile %s", cfg.TargetInput, cfg.TargetType, cfg.ProfileName)
	color.Yellow("Modules: %v, concurrency %d, timeout %.1fs", cfg.EnabledModules, cfg.Concurrency, cfg.ConnectTimeout)

	result, err := orch.Run(ctx, cfg)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	displaySummary(result)

	if c.Bool("no-save") {
		return nil
	}
	saveResult(result, outputDir(c, file))
	return nil
}

// saveResult writes the run artifacts. Failures are reported but leave the scan intact.
func saveResult(result *models.ScanResult, dir string) {
	writer, err := storage.NewResultWriter(dir)
	if err != nil {
		log.Errorf("Failed to save results: %v", err)
		return
	}
	path, err := writer.Save(result)
	if err != nil {
		log.Errorf("Failed to save results: %v", err)
		return
	}
	color.Green("Results saved to %s", path)

	if path, err = writer.SaveReport(result); err != nil {
		log.Errorf("Failed to save report: %v", err)
		return
	}
	color.Green("Report saved to %s", path)
}

// commandProfiles returns the profiles command configuration
func commandProfiles() *cli.Command {
	return &cli.Command{
		Name:  "profiles",
		Usage: "List the built-in scan profiles",
		Action: func(c *cli.Context) error {
			for _, name := range config.ProfileNames() {
				p, _ := config.LookupProfile(name)
				color.Cyan("%s", p.Name)
				fmt.Fprintf(color.Output, "  %s\n", p.Description)
				fmt.Fprintf(color.Output, "  modules: %v\n", p.Modules)
				fmt.Fprintf(color.Output, "  ports:   %d", len(config.PortsFor(name)))
				if len(p.Ports) == 0 {
					fmt.Fprint(color.Output, " (Fast list)")
				}
				fmt.Fprintln(color.Output)
			}
			return nil
		},
	}
}

// commandServe returns the serve command configuration
func commandServe() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   "8080",
				Usage:   "Port to listen on",
			},
			&cli.IntFlag{
				Name:  "history",
				Value: 10,
				Usage: "Number of scans kept in memory",
			},
			&cli.StringFlag{
				Name:  "output-dir",
				Usage: "Persist each scan under this directory",
			},
			&cli.BoolFlag{
				Name:  "cors",
				Usage: "Allow cross-origin requests",
			},
			&cli.BoolFlag{
				Name:  "exports",
				Value: true,
				Usage: "Serve Markdown reports",
			},
		},
		Action: func(c *cli.Context) error {
			orch, err := orchestrator.New(log)
			if err != nil {
				return fmt.Errorf("failed to initialize orchestrator: %w", err)
			}

			server := api.NewServer(api.ServerConfig{
				Port:           c.String("port"),
				EnableCORS:     c.Bool("cors"),
				ResultsHistory: c.Int("history"),
				AllowExports:   c.Bool("exports"),
				OutputDir:      c.String("output-dir"),
			}, orch, log)

			color.Green("Starting API on http://localhost:%s/api", c.String("port"))
			color.Yellow("Press Ctrl+C to stop")
			return server.Start()
		},
	}
}

// commandShow returns the show command configuration
func commandShow() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print the summary of a saved run",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Path to a results.json",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			result, err := storage.LoadResult(c.String("input"))
			if err != nil {
				return fmt.Errorf("failed to load results: %w", err)
			}
			displaySummary(result)
			return nil
		},
	}
}
