// Command taxiin extracts taxi-in episodes from per-day ADS-B exports and
// writes daily summaries, episode listings and charts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/taxiin.report/internal/config"
	"github.com/banshee-data/taxiin.report/internal/db"
	"github.com/banshee-data/taxiin.report/internal/monitoring"
	"github.com/banshee-data/taxiin.report/internal/pipeline"
	"github.com/banshee-data/taxiin.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a JSON run config (defaults apply when empty)")
	dataDir     = flag.String("data", "", "Directory of per-day ADS-B files")
	resultsDir  = flag.String("results", "", "Directory for result files")
	suffix      = flag.String("suffix", "", "Day file suffix")
	prefix      = flag.String("prefix", "", "Result file name prefix")
	maxGap      = flag.Int("gap", 0, "Maximum seconds between accepted movements before an episode closes")
	workers     = flag.Int("workers", -1, "Aircraft segmented in parallel per day (0 = GOMAXPROCS)")
	dbPath      = flag.String("db", "", "SQLite database for runs and episodes (empty disables)")
	metricsFile = flag.String("metrics-file", "", "Write Prometheus text metrics here at the end of the run")
	chart       = flag.Bool("chart", true, "Write the HTML daily summary chart")
	histogram   = flag.Bool("histogram", true, "Write the PNG duration histogram")
	useZap      = flag.Bool("zap", false, "Log through zap (JSON) instead of the standard logger")
	debug       = flag.Bool("debug", false, "With -zap, use the development logger")
	versionFlag = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: taxiin [flags]\n       taxiin -db <path> migrate <action>\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.String())
		return
	}

	if *useZap {
		flush, err := monitoring.UseZap(*debug)
		if err != nil {
			log.Fatalf("logger: %v", err)
		}
		defer flush()
	}

	if flag.NArg() > 0 && flag.Arg(0) == "migrate" {
		if *dbPath == "" {
			log.Fatal("migrate requires -db")
		}
		if err := db.RunMigrateCommand(os.Stdout, flag.Args()[1:], *dbPath); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}
	if flag.NArg() > 0 {
		flag.Usage()
		os.Exit(2)
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := loadConfig(*configPath, set)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("run failed: %v", err)
	}
}

// loadConfig reads the config file when given and applies the flags the
// user set on top of it.
func loadConfig(path string, set map[string]bool) (*config.RunConfig, error) {
	cfg := config.DefaultRunConfig()
	if path != "" {
		loaded, err := config.LoadRunConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if set["data"] {
		cfg.DataDir = dataDir
	}
	if set["results"] {
		cfg.ResultsDir = resultsDir
	}
	if set["suffix"] {
		cfg.InputSuffix = suffix
	}
	if set["prefix"] {
		cfg.OutputPrefix = prefix
	}
	if set["gap"] {
		cfg.MaxGapSeconds = maxGap
	}
	if set["workers"] {
		cfg.Workers = workers
	}
	if set["db"] {
		cfg.DBPath = dbPath
	}
	if set["metrics-file"] {
		cfg.MetricsFile = metricsFile
	}
	if set["chart"] {
		cfg.Chart = chart
	}
	if set["histogram"] {
		cfg.Histogram = histogram
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.RunConfig) error {
	opts := pipeline.Options{Config: cfg}

	if path := cfg.GetDBPath(); path != "" {
		store, err := db.NewDB(path)
		if err != nil {
			return fmt.Errorf("open db %s: %w", path, err)
		}
		defer store.Close()
		opts.Store = store
	}
	if cfg.GetMetricsFile() != "" {
		metrics, err := monitoring.NewRunMetrics(nil)
		if err != nil {
			return err
		}
		opts.Metrics = metrics
	}

	runner, err := pipeline.New(opts)
	if err != nil {
		return err
	}
	monitoring.Logf("%s", version.String())

	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d days, %d taxi-in episodes, %d failed day files\n", len(res.Days), res.Episodes, res.DaysFailed)
	fmt.Printf("summary: %s\nevents:  %s\n", res.Paths.Summary, res.Paths.EventsJSL)
	return nil
}
