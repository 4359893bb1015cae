package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/umputun/podfetch/pkg/config"
	"github.com/umputun/podfetch/pkg/download"
	"github.com/umputun/podfetch/pkg/feed"
	"github.com/umputun/podfetch/pkg/scheduler"
	"github.com/umputun/podfetch/pkg/store"
)

// Opts with all CLI options, values set here override the config file
type Opts struct {
	Config      string `short:"c" long:"config" env:"PODFETCH_CONFIG" default:"~/.podfetch/podfetch.yml" description:"configuration file"`
	WriteConfig bool   `long:"write-config" description:"write default configuration to the config file and exit"`

	Init              bool   `long:"init" description:"mark all current episodes as downloaded without downloading them"`
	FilterExplicit    bool   `long:"filter-explicit" description:"skip episodes marked explicit"`
	IgnoreNotModified bool   `long:"ignore-not-modified" description:"fetch feeds even if not modified since the last run"`
	ListingsFile      string `long:"listings-file" description:"feed listings file"`
	EpisodesDB        string `long:"episodes-db" description:"downloaded episodes database"`
	SaveLocation      string `long:"save-location" description:"directory episodes are saved to"`
	Threads           *int   `short:"t" long:"threads" description:"max concurrent downloads"`
	Recent            *int   `short:"r" long:"recent" description:"download only N most recent episodes of a feed, 0 for all"`
	MinFreeSpace      string `long:"min-free-space" description:"minimum free space, e.g. 500MB or 2GiB, -1 disables the check"`

	// Common options
	Verbose bool `short:"v" long:"verbose" description:"verbose mode"`
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	setupLog(opts.Verbose, opts.Debug, opts.NoColor)
	lgr.Printf("[DEBUG] starting podfetch version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		lgr.Printf("[WARN] termination signal received")
		cancel()
	}()

	err := run(ctx, opts)
	cancel()

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		lgr.Printf("[WARN] interrupted")
		os.Exit(1)
	default:
		lgr.Printf("[ERROR] %v", err)
		lgr.Printf("[ERROR] fatal: exiting")
		os.Exit(1)
	}
}

// run loads configuration, feeds and the episodes database and downloads new episodes.
// Errors returned are fatal, failures of single feeds and episodes are only logged.
func run(ctx context.Context, opts Opts) error {
	configPath := config.ExpandHome(opts.Config)
	if opts.WriteConfig {
		if err := config.WriteDefault(configPath); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		lgr.Printf("[INFO] default configuration written to %s", configPath)
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyOpts(cfg, opts); err != nil {
		return err
	}

	feeds, err := feed.LoadListing(cfg.Paths.ListingsFile)
	if err != nil {
		return fmt.Errorf("failed to load feeds: %w", err)
	}
	if len(feeds) == 0 {
		lgr.Printf("[INFO] no feeds in %s", cfg.Paths.ListingsFile)
		return nil
	}

	st, err := store.Open(ctx, cfg.Paths.EpisodesDB)
	if err != nil {
		return fmt.Errorf("failed to open episodes database: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			lgr.Printf("[ERROR] failed to close episodes database: %v", err)
		}
	}()

	userAgent := cfg.Download.UserAgent
	if userAgent == "" {
		userAgent = "podfetch/" + revision
	}
	tr, err := download.NewHTTPTransport(download.TransportOpts{UserAgent: userAgent, Timeout: cfg.Download.Timeout})
	if err != nil {
		return fmt.Errorf("failed to make http transport: %w", err)
	}

	sched := scheduler.New(scheduler.Config{
		SaveLocation:      cfg.Paths.SaveLocation,
		Threads:           cfg.Download.Threads,
		RecentEpisodes:    cfg.Download.RecentEpisodes,
		MinFreeSpace:      cfg.Download.MinFreeSpace,
		FilterExplicit:    cfg.Download.FilterExplicit,
		IgnoreNotModified: cfg.Network.IgnoreNotModified,
		InitMode:          opts.Init,
	}, st, tr, feed.NewParser())

	if opts.Init {
		lgr.Printf("[INFO] init mode, episodes are marked as downloaded without downloading")
	}
	return sched.Run(ctx, feeds)
}

// applyOpts overrides config values with command line options
func applyOpts(cfg *config.Config, opts Opts) error {
	if opts.ListingsFile != "" {
		cfg.Paths.ListingsFile = config.ExpandHome(opts.ListingsFile)
	}
	if opts.EpisodesDB != "" {
		cfg.Paths.EpisodesDB = config.ExpandHome(opts.EpisodesDB)
	}
	if opts.SaveLocation != "" {
		cfg.Paths.SaveLocation = config.ExpandHome(opts.SaveLocation)
	}
	if opts.Threads != nil {
		cfg.Download.Threads = min(max(*opts.Threads, 1), config.MaxThreads)
	}
	if opts.Recent != nil {
		cfg.Download.RecentEpisodes = max(*opts.Recent, 0)
	}
	if opts.MinFreeSpace != "" {
		size, err := parseSize(opts.MinFreeSpace)
		if err != nil {
			return fmt.Errorf("invalid min-free-space %q: %w", opts.MinFreeSpace, err)
		}
		cfg.Download.MinFreeSpace = size
	}
	cfg.Download.FilterExplicit = cfg.Download.FilterExplicit || opts.FilterExplicit
	cfg.Network.IgnoreNotModified = cfg.Network.IgnoreNotModified || opts.IgnoreNotModified
	return nil
}

// parseSize parses a byte size like 1024, 500MB or 2GiB, any negative value disables the check
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		return -1, nil
	}
	size, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if size > 1<<62 {
		return 0, fmt.Errorf("size %s is too large", s)
	}
	return int64(size), nil //nolint:gosec // checked above
}

func setupLog(verbose, dbg, noColor bool) {
	logOpts := []lgr.Option{lgr.Out(io.Discard), lgr.Err(os.Stderr)}
	if verbose {
		logOpts = []lgr.Option{lgr.Out(os.Stdout), lgr.Err(os.Stderr)}
	}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.CallerFunc, lgr.Out(os.Stdout), lgr.Err(os.Stderr)}
	}

	if noColor {
		color.NoColor = true
	} else {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
