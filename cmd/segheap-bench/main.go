// Command segheap-bench drives the three free-list designs against
// recorded allocation traces: replaying one trace once, watching a trace
// file and re-replaying it on every save, comparing all three designs
// against the same trace side by side, or writing a defaults file the
// other subcommands can load.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/heapforge/segheap/internal/allocator"
	"github.com/heapforge/segheap/internal/cli"
	"github.com/heapforge/segheap/internal/trace"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		cli.ExitWithCode(2, "")
	}

	var err error

	switch os.Args[1] {
	case "replay":
		err = runReplay(os.Args[2:])
	case "watch":
		err = runWatch(os.Args[2:])
	case "compare":
		err = runCompare(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "version", "--version", "-v":
		cli.PrintVersion("segheap-bench", false)
		return
	default:
		printUsage()
		cli.ExitWithCode(2, "")
	}

	// HandleError's nil-logger fallback covers the common case (no -debug
	// logger in scope at this point); runWatch wires a real *cli.Logger
	// into its own fatal paths instead, where one is already built.
	cli.HandleError(err, nil)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(discardWriter{})

	return fs
}

// discardWriter silences flag.FlagSet's default error/usage printing so
// help output only ever comes from cli.PrintCommandUsage.
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func printUsage() {
	cli.PrintUsage("segheap-bench", []cli.CommandInfo{
		{Name: "replay", Description: "replay a trace file against one design"},
		{Name: "watch", Description: "re-replay a trace file every time it changes"},
		{Name: "compare", Description: "replay a trace file against all three designs"},
		{Name: "config", Description: "write a defaults file the other subcommands can load"},
		{Name: "version", Description: "print version information"},
	})
}

// commonFlags are accepted by every trace-driving subcommand (replay,
// watch, compare): -config points at a cli.Config defaults file, and
// -verbose/-debug size the cli.Logger built from it.
type commonFlags struct {
	verbose *bool
	debug   *bool
	config  *string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		verbose: fs.Bool("verbose", false, "log progress"),
		debug:   fs.Bool("debug", false, "log debug-level detail"),
		config:  fs.String("config", "", "path to a defaults file written by the config subcommand"),
	}
}

var commonFlagInfo = []cli.FlagInfo{
	{Name: "verbose", Usage: "log progress", Default: "false"},
	{Name: "debug", Usage: "log debug-level detail", Default: "false"},
	{Name: "config", Usage: "path to a defaults file written by the config subcommand"},
}

// loadLogger resolves a cli.Config (falling back to LoadConfig's defaults,
// WorkDir ".", if no -config file was given) and builds a Logger from it, with the command
// line flags taking precedence over whatever the file says.
func loadLogger(cf *commonFlags) (*cli.Logger, *cli.Config, error) {
	cfg, err := cli.LoadConfig(*cf.config)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	return cli.NewLogger(*cf.verbose || cfg.Verbose, *cf.debug || cfg.Debug), cfg, nil
}

// resolveTracePath joins a relative trace-file argument against the
// config's working directory, the way a tool with a configurable default
// directory resolves any relative input path.
func resolveTracePath(cfg *cli.Config, arg string) string {
	if filepath.IsAbs(arg) {
		return arg
	}

	return filepath.Join(cfg.WorkDir, arg)
}

// parseOrHelp runs fs.Parse and, if the user asked for -h/--help, prints
// detailed usage for cmd and returns (true, nil) so the caller exits
// cleanly instead of treating ErrHelp as a failure.
func parseOrHelp(fs *flag.FlagSet, args []string, cmd cli.CommandInfo) (handled bool, err error) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			cli.PrintCommandUsage("segheap-bench", cmd)
			return true, nil
		}

		return true, err
	}

	return false, nil
}

func buildDesign(name string, policy allocator.FitPolicy, chunkSize uint32) (*allocator.Heap, error) {
	opts := []allocator.Option{
		allocator.WithFitPolicy(policy),
		allocator.WithChunkSize(chunkSize),
	}

	switch name {
	case "explicit":
		return allocator.NewExplicit(nil, opts...)
	case "segfit":
		return allocator.NewSegregatedFit(nil, opts...)
	case "buddy":
		return allocator.NewBuddy(nil, opts...)
	default:
		return nil, fmt.Errorf("unknown design %q (want explicit, segfit, or buddy)", name)
	}
}

func parsePolicy(name string) (allocator.FitPolicy, error) {
	switch name {
	case "", "first":
		return allocator.FirstFit, nil
	case "best":
		return allocator.BestFit, nil
	case "worst":
		return allocator.WorstFit, nil
	default:
		return 0, fmt.Errorf("unknown fit policy %q (want first, best, or worst)", name)
	}
}

func loadTrace(path string) (*trace.Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	return trace.Parse(f)
}

var replayCommandInfo = cli.CommandInfo{
	Name:        "replay",
	Usage:       "segheap-bench replay [flags] <trace-file>",
	Description: "replay a trace file against one design",
	Flags: append([]cli.FlagInfo{
		{Name: "design", Usage: "allocator design: explicit, segfit, or buddy", Default: "segfit"},
		{Name: "policy", Usage: "fit policy: first, best, or worst", Default: "first"},
		{Name: "chunk", Usage: "growth chunk size in bytes", Default: "4096"},
	}, commonFlagInfo...),
	Examples: []string{"segheap-bench replay -design buddy traces/binary-bal.rep"},
}

func runReplay(args []string) error {
	fs := newFlagSet("replay")
	design := fs.String("design", "segfit", "allocator design: explicit, segfit, or buddy")
	policy := fs.String("policy", "first", "fit policy: first, best, or worst")
	chunk := fs.Uint("chunk", 4096, "growth chunk size in bytes")
	cf := addCommonFlags(fs)

	if handled, err := parseOrHelp(fs, args, replayCommandInfo); handled {
		return err
	}

	if err := cli.ValidateArgs(fs.Args(), 1, replayCommandInfo.Usage); err != nil {
		return err
	}

	logger, cfg, err := loadLogger(cf)
	if err != nil {
		return err
	}

	path := resolveTracePath(cfg, fs.Arg(0))
	logger.Debug("loading trace from %s", path)

	t, err := loadTrace(path)
	if err != nil {
		return err
	}

	fit, err := parsePolicy(*policy)
	if err != nil {
		return err
	}

	h, err := buildDesign(*design, fit, uint32(*chunk))
	if err != nil {
		return err
	}

	logger.Info("replaying %d events against %s", len(t.Events), *design)

	res, err := trace.Replay(h, t)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	printResult(*design, res, h.Stats())

	return nil
}

var compareCommandInfo = cli.CommandInfo{
	Name:        "compare",
	Usage:       "segheap-bench compare [flags] <trace-file>",
	Description: "replay a trace file against all three designs",
	Flags: append([]cli.FlagInfo{
		{Name: "policy", Usage: "fit policy: first, best, or worst (ignored by buddy)", Default: "first"},
		{Name: "chunk", Usage: "growth chunk size in bytes", Default: "4096"},
	}, commonFlagInfo...),
}

func runCompare(args []string) error {
	fs := newFlagSet("compare")
	policy := fs.String("policy", "first", "fit policy: first, best, or worst (ignored by buddy)")
	chunk := fs.Uint("chunk", 4096, "growth chunk size in bytes")
	cf := addCommonFlags(fs)

	if handled, err := parseOrHelp(fs, args, compareCommandInfo); handled {
		return err
	}

	if err := cli.ValidateArgs(fs.Args(), 1, compareCommandInfo.Usage); err != nil {
		return err
	}

	logger, cfg, err := loadLogger(cf)
	if err != nil {
		return err
	}

	path := resolveTracePath(cfg, fs.Arg(0))

	t, err := loadTrace(path)
	if err != nil {
		return err
	}

	fit, err := parsePolicy(*policy)
	if err != nil {
		return err
	}

	designs := []string{"explicit", "segfit", "buddy"}

	type outcome struct {
		design string
		res    trace.Result
		stats  allocator.Stats
	}

	outcomes := make([]outcome, len(designs))

	var g errgroup.Group

	for i, name := range designs {
		i, name := i, name
		g.Go(func() error {
			logger.Debug("building %s design", name)

			h, err := buildDesign(name, fit, uint32(*chunk))
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}

			res, err := trace.Replay(h, t)
			if err != nil {
				return fmt.Errorf("%s: replay: %w", name, err)
			}

			outcomes[i] = outcome{design: name, res: res, stats: h.Stats()}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("compared %d designs against %s", len(designs), path)

	for _, o := range outcomes {
		printResult(o.design, o.res, o.stats)
	}

	return nil
}

var watchCommandInfo = cli.CommandInfo{
	Name:        "watch",
	Usage:       "segheap-bench watch [flags] <trace-file>",
	Description: "re-replay a trace file every time it changes",
	Flags: append([]cli.FlagInfo{
		{Name: "design", Usage: "allocator design: explicit, segfit, or buddy", Default: "segfit"},
		{Name: "policy", Usage: "fit policy: first, best, or worst", Default: "first"},
		{Name: "chunk", Usage: "growth chunk size in bytes", Default: "4096"},
	}, commonFlagInfo...),
}

func runWatch(args []string) error {
	fs := newFlagSet("watch")
	design := fs.String("design", "segfit", "allocator design: explicit, segfit, or buddy")
	policy := fs.String("policy", "first", "fit policy: first, best, or worst")
	chunk := fs.Uint("chunk", 4096, "growth chunk size in bytes")
	cf := addCommonFlags(fs)

	if handled, err := parseOrHelp(fs, args, watchCommandInfo); handled {
		return err
	}

	if err := cli.ValidateArgs(fs.Args(), 1, watchCommandInfo.Usage); err != nil {
		return err
	}

	logger, cfg, err := loadLogger(cf)
	if err != nil {
		return err
	}

	path := resolveTracePath(cfg, fs.Arg(0))

	fit, err := parsePolicy(*policy)
	if err != nil {
		return err
	}

	replayOnce := func() {
		h, err := buildDesign(*design, fit, uint32(*chunk))
		if err != nil {
			logger.Error("build: %v", err)
			return
		}

		t, err := loadTrace(path)
		if err != nil {
			logger.Error("load: %v", err)
			return
		}

		res, err := trace.Replay(h, t)
		if err != nil {
			logger.Error("replay: %v", err)
			return
		}

		printResult(*design, res, h.Stats())
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("watching %s, Ctrl-C to stop", path)
	replayOnce()

	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			// Coalesce bursts of editor-save events into one replay.
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(100*time.Millisecond, replayOnce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// A broken watch is fatal rather than a log-and-continue
			// condition: every subsequent save would silently stop
			// triggering a replay.
			cli.HandleError(fmt.Errorf("watch error: %w", err), logger)
		}
	}
}

var configCommandInfo = cli.CommandInfo{
	Name:        "config",
	Usage:       "segheap-bench config [flags] <path>",
	Description: "write a defaults file the other subcommands can load with -config",
	Flags: []cli.FlagInfo{
		{Name: "workdir", Usage: "default directory relative trace-file arguments resolve against", Default: "."},
		{Name: "verbose", Usage: "default -verbose setting", Default: "false"},
		{Name: "debug", Usage: "default -debug setting", Default: "false"},
	},
	Examples: []string{"segheap-bench config -workdir traces/ bench.json"},
}

func runConfig(args []string) error {
	fs := newFlagSet("config")
	workdir := fs.String("workdir", ".", "default directory relative trace-file arguments resolve against")
	verbose := fs.Bool("verbose", false, "default -verbose setting")
	debug := fs.Bool("debug", false, "default -debug setting")

	if handled, err := parseOrHelp(fs, args, configCommandInfo); handled {
		return err
	}

	if err := cli.ValidateArgs(fs.Args(), 1, configCommandInfo.Usage); err != nil {
		return err
	}

	cfg := &cli.Config{WorkDir: *workdir, Verbose: *verbose, Debug: *debug}

	if err := cfg.SaveConfig(fs.Arg(0)); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("wrote %s\n", fs.Arg(0))

	return nil
}

func printResult(design string, res trace.Result, stats allocator.Stats) {
	fmt.Printf("%-10s allocations=%-5d frees=%-5d reallocs=%-5d peak-live=%-5d heap=%-8d in-use=%-8d free=%-8d grows=%d\n",
		design, res.Allocations, res.Frees, res.Reallocs, res.PeakLiveSets,
		stats.HeapSize, stats.BytesInUse, stats.BytesFree, stats.GrowCount)
}
