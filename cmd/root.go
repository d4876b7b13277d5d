// Package cmd implements the dvdmirror CLI surface: one Cobra verb per core
// component operation (mirror, titleset, feature, chapters, info, compare),
// sharing the flags that build an internal/mirrorcfg.Config and the
// disc-opening and diagnostic-reporting glue every verb needs.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dvdmirror/internal/discio"
	"dvdmirror/internal/discio/fsdisc"
	"dvdmirror/internal/dvderr"
	"dvdmirror/internal/mirrorcfg"
	"dvdmirror/internal/progress"
)

var (
	flagErrorStrategy string
	flagRefresh       bool
	flagRefreshOrder  string
	flagSeed          uint64
	flagTitleName     string
	flagQuiet         bool
)

var rootCmd = &cobra.Command{
	Use:   "dvdmirror",
	Short: "Mirror a DVD-Video VIDEO_TS tree to disk",
	Long: `dvdmirror copies some or all of a DVD-Video disc's VIDEO_TS hierarchy to a
local directory: whole title sets, a guessed main feature, or a chapter
range, with an optional gap-refresh pass and byte-exact compare mode.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagErrorStrategy, "error-strategy", "abort",
		`how to react to a short disc read: "abort", "skip-block", or "skip-multiblock"`)
	rootCmd.PersistentFlags().BoolVar(&flagRefresh, "refresh", false,
		"verify and refill an existing output tree instead of copying fresh")
	rootCmd.PersistentFlags().StringVar(&flagRefreshOrder, "refresh-order", "forward",
		`gap refill order: "forward", "reverse", "outside-in", or "random"`)
	rootCmd.PersistentFlags().Uint64Var(&flagSeed, "seed", 0,
		`shuffle seed for --refresh-order random`)
	rootCmd.PersistentFlags().StringVar(&flagTitleName, "name", "",
		"title name for the mirrored tree; defaults to the source's base name")
	rootCmd.PersistentFlags().BoolVar(&flagQuiet, "quiet", false,
		"suppress progress bars")
}

// Execute runs the root command, returning the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return exitCode
}

// exitCode is set by a verb's Run on a reported failure; Cobra's own usage
// errors already return non-zero via Execute's error return.
var exitCode int

// buildConfig assembles a mirrorcfg.Config from the shared flags, defaulting
// the title name to the source path's base name when --name is unset.
func buildConfig(source string) (mirrorcfg.Config, error) {
	cfg := mirrorcfg.Default()

	strategy, ok := mirrorcfg.ParseErrorStrategy(flagErrorStrategy)
	if !ok {
		return cfg, fmt.Errorf("unknown --error-strategy %q", flagErrorStrategy)
	}
	cfg.ErrorStrategy = strategy

	ordering, ok := mirrorcfg.ParseGapOrdering(flagRefreshOrder)
	if !ok {
		return cfg, fmt.Errorf("unknown --refresh-order %q", flagRefreshOrder)
	}
	cfg.GapOrdering = ordering

	cfg.Refresh = flagRefresh
	cfg.GapSeed = flagSeed
	cfg.Progress = !flagQuiet

	cfg.TitleName = flagTitleName
	if cfg.TitleName == "" {
		cfg.TitleName = titleNameFromSource(source)
	}

	return cfg, nil
}

// openSource opens source as a mounted VIDEO_TS directory. A raw block
// device path is probed first (failing early if unreadable), but it is
// still handed to fsdisc.Open, which only reads directories.
func openSource(source string) (discio.Disc, error) {
	if fsdisc.IsBlockDevice(source) {
		if _, err := fsdisc.ProbeBlockDevice(source); err != nil {
			return nil, err
		}
	}
	return fsdisc.Open(source)
}

// reportErr prints a single red diagnostic line for err and arranges for
// Execute to return exit code 1. It does not itself terminate the process,
// so deferred cleanup in the caller still runs.
func reportErr(err error) {
	if err == nil {
		return
	}
	exitCode = 1
	msg := err.Error()
	var derr *dvderr.Error
	if errors.As(err, &derr) {
		msg = fmt.Sprintf("[%s] %s", derr.Kind, msg)
	}
	color.New(color.FgRed).Fprintln(os.Stderr, msg)
}

func newProgress() *progress.Renderer {
	return progress.New(os.Stdout, flagQuiet)
}
