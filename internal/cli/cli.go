// Package cli implements the revenuemap command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/revenuemap/pkg/buildinfo"
	"github.com/matzehuels/revenuemap/pkg/cache"
	"github.com/matzehuels/revenuemap/pkg/config"
	"github.com/matzehuels/revenuemap/pkg/heatmap"
	"github.com/matzehuels/revenuemap/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const appName = "revenuemap"

// stdinPath reads the dataset from standard input.
const stdinPath = "-"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
	stdin      io.Reader
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		stdin:  os.Stdin,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Revenuemap draws revenue heatmaps as squarified treemaps",
		Long: `Revenuemap turns a list of revenue records into a heatmap: every record
becomes a rectangle whose area is its revenue and whose color is its change
(green for growth, red for decline, brighter for larger moves).`,
		Version:       buildinfo.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/revenuemap/config.toml)")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.colorCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config loads the configuration once per process.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner on the configured cache backend.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	if noCache {
		return pipeline.NewRunner(cache.NewNullCache(), nil, c.Logger), nil
	}
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	store, err := cfg.Cache.Open(ctx)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "backend", cfg.Cache.Backend, "err", err)
		store = cache.NewNullCache()
	}
	return pipeline.NewRunner(store, cacheKeyer(cfg.Cache), c.Logger), nil
}

// cacheKeyer namespaces keys on backends that may be shared with other
// services. nil selects the default keyer.
func cacheKeyer(cfg config.CacheConfig) cache.Keyer {
	if cfg.Backend == config.CacheRedis {
		return cache.NewScopedKeyer(nil, appName+":")
	}
	return nil
}

// =============================================================================
// Dataset Input
// =============================================================================

// loadDataset reads a dataset file, or standard input for "-".
func (c *CLI) loadDataset(path, inputFormat string) (*heatmap.Dataset, error) {
	if path != stdinPath {
		if inputFormat == "" {
			return heatmap.Load(path)
		}
		format, err := heatmap.ParseFormat(inputFormat)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open dataset: %w", err)
		}
		defer f.Close()
		return heatmap.Decode(f, format)
	}
	format, err := heatmap.ParseFormat(inputFormat)
	if err != nil {
		return nil, err
	}
	return heatmap.Decode(c.stdin, format)
}

// =============================================================================
// Options Helpers
// =============================================================================

// layoutFlags are shared by every command that computes a layout. Zero
// values defer to the [layout] section of the config file.
type layoutFlags struct {
	inputFormat  string
	width        float64
	height       float64
	minPartition float64
	top          int
	rollup       bool
	groupBy      string
	title        string
	noCache      bool
	refresh      bool
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.inputFormat, "input-format", "", "dataset format: json, yaml, toml (default: from extension; json for stdin)")
	fl.Float64Var(&f.width, "width", 0, "frame width (default from config, 1200)")
	fl.Float64Var(&f.height, "height", 0, "frame height (default from config, 800)")
	fl.Float64Var(&f.minPartition, "min-partition", 0, "leftover size below which small records are dropped (negative disables)")
	fl.IntVarP(&f.top, "top", "n", 0, "keep only the N largest records")
	fl.BoolVar(&f.rollup, "rollup", false, "merge records beyond --top into an \"Other\" tile")
	fl.StringVar(&f.groupBy, "group-by", "", "aggregate records: category")
	fl.StringVar(&f.title, "title", "", "override the dataset title")
	fl.BoolVar(&f.noCache, "no-cache", false, "disable caching")
	fl.BoolVar(&f.refresh, "refresh", false, "recompute even if cached")
}

// options builds pipeline options, filling unset values from defaults.
func (f *layoutFlags) options(defaults config.LayoutConfig) pipeline.Options {
	opts := pipeline.Options{
		Width:        f.width,
		Height:       f.height,
		MinPartition: f.minPartition,
		TopN:         f.top,
		Rollup:       f.rollup,
		GroupBy:      f.groupBy,
		Title:        f.title,
		Refresh:      f.refresh,
	}
	if opts.Width == 0 {
		opts.Width = defaults.Width
	}
	if opts.Height == 0 {
		opts.Height = defaults.Height
	}
	if opts.MinPartition == 0 {
		opts.MinPartition = defaults.MinPartition
	}
	if opts.TopN == 0 {
		opts.TopN = defaults.TopN
	}
	return opts
}

// layoutDefaults returns the configured layout defaults.
func (c *CLI) layoutDefaults() (config.LayoutConfig, error) {
	cfg, err := c.config()
	if err != nil {
		return config.LayoutConfig{}, err
	}
	return cfg.Layout, nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{"svg"}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// outputBase derives the base output path from the input path.
func outputBase(input string) string {
	if input == stdinPath {
		return "heatmap"
	}
	return strings.TrimSuffix(input, filepath.Ext(input))
}
