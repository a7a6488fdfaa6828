package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/voltlens/internal/config"
	"github.com/KaramelBytes/voltlens/internal/logging"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:           "voltlens",
	Short:         "voltlens: exploratory report over battery-materials data",
	Long:          `voltlens loads a battery-materials table, summarizes and charts it, trains a cached random-forest model of gravimetric energy and clusters the materials with DBSCAN.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("✗ Error:"), err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.voltlens/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to loading on demand and report the error there
		warnf(os.Stderr, "failed to load config: %v", err)
		cfg = nil
		initLogging(nil, os.Stderr)
		return
	}
	cfg = c
	initLogging(cfg, os.Stderr)
}

func initLogging(c *cfgpkg.Global, w io.Writer) {
	level, format := slog.LevelInfo, "text"
	if c != nil {
		if l, err := logging.ParseLevel(c.LogLevel); err == nil {
			level = l
		} else {
			warnf(w, "%v; using info", err)
		}
		if c.LogFormat != "" {
			format = c.LogFormat
		}
	}
	if debug {
		level = slog.LevelDebug
	}
	if logFormat != "" {
		format = logFormat
	}
	logging.Init(level, format, w)
}

// currentConfig returns the loaded config, loading it if initialization
// failed or was skipped.
func currentConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

func okf(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, color.GreenString("✓"), fmt.Sprintf(format, a...))
}

func warnf(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, color.YellowString("⚠ Warning:"), fmt.Sprintf(format, a...))
}
