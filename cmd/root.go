// Package cmd contains the reducepic CLI commands
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/reducepic/internal/config"
	"github.com/AnyUserName/reducepic/internal/output"
)

var (
	version   = "0.1.0"
	cfgFile   string
	verbose   bool
	quiet     bool
	colorFlag string
	cfg       *config.Config
	logger    *slog.Logger
	printer   *output.Printer
)

var rootCmd = &cobra.Command{
	Use:   "reducepic",
	Short: "Compress images to a byte budget, quality tier or size",
	Long: `reducepic re-encodes images until they fit a target.

A byte budget (--target 50KB) searches quality and scale until the output
fits; a preset (--preset medium) or explicit dimensions (--width 800)
encode once. Outputs get content-addressed names and a JSON manifest.

Example usage:
  reducepic compress photos/ --target 100KB
  reducepic compress banner.png --preset low --format webp
  reducepic compress shots/ --width 1280 --quality 85
  reducepic stats reducepic_out/
  reducepic validate reducepic_out/reducepic.manifest.json`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
	setVersionTemplate()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .reducepic.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print errors")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto", "color output: auto, always, never")
	setVersionTemplate()
}

func setVersionTemplate() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"reducepic %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// initConfig loads configuration and sets up the logger and printer.
func initConfig(cmd *cobra.Command) error {
	var err error

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	mode, err := output.ParseColorMode(colorFlag)
	if err != nil {
		return err
	}
	printer = output.NewPrinterWithOptions(output.PrinterOptions{
		ColorMode:    mode,
		ConfigColors: cfg.Output.Colors,
		Quiet:        quiet,
		Out:          cmd.OutOrStdout(),
		Err:          cmd.ErrOrStderr(),
	})

	logger = newLogger(cmd.ErrOrStderr(), cfg.Logging)
	logger.Debug("configuration loaded",
		"format", cfg.Encode.Format,
		"parallelism", cfg.Batch.Parallelism,
		"out_dir", cfg.Batch.OutDir,
	)
	return nil
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func newLogger(w io.Writer, lc config.LoggingConfig) *slog.Logger {
	level := logLevels[lc.Level]
	if verbose {
		level = slog.LevelDebug
	} else if quiet {
		level = max(level, slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
