package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/spf13/cobra"

	"github.com/0ad/0ad-sub001/config"
)

const banner = `
  ___    _    ____    ____  _     _
 / _ \  / \  |  _ \  / ___|(_) __| | ___  ___ __ _ _ __
| | | |/ _ \ | | | | \___ \| |/ _' |/ _ \/ __/ _' | '__|
| |_| / ___ \| |_| |  ___) | | (_| |  __/ (_| (_| | |
 \___/_/   \_\____/  |____/|_|\__,_|\___|\___\__,_|_|

Attack Plans for 0 A.D.`

type flags struct {
	config   string
	logLevel string
	logJSON  bool
	logFile  string
}

func main() {
	var f flags
	rootCmd := &cobra.Command{
		Use:   "sidecar",
		Short: "Attack-plan AI for 0 A.D. players",
		Long: `Runs the campaign planner either as a sidecar serving game hosts over a
unix socket, or against itself in a headless sandbox match.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&f.config, "config", "c", "", "Path to YAML tuning file")
	rootCmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&f.logJSON, "log-json", false, "Log as JSON")
	rootCmd.PersistentFlags().StringVar(&f.logFile, "log-file", "", "Write logs to a rotating file")

	rootCmd.AddCommand(serveCmd(&f), simulateCmd(&f))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// override applies command line flags on top of a loaded config.
func (f *flags) override(cfg *config.Config) {
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logJSON {
		cfg.Log.JSON = true
	}
	if f.logFile != "" {
		cfg.Log.File = f.logFile
	}
}

func (f *flags) load() (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}
	f.override(cfg)
	return cfg, cfg.Validate()
}

// setupLogging installs the default slog logger. The returned closer
// flushes the log file, if any.
func setupLogging(lc config.LogConfig) io.Closer {
	var w io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if lc.File != "" {
		lj := &lumberjack.Logger{
			Filename:   lc.File,
			MaxSize:    lc.MaxSize,
			MaxBackups: lc.MaxBackups,
			MaxAge:     lc.MaxAge,
			Compress:   lc.Compress,
		}
		w, closer = lj, lj
	}
	opts := &slog.HandlerOptions{Level: lc.SlogLevel()}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if lc.JSON {
		h = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
