package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TomatoPi/5FX-Expander/internal/common/apperrors"
	"github.com/TomatoPi/5FX-Expander/internal/common/logtrace"
	"github.com/TomatoPi/5FX-Expander/internal/expander/app"
	"github.com/TomatoPi/5FX-Expander/internal/expander/audio"
	"github.com/TomatoPi/5FX-Expander/internal/expander/config"
	"github.com/TomatoPi/5FX-Expander/internal/expander/envresolve"
	"github.com/TomatoPi/5FX-Expander/internal/expander/synth"
	"github.com/TomatoPi/5FX-Expander/internal/expander/versions"
)

type options struct {
	settingsFile string
	envFile      string
	driver       string
	engine       string
	logLevel     string
	pretty       bool
	monitor      bool
}

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)

// newRootCmd builds the command tree. The root command runs the expander.
func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "expander [sound-bank.sfz]",
		Short: "5FX Expander - an SFZ sound module for JACK",
		Long: `5FX Expander plays an SFZ sound bank from MIDI received on a JACK port.

When started by a Non Session Manager (NSM_URL set) it joins the session and
stores its sound bank choice in the session directory. Otherwise it runs
standalone from ~/.5FX. Type "quit" on the console to exit.

Examples:
  # Play a bank standalone
  expander ~/banks/piano.sfz

  # Use a settings file and log incoming MIDI
  expander --settings expander.toml --monitor`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpander(cmd, opts, args)
		},
	}

	f := rootCmd.Flags()
	f.StringVar(&opts.settingsFile, "settings", "", "Path to a TOML settings file")
	f.StringVar(&opts.envFile, "env-file", "", "Load environment variables from a dotenv file")
	f.StringVar(&opts.driver, "driver", "", "Audio driver to use, overrides the settings file")
	f.StringVar(&opts.engine, "engine", "", "Synthesis engine to use, overrides the settings file")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	f.BoolVar(&opts.pretty, "pretty", false, "Human readable log output")
	f.BoolVar(&opts.monitor, "monitor", false, "Log every MIDI message forwarded to the engine")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newBackendsCmd())
	return rootCmd
}

// Execute runs the command line and exits with the code carried by the error.
func Execute() {
	rootCmd := newRootCmd()
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		errorLabel.Fprintf(os.Stderr, "Error: %s\n", apperrors.Describe(err))
		os.Exit(apperrors.ExitCode(err))
	}
}

// loadSettings reads the settings file and applies command line overrides.
func loadSettings(cmd *cobra.Command, opts *options) (*config.Settings, error) {
	settings, err := config.Load(opts.settingsFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("driver") {
		settings.Driver = opts.driver
	}
	if flags.Changed("engine") {
		settings.Engine = opts.engine
	}
	if flags.Changed("log-level") {
		settings.Log.Level = opts.logLevel
	}
	if flags.Changed("pretty") {
		settings.Log.Pretty = opts.pretty
	}
	if flags.Changed("monitor") {
		settings.Monitor.Enabled = opts.monitor
	}
	if err := config.Validate(settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

func runExpander(cmd *cobra.Command, opts *options, args []string) error {
	if err := envresolve.LoadEnvFile(opts.envFile); err != nil {
		return err
	}
	settings, err := loadSettings(cmd, opts)
	if err != nil {
		return err
	}
	runID := logtrace.InitLogger(settings.Log.Level, settings.Log.Pretty)

	var soundBank string
	if len(args) == 1 {
		soundBank = args[0]
	}
	a, err := app.New(app.Options{Settings: settings, SoundBank: soundBank})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	okLabel.Fprintf(cmd.ErrOrStderr(), "%s %s (driver %s, engine %s, run %s)\n",
		settings.ClientName, versions.Version, settings.Driver, settings.Engine, runID)
	return a.Run(ctx, cmd.InOrStdin())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of the expander",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("5FX-Expander %s\n", versions.Version)
			cmd.Printf("NSM API %s\n", versions.NSMAPIVersion)
		},
	}
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the available audio drivers and synthesis engines",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("Audio drivers:")
			for _, name := range audio.Drivers() {
				cmd.Printf("  %s\n", name)
			}
			cmd.Println("Synthesis engines:")
			for _, name := range synth.Engines() {
				cmd.Printf("  %s\n", name)
			}
		},
	}
}
