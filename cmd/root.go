package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"interlude/internal/logger"
	"interlude/internal/storage"
	"interlude/internal/ui/preferences"
)

// options holds every command-line value. Scheduler and overlay flags only
// override the settings file when they were set explicitly.
type options struct {
	configPath string
	verbosity  int

	intervalMinutes        int
	initialIntervalMinutes int
	breakSeconds           int
	initialBreakSeconds    int
	snoozeBaseSeconds      int
	snoozeMinSeconds       int
	snoozeDecay            float64
	maxSnoozes             uint32
	background             string
	foreground             string
	fadeFPS                int

	immediate  bool
	resetState bool
}

func newRootCmd() *cobra.Command {
	return rootCommand(&options{})
}

func rootCommand(opts *options) *cobra.Command {
	defaults := preferences.DefaultSettings()

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Scheduled break reminders for Wayland sessions",
		Long:          "Interlude covers every output with an overlay when a break is due and keeps it up until the break is over.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, opts)
		},
	}

	defaultConfig, err := storage.DefaultSettingsPath(appName)
	if err != nil {
		defaultConfig = ""
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfig, "settings file path")
	cmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "increase log detail (-v info, -vv debug)")

	registerScheduleFlags(cmd.Flags(), opts, defaults)
	cmd.Flags().BoolVar(&opts.immediate, "immediate", false, "start with a break due")
	cmd.Flags().BoolVar(&opts.resetState, "reset-state", false, "discard saved scheduler state")

	cmd.AddCommand(
		newRunCmd(opts),
		newPreferencesCmd(opts),
		newHistoryCmd(opts),
		newAutostartCmd(opts),
	)
	return cmd
}

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the break daemon (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, opts)
		},
	}
	registerScheduleFlags(cmd.Flags(), opts, preferences.DefaultSettings())
	cmd.Flags().BoolVar(&opts.immediate, "immediate", false, "start with a break due")
	cmd.Flags().BoolVar(&opts.resetState, "reset-state", false, "discard saved scheduler state")
	return cmd
}

func registerScheduleFlags(flags *pflag.FlagSet, opts *options, defaults preferences.Settings) {
	flags.IntVar(&opts.intervalMinutes, "interval-minutes", int(defaults.Interval/time.Minute), "minutes of work between breaks")
	flags.IntVar(&opts.initialIntervalMinutes, "initial-interval-minutes", 0, "minutes before the first break (0 = same as interval)")
	flags.IntVar(&opts.breakSeconds, "break-seconds", int(defaults.BreakLength/time.Second), "break length in seconds")
	flags.IntVar(&opts.initialBreakSeconds, "initial-break-seconds", 0, "length of the first break (0 = same as break)")
	flags.IntVar(&opts.snoozeBaseSeconds, "snooze-base-seconds", int(defaults.SnoozeBase/time.Second), "length of the first snooze")
	flags.IntVar(&opts.snoozeMinSeconds, "snooze-min-seconds", int(defaults.SnoozeMin/time.Second), "shortest snooze")
	flags.Float64Var(&opts.snoozeDecay, "snooze-decay", defaults.SnoozeDecay, "factor applied to each further snooze, between 0 and 1")
	flags.Uint32Var(&opts.maxSnoozes, "max-snoozes", defaults.MaxSnoozes, "snoozes allowed per break (0 = unlimited)")
	flags.StringVar(&opts.background, "background", defaults.Background, "overlay background color (#RGB, #RRGGBB or #RRGGBBAA)")
	flags.StringVar(&opts.foreground, "foreground", defaults.Foreground, "overlay text color")
	flags.IntVar(&opts.fadeFPS, "fade-fps", defaults.FadeFPS, "frame rate while fading")
}

// applyFlags copies explicitly set flags onto settings.
func applyFlags(settings *preferences.Settings, flags *pflag.FlagSet, opts *options) {
	changed := flags.Changed
	if changed("interval-minutes") && opts.intervalMinutes > 0 {
		settings.Interval = time.Duration(opts.intervalMinutes) * time.Minute
	}
	if changed("initial-interval-minutes") && opts.initialIntervalMinutes >= 0 {
		settings.InitialInterval = time.Duration(opts.initialIntervalMinutes) * time.Minute
	}
	if changed("break-seconds") && opts.breakSeconds > 0 {
		settings.BreakLength = time.Duration(opts.breakSeconds) * time.Second
	}
	if changed("initial-break-seconds") && opts.initialBreakSeconds >= 0 {
		settings.InitialBreak = time.Duration(opts.initialBreakSeconds) * time.Second
	}
	if changed("snooze-base-seconds") && opts.snoozeBaseSeconds >= 0 {
		settings.SnoozeBase = time.Duration(opts.snoozeBaseSeconds) * time.Second
	}
	if changed("snooze-min-seconds") && opts.snoozeMinSeconds >= 0 {
		settings.SnoozeMin = time.Duration(opts.snoozeMinSeconds) * time.Second
	}
	if changed("snooze-decay") {
		settings.SnoozeDecay = opts.snoozeDecay
	}
	if changed("max-snoozes") {
		settings.MaxSnoozes = opts.maxSnoozes
	}
	if changed("background") {
		settings.Background = opts.background
	}
	if changed("foreground") {
		settings.Foreground = opts.foreground
	}
	if changed("fade-fps") {
		settings.FadeFPS = max(opts.fadeFPS, 1)
	}
}

// resolveSettings layers defaults, the settings file, the environment and
// explicit flags, in that order.
func resolveSettings(flags *pflag.FlagSet, opts *options) (preferences.Settings, error) {
	settings, err := storage.LoadSettings(opts.configPath)
	if err != nil {
		return settings, err
	}
	preferences.LoadFromEnv(&settings)
	if flags != nil {
		applyFlags(&settings, flags, opts)
	}
	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

func newLogger(opts *options) *logger.Logger {
	return logger.New(logger.FromVerbosity(opts.verbosity), os.Stderr)
}
