package main

import (
	"fmt"
	"os"
	"time"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"interlude/internal/journal"
	"interlude/internal/platform"
	"interlude/internal/storage"
	"interlude/internal/ui/preferences"
	"interlude/resources"
)

func newPreferencesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "preferences",
		Short: "Edit settings in a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(opts)
			settings, err := storage.LoadSettings(opts.configPath)
			if err != nil {
				log.Warn("editing defaults: %v", err)
			}

			fyneApp := app.NewWithID("dev.interlude.preferences")
			if icon, err := resources.Icon(resources.AppIcon); err == nil {
				fyneApp.SetIcon(icon)
			}
			window := preferences.New(fyneApp, settings, func(updated preferences.Settings) error {
				if err := storage.SaveSettings(opts.configPath, updated); err != nil {
					return err
				}
				log.Info("settings saved to %s", opts.configPath)
				return nil
			})
			window.SetOnClose(fyneApp.Quit)
			window.Show()
			fyneApp.Run()
			return nil
		},
	}
}

func newHistoryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "history [day|week|month]",
		Short:     "Show recorded breaks",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"day", "week", "month"},
		RunE: func(cmd *cobra.Command, args []string) error {
			periodType := "day"
			if len(args) == 1 {
				periodType = args[0]
			}
			period, err := journal.PeriodFor(periodType, time.Now())
			if err != nil {
				return err
			}

			path, err := journal.DefaultPath(appName)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				return fmt.Errorf("no journal at %s (enable it with \"journal: true\" in %s)", path, opts.configPath)
			}
			db, err := journal.Connect(path)
			if err != nil {
				return err
			}
			defer db.Close()

			report, err := journal.BuildReport(journal.NewRepository(db), period)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Render())
			return nil
		},
	}
}

func newAutostartCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Start interlude with the desktop session",
	}
	service := platform.NewService()

	cmd.AddCommand(&cobra.Command{
		Use:   "enable",
		Short: "Install the autostart desktop entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			executable, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			command := []string{executable, "run"}
			// A non-default settings file has to survive into the session.
			if cmd.Flags().Changed("config") {
				command = append(command, "--config", opts.configPath)
			}
			if err := service.EnableAutostart(appName, command); err != nil {
				return err
			}
			path, _ := service.AutostartPath(appName)
			fmt.Fprintf(cmd.OutOrStdout(), "autostart enabled: %s\n", path)
			return nil
		},
	}, &cobra.Command{
		Use:   "disable",
		Short: "Remove the autostart desktop entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := service.DisableAutostart(appName); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "autostart disabled")
			return nil
		},
	}, &cobra.Command{
		Use:   "status",
		Short: "Report whether interlude starts with the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := service.AutostartEnabled(appName)
			if err != nil {
				return err
			}
			path, _ := service.AutostartPath(appName)
			state := "disabled"
			if enabled {
				state = "enabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "autostart %s (%s)\n", state, path)
			return nil
		},
	})
	return cmd
}
