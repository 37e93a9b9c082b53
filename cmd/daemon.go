package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"interlude/internal/audio"
	"interlude/internal/core/mailbox"
	"interlude/internal/core/model"
	"interlude/internal/core/runner"
	"interlude/internal/core/timekeeper"
	"interlude/internal/journal"
	"interlude/internal/logger"
	"interlude/internal/platform"
	"interlude/internal/storage"
	"interlude/internal/ui/overlay"
	"interlude/internal/ui/render"
	"interlude/internal/ui/tray"
	"interlude/resources"
)

const trayIconSize = 64

func runDaemon(cmd *cobra.Command, opts *options) error {
	log := newLogger(opts)

	settings, err := resolveSettings(cmd.Flags(), opts)
	if err != nil {
		return err
	}

	guard, err := platform.AcquireSingleInstance(appName)
	if err != nil {
		return err
	}
	defer func() {
		_ = guard.Release()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	colors, err := settings.Colors()
	if err != nil {
		log.Warn("using default color: %v", err)
	}

	store, err := newStateStore(opts, log)
	if err != nil {
		return err
	}
	keeper := restoreKeeper(settings.SchedulerConfig(), store, log)
	if opts.immediate {
		keeper.BreakNow()
	}

	assets, err := loadAssets()
	if err != nil {
		return err
	}
	client, err := overlay.Connect(overlay.Config{
		Namespace: overlay.DefaultNamespace,
		Colors:    colors,
		Fade:      settings.FadeConfig(),
	}, assets, log)
	if err != nil {
		return err
	}
	defer client.Close()
	log.Info("overlay ready on %d output(s)", client.Outputs())

	events := mailbox.New[model.Event]()
	defer events.Close()

	go func() {
		if err := platform.WatchSessionLock(ctx, log, events.Send); err != nil {
			log.Warn("session lock watcher disabled: %v", err)
		}
	}()

	if err := storage.WatchSettings(ctx, opts.configPath, func() {
		reloaded, err := resolveSettings(cmd.Flags(), opts)
		if err != nil {
			log.Warn("settings reload ignored: %v", err)
			return
		}
		scheduler := reloaded.SchedulerConfig()
		reloadedColors, err := reloaded.Colors()
		if err != nil {
			log.Warn("using default color: %v", err)
		}
		events.Send(model.Event{Kind: model.EventConfigReloaded, Scheduler: &scheduler, Colors: &reloadedColors})
	}); err != nil {
		log.Warn("settings hot reload disabled: %v", err)
	}

	cues := audio.Cues(audio.NewNoOp(log))
	if settings.Audio {
		cues = audio.New(log)
	}

	deps := runner.Deps{
		Keeper:  keeper,
		Overlay: client,
		Events:  events,
		Clock:   timekeeper.SystemClock{},
		Cues:    cues,
		State:   store,
		Log:     log,
	}

	if settings.Journal {
		if writer, closeJournal, err := openJournal(log); err != nil {
			log.Warn("journal disabled: %v", err)
		} else {
			defer closeJournal()
			deps.Journal = writer
		}
	}

	if settings.RespectInhibitors {
		deps.Inhibitors = platform.NewInhibitorProvider(log, platform.InhibitorCheckInterval)
	}

	if settings.Tray {
		manager := startTray(assets.Icons, events, opts.configPath, log)
		defer manager.Quit()
		deps.OnStatus = manager.SetStatus
	}

	loop := runner.New(runner.Config{FrameInterval: settings.FrameInterval()}, deps)
	log.Info("interlude started, first break in %s", formatRemaining(settings.SchedulerConfig().FirstInterval()))
	return loop.Run(ctx)
}

func newStateStore(opts *options, log *logger.Logger) (*storage.StateStore, error) {
	dir, err := storage.DefaultStateDir(appName)
	if err != nil {
		return nil, err
	}
	store := storage.NewStateStore(dir)
	if opts.resetState {
		if err := store.Clear(); err != nil {
			return nil, err
		}
		log.Info("saved state discarded")
	}
	return store, nil
}

func restoreKeeper(config model.SchedulerConfig, store *storage.StateStore, log *logger.Logger) *timekeeper.TimeKeeper {
	snapshot, err := store.Load()
	if err != nil {
		log.Debug("starting fresh: %v", err)
		return timekeeper.New(config, timekeeper.SystemClock{})
	}
	log.Info("restored %s from %s", snapshot.Phase, store.Path())
	return timekeeper.Restore(config, timekeeper.SystemClock{}, snapshot)
}

func loadAssets() (overlay.Assets, error) {
	typeface, err := render.NewOpenType(resources.OverlayFont())
	if err != nil {
		return overlay.Assets{}, fmt.Errorf("load overlay font: %w", err)
	}
	icon, err := resources.Icon(resources.AppIcon)
	if err != nil {
		return overlay.Assets{}, err
	}
	icons, err := render.NewIconRasterizer(icon.Content())
	if err != nil {
		return overlay.Assets{}, fmt.Errorf("load overlay icon: %w", err)
	}
	return overlay.Assets{Renderer: render.NewRenderer(typeface), Icons: icons}, nil
}

func openJournal(log *logger.Logger) (*journal.Writer, func(), error) {
	path, err := journal.DefaultPath(appName)
	if err != nil {
		return nil, nil, err
	}
	db, err := journal.Connect(path)
	if err != nil {
		return nil, nil, err
	}
	writer := journal.NewWriter(journal.NewRepository(db), log, journal.DefaultBuffer)
	return writer, func() {
		writer.Close()
		if err := db.Close(); err != nil {
			log.Warn("close journal: %v", err)
		}
	}, nil
}

func startTray(icons *render.IconRasterizer, events *mailbox.Mailbox[model.Event], configPath string, log *logger.Logger) *tray.Manager {
	icon, err := icons.PNG(trayIconSize)
	if err != nil {
		log.Warn("tray icon unavailable: %v", err)
	}
	manager := tray.New("Interlude", icon, tray.Callbacks{
		OnBreakNow: func() {
			events.Send(model.Event{Kind: model.EventBreakNow})
		},
		OnPreferences: func() {
			if err := spawnPreferences(configPath); err != nil {
				log.Warn("open preferences: %v", err)
			}
		},
		OnQuit: func() {
			events.Send(model.Event{Kind: model.EventQuit})
		},
	})
	go manager.Run()
	return manager
}

// spawnPreferences opens the settings window in a separate process so the
// overlay loop never shares a goroutine with the GUI toolkit.
func spawnPreferences(configPath string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	process := exec.Command(executable, "preferences", "--config", configPath)
	if err := process.Start(); err != nil {
		return err
	}
	go func() {
		_ = process.Wait()
	}()
	return nil
}

func formatRemaining(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	seconds := int(remaining.Seconds())
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
