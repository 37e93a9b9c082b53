package preferences

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"interlude/internal/core/model"
)

// Window handles the preferences UI.
type Window struct {
	window     fyne.Window
	settings   Settings
	onSave     func(Settings) error
	onClose    func()
	interval   *widget.Entry
	breakLen   *widget.Entry
	snoozeBase *widget.Entry
	snoozeMin  *widget.Entry
	maxSnoozes *widget.Entry
	decay      *widget.Slider
	decayLabel *widget.Label
	background *widget.Entry
	foreground *widget.Entry
	audio      *widget.Check
	tray       *widget.Check
	journal    *widget.Check
	inhibitors *widget.Check
}

// New creates a preferences window. onSave is called with the edited
// settings; an error it returns is shown and keeps the window open.
func New(app fyne.App, settings Settings, onSave func(Settings) error) *Window {
	window := app.NewWindow("Interlude Settings")

	prefs := &Window{
		window:     window,
		onSave:     onSave,
		interval:   widget.NewEntry(),
		breakLen:   widget.NewEntry(),
		snoozeBase: widget.NewEntry(),
		snoozeMin:  widget.NewEntry(),
		maxSnoozes: widget.NewEntry(),
		decay:      widget.NewSlider(0.1, 0.95),
		decayLabel: widget.NewLabel(""),
		background: widget.NewEntry(),
		foreground: widget.NewEntry(),
		audio:      widget.NewCheck("Play chimes at break start and end", nil),
		tray:       widget.NewCheck("Show tray icon", nil),
		journal:    widget.NewCheck("Keep a break journal", nil),
		inhibitors: widget.NewCheck("Hold breaks while video or presentations block idle", nil),
	}
	prefs.decay.Step = 0.05
	prefs.decay.OnChanged = func(value float64) {
		prefs.decayLabel.SetText(fmt.Sprintf("%.2f", value))
	}
	prefs.background.SetPlaceHolder("#RRGGBBAA")
	prefs.foreground.SetPlaceHolder("#RRGGBBAA")

	form := container.NewVBox(
		widget.NewLabelWithStyle("Schedule", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Break every"), prefs.interval, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Break length"), prefs.breakLen, widget.NewLabel("sec")),
		widget.NewLabelWithStyle("Snooze", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("First snooze"), prefs.snoozeBase, widget.NewLabel("sec")),
		container.NewHBox(widget.NewLabel("Shortest snooze"), prefs.snoozeMin, widget.NewLabel("sec")),
		container.NewHBox(widget.NewLabel("Snoozes per break (0 = unlimited)"), prefs.maxSnoozes),
		container.NewBorder(nil, nil, widget.NewLabel("Snooze decay"), prefs.decayLabel, prefs.decay),
		widget.NewLabelWithStyle("Overlay", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Background"), prefs.background),
		container.NewHBox(widget.NewLabel("Foreground"), prefs.foreground),
		prefs.audio,
		prefs.tray,
		prefs.journal,
		prefs.inhibitors,
	)

	saveButton := widget.NewButton("Save", prefs.handleSave)
	cancelButton := widget.NewButton("Cancel", prefs.close)
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	content := container.NewBorder(nil, buttons, nil, nil, form)
	window.SetContent(content)
	window.Resize(fyne.NewSize(460, 560))
	window.SetCloseIntercept(prefs.close)

	prefs.UpdateSettings(settings)
	return prefs
}

// SetOnClose registers a callback run when the window is dismissed.
func (prefs *Window) SetOnClose(onClose func()) {
	prefs.onClose = onClose
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// Settings returns the last saved values.
func (prefs *Window) Settings() Settings {
	return prefs.settings
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings Settings) {
	prefs.settings = settings
	prefs.interval.SetText(strconv.Itoa(int(settings.Interval.Minutes())))
	prefs.breakLen.SetText(strconv.Itoa(int(settings.BreakLength.Seconds())))
	prefs.snoozeBase.SetText(strconv.Itoa(int(settings.SnoozeBase.Seconds())))
	prefs.snoozeMin.SetText(strconv.Itoa(int(settings.SnoozeMin.Seconds())))
	prefs.maxSnoozes.SetText(strconv.FormatUint(uint64(settings.MaxSnoozes), 10))
	prefs.decay.SetValue(settings.SnoozeDecay)
	prefs.decayLabel.SetText(fmt.Sprintf("%.2f", settings.SnoozeDecay))
	prefs.background.SetText(settings.Background)
	prefs.foreground.SetText(settings.Foreground)
	prefs.audio.SetChecked(settings.Audio)
	prefs.tray.SetChecked(settings.Tray)
	prefs.journal.SetChecked(settings.Journal)
	prefs.inhibitors.SetChecked(settings.RespectInhibitors)
}

func (prefs *Window) handleSave() {
	settings, err := prefs.collect()
	if err == nil && prefs.onSave != nil {
		err = prefs.onSave(settings)
	}
	if err != nil {
		dialog.ShowError(err, prefs.window)
		return
	}
	prefs.settings = settings
	prefs.close()
}

// collect reads the form on top of the current settings.
func (prefs *Window) collect() (Settings, error) {
	settings := prefs.settings
	var errs []error

	if minutes, ok := parsePositiveInt(prefs.interval.Text); ok {
		settings.Interval = time.Duration(minutes) * time.Minute
	} else {
		errs = append(errs, fmt.Errorf("break interval %q is not a positive number of minutes", prefs.interval.Text))
	}
	if seconds, ok := parsePositiveInt(prefs.breakLen.Text); ok {
		settings.BreakLength = time.Duration(seconds) * time.Second
	} else {
		errs = append(errs, fmt.Errorf("break length %q is not a positive number of seconds", prefs.breakLen.Text))
	}
	if seconds, ok := parsePositiveInt(prefs.snoozeBase.Text); ok {
		settings.SnoozeBase = time.Duration(seconds) * time.Second
	} else {
		errs = append(errs, fmt.Errorf("first snooze %q is not a positive number of seconds", prefs.snoozeBase.Text))
	}
	if seconds, ok := parsePositiveInt(prefs.snoozeMin.Text); ok {
		settings.SnoozeMin = time.Duration(seconds) * time.Second
	} else {
		errs = append(errs, fmt.Errorf("shortest snooze %q is not a positive number of seconds", prefs.snoozeMin.Text))
	}
	if count, err := strconv.ParseUint(strings.TrimSpace(prefs.maxSnoozes.Text), 10, 32); err == nil {
		settings.MaxSnoozes = uint32(count)
	} else {
		errs = append(errs, fmt.Errorf("snoozes per break %q is not a whole number", prefs.maxSnoozes.Text))
	}
	settings.SnoozeDecay = prefs.decay.Value

	for _, color := range []struct {
		name  string
		entry *widget.Entry
		dst   *string
	}{
		{"background", prefs.background, &settings.Background},
		{"foreground", prefs.foreground, &settings.Foreground},
	} {
		value := strings.TrimSpace(color.entry.Text)
		if _, err := model.ParseColor(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", color.name, err))
			continue
		}
		*color.dst = value
	}

	settings.Audio = prefs.audio.Checked
	settings.Tray = prefs.tray.Checked
	settings.Journal = prefs.journal.Checked
	settings.RespectInhibitors = prefs.inhibitors.Checked

	if len(errs) == 0 {
		if err := settings.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return settings, errors.Join(errs...)
}

func (prefs *Window) close() {
	prefs.window.Hide()
	if prefs.onClose != nil {
		prefs.onClose()
	}
}

func parsePositiveInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}
