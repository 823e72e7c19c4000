package fyne

import (
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/res"
)

const (
	APPNAME = "Signalscope"
	WIDTH   = 1180
	HEIGHT  = 720

	customPresetLabel = "Custom"
	noMusicLabel      = "(none)"
)

// frequencyControl is one labelled slider bound to a SignalConfig field.
type frequencyControl struct {
	label  string
	min    float64
	max    float64
	step   float64
	get    func(c *domain.SignalConfig) *float64
	slider *widget.Slider
	value  *widget.Label
}

// MainWindow is the main UI window implementing the UIView interface.
//
// The MainWindow follows the MVP pattern:
// - It's a "dumb view" that just displays data
// - All business logic is in the Presenter
// - User interactions are forwarded to the Presenter
type MainWindow struct {
	app    fyneapp.App
	window fyneapp.Window
	logger *slog.Logger

	// Form
	presetSelect   *widget.Select
	controls       []*frequencyControl
	tremoloCheck   *widget.Check
	musicModCheck  *widget.Check
	useMusicCheck  *widget.Check
	musicSelect    *widget.Select
	durationEntry  *widget.Entry
	generateButton *widget.Button

	// Output
	tabs        *container.AppTabs
	surfaces    map[domain.VisualizationTab]*RasterSurface
	playButton  *widget.Button
	stopButton  *widget.Button
	liveStatus  *widget.Label
	summary     *widget.RichText
	download    *widget.Hyperlink
	progress    *ProgressModal
	aboutDialog dialog.Dialog

	// Catalog label to key mappings
	mu         sync.Mutex
	presetKeys map[string]string
	musicKeys  map[string]string

	// Lifecycle management
	onBeforeClose func()

	// Presenter (set after construction)
	presenter *Presenter
}

// NewMainWindow creates a new main window. surfaces must hold one surface per tab.
func NewMainWindow(app fyneapp.App, logger *slog.Logger, surfaces map[domain.VisualizationTab]*RasterSurface) *MainWindow {
	w := &MainWindow{
		app:        app,
		logger:     logger,
		surfaces:   surfaces,
		presetKeys: map[string]string{customPresetLabel: domain.DefaultPresetName},
		musicKeys:  map[string]string{},
	}

	w.window = app.NewWindow(APPNAME)
	w.progress = NewProgressModal(w.window, func(message string) {
		dialog.ShowError(fmt.Errorf("%s", message), w.window)
	})

	w.buildUI()

	w.window.Resize(fyneapp.Size{
		Width:  WIDTH,
		Height: HEIGHT,
	})
	w.window.SetCloseIntercept(func() {
		if w.onBeforeClose != nil {
			w.onBeforeClose()
		}
		w.window.Close()
	})

	return w
}

// SetPresenter connects the presenter to this view.
// This must be called before showing the window.
func (w *MainWindow) SetPresenter(presenter *Presenter) {
	w.presenter = presenter
	w.wirePresenterHandlers()
}

// SetOnBeforeClose registers a function run before the window closes.
func (w *MainWindow) SetOnBeforeClose(fn func()) {
	w.onBeforeClose = fn
}

// ProgressDisplay returns the generation progress modal.
func (w *MainWindow) ProgressDisplay() *ProgressModal {
	return w.progress
}

func defaultControls() []*frequencyControl {
	return []*frequencyControl{
		{label: "Base tone (Hz)", min: 20, max: 500, step: 1, get: func(c *domain.SignalConfig) *float64 { return &c.BaseToneFreq }},
		{label: "Schumann (Hz)", min: 1, max: 40, step: 0.01, get: func(c *domain.SignalConfig) *float64 { return &c.SchumannFreq }},
		{label: "DNA repair (Hz)", min: 100, max: 1000, step: 1, get: func(c *domain.SignalConfig) *float64 { return &c.DNARepairFreq }},
		{label: "Ambient (Hz)", min: 100, max: 1000, step: 1, get: func(c *domain.SignalConfig) *float64 { return &c.AmbientFreq }},
		{label: "Chirp (Hz)", min: 500, max: 8000, step: 10, get: func(c *domain.SignalConfig) *float64 { return &c.ChirpFreq }},
		{label: "Ultrasonic (Hz)", min: 15000, max: 22000, step: 100, get: func(c *domain.SignalConfig) *float64 { return &c.UltrasonicFreq }},
		{label: "Tremolo depth", min: 0, max: 1, step: 0.05, get: func(c *domain.SignalConfig) *float64 { return &c.TremoloDepth }},
	}
}

// buildUI constructs the UI components.
func (w *MainWindow) buildUI() {
	w.presetSelect = widget.NewSelect([]string{customPresetLabel}, nil)
	w.presetSelect.SetSelected(customPresetLabel)

	form := container.NewVBox(widget.NewLabelWithStyle("Preset", fyneapp.TextAlignLeading, fyneapp.TextStyle{Bold: true}), w.presetSelect)

	w.controls = defaultControls()
	for _, c := range w.controls {
		c.slider = widget.NewSlider(c.min, c.max)
		c.slider.Step = c.step
		c.value = widget.NewLabel(formatControl(c, c.min))
		c.slider.OnChanged = func(v float64) { c.value.SetText(formatControl(c, v)) }
		form.Add(container.NewBorder(nil, nil, widget.NewLabel(c.label), c.value))
		form.Add(c.slider)
	}

	w.tremoloCheck = widget.NewCheck("Tremolo", nil)
	w.musicModCheck = widget.NewCheck("Music modulation", nil)
	form.Add(container.NewHBox(w.tremoloCheck, w.musicModCheck))

	w.useMusicCheck = widget.NewCheck("Use music file", nil)
	w.musicSelect = widget.NewSelect([]string{noMusicLabel}, nil)
	w.musicSelect.SetSelected(noMusicLabel)
	uploadButton := widget.NewButtonWithIcon("", theme.UploadIcon(), w.handleUpload)
	ingestButton := widget.NewButtonWithIcon("", theme.DownloadIcon(), w.handleIngest)
	form.Add(w.useMusicCheck)
	form.Add(container.NewBorder(nil, nil, nil, container.NewHBox(uploadButton, ingestButton), w.musicSelect))

	w.durationEntry = widget.NewEntry()
	w.durationEntry.SetText(strconv.Itoa(domain.DefaultDurationMs / 1000))
	w.durationEntry.Validator = func(s string) error {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil || v <= 0 {
			return fmt.Errorf("duration must be a positive number of seconds")
		}
		return nil
	}
	form.Add(container.NewBorder(nil, nil, widget.NewLabel("Duration (s)"), nil, w.durationEntry))

	w.generateButton = widget.NewButtonWithIcon("Generate", theme.MediaRecordIcon(), nil)
	w.generateButton.Importance = widget.HighImportance
	form.Add(w.generateButton)

	// Visualizations
	w.tabs = container.NewAppTabs()
	for _, tab := range domain.AllTabs {
		w.tabs.Append(container.NewTabItem(tab.Title(), w.surfaces[tab].CanvasObject()))
	}

	w.playButton = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), nil)
	w.stopButton = widget.NewButtonWithIcon("", theme.MediaStopIcon(), nil)
	w.liveStatus = widget.NewLabel("")
	w.liveStatus.Truncation = fyneapp.TextTruncateEllipsis
	w.download = widget.NewHyperlink("", nil)
	w.download.Hide()
	playback := container.NewBorder(nil, nil, container.NewHBox(w.playButton, w.stopButton), w.download, w.liveStatus)

	w.summary = widget.NewRichTextFromMarkdown("_Generate a signal to see its layers._")
	w.summary.Wrapping = fyneapp.TextWrapWord

	right := container.NewBorder(nil, container.NewVBox(playback, w.summary), nil, nil, w.tabs)
	split := container.NewHSplit(container.NewVScroll(container.NewPadded(form)), right)
	split.SetOffset(0.3)
	w.window.SetContent(split)

	w.window.SetMainMenu(fyneapp.NewMainMenu(w.createMenu()...))
}

func formatControl(c *frequencyControl, v float64) string {
	if c.step < 1 {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	return strconv.FormatFloat(v, 'f', 0, 64)
}

// wirePresenterHandlers connects UI events to presenter handlers.
func (w *MainWindow) wirePresenterHandlers() {
	if w.presenter == nil {
		return
	}

	w.generateButton.OnTapped = func() {
		if err := w.durationEntry.Validate(); err != nil {
			dialog.ShowError(err, w.window)
			return
		}
		w.presenter.OnGenerateClicked(w.FormState())
	}

	w.presetSelect.OnChanged = func(label string) {
		w.presenter.OnPresetSelected(w.presetKey(label))
	}

	w.tabs.OnSelected = func(item *container.TabItem) {
		w.presenter.OnTabSelected(domain.VisualizationTab(w.tabs.SelectedIndex()))
	}

	w.playButton.OnTapped = func() {
		w.presenter.OnPlayClicked()
	}

	w.stopButton.OnTapped = func() {
		w.presenter.OnStopClicked()
	}
}

// FormState reads the form. Call on the UI thread.
func (w *MainWindow) FormState() FormState {
	var cfg domain.SignalConfig
	for _, c := range w.controls {
		*c.get(&cfg) = c.slider.Value
	}
	cfg.UseTremolo = w.tremoloCheck.Checked
	cfg.UseMusicModulation = w.musicModCheck.Checked

	seconds, _ := strconv.ParseFloat(strings.TrimSpace(w.durationEntry.Text), 64)
	music := w.musicKey(w.musicSelect.Selected)

	return FormState{
		Config:     cfg,
		PresetKey:  w.presetKey(w.presetSelect.Selected),
		UseMusic:   w.useMusicCheck.Checked && music != "",
		MusicFile:  music,
		DurationMs: int(seconds * 1000),
	}
}

func (w *MainWindow) presetKey(label string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if key, ok := w.presetKeys[label]; ok {
		return key
	}
	return domain.DefaultPresetName
}

func (w *MainWindow) musicKey(label string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.musicKeys[label]
}

// createMenu creates the application menu.
func (w *MainWindow) createMenu() []*fyneapp.Menu {
	separator := fyneapp.NewMenuItemSeparator()

	upload := fyneapp.NewMenuItem("Upload Music...", w.handleUpload)
	ingest := fyneapp.NewMenuItem("Ingest From URL...", w.handleIngest)
	refresh := fyneapp.NewMenuItem("Refresh Catalogs", func() {
		if w.presenter != nil {
			w.presenter.OnRefreshClicked()
		}
	})

	about := fyneapp.NewMenuItem("About", w.showAbout)

	return []*fyneapp.Menu{
		fyneapp.NewMenu("File", upload, ingest, separator, refresh),
		fyneapp.NewMenu("Help", about),
	}
}

// handleUpload handles the "Upload Music" action.
func (w *MainWindow) handleUpload() {
	if w.presenter == nil {
		return
	}
	NewFileDialog(w.window, w.presenter.OnUploadFile, w.logger).Show()
}

// handleIngest handles the "Ingest From URL" action.
func (w *MainWindow) handleIngest() {
	if w.presenter == nil {
		return
	}
	NewIngestDialog(w.window, w.presenter.OnIngestURL).Show()
}

func (w *MainWindow) showAbout() {
	if w.aboutDialog == nil {
		content := widget.NewRichTextFromMarkdown(res.AboutContent)
		content.Wrapping = fyneapp.TextWrapWord
		w.aboutDialog = dialog.NewCustom("About "+APPNAME, "Close", content, w.window)
		w.aboutDialog.Resize(fyneapp.NewSize(420, 320))
	}
	w.aboutDialog.Show()
}

// ShowAndRun shows the window and runs the application.
func (w *MainWindow) ShowAndRun() {
	w.window.ShowAndRun()
}

// UIView interface implementation

// SetPresets replaces the preset options.
func (w *MainWindow) SetPresets(presets []domain.Preset, selected string) {
	labels := []string{customPresetLabel}
	keys := map[string]string{customPresetLabel: domain.DefaultPresetName}
	selectedLabel := customPresetLabel
	for _, p := range presets {
		label := p.Name
		if label == "" {
			label = p.Key
		}
		labels = append(labels, label)
		keys[label] = p.Key
		if p.Key == selected {
			selectedLabel = label
		}
	}

	w.mu.Lock()
	w.presetKeys = keys
	w.mu.Unlock()

	fyneapp.Do(func() {
		onChanged := w.presetSelect.OnChanged
		w.presetSelect.OnChanged = nil
		w.presetSelect.SetOptions(labels)
		w.presetSelect.SetSelected(selectedLabel)
		w.presetSelect.OnChanged = onChanged
	})
}

// SetMusicFiles replaces the music options.
func (w *MainWindow) SetMusicFiles(files []domain.CatalogEntry, selected string) {
	sorted := append([]domain.CatalogEntry(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Filename < sorted[j].Filename })

	labels := []string{noMusicLabel}
	keys := map[string]string{}
	selectedLabel := noMusicLabel
	for _, f := range sorted {
		label := fmt.Sprintf("%s (%.0fs)", f.Filename, f.DurationSeconds)
		labels = append(labels, label)
		keys[label] = f.Filename
		if f.Filename == selected {
			selectedLabel = label
		}
	}

	w.mu.Lock()
	w.musicKeys = keys
	w.mu.Unlock()

	fyneapp.Do(func() {
		w.musicSelect.SetOptions(labels)
		w.musicSelect.SetSelected(selectedLabel)
	})
}

// SetConfig moves the sliders to cfg.
func (w *MainWindow) SetConfig(cfg domain.SignalConfig) {
	fyneapp.Do(func() {
		for _, c := range w.controls {
			c.slider.SetValue(*c.get(&cfg))
		}
		w.tremoloCheck.SetChecked(cfg.UseTremolo)
		w.musicModCheck.SetChecked(cfg.UseMusicModulation)
	})
}

// SetActiveTab selects a visualization tab.
func (w *MainWindow) SetActiveTab(tab domain.VisualizationTab) {
	fyneapp.Do(func() {
		w.tabs.SelectIndex(int(tab))
	})
}

// SetGenerating disables the generate button while a task runs.
func (w *MainWindow) SetGenerating(busy bool) {
	fyneapp.Do(func() {
		if busy {
			w.generateButton.Disable()
		} else {
			w.generateButton.Enable()
		}
	})
}

// ShowResult shows the summary and download link of a completed result.
func (w *MainWindow) ShowResult(result domain.GenerationResult, downloadURL string) {
	md := resultMarkdown(result)
	link, err := url.Parse(downloadURL)

	fyneapp.Do(func() {
		w.summary.ParseMarkdown(md)
		if err == nil {
			w.download.SetText("Download " + result.Filename)
			w.download.URL = link
			w.download.Show()
		}
	})
}

// resultMarkdown formats the duration, layers and modulation of a result.
func resultMarkdown(r domain.GenerationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** (%.1f s)\n\n", r.Filename, float64(r.DurationMs)/1000)

	layers := []struct {
		name  string
		items []string
	}{
		{"Foundation", r.Metadata.Layers.Foundation},
		{"Human enhancement", r.Metadata.Layers.HumanEnhancement},
		{"Attention", r.Metadata.Layers.Attention},
		{"Life indicator", r.Metadata.Layers.LifeIndicator},
	}
	for _, l := range layers {
		if len(l.items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "- **%s:** %s\n", l.name, strings.Join(l.items, ", "))
	}

	m := r.Metadata.Modulation
	var mods []string
	if m.MusicModulation {
		mods = append(mods, "music modulation")
	}
	if m.MusicAsFoundation {
		mods = append(mods, "music as foundation")
	}
	if m.Tremolo {
		mods = append(mods, fmt.Sprintf("tremolo at %.2f Hz", m.TremoloRate))
	}
	if len(mods) > 0 {
		fmt.Fprintf(&b, "\n_Modulation:_ %s\n", strings.Join(mods, ", "))
	}
	return b.String()
}

// SetPlaybackState updates the transport buttons.
func (w *MainWindow) SetPlaybackState(status domain.PlaybackStatus, loaded bool) {
	fyneapp.Do(func() {
		if status == domain.PlaybackPlaying {
			w.playButton.SetIcon(theme.MediaPauseIcon())
		} else {
			w.playButton.SetIcon(theme.MediaPlayIcon())
		}
		if loaded {
			w.playButton.Enable()
			w.stopButton.Enable()
		} else {
			w.playButton.Disable()
			w.stopButton.Disable()
		}
	})
}

// SetLiveStatus shows a line under the visualizations.
func (w *MainWindow) SetLiveStatus(text string) {
	fyneapp.Do(func() {
		w.liveStatus.SetText(text)
	})
}

// ShowError displays an error dialog.
func (w *MainWindow) ShowError(title, message string) {
	fyneapp.Do(func() {
		dialog.ShowError(fmt.Errorf("%s: %s", title, message), w.window)
	})
}

// ShowNotification displays a system notification.
func (w *MainWindow) ShowNotification(title, message string) {
	w.app.SendNotification(fyneapp.NewNotification(title, message))
}

// Verify UIView implementation
var _ UIView = (*MainWindow)(nil)
