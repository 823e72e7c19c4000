package fyne

import (
	"sync"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/uapsignal/signalscope/internal/ports"
)

// ProgressModal is the generation progress indicator: a modal with a bar and
// the backend's status text. Only one is shown at a time.
//
// Thread-safety: all methods may be called from any goroutine and never
// block on the UI thread.
type ProgressModal struct {
	window fyneapp.Window

	bar   *widget.ProgressBar
	label *widget.Label

	mu      sync.Mutex
	dlg     dialog.Dialog
	onError func(message string)
}

// NewProgressModal creates the modal for window. onError receives failure
// text after the modal is hidden.
func NewProgressModal(window fyneapp.Window, onError func(message string)) *ProgressModal {
	m := &ProgressModal{
		window:  window,
		bar:     widget.NewProgressBar(),
		label:   widget.NewLabel(""),
		onError: onError,
	}
	m.bar.Max = 100
	m.label.Wrapping = fyneapp.TextWrapWord
	return m
}

// ShowProgress implements ports.ProgressDisplay.
func (m *ProgressModal) ShowProgress(percent float64, message string) {
	fyneapp.Do(func() {
		m.mu.Lock()
		if m.dlg == nil {
			content := container.NewVBox(m.label, m.bar)
			m.dlg = dialog.NewCustomWithoutButtons("Generating signal", content, m.window)
			m.dlg.Resize(fyneapp.NewSize(380, 140))
			m.dlg.Show()
		}
		m.mu.Unlock()

		m.bar.SetValue(percent)
		m.label.SetText(message)
	})
}

// Complete implements ports.ProgressDisplay.
func (m *ProgressModal) Complete(string) {
	fyneapp.Do(m.hide)
}

// Fail implements ports.ProgressDisplay.
func (m *ProgressModal) Fail(message string) {
	fyneapp.Do(func() {
		m.hide()
		if m.onError != nil {
			m.onError(message)
		}
	})
}

// Visible reports whether the modal is currently shown.
func (m *ProgressModal) Visible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dlg != nil
}

// Value returns the displayed percent.
func (m *ProgressModal) Value() float64 {
	return m.bar.Value
}

func (m *ProgressModal) hide() {
	m.mu.Lock()
	dlg := m.dlg
	m.dlg = nil
	m.mu.Unlock()

	if dlg != nil {
		dlg.Hide()
	}
}

var _ ports.ProgressDisplay = (*ProgressModal)(nil)
