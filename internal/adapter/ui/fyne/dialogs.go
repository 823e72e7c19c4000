package fyne

import (
	"log/slog"
	"net/url"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

// musicExtensions are offered by the upload dialog.
var musicExtensions = []string{".mp3", ".wav", ".flac", ".ogg", ".m4a"}

// FileDialog is a helper for picking a music file to upload.
type FileDialog struct {
	window   fyne.Window
	callback func(string)
	logger   *slog.Logger
}

// NewFileDialog creates a new file dialog.
func NewFileDialog(window fyne.Window, callback func(string), logger *slog.Logger) *FileDialog {
	return &FileDialog{
		window:   window,
		callback: callback,
		logger:   logger,
	}
}

// Show displays the file dialog.
func (d *FileDialog) Show() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			d.logger.Error("file dialog error", slog.Any("error", err))
			return
		}
		if reader == nil {
			return // User cancelled
		}
		defer reader.Close()

		if d.callback != nil {
			d.callback(reader.URI().Path())
		}
	}, d.window)
	fd.SetFilter(storage.NewExtensionFileFilter(musicExtensions))
	fd.Show()
}

// IngestDialog asks for a remote audio URL to ingest.
type IngestDialog struct {
	window   fyne.Window
	callback func(string)
}

// NewIngestDialog creates a new ingest dialog.
func NewIngestDialog(window fyne.Window, callback func(string)) *IngestDialog {
	return &IngestDialog{window: window, callback: callback}
}

// Show displays the dialog.
func (d *IngestDialog) Show() {
	entry := widget.NewEntry()
	entry.SetPlaceHolder("https://...")
	entry.Validator = func(s string) error {
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errInvalidURL
		}
		return nil
	}

	items := []*widget.FormItem{widget.NewFormItem("URL", entry)}
	dialog.ShowForm("Ingest music from URL", "Ingest", "Cancel", items, func(ok bool) {
		if ok && d.callback != nil {
			d.callback(entry.Text)
		}
	}, d.window)
}

type dialogError string

func (e dialogError) Error() string { return string(e) }

const errInvalidURL = dialogError("enter an http(s) URL")
