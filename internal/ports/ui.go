// Package ports define the view-side interfaces.
// They let services draw and report progress without depending on Fyne directly.
package ports

import (
	"image"

	"github.com/uapsignal/signalscope/internal/domain"
)

// RenderSurface is a drawable target owned by the host UI.
// Renderers hold a reference but never own it.
type RenderSurface interface {
	// ID returns the stable surface identifier.
	ID() string

	// Size returns the pixel size renderers should draw at.
	Size() (width, height int)

	// Present replaces the displayed image. The surface takes ownership of img.
	Present(img *image.RGBA)
}

// ResultRenderer draws a one-shot visualization of a completed result.
type ResultRenderer interface {
	RenderResult(result *domain.GenerationResult)
}

// LiveRenderer draws one live frame.
type LiveRenderer interface {
	RenderLive(frame domain.AnalysisFrame)
}

// ProgressDisplay is the single progress indicator of a generation.
// Implementations must not call back into the orchestrator.
type ProgressDisplay interface {
	// ShowProgress shows or updates the indicator.
	ShowProgress(percent float64, message string)

	// Complete hides the indicator after a successful generation.
	Complete(message string)

	// Fail hides the indicator and surfaces the error text.
	Fail(message string)
}

// FrameHistory is the retained live spectrogram history.
type FrameHistory interface {
	Len() int
	Clear()
}
