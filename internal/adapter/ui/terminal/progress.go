// Package terminal renders generation progress and results on a terminal.
package terminal

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/ports"
)

const barWidth = 30

var (
	accent = lipgloss.Color("#88C0D0")
	good   = lipgloss.Color("#A3BE8C")
	bad    = lipgloss.Color("#BF616A")
	dim    = lipgloss.Color("#4C566A")

	filledStyle  = lipgloss.NewStyle().Foreground(accent)
	emptyStyle   = lipgloss.NewStyle().Foreground(dim)
	percentStyle = lipgloss.NewStyle().Bold(true).Width(5).Align(lipgloss.Right)
	doneStyle    = lipgloss.NewStyle().Bold(true).Foreground(good)
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(bad)
	labelStyle   = lipgloss.NewStyle().Foreground(accent).Width(20)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(dim).Padding(0, 1)
)

// ProgressDisplay draws a single progress bar line that is rewritten in place.
//
// Thread-safety: This implementation is thread-safe.
type ProgressDisplay struct {
	out io.Writer

	mu      sync.Mutex
	visible bool
	last    float64
	failed  string
}

// NewProgressDisplay creates a display writing to out.
func NewProgressDisplay(out io.Writer) *ProgressDisplay {
	return &ProgressDisplay{out: out}
}

// ShowProgress implements ports.ProgressDisplay.
func (d *ProgressDisplay) ShowProgress(percent float64, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.visible = true
	d.last = percent
	fmt.Fprintf(d.out, "\r\033[K%s %s %s", Bar(percent, barWidth), percentStyle.Render(fmt.Sprintf("%.0f%%", percent)), message)
}

// Complete implements ports.ProgressDisplay.
func (d *ProgressDisplay) Complete(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.endLineLocked()
	fmt.Fprintln(d.out, doneStyle.Render("✓ "+message))
}

// Fail implements ports.ProgressDisplay.
func (d *ProgressDisplay) Fail(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.endLineLocked()
	d.failed = message
	fmt.Fprintln(d.out, failStyle.Render("✗ "+message))
}

// Failure returns the last failure text shown, or "".
func (d *ProgressDisplay) Failure() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failed
}

func (d *ProgressDisplay) endLineLocked() {
	if d.visible {
		fmt.Fprint(d.out, "\r\033[K")
		d.visible = false
	}
}

// Bar renders a percent value as a fixed-width bar.
func Bar(percent float64, width int) string {
	p := math.Max(0, math.Min(100, percent))
	filled := int(math.Round(p / 100 * float64(width)))
	return filledStyle.Render(strings.Repeat("█", filled)) +
		emptyStyle.Render(strings.Repeat("░", width-filled))
}

// Summary formats the duration, layers and modulation of a result.
func Summary(result *domain.GenerationResult) string {
	if result == nil {
		return ""
	}
	md := result.Metadata
	rows := [][2]string{
		{"File", result.Filename},
		{"Duration", fmt.Sprintf("%.1f s", float64(result.DurationMs)/1000)},
		{"Foundation", joinOrDash(md.Layers.Foundation)},
		{"Human enhancement", joinOrDash(md.Layers.HumanEnhancement)},
		{"Attention", joinOrDash(md.Layers.Attention)},
		{"Life indicator", joinOrDash(md.Layers.LifeIndicator)},
		{"Music modulation", onOff(md.Modulation.MusicModulation)},
		{"Tremolo", tremolo(md.Modulation)},
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, labelStyle.Render(r[0])+r[1])
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func tremolo(m domain.Modulation) string {
	if !m.Tremolo {
		return "off"
	}
	return fmt.Sprintf("on (%.2f Hz)", m.TremoloRate)
}

var _ ports.ProgressDisplay = (*ProgressDisplay)(nil)
