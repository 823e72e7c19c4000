package terminal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uapsignal/signalscope/internal/domain"
)

func TestProgressDisplay_Lifecycle(t *testing.T) {
	var out bytes.Buffer
	d := NewProgressDisplay(&out)

	d.ShowProgress(0, "Submitting...")
	d.ShowProgress(50, "Mixing layers")
	d.Complete("Signal generated")

	text := out.String()
	assert.Contains(t, text, "Submitting...")
	assert.Contains(t, text, "50%")
	assert.Contains(t, text, "Mixing layers")
	assert.Contains(t, text, "Signal generated")
	assert.Empty(t, d.Failure())
}

func TestProgressDisplay_FailKeepsText(t *testing.T) {
	var out bytes.Buffer
	d := NewProgressDisplay(&out)

	d.ShowProgress(10, "Loading music")
	d.Fail("Music file not found")

	assert.Equal(t, "Music file not found", d.Failure())
	assert.Contains(t, out.String(), "Music file not found")
}

func TestBar_Clamps(t *testing.T) {
	count := func(s, r string) int { return strings.Count(s, r) }

	assert.Equal(t, 10, count(Bar(100, 10), "█"))
	assert.Equal(t, 10, count(Bar(250, 10), "█"))
	assert.Equal(t, 10, count(Bar(-5, 10), "░"))
	assert.Equal(t, 5, count(Bar(50, 10), "█"))
}

func TestSummary(t *testing.T) {
	res := &domain.GenerationResult{Filename: "uap_signal_1.wav", DurationMs: 10000}
	res.Metadata.Layers.Foundation = []string{"Base tone 100 Hz", "Schumann 7.83 Hz"}
	res.Metadata.Modulation.Tremolo = true
	res.Metadata.Modulation.TremoloRate = 7.83

	s := Summary(res)

	assert.Contains(t, s, "uap_signal_1.wav")
	assert.Contains(t, s, "10.0 s")
	assert.Contains(t, s, "Base tone 100 Hz, Schumann 7.83 Hz")
	assert.Contains(t, s, "on (7.83 Hz)")
	assert.Empty(t, Summary(nil))
}
