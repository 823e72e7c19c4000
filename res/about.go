package res

// AboutContent contains the Markdown content for the About dialog.
// This is maintained separately for easy updates.
const AboutContent = `A desktop client for the UAP attraction signal generator.

**Features:**
- Layered signal generation with presets and music modulation
- Live progress while the backend renders
- Waveform, spectrum and spectrogram views, live during playback
- Music upload and URL ingestion
`
