package service

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"sync"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/ports"
)

var errStreamClosed = errors.New("fake stream closed")

// fakeStream is an in-memory ports.MessageStream fed by the test.
type fakeStream struct {
	frames chan []byte
	fail   chan error
	closed chan struct{}

	mu         sync.Mutex
	closeCalls int
	once       sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		frames: make(chan []byte, 64),
		fail:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (f *fakeStream) ReadMessage() ([]byte, error) {
	select {
	case <-f.closed:
		return nil, errStreamClosed
	default:
	}
	select {
	case data := <-f.frames:
		return data, nil
	case err := <-f.fail:
		return nil, err
	case <-f.closed:
		return nil, errStreamClosed
	}
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	f.closeCalls++
	f.mu.Unlock()
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeStream) CloseCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

func (f *fakeStream) IsClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// push sends a JSON frame.
func (f *fakeStream) push(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	f.frames <- data
}

func (f *fakeStream) pushRaw(s string) {
	f.frames <- []byte(s)
}

// fakeDialer hands out one fakeStream per task id.
type fakeDialer struct {
	mu      sync.Mutex
	streams map[string]*fakeStream
	err     error
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{streams: make(map[string]*fakeStream)}
}

func (d *fakeDialer) Dial(_ context.Context, taskID string) (ports.MessageStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.streamLocked(taskID), nil
}

// stream returns the stream for taskID, creating it if the task was not dialed yet.
func (d *fakeDialer) stream(taskID string) *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streamLocked(taskID)
}

func (d *fakeDialer) streamLocked(taskID string) *fakeStream {
	s, ok := d.streams[taskID]
	if !ok {
		s = newFakeStream()
		d.streams[taskID] = s
	}
	return s
}

// fakeBackend returns queued task ids or errors in order.
type fakeBackend struct {
	mu       sync.Mutex
	ids      []string
	errs     []error
	requests []domain.GenerationRequest
}

func (b *fakeBackend) Submit(_ context.Context, req domain.GenerationRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	n := len(b.requests) - 1
	if n < len(b.errs) && b.errs[n] != nil {
		return "", b.errs[n]
	}
	if n < len(b.ids) {
		return b.ids[n], nil
	}
	return "", errors.New("no task id queued")
}

func (b *fakeBackend) Requests() []domain.GenerationRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.GenerationRequest(nil), b.requests...)
}

// recordingDisplay is a ports.ProgressDisplay that keeps every call.
type recordingDisplay struct {
	mu        sync.Mutex
	percents  []float64
	messages  []string
	completes []string
	fails     []string
}

func (d *recordingDisplay) ShowProgress(percent float64, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.percents = append(d.percents, percent)
	d.messages = append(d.messages, message)
}

func (d *recordingDisplay) Complete(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completes = append(d.completes, message)
}

func (d *recordingDisplay) Fail(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fails = append(d.fails, message)
}

func (d *recordingDisplay) Percents() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]float64(nil), d.percents...)
}

func (d *recordingDisplay) Messages() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.messages...)
}

func (d *recordingDisplay) Completes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.completes...)
}

func (d *recordingDisplay) Fails() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.fails...)
}

// recordingRenderer is a ports.ResultRenderer that keeps the drawn results.
type recordingRenderer struct {
	mu      sync.Mutex
	results []*domain.GenerationResult
}

func (r *recordingRenderer) RenderResult(result *domain.GenerationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *recordingRenderer) Results() []*domain.GenerationResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.GenerationResult(nil), r.results...)
}

// countingLive is a ports.LiveRenderer that counts frames.
type countingLive struct {
	mu     sync.Mutex
	frames int
}

func (c *countingLive) RenderLive(domain.AnalysisFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames++
}

func (c *countingLive) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// staticSource is a ports.AnalysisSource returning a fixed frame.
type staticSource struct {
	mu    sync.Mutex
	calls int
}

func (s *staticSource) Frame() domain.AnalysisFrame {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return domain.AnalysisFrame{
		TimeDomain: make([]byte, 64),
		FreqDomain: make([]byte, 32),
		SampleRate: 44100,
	}
}

// fakeHistory is a ports.FrameHistory.
type fakeHistory struct {
	mu      sync.Mutex
	n       int
	cleared int
}

func (h *fakeHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.n
}

func (h *fakeHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.n = 0
	h.cleared++
}

func (h *fakeHistory) Cleared() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cleared
}

// nullSurface satisfies ports.RenderSurface for render.Set based tests.
type nullSurface struct{ id string }

func (s nullSurface) ID() string             { return s.id }
func (s nullSurface) Size() (int, int)       { return 64, 32 }
func (s nullSurface) Present(_ *image.RGBA) {}

// wire helpers

func progressFrame(progress float64, message string) map[string]any {
	return map[string]any{"status": "progress", "progress": progress, "message": message}
}

func completedFrame(result domain.GenerationResult) map[string]any {
	return map[string]any{"status": "completed", "progress": 100, "message": "done", "result": result}
}

func errorFrame(text string) map[string]any {
	return map[string]any{"status": "error", "progress": 45, "message": "failed", "error": text}
}

func testResult(points int) domain.GenerationResult {
	wave := make([]float64, points)
	for i := range wave {
		wave[i] = float64(i%7)/7 - 0.5
	}
	return domain.GenerationResult{
		Filename:   "uap_signal_1.wav",
		DurationMs: 10000,
		Waveform:   wave,
		FFT: domain.FFTData{
			Frequencies: []float64{100, 1000, 10000},
			Magnitudes:  []float64{0.2, 1, 0.1},
		},
	}
}

func testRequest() domain.GenerationRequest {
	req := domain.NewGenerationRequest(domain.SignalConfig{BaseToneFreq: 100})
	return req
}
