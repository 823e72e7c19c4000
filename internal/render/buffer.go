package render

import "sync"

// DefaultHistorySlices is the number of live spectrogram slices retained.
const DefaultHistorySlices = 100

// SpectrogramBuffer is a fixed-capacity FIFO of frequency-domain slices.
// Push is O(1): once full, each insertion overwrites the oldest slice.
type SpectrogramBuffer struct {
	mu     sync.Mutex
	slices [][]byte
	head   int // index of the oldest slice
	size   int
}

// NewSpectrogramBuffer creates a buffer holding at most capacity slices.
// A non-positive capacity falls back to DefaultHistorySlices.
func NewSpectrogramBuffer(capacity int) *SpectrogramBuffer {
	if capacity <= 0 {
		capacity = DefaultHistorySlices
	}
	return &SpectrogramBuffer{slices: make([][]byte, capacity)}
}

// Push appends a copy of slice, evicting the oldest when full.
// It reports whether a slice was evicted.
func (b *SpectrogramBuffer) Push(slice []byte) bool {
	cp := make([]byte, len(slice))
	copy(cp, slice)

	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.slices)
	if b.size < capacity {
		b.slices[(b.head+b.size)%capacity] = cp
		b.size++
		return false
	}
	b.slices[b.head] = cp
	b.head = (b.head + 1) % capacity
	return true
}

// Len returns the number of retained slices.
func (b *SpectrogramBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the buffer capacity.
func (b *SpectrogramBuffer) Cap() int {
	return len(b.slices)
}

// At returns the i-th retained slice, 0 being the oldest.
func (b *SpectrogramBuffer) At(i int) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= b.size {
		return nil
	}
	return b.slices[(b.head+i)%len(b.slices)]
}

// Snapshot returns the retained slices, oldest first.
// The returned slices must not be modified.
func (b *SpectrogramBuffer) Snapshot() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, b.size)
	for i := range out {
		out[i] = b.slices[(b.head+i)%len(b.slices)]
	}
	return out
}

// Clear drops every retained slice.
func (b *SpectrogramBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.slices)
	b.head = 0
	b.size = 0
}
