package ir

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// Element constrains the element types a flat buffer may hold.
type Element interface {
	float32 | float64
}

// ElementSize returns the width in bytes of one T.
func ElementSize[T Element]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// buffer is the owning handle shared by FloatBuffer and DoubleBuffer.
//
// INVARIANTS:
//   - count == len(data) until Release, 0 afterwards
//   - Release takes effect exactly once, regardless of how often it is called
//
// Release and Released may race with each other. Data must not race with Release.
type buffer[T Element] struct {
	data   []T
	path   string
	ledger *Ledger

	once     sync.Once
	released atomic.Bool
}

func (b *buffer[T]) init(path string, data []T, l *Ledger) {
	b.data = data
	b.path = path
	b.ledger = l
	l.acquire()
}

// Data returns the backing slice. Handlers write results in place.
// Returns nil after Release.
func (b *buffer[T]) Data() []T {
	return b.data
}

// Len returns the element count recovered at decode time.
func (b *buffer[T]) Len() int {
	return len(b.data)
}

// Path returns the file the buffer was decoded from.
func (b *buffer[T]) Path() string {
	return b.path
}

// Released reports whether Release has run.
func (b *buffer[T]) Released() bool {
	return b.released.Load()
}

// Release drops the backing memory and returns the handle to the ledger.
func (b *buffer[T]) Release() {
	b.once.Do(func() {
		b.data = nil
		b.ledger.release()
		b.ledger = nil
		b.released.Store(true)
	})
}

// Ledger counts outstanding buffer handles.
//
// Every decoded buffer acquires one slot and gives it back on Release.
// A dispatch is resource-safe when Outstanding() is unchanged across it.
//
// Thread-safety: Ledger is safe for concurrent use (atomic operations).
// A nil *Ledger is valid and counts nothing.
type Ledger struct {
	live     atomic.Int64
	acquired atomic.Int64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) acquire() {
	if l == nil {
		return
	}
	l.live.Add(1)
	l.acquired.Add(1)
}

func (l *Ledger) release() {
	if l == nil {
		return
	}
	l.live.Add(-1)
}

// Outstanding returns the number of handles acquired but not yet released.
func (l *Ledger) Outstanding() int64 {
	if l == nil {
		return 0
	}
	return l.live.Load()
}

// Acquired returns the total number of handles ever acquired.
func (l *Ledger) Acquired() int64 {
	if l == nil {
		return 0
	}
	return l.acquired.Load()
}
