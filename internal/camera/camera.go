// Package camera supplies live frames to the recognizer.
//
// A Camera opens a Stream; the Stream keeps only the most recent decoded frame
// and hands it out on demand. Older frames are overwritten, never queued.
package camera

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ironsheep/cardsight/internal/imaging"
)

// ErrUnavailable is returned when no usable camera could be opened: no device,
// permission denied, capture support missing from the build, or a timeout.
var ErrUnavailable = errors.New("camera unavailable")

// Facing modes understood by Constraints.FacingMode.
const (
	FacingEnvironment = "environment"
	FacingUser        = "user"
)

// Constraints describe the stream the caller would like. Devices treat Width,
// Height and FrameRate as preferences.
type Constraints struct {
	// DeviceID selects a device. An integer string is a device index; anything
	// else is passed to the backend as a path or URL. Empty selects index 0.
	DeviceID string

	FacingMode string
	Width      int
	Height     int
	FrameRate  float64

	// Timeout bounds the whole Open call. Zero means no bound beyond ctx.
	Timeout time.Duration
}

// DefaultConstraints requests the rear camera at 1280x720.
func DefaultConstraints() Constraints {
	return Constraints{
		FacingMode: FacingEnvironment,
		Width:      1280,
		Height:     720,
		FrameRate:  30,
		Timeout:    10 * time.Second,
	}
}

// Stream is an open camera.
type Stream interface {
	// CurrentFrame returns the latest frame, or nil before the first one
	// arrives or after Close. Safe to call concurrently with Close.
	CurrentFrame() *imaging.Frame

	// Close releases the device. Calling it more than once is harmless.
	Close() error
}

// Camera opens streams.
type Camera interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// mailbox is a one-slot, latest-wins frame holder shared between a producer
// goroutine and any number of readers.
type mailbox struct {
	frame  atomic.Pointer[imaging.Frame]
	unread atomic.Bool
	seq    atomic.Uint64
	drops  atomic.Uint64
}

// publish stores f as the current frame. A frame replaced before anyone
// read it counts as dropped.
func (m *mailbox) publish(f *imaging.Frame) {
	if m.frame.Swap(f) != nil && m.unread.Load() {
		m.drops.Add(1)
	}
	m.unread.Store(true)
}

func (m *mailbox) nextSeq() uint64 { return m.seq.Add(1) }

func (m *mailbox) current() *imaging.Frame {
	f := m.frame.Load()
	if f != nil {
		m.unread.Store(false)
	}
	return f
}

func (m *mailbox) clear() { m.frame.Store(nil) }

// Dropped reports how many frames were overwritten without being read.
func (m *mailbox) Dropped() uint64 { return m.drops.Load() }

// openTimeout derives the context used for device negotiation.
func openTimeout(ctx context.Context, c Constraints) (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(ctx, c.Timeout)
	}
	return context.WithCancel(ctx)
}
