package recognizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/cardsight/internal/camera"
	"github.com/ironsheep/cardsight/internal/imaging"
)

// DefaultInterval is the detection cadence when none is configured.
const DefaultInterval = 100 * time.Millisecond

// ErrSuperseded is returned by Initialize when Stop or another Initialize ran
// while the camera was opening.
var ErrSuperseded = errors.New("initialization superseded")

// State is the lifecycle state of a Loop.
type State int32

const (
	StateIdle State = iota
	StateInitializing
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// LoopOptions configure a Loop.
type LoopOptions struct {
	Interval    time.Duration
	Constraints camera.Constraints
}

// Stats are cumulative counters over the Loop's lifetime.
type Stats struct {
	Cycles         uint64 `json:"cycles"`
	Detections     uint64 `json:"detections"`
	Faults         uint64 `json:"faults"`
	SkippedTicks   uint64 `json:"skipped_ticks"`
	StaleDiscarded uint64 `json:"stale_discarded"`
}

// Subscriber receives every published outcome; nil means no card. It runs
// on the loop's goroutine and must not call Stop or Initialize.
type Subscriber func(*DetectionResult)

// Loop runs a Detector continuously against one camera.
//
// All methods are safe for concurrent use. At most one camera stream is open
// at any time, across overlapping Initialize and Stop calls.
type Loop struct {
	detector Detector
	opts     LoopOptions
	log      logrus.FieldLogger

	// slot holds a token while a camera stream is open.
	slot chan struct{}

	mu      sync.Mutex
	state   State
	epoch   uint64
	session string
	cancel  context.CancelFunc
	stream  camera.Stream

	// pubMu is held for the whole of a delivery.
	pubMu   sync.Mutex
	latest  atomic.Pointer[DetectionResult]
	subMu   sync.Mutex
	subs    []subscription
	nextSub int

	cycles     atomic.Uint64
	detections atomic.Uint64
	faults     atomic.Uint64
	skipped    atomic.Uint64
	stale      atomic.Uint64
}

type subscription struct {
	id int
	fn Subscriber
}

type job struct {
	frame *imaging.Frame
	epoch uint64
}

type reply struct {
	epoch  uint64
	result *DetectionResult
}

// NewLoop returns an idle Loop.
func NewLoop(d Detector, opts LoopOptions, log logrus.FieldLogger) *Loop {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Loop{
		detector: d,
		opts:     opts,
		log:      log,
		slot:     make(chan struct{}, 1),
	}
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// SessionID identifies the current or most recent session.
func (l *Loop) SessionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

// Latest returns the most recently published outcome.
func (l *Loop) Latest() *DetectionResult { return l.latest.Load() }

// Stats returns a snapshot of the loop counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Cycles:         l.cycles.Load(),
		Detections:     l.detections.Load(),
		Faults:         l.faults.Load(),
		SkippedTicks:   l.skipped.Load(),
		StaleDiscarded: l.stale.Load(),
	}
}

// Subscribe registers fn and returns a function that removes it.
func (l *Loop) Subscribe(fn Subscriber) (unsubscribe func()) {
	l.subMu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs = append(l.subs, subscription{id: id, fn: fn})
	l.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.subMu.Lock()
			defer l.subMu.Unlock()
			for i, s := range l.subs {
				if s.id == id {
					l.subs = append(l.subs[:i:i], l.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Initialize ends any current session, opens cam and starts detecting.
//
// On failure the loop is Idle and the error wraps camera.ErrUnavailable. If
// Stop or another Initialize runs while the camera is opening, the new
// stream is closed and ErrSuperseded is returned.
func (l *Loop) Initialize(ctx context.Context, cam camera.Camera) error {
	sessCtx, cancel := context.WithCancel(context.Background())
	session := uuid.NewString()

	l.mu.Lock()
	old := l.haltLocked()
	epoch := l.epoch
	l.state = StateInitializing
	l.session = session
	l.cancel = cancel
	l.mu.Unlock()
	l.finishHalt(old)
	l.latest.Store(nil)

	log := l.log.WithField("session", session)
	log.Info("Opening camera")

	stream, err := l.open(ctx, sessCtx, cam)
	if err != nil {
		l.mu.Lock()
		superseded := l.epoch != epoch
		if !superseded {
			l.state = StateIdle
			l.cancel = nil
		}
		l.mu.Unlock()
		cancel()

		if superseded {
			return ErrSuperseded
		}
		log.WithError(err).Warn("Camera unavailable")
		return err
	}

	l.mu.Lock()
	if l.epoch != epoch {
		l.mu.Unlock()
		stream.Close()
		cancel()
		log.Debug("Initialization superseded")
		return ErrSuperseded
	}
	l.stream = stream
	l.state = StateRunning
	l.mu.Unlock()

	go l.drive(sessCtx, stream, epoch, log)
	log.WithField("interval", l.opts.Interval).Info("Detection loop running")
	return nil
}

// open takes the camera slot and opens cam. The returned stream gives the
// slot back when closed.
func (l *Loop) open(ctx, sessCtx context.Context, cam camera.Camera) (camera.Stream, error) {
	openCtx, openCancel := context.WithCancel(sessCtx)
	defer openCancel()
	stop := context.AfterFunc(ctx, openCancel)
	defer stop()

	select {
	case l.slot <- struct{}{}:
	case <-openCtx.Done():
		return nil, fmt.Errorf("%w: %v", camera.ErrUnavailable, openCtx.Err())
	}

	stream, err := cam.Open(openCtx, l.opts.Constraints)
	if err != nil {
		<-l.slot
		if !errors.Is(err, camera.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", camera.ErrUnavailable, err)
		}
		return nil, err
	}
	return &ownedStream{Stream: stream, slot: l.slot}, nil
}

// Stop ends the session. It is safe in any state, returns without waiting
// for an in-flight cycle, and no result is published after it returns.
func (l *Loop) Stop() {
	l.mu.Lock()
	old := l.haltLocked()
	prev := l.state
	l.state = StateStopped
	session := l.session
	l.mu.Unlock()
	l.finishHalt(old)

	if prev != StateStopped {
		l.log.WithField("session", session).WithField("stats", l.Stats()).Info("Detection loop stopped")
	}
}

// haltLocked invalidates the current session and detaches its stream.
// l.mu must be held.
func (l *Loop) haltLocked() camera.Stream {
	l.epoch++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	s := l.stream
	l.stream = nil
	return s
}

// finishHalt closes the detached stream and waits out any delivery that
// passed the epoch check before the halt.
func (l *Loop) finishHalt(s camera.Stream) {
	if s != nil {
		if err := s.Close(); err != nil {
			l.log.WithError(err).Warn("Failed to close camera")
		}
	}
	l.pubMu.Lock()
	l.pubMu.Unlock() //nolint:staticcheck
}

// drive ticks at the configured interval and feeds the worker. Only one job
// is in flight; ticks that arrive meanwhile are skipped.
func (l *Loop) drive(ctx context.Context, stream camera.Stream, epoch uint64, log logrus.FieldLogger) {
	jobs := make(chan job)
	replies := make(chan reply, 1)
	go l.work(ctx, jobs, replies, log)

	ticker := time.NewTicker(l.opts.Interval)
	defer ticker.Stop()

	inFlight := false
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-replies:
			inFlight = false
			l.publish(r, log)
		case <-ticker.C:
			if inFlight {
				l.skipped.Add(1)
				continue
			}
			f := stream.CurrentFrame()
			if f == nil {
				continue
			}
			select {
			case jobs <- job{frame: f, epoch: epoch}:
				inFlight = true
			case <-ctx.Done():
				return
			}
		}
	}
}

func (l *Loop) work(ctx context.Context, jobs <-chan job, replies chan<- reply, log logrus.FieldLogger) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-jobs:
			res, ok := l.cycle(ctx, j.frame, log)
			if !ok {
				l.stale.Add(1)
				continue
			}
			// replies has room: the driver sends no new job until it reads this.
			replies <- reply{epoch: j.epoch, result: res}
		}
	}
}

// cycle runs one detection. ok is false when the session ended mid-cycle.
func (l *Loop) cycle(ctx context.Context, f *imaging.Frame, log logrus.FieldLogger) (res *DetectionResult, ok bool) {
	l.cycles.Add(1)

	res, err := l.detect(ctx, f)
	if ctx.Err() != nil {
		return nil, false
	}
	if err != nil {
		l.faults.Add(1)
		entry := log.WithError(err).WithField("frame", f.Seq)
		var fault *ProcessingFault
		if errors.As(err, &fault) {
			entry = entry.WithField("stage", fault.Stage)
		}
		entry.Warn("Detection cycle failed")
		return nil, true
	}
	if res != nil {
		l.detections.Add(1)
	}
	return res, true
}

func (l *Loop) detect(ctx context.Context, f *imaging.Frame) (res *DetectionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &ProcessingFault{Stage: "detect", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return l.detector.Detect(ctx, f)
}

func (l *Loop) publish(r reply, log logrus.FieldLogger) {
	l.pubMu.Lock()
	defer l.pubMu.Unlock()

	l.mu.Lock()
	current := l.epoch == r.epoch && l.state == StateRunning
	l.mu.Unlock()
	if !current {
		l.stale.Add(1)
		return
	}

	l.latest.Store(r.result)

	l.subMu.Lock()
	subs := make([]subscription, len(l.subs))
	copy(subs, l.subs)
	l.subMu.Unlock()

	for _, s := range subs {
		deliver(s.fn, r.result, log)
	}
}

func deliver(fn Subscriber, res *DetectionResult, log logrus.FieldLogger) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Subscriber panicked")
		}
	}()
	fn(res)
}

// ownedStream returns the loop's camera slot when closed.
type ownedStream struct {
	camera.Stream
	slot chan struct{}
	once sync.Once
	err  error
}

func (s *ownedStream) Close() error {
	s.once.Do(func() {
		s.err = s.Stream.Close()
		<-s.slot
	})
	return s.err
}
