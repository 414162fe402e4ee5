package camera

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/cardsight/internal/imaging"
)

// Replay is a Camera that plays back still images at a fixed rate. Once the
// last image has been shown it stays current, unless Loop is set.
type Replay struct {
	Images []image.Image
	FPS    float64
	Loop   bool

	// OpenDelay simulates device negotiation. Open honours ctx and
	// Constraints.Timeout while waiting.
	OpenDelay time.Duration

	Log logrus.FieldLogger
}

// ReplayFiles loads each path and returns a Replay playing them in order.
func ReplayFiles(fps float64, paths ...string) (*Replay, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no replay images given")
	}
	imgs := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		img, err := imaging.Open(p)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", p, err)
		}
		imgs = append(imgs, img)
	}
	return &Replay{Images: imgs, FPS: fps}, nil
}

// Open starts playback. The first image is current as soon as Open returns.
func (r *Replay) Open(ctx context.Context, c Constraints) (Stream, error) {
	if len(r.Images) == 0 {
		return nil, fmt.Errorf("%w: replay has no images", ErrUnavailable)
	}

	ctx, cancel := openTimeout(ctx, c)
	defer cancel()
	if r.OpenDelay > 0 {
		t := time.NewTimer(r.OpenDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
	} else if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	fps := r.FPS
	if fps <= 0 {
		fps = 30
	}
	log := r.Log
	if log == nil {
		log = NewDevice(nil).Log
	}

	s := &replayStream{
		images:   r.Images,
		loop:     r.Loop,
		interval: time.Duration(float64(time.Second) / fps),
		log:      log.WithField("source", "replay"),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.show(0)
	go s.run()
	return s, nil
}

type replayStream struct {
	mailbox
	images   []image.Image
	loop     bool
	interval time.Duration
	log      logrus.FieldLogger

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (s *replayStream) show(i int) {
	s.publish(imaging.NewFrame(s.images[i], s.nextSeq(), time.Now()))
}

func (s *replayStream) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	next := 1
	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
		}
		if next >= len(s.images) {
			if !s.loop {
				<-s.quit
				return
			}
			next = 0
		}
		s.show(next)
		next++
	}
}

func (s *replayStream) CurrentFrame() *imaging.Frame { return s.current() }

func (s *replayStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
		s.clear()
		s.log.WithField("frames", s.seq.Load()).Debug("Replay closed")
	})
	return nil
}
