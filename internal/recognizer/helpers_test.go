package recognizer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ironsheep/cardsight/internal/camera"
	"github.com/ironsheep/cardsight/internal/imaging"
)

var (
	black  = color.RGBA{0, 0, 0, 255}
	yellow = color.RGBA{255, 200, 0, 255}
	red    = color.RGBA{230, 20, 20, 255}
)

// cardFrame returns a w x h black frame with a solid card filling rect.
func cardFrame(w, h int, rect image.Rectangle, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)
	draw.Draw(img, rect, image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func yellowCard720p() *image.RGBA {
	return cardFrame(1280, 720, image.Rect(100, 100, 400, 500), yellow)
}

// fakeCamera counts open handles and records the maximum ever open at once.
type fakeCamera struct {
	delay time.Duration
	err   error
	frame *imaging.Frame

	opens   atomic.Int32
	open    atomic.Int32
	maxOpen atomic.Int32
}

func newFakeCamera() *fakeCamera {
	return &fakeCamera{frame: imaging.NewFrame(cardFrame(64, 48, image.Rect(0, 0, 0, 0), black), 1, time.Now())}
}

func (c *fakeCamera) Open(ctx context.Context, _ camera.Constraints) (camera.Stream, error) {
	c.opens.Add(1)
	if c.delay > 0 {
		t := time.NewTimer(c.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}

	n := c.open.Add(1)
	for {
		m := c.maxOpen.Load()
		if n <= m || c.maxOpen.CompareAndSwap(m, n) {
			break
		}
	}
	return &fakeStream{cam: c}, nil
}

type fakeStream struct {
	cam  *fakeCamera
	once sync.Once
}

func (s *fakeStream) CurrentFrame() *imaging.Frame { return s.cam.frame }

func (s *fakeStream) Close() error {
	s.once.Do(func() { s.cam.open.Add(-1) })
	return nil
}

// detectorFunc adapts a function to Detector.
type detectorFunc func(ctx context.Context, img image.Image) (*DetectionResult, error)

func (f detectorFunc) Detect(ctx context.Context, img image.Image) (*DetectionResult, error) {
	return f(ctx, img)
}

// recorder is a Subscriber that keeps everything it receives.
type recorder struct {
	mu      sync.Mutex
	results []*DetectionResult
}

func (r *recorder) receive(res *DetectionResult) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func (r *recorder) snapshot() []*DetectionResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*DetectionResult(nil), r.results...)
}

var errBoom = errors.New("boom")
