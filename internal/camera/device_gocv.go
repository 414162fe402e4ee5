//go:build gocv

package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ironsheep/cardsight/internal/imaging"
)

// CaptureSupported reports whether this build can open real devices.
const CaptureSupported = true

// Open starts capturing from the configured device.
//
// OpenVideoCapture can block for seconds on some drivers. If ctx or the
// constraint timeout expires first, Open returns ErrUnavailable and the late
// handle is released in the background.
func (d *Device) Open(ctx context.Context, c Constraints) (Stream, error) {
	ctx, cancel := openTimeout(ctx, c)
	defer cancel()

	type opened struct {
		vc  *gocv.VideoCapture
		err error
	}
	done := make(chan opened, 1)
	go func() {
		vc, err := gocv.OpenVideoCapture(deviceSource(c.DeviceID))
		if err == nil && !vc.IsOpened() {
			vc.Close()
			vc, err = nil, fmt.Errorf("device %q did not open", c.DeviceID)
		}
		done <- opened{vc, err}
	}()

	var vc *gocv.VideoCapture
	select {
	case o := <-done:
		if o.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, o.err)
		}
		vc = o.vc
	case <-ctx.Done():
		go func() {
			if o := <-done; o.vc != nil {
				o.vc.Close()
			}
		}()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}

	if c.Width > 0 && c.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	}
	if c.FrameRate > 0 {
		vc.Set(gocv.VideoCaptureFPS, c.FrameRate)
	}

	s := &deviceStream{
		vc:   vc,
		log:  d.Log.WithField("device", c.DeviceID),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	s.log.WithFields(logrus.Fields{
		"width":  vc.Get(gocv.VideoCaptureFrameWidth),
		"height": vc.Get(gocv.VideoCaptureFrameHeight),
	}).Info("Camera opened")

	go s.run()
	return s, nil
}

type deviceStream struct {
	mailbox
	vc        *gocv.VideoCapture
	log       logrus.FieldLogger
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func (s *deviceStream) run() {
	defer close(s.done)

	mat := gocv.NewMat()
	defer mat.Close()

	misses := 0
	for {
		select {
		case <-s.quit:
			return
		default:
		}

		if !s.vc.Read(&mat) || mat.Empty() {
			misses++
			if misses == 1 || misses%100 == 0 {
				s.log.WithField("misses", misses).Debug("Empty camera read")
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		misses = 0

		img, err := mat.ToImage()
		if err != nil {
			s.log.WithError(err).Warn("Failed to convert camera frame")
			continue
		}
		s.publish(imaging.NewFrame(img, s.nextSeq(), time.Now()))
	}
}

func (s *deviceStream) CurrentFrame() *imaging.Frame { return s.current() }

// Close stops the reader and releases the device. It waits for an in-progress
// Read to return so the handle is never closed underneath it.
func (s *deviceStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
		s.clear()
		s.closeErr = s.vc.Close()
		s.log.WithField("dropped", s.Dropped()).Info("Camera closed")
	})
	return s.closeErr
}
