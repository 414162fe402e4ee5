package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ironsheep/cardsight/internal/broadcast"
	"github.com/ironsheep/cardsight/internal/camera"
	"github.com/ironsheep/cardsight/internal/recognizer"
)

type watchOptions struct {
	Replay   []string
	FPS      float64
	Loop     bool
	Listen   string
	Duration time.Duration
}

func newWatchCmd(a *app) *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the detection loop on the camera and print each change of card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd.OutOrStdout(), a, opts)
		},
	}
	cmd.Flags().StringSliceVarP(&opts.Replay, "replay", "r", nil, "Play these images instead of opening the camera")
	cmd.Flags().Float64Var(&opts.FPS, "fps", 5, "Replay frame rate")
	cmd.Flags().BoolVar(&opts.Loop, "loop", false, "Restart the replay after the last image")
	cmd.Flags().StringVarP(&opts.Listen, "listen", "l", "", "Serve detections over websocket at ADDR/detections (e.g. :8080)")
	cmd.Flags().DurationVarP(&opts.Duration, "duration", "d", 0, "Stop after this long (0 runs until interrupted)")
	return cmd
}

func runWatch(ctx context.Context, out io.Writer, a *app, opts watchOptions) error {
	p, err := a.pipeline()
	if err != nil {
		return err
	}
	cam, err := a.camera(opts)
	if err != nil {
		return err
	}
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	loop := recognizer.NewLoop(p, a.cfg.LoopOptions(), a.log)
	defer loop.Stop()

	unsubscribe := loop.Subscribe(changePrinter(out))
	defer unsubscribe()

	if opts.Listen != "" {
		hub := broadcast.NewHub(a.log)
		defer hub.Close()
		defer loop.Subscribe(hub.Publish)()

		srv, err := serveHub(a.log, opts.Listen, hub)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := loop.Initialize(ctx, cam); err != nil {
		return fmt.Errorf("failed to start detection: %w", err)
	}
	a.log.WithField("session", loop.SessionID()).Info("Watching for cards")

	<-ctx.Done()
	loop.Stop()

	st := loop.Stats()
	a.log.WithFields(logrus.Fields{
		"cycles":     st.Cycles,
		"detections": st.Detections,
		"faults":     st.Faults,
		"skipped":    st.SkippedTicks,
		"stale":      st.StaleDiscarded,
	}).Info("Detection stopped")
	return nil
}

func (a *app) camera(opts watchOptions) (camera.Camera, error) {
	if len(opts.Replay) > 0 {
		r, err := camera.ReplayFiles(opts.FPS, opts.Replay...)
		if err != nil {
			return nil, err
		}
		r.Loop = opts.Loop
		r.Log = a.log
		return r, nil
	}
	if !camera.CaptureSupported {
		a.log.Warn("Built without gocv; camera capture is unavailable, use --replay")
	}
	return camera.NewDevice(a.log), nil
}

// changePrinter writes one line each time the recognised card changes,
// including to and from no card.
func changePrinter(out io.Writer) recognizer.Subscriber {
	var (
		mu    sync.Mutex
		last  string
		first = true
	)
	return func(res *recognizer.DetectionResult) {
		id := ""
		if res != nil {
			id = res.Card.ID
		}

		mu.Lock()
		defer mu.Unlock()
		if !first && id == last {
			return
		}
		first, last = false, id

		if res == nil {
			fmt.Fprintf(out, "%s  no card\n", time.Now().Format(time.TimeOnly))
			return
		}
		fmt.Fprintf(out, "%s  %-8s %3.0f%%  %s (%s)\n",
			res.DetectedAt.Format(time.TimeOnly), res.Card.Emotion, res.Confidence*100, res.Card.AnimalType, res.Source)
	}
}

func serveHub(log logrus.FieldLogger, addr string, hub *broadcast.Hub) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/detections", hub)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	case <-time.After(100 * time.Millisecond):
	}
	log.WithField("addr", addr).Info("Streaming detections at /detections")
	return srv, nil
}
