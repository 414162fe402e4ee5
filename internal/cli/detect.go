package cli

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ironsheep/cardsight/internal/imaging"
	"github.com/ironsheep/cardsight/internal/recognizer"
	"github.com/ironsheep/cardsight/internal/server"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type detectOptions struct {
	AnnotateDir string
	Progress    bool
}

// detectRecord is one line of detect output.
type detectRecord struct {
	Path      string                      `json:"path"`
	Detected  bool                        `json:"detected"`
	Result    *recognizer.DetectionResult `json:"result"`
	Error     string                      `json:"error,omitempty"`
	Annotated string                      `json:"annotated,omitempty"`
}

func newDetectCmd(a *app) *cobra.Command {
	var opts detectOptions
	cmd := &cobra.Command{
		Use:   "detect <image>...",
		Short: "Recognise the card in each image and print one JSON line per image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, a, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.AnnotateDir, "annotate", "a", "", "Write annotated PNGs of detected cards to this directory")
	cmd.Flags().BoolVarP(&opts.Progress, "progress", "p", true, "Show a progress bar for more than one image")
	return cmd
}

func runDetect(cmd *cobra.Command, a *app, opts detectOptions, paths []string) error {
	p, err := a.pipeline()
	if err != nil {
		return err
	}
	if opts.AnnotateDir != "" {
		if err := os.MkdirAll(opts.AnnotateDir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.AnnotateDir, err)
		}
	}

	var bar *progressbar.ProgressBar
	if opts.Progress && len(paths) > 1 {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetDescription("Detecting cards"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	failed := 0
	for _, path := range paths {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		rec := detectOne(cmd, a, p, opts, path)
		if rec.Error != "" {
			failed++
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(paths))
	}
	return nil
}

func detectOne(cmd *cobra.Command, a *app, p *recognizer.Pipeline, opts detectOptions, path string) detectRecord {
	rec := detectRecord{Path: path}
	img, err := imaging.Open(path)
	if err != nil {
		rec.Error = err.Error()
		return rec
	}
	res, err := p.Detect(cmd.Context(), img)
	if err != nil {
		a.log.WithError(err).WithField("path", path).Warn("Detection failed")
		rec.Error = err.Error()
		return rec
	}
	rec.Detected, rec.Result = res != nil, res

	if res != nil && opts.AnnotateDir != "" {
		out := filepath.Join(opts.AnnotateDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".annotated.png")
		if err := writeAnnotated(out, imaging.Annotate(img, server.AnnotationFor(res, ""))); err != nil {
			rec.Error = err.Error()
			return rec
		}
		rec.Annotated = out
	}
	return rec
}

func writeAnnotated(path string, img image.Image) error {
	data, err := imaging.PNGBytes(img)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
