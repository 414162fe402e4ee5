// Package cli is the cardsight command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ironsheep/cardsight/internal/caption"
	"github.com/ironsheep/cardsight/internal/catalog"
	"github.com/ironsheep/cardsight/internal/config"
	"github.com/ironsheep/cardsight/internal/logging"
	"github.com/ironsheep/cardsight/internal/recognizer"
)

// BuildInfo is set by the linker in cmd/cardsight.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// app carries what PersistentPreRunE prepares for the subcommands.
type app struct {
	info    BuildInfo
	envFile string
	cfg     config.Config
	log     *logrus.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd(info BuildInfo) *cobra.Command {
	a := &app{info: info}

	root := &cobra.Command{
		Use:           "cardsight",
		Short:         "Emotion card recognition from camera frames",
		Version:       info.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.envFile)
			if err != nil {
				return err
			}
			log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, log
			log.WithFields(logrus.Fields{
				"version": info.Version,
				"commit":  info.GitCommit,
				"built":   info.BuildTime,
			}).Debug("Starting cardsight")
			return nil
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "Read settings from this .env file (default: ./.env when present)")

	root.AddCommand(
		newDetectCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newCatalogCmd(a),
	)
	return root
}

// Execute runs the CLI until the command finishes or SIGINT/SIGTERM arrives.
func Execute(info BuildInfo) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(info).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// pipeline builds the single-frame recogniser from the loaded config.
func (a *app) pipeline() (*recognizer.Pipeline, error) {
	cat, err := catalog.Default()
	if err != nil {
		return nil, err
	}
	opts, err := a.cfg.PipelineOptions()
	if err != nil {
		return nil, err
	}
	if a.cfg.CaptionOCR {
		opts.Caption = a.captionReader()
	}
	return recognizer.NewPipeline(cat, opts, a.log), nil
}

// captionReader builds the OCR fallback and reports the linked Tesseract.
func (a *app) captionReader() *caption.Reader {
	info := caption.GetInfo()
	log := a.log.WithFields(logrus.Fields{
		"language":  a.cfg.CaptionLanguage,
		"backend":   info.Backend,
		"tesseract": info.Version,
	})
	if info.Available {
		log.Debug("Caption fallback enabled")
	} else {
		log.Warn("Caption fallback enabled but Tesseract did not report a version")
	}
	return caption.NewReader(a.cfg.CaptionLanguage)
}
