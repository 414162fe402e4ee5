package recognizer

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/cardsight/internal/catalog"
	"github.com/ironsheep/cardsight/internal/detection"
	"github.com/ironsheep/cardsight/internal/imaging"
)

// CaptionReader reads the printed caption of a rectified card.
type CaptionReader interface {
	ReadCaption(card image.Image) (string, error)
}

// Detector runs one detection cycle on one image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) (*DetectionResult, error)
}

// PipelineOptions configure a Pipeline. Zero values select defaults.
type PipelineOptions struct {
	Extractor  detection.ExtractorOptions
	CardWidth  int
	CardHeight int
	Palette    detection.Palette
	Confidence ConfidencePolicy

	// Caption, when set, is consulted if the colour names no catalog card.
	Caption CaptionReader
}

// Pipeline is the single-frame recogniser.
type Pipeline struct {
	catalog    *catalog.Catalog
	extractor  *detection.Extractor
	rectifier  *detection.Rectifier
	classifier *detection.Classifier
	confidence ConfidencePolicy
	caption    CaptionReader
	log        logrus.FieldLogger
}

// NewPipeline builds a Pipeline over cat.
func NewPipeline(cat *catalog.Catalog, opts PipelineOptions, log logrus.FieldLogger) *Pipeline {
	if opts.Confidence == nil {
		opts.Confidence = FixedConfidence{Value: DefaultFixedConfidence}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{
		catalog:    cat,
		extractor:  detection.NewExtractor(opts.Extractor),
		rectifier:  detection.NewRectifier(opts.CardWidth, opts.CardHeight),
		classifier: detection.NewClassifier(opts.Palette),
		confidence: opts.Confidence,
		caption:    opts.Caption,
		log:        log,
	}
}

// Extractor returns the outline extractor.
func (p *Pipeline) Extractor() *detection.Extractor { return p.extractor }

// Rectifier returns the perspective rectifier.
func (p *Pipeline) Rectifier() *detection.Rectifier { return p.rectifier }

// Classifier returns the colour classifier.
func (p *Pipeline) Classifier() *detection.Classifier { return p.classifier }

// Catalog returns the card catalog the pipeline matches against.
func (p *Pipeline) Catalog() *catalog.Catalog { return p.catalog }

// Detect recognises the card in img. It returns (nil, nil) when there is no
// card, or when the colour matches no catalog entry and no caption helps.
//
// Errors and panics from the vision stages come back as *ProcessingFault.
// A cancelled ctx aborts between stages with ctx.Err().
func (p *Pipeline) Detect(ctx context.Context, img image.Image) (res *DetectionResult, err error) {
	stage := "extract"
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &ProcessingFault{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	var seq uint64
	if f, ok := img.(*imaging.Frame); ok {
		seq = f.Seq
	}
	log := p.log.WithField("frame", seq)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	quad := p.extractor.Extract(img)
	if quad == nil {
		log.Debug("No card outline")
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stage = "rectify"
	card, err := p.rectifier.Rectify(img, *quad)
	if err != nil {
		return nil, &ProcessingFault{Stage: stage, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stage = "classify"
	cls := p.classifier.Classify(card)

	entry, ok := p.catalog.Lookup(string(cls.Label))
	source := SourceColor
	if !ok && p.caption != nil {
		stage = "caption"
		if entry, ok = p.readCaption(card, log); ok {
			source = SourceCaption
		}
	}
	if !ok {
		log.WithField("label", cls.Label).Debug("Outline found but no catalog card matches")
		return nil, nil
	}

	stage = "confidence"
	confidence := p.confidence.Confidence(Evidence{
		Quad:           *quad,
		Classification: cls,
		Source:         source,
		CardWidth:      p.rectifier.Width,
		CardHeight:     p.rectifier.Height,
	})

	log.WithFields(logrus.Fields{
		"card":       entry.ID,
		"source":     source,
		"confidence": confidence,
	}).Debug("Card detected")

	return &DetectionResult{
		Card:       entry,
		Confidence: confidence,
		Corners:    quad.Corners,
		Source:     source,
		FrameSeq:   seq,
		DetectedAt: time.Now(),
	}, nil
}

func (p *Pipeline) readCaption(card image.Image, log logrus.FieldLogger) (catalog.Card, bool) {
	text, err := p.caption.ReadCaption(card)
	if err != nil {
		log.WithError(err).Debug("Caption read failed")
		return catalog.Card{}, false
	}
	entry, ok := p.catalog.MatchText(text)
	if !ok {
		log.WithField("caption", text).Debug("Caption names no card")
	}
	return entry, ok
}
