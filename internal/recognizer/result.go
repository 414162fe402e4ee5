package recognizer

import (
	"fmt"
	"time"

	"github.com/ironsheep/cardsight/internal/catalog"
	"github.com/ironsheep/cardsight/internal/detection"
)

// Source records how the card was identified.
type Source string

const (
	SourceColor   Source = "color"
	SourceCaption Source = "caption"
)

// DetectionResult describes a recognised card in one frame. A nil
// *DetectionResult means no card was found.
type DetectionResult struct {
	Card       catalog.Card       `json:"card"`
	Confidence float64            `json:"confidence"`
	Corners    [4]detection.Point `json:"corners"`
	Source     Source             `json:"source"`
	FrameSeq   uint64             `json:"frame_seq"`
	DetectedAt time.Time          `json:"detected_at"`
}

// ProcessingFault wraps an error or panic raised inside one detection cycle.
// The loop logs it and publishes nil for that cycle.
type ProcessingFault struct {
	Stage string
	Err   error
}

func (f *ProcessingFault) Error() string {
	return fmt.Sprintf("%s stage failed: %v", f.Stage, f.Err)
}

func (f *ProcessingFault) Unwrap() error { return f.Err }
