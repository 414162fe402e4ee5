// Package config loads cardsight settings from an optional .env file and
// CARDSIGHT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/ironsheep/cardsight/internal/camera"
	"github.com/ironsheep/cardsight/internal/detection"
	"github.com/ironsheep/cardsight/internal/recognizer"
)

// Prefix is prepended to every environment key.
const Prefix = "CARDSIGHT_"

// Config is the validated runtime configuration.
type Config struct {
	LogLevel string `validate:"oneof=debug info warn error"`
	LogFile  string

	CameraDevice  string
	CameraWidth   int           `validate:"gte=0"`
	CameraHeight  int           `validate:"gte=0"`
	CameraTimeout time.Duration `validate:"gte=0"`

	DetectInterval time.Duration `validate:"gt=0"`

	MinAreaFraction float64 `validate:"gt=0,lt=1"`
	BlockSize       int     `validate:"gte=3,odd"`
	// ThresholdOffset must be positive: the extractor treats zero as unset.
	ThresholdOffset float64 `validate:"gt=0"`
	EpsilonFraction float64 `validate:"gt=0,lt=1"`
	ProcessingWidth int     `validate:"gte=0"`

	CardWidth  int `validate:"gt=0"`
	CardHeight int `validate:"gt=0"`

	ConfidencePolicy string  `validate:"oneof=fixed margin geometry"`
	FixedConfidence  float64 `validate:"gt=0,lte=1"`

	CaptionOCR      bool
	CaptionLanguage string `validate:"required_if=CaptionOCR true"`
}

// Default returns the built-in configuration.
func Default() Config {
	ex := detection.DefaultExtractorOptions()
	cam := camera.DefaultConstraints()
	return Config{
		LogLevel:         "info",
		CameraWidth:      cam.Width,
		CameraHeight:     cam.Height,
		CameraTimeout:    cam.Timeout,
		DetectInterval:   recognizer.DefaultInterval,
		MinAreaFraction:  ex.MinAreaFraction,
		BlockSize:        ex.BlockSize,
		ThresholdOffset:  ex.Offset,
		EpsilonFraction:  ex.EpsilonFraction,
		ProcessingWidth:  640,
		CardWidth:        detection.DefaultCardWidth,
		CardHeight:       detection.DefaultCardHeight,
		ConfidencePolicy: "fixed",
		FixedConfidence:  recognizer.DefaultFixedConfidence,
		CaptionLanguage:  "eng",
	}
}

// Load reads envFile (when non-empty) into the process environment, applies
// CARDSIGHT_* variables over the defaults and validates the result. A missing
// default ".env" is not an error; a missing explicit file is.
func Load(envFile string) (Config, error) {
	switch {
	case envFile != "":
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	default:
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg, err := FromEnv(os.LookupEnv, Default())
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv overlays variables found by lookup onto base. It reports the first
// value that does not parse; it does not validate ranges.
func FromEnv(lookup func(string) (string, bool), base Config) (Config, error) {
	p := parser{lookup: lookup}
	cfg := base

	p.str("LOG_LEVEL", &cfg.LogLevel)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	p.str("LOG_FILE", &cfg.LogFile)
	p.str("CAMERA_DEVICE", &cfg.CameraDevice)
	p.int("CAMERA_WIDTH", &cfg.CameraWidth)
	p.int("CAMERA_HEIGHT", &cfg.CameraHeight)
	p.duration("CAMERA_TIMEOUT", &cfg.CameraTimeout)
	p.duration("DETECT_INTERVAL", &cfg.DetectInterval)
	p.float("MIN_AREA_FRACTION", &cfg.MinAreaFraction)
	p.int("BLOCK_SIZE", &cfg.BlockSize)
	p.float("THRESHOLD_OFFSET", &cfg.ThresholdOffset)
	p.float("EPSILON_FRACTION", &cfg.EpsilonFraction)
	p.int("PROCESSING_WIDTH", &cfg.ProcessingWidth)
	p.int("CARD_WIDTH", &cfg.CardWidth)
	p.int("CARD_HEIGHT", &cfg.CardHeight)
	p.str("CONFIDENCE_POLICY", &cfg.ConfidencePolicy)
	cfg.ConfidencePolicy = strings.ToLower(cfg.ConfidencePolicy)
	p.float("FIXED_CONFIDENCE", &cfg.FixedConfidence)
	p.bool("CAPTION_OCR", &cfg.CaptionOCR)
	p.str("CAPTION_LANGUAGE", &cfg.CaptionLanguage)

	if p.err != nil {
		return Config{}, p.err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("odd", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%2 == 1
	})
	return v
}

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// PipelineOptions converts the detection settings.
func (c Config) PipelineOptions() (recognizer.PipelineOptions, error) {
	policy, err := recognizer.ParseConfidencePolicy(c.ConfidencePolicy, c.FixedConfidence)
	if err != nil {
		return recognizer.PipelineOptions{}, err
	}
	return recognizer.PipelineOptions{
		Extractor: detection.ExtractorOptions{
			BlockSize:       c.BlockSize,
			Offset:          c.ThresholdOffset,
			EpsilonFraction: c.EpsilonFraction,
			MinAreaFraction: c.MinAreaFraction,
			ProcessingWidth: c.ProcessingWidth,
		},
		CardWidth:  c.CardWidth,
		CardHeight: c.CardHeight,
		Confidence: policy,
	}, nil
}

// LoopOptions converts the camera and timing settings.
func (c Config) LoopOptions() recognizer.LoopOptions {
	cons := camera.DefaultConstraints()
	cons.DeviceID = c.CameraDevice
	cons.Width = c.CameraWidth
	cons.Height = c.CameraHeight
	cons.Timeout = c.CameraTimeout
	return recognizer.LoopOptions{
		Interval:    c.DetectInterval,
		Constraints: cons,
	}
}

type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) get(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v, ok := p.lookup(Prefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) fail(key, v string, err error) {
	p.err = fmt.Errorf("invalid %s%s=%q: %w", Prefix, key, v, err)
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) int(key string, dst *int) {
	if v, ok := p.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (p *parser) float(key string, dst *float64) {
	if v, ok := p.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (p *parser) bool(key string, dst *bool) {
	if v, ok := p.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = b
	}
}

// duration accepts Go durations ("150ms") or a bare number of milliseconds.
func (p *parser) duration(key string, dst *time.Duration) {
	if v, ok := p.get(key); ok {
		if ms, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(ms) * time.Millisecond
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = d
	}
}
