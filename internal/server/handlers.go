package server

import (
	"context"
	"fmt"
	"image"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/ironsheep/cardsight/internal/catalog"
	"github.com/ironsheep/cardsight/internal/detection"
	"github.com/ironsheep/cardsight/internal/imaging"
	"github.com/ironsheep/cardsight/internal/recognizer"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "card_detect", "card_rectify").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments jsoniter.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.WithError(err).WithField("tool", params.Name).Debug("Tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args jsoniter.RawMessage) (interface{}, error) {
	switch name {
	case "card_detect":
		return s.handleCardDetect(ctx, args)
	case "card_extract":
		return s.handleCardExtract(args)
	case "card_rectify":
		return s.handleCardRectify(args)
	case "card_classify":
		return s.handleCardClassify(args)
	case "card_sample_color":
		return s.handleCardSampleColor(args)
	case "card_annotate":
		return s.handleCardAnnotate(ctx, args)
	case "card_catalog":
		return s.handleCardCatalog()
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type pathArgs struct {
	Path string `json:"path"`
}

// cornerArgs lets a caller supply the card outline instead of detecting it.
type cornerArgs struct {
	Path    string            `json:"path"`
	Corners []detection.Point `json:"corners,omitempty"`
	Scale   float64           `json:"scale"`
}

func decodeArgs(args jsoniter.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return fmt.Errorf("missing arguments")
	}
	return json.Unmarshal(args, v)
}

func (s *Server) load(path string) (image.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return s.cache.Load(path)
}

// outline returns the supplied corners as a quadrilateral, or extracts one.
func (s *Server) outline(img image.Image, corners []detection.Point) (*detection.Quadrilateral, error) {
	if len(corners) > 0 {
		return detection.NewQuadrilateral(corners)
	}
	q := s.pipeline.Extractor().Extract(img)
	if q == nil {
		return nil, fmt.Errorf("no card outline found")
	}
	return q, nil
}

// === Detection ===

// DetectResponse is the card_detect result. Result is null when no card was
// recognised.
type DetectResponse struct {
	Detected bool                        `json:"detected"`
	Result   *recognizer.DetectionResult `json:"result"`
}

func (s *Server) handleCardDetect(ctx context.Context, args jsoniter.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := s.pipeline.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	return &DetectResponse{Detected: res != nil, Result: res}, nil
}

// ExtractResponse lists every outline candidate, best first.
type ExtractResponse struct {
	Count      int                `json:"count"`
	Candidates []ExtractCandidate `json:"candidates"`
}

// ExtractCandidate is one outline with its shape measurements.
type ExtractCandidate struct {
	detection.Candidate
	AspectRatio float64 `json:"aspect_ratio"`
	Squareness  float64 `json:"squareness"`
}

func (s *Server) handleCardExtract(args jsoniter.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}

	candidates := s.pipeline.Extractor().Candidates(img)
	out := &ExtractResponse{Count: len(candidates), Candidates: make([]ExtractCandidate, len(candidates))}
	for i, c := range candidates {
		out.Candidates[i] = ExtractCandidate{
			Candidate:   c,
			AspectRatio: c.Quad.AspectRatio(),
			Squareness:  c.Quad.Squareness(),
		}
	}
	return out, nil
}

// RectifyResponse is the upright card image plus the outline used.
type RectifyResponse struct {
	*imaging.EncodedImage
	Corners [4]detection.Point `json:"corners"`
}

func (s *Server) handleCardRectify(args jsoniter.RawMessage) (interface{}, error) {
	var a cornerArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	q, err := s.outline(img, a.Corners)
	if err != nil {
		return nil, err
	}
	card, err := s.pipeline.Rectifier().Rectify(img, *q)
	if err != nil {
		return nil, err
	}
	enc, err := imaging.EncodePNG(card, a.Scale)
	if err != nil {
		return nil, err
	}
	return &RectifyResponse{EncodedImage: enc, Corners: q.Corners}, nil
}

// ClassifyResponse reports the colour vote and the catalog card it names.
type ClassifyResponse struct {
	detection.Classification
	Card    *catalog.Card      `json:"card"`
	Corners [4]detection.Point `json:"corners"`
}

func (s *Server) handleCardClassify(args jsoniter.RawMessage) (interface{}, error) {
	var a cornerArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	q, err := s.outline(img, a.Corners)
	if err != nil {
		return nil, err
	}
	card, err := s.pipeline.Rectifier().Rectify(img, *q)
	if err != nil {
		return nil, err
	}

	cls := s.pipeline.Classifier().Classify(card)
	out := &ClassifyResponse{Classification: cls, Corners: q.Corners}
	if entry, ok := s.pipeline.Catalog().Lookup(string(cls.Label)); ok {
		out.Card = &entry
	}
	return out, nil
}

// SampleColorResponse is a pixel colour and the palette ranges containing it.
type SampleColorResponse struct {
	*imaging.ColorResult
	Labels []detection.Label `json:"labels"`
}

type sampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleCardSampleColor(args jsoniter.RawMessage) (interface{}, error) {
	var a sampleColorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	c, err := imaging.SampleColor(img, a.X, a.Y)
	if err != nil {
		return nil, err
	}

	labels := []detection.Label{}
	for _, r := range s.pipeline.Classifier().Palette() {
		if r.Contains(c.HSV) {
			labels = append(labels, r.Label)
		}
	}
	return &SampleColorResponse{ColorResult: c, Labels: labels}, nil
}

// AnnotateResponse is the frame with the detected outline drawn on it.
type AnnotateResponse struct {
	*imaging.EncodedImage
	Detected bool `json:"detected"`
}

type annotateArgs struct {
	Path     string  `json:"path"`
	Scale    float64 `json:"scale"`
	ColorHex string  `json:"color"`
}

func (s *Server) handleCardAnnotate(ctx context.Context, args jsoniter.RawMessage) (interface{}, error) {
	var a annotateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := s.pipeline.Detect(ctx, img)
	if err != nil {
		return nil, err
	}

	out := img
	if res != nil {
		out = imaging.Annotate(img, AnnotationFor(res, a.ColorHex))
	}
	enc, err := imaging.EncodePNG(out, a.Scale)
	if err != nil {
		return nil, err
	}
	return &AnnotateResponse{EncodedImage: enc, Detected: res != nil}, nil
}

// AnnotationFor builds the overlay for a detection: the outline, corner
// indices, and the card's emotion with its confidence.
func AnnotationFor(res *recognizer.DetectionResult, colorHex string) imaging.Overlay {
	ov := imaging.Overlay{
		Points:    detection.Quadrilateral{Corners: res.Corners}.ImagePoints(),
		Labels:    make([]string, 4),
		Caption:   fmt.Sprintf("%s %.0f%%", res.Card.Emotion, res.Confidence*100),
		ColorHex:  colorHex,
		Thickness: 3,
	}
	for i := range ov.Labels {
		ov.Labels[i] = strconv.Itoa(i)
	}
	return ov
}

// CatalogResponse lists the known cards.
type CatalogResponse struct {
	Version int            `json:"version"`
	Cards   []catalog.Card `json:"cards"`
}

func (s *Server) handleCardCatalog() (interface{}, error) {
	c := s.pipeline.Catalog()
	return &CatalogResponse{Version: c.Version(), Cards: c.Cards()}, nil
}
