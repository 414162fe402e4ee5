package server

import (
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/cardsight/internal/catalog"
	"github.com/ironsheep/cardsight/internal/detection"
	"github.com/ironsheep/cardsight/internal/recognizer"
)

var (
	black  = color.RGBA{0, 0, 0, 255}
	yellow = color.RGBA{255, 200, 0, 255}
)

// createTestImageFile writes a black image with an optional solid card and
// returns its path.
func createTestImageFile(t *testing.T, width, height int, card image.Rectangle, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)
	draw.Draw(img, card, image.NewUniform(c), image.Point{}, draw.Src)

	path := filepath.Join(t.TempDir(), "snapshot.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func yellowCardFile(t *testing.T) string {
	return createTestImageFile(t, 640, 480, image.Rect(200, 80, 380, 320), yellow)
}

func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	params := map[string]interface{}{"name": name, "arguments": args}
	paramsJSON, _ := json.Marshal(params)

	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	}
	resp := s.handleRequest(context.Background(), req)
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// toolText extracts the JSON text payload of a successful tool call.
func toolText(t *testing.T, resp *MCPResponse) string {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content: %#v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Fatalf("content type: got %v", content[0]["type"])
	}
	return content[0]["text"].(string)
}

func TestHandleToolsCall_Detect(t *testing.T) {
	s := newTestServer(t)
	text := toolText(t, callTool(t, s, "card_detect", map[string]interface{}{"path": yellowCardFile(t)}))

	var got DetectResponse
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("bad result: %v", err)
	}
	if !got.Detected || got.Result == nil {
		t.Fatalf("expected a detection: %s", text)
	}
	if got.Result.Card.ID != "happy" {
		t.Errorf("card: got %q, want happy", got.Result.Card.ID)
	}
	if d := got.Result.Corners[0].Dist(detection.Pt(200, 80)); d > 10 {
		t.Errorf("corner 0 = %v, %.1fpx from the card corner", got.Result.Corners[0], d)
	}
}

func TestHandleToolsCall_DetectNothing(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, 320, 240, image.Rectangle{}, black)
	text := toolText(t, callTool(t, s, "card_detect", map[string]interface{}{"path": path}))

	if !strings.Contains(text, `"detected": false`) || !strings.Contains(text, `"result": null`) {
		t.Errorf("unexpected result: %s", text)
	}
}

func TestHandleToolsCall_Extract(t *testing.T) {
	s := newTestServer(t)
	text := toolText(t, callTool(t, s, "card_extract", map[string]interface{}{"path": yellowCardFile(t)}))

	var got ExtractResponse
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("bad result: %v", err)
	}
	if got.Count < 1 || len(got.Candidates) != got.Count {
		t.Fatalf("candidates: %s", text)
	}
	best := got.Candidates[0]
	if best.Squareness < 0.95 {
		t.Errorf("squareness: got %.3f", best.Squareness)
	}
	if best.AspectRatio < 0.6 || best.AspectRatio > 0.9 {
		t.Errorf("aspect ratio: got %.3f, want about 0.75", best.AspectRatio)
	}
}

func TestHandleToolsCall_Rectify(t *testing.T) {
	s := newTestServer(t)
	text := toolText(t, callTool(t, s, "card_rectify", map[string]interface{}{"path": yellowCardFile(t), "scale": 0.5}))

	var got struct {
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		ImageBase64 string `json:"image_base64"`
		MimeType    string `json:"mime_type"`
	}
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("bad result: %v", err)
	}
	if got.Width != 150 || got.Height != 200 {
		t.Errorf("size: got %dx%d, want 150x200", got.Width, got.Height)
	}
	if got.MimeType != "image/png" {
		t.Errorf("mime type: got %s", got.MimeType)
	}
	data, err := base64.StdEncoding.DecodeString(got.ImageBase64)
	if err != nil {
		t.Fatalf("bad base64: %v", err)
	}
	if _, err := png.Decode(strings.NewReader(string(data))); err != nil {
		t.Errorf("not a PNG: %v", err)
	}
}

func TestHandleToolsCall_RectifyWithCorners(t *testing.T) {
	s := newTestServer(t)
	corners := []map[string]interface{}{
		{"x": 200, "y": 80}, {"x": 380, "y": 80}, {"x": 380, "y": 320}, {"x": 200, "y": 320},
	}
	text := toolText(t, callTool(t, s, "card_rectify", map[string]interface{}{"path": yellowCardFile(t), "corners": corners}))
	if !strings.Contains(text, `"width": 300`) {
		t.Errorf("unexpected result: %s", text)
	}

	bad := []map[string]interface{}{{"x": 0, "y": 0}, {"x": 1, "y": 1}, {"x": 2, "y": 2}, {"x": 3, "y": 3}}
	resp := callTool(t, s, "card_rectify", map[string]interface{}{"path": yellowCardFile(t), "corners": bad})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("collinear corners should fail, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_Classify(t *testing.T) {
	s := newTestServer(t)
	text := toolText(t, callTool(t, s, "card_classify", map[string]interface{}{"path": yellowCardFile(t)}))

	var got ClassifyResponse
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("bad result: %v", err)
	}
	if got.Label != detection.LabelHappy {
		t.Errorf("label: got %q", got.Label)
	}
	if got.Card == nil || got.Card.AnimalType != "dog" {
		t.Errorf("card: got %+v", got.Card)
	}
	if got.Winner == 0 || got.Counts[detection.LabelHappy] != got.Winner {
		t.Errorf("counts: %+v", got.Counts)
	}
}

func TestHandleToolsCall_ClassifyNoOutline(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, 100, 100, image.Rectangle{}, black)
	resp := callTool(t, s, "card_classify", map[string]interface{}{"path": path})
	if resp.Error == nil {
		t.Fatal("expected an error without a card outline")
	}
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "no card outline") {
		t.Errorf("error data: got %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_SampleColor(t *testing.T) {
	s := newTestServer(t)
	text := toolText(t, callTool(t, s, "card_sample_color", map[string]interface{}{"path": yellowCardFile(t), "x": 250, "y": 100}))

	var got SampleColorResponse
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("bad result: %v", err)
	}
	if got.Hex != "#ffc800" {
		t.Errorf("hex: got %s", got.Hex)
	}
	if len(got.Labels) != 1 || got.Labels[0] != detection.LabelHappy {
		t.Errorf("labels: got %v", got.Labels)
	}

	resp := callTool(t, s, "card_sample_color", map[string]interface{}{"path": yellowCardFile(t), "x": 5000, "y": 0})
	if resp.Error == nil {
		t.Error("out-of-bounds sample should fail")
	}
}

func TestHandleToolsCall_Annotate(t *testing.T) {
	s := newTestServer(t)
	text := toolText(t, callTool(t, s, "card_annotate", map[string]interface{}{"path": yellowCardFile(t)}))

	var got AnnotateResponse
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("bad result: %v", err)
	}
	if !got.Detected {
		t.Error("expected the card to be detected")
	}
	if got.EncodedImage == nil || got.Width != 640 || got.Height != 480 {
		t.Errorf("image: got %+v", got.EncodedImage)
	}
}

func TestHandleToolsCall_Catalog(t *testing.T) {
	s := newTestServer(t)
	text := toolText(t, callTool(t, s, "card_catalog", nil))

	var got CatalogResponse
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("bad result: %v", err)
	}
	if got.Version != 1 || len(got.Cards) != 4 {
		t.Errorf("catalog: version %d, %d cards", got.Version, len(got.Cards))
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		tool     string
		args     map[string]interface{}
		wantCode int
	}{
		{"unknown tool", "nonexistent_tool", map[string]interface{}{}, -32000},
		{"missing path", "card_detect", map[string]interface{}{}, -32000},
		{"missing arguments", "card_extract", nil, -32000},
		{"missing file", "card_detect", map[string]interface{}{"path": "/nonexistent/image.png"}, -32000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil {
				t.Fatal("expected an error")
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code: got %d, want %d", resp.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	req := &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: []byte(`{invalid`)}

	resp := s.handleRequest(context.Background(), req)
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected -32602, got %+v", resp.Error)
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := newTestServer(t)
	if _, err := s.executeTool(context.Background(), "card_detect", []byte(`{invalid`)); err == nil {
		t.Error("executeTool should fail for invalid JSON")
	}
}

func TestAnnotationFor(t *testing.T) {
	s := newTestServer(t)
	img, err := s.load(yellowCardFile(t))
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.pipeline.Detect(context.Background(), img)
	if err != nil || res == nil {
		t.Fatalf("Detect: %v, %v", res, err)
	}

	ov := AnnotationFor(res, "")
	if len(ov.Points) != 4 || ov.Labels[3] != "3" {
		t.Errorf("overlay: %+v", ov)
	}
	if ov.Caption != "Happy 95%" {
		t.Errorf("caption: got %q", ov.Caption)
	}
}

func TestAnnotationFor_RoundsCorners(t *testing.T) {
	res := &recognizer.DetectionResult{
		Card:       catalog.Card{ID: "happy", Emotion: "Happy"},
		Confidence: 0.5,
		Corners:    [4]detection.Point{{X: 10.4, Y: 20.6}, {X: 110.5, Y: 20}, {X: 110, Y: 90.49}, {X: 9.6, Y: 90}},
	}
	ov := AnnotationFor(res, "#00ff00")
	want := []image.Point{{10, 21}, {111, 20}, {110, 90}, {10, 90}}
	for i, p := range want {
		if ov.Points[i] != p {
			t.Errorf("point %d: got %v, want %v", i, ov.Points[i], p)
		}
	}
	if ov.ColorHex != "#00ff00" {
		t.Errorf("color: got %q", ov.ColorHex)
	}
}
