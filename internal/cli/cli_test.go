package cli

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCard(t *testing.T, dir, name string, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(200, 80, 380, 320), image.NewUniform(c), image.Point{}, draw.Src)

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CARDSIGHT_LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := NewRootCmd(BuildInfo{Version: "1.0.0-test"})
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCatalogCmd(t *testing.T) {
	out, err := run(t, "", "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Happy Dance, Share Joy, Gratitude Journal")
	assert.Equal(t, 5, strings.Count(out, "\n"))

	out, err = run(t, "", "catalog", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"animalType": "dog"`)
}

func TestVersionFlag(t *testing.T) {
	out, err := run(t, "", "--version")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0-test\n", out)
}

func TestDetectCmd(t *testing.T) {
	dir := t.TempDir()
	yellow := writeCard(t, dir, "yellow.png", color.RGBA{255, 200, 0, 255})
	black := writeCard(t, dir, "black.png", color.Black)
	annotated := filepath.Join(dir, "annotated")

	out, err := run(t, "", "detect", "--progress=false", "--annotate", annotated, yellow, black)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	var rec detectRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.True(t, rec.Detected)
	require.NotNil(t, rec.Result)
	assert.Equal(t, "happy", rec.Result.Card.ID)
	assert.FileExists(t, rec.Annotated)

	rec = detectRecord{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.False(t, rec.Detected)
	assert.Nil(t, rec.Result)
	assert.Empty(t, rec.Annotated)
}

func TestDetectCmd_MissingFile(t *testing.T) {
	out, err := run(t, "", "detect", filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 images failed")
	assert.Contains(t, out, `"error"`)
}

func TestDetectCmd_NeedsArgs(t *testing.T) {
	_, err := run(t, "", "detect")
	assert.Error(t, err)
}

func TestWatchCmd_Replay(t *testing.T) {
	dir := t.TempDir()
	yellow := writeCard(t, dir, "yellow.png", color.RGBA{255, 200, 0, 255})

	out, err := run(t, "", "watch", "--replay", yellow, "--duration", "600ms")
	require.NoError(t, err)
	assert.Contains(t, out, "Happy")
	assert.Equal(t, 1, strings.Count(out, "\n"), "an unchanged card prints once")
}

func TestServeCmd(t *testing.T) {
	out, err := run(t, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`+"\n"+`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`+"\n", "serve")
	require.NoError(t, err)
	assert.Contains(t, out, `"version":"1.0.0-test"`)
	assert.Contains(t, out, "card_detect")
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("CARDSIGHT_BLOCK_SIZE", "4")
	var out bytes.Buffer
	cmd := NewRootCmd(BuildInfo{Version: "dev"})
	cmd.SetArgs([]string{"catalog"})
	cmd.SetOut(&out)
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BlockSize")
}

func TestChangePrinter(t *testing.T) {
	var buf bytes.Buffer
	p := changePrinter(&buf)
	p(nil)
	p(nil)
	assert.Equal(t, 1, strings.Count(buf.String(), "no card"))
}

func TestCaptionReader_ReportsBackend(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	a := &app{log: log}
	a.cfg.CaptionOCR = true
	a.cfg.CaptionLanguage = "eng"

	require.NotNil(t, a.captionReader())

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "gosseract", entry.Data["backend"])
	assert.Equal(t, "eng", entry.Data["language"])
	assert.Contains(t, entry.Data, "tesseract")
}

func TestPipeline_CaptionFallback(t *testing.T) {
	t.Setenv("CARDSIGHT_CAPTION_OCR", "true")
	dir := t.TempDir()
	yellow := writeCard(t, dir, "yellow.png", color.RGBA{255, 200, 0, 255})

	out, err := run(t, "", "detect", "--progress=false", yellow)
	require.NoError(t, err)
	assert.Contains(t, out, `"happy"`)
}
