// Package caption reads the printed emotion word on a rectified card.
//
// Cards carry their emotion as a single word under the artwork. When colour
// classification is inconclusive the recognizer can fall back to reading that
// word with Tesseract (via gosseract/v2) and matching it against the catalog.
//
// # Prerequisites
//
// Tesseract and its language data must be installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// A non-default data directory can be given with Reader.TessdataPrefix.
package caption
