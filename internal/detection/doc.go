// Package detection locates, rectifies and classifies emotion cards in images.
//
// The package is split along the three stages of the recognition pipeline:
//
//   - Extractor finds the most prominent four-sided outline in a frame
//   - Rectifier warps that outline to a canonical upright card image
//   - Classifier counts pixels inside per-emotion HSV ranges and names the card
//
// Every stage is a pure function of its inputs. None of them keep state
// between calls, so one instance may be shared by several goroutines.
//
// # Geometry Pipeline
//
// Extraction follows the usual contour recipe:
//
//  1. Grayscale conversion and a 5x5 Gaussian blur
//  2. Adaptive local-mean threshold (dark side of edges is foreground)
//  3. External contour tracing on the binary image
//  4. Area filter, then Douglas-Peucker simplification at 2% of the perimeter
//  5. Keep simplifications with exactly four vertices
//  6. Pick the candidate with the largest contour area
//
// Because the threshold marks the darker side of each edge, reported corners
// sit a few pixels outside the physical edge of a bright card.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Quadrilateral corners are ordered clockwise on screen, starting from the
// corner closest to the origin.
//
// # Color Classification
//
// Hue ranges use 8-bit HSV (H 0-179). A pixel counts toward a label when all
// three channels fall inside that label's inclusive range. When several labels
// share the highest count, the one listed first in the palette wins. When no
// pixel matches any range the result is LabelNone.
package detection
