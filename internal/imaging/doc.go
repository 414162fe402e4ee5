// Package imaging provides the pixel-level building blocks of the card
// recognition pipeline.
//
// This package owns everything that touches raw pixels without knowing what a
// card is: immutable camera frames, grayscale conversion, smoothing, adaptive
// thresholding, HSV conversion, PNG encoding and debug overlays. Detection and
// classification logic lives in the detection package and is built on top of
// these primitives.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// Images produced by this package always have their origin at (0,0), whatever
// the bounds of the input image were.
//
// # Color Representation
//
// HSV values use the 8-bit convention shared by most vision tooling:
//   - H: 0-179 (degrees halved)
//   - S: 0-255
//   - V: 0-255
//
// # Thread Safety
//
// Frame values are immutable after construction and may be shared freely
// between goroutines. The ImageCache type is safe for concurrent use. All other
// operations are stateless and allocate their outputs.
package imaging
