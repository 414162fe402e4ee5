// Package recognizer turns camera frames into emotion-card detections.
//
// A Pipeline runs one frame through extraction, rectification, colour
// classification and catalog lookup. A Loop drives a Pipeline against a live
// camera stream on its own goroutines, keeps at most one frame in flight, and
// publishes each outcome (a result or nil) to subscribers.
//
// Loop lifecycle:
//
//	Idle --Initialize--> Initializing --ok--> Running --Stop--> Stopped
//	                          |
//	                          +--camera error--> Idle
//
// Results from a cycle that started before the latest Stop or Initialize are
// discarded.
package recognizer
