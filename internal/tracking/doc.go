// Package tracking links per-frame vehicle detections into paths and counts
// the paths that enter a counting zone.
//
// Association uses the Hungarian method over a weighted, gated distance
// between each path's predicted next position and the frame's detections.
package tracking
