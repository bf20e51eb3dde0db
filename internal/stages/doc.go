// Package stages holds the per-frame processing stages wired into the
// pipeline Runner: detection, counting, drawing and the count sinks.
//
// Each stage reads and writes well-known pipeline Context keys. A missing
// or mistyped required key is a stage failure.
package stages
