// Package pipeline provides the staged frame-processing engine.
//
// A Runner owns an ordered, fixed list of Stages and one persistent Context.
// Each Run threads the Context through every Stage in registration order;
// the Context is never recreated, so keys written on frame N are still
// visible on frame N+1 unless overwritten. Session composes the Runner with
// a video source and the background trainer into the process state machine:
//
//	Uninitialized -> Training -> LiveProcessing -> Draining -> Terminated
//
// This package is the composition root for the core: it imports video and
// background, but neither imports pipeline. Concrete stages live in
// internal/stages and depend on this package only for the Context type.
package pipeline
