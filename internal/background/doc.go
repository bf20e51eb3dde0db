// Package background owns the background model and its warm-up protocol.
//
// Responsibilities: per-pixel statistical background learning, foreground
// segmentation, and the bounded training pass that converges the model
// before any live frame is trusted.
// Key types: Model, Gaussian, Params.
//
// The training rate is fixed (TrainingLearningRate) and is deliberately
// distinct from the live rate configured on the detection stage.
package background
