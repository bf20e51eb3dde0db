// Package mask owns binary rasters over the frame pixel grid.
//
// Responsibilities: rasterising counting-zone polygons into a single mask,
// binary morphology for foreground clean-up, and PNG-friendly export.
// Key types: Mask, Polygon, Point.
//
// Dependency rule: mask depends only on the standard library so that every
// other layer (video, background, tracking, stages) can share the type.
package mask
