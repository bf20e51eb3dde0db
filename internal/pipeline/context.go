package pipeline

import (
	"maps"
	"slices"
)

// Well-known Context keys. Each key has a single writer; see the table in
// DESIGN.md for readers.
const (
	KeyFrame           = "frame"            // *video.Frame, written by Session
	KeyFrameNumber     = "frame_number"     // int, written by Session
	KeyBackgroundModel = "background_model" // background.Model, written once at startup
	KeyZoneMasks       = "zone_masks"       // []*mask.Mask, written once at startup
	KeyAxisWeight      = "axis_weight"      // tracking.AxisWeight, written once at startup
	KeyForegroundMask  = "fg_mask"          // *mask.Mask, written by ContourDetection
	KeyDetectedObjects = "detected_objects" // []tracking.Object, written by ContourDetection
	KeyContours        = "contours"         // []image.Rectangle, written by ContourDetection
	KeyPaths           = "paths"            // []tracking.Path, written by VehicleCounter
	KeyCounts          = "counts"           // tracking.Counts, written by VehicleCounter
	KeyCrossings       = "crossings"        // []tracking.Crossing counted this frame, written by VehicleCounter
)

// Context is the key/value state threaded through every Stage. It is owned
// by a single Runner and is not safe for concurrent use.
type Context struct {
	values map[string]any
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{values: make(map[string]any)}
}

// Set stores v under key, replacing any previous value.
func (c *Context) Set(key string, v any) {
	c.values[key] = v
}

// Get returns the raw value stored under key.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Delete removes key.
func (c *Context) Delete(key string) {
	delete(c.values, key)
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Merge copies every entry of update into the Context, overwriting keys
// that already exist and leaving all others untouched.
func (c *Context) Merge(update map[string]any) {
	maps.Copy(c.values, update)
}

// Keys returns the present keys in sorted order.
func (c *Context) Keys() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// Len returns the number of keys.
func (c *Context) Len() int { return len(c.values) }

// Value returns the value under key converted to T. The second result is
// false when the key is missing or holds a different type.
func Value[T any](c *Context, key string) (T, bool) {
	var zero T
	raw, ok := c.values[key]
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// ValueOr returns the value under key, or def when missing or mistyped.
func ValueOr[T any](c *Context, key string, def T) T {
	if v, ok := Value[T](c, key); ok {
		return v
	}
	return def
}
