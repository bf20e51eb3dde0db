// Package video owns frame acquisition and frame output.
//
// Responsibilities: the Source contract (sequential, blocking, no rewind),
// the Sink contract for encoded output, and cgo-free implementations backed
// by image files or memory. The gocv-backed decoder and encoder live in the
// cvio subpackage so that nothing else in the module links OpenCV.
// Key types: Frame, Info, Source, Opener, Sink.
package video
