// Package cvio binds the video Source and Sink contracts to OpenCV through
// gocv. It is the only package in the module that needs cgo.
package cvio

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/banshee-data/traffic.count/internal/monitoring"
	"github.com/banshee-data/traffic.count/internal/video"
)

// DefaultCodec is the four-character code used for output containers.
const DefaultCodec = "mp4v"

// Capture decodes a video file with OpenCV.
type Capture struct {
	path string
	vc   *gocv.VideoCapture
	mat  gocv.Mat
	info video.Info
	next int
}

// OpenCapture opens path and reads its properties once.
func OpenCapture(path string) (*Capture, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, video.Unavailable(path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, video.Unavailable(path, nil)
	}
	c := &Capture{
		path: path,
		vc:   vc,
		mat:  gocv.NewMat(),
		info: video.Info{
			Width:      int(vc.Get(gocv.VideoCaptureFrameWidth)),
			Height:     int(vc.Get(gocv.VideoCaptureFrameHeight)),
			FrameRate:  vc.Get(gocv.VideoCaptureFPS),
			FrameCount: int(vc.Get(gocv.VideoCaptureFrameCount)),
		},
	}
	return c, nil
}

// Opener returns a video.Opener for path.
func Opener(path string) video.Opener {
	return func() (video.Source, error) {
		return OpenCapture(path)
	}
}

// Info implements video.Source.
func (c *Capture) Info() video.Info { return c.info }

// Read implements video.Source. Decode failures end the stream.
func (c *Capture) Read() (*video.Frame, error) {
	if c.vc == nil || !c.vc.IsOpened() {
		return nil, video.ErrEndOfStream
	}
	if ok := c.vc.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, video.ErrEndOfStream
	}
	img, err := c.mat.ToImage()
	if err != nil {
		monitoring.Logf("[Capture] %s frame %d: convert failed, ending stream: %v", c.path, c.next, err)
		return nil, video.ErrEndOfStream
	}
	f := video.NewFrame(c.next, img)
	c.next++
	return f, nil
}

// Close implements video.Source. It is safe to call more than once.
func (c *Capture) Close() error {
	if c.vc == nil {
		return nil
	}
	err := c.vc.Close()
	c.mat.Close()
	c.vc = nil
	return err
}

// Writer encodes frames into a video container.
type Writer struct {
	path string
	vw   *gocv.VideoWriter
}

// OpenWriter creates an encoder with the input's geometry and frame rate.
func OpenWriter(path, codec string, info video.Info) (*Writer, error) {
	if codec == "" {
		codec = DefaultCodec
	}
	if len(codec) != 4 {
		return nil, fmt.Errorf("codec %q: fourcc must be 4 characters", codec)
	}
	vw, err := gocv.VideoWriterFile(path, codec, info.FrameRate, info.Width, info.Height, true)
	if err != nil {
		return nil, fmt.Errorf("open video writer %s: %w", path, err)
	}
	return &Writer{path: path, vw: vw}, nil
}

// Write implements video.Sink.
func (w *Writer) Write(f *video.Frame) error {
	m, err := gocv.ImageToMatRGB(f.Image)
	if err != nil {
		return fmt.Errorf("convert frame %d: %w", f.Index, err)
	}
	defer m.Close()
	if err := w.vw.Write(m); err != nil {
		return fmt.Errorf("encode frame %d to %s: %w", f.Index, w.path, err)
	}
	return nil
}

// Close finalises the container. It is safe to call more than once.
func (w *Writer) Close() error {
	if w.vw == nil {
		return nil
	}
	err := w.vw.Close()
	w.vw = nil
	return err
}
