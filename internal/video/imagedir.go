package video

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/banshee-data/traffic.count/internal/fsutil"
	"github.com/banshee-data/traffic.count/internal/monitoring"
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".tif": true, ".tiff": true, ".gif": true}

// ImageDirSource reads a directory of still images in lexical order as a
// video. It needs no cgo, which makes it the default for replaying exported
// frame dumps.
type ImageDirSource struct {
	dir   string
	files []string
	info  Info
	next  int
}

// OpenImageDir lists dir and decodes the first image to learn the frame size.
func OpenImageDir(dir string, frameRate float64) (*ImageDirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, Unavailable(dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, Unavailable(dir, fmt.Errorf("no image files"))
	}

	first, err := imaging.Open(files[0])
	if err != nil {
		return nil, Unavailable(files[0], err)
	}
	return &ImageDirSource{
		dir:   dir,
		files: files,
		info: Info{
			Width:      first.Bounds().Dx(),
			Height:     first.Bounds().Dy(),
			FrameRate:  frameRate,
			FrameCount: len(files),
		},
	}, nil
}

// ImageDirOpener returns an Opener for dir.
func ImageDirOpener(dir string, frameRate float64) Opener {
	return func() (Source, error) {
		return OpenImageDir(dir, frameRate)
	}
}

// Info implements Source.
func (s *ImageDirSource) Info() Info { return s.info }

// Read implements Source. Undecodable files end the stream.
func (s *ImageDirSource) Read() (*Frame, error) {
	if s.next >= len(s.files) {
		return nil, ErrEndOfStream
	}
	path := s.files[s.next]
	img, err := imaging.Open(path)
	if err != nil {
		monitoring.Logf("[ImageDirSource] decode %s failed, ending stream: %v", path, err)
		s.next = len(s.files)
		return nil, ErrEndOfStream
	}
	f := NewFrame(s.next, img)
	s.next++
	return f, nil
}

// Close implements Source.
func (s *ImageDirSource) Close() error {
	s.next = len(s.files)
	return nil
}

// ImageDirSink writes each frame as a numbered PNG.
type ImageDirSink struct {
	dir string
	n   int
}

// NewImageDirSink creates dir if needed and returns a sink writing into it.
func NewImageDirSink(fs fsutil.FileSystem, dir string) (*ImageDirSink, error) {
	if err := fsutil.EnsureDir(fs, dir); err != nil {
		return nil, err
	}
	return &ImageDirSink{dir: dir}, nil
}

// Write implements Sink.
func (s *ImageDirSink) Write(f *Frame) error {
	path := filepath.Join(s.dir, fmt.Sprintf("frame_%06d.png", s.n))
	if err := imaging.Save(f.Image, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	s.n++
	return nil
}

// Close implements Sink.
func (s *ImageDirSink) Close() error { return nil }

// Written returns the number of frames written so far.
func (s *ImageDirSink) Written() int { return s.n }
