package stages

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/banshee-data/traffic.count/internal/fsutil"
	"github.com/banshee-data/traffic.count/internal/pipeline"
)

// need fetches a required Context value.
func need[T any](c *pipeline.Context, key string) (T, error) {
	v, ok := pipeline.Value[T](c, key)
	if !ok {
		var zero T
		return zero, fmt.Errorf("context key %q missing or not %T", key, zero)
	}
	return v, nil
}

// snapshot writes img as dir/fmt.Sprintf(pattern, n) in PNG format.
func snapshot(fsys fsutil.FileSystem, dir, pattern string, n int, img image.Image) error {
	path := filepath.Join(dir, fmt.Sprintf(pattern, n))
	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		w.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return w.Close()
}
