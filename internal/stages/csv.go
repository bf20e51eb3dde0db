package stages

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/banshee-data/traffic.count/internal/fsutil"
	"github.com/banshee-data/traffic.count/internal/pipeline"
	"github.com/banshee-data/traffic.count/internal/timeutil"
	"github.com/banshee-data/traffic.count/internal/tracking"
)

// DefaultCSVName is the report file created in the report directory.
const DefaultCSVName = "report.csv"

// CsvWriter appends one row per frame: the frame's timestamp in hundredths
// of a second and the number of vehicles counted since the previous row.
type CsvWriter struct {
	path  string
	start time.Time
	fps   float64

	file io.WriteCloser
	w    *csv.Writer
	prev int
	rows int
}

// NewCsvWriter creates dir/name and writes the header. start anchors frame
// zero in wall-clock time.
func NewCsvWriter(fsys fsutil.FileSystem, dir, name string, start time.Time, fps float64) (*CsvWriter, error) {
	if name == "" {
		name = DefaultCSVName
	}
	if err := fsutil.EnsureDir(fsys, dir); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, name)
	f, err := fsys.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", fsutil.ErrFilesystem, path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "vehicles"}); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &CsvWriter{path: path, start: start, fps: fps, file: f, w: w}, nil
}

func (cw *CsvWriter) Name() string { return "csv_writer" }

// Path returns the report location.
func (cw *CsvWriter) Path() string { return cw.path }

// Rows returns the number of data rows written.
func (cw *CsvWriter) Rows() int { return cw.rows }

// Apply implements pipeline.Stage.
func (cw *CsvWriter) Apply(c *pipeline.Context) (*pipeline.Context, error) {
	if cw.w == nil {
		return nil, fmt.Errorf("csv writer %s is closed", cw.path)
	}
	frameNumber, err := need[int](c, pipeline.KeyFrameNumber)
	if err != nil {
		return nil, err
	}
	counts, err := need[tracking.Counts](c, pipeline.KeyCounts)
	if err != nil {
		return nil, err
	}

	stamp := timeutil.FrameStamp(cw.start, frameNumber, cw.fps)
	row := []string{strconv.FormatInt(stamp, 10), strconv.Itoa(counts.Total - cw.prev)}
	if err := cw.w.Write(row); err != nil {
		return nil, fmt.Errorf("write %s: %w", cw.path, err)
	}
	cw.w.Flush()
	if err := cw.w.Error(); err != nil {
		return nil, fmt.Errorf("flush %s: %w", cw.path, err)
	}
	cw.prev = counts.Total
	cw.rows++
	return c, nil
}

// Close flushes and closes the file. It is safe to call more than once.
func (cw *CsvWriter) Close() error {
	if cw.w == nil {
		return nil
	}
	cw.w.Flush()
	err := cw.w.Error()
	if cerr := cw.file.Close(); err == nil {
		err = cerr
	}
	cw.w = nil
	return err
}
