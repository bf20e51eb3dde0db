package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/traffic.count/internal/security"
	"github.com/banshee-data/traffic.count/internal/tracking"
)

// DefaultConfigPath is the path to the canonical counting defaults file.
const DefaultConfigPath = "config/counting.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// DefaultZones is used when no zone is configured: x 0..320, y 180..240,
// the bottom band of 320×240 footage.
var DefaultZones = [][][2]int{{{0, 240}, {320, 240}, {320, 180}, {0, 180}}}

// CountingConfig is the full run configuration. Every field is optional;
// the Get* accessors supply defaults for fields left unset, so partial
// files are safe.
type CountingConfig struct {
	// Input and output
	Source     *string  `json:"source,omitempty" toml:"source,omitempty" yaml:"source,omitempty"`                // video file or image directory
	FrameRate  *float64 `json:"frame_rate,omitempty" toml:"frame_rate,omitempty" yaml:"frame_rate,omitempty"`    // for image directories
	Output     *string  `json:"output,omitempty" toml:"output,omitempty" yaml:"output,omitempty"`                // annotated video, or a directory for PNG frames
	Codec      *string  `json:"codec,omitempty" toml:"codec,omitempty" yaml:"codec,omitempty"`                   // FourCC
	ImageDir   *string  `json:"image_dir,omitempty" toml:"image_dir,omitempty" yaml:"image_dir,omitempty"`       // snapshots
	ReportDir  *string  `json:"report_dir,omitempty" toml:"report_dir,omitempty" yaml:"report_dir,omitempty"`    // csv, charts, metrics textfile
	CSVName    *string  `json:"csv_name,omitempty" toml:"csv_name,omitempty" yaml:"csv_name,omitempty"`
	SaveImages *bool    `json:"save_images,omitempty" toml:"save_images,omitempty" yaml:"save_images,omitempty"`
	SQLitePath *string  `json:"sqlite_path,omitempty" toml:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"` // empty disables the event store
	Metrics    *string  `json:"metrics_listen,omitempty" toml:"metrics_listen,omitempty" yaml:"metrics_listen,omitempty"`
	StartTime  *string  `json:"start_time,omitempty" toml:"start_time,omitempty" yaml:"start_time,omitempty"` // RFC 3339; empty means now

	// Source handling
	FrameStride *int    `json:"frame_stride,omitempty" toml:"frame_stride,omitempty" yaml:"frame_stride,omitempty"`
	ResizeWidth *int    `json:"resize_width,omitempty" toml:"resize_width,omitempty" yaml:"resize_width,omitempty"`
	Seed        *uint64 `json:"seed,omitempty" toml:"seed,omitempty" yaml:"seed,omitempty"`

	// Background model
	TrainFrames       *int     `json:"train_frames,omitempty" toml:"train_frames,omitempty" yaml:"train_frames,omitempty"`
	LiveLearningRate  *float64 `json:"live_learning_rate,omitempty" toml:"live_learning_rate,omitempty" yaml:"live_learning_rate,omitempty"`
	History           *int     `json:"history,omitempty" toml:"history,omitempty" yaml:"history,omitempty"`
	VarianceThreshold *float64 `json:"variance_threshold,omitempty" toml:"variance_threshold,omitempty" yaml:"variance_threshold,omitempty"`
	DetectShadows     *bool    `json:"detect_shadows,omitempty" toml:"detect_shadows,omitempty" yaml:"detect_shadows,omitempty"`

	// Detection and counting
	MinContourRatio *float64             `json:"min_contour_ratio,omitempty" toml:"min_contour_ratio,omitempty" yaml:"min_contour_ratio,omitempty"`
	PathSize        *int                 `json:"path_size,omitempty" toml:"path_size,omitempty" yaml:"path_size,omitempty"`
	MaxDistance     *float64             `json:"max_distance,omitempty" toml:"max_distance,omitempty" yaml:"max_distance,omitempty"`
	MaxMissed       *int                 `json:"max_missed,omitempty" toml:"max_missed,omitempty" yaml:"max_missed,omitempty"` // 0 keeps unmatched paths forever
	AxisWeight      *tracking.AxisWeight `json:"axis_weight,omitempty" toml:"axis_weight,omitempty" yaml:"axis_weight,omitempty"`
	Zones           [][][2]int           `json:"zones,omitempty" toml:"zones,omitempty" yaml:"zones,omitempty"` // polygons of [x, y] points

	// Reporting
	ReportInterval *string `json:"report_interval,omitempty" toml:"report_interval,omitempty" yaml:"report_interval,omitempty"` // duration string like "1m"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrUint64(v uint64) *uint64    { return &v }

// EmptyCountingConfig returns a CountingConfig with all fields unset.
func EmptyCountingConfig() *CountingConfig {
	return &CountingConfig{}
}

// LoadCountingConfig loads a CountingConfig from a .json, .toml, .yaml or
// .yml file of at most 1MB. Fields omitted from the file keep their
// defaults.
func LoadCountingConfig(path string) (*CountingConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".json", ".toml", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have a .json, .toml, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyCountingConfig()
	switch ext {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", cleanPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from the
// working directory. It panics when the file cannot be loaded and is meant
// for test setup.
func MustLoadDefaultConfig() *CountingConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadCountingConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *CountingConfig) Validate() error {
	if c.FrameRate != nil && *c.FrameRate <= 0 {
		return fmt.Errorf("frame_rate must be positive, got %f", *c.FrameRate)
	}
	if c.Codec != nil && len(*c.Codec) != 4 {
		return fmt.Errorf("codec must be a four character code, got %q", *c.Codec)
	}
	if c.CSVName != nil && *c.CSVName != "" {
		if err := security.ValidateFilename(*c.CSVName); err != nil {
			return fmt.Errorf("csv_name: %w", err)
		}
	}
	if c.StartTime != nil && *c.StartTime != "" {
		if _, err := time.Parse(time.RFC3339, *c.StartTime); err != nil {
			return fmt.Errorf("invalid start_time '%s': %w", *c.StartTime, err)
		}
	}
	if c.FrameStride != nil && *c.FrameStride < 1 {
		return fmt.Errorf("frame_stride must be at least 1, got %d", *c.FrameStride)
	}
	if c.ResizeWidth != nil && *c.ResizeWidth < 0 {
		return fmt.Errorf("resize_width must be non-negative, got %d", *c.ResizeWidth)
	}
	if c.TrainFrames != nil && *c.TrainFrames < 0 {
		return fmt.Errorf("train_frames must be non-negative, got %d", *c.TrainFrames)
	}
	if c.LiveLearningRate != nil && (*c.LiveLearningRate <= 0 || *c.LiveLearningRate > 1) {
		return fmt.Errorf("live_learning_rate must be in (0, 1], got %f", *c.LiveLearningRate)
	}
	if err := c.GetBackgroundParams().Validate(); err != nil {
		return fmt.Errorf("background: %w", err)
	}
	if c.MinContourRatio != nil && (*c.MinContourRatio <= 0 || *c.MinContourRatio >= 1) {
		return fmt.Errorf("min_contour_ratio must be in (0, 1), got %f", *c.MinContourRatio)
	}
	if c.AxisWeight != nil && (c.AxisWeight.X <= 0 || c.AxisWeight.Y <= 0) {
		return fmt.Errorf("axis_weight components must be positive, got %+v", *c.AxisWeight)
	}
	if err := c.GetCounterConfig().Validate(); err != nil {
		return err
	}
	for i, p := range c.GetZones() {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("zone %d: %w", i, err)
		}
	}
	if c.ReportInterval != nil && *c.ReportInterval != "" {
		d, err := time.ParseDuration(*c.ReportInterval)
		if err != nil {
			return fmt.Errorf("invalid report_interval '%s': %w", *c.ReportInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("report_interval must be positive, got %s", d)
		}
	}
	return nil
}
