package config

import (
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/traffic.count/internal/background"
	"github.com/banshee-data/traffic.count/internal/mask"
	"github.com/banshee-data/traffic.count/internal/testutil"
	"github.com/banshee-data/traffic.count/internal/tracking"
)

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyCountingConfig()

	if cfg.GetTrainFrames() != 500 {
		t.Errorf("GetTrainFrames() = %d, want 500", cfg.GetTrainFrames())
	}
	if cfg.GetLiveLearningRate() != 0.005 {
		t.Errorf("GetLiveLearningRate() = %f, want 0.005", cfg.GetLiveLearningRate())
	}
	if cfg.GetFrameStride() != 1 {
		t.Errorf("GetFrameStride() = %d, want 1", cfg.GetFrameStride())
	}
	if cfg.GetSeed() != 123 {
		t.Errorf("GetSeed() = %d, want 123", cfg.GetSeed())
	}
	if cfg.GetCodec() != "mp4v" {
		t.Errorf("GetCodec() = %q, want mp4v", cfg.GetCodec())
	}
	if cfg.GetReportInterval() != time.Minute {
		t.Errorf("GetReportInterval() = %s, want 1m", cfg.GetReportInterval())
	}
	if got := cfg.GetCounterConfig(); got != tracking.DefaultCounterConfig() {
		t.Errorf("GetCounterConfig() = %+v, want defaults", got)
	}
	if got := cfg.GetBackgroundParams(); got != background.DefaultParams() {
		t.Errorf("GetBackgroundParams() = %+v, want defaults", got)
	}

	zones := cfg.GetZones()
	if len(zones) != 1 || len(zones[0]) != 4 {
		t.Fatalf("GetZones() = %v, want one quad", zones)
	}
	if zones[0][2] != (mask.Point{X: 320, Y: 180}) {
		t.Errorf("zone vertex = %+v", zones[0][2])
	}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if !cfg.GetStartTime(now).Equal(now) {
		t.Errorf("GetStartTime() should fall back to now")
	}
}

func TestDefaultCountingConfigMatchesGetters(t *testing.T) {
	cfg := DefaultCountingConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.TrainFrames == nil || *cfg.TrainFrames != 500 {
		t.Errorf("Expected TrainFrames 500, got %v", cfg.TrainFrames)
	}
	if cfg.AxisWeight == nil || *cfg.AxisWeight != tracking.DefaultAxisWeight {
		t.Errorf("Expected default axis weight, got %v", cfg.AxisWeight)
	}
	if cfg.GetReportInterval() != time.Minute {
		t.Errorf("GetReportInterval() = %s", cfg.GetReportInterval())
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	def := DefaultCountingConfig()

	if cfg.GetTrainFrames() != def.GetTrainFrames() {
		t.Errorf("train_frames = %d, want %d", cfg.GetTrainFrames(), def.GetTrainFrames())
	}
	if cfg.GetMinContourRatio() != def.GetMinContourRatio() {
		t.Errorf("min_contour_ratio = %v, want %v", cfg.GetMinContourRatio(), def.GetMinContourRatio())
	}
	if cfg.GetCounterConfig() != def.GetCounterConfig() {
		t.Errorf("counter = %+v, want %+v", cfg.GetCounterConfig(), def.GetCounterConfig())
	}
	if cfg.GetBackgroundParams() != def.GetBackgroundParams() {
		t.Errorf("background = %+v, want %+v", cfg.GetBackgroundParams(), def.GetBackgroundParams())
	}
	if len(cfg.GetZones()) != 1 {
		t.Errorf("zones = %v", cfg.GetZones())
	}
}

func TestLoadCountingConfigFormats(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"run.json", `{
  "source": "road.mp4",
  "train_frames": 50,
  "frame_stride": 2,
  "axis_weight": {"x": 1, "y": 3},
  "zones": [[[0, 10], [10, 10], [10, 0]], [[20, 20], [30, 20], [30, 30], [20, 30]]],
  "start_time": "2024-05-01T08:00:00Z"
}`},
		{"run.toml", `source = "road.mp4"
train_frames = 50
frame_stride = 2
start_time = "2024-05-01T08:00:00Z"
zones = [[[0, 10], [10, 10], [10, 0]], [[20, 20], [30, 20], [30, 30], [20, 30]]]

[axis_weight]
x = 1.0
y = 3.0
`},
		{"run.yaml", `source: road.mp4
train_frames: 50
frame_stride: 2
start_time: "2024-05-01T08:00:00Z"
axis_weight:
  x: 1
  y: 3
zones:
  - [[0, 10], [10, 10], [10, 0]]
  - [[20, 20], [30, 20], [30, 30], [20, 30]]
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, dir, tt.name, tt.content)
			cfg, err := LoadCountingConfig(path)
			testutil.AssertNoError(t, err)

			if cfg.GetSource() != "road.mp4" {
				t.Errorf("GetSource() = %q", cfg.GetSource())
			}
			if cfg.GetTrainFrames() != 50 {
				t.Errorf("GetTrainFrames() = %d, want 50", cfg.GetTrainFrames())
			}
			if cfg.GetFrameStride() != 2 {
				t.Errorf("GetFrameStride() = %d, want 2", cfg.GetFrameStride())
			}
			if cfg.GetAxisWeight() != (tracking.AxisWeight{X: 1, Y: 3}) {
				t.Errorf("GetAxisWeight() = %+v", cfg.GetAxisWeight())
			}
			zones := cfg.GetZones()
			if len(zones) != 2 || len(zones[0]) != 3 || len(zones[1]) != 4 {
				t.Errorf("GetZones() = %v", zones)
			}
			want := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
			if !cfg.GetStartTime(time.Now()).Equal(want) {
				t.Errorf("GetStartTime() = %v, want %v", cfg.GetStartTime(time.Now()), want)
			}
			// Unset fields keep their defaults.
			if cfg.GetPathSize() != tracking.DefaultPathSize {
				t.Errorf("GetPathSize() = %d", cfg.GetPathSize())
			}
			if got := cfg.GetCounterConfig().MaxMissed; got != tracking.DefaultMaxMissed {
				t.Errorf("GetCounterConfig().MaxMissed = %d, want %d", got, tracking.DefaultMaxMissed)
			}
		})
	}
}

func TestLoadCountingConfigErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"bad extension", "run.ini", "x=1", "extension"},
		{"bad json", "bad.json", "{", "failed to parse"},
		{"bad stride", "stride.json", `{"frame_stride": 0}`, "frame_stride"},
		{"bad rate", "rate.json", `{"live_learning_rate": 2}`, "live_learning_rate"},
		{"bad csv name", "csv.json", `{"csv_name": "../escape.csv"}`, "csv_name"},
		{"bad codec", "codec.json", `{"codec": "h264x"}`, "codec"},
		{"bad zone", "zone.json", `{"zones": [[[0, 0], [1, 1]]]}`, "zone 0"},
		{"bad path size", "path.json", `{"path_size": 1}`, "path size"},
		{"bad max missed", "missed.json", `{"max_missed": -1}`, "max missed"},
		{"bad history", "hist.json", `{"history": 0}`, "History"},
		{"bad interval", "interval.json", `{"report_interval": "soon"}`, "report_interval"},
		{"bad start", "start.json", `{"start_time": "yesterday"}`, "start_time"},
		{"bad weight", "weight.json", `{"axis_weight": {"x": 0, "y": 1}}`, "axis_weight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, dir, tt.file, tt.content)
			_, err := LoadCountingConfig(path)
			testutil.AssertError(t, err)
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCountingConfigMissingAndTooLarge(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadCountingConfig(dir + "/missing.json"); err == nil {
		t.Error("expected error for missing file")
	}

	big := `{"source": "` + strings.Repeat("a", maxFileSize) + `"}`
	path := testutil.WriteFile(t, dir, "big.json", big)
	_, err := LoadCountingConfig(path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected too large error, got %v", err)
	}
}
