package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestApplyOverrides(t *testing.T) {
	cfg := &CountingConfig{
		Source:      ptrString("file.mp4"),
		TrainFrames: ptrInt(100),
		PathSize:    ptrInt(4),
	}

	v := viper.New()
	v.Set("source", "flag.mp4")
	v.Set("frame-stride", 3)
	v.Set("seed", uint64(7))
	v.Set("save-images", true)
	cfg.ApplyOverrides(v)

	if cfg.GetSource() != "flag.mp4" {
		t.Errorf("GetSource() = %q, want flag.mp4", cfg.GetSource())
	}
	if cfg.GetFrameStride() != 3 {
		t.Errorf("GetFrameStride() = %d, want 3", cfg.GetFrameStride())
	}
	if cfg.GetSeed() != 7 {
		t.Errorf("GetSeed() = %d, want 7", cfg.GetSeed())
	}
	if !cfg.GetSaveImages() {
		t.Error("GetSaveImages() = false, want true")
	}
	// Keys not set in viper keep the file values.
	if cfg.GetTrainFrames() != 100 {
		t.Errorf("GetTrainFrames() = %d, want 100", cfg.GetTrainFrames())
	}
	if cfg.GetPathSize() != 4 {
		t.Errorf("GetPathSize() = %d, want 4", cfg.GetPathSize())
	}
}

func TestApplyOverridesFromEnv(t *testing.T) {
	t.Setenv("TRAFFIC_REPORT_DIR", "/tmp/reports")

	v := viper.New()
	v.SetEnvPrefix("TRAFFIC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfg := EmptyCountingConfig()
	cfg.ApplyOverrides(v)
	if cfg.GetReportDir() != "/tmp/reports" {
		t.Errorf("GetReportDir() = %q, want /tmp/reports", cfg.GetReportDir())
	}
	if cfg.Source != nil {
		t.Errorf("Source should stay unset, got %q", *cfg.Source)
	}
}
