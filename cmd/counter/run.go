package main

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/banshee-data/traffic.count/internal/app"
	"github.com/banshee-data/traffic.count/internal/config"
	"github.com/banshee-data/traffic.count/internal/fsutil"
	"github.com/banshee-data/traffic.count/internal/monitoring"
	"github.com/banshee-data/traffic.count/internal/video"
	"github.com/banshee-data/traffic.count/internal/video/cvio"
)

const envPrefix = "TRAFFIC"

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process a video and write the count reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			logger, err := monitoring.NewZapLogger(debug || v.GetBool("debug"))
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			restore := monitoring.UseZap(logger)
			defer restore()

			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			opts, err := buildOptions(cfg, v.GetBool("synthetic"))
			if err != nil {
				return err
			}
			_, err = app.Run(cmd.Context(), opts)
			return err
		},
	}

	f := cmd.Flags()
	f.String("config", "", "Config file (.json, .toml, .yaml)")
	f.String("source", "", "Input video file or directory of frames")
	f.Bool("synthetic", false, "Use a generated demo video instead of --source")
	f.String("output", "", "Annotated output video, or a directory for PNG frames; \"none\" disables")
	f.String("codec", "", "Output FourCC")
	f.String("image-dir", "", "Directory for per-frame snapshots")
	f.String("report-dir", "", "Directory for the CSV report, charts and metrics")
	f.Bool("save-images", false, "Write mask and overlay snapshots for every frame")
	f.String("sqlite", "", "SQLite database for per-vehicle events")
	f.String("metrics-listen", "", "Serve /metrics and /status on this address")
	f.Int("train-frames", 0, "Frames used to learn the background")
	f.Int("frame-stride", 0, "Process every Nth frame")
	f.Int("resize-width", 0, "Scale frames to this width before processing")
	f.Uint64("seed", 0, "Random seed for overlay colours")
	f.String("start-time", "", "RFC 3339 wall-clock time of the first frame")

	_ = v.BindPFlags(f)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return cmd
}

// loadConfig reads --config when given and layers flag and environment
// overrides on top.
func loadConfig(v *viper.Viper) (*config.CountingConfig, error) {
	cfg := config.EmptyCountingConfig()
	if path := v.GetString("config"); path != "" {
		var err error
		if cfg, err = config.LoadCountingConfig(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyOverrides(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildOptions picks the decoder and encoder for the configured paths.
func buildOptions(cfg *config.CountingConfig, synthetic bool) (app.Options, error) {
	opts := app.Options{Config: cfg, FS: fsutil.OSFileSystem{}}

	switch source := cfg.GetSource(); {
	case synthetic:
		opts.Open = video.SyntheticOpener(cfg.GetFrameRate(), demoVideo()...)
	case source == "":
		return opts, fmt.Errorf("no input: set --source or --synthetic")
	default:
		if info, err := os.Stat(source); err == nil && info.IsDir() {
			opts.Open = video.ImageDirOpener(source, cfg.GetFrameRate())
		} else {
			opts.Open = cvio.Opener(source)
		}
	}

	output, codec := cfg.GetOutput(), cfg.GetCodec()
	switch {
	case output == "none":
	case filepath.Ext(output) == "":
		opts.NewSink = func(video.Info) (video.Sink, error) {
			return video.NewImageDirSink(opts.FS, output)
		}
	default:
		opts.NewSink = func(info video.Info) (video.Sink, error) {
			return cvio.OpenWriter(output, codec, info)
		}
	}
	return opts, nil
}

// demoVideo is an empty 320×240 road followed by one car driving down
// through the default zone.
func demoVideo() []*image.RGBA {
	var imgs []*image.RGBA
	for range 30 {
		imgs = append(imgs, video.BlankImage(320, 240, color.RGBA{R: 60, G: 60, B: 60, A: 255}))
	}
	return append(imgs, video.MovingBlock(320, 240, 40, image.Rect(140, 0, 180, 30), image.Pt(0, 8))...)
}
