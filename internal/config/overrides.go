package config

import "github.com/spf13/viper"

// OverrideKeys are the flag names ApplyOverrides understands.
var OverrideKeys = []string{
	"source", "output", "codec", "image-dir", "report-dir", "save-images",
	"sqlite", "metrics-listen", "train-frames", "frame-stride", "resize-width",
	"seed", "start-time",
}

// ApplyOverrides replaces fields whose key is set in v, either by a changed
// flag or an environment variable. Unset keys leave the file value alone.
func (c *CountingConfig) ApplyOverrides(v *viper.Viper) {
	for _, key := range OverrideKeys {
		if !v.IsSet(key) {
			continue
		}
		switch key {
		case "source":
			c.Source = ptrString(v.GetString(key))
		case "output":
			c.Output = ptrString(v.GetString(key))
		case "codec":
			c.Codec = ptrString(v.GetString(key))
		case "image-dir":
			c.ImageDir = ptrString(v.GetString(key))
		case "report-dir":
			c.ReportDir = ptrString(v.GetString(key))
		case "save-images":
			c.SaveImages = ptrBool(v.GetBool(key))
		case "sqlite":
			c.SQLitePath = ptrString(v.GetString(key))
		case "metrics-listen":
			c.Metrics = ptrString(v.GetString(key))
		case "train-frames":
			c.TrainFrames = ptrInt(v.GetInt(key))
		case "frame-stride":
			c.FrameStride = ptrInt(v.GetInt(key))
		case "resize-width":
			c.ResizeWidth = ptrInt(v.GetInt(key))
		case "seed":
			c.Seed = ptrUint64(v.GetUint64(key))
		case "start-time":
			c.StartTime = ptrString(v.GetString(key))
		}
	}
}
