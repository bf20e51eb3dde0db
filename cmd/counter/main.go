// Command counter counts vehicles crossing zones in a traffic video.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/banshee-data/traffic.count/internal/monitoring"
	"github.com/banshee-data/traffic.count/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "counter",
	Short: "Count vehicles crossing zones in a traffic video",
	Long: `counter learns the empty road from the first frames of a video, then
tracks moving vehicles and counts every one that enters a configured zone.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (TRAFFIC_* prefix, .env is loaded when present)
3. The file given with --config (.json, .toml or .yaml)
4. Built-in defaults

Examples:
  counter run --source road.mp4
  counter run --config site.toml --sqlite counts.db
  counter run --synthetic --output ./frames`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "counter", version.String())
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Human-readable debug logging")
	rootCmd.AddCommand(newRunCmd(viper.New()))
	rootCmd.AddCommand(versionCmd)
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		monitoring.Logf("counter: %v", err)
		stop()
		os.Exit(1)
	}
}
