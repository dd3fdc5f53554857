// Command treeform serves the gesture-driven tree scene to a browser
// renderer and replays recorded hand input against a running server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "treeform",
	Short: "Gesture-controlled morphing tree scene",
	Long: `treeform runs the interaction core of a 3D tree scene.

Hands seen by a detector explode the tree (open left hand), orbit the camera
(right hand position) or pull a photo into focus (right hand pinch). The
scene is streamed to a browser renderer over websockets.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
