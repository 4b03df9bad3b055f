package main

import (
	"fmt"
	"os"

	"github.com/lanecast/lanecast/cmd"
	"github.com/lanecast/lanecast/internal/conf"
	"github.com/lanecast/lanecast/internal/logging"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init(&settings.Main.Log)
	defer logging.Close() //nolint:errcheck // best effort flush on exit

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
