// Package render composites a single scoreboard frame to a PNG file,
// useful for checking colors and layout without a timing system attached.
package render

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lanecast/lanecast/internal/conf"
	"github.com/lanecast/lanecast/internal/logging"
	"github.com/lanecast/lanecast/internal/results"
	"github.com/lanecast/lanecast/internal/scoreboard"
	"github.com/lanecast/lanecast/internal/startlist"
)

// Command creates the render subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		resultFile string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one scoreboard frame to a PNG file",
		Long:  "Render the waiting board, or the board for a given result file, using the configured colors and layout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings, resultFile, output)
		},
	}
	cmd.Flags().StringVar(&resultFile, "result", "", "Result file to render (omit for the waiting board)")
	cmd.Flags().StringVar(&output, "output", "scoreboard.png", "Output PNG path")
	return cmd
}

func run(settings *conf.Settings, resultFile, output string) error {
	logger := logging.ForService("render")

	var race *results.RaceResult
	if resultFile != "" {
		var err error
		race, err = results.DecodeFile(resultFile, results.DefaultDecoderConfig(&settings.Realtime.Decoder))
		if err != nil {
			return err
		}
		mergeNames(settings.Realtime.StartListDir, race, logger)
	}

	cfg, err := scoreboard.ConfigFromSettings(&settings.Realtime.Scoreboard)
	if err != nil {
		return err
	}
	img, err := scoreboard.Render(race, cfg, conf.ImageWidth, conf.ImageHeight)
	if err != nil {
		return err
	}
	png, err := scoreboard.EncodePNG(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, png, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d bytes)\n", output, len(png))
	return nil
}

// mergeNames attaches swimmer identity when the matching start list is
// available; rendering proceeds without it otherwise.
func mergeNames(dir string, race *results.RaceResult, logger *slog.Logger) {
	if dir == "" {
		return
	}
	entry, err := startlist.ParseFile(filepath.Join(dir, startlist.FileForEvent(race.EventNum)))
	if err != nil {
		logger.Debug("no start list for result", "event", race.EventNum, "error", err)
		return
	}
	race.Description = entry.Description
	for i := range race.Lanes {
		if sw, ok := entry.Swimmer(race.Heat, race.Lanes[i].Lane); ok {
			race.Lanes[i].Name = sw.Name
			race.Lanes[i].Team = sw.Team
		}
	}
}
