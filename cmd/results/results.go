// Package results prints the summary listing of race result files.
package results

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lanecast/lanecast/internal/conf"
	"github.com/lanecast/lanecast/internal/logging"
	ingest "github.com/lanecast/lanecast/internal/results"
	"github.com/lanecast/lanecast/internal/startlist"
)

// Command creates the results subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "results",
		Short: "List the race results found in the configured directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings)
		},
	}
}

func run(settings *conf.Settings) error {
	logger := logging.ForService("results")
	store := startlist.NewStore(logger)
	ingestor := ingest.NewIngestor(store,
		ingest.DefaultDecoderConfig(&settings.Realtime.Decoder), logger, nil)

	summaries, err := ingestor.Rescan(settings.Realtime.ResultDir)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("no results found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MEET\tEVENT\tHEAT\tTIME")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n",
			s.Meet, s.Event, s.Heat, s.ModTime.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
