// Package startlists prints the parsed start list table for a directory.
package startlists

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lanecast/lanecast/internal/conf"
	"github.com/lanecast/lanecast/internal/logging"
	"github.com/lanecast/lanecast/internal/startlist"
)

// Command creates the startlists subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "startlists",
		Short: "List the start lists found in the configured directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings)
		},
	}
}

func run(settings *conf.Settings) error {
	store := startlist.NewStore(logging.ForService("startlists"))
	if err := store.Rescan(settings.Realtime.StartListDir); err != nil {
		return err
	}

	entries := store.Events()
	if len(entries) == 0 {
		fmt.Println("no start lists found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EVENT\tDESCRIPTION\tHEATS")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%d\n", e.EventNum, e.Description, e.Heats)
	}
	return w.Flush()
}
