// Package cmd builds the command tree.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lanecast/lanecast/cmd/realtime"
	"github.com/lanecast/lanecast/cmd/render"
	"github.com/lanecast/lanecast/cmd/results"
	"github.com/lanecast/lanecast/cmd/startlists"
	"github.com/lanecast/lanecast/internal/conf"
	"github.com/lanecast/lanecast/internal/logging"
)

// RootCommand assembles the root command and its subcommands.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lanecast",
		Short: "Swim meet live scoreboard",
		Long:  "lanecast watches timing system output directories and publishes a live scoreboard to display devices.",
		// Logging is initialized before flag parsing, so the loglevel
		// flag is applied here once its value is known.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetLevel(settings.Main.Log.Level)
		},
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		realtime.Command(settings),
		render.Command(settings),
		startlists.Command(settings),
		results.Command(settings),
	)

	return rootCmd
}

// setupFlags wires global flags shared by every subcommand.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.PersistentFlags().StringVar(&settings.Realtime.StartListDir, "startlists",
		viper.GetString("realtime.startlistdir"), "Directory containing start list files")
	cmd.PersistentFlags().StringVar(&settings.Realtime.ResultDir, "results",
		viper.GetString("realtime.resultdir"), "Directory containing race result files")
	cmd.PersistentFlags().StringVar(&settings.Main.Log.Level, "loglevel",
		viper.GetString("main.log.level"), "Log level (debug, info, warn, error)")

	_ = viper.BindPFlag("realtime.startlistdir", cmd.PersistentFlags().Lookup("startlists"))
	_ = viper.BindPFlag("realtime.resultdir", cmd.PersistentFlags().Lookup("results"))
	_ = viper.BindPFlag("main.log.level", cmd.PersistentFlags().Lookup("loglevel"))
}
