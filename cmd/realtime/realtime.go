// Package realtime runs the live scoreboard pipeline.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/lanecast/lanecast/internal/conf"
	"github.com/lanecast/lanecast/internal/httpcontroller"
	"github.com/lanecast/lanecast/internal/logging"
	"github.com/lanecast/lanecast/internal/observability"
	"github.com/lanecast/lanecast/internal/pipeline"
	"github.com/lanecast/lanecast/internal/publisher"
)

// Command creates the realtime subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Watch timing output and publish the scoreboard",
		Long:  "Watch the start list and result directories, composite scoreboard frames from incoming races and fan them out to display devices.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings)
		},
	}
	setupFlags(cmd, settings)
	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().BoolVar(&settings.Realtime.Publish.MQTT.Enabled, "mqtt",
		viper.GetBool("realtime.publish.mqtt.enabled"), "Publish frames over MQTT")
	cmd.Flags().StringVar(&settings.Realtime.Publish.MQTT.Broker, "broker",
		viper.GetString("realtime.publish.mqtt.broker"), "MQTT broker URL")
	cmd.Flags().StringVar(&settings.Realtime.HTTP.Listen, "listen",
		viper.GetString("realtime.http.listen"), "Control API listen address")
	cmd.Flags().IntVar(&settings.Realtime.Scoreboard.Lanes, "lanes",
		viper.GetInt("realtime.scoreboard.lanes"), "Number of lanes to display")

	_ = viper.BindPFlag("realtime.publish.mqtt.enabled", cmd.Flags().Lookup("mqtt"))
	_ = viper.BindPFlag("realtime.publish.mqtt.broker", cmd.Flags().Lookup("broker"))
	_ = viper.BindPFlag("realtime.http.listen", cmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("realtime.scoreboard.lanes", cmd.Flags().Lookup("lanes"))
}

func run(settings *conf.Settings) error {
	logger := logging.ForService("realtime")
	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics setup: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Broker transport when configured, otherwise a local-only pipeline
	// with statically configured devices and the HTTP preview.
	var (
		sender    publisher.Sender
		discovery publisher.DiscoverySource
	)
	if settings.Realtime.Publish.MQTT.Enabled {
		m := publisher.NewMQTT(settings.Realtime.Publish.MQTT, logger.With("stage", "mqtt"))
		if err := m.Connect(ctx); err != nil {
			return err
		}
		defer m.Close()
		sender = m
		discovery = m
	} else {
		sender = publisher.NopSender{}
		discovery = publisher.NewStaticDiscovery(settings.Realtime.Publish.Devices)
	}

	p, err := pipeline.New(settings, sender, discovery, metrics, logger)
	if err != nil {
		return err
	}
	if err := p.Start(ctx, settings); err != nil {
		return err
	}
	defer p.Stop()

	conf.Subscribe(func(s *conf.Settings) {
		logging.SetLevel(s.Main.Log.Level)
	})
	conf.WatchConfig(logger)

	logger.Info("scoreboard running",
		"startlists", settings.Realtime.StartListDir,
		"results", settings.Realtime.ResultDir)

	g, gctx := errgroup.WithContext(ctx)
	if settings.Realtime.HTTP.Enabled {
		server := httpcontroller.New(&settings.Realtime.HTTP, p, metrics, logger.With("stage", "http"))
		g.Go(func() error {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	} else {
		g.Go(func() error {
			<-gctx.Done()
			return nil
		})
	}

	err = g.Wait()
	logger.Info("shutting down")
	return err
}
