package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults registers the default value for every setting so a missing
// config file still yields a working configuration.
func setDefaults() {
	// Main
	viper.SetDefault("main.name", "lanecast")
	viper.SetDefault("main.log.level", "info")
	viper.SetDefault("main.log.path", "")
	viper.SetDefault("main.log.maxsize", 10)
	viper.SetDefault("main.log.maxbackups", 3)
	viper.SetDefault("main.log.maxage", 28)

	// Watched directories
	viper.SetDefault("realtime.startlistdir", "")
	viper.SetDefault("realtime.resultdir", "")

	// Result decoder
	viper.SetDefault("realtime.decoder.lanes", MaxLanes)
	viper.SetDefault("realtime.decoder.minreadings", 2)
	viper.SetDefault("realtime.decoder.minvalidtime", 0.30)
	viper.SetDefault("realtime.decoder.maxspread", 0.30)

	// Scoreboard appearance
	viper.SetDefault("realtime.scoreboard.title", "Lane Cast")
	viper.SetDefault("realtime.scoreboard.lanes", 6)
	viper.SetDefault("realtime.scoreboard.borderpct", 0.05)
	viper.SetDefault("realtime.scoreboard.headergappct", 0.05)
	viper.SetDefault("realtime.scoreboard.colors.background", "#000000")
	viper.SetDefault("realtime.scoreboard.colors.text", "#FFFFFF")
	viper.SetDefault("realtime.scoreboard.colors.title", "#FFFFFF")
	viper.SetDefault("realtime.scoreboard.colors.first", "#00FFFF")
	viper.SetDefault("realtime.scoreboard.colors.second", "#FF0000")
	viper.SetDefault("realtime.scoreboard.colors.third", "#FFFF00")
	viper.SetDefault("realtime.scoreboard.colors.evenrow", "#FFFFFF")
	viper.SetDefault("realtime.scoreboard.colors.oddrow", "#CCCCCC")
	viper.SetDefault("realtime.scoreboard.background.image", "")
	viper.SetDefault("realtime.scoreboard.background.fill", "fit")

	// Frame publishing
	viper.SetDefault("realtime.publish.sendtimeout", 5*time.Second)
	viper.SetDefault("realtime.publish.devices", []StaticDevice{})
	viper.SetDefault("realtime.publish.mqtt.enabled", false)
	viper.SetDefault("realtime.publish.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("realtime.publish.mqtt.username", "")
	viper.SetDefault("realtime.publish.mqtt.password", "")
	viper.SetDefault("realtime.publish.mqtt.topicprefix", "lanecast/displays")
	viper.SetDefault("realtime.publish.mqtt.discoverytopic", "lanecast/displays/announce")
	viper.SetDefault("realtime.publish.mqtt.devicettl", 90*time.Second)

	// Status and preview HTTP server
	viper.SetDefault("realtime.http.enabled", true)
	viper.SetDefault("realtime.http.listen", ":8185")
}
