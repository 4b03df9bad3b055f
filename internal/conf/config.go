// Package conf defines the application settings and functions to load and
// watch them. Settings are read from a YAML config file, environment
// variables and command line flags via viper.
package conf

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/viper"

	"github.com/lanecast/lanecast/internal/errors"
)

// Settings is the root of the application configuration.
type Settings struct {
	Main     MainSettings
	Realtime RealtimeSettings
}

// MainSettings contains application wide options.
type MainSettings struct {
	Name string      // instance name, used as MQTT client id
	Log  LogSettings // logging configuration
}

// LogSettings controls structured log output.
type LogSettings struct {
	Level      string // minimum level: debug, info, warn, error
	Path       string // log file path, empty disables file logging
	MaxSize    int    // megabytes before the log file is rotated
	MaxBackups int    // rotated files to retain
	MaxAge     int    // days to retain rotated files
}

// RealtimeSettings contains settings for the live scoreboard pipeline.
type RealtimeSettings struct {
	StartListDir string // directory watched for start list files
	ResultDir    string // directory watched for race result files
	Decoder      DecoderSettings
	Scoreboard   ScoreboardSettings
	Publish      PublishSettings
	HTTP         HTTPSettings
}

// DecoderSettings parameterize the race result decoder.
type DecoderSettings struct {
	Lanes        int     // lane capacity of the pool
	MinReadings  int     // watch readings required for a valid final time
	MinValidTime float64 // readings below this many seconds are discarded
	MaxSpread    float64 // max seconds between readings before the time is inconsistent
}

// ScoreboardSettings controls the rendered image appearance.
type ScoreboardSettings struct {
	Title        string  // title shown on the waiting screen
	Lanes        int     // number of lanes to display, capped at MaxLanes
	BorderPct    float64 // canvas fraction reserved as border on all sides
	HeaderGapPct float64 // extra height fraction between header and lane grid
	Colors       ColorSettings
	Background   BackgroundSettings
}

// ColorSettings holds scoreboard colors as #RRGGBB strings.
type ColorSettings struct {
	Background string // canvas background
	Text       string // default text color
	Title      string // waiting screen title
	First      string // place 1 highlight
	Second     string // place 2 highlight
	Third      string // place 3 highlight
	EvenRow    string // even lane rows
	OddRow     string // odd lane rows
}

// BackgroundSettings optionally place an image behind the scoreboard text.
type BackgroundSettings struct {
	Image string // path to background image, empty for solid color
	Fill  string // scaling policy: none, stretch, fit or cover
}

// PublishSettings configure delivery of rendered frames to display devices.
type PublishSettings struct {
	SendTimeout time.Duration  // per device delivery timeout
	Devices     []StaticDevice // statically configured devices
	MQTT        MQTTSettings
}

// StaticDevice declares a display device in the config file instead of
// relying on discovery.
type StaticDevice struct {
	ID   string // device identity, a UUID
	Name string // friendly name shown in status output
}

// MQTTSettings configure the MQTT frame transport and device discovery.
type MQTTSettings struct {
	Enabled        bool
	Broker         string        // broker URL, e.g. tcp://localhost:1883
	Username       string
	Password       string
	TopicPrefix    string        // frames publish to <prefix>/<device id>/frame
	DiscoveryTopic string        // displays announce themselves here
	DeviceTTL      time.Duration // drop discovered devices silent for this long
}

// HTTPSettings configure the status and preview HTTP server.
type HTTPSettings struct {
	Enabled bool
	Listen  string // listen address, e.g. :8185
}

var (
	current  atomic.Pointer[Settings]
	loadOnce sync.Once
	loadErr  error
)

// Load reads the configuration from file, environment and defaults.
// It is safe to call multiple times; the file is only read once.
func Load() (*Settings, error) {
	loadOnce.Do(func() {
		loadErr = initViper()
		if loadErr != nil {
			return
		}
		s := &Settings{}
		if err := viper.Unmarshal(s); err != nil {
			loadErr = errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("operation", "unmarshal").
				Build()
			return
		}
		if err := Validate(s); err != nil {
			loadErr = err
			return
		}
		current.Store(s)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return current.Load(), nil
}

// Setting returns the current settings snapshot. Load must have succeeded.
func Setting() *Settings {
	s := current.Load()
	if s == nil {
		panic("conf.Setting called before conf.Load")
	}
	return s
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := configPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("lanecast")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// No config file is fine, defaults plus env apply.
			return nil
		}
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "read_config").
			Build()
	}
	return nil
}

// configPaths returns the list of directories searched for config.yaml.
func configPaths() ([]string, error) {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "lanecast"))
	}
	paths = append(paths, "/etc/lanecast")
	return paths, nil
}

// ConfigFileUsed reports the path of the loaded config file, if any.
func ConfigFileUsed() string { return viper.ConfigFileUsed() }
