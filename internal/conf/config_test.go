package conf

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultSettings(t *testing.T) *Settings {
	t.Helper()
	viper.Reset()
	setDefaults()
	s := &Settings{}
	require.NoError(t, viper.Unmarshal(s))
	return s
}

func TestDefaultsAreValid(t *testing.T) {
	s := defaultSettings(t)
	require.NoError(t, Validate(s))

	assert.Equal(t, MaxLanes, s.Realtime.Decoder.Lanes)
	assert.Equal(t, 6, s.Realtime.Scoreboard.Lanes)
	assert.InDelta(t, 0.05, s.Realtime.Scoreboard.BorderPct, 1e-9)
	assert.Equal(t, "fit", s.Realtime.Scoreboard.Background.Fill)
	assert.Equal(t, 5*time.Second, s.Realtime.Publish.SendTimeout)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero lanes", func(s *Settings) { s.Realtime.Scoreboard.Lanes = 0 }},
		{"bad color", func(s *Settings) { s.Realtime.Scoreboard.Colors.First = "cyan" }},
		{"bad fill", func(s *Settings) { s.Realtime.Scoreboard.Background.Fill = "tile" }},
		{"border too large", func(s *Settings) { s.Realtime.Scoreboard.BorderPct = 0.5 }},
		{"no readings", func(s *Settings) { s.Realtime.Decoder.MinReadings = 0 }},
		{"zero timeout", func(s *Settings) { s.Realtime.Publish.SendTimeout = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := defaultSettings(t)
			tc.mutate(s)
			assert.Error(t, Validate(s))
		})
	}
}

func TestValidateClampsDisplayLanes(t *testing.T) {
	s := defaultSettings(t)
	s.Realtime.Scoreboard.Lanes = 9999
	require.NoError(t, Validate(s))
	assert.Equal(t, MaxLanes, s.Realtime.Scoreboard.Lanes)
}
