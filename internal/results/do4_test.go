package results

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCfg() DecoderConfig {
	return DecoderConfig{Lanes: 10, MinReadings: 2, MinValidTime: 0.30, MaxSpread: 0.30}
}

// buildDo4 assembles a result stream: header, one line per lane with the
// given readings, and a trailer.
func buildDo4(event, heat int, laneReadings map[int][]string) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(event) + ";" + strconv.Itoa(heat) + ";1;All\n")
	for lane := 1; lane <= 10; lane++ {
		b.WriteString("Lane" + strconv.Itoa(lane))
		readings, ok := laneReadings[lane]
		if !ok {
			readings = []string{"0", "0", "0"}
		}
		for _, r := range readings {
			b.WriteString(";" + r)
		}
		b.WriteString("\n")
	}
	b.WriteString("F679E29E3D72400AA87E1CC4CB3F7272\n")
	return b.String()
}

func TestDecodeBasicRace(t *testing.T) {
	raw := buildDo4(12, 3, map[int][]string{
		1: {"59.10", "59.12", "59.14"},
		2: {"58.00", "58.02", "58.04"},
		4: {"61.50", "61.50", "61.50"},
	})
	race, err := Decode(strings.NewReader(raw), testCfg())
	require.NoError(t, err)

	assert.Equal(t, 12, race.EventNum)
	assert.Equal(t, 3, race.Heat)
	require.Len(t, race.Lanes, 10)

	assert.InDelta(t, 59.12, race.Lanes[0].Time, 1e-9)
	assert.InDelta(t, 58.02, race.Lanes[1].Time, 1e-9)
	assert.Zero(t, race.Lanes[2].Time, "empty lane has zero time")
	assert.InDelta(t, 61.50, race.Lanes[3].Time, 1e-9)

	assert.Equal(t, 2, race.Lanes[0].Place)
	assert.Equal(t, 1, race.Lanes[1].Place)
	assert.Equal(t, 0, race.Lanes[2].Place, "empty lane is unplaced")
	assert.Equal(t, 3, race.Lanes[3].Place)
}

func TestDecodeInconsistentReadings(t *testing.T) {
	t.Run("spread too wide", func(t *testing.T) {
		raw := buildDo4(1, 1, map[int][]string{
			1: {"59.00", "59.10", "60.00"},
		})
		race, err := Decode(strings.NewReader(raw), testCfg())
		require.NoError(t, err)
		assert.Negative(t, race.Lanes[0].Time)
		assert.Zero(t, race.Lanes[0].Place)
	})

	t.Run("too few readings", func(t *testing.T) {
		raw := buildDo4(1, 1, map[int][]string{
			1: {"59.00", "0", "0"},
		})
		race, err := Decode(strings.NewReader(raw), testCfg())
		require.NoError(t, err)
		assert.Negative(t, race.Lanes[0].Time)
	})

	t.Run("two agreeing readings average", func(t *testing.T) {
		raw := buildDo4(1, 1, map[int][]string{
			1: {"59.00", "59.10", "0"},
		})
		race, err := Decode(strings.NewReader(raw), testCfg())
		require.NoError(t, err)
		assert.InDelta(t, 59.05, race.Lanes[0].Time, 1e-9)
	})
}

func TestDecodeTiesShareAPlace(t *testing.T) {
	raw := buildDo4(5, 1, map[int][]string{
		1: {"60.00", "60.00", "60.00"},
		2: {"60.00", "60.00", "60.00"},
		3: {"61.00", "61.00", "61.00"},
	})
	race, err := Decode(strings.NewReader(raw), testCfg())
	require.NoError(t, err)
	assert.Equal(t, 1, race.Lanes[0].Place)
	assert.Equal(t, 1, race.Lanes[1].Place)
	assert.Equal(t, 3, race.Lanes[2].Place, "competition ranking skips after a tie")
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"header only":    "2;1;1;All\n",
		"bad event":      buildDo4(1, 1, nil)[1:], // clips the event digit
		"missing lanes":  "2;1;1;All\nLane1;0;0;0\n",
		"wrong lane tag": strings.Replace(buildDo4(1, 1, nil), "Lane3", "Lane9", 1),
		"no trailer":     strings.TrimSuffix(buildDo4(1, 1, nil), "F679E29E3D72400AA87E1CC4CB3F7272\n"),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(raw), testCfg())
			assert.Error(t, err)
		})
	}
}
