package conf

import (
	"regexp"
	"strings"

	"github.com/lanecast/lanecast/internal/errors"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Validate checks settings for values the pipeline cannot work with.
// Directory paths are not checked here: a missing watched directory is a
// runtime condition the watcher handles, not a configuration error.
func Validate(s *Settings) error {
	if s.Realtime.Decoder.Lanes < 1 || s.Realtime.Decoder.Lanes > MaxLanes {
		return validationError("decoder lane capacity out of range", "lanes", s.Realtime.Decoder.Lanes)
	}
	if s.Realtime.Decoder.MinReadings < 1 {
		return validationError("decoder needs at least one reading", "minreadings", s.Realtime.Decoder.MinReadings)
	}
	if s.Realtime.Decoder.MinValidTime < 0 {
		return validationError("minimum valid time cannot be negative", "minvalidtime", s.Realtime.Decoder.MinValidTime)
	}

	sb := &s.Realtime.Scoreboard
	if sb.Lanes < 1 {
		return validationError("scoreboard must display at least one lane", "lanes", sb.Lanes)
	}
	// Values above the cap are clamped rather than rejected; the timing
	// console occasionally reports pools larger than the board supports.
	if sb.Lanes > MaxLanes {
		sb.Lanes = MaxLanes
	}
	if sb.BorderPct < 0 || sb.BorderPct >= 0.5 {
		return validationError("border fraction out of range", "borderpct", sb.BorderPct)
	}
	if sb.HeaderGapPct < 0 || sb.HeaderGapPct >= 0.5 {
		return validationError("header gap fraction out of range", "headergappct", sb.HeaderGapPct)
	}
	for name, val := range map[string]string{
		"background": sb.Colors.Background,
		"text":       sb.Colors.Text,
		"title":      sb.Colors.Title,
		"first":      sb.Colors.First,
		"second":     sb.Colors.Second,
		"third":      sb.Colors.Third,
		"evenrow":    sb.Colors.EvenRow,
		"oddrow":     sb.Colors.OddRow,
	} {
		if !hexColorPattern.MatchString(val) {
			return validationError("color must be #RRGGBB", "color."+name, val)
		}
	}
	switch strings.ToLower(sb.Background.Fill) {
	case "none", "stretch", "fit", "cover":
	default:
		return validationError("unknown background fill mode", "fill", sb.Background.Fill)
	}

	if s.Realtime.Publish.SendTimeout <= 0 {
		return validationError("publish send timeout must be positive", "sendtimeout", s.Realtime.Publish.SendTimeout)
	}
	return nil
}

func validationError(msg, key string, val any) error {
	return errors.Newf("%s", msg).
		Component("conf").
		Category(errors.CategoryValidation).
		Context(key, val).
		Build()
}
