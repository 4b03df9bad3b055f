// Package scoreboard composes race results into scoreboard images. Render
// is a pure function: identical inputs always yield pixel-identical output.
package scoreboard

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/lanecast/lanecast/internal/conf"
	"github.com/lanecast/lanecast/internal/errors"
	"github.com/lanecast/lanecast/internal/results"
)

// Config is the resolved render configuration: parsed colors, a decoded
// background image and validated fractions. Build one with
// ConfigFromSettings whenever settings change.
type Config struct {
	Title        string
	Lanes        int
	BorderPct    float64
	HeaderGapPct float64

	BackgroundColor color.RGBA
	TextColor       color.RGBA
	TitleColor      color.RGBA
	FirstColor      color.RGBA
	SecondColor     color.RGBA
	ThirdColor      color.RGBA
	EvenRowColor    color.RGBA
	OddRowColor     color.RGBA

	Background image.Image // nil for a plain color background
	Fill       FillMode
}

// ConfigFromSettings parses the scoreboard settings into a render config.
// A background image that fails to load degrades to a plain background
// rather than failing the render pipeline.
func ConfigFromSettings(s *conf.ScoreboardSettings) (Config, error) {
	cfg := Config{
		Title:        s.Title,
		Lanes:        min(s.Lanes, conf.MaxLanes),
		BorderPct:    s.BorderPct,
		HeaderGapPct: s.HeaderGapPct,
	}

	colorFields := []struct {
		dst *color.RGBA
		hex string
	}{
		{&cfg.BackgroundColor, s.Colors.Background},
		{&cfg.TextColor, s.Colors.Text},
		{&cfg.TitleColor, s.Colors.Title},
		{&cfg.FirstColor, s.Colors.First},
		{&cfg.SecondColor, s.Colors.Second},
		{&cfg.ThirdColor, s.Colors.Third},
		{&cfg.EvenRowColor, s.Colors.EvenRow},
		{&cfg.OddRowColor, s.Colors.OddRow},
	}
	for _, cf := range colorFields {
		c, err := parseHexColor(cf.hex)
		if err != nil {
			return Config{}, errors.New(err).
				Component("scoreboard").
				Category(errors.CategoryConfiguration).
				Build()
		}
		*cf.dst = c
	}

	mode, err := ParseFillMode(s.Background.Fill)
	if err != nil {
		return Config{}, errors.New(err).
			Component("scoreboard").
			Category(errors.CategoryConfiguration).
			Build()
	}
	cfg.Fill = mode

	if s.Background.Image != "" {
		img, err := loadBackground(s.Background.Image)
		if err == nil {
			cfg.Background = img
		}
	}
	return cfg, nil
}

// renderMu serializes frame composition: the cached opentype faces are not
// safe for concurrent use.
var renderMu sync.Mutex

// Render draws a race result, or the waiting board when race is nil, onto
// a fresh canvas of the given size. Safe for concurrent use.
func Render(race *results.RaceResult, cfg Config, width, height int) (*image.RGBA, error) {
	renderMu.Lock()
	defer renderMu.Unlock()

	layout := ComputeLayout(width, height, cfg.Lanes, cfg.BorderPct, cfg.HeaderGapPct)
	face, err := faceForSize(layout.FontSize)
	if err != nil {
		return nil, errors.New(err).
			Component("scoreboard").
			Category(errors.CategoryImageRender).
			Build()
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fillRect(img, cfg.BackgroundColor)
	if cfg.Background != nil {
		drawBackground(img, cfg.Background, cfg.Fill)
	}

	if race != nil {
		drawText(img, face, layout.EventHeat, cfg.TextColor,
			fmt.Sprintf("E: %d / H: %d", race.EventNum, race.Heat))
		drawText(img, face, layout.Description, cfg.TextColor, race.Description)
	} else {
		// Waiting board: title where the event description goes.
		drawText(img, face, layout.Description, cfg.TitleColor, cfg.Title)
	}

	drawText(img, face, layout.HdrLane, cfg.TextColor, "Lane")
	drawText(img, face, layout.HdrName, cfg.TextColor, "Name")
	drawText(img, face, layout.HdrTime, cfg.TextColor, "Time")

	// Rows exist for the full capacity; those past the displayed count
	// stay empty but keep their slot.
	for i := 0; i < conf.MaxLanes; i++ {
		if i >= cfg.Lanes {
			continue
		}
		rowColor := cfg.OddRowColor
		if i%2 == 1 {
			rowColor = cfg.EvenRowColor
		}
		drawText(img, face, layout.LaneIdx[i], rowColor, strconv.Itoa(i+1))

		if race == nil {
			continue
		}
		lane, ok := race.Swimmer(i + 1)
		if !ok {
			continue
		}
		drawText(img, face, layout.LanePlace[i], placeColor(lane.Place, cfg, rowColor),
			FormatPlace(lane.Place))
		drawText(img, face, layout.LaneName[i], rowColor, lane.Name)
		drawText(img, face, layout.LaneTime[i], rowColor, FormatTime(lane.Time))
	}
	return img, nil
}

func placeColor(place int, cfg Config, fallback color.RGBA) color.RGBA {
	switch place {
	case 1:
		return cfg.FirstColor
	case 2:
		return cfg.SecondColor
	case 3:
		return cfg.ThirdColor
	default:
		return fallback
	}
}

// drawText renders one string anchored within its box, clipping anything
// past the box width instead of wrapping.
func drawText(img *image.RGBA, face font.Face, box Box, col color.RGBA, text string) {
	if text == "" {
		return
	}

	advance := font.MeasureString(face, text).Ceil()
	var x int
	switch box.Anchor {
	case AnchorRight:
		x = box.X - min(advance, box.Width)
	case AnchorCenter:
		x = box.X - min(advance, box.Width)/2
	default:
		x = box.X
	}

	metrics := face.Metrics()
	clip := image.Rect(
		x, box.Baseline-metrics.Ascent.Ceil(),
		x+box.Width, box.Baseline+metrics.Descent.Ceil(),
	)

	d := font.Drawer{
		Dst:  img.SubImage(clip.Intersect(img.Bounds())).(*image.RGBA),
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, box.Baseline),
	}
	d.DrawString(text)
}

func fillRect(img *image.RGBA, col color.RGBA) {
	draw.Draw(img, img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

// parseHexColor decodes "#RRGGBB".
func parseHexColor(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xFF,
	}, nil
}
