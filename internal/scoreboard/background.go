package scoreboard

import (
	"fmt"
	"image"
	_ "image/gif"  // background decode
	_ "image/jpeg" // background decode
	_ "image/png"  // background decode
	"os"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	xdraw "golang.org/x/image/draw"
)

// FillMode selects how a background image is scaled into the canvas.
type FillMode uint8

const (
	// FillNone centers the image at native resolution.
	FillNone FillMode = iota
	// FillStretch scales width and height independently to match the
	// canvas exactly.
	FillStretch
	// FillFit scales uniformly so the whole image is visible, centered.
	FillFit
	// FillCover scales uniformly so the canvas is fully covered, centered.
	FillCover
)

// ParseFillMode maps a settings string onto a FillMode.
func ParseFillMode(s string) (FillMode, error) {
	switch strings.ToLower(s) {
	case "none":
		return FillNone, nil
	case "stretch":
		return FillStretch, nil
	case "fit":
		return FillFit, nil
	case "cover":
		return FillCover, nil
	default:
		return FillNone, fmt.Errorf("unknown fill mode %q", s)
	}
}

func (m FillMode) String() string {
	switch m {
	case FillStretch:
		return "stretch"
	case FillFit:
		return "fit"
	case FillCover:
		return "cover"
	default:
		return "none"
	}
}

// bgCache keeps decoded background images so a settings reload that does
// not change the image path avoids re-decoding on every render.
var bgCache = gocache.New(5*time.Minute, 10*time.Minute)

// loadBackground decodes the image at path, consulting the cache first.
func loadBackground(path string) (image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s|%d", path, info.ModTime().UnixNano())
	if cached, ok := bgCache.Get(key); ok {
		return cached.(image.Image), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only handle

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	bgCache.Set(key, img, gocache.DefaultExpiration)
	return img, nil
}

// drawBackground composes bg onto dst per the fill mode. Scaled regions
// larger than the canvas are clipped by the destination bounds.
func drawBackground(dst *image.RGBA, bg image.Image, mode FillMode) {
	cb := dst.Bounds()
	ib := bg.Bounds()
	cw, ch := cb.Dx(), cb.Dy()
	iw, ih := ib.Dx(), ib.Dy()
	if iw == 0 || ih == 0 {
		return
	}

	var target image.Rectangle
	switch mode {
	case FillStretch:
		target = cb
	case FillFit:
		f := min(float64(cw)/float64(iw), float64(ch)/float64(ih))
		target = centered(cb, int(float64(iw)*f), int(float64(ih)*f))
	case FillCover:
		f := max(float64(cw)/float64(iw), float64(ch)/float64(ih))
		target = centered(cb, int(float64(iw)*f), int(float64(ih)*f))
	default: // FillNone
		target = centered(cb, iw, ih)
		xdraw.Draw(dst, target, bg, ib.Min, xdraw.Over)
		return
	}
	xdraw.ApproxBiLinear.Scale(dst, target, bg, ib, xdraw.Over, nil)
}

func centered(canvas image.Rectangle, w, h int) image.Rectangle {
	x := canvas.Min.X + (canvas.Dx()-w)/2
	y := canvas.Min.Y + (canvas.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}
