package scoreboard

import (
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

var (
	fontOnce   sync.Once
	fontParsed *sfnt.Font
	fontErr    error

	faceMu    sync.Mutex
	faceCache = map[int]font.Face{}
)

// faceForSize returns a bold face at the given pixel size. Faces are cached
// because layout recomputation produces the same handful of sizes over and
// over.
func faceForSize(px int) (font.Face, error) {
	fontOnce.Do(func() {
		fontParsed, fontErr = opentype.Parse(gobold.TTF)
	})
	if fontErr != nil {
		return nil, fontErr
	}

	faceMu.Lock()
	defer faceMu.Unlock()
	if f, ok := faceCache[px]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(fontParsed, &opentype.FaceOptions{
		Size:    float64(px),
		DPI:     72, // size in points equals pixels at 72 dpi
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	faceCache[px] = f
	return f, nil
}
