package scoreboard

import (
	"bytes"
	"image"
	"image/png"
)

// pngEncoder trades compression ratio for speed; frames are pushed out on
// every render and devices decode them immediately.
var pngEncoder = png.Encoder{CompressionLevel: png.BestSpeed}

// EncodePNG serializes a rendered frame for publishing.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := pngEncoder.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
