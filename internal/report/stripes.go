package report

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

const (
	tileSize     = 8
	stripeWidth  = 2
	minTileScale = 2
)

// StripeTile draws the 8x8 banner tile: a 2px black diagonal on white, rasterized
// at scale. The mirrored tile runs the diagonal the other way.
func StripeTile(scale int, mirrored bool) *image.NRGBA {
	if scale < minTileScale {
		scale = minTileScale
	}
	size := tileSize * scale
	img := imaging.New(size, size, color.White)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d := ((x/scale-y/scale)%tileSize + tileSize) % tileSize
			if d < stripeWidth {
				img.Set(x, y, color.Black)
			}
		}
	}
	if mirrored {
		return imaging.FlipH(img)
	}
	return img
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	return buf.Bytes(), nil
}

// normalizeImage decodes any supported image and re-encodes it as PNG so a bad
// logo is rejected before it reaches the PDF writer.
func normalizeImage(data []byte) ([]byte, image.Point, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, image.Point{}, errors.Wrap(err, "decode image")
	}
	out, err := encodePNG(img)
	if err != nil {
		return nil, image.Point{}, err
	}
	return out, img.Bounds().Size(), nil
}
