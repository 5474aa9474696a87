package dispatch

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/draw"
)

// ErrNoFrame is returned when a payload carries no image to encode.
var ErrNoFrame = errors.New("payload has no frame")

// Encoder turns a frame into the base64 JPEG string the collector expects.
type Encoder struct {
	Quality  int
	MaxWidth int // 0 disables downscaling
}

// Encode downscales the frame when it is wider than MaxWidth, encodes it as
// JPEG and returns the base64 text.
func (e Encoder) Encode(frame image.Image) (string, error) {
	if frame == nil || frame.Bounds().Empty() {
		return "", ErrNoFrame
	}

	quality := e.Quality
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, e.fit(frame), &jpeg.Options{Quality: quality}); err != nil {
		return "", errors.Wrap(err, "encode jpeg")
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// fit scales img down to MaxWidth keeping the aspect ratio.
func (e Encoder) fit(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if e.MaxWidth <= 0 || w <= e.MaxWidth {
		return img
	}

	newH := h * e.MaxWidth / w
	if newH < 1 {
		newH = 1
	}
	resized := image.NewRGBA(image.Rect(0, 0, e.MaxWidth, newH))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}
