package model

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
)

// Tensor layouts.
const (
	LayoutNCHW = "nchw"
	LayoutNHWC = "nhwc"
)

// LoadImage decodes a png, jpeg, gif, or bmp image from disk.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// toTensor resizes img to width x height and returns its RGB channels scaled to [0,1]
// in the requested layout. Grayscale scans are replicated across all three channels.
func toTensor(img image.Image, width, height int, layout string) []float32 {
	resized := resize.Resize(uint(width), uint(height), img, resize.Bilinear)
	bounds := resized.Bounds()

	plane := width * height
	data := make([]float32, 3*plane)

	for y := range height {
		for x := range width {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			rgb := [3]float32{
				float32(r) / 65535.0,
				float32(g) / 65535.0,
				float32(b) / 65535.0,
			}

			pixel := y*width + x
			for c, v := range rgb {
				if layout == LayoutNHWC {
					data[pixel*3+c] = v
				} else {
					data[c*plane+pixel] = v
				}
			}
		}
	}

	return data
}
