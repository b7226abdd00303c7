package model

import (
	"image"

	"golang.org/x/image/draw"
)

// imageToTensor converts an image to a size x size single-channel float32
// tensor in NHWC order, rescaled from [0, 255] to [0, 1] by linear division.
func imageToTensor(img image.Image, size int) []float32 {
	gray := toGray(img, size)

	data := make([]float32, size*size)
	for y := 0; y < size; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+size]
		for x := 0; x < size; x++ {
			data[y*size+x] = float32(row[x]) / 255.0
		}
	}

	return data
}

// toGray resizes the image to size x size with bilinear interpolation and
// collapses it to a single luminance channel.
func toGray(img image.Image, size int) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, size, size))

	if g, ok := img.(*image.Gray); ok && bounds.Dx() == size && bounds.Dy() == size && g.Stride == gray.Stride {
		copy(gray.Pix, g.Pix)
		return gray
	}

	draw.BiLinear.Scale(gray, gray.Bounds(), img, bounds, draw.Src, nil)
	return gray
}
