package model

import (
	"image"
	"image/color"
	"testing"
)

func TestImageToTensorScaling(t *testing.T) {
	size := 4
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(y * 60)})
		}
	}

	tensor := imageToTensor(img, size)

	if len(tensor) != size*size {
		t.Fatalf("Expected %d values, got %d", size*size, len(tensor))
	}
	for y := 0; y < size; y++ {
		expected := float32(y*60) / 255.0
		for x := 0; x < size; x++ {
			if tensor[y*size+x] != expected {
				t.Errorf("Pixel (%d,%d): expected %f, got %f", x, y, expected, tensor[y*size+x])
			}
		}
	}
}

func TestImageToTensorRange(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 4)
	}

	tensor := imageToTensor(img, 8)
	for i, v := range tensor {
		if v < 0 || v > 1 {
			t.Errorf("Value %d out of range [0,1]: %f", i, v)
		}
	}
}

func TestImageToTensorResizes(t *testing.T) {
	// A larger uniform image must resize to the target without changing
	// the value.
	img := image.NewGray(image.Rect(0, 0, 448, 448))
	for i := range img.Pix {
		img.Pix[i] = 128
	}

	tensor := imageToTensor(img, 224)
	if len(tensor) != 224*224 {
		t.Fatalf("Expected %d values, got %d", 224*224, len(tensor))
	}
	expected := float32(128) / 255.0
	for i, v := range tensor {
		if v != expected {
			t.Fatalf("Value %d: expected %f, got %f", i, expected, v)
		}
	}
}

func TestImageToTensorColorInput(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}

	tensor := imageToTensor(img, 16)
	for i, v := range tensor {
		if v < 0.7 || v > 0.85 {
			t.Errorf("Value %d: expected light gray near 0.78, got %f", i, v)
		}
	}
}
