package spectrogram

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
)

// Renderer rasterizes a decibel spectrogram into a grayscale image with a
// linear time axis, a logarithmic frequency axis, and a reversed gray map
// (0 dB relative to peak renders black, the -80 dB floor renders white).
// No axes, ticks, or padding are drawn; every pixel is time-frequency content.
type Renderer struct {
	width  int
	height int
}

// NewRenderer creates a renderer producing width x height images.
func NewRenderer(width, height int) (*Renderer, error) {
	if width < 16 || height < 16 {
		return nil, fmt.Errorf("image dimensions must be at least 16x16, got %dx%d", width, height)
	}

	return &Renderer{width: width, height: height}, nil
}

// Render rasterizes db (a [frame][bin] matrix in [-80, 0]) into a grayscale
// image. sampleRate and frameSize define the frequency of each bin.
func (r *Renderer) Render(db [][]float64, sampleRate, frameSize int) (*image.Gray, error) {
	if len(db) == 0 || len(db[0]) == 0 {
		return nil, fmt.Errorf("%w: empty spectrogram matrix", ErrRender)
	}

	if sampleRate <= 0 || frameSize <= 0 {
		return nil, fmt.Errorf("%w: invalid geometry (rate %d, frame %d)", ErrRender, sampleRate, frameSize)
	}

	numFrames := len(db)
	bins := len(db[0])

	// Log-frequency axis spans the first non-DC bin to Nyquist; row 0 is
	// the top of the image (highest frequency).
	binHz := float64(sampleRate) / float64(frameSize)
	fMin := binHz
	fMax := float64(sampleRate) / 2
	logRatio := math.Log(fMax / fMin)

	img := image.NewGray(image.Rect(0, 0, r.width, r.height))

	for y := 0; y < r.height; y++ {
		frac := float64(y) / float64(r.height-1)
		freq := fMax * math.Exp(-frac*logRatio)

		// Linear interpolation between the two surrounding bins.
		pos := freq / binHz
		b0 := int(pos)
		if b0 >= bins-1 {
			b0 = bins - 2
		}
		t := pos - float64(b0)

		for x := 0; x < r.width; x++ {
			f := x * numFrames / r.width
			if f >= numFrames {
				f = numFrames - 1
			}

			v := db[f][b0]*(1-t) + db[f][b0+1]*t
			img.Pix[y*img.Stride+x] = grayLevel(v)
		}
	}

	return img, nil
}

// RenderPNG rasterizes db and writes it as PNG.
func (r *Renderer) RenderPNG(w io.Writer, db [][]float64, sampleRate, frameSize int) error {
	img, err := r.Render(db, sampleRate, frameSize)
	if err != nil {
		return err
	}

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("%w: png encode: %v", ErrRender, err)
	}

	return nil
}

// grayLevel maps [-80, 0] dB to a reversed gray value (louder is darker).
func grayLevel(db float64) uint8 {
	norm := (db - dbFloor) / -dbFloor
	if norm < 0 {
		norm = 0
	}
	if norm > 1 {
		norm = 1
	}
	return uint8(math.Round(255 * (1 - norm)))
}

// Generator is the complete segment-to-image path: noise reduction, STFT,
// peak-referenced dB conversion, raster render.
type Generator struct {
	stft     *STFT
	denoiser *Denoiser
	renderer *Renderer
}

// NewGenerator builds the render path for the given STFT geometry and image size.
func NewGenerator(frameSize, hopSize, imageWidth, imageHeight int) (*Generator, error) {
	stft, err := NewSTFT(frameSize, hopSize)
	if err != nil {
		return nil, err
	}

	renderer, err := NewRenderer(imageWidth, imageHeight)
	if err != nil {
		return nil, err
	}

	return &Generator{
		stft:     stft,
		denoiser: NewDenoiser(stft),
		renderer: renderer,
	}, nil
}

// Generate converts a waveform into the rendered spectrogram image.
func (g *Generator) Generate(samples []float64, sampleRate int) (*image.Gray, error) {
	denoised, err := g.denoiser.Reduce(samples)
	if err != nil {
		return nil, err
	}

	mags, err := g.stft.Magnitudes(denoised)
	if err != nil {
		return nil, err
	}

	return g.renderer.Render(AmplitudeToDB(mags), sampleRate, g.stft.FrameSize())
}

// GenerateFile renders the spectrogram and persists it as PNG at path.
// The file is request-scoped; callers own its lifecycle.
func (g *Generator) GenerateFile(samples []float64, sampleRate int, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrRender, path, err)
	}
	defer f.Close()

	return g.GeneratePNG(f, samples, sampleRate)
}

// GeneratePNG runs the full path and writes PNG output to w.
func (g *Generator) GeneratePNG(w io.Writer, samples []float64, sampleRate int) error {
	denoised, err := g.denoiser.Reduce(samples)
	if err != nil {
		return err
	}

	mags, err := g.stft.Magnitudes(denoised)
	if err != nil {
		return err
	}

	return g.renderer.RenderPNG(w, AmplitudeToDB(mags), sampleRate, g.stft.FrameSize())
}
