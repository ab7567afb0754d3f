package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrDecode reports that source bytes could not be decoded as an image.
var ErrDecode = errors.New("image decode failed")

// LadderLevel is one rung of the compression ladder: a maximum output width
// and a JPEG quality to encode at.
type LadderLevel struct {
	MaxWidth int
	Quality  int
}

// Options controls normalization output.
type Options struct {
	// Width and Height are the exact output frame dimensions.
	Width  int
	Height int
	// ByteBudget is the soft cap on encoded frame size. Zero disables the
	// ladder walk and the first level's encoding is kept.
	ByteBudget int
	// Ladder is walked top to bottom until an encoding fits the budget.
	Ladder []LadderLevel
}

// Frame is a normalized scene image: the full-resolution raster plus the
// budgeted JPEG encoding of it.
type Frame struct {
	// Raster is the cover-scaled, center-cropped image at exactly
	// Options.Width x Options.Height.
	Raster *image.RGBA
	// Encoded is the JPEG chosen by the ladder walk. It may be narrower
	// than Raster when a reduced rung was needed to fit the budget.
	Encoded []byte
	// EncodedWidth and EncodedHeight are the dimensions of Encoded.
	EncodedWidth  int
	EncodedHeight int
	// Quality is the JPEG quality Encoded was produced at.
	Quality int
	// BudgetMet is false when even the lowest rung exceeded ByteBudget and
	// that rung's encoding was kept anyway.
	BudgetMet bool
}

// ByteSize reports the size of the chosen encoding.
func (f *Frame) ByteSize() int { return len(f.Encoded) }

// Decode parses source bytes into an image. JPEG, PNG, GIF and WebP are
// accepted; anything else maps to ErrDecode.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// Normalize decodes source bytes, cover-scales and center-crops them to the
// target frame, and walks the compression ladder for an encoding within
// budget. The raster always comes out at exactly the requested dimensions
// regardless of the source aspect ratio.
func Normalize(data []byte, opts Options) (*Frame, error) {
	raster, err := Prepare(data, opts.Width, opts.Height)
	if err != nil {
		return nil, err
	}
	return EncodeLadder(raster, opts)
}

// Prepare decodes source bytes and cover-crops them to the target frame,
// without encoding. Callers that draw overlays do so on the returned raster
// before handing it to EncodeLadder.
func Prepare(data []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("imaging: invalid target %dx%d", width, height)
	}
	src, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return CoverCrop(src, width, height), nil
}

// EncodeLadder walks the compression ladder over a prepared raster and
// returns the frame with its chosen encoding. The raster must already be at
// Options.Width x Options.Height.
func EncodeLadder(raster *image.RGBA, opts Options) (*Frame, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("imaging: invalid target %dx%d", opts.Width, opts.Height)
	}
	if b := raster.Bounds(); b.Dx() != opts.Width || b.Dy() != opts.Height {
		return nil, fmt.Errorf("imaging: raster is %dx%d, want %dx%d", b.Dx(), b.Dy(), opts.Width, opts.Height)
	}

	ladder := opts.Ladder
	if len(ladder) == 0 {
		ladder = []LadderLevel{{MaxWidth: opts.Width, Quality: 82}}
	}

	frame := &Frame{Raster: raster}
	var last []byte
	var lastLevel LadderLevel
	var lastW, lastH int
	for _, level := range ladder {
		width := level.MaxWidth
		if width <= 0 || width > opts.Width {
			width = opts.Width
		}
		height := scaledHeight(width, opts.Width, opts.Height)
		encoded, err := encodeJPEG(resizeIfNeeded(raster, width, height), level.Quality)
		if err != nil {
			return nil, fmt.Errorf("imaging: encode rung (width=%d q=%d): %w", width, level.Quality, err)
		}
		last = encoded
		lastLevel = level
		lastW, lastH = width, height
		if opts.ByteBudget <= 0 || len(encoded) <= opts.ByteBudget {
			frame.Encoded = encoded
			frame.EncodedWidth = width
			frame.EncodedHeight = height
			frame.Quality = level.Quality
			frame.BudgetMet = true
			return frame, nil
		}
	}

	// Ladder exhausted. The last rung is the most compressed; keep its
	// output and let the caller decide whether an over-budget frame is
	// acceptable.
	frame.Encoded = last
	frame.EncodedWidth = lastW
	frame.EncodedHeight = lastH
	frame.Quality = lastLevel.Quality
	frame.BudgetMet = false
	return frame, nil
}

// CoverCrop scales src so it fully covers width x height, then center-crops
// the overflow. The output is always exactly width x height.
func CoverCrop(src image.Image, width, height int) *image.RGBA {
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	// Scale factor that covers the target on both axes.
	scaleW := float64(width) / float64(srcW)
	scaleH := float64(height) / float64(srcH)
	scale := scaleW
	if scaleH > scale {
		scale = scaleH
	}

	scaledW := int(float64(srcW)*scale + 0.5)
	scaledH := int(float64(srcH)*scale + 0.5)
	if scaledW < width {
		scaledW = width
	}
	if scaledH < height {
		scaledH = height
	}

	scaled := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Src, nil)

	offsetX := (scaledW - width) / 2
	offsetY := (scaledH - height) / 2
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), scaled, image.Pt(offsetX, offsetY), draw.Src)
	return out
}

func resizeIfNeeded(src *image.RGBA, width, height int) *image.RGBA {
	bounds := src.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return src
	}
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(out, out.Bounds(), src, bounds, draw.Src, nil)
	return out
}

func scaledHeight(width, targetW, targetH int) int {
	if width == targetW {
		return targetH
	}
	height := int(float64(width)*float64(targetH)/float64(targetW) + 0.5)
	// JPEG frames feed a yuv420p encode downstream, which needs even dims.
	if height%2 != 0 {
		height++
	}
	return height
}

// EncodeJPEG encodes an image at the supplied quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	return encodeJPEG(img, quality)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
