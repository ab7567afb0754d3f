package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// captionAnchorFromBottom positions the caption band's top edge.
	captionAnchorFromBottom = 200
	// boxPadding surrounds text inside its band box.
	boxPadding = 10
	// sideMargin keeps text off the frame edges.
	sideMargin = 40
	// bandGap separates the caption band from the subtitle block.
	bandGap = 20
	// bottomMargin keeps the subtitle block off the frame bottom.
	bottomMargin = 24
	// minCaptionSize is the floor for shrink-to-fit.
	minCaptionSize = 28
)

var bandFill = color.NRGBA{A: 128}

// Options controls text rendering.
type Options struct {
	// CaptionFontSize is the starting caption size in points. The renderer
	// shrinks long captions until they fit the frame width.
	CaptionFontSize float64
	// SubtitleFontSize sizes the wrapped subtitle lines.
	SubtitleFontSize float64
	// FontPath optionally points at a TTF/OTF file. Empty means the
	// embedded Go Bold face.
	FontPath string
}

// Renderer draws caption and subtitle bands onto frames. A single Renderer
// may be shared across goroutines; each Apply call draws through its own
// face set because opentype faces carry rasterization buffers and are not
// safe for concurrent use.
type Renderer struct {
	parsed       *opentype.Font
	width        int
	height       int
	captionSize  float64
	subtitleSize float64

	facePool sync.Pool
}

// faceCache holds the faces for one in-flight Apply call.
type faceCache struct {
	parsed *opentype.Font
	faces  map[float64]font.Face
}

func (c *faceCache) face(size float64) (font.Face, error) {
	if face, ok := c.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(c.parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("overlay: build face at %g: %w", size, err)
	}
	c.faces[size] = face
	return face, nil
}

// NewRenderer builds a renderer for frames of the given dimensions.
func NewRenderer(width, height int, opts Options) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("overlay: invalid frame %dx%d", width, height)
	}
	fontBytes := gobold.TTF
	if opts.FontPath != "" {
		data, err := os.ReadFile(opts.FontPath)
		if err != nil {
			return nil, fmt.Errorf("overlay: read font: %w", err)
		}
		fontBytes = data
	}
	parsed, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("overlay: parse font: %w", err)
	}

	captionSize := opts.CaptionFontSize
	if captionSize <= 0 {
		captionSize = 80
	}
	subtitleSize := opts.SubtitleFontSize
	if subtitleSize <= 0 {
		subtitleSize = 44
	}
	r := &Renderer{
		parsed:       parsed,
		width:        width,
		height:       height,
		captionSize:  captionSize,
		subtitleSize: subtitleSize,
	}
	r.facePool.New = func() any { return r.newFaceCache() }
	return r, nil
}

func (r *Renderer) newFaceCache() *faceCache {
	return &faceCache{parsed: r.parsed, faces: make(map[float64]font.Face)}
}

// Apply draws the caption band and, when subtitle text is non-empty, a
// wrapped subtitle block below it. Both bands stay inside the frame and
// never overlap. The destination must match the renderer's dimensions.
func (r *Renderer) Apply(dst *image.RGBA, caption, subtitle string) error {
	bounds := dst.Bounds()
	if bounds.Dx() != r.width || bounds.Dy() != r.height {
		return fmt.Errorf("overlay: frame is %dx%d, renderer expects %dx%d",
			bounds.Dx(), bounds.Dy(), r.width, r.height)
	}

	fc := r.facePool.Get().(*faceCache)
	defer r.facePool.Put(fc)

	captionBand, err := r.drawCaption(fc, dst, caption)
	if err != nil {
		return err
	}

	subtitle = Sanitize(subtitle)
	if subtitle == "" {
		return nil
	}
	return r.drawSubtitle(fc, dst, subtitle, captionBand)
}

// drawCaption renders the sanitized caption centered in a translucent box
// whose top edge sits a fixed distance above the frame bottom. Returns the
// band rectangle actually painted.
func (r *Renderer) drawCaption(fc *faceCache, dst *image.RGBA, caption string) (image.Rectangle, error) {
	text := SanitizeCaption(caption)
	if text == "" {
		return image.Rectangle{}, errors.New("overlay: caption empty after sanitization")
	}

	maxWidth := r.width - 2*sideMargin
	size := r.captionSize
	var face font.Face
	var textWidth int
	for {
		f, err := fc.face(size)
		if err != nil {
			return image.Rectangle{}, err
		}
		face = f
		textWidth = font.MeasureString(face, text).Ceil()
		if textWidth <= maxWidth || size <= minCaptionSize {
			break
		}
		size -= 4
	}

	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()

	bandTop := r.height - captionAnchorFromBottom
	band := image.Rect(
		(r.width-textWidth)/2-boxPadding,
		bandTop,
		(r.width+textWidth)/2+boxPadding,
		bandTop+ascent+descent+2*boxPadding,
	)
	draw.Draw(dst, band.Intersect(dst.Bounds()), image.NewUniform(bandFill), image.Point{}, draw.Over)

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P((r.width-textWidth)/2, bandTop+boxPadding+ascent),
	}
	drawer.DrawString(text)
	return band, nil
}

// drawSubtitle renders wrapped subtitle lines in a block anchored below the
// caption band. Lines that would run past the bottom margin are dropped.
func (r *Renderer) drawSubtitle(fc *faceCache, dst *image.RGBA, text string, captionBand image.Rectangle) error {
	face, err := fc.face(r.subtitleSize)
	if err != nil {
		return err
	}
	maxWidth := r.width - 2*sideMargin
	lines := wrapText(face, text, maxWidth)
	if len(lines) == 0 {
		return nil
	}

	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()
	lineHeight := ascent + descent + 4

	top := captionBand.Max.Y + bandGap
	available := r.height - bottomMargin - top
	maxLines := (available - 2*boxPadding) / lineHeight
	if maxLines <= 0 {
		return nil
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}

	widest := 0
	for _, line := range lines {
		if w := font.MeasureString(face, line).Ceil(); w > widest {
			widest = w
		}
	}
	band := image.Rect(
		(r.width-widest)/2-boxPadding,
		top,
		(r.width+widest)/2+boxPadding,
		top+len(lines)*lineHeight+2*boxPadding,
	)
	draw.Draw(dst, band.Intersect(dst.Bounds()), image.NewUniform(bandFill), image.Point{}, draw.Over)

	for i, line := range lines {
		lineWidth := font.MeasureString(face, line).Ceil()
		drawer := &font.Drawer{
			Dst:  dst,
			Src:  image.White,
			Face: face,
			Dot:  fixed.P((r.width-lineWidth)/2, top+boxPadding+i*lineHeight+ascent),
		}
		drawer.DrawString(line)
	}
	return nil
}

// wrapText greedily packs words into lines no wider than maxWidth. A single
// word wider than the limit gets its own line rather than being split.
func wrapText(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if font.MeasureString(face, candidate).Ceil() > maxWidth {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	lines = append(lines, current)
	return lines
}
