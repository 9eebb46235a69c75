package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"math/rand/v2"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/pfrederiksen/today-in-history/internal/logger"
)

const (
	FontSize     = 20
	LineHeight   = 30
	MarginLeft   = 40
	MarginRight  = 10
	TopMargin    = 10
	BottomMargin = 10

	// fit canvases get this much extra width on top of MarginRight
	extraWidth = 80

	DefaultRedDepth    = 40
	DefaultFixedWidth  = 800
	DefaultFixedHeight = 1200

	// coverageSample holds every rune a headline can contain.
	coverageSample = "【历史上的今天-0123456789月日】"
)

// DefaultFallbackFonts are common locations of system CJK fonts.
var DefaultFallbackFonts = []string{
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/google-noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/wqy/wqy-microhei.ttc",
	"/usr/share/fonts/truetype/wqy/wqy-zenhei.ttc",
	"/usr/share/fonts/wenquanyi/wqy-microhei/wqy-microhei.ttc",
	"/System/Library/Fonts/PingFang.ttc",
	"/System/Library/Fonts/STHeiti Light.ttc",
	`C:\Windows\Fonts\msyh.ttc`,
	`C:\Windows\Fonts\simhei.ttf`,
}

// Layout selects how the canvas size is chosen.
type Layout string

const (
	LayoutFit   Layout = "fit"
	LayoutFixed Layout = "fixed"
)

// Paper is the fill used when no background image is configured.
var Paper = color.RGBA{R: 0xF5, G: 0xEB, B: 0xD7, A: 0xFF}

// Options configures a Renderer. Zero values select the defaults.
type Options struct {
	FontPath       string
	BackgroundPath string
	Layout         Layout
	Width          int
	Height         int
	RedDepth       int
	Rand           *rand.Rand
	// FallbackFonts are tried in order when the chosen font cannot draw the
	// headline. Nil selects DefaultFallbackFonts; an empty slice disables the
	// search.
	FallbackFonts []string
}

// Renderer draws text lines to images. It is safe for concurrent use.
type Renderer struct {
	mu         sync.Mutex
	face       font.Face
	background image.Image
	layout     Layout
	width      int
	height     int
	redDepth   int
	rng        *rand.Rand
}

// New loads the font and background and returns a Renderer.
func New(opts Options) (*Renderer, error) {
	face, err := loadFace(opts.FontPath)
	if err != nil {
		return nil, err
	}

	fallbacks := opts.FallbackFonts
	if fallbacks == nil {
		fallbacks = DefaultFallbackFonts
	}
	face = resolveFace(face, opts.FontPath, fallbacks, coverageSample)

	r := &Renderer{
		face:     face,
		layout:   opts.Layout,
		width:    opts.Width,
		height:   opts.Height,
		redDepth: opts.RedDepth,
		rng:      opts.Rand,
	}

	switch r.layout {
	case "":
		r.layout = LayoutFit
	case LayoutFit, LayoutFixed:
	default:
		return nil, fmt.Errorf("unknown layout %q (must be %q or %q)", opts.Layout, LayoutFit, LayoutFixed)
	}
	if r.width <= 0 {
		r.width = DefaultFixedWidth
	}
	if r.height <= 0 {
		r.height = DefaultFixedHeight
	}
	if r.redDepth < 0 || r.redDepth > 255 {
		return nil, fmt.Errorf("red depth %d out of range 0-255", r.redDepth)
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	if opts.BackgroundPath != "" {
		bg, err := loadImage(opts.BackgroundPath)
		if err != nil {
			return nil, err
		}
		r.background = bg
	}

	return r, nil
}

func loadFace(path string) (font.Face, error) {
	data := goregular.TTF
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading font: %w", err)
		}
	}

	var (
		f   *opentype.Font
		err error
	)
	if strings.HasSuffix(strings.ToLower(path), ".ttc") {
		var coll *opentype.Collection
		coll, err = opentype.ParseCollection(data)
		if err == nil {
			f, err = coll.Font(0)
		}
	} else {
		f, err = opentype.Parse(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("creating font face: %w", err)
	}
	return face, nil
}

// missingGlyphs returns the runes of sample that face cannot draw.
func missingGlyphs(face font.Face, sample string) []rune {
	var missing []rune
	for _, r := range sample {
		if _, ok := face.GlyphAdvance(r); !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// resolveFace keeps face when it covers sample. Otherwise the first loadable
// fallback that does is used; failing that, face is kept with a warning.
// A font the user named is never replaced.
func resolveFace(face font.Face, path string, fallbacks []string, sample string) font.Face {
	missing := missingGlyphs(face, sample)
	if len(missing) == 0 {
		return face
	}

	name := path
	if name == "" {
		name = "goregular"
	}
	if path != "" {
		logger.Warn("Font lacks glyphs for the headline", logger.Fields{
			"font":    name,
			"missing": string(missing),
		})
		return face
	}

	for _, candidate := range fallbacks {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		alt, err := loadFace(candidate)
		if err != nil {
			logger.Debug("Skipping fallback font", logger.Fields{"font": candidate, "err": err.Error()})
			continue
		}
		if len(missingGlyphs(alt, sample)) == 0 {
			logger.Info("Using fallback font", logger.Fields{"font": candidate})
			face.Close()
			return alt
		}
		alt.Close()
	}

	logger.Warn("No font with CJK glyphs found, set render.font_path", logger.Fields{
		"font":    name,
		"missing": string(missing),
	})
	return face
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening background: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding background: %w", err)
	}
	return img, nil
}

// Size returns the canvas dimensions used for lines.
func (r *Renderer) Size(lines []string) (width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size(lines)
}

func (r *Renderer) size(lines []string) (width, height int) {
	if r.layout == LayoutFixed {
		return r.width, r.height
	}

	maxWidth := 0
	for _, line := range lines {
		if w := font.MeasureString(r.face, line).Ceil(); w > maxWidth {
			maxWidth = w
		}
	}
	return maxWidth + MarginRight + extraWidth, len(lines)*LineHeight + BottomMargin
}

// LineTop returns the top y coordinate of line i.
func LineTop(i int) int {
	return TopMargin + i*LineHeight
}

// Render draws lines, one per row, in order.
func (r *Renderer) Render(lines []string) (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	width, height := r.size(lines)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if r.background != nil {
		draw.BiLinear.Scale(img, img.Bounds(), r.background, r.background.Bounds(), draw.Src, nil)
	} else {
		draw.Draw(img, img.Bounds(), image.NewUniform(Paper), image.Point{}, draw.Src)
	}

	ascent := r.face.Metrics().Ascent
	d := &font.Drawer{Dst: img, Face: r.face}
	for i, line := range lines {
		top := LineTop(i)
		if top >= height {
			break
		}
		d.Src = image.NewUniform(r.lineColor())
		d.Dot = fixed.Point26_6{X: fixed.I(MarginLeft), Y: fixed.I(top) + ascent}
		d.DrawString(line)
	}

	return img, nil
}

// lineColor picks a dark tint: red up to the configured depth, a little green
// and blue.
func (r *Renderer) lineColor() color.RGBA {
	return color.RGBA{
		R: uint8(r.rng.IntN(r.redDepth + 1)),
		G: uint8(r.rng.IntN(17)),
		B: uint8(r.rng.IntN(33)),
		A: 0xFF,
	}
}

// Encode renders lines and returns the PNG bytes.
func (r *Renderer) Encode(lines []string) ([]byte, error) {
	img, err := r.Render(lines)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
