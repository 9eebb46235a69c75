package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
)

func newTestRenderer(t *testing.T, opts Options) *Renderer {
	t.Helper()
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(1, 2))
	}
	if opts.RedDepth == 0 {
		opts.RedDepth = DefaultRedDepth
	}
	if opts.FallbackFonts == nil {
		opts.FallbackFonts = []string{}
	}
	r, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

// inkRows reports whether any pixel in rows [y0, y1) is dark.
func inkRows(img *image.RGBA, y0, y1 int) bool {
	b := img.Bounds()
	for y := y0; y < y1 && y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y).R < 128 {
				return true
			}
		}
	}
	return false
}

func TestRender_OneRowPerLineInOrder(t *testing.T) {
	r := newTestRenderer(t, Options{})

	lines := []string{"Today in history - Oct 15", "1917 Mata Hari executed", "", "2003 Shenzhou 5 launched"}
	img, err := r.Render(lines)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	wantHeight := len(lines)*LineHeight + BottomMargin
	if img.Bounds().Dy() != wantHeight {
		t.Errorf("height = %d, want %d", img.Bounds().Dy(), wantHeight)
	}

	for i, line := range lines {
		top := LineTop(i)
		got := inkRows(img, top, top+LineHeight)
		if want := line != ""; got != want {
			t.Errorf("row %d (%q): ink = %v, want %v", i, line, got, want)
		}
	}

	if inkRows(img, 0, TopMargin-2) {
		t.Error("ink found above the first row")
	}
}

func TestRender_FitWidthTracksWidestLine(t *testing.T) {
	r := newTestRenderer(t, Options{})

	shortW, _ := r.Size([]string{"1917"})
	longW, _ := r.Size([]string{"1917", "1917 a considerably longer line of text"})
	if longW <= shortW {
		t.Errorf("wide canvas %d should exceed narrow canvas %d", longW, shortW)
	}
	if shortW <= MarginRight+extraWidth {
		t.Errorf("width %d should include the text advance", shortW)
	}
}

func TestRender_FixedLayout(t *testing.T) {
	r := newTestRenderer(t, Options{Layout: LayoutFixed, Width: 320, Height: 100})

	lines := []string{"one", "two", "three", "four", "five"}
	img, err := r.Render(lines)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := img.Bounds().Size(); got != (image.Point{X: 320, Y: 100}) {
		t.Errorf("size = %v, want 320x100", got)
	}
	if !inkRows(img, LineTop(0), LineTop(1)) {
		t.Error("first line not drawn")
	}
}

func TestRender_Background(t *testing.T) {
	dir := t.TempDir()
	bgPath := filepath.Join(dir, "bg.png")

	bg := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			bg.SetRGBA(x, y, color.RGBA{R: 200, G: 220, B: 255, A: 255})
		}
	}
	f, err := os.Create(bgPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, bg); err != nil {
		t.Fatal(err)
	}
	f.Close()

	r := newTestRenderer(t, Options{BackgroundPath: bgPath})
	img, err := r.Render([]string{"1917"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	corner := img.RGBAAt(img.Bounds().Max.X-1, img.Bounds().Max.Y-1)
	if corner.B != 255 || corner.R != 200 {
		t.Errorf("corner = %v, want scaled background colour", corner)
	}
}

func TestLineColorBounds(t *testing.T) {
	for _, depth := range []int{0, 40, 255} {
		r := newTestRenderer(t, Options{RedDepth: depth})
		r.redDepth = depth
		for i := 0; i < 500; i++ {
			c := r.lineColor()
			if int(c.R) > depth || c.G > 16 || c.B > 32 {
				t.Fatalf("depth %d: colour %v out of bounds", depth, c)
			}
		}
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "missing font", opts: Options{FontPath: "/nonexistent/font.ttf"}},
		{name: "not a font", opts: Options{FontPath: writeTemp(t, "font.ttf", "not a font")}},
		{name: "missing background", opts: Options{BackgroundPath: "/nonexistent/bg.png"}},
		{name: "not an image", opts: Options{BackgroundPath: writeTemp(t, "bg.png", "nope")}},
		{name: "unknown layout", opts: Options{Layout: "diagonal"}},
		{name: "red depth too large", opts: Options{RedDepth: 256}},
		{name: "negative red depth", opts: Options{RedDepth: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); err == nil {
				t.Error("New() expected error, got nil")
			}
		})
	}
}

func TestEncode(t *testing.T) {
	r := newTestRenderer(t, Options{})

	data, err := r.Encode([]string{"header", "1917 line"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if got := img.Bounds().Dy(); got != 2*LineHeight+BottomMargin {
		t.Errorf("decoded height = %d, want %d", got, 2*LineHeight+BottomMargin)
	}
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
