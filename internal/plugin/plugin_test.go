package plugin

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pfrederiksen/today-in-history/internal/feed"
	"github.com/pfrederiksen/today-in-history/internal/history"
	"github.com/pfrederiksen/today-in-history/internal/render"
	"github.com/pfrederiksen/today-in-history/internal/storage"
)

var oct15 = time.Date(2026, time.October, 15, 9, 30, 0, 0, time.UTC)

type fakeEvents struct {
	calls  atomic.Int32
	events []history.Event
	err    error
	delay  time.Duration
}

func (f *fakeEvents) Events(ctx context.Context, t time.Time) ([]history.Event, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.events, f.err
}

// lineEncoder "renders" lines as text so tests can see what would be drawn.
type lineEncoder struct {
	mu    sync.Mutex
	lines [][]string
	err   error
}

func (e *lineEncoder) Encode(lines []string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	e.lines = append(e.lines, lines)
	return []byte(strings.Join(lines, "\n")), nil
}

func newPlugin(t *testing.T, src EventSource, enc Encoder, opts Options) (*Plugin, *storage.Storage) {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "temp"))
	if err != nil {
		t.Fatal(err)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	p := New(src, enc, store, opts)
	p.now = func() time.Time { return oct15 }
	return p, store
}

var sampleEvents = []history.Event{
	{Year: "1917", Title: "Mata Hari executed"},
	{Year: "2003", Title: "Shenzhou 5 launched"},
}

func collect(images *[]Image) SendFunc {
	var mu sync.Mutex
	return func(ctx context.Context, img Image) error {
		mu.Lock()
		defer mu.Unlock()
		*images = append(*images, img)
		return nil
	}
}

func TestHandle_RendersOneLinePerEventInOrder(t *testing.T) {
	enc := &lineEncoder{}
	p, store := newPlugin(t, &fakeEvents{events: sampleEvents}, enc, Options{ReuseImage: true})

	var sent []Image
	if err := p.Handle(context.Background(), collect(&sent)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	want := []string{"【历史上的今天-10月15日】", "1917 Mata Hari executed", "2003 Shenzhou 5 launched"}
	if len(enc.lines) != 1 {
		t.Fatalf("Encode called %d times, want 1", len(enc.lines))
	}
	if diff := cmp.Diff(want, enc.lines[0]); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}

	if len(sent) != 1 || sent[0].Name != "2026_10_15.png" || sent[0].Cached {
		t.Fatalf("sent = %+v", sent)
	}
	if !store.Exists(oct15) {
		t.Error("image should stay cached when reuse is enabled")
	}
}

func TestHandle_ReusesCachedImageWithoutFetching(t *testing.T) {
	src := &fakeEvents{events: sampleEvents}
	p, _ := newPlugin(t, src, &lineEncoder{}, Options{ReuseImage: true})

	var sent []Image
	for i := 0; i < 2; i++ {
		if err := p.Handle(context.Background(), collect(&sent)); err != nil {
			t.Fatalf("Handle() #%d error = %v", i, err)
		}
	}

	if got := src.calls.Load(); got != 1 {
		t.Errorf("event source called %d times, want 1", got)
	}
	if !sent[1].Cached {
		t.Error("second image should come from the cache")
	}
	if !bytes.Equal(sent[0].Data, sent[1].Data) {
		t.Error("cached image differs from the first one")
	}
}

func TestHandle_WithoutReuseRegeneratesAndRemoves(t *testing.T) {
	src := &fakeEvents{events: sampleEvents}
	p, store := newPlugin(t, src, &lineEncoder{}, Options{ReuseImage: false})

	var sent []Image
	for i := 0; i < 2; i++ {
		if err := p.Handle(context.Background(), collect(&sent)); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		if store.Exists(oct15) {
			t.Fatal("image should be removed after sending when reuse is disabled")
		}
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("event source called %d times, want 2", got)
	}
}

func TestHandle_AutoClearSweepsOtherDays(t *testing.T) {
	tests := []struct {
		name      string
		autoClear bool
		wantOld   bool
	}{
		{name: "auto clear on", autoClear: true, wantOld: false},
		{name: "auto clear off", autoClear: false, wantOld: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store := newPlugin(t, &fakeEvents{events: sampleEvents}, &lineEncoder{}, Options{ReuseImage: true, AutoClear: tt.autoClear})

			yesterday := oct15.AddDate(0, 0, -1)
			if _, err := store.Save(yesterday, []byte("old")); err != nil {
				t.Fatal(err)
			}

			var sent []Image
			if err := p.Handle(context.Background(), collect(&sent)); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := store.Exists(yesterday); got != tt.wantOld {
				t.Errorf("yesterday's image exists = %v, want %v", got, tt.wantOld)
			}
			if !store.Exists(oct15) {
				t.Error("today's image should survive the sweep")
			}
		})
	}
}

func TestHandle_Errors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("event source failure", func(t *testing.T) {
		p, store := newPlugin(t, &fakeEvents{err: feed.ErrEmptyFeed}, &lineEncoder{}, Options{ReuseImage: true})
		called := false
		err := p.Handle(context.Background(), func(ctx context.Context, img Image) error {
			called = true
			return nil
		})
		if !errors.Is(err, feed.ErrEmptyFeed) {
			t.Errorf("Handle() error = %v, want ErrEmptyFeed", err)
		}
		if called {
			t.Error("nothing should be sent on failure")
		}
		if store.Exists(oct15) {
			t.Error("no image should be cached on failure")
		}
	})

	t.Run("render failure", func(t *testing.T) {
		p, _ := newPlugin(t, &fakeEvents{events: sampleEvents}, &lineEncoder{err: boom}, Options{})
		if err := p.Handle(context.Background(), collect(new([]Image))); !errors.Is(err, boom) {
			t.Errorf("Handle() error = %v, want boom", err)
		}
	})

	t.Run("send failure still applies cache policy", func(t *testing.T) {
		p, store := newPlugin(t, &fakeEvents{events: sampleEvents}, &lineEncoder{}, Options{ReuseImage: false})
		err := p.Handle(context.Background(), func(ctx context.Context, img Image) error { return boom })
		if !errors.Is(err, boom) {
			t.Errorf("Handle() error = %v, want boom", err)
		}
		if store.Exists(oct15) {
			t.Error("image should be removed even though sending failed")
		}
	})
}

func TestImage_ConcurrentCallsShareOneGeneration(t *testing.T) {
	src := &fakeEvents{events: sampleEvents, delay: 50 * time.Millisecond}
	p, _ := newPlugin(t, src, &lineEncoder{}, Options{ReuseImage: true})

	const n = 8
	var (
		wg     sync.WaitGroup
		images = make([]Image, n)
		errs   = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			images[i], errs[i] = p.Image(context.Background(), oct15)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Image() #%d error = %v", i, errs[i])
		}
		if !bytes.Equal(images[i].Data, images[0].Data) {
			t.Errorf("Image() #%d returned different bytes", i)
		}
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("event source called %d times, want 1", got)
	}
}

func TestToday_UsesLocationAndCurrentClock(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	p, _ := newPlugin(t, &fakeEvents{}, &lineEncoder{}, Options{Location: shanghai})

	// 20:00 UTC on Oct 14 is already Oct 15 in UTC+8
	p.now = func() time.Time { return time.Date(2026, time.October, 14, 20, 0, 0, 0, time.UTC) }
	if got := history.DayKey(p.Today()); got != "1015" {
		t.Errorf("Today() day = %s, want 1015", got)
	}

	p.now = func() time.Time { return time.Date(2026, time.October, 15, 20, 0, 0, 0, time.UTC) }
	if got := history.DayKey(p.Today()); got != "1016" {
		t.Errorf("Today() after midnight = %s, want 1016", got)
	}
}

func TestHandle_EndToEnd(t *testing.T) {
	fixture, err := os.ReadFile("../feed/testdata/10.json")
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/10.json" {
			http.NotFound(w, r)
			return
		}
		w.Write(fixture)
	}))
	defer server.Close()

	loader := feed.NewLoader(feed.NewWithURL(server.URL+"/%s.json", time.Second), 0)
	renderer, err := render.New(render.Options{RedDepth: render.DefaultRedDepth})
	if err != nil {
		t.Fatalf("render.New() error = %v", err)
	}
	p, _ := newPlugin(t, loader, renderer, Options{ReuseImage: true, AutoClear: true})

	var sent []Image
	for i := 0; i < 2; i++ {
		if err := p.Handle(context.Background(), collect(&sent)); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
	}

	if got := hits.Load(); got != 1 {
		t.Errorf("feed requests = %d, want 1", got)
	}

	img, err := png.Decode(bytes.NewReader(sent[0].Data))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	// headline plus three events
	if got, want := img.Bounds().Dy(), 4*render.LineHeight+render.BottomMargin; got != want {
		t.Errorf("image height = %d, want %d", got, want)
	}
}
