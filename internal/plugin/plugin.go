// Package plugin runs the "today in history" pipeline: load the day's
// events, render them, keep the image in the day cache and hand it to a
// sender.
package plugin

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pfrederiksen/today-in-history/internal/history"
	"github.com/pfrederiksen/today-in-history/internal/logger"
	"github.com/pfrederiksen/today-in-history/internal/storage"
)

// EventSource yields the events for a calendar day. *feed.Loader implements it.
type EventSource interface {
	Events(ctx context.Context, t time.Time) ([]history.Event, error)
}

// Encoder turns reply lines into PNG bytes. *render.Renderer implements it.
type Encoder interface {
	Encode(lines []string) ([]byte, error)
}

// Options are the cache switches.
type Options struct {
	// ReuseImage serves an existing day image instead of regenerating it,
	// and keeps the image after sending.
	ReuseImage bool
	// AutoClear deletes the images of every other day after sending.
	AutoClear bool
	// Location is the time zone that decides what "today" is.
	Location *time.Location
}

// Image is a rendered day image.
type Image struct {
	Date   time.Time
	Name   string
	Data   []byte
	Cached bool
}

// SendFunc delivers an image to whoever asked for it.
type SendFunc func(ctx context.Context, img Image) error

// Plugin ties the pipeline stages together.
type Plugin struct {
	events   EventSource
	renderer Encoder
	store    *storage.Storage
	opts     Options
	now      func() time.Time
	group    singleflight.Group
}

// New creates a Plugin.
func New(events EventSource, renderer Encoder, store *storage.Storage, opts Options) *Plugin {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Plugin{
		events:   events,
		renderer: renderer,
		store:    store,
		opts:     opts,
		now:      time.Now,
	}
}

// Today returns the current time in the configured zone. It is evaluated on
// every call so a long-running bot rolls over at midnight.
func (p *Plugin) Today() time.Time {
	return p.now().In(p.opts.Location)
}

// Lines returns the reply lines for t's day without rendering.
func (p *Plugin) Lines(ctx context.Context, t time.Time) ([]string, error) {
	events, err := p.events.Events(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("loading events for %s: %w", history.DateStamp(t), err)
	}
	return history.Lines(t, events), nil
}

// Image returns the image for t's day, from the cache when reuse is enabled
// and the file exists, otherwise freshly rendered and written to the cache.
// Concurrent calls for the same day share one generation.
func (p *Plugin) Image(ctx context.Context, t time.Time) (Image, error) {
	v, err, shared := p.group.Do(history.DateStamp(t), func() (interface{}, error) {
		// the flight outlives any single caller
		return p.image(context.WithoutCancel(ctx), t)
	})
	if err != nil {
		return Image{}, err
	}
	if shared {
		logger.IncrCounter("image.shared")
	}
	return v.(Image), nil
}

func (p *Plugin) image(ctx context.Context, t time.Time) (Image, error) {
	img := Image{
		Date: t,
		Name: history.DateStamp(t) + ".png",
	}

	if p.opts.ReuseImage {
		data, ok, err := p.store.Load(t)
		if err != nil {
			logger.Warn("Cached image unreadable, regenerating", logger.Fields{
				"path": p.store.Path(t),
				"err":  err.Error(),
			})
		} else if ok {
			logger.IncrCounter("image.cache_hits")
			img.Data = data
			img.Cached = true
			return img, nil
		}
	}

	lines, err := p.Lines(ctx, t)
	if err != nil {
		return Image{}, err
	}

	start := time.Now()
	data, err := p.renderer.Encode(lines)
	logger.RecordTiming("image.render", time.Since(start))
	if err != nil {
		return Image{}, fmt.Errorf("rendering %s: %w", img.Name, err)
	}

	path, err := p.store.Save(t, data)
	if err != nil {
		return Image{}, fmt.Errorf("caching %s: %w", img.Name, err)
	}

	logger.IncrCounter("image.rendered")
	logger.Info("Rendered day image", logger.Fields{
		"path":  path,
		"lines": len(lines),
		"bytes": len(data),
	})

	img.Data = data
	return img, nil
}

// Handle produces today's image and passes it to send.
func (p *Plugin) Handle(ctx context.Context, send SendFunc) error {
	return p.HandleDate(ctx, p.Today(), send)
}

// HandleDate produces t's image, passes it to send, then applies the cache
// policy: without reuse the day's file is removed, with auto-clear every
// other day's file is removed. The policy runs even when send fails.
func (p *Plugin) HandleDate(ctx context.Context, t time.Time, send SendFunc) error {
	img, err := p.Image(ctx, t)
	if err != nil {
		return err
	}

	sendErr := send(ctx, img)
	p.cleanup(t)

	if sendErr != nil {
		return fmt.Errorf("sending %s: %w", img.Name, sendErr)
	}
	return nil
}

func (p *Plugin) cleanup(t time.Time) {
	if !p.opts.ReuseImage {
		if err := p.store.Remove(t); err != nil {
			logger.Warn("Removing day image failed", logger.Fields{"err": err.Error()})
		}
	}

	if p.opts.AutoClear {
		removed, err := p.store.Sweep(t)
		if err != nil {
			logger.Warn("Clearing old images failed", logger.Fields{"err": err.Error()})
		}
		if removed > 0 {
			logger.Debug("Cleared old images", logger.Fields{"removed": removed})
		}
	}

	if n, err := p.store.Count(); err == nil {
		logger.SetGauge("cache.files", float64(n))
	}
}
