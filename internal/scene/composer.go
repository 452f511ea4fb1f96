package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/philipparndt/plyview/internal/loader"
	"github.com/philipparndt/plyview/pkg/display"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrentLoads bounds the number of loads in flight
const DefaultMaxConcurrentLoads = 4

// Options configures a Composer
type Options struct {
	Loader             loader.Loader
	Logger             *slog.Logger
	Defaults           Defaults
	MaxConcurrentLoads int64
}

// StatusEvent is published whenever a slot changes state
type StatusEvent struct {
	Item  int
	Label string
	Slot  int
	URL   string
	State State
	Err   error
}

// ItemStatus is a snapshot of one viewer
type ItemStatus struct {
	Index int          `json:"index"`
	Label string       `json:"label"`
	Mode  string       `json:"mode"`
	Error string       `json:"error,omitempty"`
	Slots []SlotStatus `json:"slots"`
}

// Settled reports whether no slot of the item is still loading
func (s ItemStatus) Settled() bool {
	for _, slot := range s.Slots {
		if !slot.State.Settled() {
			return false
		}
	}
	return true
}

// batch is one generation of items. Replacing the items cancels it.
type batch struct {
	ctx     context.Context
	cancel  context.CancelFunc
	viewers []*Viewer
	pending sync.WaitGroup
	done    chan struct{}
}

// Composer mounts a batch of items, loads their sources concurrently and
// reports per-slot status
type Composer struct {
	loader   loader.Loader
	logger   *slog.Logger
	defaults Defaults
	sem      *semaphore.Weighted

	mu          sync.Mutex
	current     *batch
	subscribers map[chan StatusEvent]struct{}
	closed      bool
}

// New creates a Composer
func New(opts Options) *Composer {
	if opts.Loader == nil {
		opts.Loader = loader.New(loader.Options{})
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxConcurrentLoads <= 0 {
		opts.MaxConcurrentLoads = DefaultMaxConcurrentLoads
	}
	if opts.Defaults == (Defaults{}) {
		opts.Defaults = GridDefaults
	}

	return &Composer{
		loader:      opts.Loader,
		logger:      opts.Logger,
		defaults:    opts.Defaults,
		sem:         semaphore.NewWeighted(opts.MaxConcurrentLoads),
		subscribers: make(map[chan StatusEvent]struct{}),
	}
}

// SetItems replaces the mounted items. In-flight loads of the previous batch
// are cancelled and their results discarded. Invalid items get a viewer that
// renders nothing; the other items load normally.
func (c *Composer) SetItems(items []ViewItem) []*Viewer {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	old := c.current

	ctx, cancel := context.WithCancel(context.Background())
	b := &batch{ctx: ctx, cancel: cancel, done: make(chan struct{})}
	for i, item := range items {
		v := newViewer(i, c.defaults.Apply(item))
		if err := v.Err(); err != nil {
			c.logger.Warn("item will not be displayed", "item", i, "label", item.Label, "error", err)
		}
		b.viewers = append(b.viewers, v)
	}
	c.current = b
	c.mu.Unlock()

	if old != nil {
		old.stop()
	}

	for _, v := range b.viewers {
		if v.Invalid() {
			for slot, url := range v.item.URLs {
				c.publish(b, StatusEvent{Item: v.index, Label: v.item.Label, Slot: slot, URL: url, State: Invalid, Err: v.Err()})
			}
			continue
		}
		for slot, s := range v.start(ctx) {
			c.publish(b, StatusEvent{Item: v.index, Label: v.item.Label, Slot: slot, URL: s.URL, State: Loading})
			b.pending.Add(1)
			go c.load(b, v, slot, s)
		}
	}

	go func() {
		b.pending.Wait()
		close(b.done)
	}()

	return append([]*Viewer(nil), b.viewers...)
}

func (b *batch) stop() {
	b.cancel()
	for _, v := range b.viewers {
		v.stop()
	}
}

// load fetches, builds and normalizes one slot. It runs in its own goroutine
// so the render loop never waits on it.
func (c *Composer) load(b *batch, v *Viewer, index int, s *Slot) {
	defer b.pending.Done()

	log := c.logger.With("item", v.index, "label", v.item.Label, "url", s.URL)

	if err := c.sem.Acquire(s.ctx, 1); err != nil {
		log.Debug("load cancelled before start")
		return
	}
	defer c.sem.Release(1)

	start := time.Now()
	g, err := c.build(s.ctx, s.URL, v)

	if !v.complete(s, g, err) {
		log.Debug("discarding stale load result")
		return
	}

	if err != nil {
		log.Warn("failed to load slot", "error", err)
		c.publish(b, StatusEvent{Item: v.index, Label: v.item.Label, Slot: index, URL: s.URL, State: Failed, Err: err})
		return
	}

	if g.Degenerate != nil {
		log.Warn("degenerate geometry, drawing points", "mode", g.Mode, "error", g.Degenerate)
	}
	log.Debug("slot ready", "vertices", g.Len(), "faces", len(g.Faces), "elapsed", time.Since(start))
	c.publish(b, StatusEvent{Item: v.index, Label: v.item.Label, Slot: index, URL: s.URL, State: Ready})
}

// build turns a panic in the loader or the geometry stages into a slot error
func (c *Composer) build(ctx context.Context, url string, v *Viewer) (g *display.Geometry, err error) {
	defer func() {
		if r := recover(); r != nil {
			g = nil
			err = fmt.Errorf("failed to build %s: %w", url, &PanicError{Value: r})
		}
	}()

	ps, err := c.loader.Load(ctx, url)
	if err != nil {
		return nil, err
	}
	if ps.Len() == 0 {
		return nil, fmt.Errorf("failed to build %s: %w", url, ErrEmptyPointSet)
	}

	g = display.Build(ps, v.mode)
	display.Normalize(g, display.Options{Center: v.item.Centered()})
	return g, nil
}

// Viewers returns the viewers of the current batch
func (c *Composer) Viewers() []*Viewer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	return append([]*Viewer(nil), c.current.viewers...)
}

// Viewer returns the viewer at index in the current batch
func (c *Composer) Viewer(index int) (*Viewer, bool) {
	viewers := c.Viewers()
	if index < 0 || index >= len(viewers) {
		return nil, false
	}
	return viewers[index], true
}

// Status returns a snapshot of every viewer in the current batch
func (c *Composer) Status() []ItemStatus {
	viewers := c.Viewers()
	out := make([]ItemStatus, len(viewers))
	for i, v := range viewers {
		out[i] = v.Status()
	}
	return out
}

// Wait blocks until every slot of the current batch has settled, the batch
// is replaced, or ctx is done
func (c *Composer) Wait(ctx context.Context) error {
	c.mu.Lock()
	b := c.current
	c.mu.Unlock()
	if b == nil {
		return nil
	}
	return b.wait(ctx)
}

func (b *batch) wait(ctx context.Context) error {
	select {
	case <-b.done:
		if errors.Is(b.ctx.Err(), context.Canceled) {
			return fmt.Errorf("batch was replaced: %w", context.Canceled)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a channel of status events and a function that ends the
// subscription. Events are dropped when the channel buffer is full.
func (c *Composer) Subscribe(buffer int) (<-chan StatusEvent, func()) {
	ch := make(chan StatusEvent, buffer)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.subscribers[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subscribers[ch]; ok {
				delete(c.subscribers, ch)
				close(ch)
			}
		})
	}
}

// publish delivers ev to every subscriber unless b has been replaced, since
// item indexes of a replaced batch no longer match the current viewers
func (c *Composer) publish(b *batch, ev StatusEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != b {
		return
	}

	for ch := range c.subscribers {
		select {
		case ch <- ev:
		default:
			c.logger.Debug("dropping status event", "item", ev.Item, "slot", ev.Slot, "state", ev.State)
		}
	}
}

// Close cancels all loads and ends every subscription
func (c *Composer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	b := c.current
	for ch := range c.subscribers {
		close(ch)
	}
	c.subscribers = nil
	c.mu.Unlock()

	if b != nil {
		b.stop()
	}
}
