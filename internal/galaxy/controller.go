package galaxy

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Controller owns the single attached renderable and regenerates it from the store.
// Regenerate may be called from several goroutines; calls are serialized.
type Controller struct {
	mu      sync.Mutex
	store   *Store
	gen     *Generator
	current *Renderable
	points  atomic.Int64
	logger  *slog.Logger
}

// NewController returns a controller regenerating from store through gen. Nothing is
// generated until the first Regenerate.
func NewController(store *Store, gen *Generator, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:  store,
		gen:    gen,
		logger: logger.With("component", "galaxy_controller"),
	}
}

// Store returns the parameter store the controller reads from.
func (c *Controller) Store() *Store {
	return c.store
}

// Regenerate replaces the attached galaxy with one built from the current parameters.
// On error, cancellation included, the previously attached galaxy stays in place.
func (c *Controller) Regenerate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.store.Snapshot()
	logger := c.logger.With("operation", "regenerate", "count", p.Count, "branches", p.Branches)

	start := time.Now()
	next, err := c.gen.Generate(ctx, p, c.current)
	c.current = next
	c.points.Store(int64(next.Dataset().Len()))
	if err != nil {
		logger.Error("Failed to generate galaxy", "error", err)
		return err
	}
	logger.Debug("Galaxy generated", "duration", time.Since(start), "live_buffers", c.gen.LiveBuffers())
	return nil
}

// Reseed makes the following generations reproducible from seed (0 = time based).
func (c *Controller) Reseed(seed int64) {
	c.mu.Lock()
	c.gen.SetSource(NewSource(seed))
	c.mu.Unlock()
}

// Current returns the attached renderable, or nil before the first successful generation.
func (c *Controller) Current() *Renderable {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// PointCount returns the number of points in the attached galaxy. It does not wait for
// a regeneration in progress.
func (c *Controller) PointCount() int {
	return int(c.points.Load())
}

// Close detaches and releases the attached galaxy.
func (c *Controller) Close() {
	c.mu.Lock()
	c.current.Dispose()
	c.current = nil
	c.points.Store(0)
	c.mu.Unlock()
}
