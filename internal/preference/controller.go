package preference

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Controller is the single source of truth for one viewer's display mode.
// It remembers the last known mode in memory so that a broken store never
// stops the current session from behaving correctly.
type Controller struct {
	store   Store
	surface Surface
	bus     *Bus

	mu      sync.Mutex
	current Mode
}

// NewController binds a store and an optional surface. A nil store behaves
// like a disabled one; a nil surface makes Apply a no-op.
func NewController(store Store, surface Surface) *Controller {
	if store == nil {
		store = DisabledStore{}
	}
	return &Controller{
		store:   store,
		surface: surface,
		bus:     NewBus(),
		current: DefaultMode,
	}
}

// Mode returns the persisted mode. On first run it persists and returns the
// default; when the store is unavailable it returns the in-memory mode.
func (c *Controller) Mode(ctx context.Context) Mode {
	raw, err := c.store.Load(ctx)
	if err == nil {
		if m, ok := ParseMode(raw); ok {
			c.remember(m)
			return m
		}
		log.Warn().Str("value", raw).Msg("Discarding unknown stored display mode")
	} else if !errors.Is(err, ErrNoValue) {
		log.Debug().Err(err).Msg("Preference store unavailable, using session mode")
		return c.Current()
	}

	if err := c.store.Save(ctx, string(DefaultMode)); err != nil {
		log.Debug().Err(err).Msg("Could not persist default display mode")
	}
	c.remember(DefaultMode)
	return DefaultMode
}

// Current is the in-memory mode; it never touches the store.
func (c *Controller) Current() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Controller) remember(m Mode) {
	c.mu.Lock()
	c.current = m
	c.mu.Unlock()
}

// Init loads the mode, marks the surface and applies visibility once.
func (c *Controller) Init(ctx context.Context) Mode {
	m := c.Mode(ctx)
	c.mark(m)
	c.ApplyMode(m)
	return m
}

// SetMode persists m, marks the surface, applies visibility and notifies
// subscribers. A persistence failure is logged and otherwise ignored.
func (c *Controller) SetMode(ctx context.Context, m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("%q: %w", m, ErrInvalidMode)
	}
	if err := c.store.Save(ctx, string(m)); err != nil {
		log.Warn().Err(err).Str("mode", string(m)).Msg("Display mode not persisted, keeping it for this session")
	}
	c.remember(m)
	c.mark(m)
	c.ApplyMode(m)
	c.bus.Publish(m)
	return nil
}

func (c *Controller) mark(m Mode) {
	if c.surface != nil {
		c.surface.SetAttribute(ModeAttribute, string(m))
	}
}

// Apply enforces the current mode on the surface.
func (c *Controller) Apply() int {
	return c.ApplyMode(c.Current())
}

// ApplyMode sets the visibility of every tagged node for m and returns how
// many nodes it touched. It depends only on m and the current node set, so
// calling it repeatedly is harmless. An invalid m means the current mode.
func (c *Controller) ApplyMode(m Mode) int {
	if c.surface == nil {
		return 0
	}
	if !m.Valid() {
		m = c.Current()
	}
	touched := 0
	for _, n := range c.surface.Nodes() {
		lang, ok := VariantOf(n)
		if !ok {
			continue
		}
		n.SetVisibility(VisibilityFor(m, lang))
		touched++
	}
	return touched
}

// Subscribe is called with every mode set through SetMode.
func (c *Controller) Subscribe(fn func(Mode)) (unsubscribe func()) {
	return c.bus.Subscribe(fn)
}

func (c *Controller) Surface() Surface {
	return c.surface
}
