package preference

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrWatcherClosed = errors.New("preference: watcher closed")

// DefaultFallbackDelays is the bounded re-apply schedule after Ready.
var DefaultFallbackDelays = []time.Duration{
	100 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2 * time.Second,
}

// Watcher keeps a controller's mode applied while content keeps arriving.
// Every trigger (ready, fallback timer, node insertion, content-loaded
// signal, mode change) only marks the surface dirty; a single loop performs
// the applies, so they never overlap and bursts of triggers coalesce.
type Watcher struct {
	ctrl   *Controller
	delays []time.Duration

	kick     chan struct{}
	flushReq chan chan struct{}
	done     chan struct{}

	readyOnce    sync.Once
	teardownOnce sync.Once
	wg           sync.WaitGroup

	mu          sync.Mutex
	timers      []*time.Timer
	unsubscribe func()
	stopObserve func()

	applies atomic.Int64
}

// NewWatcher copies delays; nil means DefaultFallbackDelays.
func NewWatcher(ctrl *Controller, delays []time.Duration) *Watcher {
	if delays == nil {
		delays = DefaultFallbackDelays
	}
	return &Watcher{
		ctrl:     ctrl,
		delays:   append([]time.Duration(nil), delays...),
		kick:     make(chan struct{}, 1),
		flushReq: make(chan chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start subscribes to mode changes and, when the surface supports it, to
// structural changes, then runs the apply loop until ctx ends or Close.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	w.unsubscribe = w.ctrl.Subscribe(func(Mode) { w.trigger() })
	if obs, ok := w.ctrl.Surface().(Observable); ok {
		w.stopObserve = obs.Observe(w.trigger)
	} else {
		log.Debug().Msg("Surface cannot be observed, relying on fallback schedule only")
	}
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			w.teardown()
			return
		case <-w.done:
			return
		case <-w.kick:
			w.apply()
		case reply := <-w.flushReq:
			select {
			case <-w.kick:
				w.apply()
			default:
			}
			close(reply)
		}
	}
}

func (w *Watcher) apply() {
	w.ctrl.Apply()
	w.applies.Add(1)
}

func (w *Watcher) trigger() {
	select {
	case w.kick <- struct{}{}:
	default:
		// an apply is already pending and will see this change
	}
}

// Ready signals that the render tree is in place: apply now, then again at
// each fallback delay. Later calls are ignored.
func (w *Watcher) Ready() {
	w.readyOnce.Do(func() {
		w.trigger()

		w.mu.Lock()
		defer w.mu.Unlock()
		select {
		case <-w.done:
			return
		default:
		}
		for _, d := range w.delays {
			w.timers = append(w.timers, time.AfterFunc(d, w.trigger))
		}
	})
}

// ContentLoaded is raised by a sibling component after it populated itself.
func (w *Watcher) ContentLoaded(source string) {
	log.Debug().Str("source", source).Msg("Content loaded, re-applying display mode")
	w.trigger()
}

// Flush returns once every trigger raised before the call has been applied.
func (w *Watcher) Flush(ctx context.Context) error {
	reply := make(chan struct{})
	select {
	case w.flushReq <- reply:
	case <-w.done:
		return ErrWatcherClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Applies reports how many applies the loop has run.
func (w *Watcher) Applies() int64 {
	return w.applies.Load()
}

// Close stops timers and subscriptions and waits for the loop to exit.
func (w *Watcher) Close() {
	w.teardown()
	w.wg.Wait()
}

func (w *Watcher) teardown() {
	w.teardownOnce.Do(func() {
		close(w.done)

		w.mu.Lock()
		defer w.mu.Unlock()
		for _, t := range w.timers {
			t.Stop()
		}
		w.timers = nil
		if w.unsubscribe != nil {
			w.unsubscribe()
		}
		if w.stopObserve != nil {
			w.stopObserve()
		}
	})
}
