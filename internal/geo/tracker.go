package geo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultPollInterval  = 5 * time.Second
	DefaultArrivalRadius = 50.0
)

// ErrTrackerStarted is returned when Start is called twice.
var ErrTrackerStarted = errors.New("geo: tracker already started")

// LocationSource reports the device position.
type LocationSource interface {
	Position(ctx context.Context) (Coordinate, error)
}

// Planner computes a route between two points. *Router implements it.
type Planner interface {
	Route(ctx context.Context, from, to Coordinate) (*Route, error)
}

// Update is one tracking sample. Err is set when the position or the route
// could not be obtained; the tracker keeps polling.
type Update struct {
	Position Coordinate
	Route    *Route
	Arrived  bool
	Err      error
}

// Tracker polls a LocationSource and re-plans the route to a destination
// until stopped.
type Tracker struct {
	source        LocationSource
	planner       Planner
	destination   Coordinate
	interval      time.Duration
	arrivalRadius float64
	logger        *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithArrivalRadius sets the distance in meters at which the destination
// counts as reached. Tracking stops after the first arrived update.
func WithArrivalRadius(m float64) TrackerOption {
	return func(t *Tracker) {
		t.arrivalRadius = m
	}
}

// WithTrackerLogger sets the logger.
func WithTrackerLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = l
	}
}

// NewTracker creates a tracker towards destination.
func NewTracker(source LocationSource, planner Planner, destination Coordinate, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		source:        source,
		planner:       planner,
		destination:   destination,
		interval:      DefaultPollInterval,
		arrivalRadius: DefaultArrivalRadius,
		logger:        slog.Default(),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins polling immediately and then every interval. The returned
// channel is closed when the tracker stops: on Stop, on ctx cancellation or
// after arrival.
func (t *Tracker) Start(ctx context.Context) (<-chan Update, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return nil, ErrTrackerStarted
	}
	t.started = true

	ctx, t.cancel = context.WithCancel(ctx)
	updates := make(chan Update)
	go t.run(ctx, t.cancel, updates)
	return updates, nil
}

// Stop cancels polling and waits for the goroutine to exit. It is safe to
// call more than once and before Start.
func (t *Tracker) Stop() {
	t.mu.Lock()
	started := t.started
	cancel := t.cancel
	t.mu.Unlock()
	if !started {
		return
	}
	cancel()
	<-t.done
}

func (t *Tracker) run(ctx context.Context, cancel context.CancelFunc, updates chan<- Update) {
	defer close(t.done)
	defer close(updates)
	defer cancel()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		u := t.sample(ctx)
		if ctx.Err() != nil {
			return
		}
		select {
		case updates <- u:
		case <-ctx.Done():
			return
		}
		if u.Arrived {
			t.logger.Info("destination reached", slog.String("position", u.Position.String()))
			return
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (t *Tracker) sample(ctx context.Context) Update {
	pos, err := t.source.Position(ctx)
	if err != nil {
		return Update{Err: err}
	}
	u := Update{Position: pos}
	if t.arrivalRadius > 0 && Distance(pos, t.destination) <= t.arrivalRadius {
		u.Arrived = true
		return u
	}
	route, err := t.planner.Route(ctx, pos, t.destination)
	if err != nil {
		t.logger.Debug("route update failed", slog.String("error", err.Error()))
		u.Err = err
		return u
	}
	u.Route = route
	return u
}
