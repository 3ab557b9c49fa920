package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xkdemo/moments/internal/gateway"
	"github.com/xkdemo/moments/internal/mapper"
	"github.com/xkdemo/moments/pkg/config"
	pkgerrors "github.com/xkdemo/moments/pkg/errors"
	"github.com/xkdemo/moments/pkg/logger"
	"github.com/xkdemo/moments/pkg/observable"
	"go.uber.org/fx"
)

type Trigger string

const (
	TriggerActivation Trigger = "activation"
	TriggerRefresh    Trigger = "refresh"
	TriggerBackground Trigger = "background"
)

type Status int

const (
	StatusLoaded Status = iota + 1
	StatusSuperseded
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusSuperseded:
		return "superseded"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// State is the UI-visible feed. It is replaced as a whole, never edited in place.
type State struct {
	Items      []Item
	Loading    bool
	Err        error
	Generation uint64
}

type Result struct {
	Status     Status
	Items      []Item
	Generation uint64
}

type Opts struct {
	fx.In

	Tables gateway.TableStore
	Logger logger.Logger
	Config *config.Config
}

type Coordinator struct {
	tables   gateway.TableStore
	logger   logger.Logger
	location *time.Location
	timeout  time.Duration

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc

	state *observable.Store[State]
}

func New(opts Opts) *Coordinator {
	return &Coordinator{
		tables:   opts.Tables,
		logger:   opts.Logger.WithComponent("FeedCoordinator"),
		location: opts.Config.Location(),
		timeout:  opts.Config.Feed.FetchTimeout,
		state:    observable.New(State{}),
	}
}

// State returns the current snapshot.
func (c *Coordinator) State() State {
	return c.state.Get()
}

// Subscribe is notified after every published change. fn runs while the coordinator
// holds its lock and must not call Load or Cancel synchronously.
func (c *Coordinator) Subscribe(fn func(State)) (unsubscribe func()) {
	return c.state.Subscribe(fn)
}

// Load fetches the feed newest first and publishes it. Starting a load supersedes
// any load still in flight: its transport call is cancelled and whatever it
// eventually returns is dropped.
func (c *Coordinator) Load(ctx context.Context, trigger Trigger) (Result, error) {
	loadCtx, cancel, gen := c.begin(ctx)
	defer cancel()

	c.logger.Debug("Loading feed", "trigger", trigger, "generation", gen)

	items, err := c.fetch(loadCtx)
	res, err := c.finish(loadCtx, gen, items, err)

	loadsTotal.WithLabelValues(string(trigger), res.Status.String()).Inc()
	switch res.Status {
	case StatusLoaded:
		c.logger.Info("Feed loaded", "trigger", trigger, "generation", gen, "count", len(res.Items))
	case StatusFailed:
		c.logger.Error("Feed load failed", "trigger", trigger, "generation", gen, "error", err)
	default:
		c.logger.Debug("Feed load dropped", "trigger", trigger, "generation", gen, "status", res.Status)
	}
	return res, err
}

// Cancel aborts the current load, if any. The load ends as StatusCancelled and the
// previous items stay visible.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Coordinator) begin(ctx context.Context) (context.Context, context.CancelFunc, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	gen := c.generation

	loadCtx, cancel := context.WithCancel(ctx)
	if c.timeout > 0 {
		var cancelTimeout context.CancelFunc
		loadCtx, cancelTimeout = context.WithTimeout(loadCtx, c.timeout)
		parent := cancel
		cancel = func() {
			cancelTimeout()
			parent()
		}
	}
	c.cancel = cancel

	c.state.Update(func(s State) State {
		s.Loading = true
		s.Err = nil
		return s
	})
	return loadCtx, cancel, gen
}

func (c *Coordinator) fetch(ctx context.Context) ([]Item, error) {
	records, err := c.tables.Select(ctx, gateway.TableMoments, gateway.Query{
		OrderBy:    mapper.ColPublishTime,
		Descending: true,
	})
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(records))
	for _, rec := range records {
		m, err := mapper.DecodeMoment(rec)
		if err != nil {
			return nil, err
		}
		items = append(items, Project(m, c.location))
	}
	return items, nil
}

func (c *Coordinator) finish(ctx context.Context, gen uint64, items []Item, err error) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return Result{Status: StatusSuperseded, Generation: gen}, nil
	}
	c.cancel = nil

	// A transport may ignore the abort and still return rows; a cancelled load never
	// publishes them.
	if errors.Is(ctx.Err(), context.Canceled) || (err != nil && isCancellation(ctx, err)) {
		c.state.Update(func(s State) State {
			s.Loading = false
			s.Err = nil
			return s
		})
		return Result{Status: StatusCancelled, Generation: gen}, nil
	}

	if err != nil {
		ferr := classify(err)
		c.state.Update(func(s State) State {
			s.Loading = false
			s.Err = ferr
			return s
		})
		return Result{Status: StatusFailed, Generation: gen}, ferr
	}

	c.state.Set(State{Items: items, Generation: gen})
	return Result{Status: StatusLoaded, Items: items, Generation: gen}, nil
}

// isCancellation is true for an explicit cancel, not for a fetch timeout.
func isCancellation(ctx context.Context, err error) bool {
	if pkgerrors.IsCancelled(err) {
		return true
	}
	return errors.Is(ctx.Err(), context.Canceled)
}
