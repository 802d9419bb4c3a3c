package poller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yenshow/ba-frontend/internal/apiclient"
	"github.com/yenshow/ba-frontend/internal/infrastructure/logging"
	"github.com/yenshow/ba-frontend/internal/infrastructure/metrics"
	"github.com/yenshow/ba-frontend/internal/modbus"
)

const (
	defaultInterval    = 2 * time.Second
	defaultConcurrency = 4
)

// Reader is the part of the Modbus gateway the poller uses.
type Reader interface {
	Read(ctx context.Context, space modbus.Space, address, length uint16, conn modbus.Connection) (*modbus.Reading, error)
}

// Options configures a Poller.
type Options struct {
	Reader      Reader
	Points      []Point
	Interval    time.Duration
	Concurrency int
	Sinks       []Sink

	// Active gates each cycle. Nil means always active (anonymous Modbus).
	Active func() bool

	Logger *logging.Logger
}

// Result summarises one cycle.
type Result struct {
	OK      int
	Failed  int
	Skipped bool
	Stopped bool // ended early on Unauthorized
}

func (r Result) label() string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Stopped:
		return "stopped"
	case r.Failed > 0:
		return "partial"
	default:
		return "ok"
	}
}

// Poller reads the configured points every interval.
type Poller struct {
	reader      Reader
	points      []Point
	interval    time.Duration
	concurrency int
	sinks       []Sink
	active      func() bool
	logger      *logging.Logger
	now         func() time.Time
}

// New creates a Poller.
func New(opts Options) (*Poller, error) {
	if opts.Reader == nil {
		return nil, ErrNoReader
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Poller{
		reader:      opts.Reader,
		points:      opts.Points,
		interval:    interval,
		concurrency: concurrency,
		sinks:       opts.Sinks,
		active:      opts.Active,
		logger:      logger.With("component", "poller"),
		now:         time.Now,
	}, nil
}

// Run polls until ctx is cancelled. The first cycle starts immediately.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started", "points", len(p.points), "interval", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.Cycle(ctx)
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// errStop cancels the remaining reads of a cycle.
var errStop = errors.New("poller: session invalidated")

// Cycle reads every point once and delivers the samples.
func (p *Poller) Cycle(ctx context.Context) Result {
	var res Result
	if len(p.points) == 0 {
		return res
	}
	if p.active != nil && !p.active() {
		res.Skipped = true
		metrics.PollCyclesTotal.WithLabelValues(res.label()).Inc()
		return res
	}

	var ok, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, pt := range p.points {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			err := p.poll(gctx, pt)
			if err == nil {
				ok.Add(1)
				metrics.PollPointsTotal.WithLabelValues(string(pt.Space), "ok").Inc()
				return nil
			}
			if gctx.Err() != nil {
				// Cancelled by a sibling's Unauthorized or shutdown.
				return nil
			}
			failed.Add(1)
			kind := apiclient.KindOf(err)
			metrics.PollPointsTotal.WithLabelValues(string(pt.Space), string(kind)).Inc()
			p.logger.Warn("poll failed", "point", pt.String(), "kind", kind, "error", err)
			if kind == apiclient.KindUnauthorized {
				return errStop
			}
			return nil
		})
	}

	err := g.Wait()
	res.OK, res.Failed = int(ok.Load()), int(failed.Load())
	res.Stopped = errors.Is(err, errStop)
	if res.Stopped {
		p.logger.Warn("poll cycle stopped: session invalidated")
	}
	metrics.PollCyclesTotal.WithLabelValues(res.label()).Inc()
	return res
}

func (p *Poller) poll(ctx context.Context, pt Point) error {
	reading, err := p.reader.Read(ctx, pt.Space, pt.Address, pt.Length, pt.Conn)
	if err != nil {
		return fmt.Errorf("%s: %w", pt, err)
	}
	s := Sample{DeviceID: pt.DeviceID, Reading: reading, At: p.now()}
	for _, sink := range p.sinks {
		if err := sink.Accept(s); err != nil {
			p.logger.Warn("sample sink failed", "point", pt.String(), "error", err)
		}
	}
	return nil
}
