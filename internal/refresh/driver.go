package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lnies/pressure-display/internal/ingest"
	"github.com/lnies/pressure-display/internal/models"
	"github.com/lnies/pressure-display/internal/observability"
	"github.com/lnies/pressure-display/internal/seriesdb"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is the refresh period of the display.
const DefaultInterval = 60 * time.Second

// Runner performs one ingestion.
type Runner interface {
	Run() *ingest.Result
}

// IndexBuilder turns a merged series into a queryable index.
type IndexBuilder func(ctx context.Context, series *models.Series) (*seriesdb.Index, error)

// Driver re-runs the pipeline on a fixed interval. At most one run is active
// at a time; a tick that fires while the previous run is still going is
// dropped.
type Driver struct {
	runner   Runner
	holder   *Holder
	build    IndexBuilder
	interval time.Duration

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	tickMu sync.Mutex
}

// NewDriver creates a driver. build may be nil, in which case no series
// index is published.
func NewDriver(runner Runner, holder *Holder, build IndexBuilder, interval time.Duration) (*Driver, error) {
	if runner == nil || holder == nil {
		return nil, fmt.Errorf("driver requires a runner and a holder")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if interval < time.Second {
		return nil, fmt.Errorf("refresh interval must be at least 1s, got %s", interval)
	}

	logger := observability.CronLogger{Logger: log.With().Str("component", "refresh").Logger()}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	d := &Driver{
		runner:   runner,
		holder:   holder,
		build:    build,
		interval: interval,
		cron:     c,
		ctx:      ctx,
		cancel:   cancel,
	}

	schedule := fmt.Sprintf("@every %s", interval)
	if _, err := c.AddFunc(schedule, d.Tick); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to schedule refresh %q: %w", schedule, err)
	}
	return d, nil
}

// Interval returns the refresh period.
func (d *Driver) Interval() time.Duration {
	return d.interval
}

// Start runs one refresh synchronously, so the first result is available
// as soon as Start returns, then starts the schedule.
func (d *Driver) Start() {
	log.Info().Dur("interval", d.interval).Msg("Starting refresh driver")
	d.Tick()
	d.cron.Start()
}

// Tick runs the pipeline once and publishes the result.
func (d *Driver) Tick() {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	res := d.runner.Run()

	var index *seriesdb.Index
	if d.build != nil && res.Series != nil && d.ctx.Err() == nil {
		start := time.Now()
		ix, err := d.build(d.ctx, res.Series)
		if err != nil {
			log.Warn().Err(err).Str("run_id", res.RunID).Msg("Failed to build series index")
		} else {
			index = ix
			log.Debug().Dur("duration", time.Since(start)).Int("rows", ix.Len()).Msg("Series index ready")
		}
	}

	d.holder.Publish(res, index)
}

// Stop halts the schedule and waits for a running refresh to finish or for
// ctx to expire.
func (d *Driver) Stop(ctx context.Context) error {
	log.Info().Msg("Stopping refresh driver...")
	stopCtx := d.cron.Stop()
	select {
	case <-stopCtx.Done():
		d.cancel()
		log.Info().Msg("Refresh driver stopped")
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}
