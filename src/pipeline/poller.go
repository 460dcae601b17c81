package pipeline

import (
	"context"
	"fmt"
	"time"

	"code.cloudfoundry.org/clock"

	"jobhealth/src/contracts"
	"jobhealth/src/logger"
	"jobhealth/src/provider"
)

// Poller refreshes a target immediately and then on every interval tick.
// Refreshes never overlap.
type Poller struct {
	Refresher *Refresher
	Options   RefreshOptions
	Interval  time.Duration
	Clock     clock.Clock
	Logger    logger.Logger

	// OnSnapshot, if set, receives every snapshot a refresh produced.
	OnSnapshot func(*contracts.DashboardSnapshot)
}

// Run polls until ctx is done. Failed refreshes are logged and retried on
// the next tick. A non-positive Interval is rejected before any refresh.
func (p *Poller) Run(ctx context.Context) error {
	if p.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", p.Interval)
	}

	clk := p.Clock
	if clk == nil {
		clk = clock.NewClock()
	}
	log := p.Logger
	if log == nil {
		log = logger.NewSilentLogger()
	}

	p.refresh(ctx, log)

	ticker := clk.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			p.refresh(ctx, log)
		}
	}
}

func (p *Poller) refresh(ctx context.Context, log logger.Logger) {
	snap, err := p.Refresher.Refresh(ctx, p.Options)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error("[Poller] Refresh of %s failed: %v", p.Options.Target, provider.WrapError(err))
		return
	}
	if snap != nil && p.OnSnapshot != nil {
		p.OnSnapshot(snap)
	}
}
