package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mauv0809/etf-flows/internal/catalog"
)

// TriggerSchedule tags runs started by Schedule.
const TriggerSchedule = "schedule"

// Schedule runs every source once immediately and then on each tick of
// interval until ctx is done. Sources run one after another; a slow run
// delays the next tick instead of overlapping it.
func (p *Pipeline) Schedule(ctx context.Context, interval time.Duration, sources []*catalog.Source) error {
	log.Info().Dur("interval", interval).Int("sources", len(sources)).Msg("scheduler started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, src := range sources {
			if ctx.Err() != nil {
				return nil
			}
			p.Run(ctx, src, TriggerSchedule)
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}
