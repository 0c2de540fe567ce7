package orchestrator

import (
	"context"
	"time"
)

// Run ticks every TickInterval until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	_, err := o.RunUntil(ctx, func(Snapshot) bool { return false })
	return err
}

// RunUntil ticks every TickInterval until done reports true for the
// snapshot taken after a tick, or ctx is done.
func (o *Orchestrator) RunUntil(ctx context.Context, done func(Snapshot) bool) (Snapshot, error) {
	ticker := time.NewTicker(o.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return o.Snapshot(), ctx.Err()
		case <-ticker.C:
			o.Tick(ctx)
			if s := o.Snapshot(); done(s) {
				return s, nil
			}
		}
	}
}
