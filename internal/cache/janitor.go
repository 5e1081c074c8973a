package cache

import (
	"context"
	"time"
)

// Run sweeps expired entries every sweep interval until ctx is cancelled or
// Stop is called. It returns immediately when the sweep interval is zero.
func (c *TTLCache) Run(ctx context.Context) {
	if c.sweepInterval <= 0 {
		return
	}

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.DeleteExpired()
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends a running sweep loop. It is safe to call more than once.
func (c *TTLCache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}
