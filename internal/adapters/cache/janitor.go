package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// janitor sweeps expired entries on a fixed interval until halted
type janitor struct {
	stop chan struct{}
	once sync.Once
}

func startJanitor(interval time.Duration, logger *zap.Logger, sweep func(context.Context) error) *janitor {
	j := &janitor{stop: make(chan struct{})}
	if interval <= 0 {
		return j
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sweep(context.Background()); err != nil {
					logger.Error("Failed to clean up cache", zap.Error(err))
				}
			case <-j.stop:
				return
			}
		}
	}()
	return j
}

// halt stops the sweep loop and reports whether this call did it
func (j *janitor) halt() bool {
	first := false
	j.once.Do(func() {
		close(j.stop)
		first = true
	})
	return first
}
