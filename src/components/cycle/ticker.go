package cycle

import (
	"context"
	"log"
	"time"
)

// TickInterval is one in-world month of real time.
const TickInterval = 24 * time.Hour

// Ticker advances the clock on a fixed real-world period. Storage
// trouble skips the tick instead of killing the loop.
type Ticker struct {
	service  *Service
	interval time.Duration
}

func NewTicker(service *Service, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = TickInterval
	}
	return &Ticker{service: service, interval: interval}
}

func (t *Ticker) Start(ctx context.Context) {
	log.Println("Starting cycle clock ticker")
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping cycle clock ticker")
			return
		case <-ticker.C:
			state, err := t.service.AdvanceTick(ctx)
			if err != nil {
				log.Printf("Cycle tick skipped: %v", err)
				continue
			}
			if state.Paused {
				continue
			}
			log.Printf("Cycle advanced: cycle %d, year %d, month %d (%s)",
				state.Cycle, state.Year, state.Month, state.Phase)
		}
	}
}
