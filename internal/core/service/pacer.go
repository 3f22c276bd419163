package service

import (
	"context"
	"time"
)

// Pacer enforces the idle gap the half-duplex bus needs before every
// transaction.
type Pacer struct {
	gap   time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPacer(gap time.Duration) *Pacer {
	return &Pacer{gap: gap, sleep: sleepContext}
}

func (p *Pacer) Gap() time.Duration {
	return p.gap
}

// Wait blocks for the full gap. The transaction must not be issued if it
// returns an error.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.gap <= 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, p.gap)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
