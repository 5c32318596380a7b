package service

import (
	"context"
	"time"
)

// StartSweeper removes links that expired more than grace ago every interval,
// together with their click history. It returns immediately; the loop stops
// when ctx is cancelled. A zero interval does nothing.
func (s *URLService) StartSweeper(ctx context.Context, interval, grace time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Sweep(ctx, grace); err != nil {
					s.log.Error("expiry sweep failed", "error", err)
				}
			}
		}
	}()
}

// Sweep runs one expiry pass and returns how many links were removed
func (s *URLService) Sweep(ctx context.Context, grace time.Duration) (int, error) {
	removed, err := s.registry.Sweep(ctx, grace)
	if err != nil {
		return 0, err
	}

	for _, code := range removed {
		if err := s.recorder.Forget(ctx, code); err != nil {
			s.log.Warn("drop click history failed", "shortcode", code, "error", err)
		}
	}

	if len(removed) > 0 {
		s.log.Info("expired links swept", "removed", len(removed))
	}
	return len(removed), nil
}
