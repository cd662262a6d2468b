package auth

import (
	"context"
	"log/slog"
	"time"
)

// Housekeeper periodically deletes pending signups older than CodeTTL, so an
// abandoned signup does not outlive its code. Until a sweep removes it, an
// expired signup still resolves and its code is rejected as expired.
type Housekeeper struct {
	repo     Repository
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeeper creates a housekeeper. A non-positive interval defaults to five minutes.
func NewHousekeeper(repo Repository, logger *slog.Logger, interval time.Duration) *Housekeeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Housekeeper{
		repo:     repo,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background loop. Call Stop to end it.
func (h *Housekeeper) Start() {
	go h.run()
	h.logger.Info("housekeeping started", "interval", h.interval)
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (h *Housekeeper) Stop() {
	close(h.stopCh)
	<-h.doneCh
	h.logger.Info("housekeeping stopped")
}

func (h *Housekeeper) run() {
	defer close(h.doneCh)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.Sweep(context.Background())
	for {
		select {
		case <-ticker.C:
			h.Sweep(context.Background())
		case <-h.stopCh:
			return
		}
	}
}

// Sweep deletes expired pending signups once and returns how many were removed.
func (h *Housekeeper) Sweep(ctx context.Context) int64 {
	n, err := h.repo.DeleteExpiredPendingAccounts(ctx, h.now().Add(-CodeTTL))
	if err != nil {
		h.logger.Error("failed to delete expired pending accounts", "error", err)
		return 0
	}
	if n > 0 {
		h.logger.Info("deleted expired pending accounts", "count", n)
	}
	return n
}
