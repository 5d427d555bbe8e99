package worker

import (
	"context"
	"time"

	"github.com/rookgm/creditmart/internal/logger"
	"go.uber.org/zap"
)

type SweepService interface {
	VerifyPending(ctx context.Context, refs <-chan string)
	GetPendingReferences(ctx context.Context, refs chan<- string) error
}

// PendingSweeper is worker verifies pending orders whose webhook has not arrived
type PendingSweeper struct {
	svc      SweepService
	interval time.Duration
}

// NewPendingSweeper create new pending sweeper
func NewPendingSweeper(svc SweepService, interval time.Duration) *PendingSweeper {
	return &PendingSweeper{svc: svc, interval: interval}
}

// Run sweeps pending orders every interval until ctx is done
func (ps *PendingSweeper) Run(ctx context.Context) {
	refs := make(chan string, 10)

	go ps.svc.VerifyPending(ctx, refs)

	ticker := time.NewTicker(ps.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Debug("pending sweeper is done")
			return
		case <-ticker.C:
			if err := ps.svc.GetPendingReferences(ctx, refs); err != nil {
				logger.Log.Error("error get pending orders", zap.Error(err))
			}
		}
	}
}
