package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/service"
)

type Refresher interface {
	RefreshAll(ctx context.Context) ([]models.PriceQuote, error)
}

type OwnerLister interface {
	PurchaseOwners(ctx context.Context) ([]uuid.UUID, error)
}

type Snapshotter interface {
	Snapshot(ctx context.Context, userID uuid.UUID, day models.Date) (models.DailyValue, error)
}

// PriceSyncJob refreshes prices for every tracked symbol and then stores
// each owner's valuation for the day.
type PriceSyncJob struct {
	prices    Refresher
	owners    OwnerLister
	portfolio Snapshotter
	log       *zap.Logger
	now       func() time.Time
}

func NewPriceSyncJob(prices Refresher, owners OwnerLister, portfolio Snapshotter, log *zap.Logger) *PriceSyncJob {
	if log == nil {
		log = zap.NewNop()
	}
	return &PriceSyncJob{
		prices:    prices,
		owners:    owners,
		portfolio: portfolio,
		log:       log,
		now:       time.Now,
	}
}

// Start runs the job once, then on spec until ctx is done.
func (j *PriceSyncJob) Start(ctx context.Context, spec string) error {
	r := NewRunner(ctx, j.log)
	if _, err := r.Add(spec, j.Run); err != nil {
		return fmt.Errorf("schedule price sync %q: %w", spec, err)
	}
	j.Run(ctx)
	r.Start()
	<-ctx.Done()
	r.Stop()
	return nil
}

func (j *PriceSyncJob) Run(ctx context.Context) {
	start := time.Now()
	snapshots, err := j.run(ctx)
	if err != nil {
		j.log.Error("price sync failed", zap.Error(err))
		return
	}
	j.log.Info("price sync done", zap.Int("snapshots", snapshots), zap.Duration("took", time.Since(start)))
}

func (j *PriceSyncJob) run(ctx context.Context) (int, error) {
	quotes, err := j.prices.RefreshAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("refresh prices: %w", err)
	}
	j.log.Debug("prices refreshed", zap.Int("quotes", len(quotes)))

	owners, err := j.owners.PurchaseOwners(ctx)
	if err != nil {
		return 0, fmt.Errorf("list owners: %w", err)
	}

	day := models.DateOf(j.now())
	n := 0
	for _, userID := range owners {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		if _, err := j.portfolio.Snapshot(ctx, userID, day); err != nil {
			if errors.Is(err, service.ErrNoPrices) {
				j.log.Debug("holdings snapshot skipped, no prices", zap.String("user_id", userID.String()))
				continue
			}
			j.log.Warn("holdings snapshot failed", zap.String("user_id", userID.String()), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}
