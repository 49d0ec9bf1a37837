// Package worker drains the billing event outbox and turns activation
// events into issued, delivered invoices.
package worker

import (
	"context"
	"errors"
	"time"

	billingeventdomain "github.com/cardmint/cardmint/internal/billingevent/domain"
	"github.com/cardmint/cardmint/internal/clock"
	invoicedomain "github.com/cardmint/cardmint/internal/invoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("worker: invalid config")

type Config struct {
	PollInterval time.Duration
	BatchSize    int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	return c
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       billingeventdomain.Repository
	InvoiceSvc invoicedomain.Service
	Config     Config `optional:"true"`
}

type Worker struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	repo       billingeventdomain.Repository
	invoiceSvc invoicedomain.Service
}

func New(p Params) (*Worker, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Repo == nil || p.InvoiceSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Worker{
		db:         p.DB,
		log:        p.Log.Named("billingevent.worker"),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		repo:       p.Repo,
		invoiceSvc: p.InvoiceSvc,
	}, nil
}

// RunOnce drains one batch of unpublished events. Issuance is
// idempotent, so a row that fails stays unpublished and is retried on
// the next pass.
func (w *Worker) RunOnce(ctx context.Context) error {
	var jobErr error

	for {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		events, err := w.repo.FindUnpublished(ctx, w.db, w.cfg.BatchSize)
		if err != nil {
			return errors.Join(jobErr, err)
		}
		if len(events) == 0 {
			break
		}

		processed := 0
		for _, event := range events {
			if ctx.Err() != nil {
				return errors.Join(jobErr, ctx.Err())
			}
			if err := w.process(ctx, event); err != nil {
				jobErr = errors.Join(jobErr, err)
				continue
			}
			processed++
		}
		// Failed events stay unpublished; without progress another fetch
		// would return the same rows.
		if processed == 0 || len(events) < w.cfg.BatchSize {
			break
		}
	}

	return jobErr
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.log.Warn("outbox pass failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) process(ctx context.Context, event billingeventdomain.BillingEvent) error {
	log := w.log.With(
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", event.EventType),
		zap.String("tenant_id", event.TenantID.String()),
	)

	if event.EventType != billingeventdomain.EventTypeSubscriptionActivated {
		// Unknown types are marked published so they cannot wedge the queue.
		log.Warn("skipping unknown billing event type")
		return w.repo.MarkPublished(ctx, w.db, event.ID, w.clock.Now())
	}

	invoice, err := w.invoiceSvc.IssueForActivation(ctx, event)
	if err != nil {
		log.Error("invoice issuance failed", zap.Error(err))
		if recordErr := w.repo.RecordFailure(ctx, w.db, event.ID, err.Error()); recordErr != nil {
			return errors.Join(err, recordErr)
		}
		return err
	}

	if err := w.repo.MarkPublished(ctx, w.db, event.ID, w.clock.Now()); err != nil {
		return err
	}

	// Delivery is best effort. The failure is recorded on the invoice
	// itself; the event stays published either way.
	if err := w.invoiceSvc.Deliver(ctx, invoice); err != nil {
		log.Warn("invoice delivery failed",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Error(err),
		)
	}
	return nil
}
