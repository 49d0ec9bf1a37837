package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	billingeventdomain "github.com/cardmint/cardmint/internal/billingevent/domain"
	"github.com/cardmint/cardmint/internal/clock"
	"github.com/cardmint/cardmint/internal/config"
	invoicedomain "github.com/cardmint/cardmint/internal/invoice/domain"
	"github.com/cardmint/cardmint/internal/invoice/format"
	"github.com/cardmint/cardmint/internal/metrics"
	"github.com/cardmint/cardmint/internal/providers/email"
	"github.com/cardmint/cardmint/internal/providers/pdf"
	subscriptiondomain "github.com/cardmint/cardmint/internal/subscription/domain"
	tenantdomain "github.com/cardmint/cardmint/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID   *snowflake.Node
	clock   clock.Clock
	billing *config.BillingConfigHolder
	metrics *metrics.Metrics

	repo       invoicedomain.Repository
	tenantRepo tenantdomain.Repository
	subRepo    subscriptiondomain.Repository

	pdf   pdf.Provider
	email email.Provider
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Billing *config.BillingConfigHolder
	Metrics *metrics.Metrics

	Repo       invoicedomain.Repository
	TenantRepo tenantdomain.Repository
	SubRepo    subscriptiondomain.Repository

	PDF   pdf.Provider
	Email email.Provider
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invoice.service"),

		genID:   p.GenID,
		clock:   p.Clock,
		billing: p.Billing,
		metrics: p.Metrics,

		repo:       p.Repo,
		tenantRepo: p.TenantRepo,
		subRepo:    p.SubRepo,

		pdf:   p.PDF,
		email: p.Email,
	}
}

// IssueForActivation implements domain.Service.
func (s *Service) IssueForActivation(ctx context.Context, event billingeventdomain.BillingEvent) (invoicedomain.Invoice, error) {
	subscriptionID, err := s.subscriptionIDFromEvent(event)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	var result invoicedomain.Invoice
	issued := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindBySubscriptionID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = *existing
			return nil
		}

		subscription, err := s.subRepo.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if subscription == nil {
			return subscriptiondomain.ErrSubscriptionNotFound
		}

		tenant, err := s.tenantRepo.FindByID(ctx, tx, subscription.TenantID)
		if err != nil {
			return err
		}
		if tenant == nil {
			return tenantdomain.ErrTenantNotFound
		}

		seq, err := s.tenantRepo.NextInvoiceSeq(ctx, tx, tenant.ID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		number, err := format.InvoiceNumber(now, seq)
		if err != nil {
			return err
		}

		dueAt := now.AddDate(0, 0, s.dueDays())
		invoice := invoicedomain.Invoice{
			ID:             s.genID.Generate(),
			TenantID:       tenant.ID,
			SubscriptionID: subscription.ID,
			InvoiceSeq:     seq,
			InvoiceNumber:  number,
			TenantName:     tenant.Name,
			TenantEmail:    tenant.Email,
			TenantAddress:  tenant.Address,
			PlanCode:       subscription.PlanCode,
			BaseAmount:     subscription.BaseAmount,
			TaxAmount:      subscription.TaxAmount,
			TotalAmount:    subscription.TotalAmount,
			Currency:       subscription.Currency,
			Status:         invoicedomain.InvoiceStatusPaid,
			IssuedAt:       now,
			DueAt:          &dueAt,
			DeliveryStatus: invoicedomain.DeliveryStatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		inserted, err := s.repo.Insert(ctx, tx, &invoice)
		if err != nil {
			return err
		}
		if !inserted {
			// Lost a race with a concurrent issuer; the sequence gap is
			// harmless, numbering stays monotonic.
			current, err := s.repo.FindBySubscriptionID(ctx, tx, subscriptionID)
			if err != nil {
				return err
			}
			if current == nil {
				return invoicedomain.ErrInvoiceNotFound
			}
			result = *current
			return nil
		}

		issued = true
		result = invoice
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	if issued {
		s.metrics.InvoicesIssued.Inc()
		s.log.Info("invoice issued",
			zap.String("invoice_id", result.ID.String()),
			zap.String("invoice_number", result.InvoiceNumber),
			zap.String("subscription_id", subscriptionID.String()),
			zap.String("tenant_id", result.TenantID.String()),
		)
	}
	return result, nil
}

// Deliver implements domain.Service.
func (s *Service) Deliver(ctx context.Context, invoice invoicedomain.Invoice) error {
	if invoice.DeliveryStatus == invoicedomain.DeliveryStatusSent {
		return nil
	}

	if err := s.deliver(ctx, invoice); err != nil {
		s.metrics.InvoiceDeliveryFailures.Inc()
		s.log.Error("invoice delivery failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Error(err),
		)
		if updateErr := s.repo.UpdateDeliveryStatus(ctx, s.db, invoice.ID, invoicedomain.DeliveryStatusFailed, nil, err.Error()); updateErr != nil {
			s.log.Error("invoice delivery status update failed",
				zap.String("invoice_id", invoice.ID.String()),
				zap.Error(updateErr),
			)
		}
		return err
	}

	now := s.clock.Now()
	if err := s.repo.UpdateDeliveryStatus(ctx, s.db, invoice.ID, invoicedomain.DeliveryStatusSent, &now, ""); err != nil {
		return err
	}

	s.log.Info("invoice delivered",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("tenant_id", invoice.TenantID.String()),
	)
	return nil
}

// ListByTenant implements domain.Service.
func (s *Service) ListByTenant(ctx context.Context, tenantID string) ([]invoicedomain.Invoice, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(tenantID), 10, 64)
	if err != nil || parsed == 0 {
		return nil, tenantdomain.ErrInvalidTenant
	}
	return s.repo.ListByTenant(ctx, s.db, snowflake.ParseInt64(parsed))
}

func (s *Service) deliver(ctx context.Context, invoice invoicedomain.Invoice) error {
	doc, err := s.pdf.GenerateInvoice(ctx, s.pdfData(invoice))
	if err != nil {
		return fmt.Errorf("render invoice pdf: %w", err)
	}
	raw, err := io.ReadAll(doc)
	if err != nil {
		return fmt.Errorf("read invoice pdf: %w", err)
	}

	subject := "Your invoice " + invoice.InvoiceNumber
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Thanks for your payment. Invoice <b>%s</b> for %.2f %s is attached.</p>",
		invoice.TenantName,
		invoice.InvoiceNumber,
		invoice.TotalAmount,
		invoice.Currency,
	)
	attachment := email.Attachment{
		Filename:    invoice.InvoiceNumber + ".pdf",
		ContentType: "application/pdf",
		Data:        raw,
	}
	if err := s.email.Send(ctx, []string{invoice.TenantEmail}, subject, body, []email.Attachment{attachment}); err != nil {
		return fmt.Errorf("send invoice email: %w", err)
	}
	return nil
}

func (s *Service) pdfData(invoice invoicedomain.Invoice) pdf.InvoiceData {
	rate := s.billing.Get().TaxRate
	if invoice.BaseAmount > 0 {
		rate = invoice.TaxAmount / invoice.BaseAmount
	}
	dueDate := ""
	if invoice.DueAt != nil {
		dueDate = invoice.DueAt.Format("2006-01-02")
	}
	return pdf.InvoiceData{
		InvoiceNumber: invoice.InvoiceNumber,
		IssueDate:     invoice.IssuedAt.Format("2006-01-02"),
		DueDate:       dueDate,
		BillToName:    invoice.TenantName,
		BillToAddress: invoice.TenantAddress,
		BillToEmail:   invoice.TenantEmail,
		PlanName:      invoice.PlanCode,
		Base:          fmt.Sprintf("%.2f", invoice.BaseAmount),
		Tax:           fmt.Sprintf("%.2f", invoice.TaxAmount),
		TaxRate:       fmt.Sprintf("%.0f%%", rate*100),
		Total:         fmt.Sprintf("%.2f", invoice.TotalAmount),
		Currency:      invoice.Currency,
	}
}

func (s *Service) dueDays() int {
	days := s.billing.Get().InvoiceDueDays
	if days <= 0 {
		days = 7
	}
	return days
}

func (s *Service) subscriptionIDFromEvent(event billingeventdomain.BillingEvent) (snowflake.ID, error) {
	raw, ok := event.Payload["subscription_id"].(string)
	if !ok || raw == "" {
		return 0, invoicedomain.ErrInvalidEvent
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed == 0 {
		return 0, invoicedomain.ErrInvalidEvent
	}
	return snowflake.ParseInt64(parsed), nil
}
