package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingeventdomain "github.com/cardmint/cardmint/internal/billingevent/domain"
	"github.com/cardmint/cardmint/internal/clock"
	"github.com/cardmint/cardmint/internal/config"
	"github.com/cardmint/cardmint/internal/credential"
	"github.com/cardmint/cardmint/internal/gateway"
	"github.com/cardmint/cardmint/internal/metrics"
	"github.com/cardmint/cardmint/internal/ratelimit"
	subscriptiondomain "github.com/cardmint/cardmint/internal/subscription/domain"
	"github.com/cardmint/cardmint/internal/tax"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const verifyLockTTL = 30 * time.Second

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID   *snowflake.Node
	clock   clock.Clock
	billing *config.BillingConfigHolder
	metrics *metrics.Metrics
	locker  *ratelimit.Locker

	repo      subscriptiondomain.Repository
	eventRepo billingeventdomain.Repository

	resolver *credential.Resolver
	gateway  gateway.Client
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Billing *config.BillingConfigHolder
	Metrics *metrics.Metrics
	Locker  *ratelimit.Locker `optional:"true"`

	Repo      subscriptiondomain.Repository
	EventRepo billingeventdomain.Repository

	Resolver *credential.Resolver
	Gateway  gateway.Client
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		genID:   p.GenID,
		clock:   p.Clock,
		billing: p.Billing,
		metrics: p.Metrics,
		locker:  p.Locker,

		repo:      p.Repo,
		eventRepo: p.EventRepo,

		resolver: p.Resolver,
		gateway:  p.Gateway,
	}
}

// CreateOrder implements domain.Service.
func (s *Service) CreateOrder(ctx context.Context, req subscriptiondomain.CreateOrderRequest) (subscriptiondomain.CreateOrderResponse, error) {
	tenantID, err := s.parseID(req.TenantID, subscriptiondomain.ErrInvalidTenant)
	if err != nil {
		return subscriptiondomain.CreateOrderResponse{}, err
	}

	billing := s.billing.Get()
	plan, ok := billing.PlanByCode(req.PlanCode)
	if !ok {
		return subscriptiondomain.CreateOrderResponse{}, subscriptiondomain.ErrInvalidPlan
	}

	cred, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return subscriptiondomain.CreateOrderResponse{}, err
	}

	breakdown, err := tax.Compute(plan.Amount, billing.TaxRate)
	if err != nil {
		return subscriptiondomain.CreateOrderResponse{}, err
	}

	id := s.genID.Generate()
	order, err := s.gateway.CreateOrder(ctx, gateway.CreateOrderRequest{
		KeyID:     cred.KeyID,
		KeySecret: cred.KeySecret,
		Amount:    breakdown.Total,
		Currency:  billing.Currency,
		Receipt:   "sub_" + id.String(),
	})
	if err != nil {
		return subscriptiondomain.CreateOrderResponse{}, err
	}

	now := s.clock.Now()
	subscription := subscriptiondomain.Subscription{
		ID:               id,
		TenantID:         tenantID,
		PlanCode:         plan.Code,
		BaseAmount:       breakdown.Base,
		TaxAmount:        breakdown.Tax,
		TotalAmount:      breakdown.Total,
		Currency:         billing.Currency,
		Status:           subscriptiondomain.SubscriptionStatusPending,
		GatewayOrderID:   order.ID,
		CredentialSource: string(cred.Source),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Insert(ctx, s.db, &subscription); err != nil {
		return subscriptiondomain.CreateOrderResponse{}, err
	}

	s.log.Info("subscription order created",
		zap.String("subscription_id", id.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("plan_code", plan.Code),
		zap.String("gateway_order_id", order.ID),
		zap.String("credential_source", string(cred.Source)),
	)

	return subscriptiondomain.CreateOrderResponse{
		Subscription: subscription,
		Order:        order,
	}, nil
}

// VerifyPayment implements domain.Service.
func (s *Service) VerifyPayment(ctx context.Context, req subscriptiondomain.VerifyPaymentRequest) (subscriptiondomain.Subscription, error) {
	subscription, err := s.locateForVerify(ctx, req)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	if req.OrderID != "" && subscription.GatewayOrderID != req.OrderID {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrOrderMismatch
	}

	cred, err := s.resolver.Resolve(ctx, subscription.TenantID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if string(cred.Source) != subscription.CredentialSource {
		s.log.Warn("credential source changed between order and verify",
			zap.String("subscription_id", subscription.ID.String()),
			zap.String("order_source", subscription.CredentialSource),
			zap.String("verify_source", string(cred.Source)),
		)
	}

	if err := gateway.VerifySignature(subscription.GatewayOrderID, req.PaymentID, req.Signature, cred.KeySecret); err != nil {
		s.metrics.SignatureRejections.Inc()
		s.log.Warn("payment signature rejected",
			zap.String("subscription_id", subscription.ID.String()),
			zap.String("tenant_id", subscription.TenantID.String()),
		)
		return subscriptiondomain.Subscription{}, err
	}

	// Advisory only; the conditional update below is what guarantees
	// exactly-once activation.
	if s.locker != nil {
		key := "cardmint:verify:" + subscription.GatewayOrderID
		if token, ok, lockErr := s.locker.TryLock(ctx, key, verifyLockTTL); lockErr == nil && ok {
			defer func() { _ = s.locker.Release(ctx, key, token) }()
		}
	}

	now := s.clock.Now()
	startAt := now
	endAt := s.periodEnd(subscription.PlanCode, now)

	var (
		result    subscriptiondomain.Subscription
		activated bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		won, err := s.repo.Activate(ctx, tx, subscription.ID, req.PaymentID, startAt, endAt, now)
		if err != nil {
			return err
		}
		if !won {
			current, err := s.repo.FindByID(ctx, tx, subscription.ID)
			if err != nil {
				return err
			}
			if current == nil {
				return subscriptiondomain.ErrSubscriptionNotFound
			}
			if current.Status != subscriptiondomain.SubscriptionStatusActive {
				return subscriptiondomain.ErrInvalidTransition
			}
			// Duplicate verify of an already active subscription is a
			// no-op success; no second supersession, no second event.
			result = *current
			return nil
		}
		activated = true

		if _, err := s.repo.Supersede(ctx, tx, subscription.TenantID, subscription.ID, now); err != nil {
			return err
		}

		payment := subscriptiondomain.SubscriptionPayment{
			ID:               s.genID.Generate(),
			TenantID:         subscription.TenantID,
			SubscriptionID:   subscription.ID,
			GatewayOrderID:   subscription.GatewayOrderID,
			GatewayPaymentID: req.PaymentID,
			Amount:           subscription.TotalAmount,
			Status:           "captured",
			CreatedAt:        now,
		}
		if err := s.repo.InsertPayment(ctx, tx, &payment); err != nil {
			return err
		}

		event := billingeventdomain.BillingEvent{
			ID:        s.genID.Generate(),
			TenantID:  subscription.TenantID,
			EventType: billingeventdomain.EventTypeSubscriptionActivated,
			Payload: datatypes.JSONMap{
				"subscription_id": subscription.ID.String(),
				"tenant_id":       subscription.TenantID.String(),
				"payment_id":      req.PaymentID,
				"plan_code":       subscription.PlanCode,
			},
			DedupeKey: "activation:" + subscription.ID.String() + ":" + req.PaymentID,
			CreatedAt: now,
		}
		if _, err := s.eventRepo.InsertDedup(ctx, tx, &event); err != nil {
			return err
		}

		result = *subscription
		result.Status = subscriptiondomain.SubscriptionStatusActive
		result.IsActive = true
		result.GatewayPaymentID = req.PaymentID
		result.StartAt = &startAt
		result.EndAt = &endAt
		result.UpdatedAt = now
		return nil
	})
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	if activated {
		s.metrics.SubscriptionActivations.Inc()
		s.log.Info("subscription activated",
			zap.String("subscription_id", subscription.ID.String()),
			zap.String("tenant_id", subscription.TenantID.String()),
			zap.String("gateway_payment_id", req.PaymentID),
		)
	}

	return result, nil
}

// Cancel implements domain.Service. Cancelling an already cancelled or
// expired subscription is a no-op; both are terminal and inactive.
func (s *Service) Cancel(ctx context.Context, subscriptionID string) (subscriptiondomain.Subscription, error) {
	id, err := s.parseID(subscriptionID, subscriptiondomain.ErrInvalidSubscription)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	subscription, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if subscription == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotFound
	}

	switch subscription.Status {
	case subscriptiondomain.SubscriptionStatusCancelled, subscriptiondomain.SubscriptionStatusExpired:
		return *subscription, nil
	}

	now := s.clock.Now()
	cancelled, err := s.repo.Cancel(ctx, s.db, id, now)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if cancelled {
		s.metrics.SubscriptionCancels.Inc()
		s.log.Info("subscription cancelled",
			zap.String("subscription_id", id.String()),
			zap.String("tenant_id", subscription.TenantID.String()),
		)
	}

	current, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if current == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotFound
	}
	return *current, nil
}

// GetCurrent implements domain.Service. A nil result means the tenant has
// no active subscription; that is not an error.
func (s *Service) GetCurrent(ctx context.Context, tenantID string) (*subscriptiondomain.Subscription, error) {
	id, err := s.parseID(tenantID, subscriptiondomain.ErrInvalidTenant)
	if err != nil {
		return nil, err
	}
	return s.repo.FindCurrent(ctx, s.db, id)
}

// List implements domain.Service.
func (s *Service) List(ctx context.Context, tenantID string) ([]subscriptiondomain.Subscription, error) {
	id, err := s.parseID(tenantID, subscriptiondomain.ErrInvalidTenant)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, s.db, id)
}

func (s *Service) locateForVerify(ctx context.Context, req subscriptiondomain.VerifyPaymentRequest) (*subscriptiondomain.Subscription, error) {
	if strings.TrimSpace(req.SubscriptionID) != "" {
		id, err := s.parseID(req.SubscriptionID, subscriptiondomain.ErrInvalidSubscription)
		if err != nil {
			return nil, err
		}
		subscription, err := s.repo.FindByID(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		if subscription == nil {
			return nil, subscriptiondomain.ErrSubscriptionNotFound
		}
		return subscription, nil
	}

	tenantID, err := s.parseID(req.TenantID, subscriptiondomain.ErrInvalidTenant)
	if err != nil {
		return nil, err
	}
	if req.OrderID == "" {
		return nil, subscriptiondomain.ErrSubscriptionNotFound
	}
	subscription, err := s.repo.FindByTenantAndOrder(ctx, s.db, tenantID, req.OrderID)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, subscriptiondomain.ErrSubscriptionNotFound
	}
	return subscription, nil
}

// periodEnd derives the paid-through date from the plan interval. Plans
// removed from the catalog after purchase default to a monthly term.
func (s *Service) periodEnd(planCode string, start time.Time) time.Time {
	interval := "monthly"
	if plan, ok := s.billing.Get().PlanByCode(planCode); ok {
		interval = strings.ToLower(plan.Interval)
	}
	switch interval {
	case "yearly":
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}

func (s *Service) parseID(raw string, fallbackErr error) (snowflake.ID, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || parsed == 0 {
		return 0, fallbackErr
	}
	return snowflake.ParseInt64(parsed), nil
}
