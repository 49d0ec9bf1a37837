package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/cardmint/cardmint/internal/subscription/domain"
	"gorm.io/gorm"
)

const subscriptionColumns = `id, tenant_id, plan_code, base_amount, tax_amount, total_amount,
	 currency, status, is_active, start_at, end_at, gateway_order_id, gateway_payment_id,
	 credential_source, created_at, updated_at`

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (
			id, tenant_id, plan_code, base_amount, tax_amount, total_amount, currency,
			status, is_active, start_at, end_at, gateway_order_id, gateway_payment_id,
			credential_source, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		subscription.ID,
		subscription.TenantID,
		subscription.PlanCode,
		subscription.BaseAmount,
		subscription.TaxAmount,
		subscription.TotalAmount,
		subscription.Currency,
		subscription.Status,
		subscription.IsActive,
		subscription.StartAt,
		subscription.EndAt,
		subscription.GatewayOrderID,
		subscription.GatewayPaymentID,
		subscription.CredentialSource,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions WHERE id = ?`,
		id,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) FindByTenantAndOrder(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, gatewayOrderID string) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions WHERE tenant_id = ? AND gateway_order_id = ?`,
		tenantID,
		gatewayOrderID,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) FindCurrent(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE tenant_id = ? AND status = ? AND is_active = ?
		 ORDER BY created_at DESC
		 LIMIT 1`,
		tenantID,
		subscriptiondomain.SubscriptionStatusActive,
		true,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]subscriptiondomain.Subscription, error) {
	var subscriptions []subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions WHERE tenant_id = ? ORDER BY created_at DESC`,
		tenantID,
	).Scan(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repo) Activate(ctx context.Context, db *gorm.DB, id snowflake.ID, paymentID string, startAt, endAt, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?, is_active = ?, gateway_payment_id = ?, start_at = ?, end_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		subscriptiondomain.SubscriptionStatusActive,
		true,
		paymentID,
		startAt,
		endAt,
		now,
		id,
		subscriptiondomain.SubscriptionStatusPending,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Supersede(ctx context.Context, db *gorm.DB, tenantID, keepID snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?, is_active = ?, updated_at = ?
		 WHERE tenant_id = ? AND id <> ? AND status IN ?`,
		subscriptiondomain.SubscriptionStatusExpired,
		false,
		now,
		tenantID,
		keepID,
		[]subscriptiondomain.SubscriptionStatus{
			subscriptiondomain.SubscriptionStatusActive,
			subscriptiondomain.SubscriptionStatusPending,
		},
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) Cancel(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?, is_active = ?, updated_at = ?
		 WHERE id = ? AND status IN ?`,
		subscriptiondomain.SubscriptionStatusCancelled,
		false,
		now,
		id,
		[]subscriptiondomain.SubscriptionStatus{
			subscriptiondomain.SubscriptionStatusPending,
			subscriptiondomain.SubscriptionStatusActive,
		},
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *subscriptiondomain.SubscriptionPayment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscription_payments (
			id, tenant_id, subscription_id, gateway_order_id, gateway_payment_id,
			amount, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.TenantID,
		payment.SubscriptionID,
		payment.GatewayOrderID,
		payment.GatewayPaymentID,
		payment.Amount,
		payment.Status,
		payment.CreatedAt,
	).Error
}
