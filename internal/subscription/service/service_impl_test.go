package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	billingeventdomain "github.com/cardmint/cardmint/internal/billingevent/domain"
	billingeventrepo "github.com/cardmint/cardmint/internal/billingevent/repository"
	"github.com/cardmint/cardmint/internal/clock"
	"github.com/cardmint/cardmint/internal/config"
	"github.com/cardmint/cardmint/internal/credential"
	"github.com/cardmint/cardmint/internal/gateway"
	"github.com/cardmint/cardmint/internal/metrics"
	"github.com/cardmint/cardmint/internal/secretbox"
	subscriptiondomain "github.com/cardmint/cardmint/internal/subscription/domain"
	subscriptionrepo "github.com/cardmint/cardmint/internal/subscription/repository"
	tenantdomain "github.com/cardmint/cardmint/internal/tenant/domain"
	tenantrepo "github.com/cardmint/cardmint/internal/tenant/repository"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	platformKeyID  = "key_platform"
	platformSecret = "secret_platform"
)

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(
		&tenantdomain.Tenant{},
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.SubscriptionPayment{},
		&billingeventdomain.BillingEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func setupService(t *testing.T, node *snowflake.Node, clk clock.Clock) (subscriptiondomain.Service, *gorm.DB) {
	t.Helper()

	db := openTestDB(t)
	m := metrics.NewWith(prometheus.NewRegistry())
	codec, err := secretbox.New("test-master-secret")
	if err != nil {
		t.Fatalf("codec: %v", err)
	}

	resolver := credential.NewResolver(credential.ResolverParam{
		DB:  db,
		Log: zap.NewNop(),
		Cfg: config.Config{
			GatewayKeyID:     platformKeyID,
			GatewayKeySecret: platformSecret,
		},
		Codec:   codec,
		Repo:    tenantrepo.Provide(),
		Metrics: m,
	})

	service := NewService(ServiceParam{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Billing:   config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		Metrics:   m,
		Repo:      subscriptionrepo.Provide(),
		EventRepo: billingeventrepo.Provide(),
		Resolver:  resolver,
		Gateway:   gateway.NewStubClient(clk),
	})

	return service, db
}

func seedTenant(t *testing.T, db *gorm.DB, node *snowflake.Node) tenantdomain.Tenant {
	t.Helper()

	now := time.Now().UTC()
	tenant := tenantdomain.Tenant{
		ID:        node.Generate(),
		Code:      "acme-" + node.Generate().String(),
		Name:      "Acme Gift Cards",
		Email:     "billing@acme.test",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return tenant
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var count int64
	if err := db.Raw("SELECT COUNT(*) FROM " + table).Scan(&count).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}

func TestCreateOrderRecordsPendingSubscription(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	service, db := setupService(t, node, clk)
	tenant := seedTenant(t, db, node)
	ctx := context.Background()

	resp, err := service.CreateOrder(ctx, subscriptiondomain.CreateOrderRequest{
		TenantID: tenant.ID.String(),
		PlanCode: "monthly",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	sub := resp.Subscription
	if sub.Status != subscriptiondomain.SubscriptionStatusPending {
		t.Fatalf("expected pending subscription, got %s", sub.Status)
	}
	if sub.BaseAmount != 1499.00 || sub.TaxAmount != 269.82 || sub.TotalAmount != 1768.82 {
		t.Fatalf("unexpected amounts: %v %v %v", sub.BaseAmount, sub.TaxAmount, sub.TotalAmount)
	}
	if sub.CredentialSource != string(credential.SourcePlatform) {
		t.Fatalf("expected platform credential, got %q", sub.CredentialSource)
	}
	if resp.Order.ID == "" || resp.Order.ID != sub.GatewayOrderID {
		t.Fatalf("order id mismatch: %q vs %q", resp.Order.ID, sub.GatewayOrderID)
	}
	if resp.Order.Amount != 1768.82 {
		t.Fatalf("order should carry the taxed total, got %v", resp.Order.Amount)
	}
}

func TestCreateOrderRejectsUnknownPlan(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	service, db := setupService(t, node, clk)
	tenant := seedTenant(t, db, node)

	_, err := service.CreateOrder(context.Background(), subscriptiondomain.CreateOrderRequest{
		TenantID: tenant.ID.String(),
		PlanCode: "diamond",
	})
	if err != subscriptiondomain.ErrInvalidPlan {
		t.Fatalf("expected ErrInvalidPlan, got %v", err)
	}
}

func TestCreateOrderUsesTenantCredential(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	service, db := setupService(t, node, clk)
	tenant := seedTenant(t, db, node)

	codec, err := secretbox.New("test-master-secret")
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	encrypted, err := codec.Encrypt("secret_tenant")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if err := db.Model(&tenantdomain.Tenant{}).Where("id = ?", tenant.ID).
		Updates(map[string]any{"gateway_key_id": "key_tenant", "gateway_key_secret": encrypted}).Error; err != nil {
		t.Fatalf("update tenant: %v", err)
	}

	resp, err := service.CreateOrder(context.Background(), subscriptiondomain.CreateOrderRequest{
		TenantID: tenant.ID.String(),
		PlanCode: "monthly",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if resp.Subscription.CredentialSource != string(credential.SourceTenant) {
		t.Fatalf("expected tenant credential, got %q", resp.Subscription.CredentialSource)
	}

	// Verification must sign with the tenant secret, not the platform one.
	sig := gateway.Sign(resp.Order.ID, "pay_001", "secret_tenant")
	verified, err := service.VerifyPayment(context.Background(), subscriptiondomain.VerifyPaymentRequest{
		SubscriptionID: resp.Subscription.ID.String(),
		PaymentID:      "pay_001",
		Signature:      sig,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.Status != subscriptiondomain.SubscriptionStatusActive {
		t.Fatalf("expected active, got %s", verified.Status)
	}
}

func TestVerifyPaymentActivatesExactlyOnce(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	service, db := setupService(t, node, clk)
	tenant := seedTenant(t, db, node)
	ctx := context.Background()

	resp, err := service.CreateOrder(ctx, subscriptiondomain.CreateOrderRequest{
		TenantID: tenant.ID.String(),
		PlanCode: "monthly",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	req := subscriptiondomain.VerifyPaymentRequest{
		SubscriptionID: resp.Subscription.ID.String(),
		OrderID:        resp.Order.ID,
		PaymentID:      "pay_123",
		Signature:      gateway.Sign(resp.Order.ID, "pay_123", platformSecret),
	}

	first, err := service.VerifyPayment(ctx, req)
	if err != nil {
		t.Fatalf("verify first: %v", err)
	}
	if first.Status != subscriptiondomain.SubscriptionStatusActive || !first.IsActive {
		t.Fatalf("expected active subscription, got %s", first.Status)
	}
	if first.StartAt == nil || first.EndAt == nil {
		t.Fatal("expected period bounds on activation")
	}
	if got := first.EndAt.Sub(*first.StartAt); got < 28*24*time.Hour || got > 31*24*time.Hour {
		t.Fatalf("unexpected monthly period length: %v", got)
	}

	second, err := service.VerifyPayment(ctx, req)
	if err != nil {
		t.Fatalf("verify second: %v", err)
	}
	if second.ID != first.ID || second.Status != subscriptiondomain.SubscriptionStatusActive {
		t.Fatalf("duplicate verify should return the active row, got %s", second.Status)
	}

	if count := countRows(t, db, "billing_events"); count != 1 {
		t.Fatalf("expected 1 billing event, got %d", count)
	}
	if count := countRows(t, db, "subscription_payments"); count != 1 {
		t.Fatalf("expected 1 payment row, got %d", count)
	}
}

func TestVerifyPaymentRejectsBadSignature(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	service, db := setupService(t, node, clk)
	tenant := seedTenant(t, db, node)
	ctx := context.Background()

	resp, err := service.CreateOrder(ctx, subscriptiondomain.CreateOrderRequest{
		TenantID: tenant.ID.String(),
		PlanCode: "monthly",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	_, err = service.VerifyPayment(ctx, subscriptiondomain.VerifyPaymentRequest{
		SubscriptionID: resp.Subscription.ID.String(),
		PaymentID:      "pay_123",
		Signature:      gateway.Sign(resp.Order.ID, "pay_999", platformSecret),
	})
	if err != gateway.ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	current, err := service.GetCurrent(ctx, tenant.ID.String())
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	if current != nil {
		t.Fatal("rejected payment must not activate anything")
	}
	if count := countRows(t, db, "billing_events"); count != 0 {
		t.Fatalf("expected no billing events, got %d", count)
	}
}

func TestVerifyPaymentRejectsOrderMismatch(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	service, db := setupService(t, node, clk)
	tenant := seedTenant(t, db, node)
	ctx := context.Background()

	resp, err := service.CreateOrder(ctx, subscriptiondomain.CreateOrderRequest{
		TenantID: tenant.ID.String(),
		PlanCode: "monthly",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	_, err = service.VerifyPayment(ctx, subscriptiondomain.VerifyPaymentRequest{
		SubscriptionID: resp.Subscription.ID.String(),
		OrderID:        "order_other",
		PaymentID:      "pay_123",
		Signature:      gateway.Sign("order_other", "pay_123", platformSecret),
	})
	if err != subscriptiondomain.ErrOrderMismatch {
		t.Fatalf("expected ErrOrderMismatch, got %v", err)
	}
}

func TestVerifyPaymentSupersedesPreviousSubscription(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	service, db := setupService(t, node, clk)
	tenant := seedTenant(t, db, node)
	ctx := context.Background()

	activate := func(planCode string, paymentID string) subscriptiondomain.Subscription {
		t.Helper()
		resp, err := service.CreateOrder(ctx, subscriptiondomain.CreateOrderRequest{
			TenantID: tenant.ID.String(),
			PlanCode: planCode,
		})
		if err != nil {
			t.Fatalf("create order: %v", err)
		}
		sub, err := service.VerifyPayment(ctx, subscriptiondomain.VerifyPaymentRequest{
			SubscriptionID: resp.Subscription.ID.String(),
			PaymentID:      paymentID,
			Signature:      gateway.Sign(resp.Order.ID, paymentID, platformSecret),
		})
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		return sub
	}

	first := activate("monthly", "pay_first")
	clk.Advance(time.Hour)
	second := activate("yearly", "pay_second")

	var old subscriptiondomain.Subscription
	if err := db.Raw("SELECT * FROM subscriptions WHERE id = ?", first.ID).Scan(&old).Error; err != nil {
		t.Fatalf("reload first: %v", err)
	}
	if old.Status != subscriptiondomain.SubscriptionStatusExpired || old.IsActive {
		t.Fatalf("first subscription should be expired, got %s", old.Status)
	}

	current, err := service.GetCurrent(ctx, tenant.ID.String())
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	if current == nil || current.ID != second.ID {
		t.Fatal("current subscription should be the newly activated one")
	}

	var activeCount int64
	if err := db.Raw("SELECT COUNT(*) FROM subscriptions WHERE tenant_id = ? AND status = ?",
		tenant.ID, subscriptiondomain.SubscriptionStatusActive).Scan(&activeCount).Error; err != nil {
		t.Fatalf("count active: %v", err)
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly one active subscription, got %d", activeCount)
	}
}

func TestVerifyPaymentOnCancelledSubscription(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	service, db := setupService(t, node, clk)
	tenant := seedTenant(t, db, node)
	ctx := context.Background()

	resp, err := service.CreateOrder(ctx, subscriptiondomain.CreateOrderRequest{
		TenantID: tenant.ID.String(),
		PlanCode: "monthly",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := service.Cancel(ctx, resp.Subscription.ID.String()); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err = service.VerifyPayment(ctx, subscriptiondomain.VerifyPaymentRequest{
		SubscriptionID: resp.Subscription.ID.String(),
		PaymentID:      "pay_123",
		Signature:      gateway.Sign(resp.Order.ID, "pay_123", platformSecret),
	})
	if err != subscriptiondomain.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	service, db := setupService(t, node, clk)
	tenant := seedTenant(t, db, node)
	ctx := context.Background()

	resp, err := service.CreateOrder(ctx, subscriptiondomain.CreateOrderRequest{
		TenantID: tenant.ID.String(),
		PlanCode: "monthly",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := service.VerifyPayment(ctx, subscriptiondomain.VerifyPaymentRequest{
		SubscriptionID: resp.Subscription.ID.String(),
		PaymentID:      "pay_123",
		Signature:      gateway.Sign(resp.Order.ID, "pay_123", platformSecret),
	}); err != nil {
		t.Fatalf("verify: %v", err)
	}

	first, err := service.Cancel(ctx, resp.Subscription.ID.String())
	if err != nil {
		t.Fatalf("cancel first: %v", err)
	}
	if first.Status != subscriptiondomain.SubscriptionStatusCancelled {
		t.Fatalf("expected cancelled, got %s", first.Status)
	}

	second, err := service.Cancel(ctx, resp.Subscription.ID.String())
	if err != nil {
		t.Fatalf("cancel second: %v", err)
	}
	if second.Status != subscriptiondomain.SubscriptionStatusCancelled {
		t.Fatalf("repeat cancel should stay cancelled, got %s", second.Status)
	}

	current, err := service.GetCurrent(ctx, tenant.ID.String())
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	if current != nil {
		t.Fatal("cancelled tenant must have no current subscription")
	}
}
