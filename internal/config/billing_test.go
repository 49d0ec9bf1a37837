package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlanByCode(t *testing.T) {
	cfg := DefaultBillingConfig()

	plan, ok := cfg.PlanByCode("monthly")
	require.True(t, ok)
	require.Equal(t, "monthly", plan.Code)
	require.Equal(t, 1499.00, plan.Amount)

	plan, ok = cfg.PlanByCode("  YEARLY ")
	require.True(t, ok)
	require.Equal(t, "yearly", plan.Code)

	_, ok = cfg.PlanByCode("diamond")
	require.False(t, ok)
}

func TestValidateBillingConfig(t *testing.T) {
	require.NoError(t, validateBillingConfig(DefaultBillingConfig()))

	bad := DefaultBillingConfig()
	bad.Currency = ""
	require.Error(t, validateBillingConfig(bad))

	bad = DefaultBillingConfig()
	bad.TaxRate = 1.0
	require.Error(t, validateBillingConfig(bad))

	bad = DefaultBillingConfig()
	bad.Plans = nil
	require.Error(t, validateBillingConfig(bad))

	bad = DefaultBillingConfig()
	bad.Plans[0].Amount = 0
	require.Error(t, validateBillingConfig(bad))
}

func TestStaticHolderServesPinnedConfig(t *testing.T) {
	cfg := DefaultBillingConfig()
	cfg.TaxRate = 0.05

	holder := NewStaticBillingConfigHolder(cfg)
	require.Equal(t, 0.05, holder.Get().TaxRate)
}
