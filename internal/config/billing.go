package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Plan is a sellable subscription plan.
type Plan struct {
	Code     string  `mapstructure:"code" json:"code"`
	Name     string  `mapstructure:"name" json:"name"`
	Amount   float64 `mapstructure:"amount" json:"amount"`
	Interval string  `mapstructure:"interval" json:"interval"`
}

// BillingConfig is the hot-reloadable part of billing behaviour:
// the plan catalog, the tax rate, and the settlement currency.
type BillingConfig struct {
	Currency       string  `mapstructure:"currency"`
	TaxRate        float64 `mapstructure:"taxRate"`
	InvoiceDueDays int     `mapstructure:"invoiceDueDays"`
	Plans          []Plan  `mapstructure:"plans"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		Currency:       "INR",
		TaxRate:        0.18,
		InvoiceDueDays: 7,
		Plans: []Plan{
			{Code: "monthly", Name: "Monthly", Amount: 1499.00, Interval: "monthly"},
			{Code: "yearly", Name: "Yearly", Amount: 14990.00, Interval: "yearly"},
		},
	}
}

// PlanByCode returns the plan with the given code, or false.
func (c BillingConfig) PlanByCode(code string) (Plan, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, plan := range c.Plans {
		if strings.ToLower(plan.Code) == code {
			return plan, true
		}
	}
	return Plan{}, false
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/cardmint/config") // Volume-mounted config
	v.AddConfigPath("/etc/cardmint")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("CARDMINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// if config file not found, use defaults
		fileLoaded = false
		defaults := DefaultBillingConfig()
		v.SetDefault("billing.currency", defaults.Currency)
		v.SetDefault("billing.taxRate", defaults.TaxRate)
		v.SetDefault("billing.invoiceDueDays", defaults.InvoiceDueDays)
		v.SetDefault("billing.plans", defaults.Plans)
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticBillingConfigHolder builds a holder pinned to cfg. Tests use this.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.Currency == "" {
		return errors.New("billing.currency cannot be empty")
	}
	if cfg.TaxRate < 0 || cfg.TaxRate >= 1 {
		return errors.New("billing.taxRate must be in [0, 1)")
	}
	if len(cfg.Plans) == 0 {
		return errors.New("billing.plans cannot be empty")
	}
	for _, plan := range cfg.Plans {
		if plan.Code == "" || plan.Amount <= 0 {
			return errors.New("billing.plans entries need a code and a positive amount")
		}
	}
	return nil
}
