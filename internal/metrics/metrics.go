// Package metrics holds the prometheus instruments for the billing engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

type Metrics struct {
	SubscriptionActivations prometheus.Counter
	SubscriptionCancels     prometheus.Counter
	CredentialFallbacks     prometheus.Counter
	SecretDecryptFallbacks  *prometheus.CounterVec
	SignatureRejections     prometheus.Counter
	InvoicesIssued          prometheus.Counter
	InvoiceDeliveryFailures prometheus.Counter
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the instruments on reg. Tests pass a fresh registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SubscriptionActivations: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardmint_subscription_activations_total",
			Help: "Subscriptions transitioned from pending to active.",
		}),
		SubscriptionCancels: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardmint_subscription_cancels_total",
			Help: "Subscriptions cancelled by tenants.",
		}),
		CredentialFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardmint_credential_platform_fallback_total",
			Help: "Credential resolutions that fell back to the platform gateway account.",
		}),
		SecretDecryptFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cardmint_secret_decrypt_fallback_total",
			Help: "Gateway secrets served without successful decryption, by reason.",
		}, []string{"reason"}),
		SignatureRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardmint_payment_signature_rejections_total",
			Help: "Payment callbacks rejected because the signature did not verify.",
		}),
		InvoicesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardmint_invoices_issued_total",
			Help: "Invoices issued for subscription activations.",
		}),
		InvoiceDeliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardmint_invoice_delivery_failures_total",
			Help: "Invoice PDF render or email delivery failures.",
		}),
	}
}

var Module = fx.Module("metrics",
	fx.Provide(New),
)
