package payment_webhook

import "time"

const (
	DefaultSignatureHeader = "Stripe-Signature"
	DefaultMaxBodyBytes    = 64 << 10
	DefaultTimeout         = 10 * time.Second
)

// Options параметры обработки вебхука
type Options struct {
	SignatureHeader string
	MaxBodyBytes    int64
	Timeout         time.Duration
}

func (o Options) withDefaults() Options {
	if o.SignatureHeader == "" {
		o.SignatureHeader = DefaultSignatureHeader
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// WebhookResponse ответ провайдеру
type WebhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}
