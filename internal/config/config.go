package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/nikolayk812/billingflow/internal/scheduler"
)

const (
	ProfileProduction  = "production"
	ProfileAccelerated = "accelerated"
)

type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	MollieAPIKey       string `envconfig:"MOLLIE_API_KEY"`
	PaymentRedirectURL string `envconfig:"PAYMENT_REDIRECT_URL" default:"http://localhost:8080/thanks"`
	PaymentWebhookURL  string `envconfig:"PAYMENT_WEBHOOK_URL" default:"http://localhost:8080/api/v1/payments/webhook"`
	PayPageURL         string `envconfig:"PAY_PAGE_URL"`

	PostmarkServerToken string `envconfig:"POSTMARK_SERVER_TOKEN"`
	EmailFrom           string `envconfig:"EMAIL_FROM" default:"billing@example.com"`
	EmailNoop           bool   `envconfig:"EMAIL_NOOP"`

	AnalyticsEndpoint string `envconfig:"ANALYTICS_ENDPOINT"`
	AnalyticsAPIKey   string `envconfig:"ANALYTICS_API_KEY"`

	SchedulerInterval time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"5m"`
	Profile           string        `envconfig:"PROFILE" default:"production"`

	InvoiceOffset   time.Duration `envconfig:"INVOICE_OFFSET" default:"4h"`
	Reminder1Offset time.Duration `envconfig:"REMINDER_1_OFFSET" default:"168h"`
	Reminder2Offset time.Duration `envconfig:"REMINDER_2_OFFSET" default:"336h"`
}

func Load() (Config, error) {
	var c Config

	if err := envconfig.Process("", &c); err != nil {
		return c, fmt.Errorf("envconfig.Process: %w", err)
	}

	if c.Profile != ProfileProduction && c.Profile != ProfileAccelerated {
		return c, fmt.Errorf("unknown profile[%s]", c.Profile)
	}

	// no-op email delivery must never sneak into production
	if c.Profile == ProfileProduction {
		if c.EmailNoop {
			return c, errors.New("EMAIL_NOOP is not allowed with the production profile")
		}
		if c.PostmarkServerToken == "" {
			return c, errors.New("POSTMARK_SERVER_TOKEN is required with the production profile")
		}
	}

	return c, nil
}

// Offsets returns the reminder delays for the active profile. The
// accelerated profile compresses the timeline to seconds so the full flow
// can be watched end to end.
func (c Config) Offsets() scheduler.Offsets {
	if c.Profile == ProfileAccelerated {
		return scheduler.Offsets{
			Confirmation: 0,
			Invoice:      5 * time.Second,
			Reminder1:    15 * time.Second,
			Reminder2:    30 * time.Second,
		}
	}

	return scheduler.Offsets{
		Confirmation: 0,
		Invoice:      c.InvoiceOffset,
		Reminder1:    c.Reminder1Offset,
		Reminder2:    c.Reminder2Offset,
	}
}
