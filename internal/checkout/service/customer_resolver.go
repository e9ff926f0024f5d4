package service

import (
	"context"
	"strings"

	"github.com/sitewandlabs/sitewand/internal/checkout/domain"
	"github.com/sitewandlabs/sitewand/internal/stripe"
	"go.uber.org/zap"
)

// CustomerResolver finds or creates the billing customer for an email
// address. Repeated calls with the same email converge on one customer:
// lookup is exact-match limit 1, and creation carries an email-keyed
// idempotency key at the provider.
type CustomerResolver struct {
	stripe *stripe.Client
	log    *zap.Logger
}

func NewCustomerResolver(client *stripe.Client, log *zap.Logger) *CustomerResolver {
	return &CustomerResolver{
		stripe: client,
		log:    log.Named("checkout.customer"),
	}
}

func (r *CustomerResolver) FindOrCreate(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", domain.ErrMissingCustomerEmail
	}

	tagged := map[string]string{"source": "sitewand"}
	for k, v := range metadata {
		tagged[k] = v
	}

	existing, err := r.stripe.ListCustomersByEmail(ctx, email, 1)
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		// Merge, never replace: Stripe metadata updates are key-by-key,
		// so keys we don't name survive.
		if _, err := r.stripe.UpdateCustomerMetadata(ctx, existing[0].ID, tagged); err != nil {
			r.log.Warn("customer metadata merge failed",
				zap.String("customer_id", existing[0].ID), zap.Error(err))
		}
		return existing[0].ID, nil
	}

	created, err := r.stripe.CreateCustomer(ctx, email, name, tagged)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}
