package stripe

import (
	"context"
	"net/url"
)

func (c *Client) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error) {
	var out PaymentIntent
	if err := c.get(ctx, "/v1/payment_intents/"+paymentIntentID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePaymentIntentMetadata(ctx context.Context, paymentIntentID string, metadata map[string]string) (*PaymentIntent, error) {
	values := url.Values{}
	for k, v := range metadata {
		values.Set("metadata["+k+"]", v)
	}
	var out PaymentIntent
	if err := c.postForm(ctx, "/v1/payment_intents/"+paymentIntentID, values, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSetupIntent collects and stores a payment method without charging.
// Used when a discount drives the first invoice to zero: a payment intent
// cannot be created for a $0 charge, but the renewal still needs a card.
func (c *Client) CreateSetupIntent(ctx context.Context, customerID string, metadata map[string]string) (*SetupIntent, error) {
	values := url.Values{}
	values.Set("customer", customerID)
	values.Set("usage", "off_session")
	for k, v := range metadata {
		values.Set("metadata["+k+"]", v)
	}
	var out SetupIntent
	key := ""
	if submission := metadata["submission_id"]; submission != "" {
		key = "setup:" + submission
	}
	if err := c.postForm(ctx, "/v1/setup_intents", values, key, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSetupIntent(ctx context.Context, setupIntentID string) (*SetupIntent, error) {
	var out SetupIntent
	if err := c.get(ctx, "/v1/setup_intents/"+setupIntentID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
