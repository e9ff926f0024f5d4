package stripe

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

type ScheduleInput struct {
	CustomerID string
	PriceID    string
	EndDate    time.Time
	CouponID   string
	Metadata   map[string]string
}

// CreateSubscriptionSchedule builds a schedule with a single committed
// phase. end_behavior=release means the subscription keeps renewing at
// full price once the phase expires instead of cancelling. A coupon, if
// any, is attached to the phase only; whether it survives the release
// depends on its own duration.
func (c *Client) CreateSubscriptionSchedule(ctx context.Context, input ScheduleInput) (*SubscriptionSchedule, error) {
	values := url.Values{}
	values.Set("customer", input.CustomerID)
	values.Set("start_date", "now")
	values.Set("end_behavior", "release")
	values.Set("phases[0][items][0][price]", input.PriceID)
	values.Set("phases[0][items][0][quantity]", "1")
	values.Set("phases[0][end_date]", strconv.FormatInt(input.EndDate.Unix(), 10))
	if input.CouponID != "" {
		values.Set("phases[0][discounts][0][coupon]", input.CouponID)
	}
	for k, v := range input.Metadata {
		values.Set("metadata["+k+"]", v)
	}

	var out SubscriptionSchedule
	if err := c.postForm(ctx, "/v1/subscription_schedules", values, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSubscriptionSchedule(ctx context.Context, scheduleID string) (*SubscriptionSchedule, error) {
	var out SubscriptionSchedule
	if err := c.get(ctx, "/v1/subscription_schedules/"+scheduleID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelSubscriptionSchedule(ctx context.Context, scheduleID string) error {
	return c.postForm(ctx, "/v1/subscription_schedules/"+scheduleID+"/cancel", nil, "", nil)
}

func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var out Subscription
	if err := c.get(ctx, "/v1/subscriptions/"+subscriptionID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSubscriptionSettings tags the subscription with order metadata and
// enables automatic tax plus default-payment-method persistence so renewal
// invoices can charge off-session.
func (c *Client) UpdateSubscriptionSettings(ctx context.Context, subscriptionID string, metadata map[string]string) (*Subscription, error) {
	values := url.Values{}
	for k, v := range metadata {
		values.Set("metadata["+k+"]", v)
	}
	values.Set("automatic_tax[enabled]", "true")
	values.Set("payment_settings[save_default_payment_method]", "on_subscription")

	var out Subscription
	if err := c.postForm(ctx, "/v1/subscriptions/"+subscriptionID, values, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetSubscriptionDefaultPaymentMethod(ctx context.Context, subscriptionID, paymentMethodID string) error {
	values := url.Values{}
	values.Set("default_payment_method", paymentMethodID)
	return c.postForm(ctx, "/v1/subscriptions/"+subscriptionID, values, "", nil)
}

func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return c.delete(ctx, "/v1/subscriptions/"+subscriptionID, nil)
}
