package stripe

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

func (c *Client) ListCustomersByEmail(ctx context.Context, email string, limit int) ([]Customer, error) {
	q := url.Values{}
	q.Set("email", strings.TrimSpace(email))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out customerList
	if err := c.get(ctx, "/v1/customers", q, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (*Customer, error) {
	values := url.Values{}
	values.Set("email", strings.TrimSpace(email))
	if name = strings.TrimSpace(name); name != "" {
		values.Set("name", name)
	}
	for k, v := range metadata {
		values.Set("metadata["+k+"]", v)
	}
	var out Customer
	if err := c.postForm(ctx, "/v1/customers", values, "customer:"+strings.ToLower(email), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCustomerMetadata merges the given keys into the customer's
// metadata. Stripe updates metadata key-by-key, so existing keys not named
// here survive.
func (c *Client) UpdateCustomerMetadata(ctx context.Context, customerID string, metadata map[string]string) (*Customer, error) {
	values := url.Values{}
	for k, v := range metadata {
		values.Set("metadata["+k+"]", v)
	}
	var out Customer
	if err := c.postForm(ctx, "/v1/customers/"+customerID, values, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetCustomerDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	values := url.Values{}
	values.Set("invoice_settings[default_payment_method]", paymentMethodID)
	return c.postForm(ctx, "/v1/customers/"+customerID, values, "", nil)
}

func (c *Client) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	var out Customer
	if err := c.get(ctx, "/v1/customers/"+customerID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
