package stripe

import (
	"context"
	"net/url"
	"strconv"
)

type InvoiceItemInput struct {
	CustomerID  string
	InvoiceID   string
	AmountCents int64
	Currency    string
	Description string
}

func (c *Client) CreateInvoiceItem(ctx context.Context, input InvoiceItemInput) (*InvoiceItem, error) {
	values := url.Values{}
	values.Set("customer", input.CustomerID)
	values.Set("invoice", input.InvoiceID)
	values.Set("amount", strconv.FormatInt(input.AmountCents, 10))
	values.Set("currency", input.Currency)
	values.Set("description", input.Description)

	var out InvoiceItem
	key := "invitem:" + input.InvoiceID + ":" + input.Description
	if err := c.postForm(ctx, "/v1/invoiceitems", values, key, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateInvoice writes metadata and, when couponID is set, applies the
// discount at the invoice level. Invoice-level application is what makes
// an unrestricted coupon cover one-time add-on items.
func (c *Client) UpdateInvoice(ctx context.Context, invoiceID string, metadata map[string]string, couponID string) (*Invoice, error) {
	values := url.Values{}
	for k, v := range metadata {
		values.Set("metadata["+k+"]", v)
	}
	if couponID != "" {
		values.Set("discounts[0][coupon]", couponID)
	}
	var out Invoice
	if err := c.postForm(ctx, "/v1/invoices/"+invoiceID, values, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FinalizeInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	var out Invoice
	if err := c.postForm(ctx, "/v1/invoices/"+invoiceID+"/finalize", nil, "finalize:"+invoiceID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetInvoice(ctx context.Context, invoiceID string, expand ...string) (*Invoice, error) {
	var q url.Values
	if len(expand) > 0 {
		q = url.Values{}
		for _, e := range expand {
			q.Add("expand[]", e)
		}
	}
	var out Invoice
	if err := c.get(ctx, "/v1/invoices/"+invoiceID, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
