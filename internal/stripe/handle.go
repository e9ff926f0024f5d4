package stripe

import (
	"encoding/json"
	"strings"
)

// PaymentIntentID resolves the payment intent attached to a finalized
// invoice. The field moved across API versions: it may be a flat string,
// an expanded object, an entry in the payments collection, or only
// derivable from the confirmation secret's "pi_..._secret_..." prefix.
func (i *Invoice) PaymentIntentID() string {
	switch v := i.PaymentIntent.(type) {
	case string:
		if v != "" {
			return v
		}
	case map[string]any:
		if id, ok := v["id"].(string); ok && id != "" {
			return id
		}
	}

	if i.Payments != nil {
		for _, p := range i.Payments.Data {
			if p.Payment.PaymentIntent != "" {
				return p.Payment.PaymentIntent
			}
		}
	}

	if i.ConfirmationSecret != nil {
		return intentIDFromClientSecret(i.ConfirmationSecret.ClientSecret)
	}
	return ""
}

func intentIDFromClientSecret(secret string) string {
	if !strings.HasPrefix(secret, "pi_") {
		return ""
	}
	idx := strings.Index(secret, "_secret")
	if idx <= 0 {
		return ""
	}
	return secret[:idx]
}

// DiscountAmount is the total discount applied to the invoice.
func (i *Invoice) DiscountAmount() int64 {
	var total int64
	for _, d := range i.TotalDiscountAmounts {
		total += d.Amount
	}
	return total
}

// FirstDiscountID returns the invoice's first discount reference, whether
// Stripe sent the discounts expanded or as bare ids.
func (i *Invoice) FirstDiscountID() string {
	for _, raw := range i.Discounts {
		s := strings.TrimSpace(string(raw))
		if s == "" || s == "null" {
			continue
		}
		if strings.HasPrefix(s, `"`) {
			return strings.Trim(s, `"`)
		}
		if id := jsonObjectID(raw); id != "" {
			return id
		}
	}
	return ""
}

// ExpandedDiscounts decodes the invoice discounts that arrived as full
// objects; bare-id entries are skipped (the caller falls back to a
// secondary fetch for those).
func (i *Invoice) ExpandedDiscounts() []Discount {
	return expandDiscounts(i.Discounts)
}

// ExpandedDiscounts decodes the discounts attached to the subscription
// itself, which is where a coupon applied on a schedule phase ends up.
func (s *Subscription) ExpandedDiscounts() []Discount {
	return expandDiscounts(s.Discounts)
}

func expandDiscounts(raws []json.RawMessage) []Discount {
	var out []Discount
	for _, raw := range raws {
		s := strings.TrimSpace(string(raw))
		if !strings.HasPrefix(s, "{") {
			continue
		}
		var d Discount
		if err := json.Unmarshal(raw, &d); err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}

func jsonObjectID(raw json.RawMessage) string {
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	return obj.ID
}
