package stripe

import "encoding/json"

type Customer struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
	Discount *Discount         `json:"discount"`
	Deleted  bool              `json:"deleted"`
}

type customerList struct {
	Data []Customer `json:"data"`
}

type Coupon struct {
	ID               string  `json:"id"`
	Valid            bool    `json:"valid"`
	Deleted          bool    `json:"deleted"`
	PercentOff       float64 `json:"percent_off"`
	AmountOff        int64   `json:"amount_off"`
	Currency         string  `json:"currency"`
	Duration         string  `json:"duration"`
	DurationInMonths int     `json:"duration_in_months"`
	AppliesTo        *struct {
		Products []string `json:"products"`
	} `json:"applies_to"`
}

type PromotionCode struct {
	ID     string  `json:"id"`
	Code   string  `json:"code"`
	Active bool    `json:"active"`
	Coupon *Coupon `json:"coupon"`
}

type promotionCodeList struct {
	Data []PromotionCode `json:"data"`
}

// Discount is a coupon applied to a customer, subscription, or invoice.
// Coupon may arrive expanded or as a bare reference depending on the event.
type Discount struct {
	ID            string  `json:"id"`
	Coupon        *Coupon `json:"coupon"`
	PromotionCode any     `json:"promotion_code"`
}

// PromotionCodeID returns the promotion code reference regardless of
// whether Stripe sent it expanded or as a plain id.
func (d *Discount) PromotionCodeID() string {
	if d == nil {
		return ""
	}
	switch v := d.PromotionCode.(type) {
	case string:
		return v
	case map[string]any:
		if id, ok := v["id"].(string); ok {
			return id
		}
	}
	return ""
}

type Subscription struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	Customer      string            `json:"customer"`
	Schedule      string            `json:"schedule"`
	LatestInvoice string            `json:"latest_invoice"`
	Metadata      map[string]string `json:"metadata"`
	Discounts     []json.RawMessage `json:"discounts"`
	Items         struct {
		Data []SubscriptionItem `json:"data"`
	} `json:"items"`
}

type SubscriptionItem struct {
	ID    string `json:"id"`
	Price struct {
		ID         string `json:"id"`
		UnitAmount int64  `json:"unit_amount"`
		Currency   string `json:"currency"`
	} `json:"price"`
	Quantity int64 `json:"quantity"`
}

type SubscriptionSchedule struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	EndBehavior  string            `json:"end_behavior"`
	Metadata     map[string]string `json:"metadata"`
	Phases       []SchedulePhase   `json:"phases"`
}

type SchedulePhase struct {
	StartDate int64 `json:"start_date"`
	EndDate   int64 `json:"end_date"`
}

type Invoice struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Currency     string            `json:"currency"`
	AmountDue    int64             `json:"amount_due"`
	AmountPaid   int64             `json:"amount_paid"`
	Subtotal     int64             `json:"subtotal"`
	Total        int64             `json:"total"`
	Tax          int64             `json:"tax"`
	Metadata     map[string]string `json:"metadata"`

	// payment_intent is flat on older API versions; newer versions nest
	// payments under a collection and surface a confirmation secret.
	PaymentIntent      any              `json:"payment_intent"`
	Payments           *invoicePayments `json:"payments"`
	ConfirmationSecret *struct {
		ClientSecret string `json:"client_secret"`
	} `json:"confirmation_secret"`

	Discounts            []json.RawMessage     `json:"discounts"`
	TotalDiscountAmounts []InvoiceDiscountLine `json:"total_discount_amounts"`

	Lines struct {
		Data []InvoiceLine `json:"data"`
	} `json:"lines"`
}

type invoicePayments struct {
	Data []struct {
		Payment struct {
			Type          string `json:"type"`
			PaymentIntent string `json:"payment_intent"`
		} `json:"payment"`
	} `json:"data"`
}

type InvoiceDiscountLine struct {
	Amount   int64 `json:"amount"`
	Discount any   `json:"discount"`
}

type InvoiceLine struct {
	ID              string `json:"id"`
	Description     string `json:"description"`
	Amount          int64  `json:"amount"`
	Quantity        int64  `json:"quantity"`
	Proration       bool   `json:"proration"`
	DiscountAmounts []struct {
		Amount int64 `json:"amount"`
	} `json:"discount_amounts"`
	Parent *struct {
		Type string `json:"type"`
	} `json:"parent"`
	Pricing *struct {
		UnitAmountDecimal string `json:"unit_amount_decimal"`
	} `json:"pricing"`
	Subscription string `json:"subscription"`
}

// Recurring reports whether the line belongs to the subscription rather
// than a one-time invoice item.
func (l InvoiceLine) Recurring() bool {
	if l.Parent != nil {
		return l.Parent.Type == "subscription_item_details"
	}
	return l.Subscription != ""
}

type InvoiceItem struct {
	ID       string `json:"id"`
	Invoice  string `json:"invoice"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type PaymentIntent struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	ClientSecret  string            `json:"client_secret"`
	Customer      string            `json:"customer"`
	PaymentMethod string            `json:"payment_method"`
	Invoice       string            `json:"invoice"`
	Metadata      map[string]string `json:"metadata"`
}

type SetupIntent struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	ClientSecret  string            `json:"client_secret"`
	Customer      string            `json:"customer"`
	PaymentMethod string            `json:"payment_method"`
	Usage         string            `json:"usage"`
	Metadata      map[string]string `json:"metadata"`
}

type Charge struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountRefunded int64             `json:"amount_refunded"`
	Currency       string            `json:"currency"`
	Customer       string            `json:"customer"`
	PaymentIntent  string            `json:"payment_intent"`
	Metadata       map[string]string `json:"metadata"`
}
