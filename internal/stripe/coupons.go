package stripe

import (
	"context"
	"net/url"
	"strings"
)

func (c *Client) GetCoupon(ctx context.Context, couponID string) (*Coupon, error) {
	var out Coupon
	if err := c.get(ctx, "/v1/coupons/"+url.PathEscape(couponID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindActivePromotionCode looks up a customer-facing promotion code with
// its coupon expanded. Returns (nil, nil) when no active code matches.
func (c *Client) FindActivePromotionCode(ctx context.Context, code string) (*PromotionCode, error) {
	q := url.Values{}
	q.Set("code", strings.TrimSpace(code))
	q.Set("active", "true")
	q.Set("limit", "1")
	q.Add("expand[]", "data.coupon")
	var out promotionCodeList
	if err := c.get(ctx, "/v1/promotion_codes", q, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, nil
	}
	return &out.Data[0], nil
}
