// Package notification sends transactional emails around payment events.
// All sends are fire-and-forget at the call sites: a failed mail is logged
// and never fails the webhook or checkout that triggered it.
package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
	"github.com/sitewandlabs/sitewand/internal/config"
	"go.uber.org/zap"
)

var ErrFailedToSend = errors.New("email_send_failed")

type PaymentInfo struct {
	SubmissionID string
	Email        string
	BusinessName string
	AmountCents  int64
	Currency     string
	DiscountCode string
}

type Sender interface {
	PaymentNotification(ctx context.Context, info PaymentInfo) error
	PaymentConfirmation(ctx context.Context, info PaymentInfo) error
	CancellationNotification(ctx context.Context, info PaymentInfo) error
	CancellationConfirmation(ctx context.Context, info PaymentInfo) error
}

type postmarkSender struct {
	client      *postmark.Client
	senderEmail string
	adminEmail  string
	log         *zap.Logger
}

func NewPostmarkSender(cfg config.Config, log *zap.Logger) Sender {
	return &postmarkSender{
		client:      postmark.NewClient(cfg.Email.PostmarkServerToken, cfg.Email.PostmarkAccountToken),
		senderEmail: cfg.Email.SenderEmail,
		adminEmail:  cfg.Email.AdminEmail,
		log:         log.Named("notification"),
	}
}

func (s *postmarkSender) PaymentNotification(ctx context.Context, info PaymentInfo) error {
	subject := fmt.Sprintf("New paid order %s (%s)", info.SubmissionID, info.BusinessName)
	body := fmt.Sprintf(
		"<p>Order %s was paid.</p><p>Business: %s<br>Amount: %s<br>Discount: %s</p>",
		info.SubmissionID, info.BusinessName, formatAmount(info.AmountCents, info.Currency), orDash(info.DiscountCode),
	)
	return s.send(ctx, s.adminEmail, subject, body, "payment-notification")
}

func (s *postmarkSender) PaymentConfirmation(ctx context.Context, info PaymentInfo) error {
	subject := "Your payment was successful"
	body := fmt.Sprintf(
		"<p>Thank you! We received your payment of %s.</p><p>We are now building your website.</p>",
		formatAmount(info.AmountCents, info.Currency),
	)
	return s.send(ctx, info.Email, subject, body, "payment-confirmation")
}

func (s *postmarkSender) CancellationNotification(ctx context.Context, info PaymentInfo) error {
	subject := fmt.Sprintf("Subscription cancelled for order %s", info.SubmissionID)
	body := fmt.Sprintf("<p>The subscription for order %s (%s) was cancelled.</p>",
		info.SubmissionID, info.BusinessName)
	return s.send(ctx, s.adminEmail, subject, body, "cancellation-notification")
}

func (s *postmarkSender) CancellationConfirmation(ctx context.Context, info PaymentInfo) error {
	subject := "Your subscription has been cancelled"
	body := "<p>Your subscription has been cancelled. We are sorry to see you go.</p>"
	return s.send(ctx, info.Email, subject, body, "cancellation-confirmation")
}

func (s *postmarkSender) send(ctx context.Context, to, subject, body, tag string) error {
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.senderEmail,
		To:       to,
		Subject:  subject,
		Tag:      tag,
		HTMLBody: body,
	})
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrFailedToSend, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(cents)/100, currency)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
