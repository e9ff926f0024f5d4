package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sitewandlabs/sitewand/internal/config"
	"github.com/sitewandlabs/sitewand/internal/notification"
	"github.com/sitewandlabs/sitewand/internal/stripe"
	submissiondomain "github.com/sitewandlabs/sitewand/internal/submission/domain"
	webhookdomain "github.com/sitewandlabs/sitewand/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Repo     submissiondomain.Repository
	Stripe   *stripe.Client
	Redis    *redis.Client
	Notifier notification.Sender
	Registry *prometheus.Registry
	GenID    *snowflake.Node
	Cfg      config.Config
	Log      *zap.Logger
}

// Service reconciles asynchronous Stripe events onto submissions. It is
// the source of truth for "has this order been paid": the checkout
// response only hands the client a payment handle, the webhook confirms
// the outcome.
type Service struct {
	db       *gorm.DB
	repo     submissiondomain.Repository
	stripe   *stripe.Client
	redis    *redis.Client
	notifier notification.Sender
	genID    *snowflake.Node
	cfg      config.Config
	log      *zap.Logger

	events    *prometheus.CounterVec
	unmatched prometheus.Counter
}

func New(p Params) webhookdomain.Service {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Processed webhook events by type and outcome.",
	}, []string{"type", "outcome"})
	unmatched := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_unmatched_total",
		Help: "Events acknowledged without resolving a submission; a sustained rate indicates a lookup-strategy bug.",
	})
	p.Registry.MustRegister(events, unmatched)

	return &Service{
		db:        p.DB,
		repo:      p.Repo,
		stripe:    p.Stripe,
		redis:     p.Redis,
		notifier:  p.Notifier,
		genID:     p.GenID,
		cfg:       p.Cfg,
		log:       p.Log.Named("webhook.service"),
		events:    events,
		unmatched: unmatched,
	}
}

func (s *Service) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := stripe.VerifyAndParse(payload, signatureHeader, s.cfg.Stripe.WebhookSecret, s.cfg.Webhook.SignatureTolerance)
	if err != nil {
		return err
	}

	if s.alreadyProcessed(ctx, event.ID) {
		s.log.Debug("event redelivered, skipping", zap.String("event_id", event.ID))
		s.events.WithLabelValues(event.Type, "duplicate").Inc()
		return nil
	}

	s.recordEvent(ctx, event, payload)

	outcome, err := s.dispatch(ctx, event)
	if err != nil {
		// The dedup key was already taken above; release it so the
		// redelivery of a failed event is not short-circuited.
		s.releaseDedup(ctx, event.ID)
		s.events.WithLabelValues(event.Type, "error").Inc()
		s.log.Error("webhook processing failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
			zap.Error(err))
		return err
	}
	if outcome == outcomeUnmatched {
		// Acknowledged so Stripe's queue is not blocked, but surfaced as
		// a distinct signal rather than a silent no-op.
		s.unmatched.Inc()
		s.log.Warn("no submission matched by any lookup strategy",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type))
	}
	s.events.WithLabelValues(event.Type, string(outcome)).Inc()
	return nil
}

type outcome string

const (
	outcomeProcessed outcome = "processed"
	outcomeIgnored   outcome = "ignored"
	outcomeUnmatched outcome = "unmatched"
)

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) (outcome, error) {
	switch event.Type {
	case "invoice.paid", "invoice.payment_succeeded":
		return s.handleInvoicePaid(ctx, event)
	case "payment_intent.succeeded":
		return s.handlePaymentIntentSucceeded(ctx, event)
	case "setup_intent.succeeded":
		return s.handleSetupIntentSucceeded(ctx, event)
	case "customer.subscription.created":
		return s.handleSubscriptionCreated(ctx, event)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, event)
	case "customer.subscription.updated",
		"subscription_schedule.completed",
		"subscription_schedule.canceled",
		"charge.refunded",
		"invoice.payment_failed":
		return s.handleAuditOnly(ctx, event)
	default:
		return outcomeIgnored, nil
	}
}

// alreadyProcessed is a redis SET NX gate keyed by provider event id. A
// redis outage degrades to relying on idempotent field writes alone, so
// errors only warn.
func (s *Service) alreadyProcessed(ctx context.Context, eventID string) bool {
	if s.redis == nil {
		return false
	}
	ok, err := s.redis.SetNX(ctx, "webhook:event:"+eventID, 1, s.cfg.Webhook.DedupTTL).Result()
	if err != nil {
		s.log.Warn("event dedup check failed", zap.String("event_id", eventID), zap.Error(err))
		return false
	}
	return !ok
}

func (s *Service) releaseDedup(ctx context.Context, eventID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, "webhook:event:"+eventID).Err(); err != nil {
		s.log.Warn("failed to release event dedup key", zap.String("event_id", eventID), zap.Error(err))
	}
}

func (s *Service) recordEvent(ctx context.Context, event *stripe.Event, payload []byte) {
	record := webhookdomain.EventRecord{
		ID:              s.genID.Generate(),
		ProviderEventID: event.ID,
		EventType:       event.Type,
		Payload:         maskPayload(payload),
		ReceivedAt:      time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.log.Warn("failed to record webhook event", zap.String("event_id", event.ID), zap.Error(err))
	}
}

func (s *Service) markEventSubmission(ctx context.Context, eventID string, submissionID snowflake.ID) {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).
		Model(&webhookdomain.EventRecord{}).
		Where("provider_event_id = ?", eventID).
		Updates(map[string]any{"submission_id": submissionID, "processed_at": now}).Error
	if err != nil {
		s.log.Debug("failed to tag event record", zap.String("event_id", eventID), zap.Error(err))
	}
}

func decodeObject(event *stripe.Event, out any) error {
	if len(event.Data.Object) == 0 {
		return errors.New("event has no data object")
	}
	return json.Unmarshal(event.Data.Object, out)
}

// maskPayload strips card and billing details before the payload is
// stored in the audit table.
func maskPayload(raw []byte) []byte {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw
	}
	maskMap(obj)
	masked, err := json.Marshal(obj)
	if err != nil {
		return raw
	}
	return masked
}

func maskMap(m map[string]any) {
	for k, v := range m {
		switch strings.ToLower(k) {
		case "card", "billing_details", "shipping_details", "payment_method_details":
			m[k] = "***"
		default:
			if nested, ok := v.(map[string]any); ok {
				maskMap(nested)
			} else if arr, ok := v.([]any); ok {
				for _, item := range arr {
					if itemMap, ok := item.(map[string]any); ok {
						maskMap(itemMap)
					}
				}
			}
		}
	}
}
