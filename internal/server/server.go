// Package server is the HTTP surface: the checkout endpoint the payment
// form calls, the Stripe webhook receiver, and the operational endpoints.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	checkoutdomain "github.com/sitewandlabs/sitewand/internal/checkout/domain"
	"github.com/sitewandlabs/sitewand/internal/config"
	submissiondomain "github.com/sitewandlabs/sitewand/internal/submission/domain"
	webhookdomain "github.com/sitewandlabs/sitewand/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg      config.Config
	DB       *gorm.DB
	Repo     submissiondomain.Repository
	Checkout checkoutdomain.Service
	Webhook  webhookdomain.Service
	Registry *prometheus.Registry
	Log      *zap.Logger
}

type Server struct {
	cfg      config.Config
	db       *gorm.DB
	repo     submissiondomain.Repository
	checkout checkoutdomain.Service
	webhook  webhookdomain.Service
	registry *prometheus.Registry
	log      *zap.Logger
}

func New(p Params) *Server {
	return &Server{
		cfg:      p.Cfg,
		db:       p.DB,
		repo:     p.Repo,
		checkout: p.Checkout,
		webhook:  p.Webhook,
		registry: p.Registry,
		log:      p.Log.Named("server"),
	}
}

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", s.Healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v1 := engine.Group("/v1")
	v1.POST("/submissions", s.CreateSubmission)
	v1.POST("/checkout", s.CreateCheckout)
	v1.POST("/webhooks/stripe", s.ReceiveStripeWebhook)

	return engine
}
