package server

import (
	"context"
	"net/http"
	"time"

	"github.com/cardmint/cardmint/internal/config"
	invoicedomain "github.com/cardmint/cardmint/internal/invoice/domain"
	subscriptiondomain "github.com/cardmint/cardmint/internal/subscription/domain"
	tenantdomain "github.com/cardmint/cardmint/internal/tenant/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	tenantSvc       tenantdomain.Service
	subscriptionSvc subscriptiondomain.Service
	invoiceSvc      invoicedomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	TenantSvc       tenantdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	InvoiceSvc      invoicedomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		tenantSvc:       p.TenantSvc,
		subscriptionSvc: p.SubscriptionSvc,
		invoiceSvc:      p.InvoiceSvc,
	}

	svc.registerRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Tenants --------
	v1.POST("/tenants", s.CreateTenant)
	v1.GET("/tenants/:id", s.GetTenantByID)
	v1.PUT("/tenants/:id/gateway-credentials", s.UpdateGatewayCredentials)

	// -------- Subscriptions --------
	v1.POST("/subscriptions/order", s.CreateSubscriptionOrder)
	v1.POST("/subscriptions/verify", s.VerifySubscriptionPayment)
	v1.POST("/subscriptions/:id/cancel", s.CancelSubscription)
	v1.GET("/tenants/:id/subscriptions", s.ListSubscriptions)
	v1.GET("/tenants/:id/subscriptions/current", s.GetCurrentSubscription)

	// -------- Invoices --------
	v1.GET("/tenants/:id/invoices", s.ListInvoices)
}

type runParams struct {
	fx.In

	Lc  fx.Lifecycle
	Gin *gin.Engine
	Cfg config.Config
	Log *zap.Logger
}

func run(p runParams) {
	srv := &http.Server{
		Addr:    p.Cfg.HTTPAddr,
		Handler: p.Gin,
	}
	log := p.Log.Named("http.server")

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
