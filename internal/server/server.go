package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/clinicbill/internal/audit/domain"
	"github.com/smallbiznis/clinicbill/internal/config"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
	"github.com/smallbiznis/clinicbill/internal/invoice/render"
	"github.com/smallbiznis/clinicbill/internal/observability"
	obslogger "github.com/smallbiznis/clinicbill/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/clinicbill/internal/observability/metrics"
	obstracing "github.com/smallbiznis/clinicbill/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ActorContext())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if obsCfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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

type Server struct {
	engine     *gin.Engine
	invoiceSvc invoicedomain.Service
	auditSvc   auditdomain.Service
	renderer   render.Renderer
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	InvoiceSvc invoicedomain.Service
	AuditSvc   auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		invoiceSvc: p.InvoiceSvc,
		auditSvc:   p.AuditSvc,
		renderer:   render.NewRenderer(),
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Invoices --------
	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices", s.ListInvoices)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.POST("/invoices/:id/items", s.AddInvoiceItem)
	api.GET("/invoices/:id/totals", s.PreviewInvoiceTotals)
	api.POST("/invoices/:id/finalize", s.FinalizeInvoice)
	api.POST("/invoices/:id/void", s.VoidInvoice)
	api.POST("/invoices/:id/archive", s.ArchiveInvoice)
	api.POST("/invoices/:id/print", s.PrintInvoice)
	api.GET("/invoices/:id/receipt", s.GetInvoiceReceipt)

	// -------- Payments --------
	api.GET("/invoices/:id/payments", s.ListInvoicePayments)
	api.POST("/invoices/:id/payments", s.RecordInvoicePayment)
	api.POST("/invoices/:id/payments/recompute", s.RecomputeInvoicePaymentStatus)

	api.GET("/invoices/:id/audit-logs", s.ListInvoiceAuditLogs)
}
