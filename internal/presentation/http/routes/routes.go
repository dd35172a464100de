package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/sangkips/pharmacy-invoice/internal/config"
	"github.com/sangkips/pharmacy-invoice/internal/presentation/http/handler"
	"github.com/sangkips/pharmacy-invoice/internal/presentation/http/middleware"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Patient *handler.PatientHandler
	Product *handler.ProductHandler
	Invoice *handler.InvoiceHandler
	Export  *handler.ExportHandler
	Backup  *handler.BackupHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	Cfg         *config.Config
	Logger      zerolog.Logger
	Gatherer    prometheus.Gatherer
	RateLimiter *middleware.ClientRateLimiter
	// OpenSessions reports the number of open invoices for /health
	OpenSessions func() int
}

// NewRateLimiter builds the per-client limiter from configuration.
func NewRateLimiter(cfg *config.RateLimitConfig) *middleware.ClientRateLimiter {
	var rps float64
	if cfg.Duration > 0 {
		rps = float64(cfg.Requests) / float64(cfg.Duration)
	}
	return middleware.NewClientRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: rps,
		BurstSize:         cfg.Requests,
		CleanupInterval:   5 * time.Minute,
		EntryTTL:          10 * time.Minute,
	})
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(deps.Logger))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		}
		if deps.OpenSessions != nil {
			body["open_invoices"] = deps.OpenSessions()
		}
		c.JSON(200, body)
	})

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	if deps.RateLimiter != nil {
		v1.Use(deps.RateLimiter.Middleware())
	}
	{
		registerPatientRoutes(v1, h)
		registerProductRoutes(v1, h)
		registerInvoiceRoutes(v1, h)
		registerPrinterRoutes(v1, h)
		registerBackupRoutes(v1, h)
	}

	return router
}

func registerPatientRoutes(v1 *gin.RouterGroup, h *Handlers) {
	patients := v1.Group("/patients")
	{
		patients.GET("", h.Patient.List)
		patients.POST("", h.Patient.Create)
		patients.GET("/:id", h.Patient.Get)
		patients.PUT("/:id", h.Patient.Update)
		patients.DELETE("/:id", h.Patient.Delete)
		patients.GET("/:id/medications", h.Patient.Medications)
	}
}

func registerProductRoutes(v1 *gin.RouterGroup, h *Handlers) {
	products := v1.Group("/products")
	{
		products.GET("", h.Product.List)
		products.POST("", h.Product.Create)
		products.GET("/:id", h.Product.Get)
		products.PUT("/:id", h.Product.Update)
		products.DELETE("/:id", h.Product.Delete)
	}
}

func registerInvoiceRoutes(v1 *gin.RouterGroup, h *Handlers) {
	invoices := v1.Group("/invoices")
	{
		invoices.POST("", h.Invoice.Open)
		invoices.GET("/:id", h.Invoice.Get)
		invoices.DELETE("/:id", h.Invoice.Close)
		invoices.GET("/:id/totals", h.Invoice.Totals)
		invoices.PUT("/:id/patient", h.Invoice.SelectPatient)
		invoices.POST("/:id/items", h.Invoice.AddItem)
		invoices.PATCH("/:id/items/:product_id", h.Invoice.UpdateItem)
		invoices.DELETE("/:id/items/:product_id", h.Invoice.RemoveItem)
		invoices.POST("/:id/save", h.Invoice.Save)
		invoices.POST("/:id/resync", h.Invoice.Resync)
		invoices.GET("/:id/pdf", h.Export.PDF)
		invoices.POST("/:id/print", h.Export.PrintReceipt)
	}
}

func registerPrinterRoutes(v1 *gin.RouterGroup, h *Handlers) {
	printerGroup := v1.Group("/printer")
	{
		printerGroup.GET("/status", h.Export.GetStatus)
		printerGroup.POST("/test", h.Export.TestPrint)
	}
}

func registerBackupRoutes(v1 *gin.RouterGroup, h *Handlers) {
	v1.POST("/backups", h.Backup.Create)
}
