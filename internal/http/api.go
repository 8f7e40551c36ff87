package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"pos-billing/internal/billing"
	"pos-billing/internal/metrics"
	"pos-billing/internal/repository"
	"pos-billing/internal/service"
	"pos-billing/internal/storage"
)

const healthMessage = "Billing backend is running!"

// Options carries the collaborators and settings of the HTTP surface.
type Options struct {
	Users    service.UserService
	Products service.ProductService
	Bills    *billing.Registry
	Metrics  *metrics.Metrics
	Logger   *logrus.Logger

	AllowedOrigin string
	// StaticDir/StaticPrefix serve locally stored images; leave empty when images live elsewhere.
	StaticDir      string
	StaticPrefix   string
	MaxUploadBytes int64
	Currency       string
	AuthRateLimit  rate.Limit
	AuthRateBurst  int
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	products service.ProductService
	bills    *billing.Registry
	metrics  *metrics.Metrics
	log      *logrus.Logger

	allowedOrigin  string
	staticDir      string
	staticPrefix   string
	maxUploadBytes int64
	currency       string
	authLimiter    *rate.Limiter
}

func NewHandler(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Bills == nil {
		opts.Bills = billing.NewRegistry(0, 0)
	}
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 8 << 20
	}
	if opts.Currency == "" {
		opts.Currency = billing.DefaultCurrency
	}
	if opts.AuthRateLimit <= 0 {
		opts.AuthRateLimit = rate.Inf
	}
	if opts.AuthRateBurst <= 0 {
		opts.AuthRateBurst = 1
	}
	return &Handler{
		users:          opts.Users,
		products:       opts.Products,
		bills:          opts.Bills,
		metrics:        opts.Metrics,
		log:            opts.Logger,
		allowedOrigin:  opts.AllowedOrigin,
		staticDir:      opts.StaticDir,
		staticPrefix:   strings.Trim(opts.StaticPrefix, "/"),
		maxUploadBytes: opts.MaxUploadBytes,
		currency:       opts.Currency,
		authLimiter:    rate.NewLimiter(opts.AuthRateLimit, opts.AuthRateBurst),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.MaxMultipartMemory = h.maxUploadBytes
	router.Use(h.requestLogger())
	router.Use(corsMiddleware(h.allowedOrigin))

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, healthMessage)
	})

	if h.staticDir != "" && h.staticPrefix != "" {
		router.Group("/"+h.staticPrefix, noSniff()).Static("", h.staticDir)
	}
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	auth := router.Group("", h.rateLimit())
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
	}

	router.POST("/add-product", h.addProduct)
	router.GET("/products", h.listProducts)
	router.GET("/products/:id", h.getProduct)
	router.PUT("/products/:id", h.updateProduct)
	router.DELETE("/products/:id", h.deleteProduct)
	router.PUT("/update-quantities", h.updateQuantities)

	bills := router.Group("/bills")
	{
		bills.POST("", h.openBill)
		bills.GET("/:id", h.getBill)
		bills.POST("/:id/items", h.applyBillItem)
		bills.POST("/:id/finish", h.finishBill)
		bills.GET("/:id/receipt", h.billReceipt)
		bills.DELETE("/:id", h.discardBill)
	}
}

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		if origin != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// noSniff stops browsers from guessing a content type for uploaded files.
func noSniff() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		route := c.FullPath()
		h.metrics.ObserveRequest(c.Request.Method, route, status, elapsed)

		entry := h.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   status,
			"duration": elapsed,
			"origin":   c.GetHeader("Origin"),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Warn("request failed")
		default:
			entry.Debug("request served")
		}
	}
}

func (h *Handler) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.authLimiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again later."})
			return
		}
		c.Next()
	}
}

// statusFor maps domain errors onto HTTP status codes. Unknown errors are store failures.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrUserAlreadyExists),
		errors.Is(err, billing.ErrEmptyBill),
		errors.Is(err, billing.ErrZeroDelta),
		errors.Is(err, billing.ErrMissingProductID),
		errors.Is(err, storage.ErrUnsupportedImage):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, billing.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, billing.ErrTooManySessions):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("op", op).Error("store failure")
	}
	c.JSON(status, gin.H{"error": errorMessage(err)})
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		return "Product not found"
	case errors.Is(err, service.ErrUserAlreadyExists):
		return "Email already exists"
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid email or password"
	default:
		return err.Error()
	}
}
