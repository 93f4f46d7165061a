package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmsoftdev/shopbooks_backend/config"
	"bitbucket.org/mmsoftdev/shopbooks_backend/middlewares"
	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
	"bitbucket.org/mmsoftdev/shopbooks_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// RateLimiter is a simple fixed-window limiter backed by Redis.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func getRedisClient(redisAddress string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "route not found"})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Graceful drain on SIGTERM.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server before connecting dependencies so the platform's
	// startup probe passes quickly. Until DB/Redis are ready, app endpoints
	// return 503.
	r := gin.New()

	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			c.Abort()
			return
		}
		// Gate app endpoints on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	corsConfig := cors.DefaultConfig()
	// In production CORS requires an explicit allowlist via CORS_ALLOWED_ORIGINS
	// (comma-separated); anywhere else all origins are allowed.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// Optional rate limiting.
	// Env: RATE_LIMIT_ENABLED, RATE_LIMIT_WINDOW_SECONDS, RATE_LIMIT_MAX_REQUESTS.
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	registerRoutes(r)
	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	// AutoMigrate can run DDL that blocks tables; allow running migrations as
	// a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		if err := models.MigrateTable(); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Error("migration failed: " + err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func registerRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/signup", signUpHandler)
		auth.POST("/signin", signInHandler)
		auth.POST("/refresh", refreshTokenHandler)
		auth.POST("/forgot-password", forgotPasswordHandler)
		auth.POST("/reset-password", resetPasswordHandler)
		auth.POST("/signout", middlewares.RequireAuth(), signOutHandler)
		auth.POST("/change-password", middlewares.RequireAuth(), changePasswordHandler)
	}

	api := r.Group("/", middlewares.RequireAuth())
	{
		api.GET("/profile", getProfileHandler)
		api.PUT("/profile", updateProfileHandler)

		customers := api.Group("/customers")
		{
			customers.GET("", listCustomersHandler)
			customers.POST("", createCustomerHandler)
			customers.GET("/stats", customerStatsHandler)
			customers.GET("/:id", getCustomerHandler)
			customers.PUT("/:id", updateCustomerHandler)
			customers.DELETE("/:id", deleteCustomerHandler)
			customers.POST("/:id/restore", restoreCustomerHandler)
			customers.POST("/:id/payment", createCustomerPaymentHandler)
		}

		wholesalers := api.Group("/wholesalers", middlewares.RequireFeature("wholesalers"))
		{
			wholesalers.GET("", listWholesalersHandler)
			wholesalers.POST("", createWholesalerHandler)
			wholesalers.GET("/stats", wholesalerStatsHandler)
			wholesalers.GET("/:id", getWholesalerHandler)
			wholesalers.PUT("/:id", updateWholesalerHandler)
			wholesalers.DELETE("/:id", deleteWholesalerHandler)
			wholesalers.POST("/:id/restore", restoreWholesalerHandler)
			wholesalers.POST("/:id/payment", createWholesalerPaymentHandler)
		}

		bills := api.Group("/bills", middlewares.RequireFeature("billing"))
		{
			bills.GET("", listBillsHandler)
			bills.POST("", createBillHandler)
			bills.GET("/stats", billStatsHandler)
			bills.GET("/:id", getBillHandler)
			bills.PUT("/:id", updateBillHandler)
			bills.DELETE("/:id", deleteBillHandler)
		}

		payments := api.Group("/payments")
		{
			payments.GET("", listPaymentsHandler)
			payments.POST("", createPaymentHandler)
			payments.GET("/:id", getPaymentHandler)
		}

		api.GET("/transactions", listTransactionsHandler)
		api.GET("/dashboard", dashboardHandler)

		reports := api.Group("/reports", middlewares.RequireFeature("reports"))
		{
			reports.GET("/daily", dailyReportHandler)
			reports.GET("/monthly", monthlyReportHandler)
			reports.GET("/dues", outstandingDuesHandler)
			reports.GET("/dues/export", exportDuesHandler)
		}

		invoices := api.Group("/invoices")
		{
			invoices.GET("", listInvoicesHandler)
			invoices.POST("", createInvoiceHandler)
			invoices.GET("/stats", invoiceStatsHandler)
			invoices.GET("/:id", getInvoiceHandler)
			invoices.PATCH("/:id/status", updateInvoiceStatusHandler)
			invoices.DELETE("/:id", deleteInvoiceHandler)
			invoices.GET("/:id/share", shareInvoiceHandler)
		}

		api.GET("/storage", storageUsageHandler)

		admin := api.Group("/", middlewares.RequireAdmin())
		{
			admin.GET("/users", listUsersHandler)
			admin.POST("/users", createUserHandler)
			admin.GET("/users/stats", userStatsHandler)
			admin.GET("/users/:id", getUserHandler)
			admin.PUT("/users/:id", updateUserHandler)
			admin.DELETE("/users/:id", deleteUserHandler)
			admin.PATCH("/users/:id/status", toggleUserStatusHandler)
			admin.PATCH("/users/:id/features", updateUserFeaturesHandler)
			admin.GET("/storage/all", allStorageHandler)
			admin.GET("/storage/compare", compareStorageHandler)
		}
	}
}

// customErrorLogger logs only requests that recorded errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// RateLimitMiddleware enforces the per-client fixed window.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"message": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
