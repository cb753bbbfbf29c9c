package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"greendrake/estate/internal/api/handlers"
	"greendrake/estate/internal/api/middleware"
	"greendrake/estate/internal/config"
	"greendrake/estate/internal/email"
	"greendrake/estate/internal/logging"
	"greendrake/estate/internal/services"
)

// Services bundles the business services the HTTP API exposes.
type Services struct {
	Properties services.IPropertyService
	Offers     services.IOfferService
	Billing    services.IBillingService
	Catalog    services.ICatalogService
	Parties    services.IPartyService
}

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, svc Services, logger *zap.Logger) *gin.Engine {
	logger = logging.OrNop(logger)

	r := gin.New()
	r.Use(requestLogger(logger.Named("http")), gin.Recovery())

	// Apply global middleware first (order matters)
	r.Use(middleware.CORSMiddleware(cfg.CorsAllowedOrigins))
	r.Use(middleware.NewRateLimiterMiddleware(cfg, logger).Limit())

	jsonApiHandler := handlers.NewJsonApiHandler(cfg.JwtSecret, svc.Properties, svc.Offers, svc.Parties, logger)
	propertyHandler := handlers.NewRestPropertyHandler(svc.Properties, svc.Offers, svc.Billing)
	catalogHandler := handlers.NewRestCatalogHandler(svc.Catalog)
	partyHandler := handlers.NewRestPartyHandler(svc.Parties)
	billingHandler := handlers.NewRestBillingHandler(svc.Billing)

	v1 := r.Group("/v1")
	{
		// Authentication is checked per method
		v1.POST("/api", jsonApiHandler.HandleRequest)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.GET("/property", propertyHandler.SearchProperties)
			authRequired.POST("/property", propertyHandler.CreateProperty)
			authRequired.GET("/property/:id", propertyHandler.GetPropertyByID)
			authRequired.PATCH("/property/:id", propertyHandler.UpdateProperty)
			authRequired.DELETE("/property/:id", propertyHandler.DeleteProperty)
			authRequired.GET("/property/:id/offer", propertyHandler.ListPropertyOffers)
			authRequired.GET("/property/:id/invoice", propertyHandler.ListPropertyInvoices)

			authRequired.GET("/offer/:id", propertyHandler.GetOfferByID)
			authRequired.PATCH("/offer/:id", propertyHandler.UpdateOffer)
			authRequired.DELETE("/offer/:id", propertyHandler.DeleteOffer)

			authRequired.GET("/property-type", catalogHandler.ListTypes)
			authRequired.POST("/property-type", catalogHandler.CreateType)
			authRequired.GET("/property-type/:id", catalogHandler.GetType)
			authRequired.GET("/property-tag", catalogHandler.ListTags)
			authRequired.POST("/property-tag", catalogHandler.CreateTag)
			authRequired.GET("/property-tag/:id", catalogHandler.GetTag)

			authRequired.GET("/partner", partyHandler.ListPartners)
			authRequired.POST("/partner", partyHandler.CreatePartner)
			authRequired.GET("/partner/:id", partyHandler.GetPartnerByID)
			authRequired.GET("/user", partyHandler.ListUsers)
			authRequired.GET("/user/:id", partyHandler.GetUserByID)

			authRequired.GET("/journal", billingHandler.ListJournals)
			authRequired.GET("/invoice/:id", billingHandler.GetInvoiceByID)
		}

		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			adminRequired.POST("/user", partyHandler.CreateUser)
			adminRequired.POST("/journal", billingHandler.CreateJournal)
		}
	}

	return r
}

// requestLogger logs one line per request.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.String("client", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
			log.Error("request failed", fields...)
			return
		}
		log.Debug("request", fields...)
	}
}

// SetupServiceRouter configures and returns the service Gin engine. It is
// bound to a private port and is used by operators and end-to-end tests.
func SetupServiceRouter(rdb *redis.Client, shutdownChan chan<- struct{}, logger *zap.Logger) *gin.Engine {
	log := logging.OrNop(logger).Named("service")
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Info("received shutdown command via service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Warn("shutdown already signaled")
			}
		case "getTestEmail":
			var args []string // Expect ["kind", "email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [kind, email]"})
				return
			}
			if rdb == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Redis not configured"})
				return
			}
			msg, err := email.FetchMock(c.Request.Context(), rdb, args[1], args[0])
			if errors.Is(err, email.ErrNoMockEmail) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found for key %s", email.MockKey(args[1], args[0]))})
				return
			}
			if err != nil {
				log.Error("failed to fetch test email", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": msg})
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

