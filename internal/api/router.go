package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"alert-center-backend/config"
	"alert-center-backend/internal/dispatch"
	"alert-center-backend/internal/mw"
	"alert-center-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, d *dispatch.Dispatcher, webpushOptions *webpush.Options, issuer *mw.TokenIssuer) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, d, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	auth := mw.Auth(issuer, s)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/login", handler.Login(issuer))

		// The VAPID key is static; cache it.
		api.GET("/vapid_public_key", caching, handler.GetVAPIDPublicKey)

		// Recipient surface. GET /alerts is the polling path and is
		// deliberately uncached.
		api.GET("/alerts", auth, handler.ListAlerts)
		api.POST("/alerts/:id/read", auth, handler.MarkAlertRead)
		api.PUT("/subscriptions", auth, handler.PutSubscription)
		api.GET("/subscriptions", auth, handler.GetSubscriptions)
		api.DELETE("/subscriptions", auth, handler.DeleteSubscription)

		admin := api.Group("/admin")
		admin.Use(auth, mw.AdminOnly())
		{
			admin.POST("/alerts", handler.CreateAlert)
			admin.POST("/alerts/test", handler.CreateTestAlert)
			admin.GET("/alerts", handler.ListAllAlerts)

			admin.POST("/recipients", handler.CreateRecipient)
			admin.GET("/recipients", handler.ListRecipients)
			admin.PATCH("/recipients/:phone", handler.UpdateRecipient)
			admin.DELETE("/recipients/:phone", handler.DeleteRecipient)
		}
	}

	return r
}
