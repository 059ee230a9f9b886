package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"alert-center-backend/internal/model"
	"alert-center-backend/internal/mw"
)

type putSubscriptionRequest struct {
	Endpoint  string `json:"endpoint" binding:"required"`
	P256DH    string `json:"p256dh" binding:"required"`
	Auth      string `json:"auth" binding:"required"`
	UserAgent string `json:"user_agent"`
}

// PutSubscription registers a push channel for the authenticated recipient.
// Registration is idempotent: re-sending an endpoint the recipient already
// registered answers with the stored record and creates nothing.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, _ := mw.CurrentUser(c)
	sub := &model.PushSubscription{
		Endpoint:       req.Endpoint,
		RecipientPhone: user.Phone,
		P256DH:         req.P256DH,
		Auth:           req.Auth,
		UserAgent:      req.UserAgent,
	}

	stored, err := h.store.RegisterSubscription(c.Request.Context(), sub)
	if err != nil {
		log.Printf("Failed to register subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, stored)
}

// GetSubscriptions lists the authenticated recipient's registered push
// channels. An empty list is valid and means poll-only delivery.
func (h *Handler) GetSubscriptions(c *gin.Context) {
	user, _ := mw.CurrentUser(c)

	subs, err := h.store.SubscriptionsFor(c.Request.Context(), user.Phone)
	if err != nil {
		log.Printf("Failed to list subscriptions for %s: %v", user.Phone, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, subs)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes one of the caller's own push channels.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, _ := mw.CurrentUser(c)
	subs, err := h.store.SubscriptionsFor(c.Request.Context(), user.Phone)
	if err != nil {
		log.Printf("Failed to list subscriptions for %s: %v", user.Phone, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	owned := false
	for _, s := range subs {
		if s.Endpoint == req.Endpoint {
			owned = true
			break
		}
	}
	if !owned {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}

	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		log.Printf("Failed to delete subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}
