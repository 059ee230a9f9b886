package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"alert-center-backend/internal/model"
	"alert-center-backend/internal/mw"
	"alert-center-backend/internal/store"
)

// ListAlerts is the polling endpoint: it returns the alerts visible to the
// authenticated recipient, newest first. Both the initial load and every
// delta load on the client hit this same filter.
func (h *Handler) ListAlerts(c *gin.Context) {
	user, _ := mw.CurrentUser(c)

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	alerts, err := h.store.ListAlertsVisibleTo(c.Request.Context(), user.Phone, limit)
	if err != nil {
		log.Printf("Failed to list alerts for %s: %v", user.Phone, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, alerts)
}

// MarkAlertRead records a read receipt for the authenticated recipient.
func (h *Handler) MarkAlertRead(c *gin.Context) {
	user, _ := mw.CurrentUser(c)

	err := h.store.MarkAlertRead(c.Request.Context(), c.Param("id"), user.Phone)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		log.Printf("Failed to mark alert read: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

type createAlertRequest struct {
	Title    string   `json:"title" binding:"required"`
	Body     string   `json:"body" binding:"required"`
	Link     string   `json:"link"`
	Location string   `json:"location"`
	Source   string   `json:"source"`
	Targets  []string `json:"targets"`
}

// CreateAlert persists a new alert and fans it out. Creation and dispatch
// are separate steps: the alert is durable before the first push leaves,
// and a dispatch full of failed endpoints still answers 201 with the
// report attached.
func (h *Handler) CreateAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	alert := &model.Alert{
		Title:    req.Title,
		Body:     req.Body,
		Link:     req.Link,
		Location: req.Location,
		Source:   req.Source,
		Targets:  req.Targets,
	}
	if alert.Source == "" {
		alert.Source = "Admin Dashboard"
	}
	h.createAndDispatch(c, alert)
}

// CreateTestAlert creates a synthetic broadcast alert with the exact same
// persistence and dispatch semantics as a real one.
func (h *Handler) CreateTestAlert(c *gin.Context) {
	alert := &model.Alert{
		Title:  "Test Alert",
		Body:   fmt.Sprintf("This is a test alert sent at %s", time.Now().Format("15:04:05")),
		Source: "Admin Test",
	}
	h.createAndDispatch(c, alert)
}

func (h *Handler) createAndDispatch(c *gin.Context, alert *model.Alert) {
	if err := alert.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.CreateAlert(c.Request.Context(), alert); err != nil {
		log.Printf("Failed to create alert: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	report, err := h.dispatcher.Dispatch(c.Request.Context(), alert)
	if err != nil {
		// The alert is persisted; poll-based delivery still happens.
		log.Printf("Dispatch failed for alert %s: %v", alert.ID, err)
		c.JSON(http.StatusCreated, gin.H{"alert": alert, "dispatch_error": "push dispatch failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"alert": alert, "report": report})
}

// ListAllAlerts returns the full alert history for the admin dashboard.
func (h *Handler) ListAllAlerts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	alerts, err := h.store.ListAlerts(c.Request.Context(), limit)
	if err != nil {
		log.Printf("Failed to list alerts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, alerts)
}
