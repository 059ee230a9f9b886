package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"alert-center-backend/internal/model"
	"alert-center-backend/internal/store"
)

type createRecipientRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	IsAdmin  bool   `json:"is_admin"`
}

// CreateRecipient registers a new recipient account.
func (h *Handler) CreateRecipient(c *gin.Context) {
	var req createRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if _, err := h.store.FindRecipient(c.Request.Context(), req.Phone); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone number already registered"})
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Printf("Database error when checking existing recipient: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	recipient := &model.Recipient{
		Phone:        req.Phone,
		Name:         req.Name,
		PasswordHash: string(hash),
		IsActive:     true,
		IsAdmin:      req.IsAdmin,
	}
	if err := recipient.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.CreateRecipient(c.Request.Context(), recipient); err != nil {
		log.Printf("Failed to create recipient: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, recipient)
}

// ListRecipients returns all recipient accounts.
func (h *Handler) ListRecipients(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	recipients, err := h.store.ListRecipients(c.Request.Context(), activeOnly)
	if err != nil {
		log.Printf("Failed to list recipients: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, recipients)
}

type updateRecipientRequest struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password" binding:"omitempty,min=8"`
}

// UpdateRecipient applies partial updates: rename, active-flag toggle
// (the soft-delete lifecycle) or password reset.
func (h *Handler) UpdateRecipient(c *gin.Context) {
	var req updateRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	recipient, err := h.store.FindRecipient(c.Request.Context(), c.Param("phone"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipient not found"})
			return
		}
		log.Printf("Database error when fetching recipient: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if req.Name != nil {
		recipient.Name = *req.Name
	}
	if req.IsActive != nil {
		recipient.IsActive = *req.IsActive
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("Failed to hash password: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		recipient.PasswordHash = string(hash)
	}

	if err := recipient.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SaveRecipient(c.Request.Context(), recipient); err != nil {
		log.Printf("Failed to update recipient: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, recipient)
}

// DeleteRecipient removes an account outright. Deactivation via PATCH is
// the recommended lifecycle; this exists for accounts created by mistake.
func (h *Handler) DeleteRecipient(c *gin.Context) {
	if err := h.store.DeleteRecipient(c.Request.Context(), c.Param("phone")); err != nil {
		log.Printf("Failed to delete recipient: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}
