package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"alert-center-backend/internal/mw"
	"alert-center-backend/internal/store"
)

type loginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a recipient by phone number and password and returns
// a session token. All credential failures share one message; no partial
// session state is created on any rejection path.
func (h *Handler) Login(issuer *mw.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		recipient, err := h.store.FindRecipient(c.Request.Context(), req.Phone)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			log.Printf("Database error when fetching recipient: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		if !recipient.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account deactivated"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(recipient.PasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		token, err := issuer.Issue(recipient.Phone)
		if err != nil {
			log.Printf("Failed to issue session token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		now := time.Now()
		recipient.LastLogin = &now
		if err := h.store.SaveRecipient(c.Request.Context(), recipient); err != nil {
			// Last-login is bookkeeping; the session is already valid.
			log.Printf("Failed to record last login for %s: %v", recipient.Phone, err)
		}

		c.JSON(http.StatusOK, gin.H{
			"token":     token,
			"recipient": recipient,
		})
	}
}
