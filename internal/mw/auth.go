package mw

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"alert-center-backend/internal/store"
)

// ContextRecipientKey is the gin context key holding the authenticated recipient.
const ContextRecipientKey = "recipient"

// SessionUser is the authenticated identity placed in the request context.
type SessionUser struct {
	Phone   string
	Name    string
	IsAdmin bool
}

// TokenIssuer mints and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a token issuer with the given signing secret and lifetime.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a session token for the given recipient.
func (i *TokenIssuer) Issue(phone string) (string, error) {
	claims := jwt.MapClaims{
		"phone": phone,
		"exp":   time.Now().Add(i.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify parses a session token and returns the recipient phone it names.
func (i *TokenIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return "", jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	phone, ok := claims["phone"].(string)
	if !ok || phone == "" {
		return "", fmt.Errorf("invalid token claims")
	}
	return phone, nil
}

// Auth is a middleware that authenticates Bearer tokens and loads the
// recipient into the request context. Deactivated accounts are rejected,
// which is what ends a client's polling session after an admin toggle.
func Auth(issuer *TokenIssuer, s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token is required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header format must be Bearer {token}"})
			return
		}

		phone, err := issuer.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		recipient, err := s.FindRecipient(c.Request.Context(), phone)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "recipient not found"})
			return
		}
		if !recipient.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account deactivated"})
			return
		}

		c.Set(ContextRecipientKey, SessionUser{
			Phone:   recipient.Phone,
			Name:    recipient.Name,
			IsAdmin: recipient.IsAdmin,
		})
		c.Next()
	}
}

// AdminOnly rejects requests whose session user is not an admin. Must run
// after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated session user, if any.
func CurrentUser(c *gin.Context) (SessionUser, bool) {
	v, exists := c.Get(ContextRecipientKey)
	if !exists {
		return SessionUser{}, false
	}
	user, ok := v.(SessionUser)
	return user, ok
}
