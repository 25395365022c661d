package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GatewayAuth trusts user info from gateway headers (X-User-ID, X-User-Email,
// X-User-Role). JWT validation and plan checks happen in the Node gateway in
// front of this API; the quota verdict arrives as X-Quota-Exceeded.
//
// When AUTH_MODE=gateway, the API trusts these headers unconditionally.
// This should ONLY be used in the hosted environment with proper network isolation.
func GatewayAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"message": "Missing X-User-ID header from gateway",
			})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Set("user_email", c.GetHeader("X-User-Email"))
		c.Set("user_role", c.GetHeader("X-User-Role"))
		c.Set("quota_exceeded", c.GetHeader("X-Quota-Exceeded") == "true")

		c.Next()
	}
}

// GetUserID retrieves the user ID set by the auth middleware
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	return userID, userID != ""
}

// GetUserRole retrieves the user role set by the auth middleware
func GetUserRole(c *gin.Context) string {
	return c.GetString("user_role")
}

// QuotaExceeded reports the gateway's quota verdict for this request
func QuotaExceeded(c *gin.Context) bool {
	return c.GetBool("quota_exceeded")
}
