package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"stockwatch_backend/models"
)

// AdminAuthMiddleware protects operator endpoints with HTTP basic auth
// checked against the bcrypt-hashed admin accounts. Failed attempts feed the
// rate limiter so brute-forcing locks the source IP out.
func AdminAuthMiddleware(db *gorm.DB, limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="stockwatch admin"`)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Admin credentials required"})
			c.Abort()
			return
		}

		var admin models.AdminUser
		if err := db.Where("username = ? AND is_active = ?", username, true).First(&admin).Error; err != nil {
			limiter.RecordFailure(ip)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin credentials"})
			c.Abort()
			return
		}
		if !admin.CheckPassword(password) {
			limiter.RecordFailure(ip)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin credentials"})
			c.Abort()
			return
		}

		limiter.RecordSuccess(ip)
		c.Set("admin_id", admin.ID)
		c.Next()
	}
}
