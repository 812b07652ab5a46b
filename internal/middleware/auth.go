package middleware

import (
	"net/http"

	"newsline/internal/db"
	"newsline/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"

// LoadUser retrieves the user from the session and sets it on the context.
// Deactivated accounts are treated as logged out.
func LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get("user_id")

		if userID != nil {
			var user models.User
			result := db.DB.First(&user, userID)
			if result.Error == nil && user.IsActive {
				c.Set(CheckUserKey, &user)
			}
		}
		c.Next()
	}
}

// AuthRequired ensures a user is logged in.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(CheckUserKey); !exists {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AuthorRequired gates publishing routes. Anonymous users go to the login
// flow; signed-in readers go to the author upgrade page.
func AuthorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(CheckUserKey)
		if !exists {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		user := value.(*models.User)
		if !user.CanPublish() {
			c.Redirect(http.StatusFound, "/my/upgrade")
			c.Abort()
			return
		}
		c.Next()
	}
}
