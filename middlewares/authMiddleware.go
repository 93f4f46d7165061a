package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
	"bitbucket.org/mmsoftdev/shopbooks_backend/utils"
	"github.com/gin-gonic/gin"
)

// RequireAuth validates the Bearer token, loads the session user, and stamps
// identity onto the request context. The user's own ID is the tenant key that
// scopes every query downstream.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authorization required"})
			c.Abort()
			return
		}
		tokenString := strings.TrimPrefix(auth, "Bearer ")

		token, err := utils.JwtValidate(tokenString)
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid or expired token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid or expired token"})
			c.Abort()
			return
		}

		user, err := models.CachedUser(c.Request.Context(), claims.ID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid or expired token"})
			c.Abort()
			return
		}
		if user.IsActive == nil || !*user.IsActive {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "account is deactivated"})
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		ctx = utils.SetTokenInContext(ctx, tokenString)
		ctx = utils.SetUserIdInContext(ctx, user.ID)
		ctx = utils.SetUserNameInContext(ctx, user.Name)
		ctx = utils.SetUserEmailInContext(ctx, user.Email)
		ctx = utils.SetShopkeeperIdInContext(ctx, user.ID)
		ctx = utils.SetIsAdminInContext(ctx, user.Role == models.UserRoleAdmin)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAdmin gates admin-only routes. Must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isAdmin, ok := utils.GetIsAdminFromContext(c.Request.Context()); !ok || !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireFeature gates routes behind a per-account feature toggle. Admins
// bypass every toggle. Must run after RequireAuth.
func RequireFeature(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, ok := utils.GetUserIdFromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authorization required"})
			c.Abort()
			return
		}
		user, err := models.CachedUser(c.Request.Context(), userId)
		if err != nil || !user.HasFeature(name) {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "this feature is not enabled for your account"})
			c.Abort()
			return
		}
		c.Next()
	}
}
