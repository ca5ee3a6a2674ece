package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

// ClaimsKey -> key gin context untuk *utils.DashboardClaims
const ClaimsKey = "claims"

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Authorization header missing"))
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("format token tidak valid"))
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil || claims == nil {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid or expired token"))
			c.Abort()
			return
		}

		utils.InfoLogger.WithFields(logrus.Fields{
			"user_id": claims.UserID,
			"role":    claims.Role,
		}).Debug("token accepted")

		setClaims(c, claims)
		c.Next()
	}
}

// BusinessAccess -> tolak request ke :business_id yang tidak ada di claim
func BusinessAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
			c.Abort()
			return
		}
		businessID := c.Param("business_id")
		if businessID != "" && !claims.CanAccess(businessID) {
			utils.RespondError(c, http.StatusForbidden, errors.New("business access denied"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Claims -> claim dari context, nil kalau belum lewat AuthMiddleware
func Claims(c *gin.Context) *utils.DashboardClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*utils.DashboardClaims)
	return claims
}

func setClaims(c *gin.Context, claims *utils.DashboardClaims) {
	c.Set(ClaimsKey, claims)
	c.Set("user_id", claims.UserID)
	c.Set("role", claims.Role)
}
