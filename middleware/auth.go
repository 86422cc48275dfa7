package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"carebridge/pkg/config"
	tokenstore "carebridge/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ContextUserIDKey = "current_user_id"
	ContextRoleKey   = "current_user_role"
	ContextJTIKey    = "current_jti"
)

// ParseToken validates a signed JWT and returns (userID, role, jti).
// Shared between the bearer-header middleware and the websocket handler,
// which authenticates via ?token= query instead.
func ParseToken(tokenStr string) (string, string, string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		// only accept HMAC signing
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return []byte(config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", "", "", jwt.ErrTokenUnverifiable
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", "", jwt.ErrTokenInvalidClaims
	}

	jtiVal, _ := claims["jti"].(string)
	if tokenstore.IsRevoked(jtiVal) {
		return "", "", "", jwt.ErrTokenExpired
	}

	var userIDStr string
	if sub, ok := claims["sub"].(string); ok {
		userIDStr = sub
	} else if subf, ok := claims["sub"].(float64); ok {
		// jwt lib may parse numeric as float64
		userIDStr = strconv.Itoa(int(subf))
	}
	if userIDStr == "" {
		return "", "", "", jwt.ErrTokenInvalidSubject
	}

	role, _ := claims["role"].(string)
	return userIDStr, role, jtiVal, nil
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "missing authorization header"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid authorization header"})
			return
		}

		uid, role, jti, err := ParseToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid token"})
			return
		}

		c.Set(ContextUserIDKey, uid)
		c.Set(ContextRoleKey, role)
		c.Set(ContextJTIKey, jti)
		c.Next()
	}
}

// RequireRole gates a route group on the role claim.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, _ := c.Get(ContextRoleKey)
		if got != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"msg": "forbidden for this role"})
			return
		}
		c.Next()
	}
}
