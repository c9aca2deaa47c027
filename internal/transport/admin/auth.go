package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ContextSubject = "subject"

// AuthMiddleware accepts HS256 bearer tokens signed with secret. The token subject is stored
// under ContextSubject.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			writeError(c, http.StatusUnauthorized, "missing_authorization_header", "authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(c, http.StatusUnauthorized, "invalid_authorization_header", "expected a bearer token")
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenMalformed
			}
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			writeError(c, http.StatusUnauthorized, "invalid_token", "token is invalid or expired")
			return
		}

		sub, _ := token.Claims.GetSubject()
		c.Set(ContextSubject, sub)
		c.Next()
	}
}

type httpError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, httpError{Code: code, Message: message})
}
