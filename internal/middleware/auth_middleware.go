package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go-dispensa/internal/shared/apperror"
	"go-dispensa/internal/shared/contextutil"
	"go-dispensa/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	errTokenMissing = apperror.New(apperror.CodeUnauthorized, "Token not found", http.StatusUnauthorized)
	errTokenInvalid = apperror.New("INVALID_TOKEN", "Invalid token", http.StatusUnauthorized)
	errTokenExpired = apperror.New("TOKEN_EXPIRED", "Token expired", http.StatusUnauthorized)
)

// Auth validates an HMAC-signed JWT and exposes the caller it describes.
// Required claims: user_id, role. Optional: name.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found {
			tokenString = ""
		}
		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}
		if tokenString == "" {
			abortWith(c, errTokenMissing)
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortWith(c, errTokenExpired)
				return
			}
			abortWith(c, errTokenInvalid)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortWith(c, errTokenInvalid)
			return
		}

		userID, _ := claims["user_id"].(string)
		role, _ := claims["role"].(string)
		if userID == "" || role == "" {
			abortWith(c, apperror.New("INVALID_TOKEN", "user_id and role claims are required", http.StatusUnauthorized))
			return
		}
		name, _ := claims["name"].(string)

		caller := contextutil.Caller{
			UserID:      userID,
			Role:        strings.ToLower(strings.TrimSpace(role)),
			DisplayName: strings.TrimSpace(name),
		}

		c.Set("user_id", caller.UserID)
		c.Set("user_id_validated", caller.UserID)
		c.Set("role", caller.Role)
		c.Set("display_name", caller.DisplayName)

		ctx := c.Request.Context()
		ctx = contextutil.WithUserID(ctx, caller.UserID)
		ctx = contextutil.WithCaller(ctx, caller)
		ctx = contextutil.WithLogger(ctx, contextutil.GetLogger(ctx, zap.L()).With(
			zap.String("user_id", caller.UserID),
			zap.String("role", caller.Role),
		))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func abortWith(c *gin.Context, err *apperror.AppError) {
	response.Error(c, err.HTTPStatus, err.Code, err.Message, nil)
	c.Abort()
}
