package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yanun0323/logs"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeaderKey)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeaderKey, requestID)
		c.Set(RequestIDContextKey, requestID)
		c.Next()
	}
}

func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logs.Infof("[%s] %s %s %d %s", c.GetString(RequestIDContextKey),
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// authMiddleware resolves the X-API-Key header to an account
func (h *APIHandler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, err := h.AccountService.Authenticate(c.Request.Context(), c.GetHeader(APIKeyHeaderKey))
		if err != nil {
			h.handleError(c, err)
			c.Abort()
			return
		}
		c.Set(accountContextKey, account)
		c.Next()
	}
}

func currentAccount(c *gin.Context) *domain.Account {
	return c.MustGet(accountContextKey).(*domain.Account)
}
