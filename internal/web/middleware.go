package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Laisky/wechat-article-search/library/jwt"
	"github.com/Laisky/wechat-article-search/library/throttle"
)

const (
	headerRequestID = "X-Request-Id"
	ctxKeyRequestID = "request_id"
)

// allowCORS allows every origin; the API carries no cookies.
func allowCORS(ctx *gin.Context) {
	ctx.Header("Access-Control-Allow-Origin", "*")
	ctx.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	ctx.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, X-Request-Id, Mcp-Session-Id")
	ctx.Header("Access-Control-Expose-Headers", "X-Request-Id, Mcp-Session-Id")
	ctx.Header("Access-Control-Max-Age", "86400")

	if ctx.Request.Method == http.MethodOptions {
		ctx.AbortWithStatus(http.StatusNoContent)
		return
	}

	ctx.Next()
}

// requestID propagates the caller's request id or assigns a new one.
func requestID(ctx *gin.Context) {
	id := strings.TrimSpace(ctx.GetHeader(headerRequestID))
	if id == "" || len(id) > 128 {
		id = uuid.NewString()
	}

	ctx.Set(ctxKeyRequestID, id)
	ctx.Header(headerRequestID, id)
	ctx.Next()
}

func rateLimit(t *throttle.KeyThrottle) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if t == nil || t.Allow(ctx.ClientIP()) {
			ctx.Next()
			return
		}

		ctx.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{
			Error: fmt.Sprintf("rate limit exceeded for %s", ctx.ClientIP()),
		})
	}
}

// adminOnly requires a valid admin bearer token when a verifier is configured.
func adminOnly(v *jwt.Verifier) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if v == nil {
			ctx.Next()
			return
		}

		token := bearerToken(ctx.GetHeader("Authorization"))
		if token == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing authorization bearer token"})
			return
		}
		if _, err := v.Verify(token); err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid admin token"})
			return
		}

		ctx.Next()
	}
}

func bearerToken(header string) string {
	value := strings.TrimSpace(header)
	const prefix = "bearer "
	if len(value) >= len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
		return strings.TrimSpace(value[len(prefix):])
	}
	return ""
}
