package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS lets any origin read responses. Preflights are answered with 204.
func CORS() gin.HandlerFunc {
	policy := cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", TraceIDHeader},
		ExposeHeaders:   []string{TraceIDHeader},
		MaxAge:          10 * time.Minute,
	})

	return func(c *gin.Context) {
		// cors.New ignores requests without an Origin header
		if c.GetHeader("Origin") == "" {
			c.Header("Access-Control-Allow-Origin", "*")
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
			c.Next()
			return
		}
		policy(c)
	}
}
