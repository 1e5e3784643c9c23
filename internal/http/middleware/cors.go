package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS lets the web client use the REST fallback from the origins that may
// also open the websocket. An empty list allows every origin.
func CORS(allowedOrigins []string, identityHeader string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, identityHeader)
	cfg.MaxAge = 12 * time.Hour
	return cors.New(cfg)
}
