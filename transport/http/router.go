package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Osamakahen/freo-wallet-sub001/bridge"
)

// SetupRouter wires the gin router over the bridge.
func SetupRouter(b *bridge.Bridge, tokens *PrivilegedTokens, log zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(PrivilegedMiddleware(tokens))

	handlers := NewRPCHandlers(b, log)
	router.POST("/rpc", handlers.RPC)
	router.GET("/healthz", handlers.Health)

	return router
}
