package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the HTTP routing table.
//
// CORS is wide open: the service sits behind edge functions that call it
// from browser-originated contexts.
func NewRouter(h *OMRHandler) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	r.GET("/health", Health)
	r.POST("/process-omr", h.ProcessOMR)

	return r
}
