package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.lm.GetCurrentStatus())
}

// shutdown triggers a graceful system shutdown after the response is sent
func (s *Server) shutdown(c *gin.Context) {
	s.logger.Warn("Shutdown requested via API",
		zap.String("client_ip", c.ClientIP()))

	c.JSON(http.StatusAccepted, gin.H{"message": "shutting down"})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.lm.Shutdown(ctx); err != nil {
			s.logger.Error("Shutdown failed", zap.Error(err))
		}
	}()
}
