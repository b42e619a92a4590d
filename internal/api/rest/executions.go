package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/motionforge/motioncore/internal/types"
)

func (s *Server) getExecution(c *gin.Context) {
	executionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("EXEC_400", "Invalid execution ID", err.Error()))
		return
	}

	exec, err := s.lm.Storage().GetExecution(c.Request.Context(), executionID)
	if err != nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("EXEC_404", "Execution not found", nil))
		return
	}

	c.JSON(http.StatusOK, exec)
}

func (s *Server) getExecutionEvents(c *gin.Context) {
	executionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("EXEC_400", "Invalid execution ID", err.Error()))
		return
	}

	events, err := s.lm.Storage().GetExecutionEvents(c.Request.Context(), executionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("EXEC_500", "Failed to load execution events", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}
