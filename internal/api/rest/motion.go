package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/motionforge/motioncore/internal/types"
)

type FailRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (s *Server) listMotionGroups(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"motion_groups": s.lm.MotionGroups()})
}

func (s *Server) getMotionStatus(c *gin.Context) {
	controller, ok := s.lm.Controller(c.Param("group"))
	if !ok {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("MOTION_404", "Unknown motion group", c.Param("group")))
		return
	}

	c.JSON(http.StatusOK, controller.Status())
}

// pauseMotion requests a controlled stop. The state only changes to Paused
// once the controller confirms standstill on the feedback stream.
func (s *Server) pauseMotion(c *gin.Context) {
	controller, ok := s.lm.Controller(c.Param("group"))
	if !ok {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("MOTION_404", "Unknown motion group", c.Param("group")))
		return
	}

	if err := controller.Pause(c.Request.Context()); err != nil {
		c.JSON(http.StatusConflict, types.NewErrorResponse("MOTION_409", "Failed to pause", err.Error()))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "pause requested"})
}

func (s *Server) resumeMotion(c *gin.Context) {
	controller, ok := s.lm.Controller(c.Param("group"))
	if !ok {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("MOTION_404", "Unknown motion group", c.Param("group")))
		return
	}

	if err := controller.Resume(c.Request.Context()); err != nil {
		c.JSON(http.StatusConflict, types.NewErrorResponse("MOTION_409", "Failed to resume", err.Error()))
		return
	}

	c.JSON(http.StatusOK, controller.Status())
}

func (s *Server) failMotion(c *gin.Context) {
	controller, ok := s.lm.Controller(c.Param("group"))
	if !ok {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("MOTION_404", "Unknown motion group", c.Param("group")))
		return
	}

	var req FailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("MOTION_400", "Invalid request body", err.Error()))
		return
	}

	if err := controller.Fail(c.Request.Context(), errors.New(req.Reason)); err != nil {
		c.JSON(http.StatusConflict, types.NewErrorResponse("MOTION_409", "Failed to abort", err.Error()))
		return
	}

	c.JSON(http.StatusOK, controller.Status())
}
