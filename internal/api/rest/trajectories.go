package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/motionforge/motioncore/internal/storage"
	"github.com/motionforge/motioncore/internal/trajectory"
	"github.com/motionforge/motioncore/internal/types"
)

type ExecuteTrajectoryResponse struct {
	ExecutionID  uuid.UUID `json:"execution_id"`
	TrajectoryID uuid.UUID `json:"trajectory_id"`
	MotionGroup  string    `json:"motion_group"`
	State        string    `json:"state"`
}

func (s *Server) listTrajectories(c *gin.Context) {
	motionGroup := c.Query("motion_group")

	trajectories, err := s.lm.Storage().ListTrajectories(c.Request.Context(), motionGroup)
	if err != nil {
		s.logger.Error("Failed to list trajectories", zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("TRAJ_500", "Failed to list trajectories", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"trajectories": trajectories})
}

func (s *Server) getTrajectory(c *gin.Context) {
	trajectoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("TRAJ_400", "Invalid trajectory ID", err.Error()))
		return
	}

	tr, err := s.lm.Storage().LoadTrajectory(c.Request.Context(), trajectoryID)
	if err != nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("TRAJ_404", "Trajectory not found", nil))
		return
	}

	c.JSON(http.StatusOK, tr)
}

// createTrajectory validates the posted definition against the schema before
// persisting it.
func (s *Server) createTrajectory(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("TRAJ_400", "Failed to read request body", err.Error()))
		return
	}

	if err := s.validator.Validate(body); err != nil {
		c.JSON(http.StatusUnprocessableEntity, types.NewErrorResponse("TRAJ_422", "Trajectory definition invalid", err.Error()))
		return
	}

	tr, err := trajectory.Parse(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("TRAJ_400", "Failed to parse trajectory", err.Error()))
		return
	}

	now := time.Now()
	record := &storage.Trajectory{
		ID:          uuid.New(),
		Name:        tr.Name,
		MotionGroup: tr.MotionGroup,
		Definition:  body,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.lm.Storage().SaveTrajectory(c.Request.Context(), record); err != nil {
		s.logger.Error("Failed to save trajectory", zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("TRAJ_500", "Failed to save trajectory", err.Error()))
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (s *Server) updateTrajectory(c *gin.Context) {
	trajectoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("TRAJ_400", "Invalid trajectory ID", err.Error()))
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("TRAJ_400", "Failed to read request body", err.Error()))
		return
	}

	if err := s.validator.Validate(body); err != nil {
		c.JSON(http.StatusUnprocessableEntity, types.NewErrorResponse("TRAJ_422", "Trajectory definition invalid", err.Error()))
		return
	}

	tr, err := trajectory.Parse(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("TRAJ_400", "Failed to parse trajectory", err.Error()))
		return
	}

	record := &storage.Trajectory{
		ID:          trajectoryID,
		Name:        tr.Name,
		MotionGroup: tr.MotionGroup,
		Definition:  body,
		Active:      true,
		UpdatedAt:   time.Now(),
	}

	if err := s.lm.Storage().UpdateTrajectory(c.Request.Context(), record); err != nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("TRAJ_404", "Trajectory not found", err.Error()))
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) deleteTrajectory(c *gin.Context) {
	trajectoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("TRAJ_400", "Invalid trajectory ID", err.Error()))
		return
	}

	if err := s.lm.Storage().DeleteTrajectory(c.Request.Context(), trajectoryID); err != nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("TRAJ_404", "Trajectory not found", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "trajectory deleted"})
}

type ImportTrajectoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// importTrajectory loads a trajectory file from the configured search paths
// and persists it. Used to seed the database from version-controlled
// trajectory definitions.
func (s *Server) importTrajectory(c *gin.Context) {
	var req ImportTrajectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("TRAJ_400", "Invalid request body", err.Error()))
		return
	}

	tr, err := s.lm.Loader().Load(req.Name)
	if err != nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("TRAJ_404", "Failed to load trajectory file", err.Error()))
		return
	}

	definition, err := tr.ToJSON()
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("TRAJ_500", "Failed to serialize trajectory", err.Error()))
		return
	}

	now := time.Now()
	record := &storage.Trajectory{
		ID:          uuid.New(),
		Name:        tr.Name,
		MotionGroup: tr.MotionGroup,
		Definition:  definition,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.lm.Storage().SaveTrajectory(c.Request.Context(), record); err != nil {
		s.logger.Error("Failed to save trajectory", zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("TRAJ_500", "Failed to save trajectory", err.Error()))
		return
	}

	c.JSON(http.StatusCreated, record)
}

// validateTrajectory checks a definition against the schema without saving it
func (s *Server) validateTrajectory(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("TRAJ_400", "Failed to read request body", err.Error()))
		return
	}

	if err := s.validator.Validate(body); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// executeTrajectory starts executing a stored trajectory on its motion group
func (s *Server) executeTrajectory(c *gin.Context) {
	trajectoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("TRAJ_400", "Invalid trajectory ID", err.Error()))
		return
	}

	record, err := s.lm.Storage().LoadTrajectory(c.Request.Context(), trajectoryID)
	if err != nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("TRAJ_404", "Trajectory not found", nil))
		return
	}

	var tr trajectory.Trajectory
	if err := json.Unmarshal(record.Definition, &tr); err != nil {
		s.logger.Error("Stored trajectory definition corrupt",
			zap.String("trajectory_id", trajectoryID.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("TRAJ_500", "Stored trajectory definition corrupt", err.Error()))
		return
	}

	controller, ok := s.lm.Controller(record.MotionGroup)
	if !ok {
		c.JSON(http.StatusConflict, types.NewErrorResponse("MOTION_409", "No controller for motion group", record.MotionGroup))
		return
	}

	execID, err := controller.StartTrajectory(c.Request.Context(), &tr, trajectoryID)
	if err != nil {
		c.JSON(http.StatusConflict, types.NewErrorResponse("MOTION_409", "Failed to start execution", err.Error()))
		return
	}

	c.JSON(http.StatusAccepted, ExecuteTrajectoryResponse{
		ExecutionID:  execID,
		TrajectoryID: trajectoryID,
		MotionGroup:  record.MotionGroup,
		State:        string(controller.Status().State),
	})
}
