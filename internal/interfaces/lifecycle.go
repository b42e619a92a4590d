package interfaces

import (
	"context"

	"github.com/motionforge/motioncore/internal/config"
	"github.com/motionforge/motioncore/internal/motion"
	"github.com/motionforge/motioncore/internal/storage"
	"github.com/motionforge/motioncore/internal/trajectory"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State            string `json:"state"`
	MotionGroups     int    `json:"motion_groups"`
	ActiveExecutions int    `json:"active_executions"`
}

type LifecycleManager interface {
	Config() *config.Config
	Storage() *storage.PostgresClient
	Loader() *trajectory.Loader
	Controller(motionGroup string) (*motion.Controller, bool)
	MotionGroups() []string
	GetCurrentStatus() SystemStatus
	Shutdown(ctx context.Context) error
}
