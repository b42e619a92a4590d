package system

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/motionforge/motioncore/internal/api/rest"
	"github.com/motionforge/motioncore/internal/api/websocket"
	"github.com/motionforge/motioncore/internal/auth"
	"github.com/motionforge/motioncore/internal/config"
	"github.com/motionforge/motioncore/internal/feedback"
	"github.com/motionforge/motioncore/internal/interfaces"
	"github.com/motionforge/motioncore/internal/motion"
	"github.com/motionforge/motioncore/internal/storage"
	"github.com/motionforge/motioncore/internal/trajectory"
)

// motionGroup bundles the per-group controller with its feedback plumbing.
type motionGroup struct {
	name       string
	client     *feedback.Client
	controller *motion.Controller
}

type LifecycleManager struct {
	config      *config.Config
	storage     *storage.PostgresClient
	loader      *trajectory.Loader
	authService *auth.Service
	wsHub       *websocket.Hub
	logger      *zap.Logger

	restServer *rest.Server

	groupsMu sync.RWMutex
	groups   map[string]*motionGroup

	stateMu      sync.RWMutex
	currentState SystemState
	lastError    string

	runCtx    context.Context
	runCancel context.CancelFunc
	runWG     sync.WaitGroup

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

func NewLifecycleManager(
	store *storage.PostgresClient,
	cfg *config.Config,
	logger *zap.Logger,
) (*LifecycleManager, error) {
	loader, err := trajectory.NewLoader(cfg.Trajectories.SearchPaths)
	if err != nil {
		return nil, fmt.Errorf("failed to create trajectory loader: %w", err)
	}

	authService := auth.NewService(store, cfg.Auth)
	wsHub := websocket.NewHub(logger, authService)

	runCtx, runCancel := context.WithCancel(context.Background())

	return &LifecycleManager{
		config:       cfg,
		storage:      store,
		loader:       loader,
		authService:  authService,
		wsHub:        wsHub,
		logger:       logger,
		groups:       make(map[string]*motionGroup),
		currentState: StateInitializing,
		runCtx:       runCtx,
		runCancel:    runCancel,
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start brings up the websocket hub, connects the motion groups and starts
// the REST API.
func (lm *LifecycleManager) Start() error {
	lm.logger.Info("Starting motioncore")

	lm.setState(StateInitializing)

	go lm.wsHub.Run()

	if err := lm.connectMotionGroups(); err != nil {
		lm.setError(err)
		return err
	}

	if err := lm.startRESTServer(); err != nil {
		lm.setError(fmt.Errorf("failed to start REST API: %w", err))
		return err
	}

	lm.setState(StateRunning)

	lm.logger.Info("System started successfully",
		zap.Int("http_port", lm.config.Server.HTTPPort),
		zap.Int("motion_groups", len(lm.groups)))

	return nil
}

// connectMotionGroups dials the feedback port of every configured motion
// group and starts its controller. A group that cannot be reached is skipped
// with a warning; the remaining groups stay operational.
func (lm *LifecycleManager) connectMotionGroups() error {
	dialTimeout := lm.config.Controller.DialTimeout

	for _, groupCfg := range lm.config.Controller.Groups {
		client := feedback.NewClient(groupCfg.FeedbackAddress, dialTimeout)
		if err := client.Connect(); err != nil {
			lm.logger.Warn("Motion group unreachable, skipping",
				zap.String("motion_group", groupCfg.Name),
				zap.String("address", groupCfg.FeedbackAddress),
				zap.Error(err))
			continue
		}

		stream := feedback.NewStream(client, lm.logger)
		link := feedback.NewLink(client)
		controller := motion.NewController(
			lm.logger, lm.storage, lm.wsHub, link, stream, groupCfg.Name)

		lm.groupsMu.Lock()
		lm.groups[groupCfg.Name] = &motionGroup{
			name:       groupCfg.Name,
			client:     client,
			controller: controller,
		}
		lm.groupsMu.Unlock()

		lm.runWG.Add(1)
		go func() {
			defer lm.runWG.Done()
			controller.Run(lm.runCtx)
		}()

		lm.logger.Info("Motion group connected",
			zap.String("motion_group", groupCfg.Name),
			zap.String("address", groupCfg.FeedbackAddress))
	}

	if len(lm.config.Controller.Groups) > 0 && len(lm.groups) == 0 {
		return fmt.Errorf("no motion group reachable")
	}

	return nil
}

func (lm *LifecycleManager) startRESTServer() error {
	server, err := rest.NewServer(lm.config, lm, lm.logger, lm.wsHub, lm.authService)
	if err != nil {
		return err
	}
	lm.restServer = server
	return lm.restServer.Start()
}

// Shutdown gracefully shuts down the system
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")

		lm.setState(StateStopping)

		shutdownErr = lm.gracefulShutdown(ctx)

		lm.setState(StateStopped)

		close(lm.shutdownChan)
	})

	return shutdownErr
}

func (lm *LifecycleManager) gracefulShutdown(ctx context.Context) error {
	// Stop the motion controllers first so no new transitions are produced
	// while the API drains.
	lm.runCancel()

	lm.groupsMu.RLock()
	for _, group := range lm.groups {
		if err := group.client.Close(); err != nil {
			lm.logger.Warn("Failed to close feedback connection",
				zap.String("motion_group", group.name),
				zap.Error(err))
		}
	}
	lm.groupsMu.RUnlock()

	done := make(chan struct{})
	go func() {
		lm.runWG.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		lm.logger.Warn("Controllers did not stop in time")
	}

	if lm.restServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := lm.restServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("rest api shutdown failed: %w", err)
		}
	}

	lm.logger.Info("Graceful shutdown completed")
	return nil
}

// Done is closed once shutdown has completed.
func (lm *LifecycleManager) Done() <-chan struct{} {
	return lm.shutdownChan
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	if err := ValidateTransition(lm.currentState, state); err != nil && lm.currentState != state {
		lm.logger.Warn("Irregular system state transition", zap.Error(err))
	}
	lm.currentState = state
	status := lm.statusLocked()
	lm.stateMu.Unlock()

	lm.wsHub.Broadcast(websocket.NewMessage(websocket.MessageTypeSystemStatus, status))
}

func (lm *LifecycleManager) setError(err error) {
	lm.stateMu.Lock()
	lm.currentState = StateError
	lm.lastError = err.Error()
	status := lm.statusLocked()
	lm.stateMu.Unlock()

	lm.wsHub.Broadcast(websocket.NewMessage(websocket.MessageTypeSystemStatus, status))
}

func (lm *LifecycleManager) statusLocked() SystemStatus {
	return SystemStatus{
		State:     lm.currentState.String(),
		Timestamp: time.Now().Unix(),
		Error:     lm.lastError,
	}
}

// GetCurrentStatus returns current system status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	lm.stateMu.RLock()
	state := lm.currentState.String()
	lm.stateMu.RUnlock()

	lm.groupsMu.RLock()
	defer lm.groupsMu.RUnlock()

	active := 0
	for _, group := range lm.groups {
		if !group.controller.Status().State.Settled() {
			active++
		}
	}

	return interfaces.SystemStatus{
		State:            state,
		MotionGroups:     len(lm.groups),
		ActiveExecutions: active,
	}
}

// Controller returns the motion controller for the given group
func (lm *LifecycleManager) Controller(name string) (*motion.Controller, bool) {
	lm.groupsMu.RLock()
	defer lm.groupsMu.RUnlock()

	group, ok := lm.groups[name]
	if !ok {
		return nil, false
	}
	return group.controller, true
}

// MotionGroups returns the names of all connected motion groups
func (lm *LifecycleManager) MotionGroups() []string {
	lm.groupsMu.RLock()
	defer lm.groupsMu.RUnlock()

	names := make([]string, 0, len(lm.groups))
	for name := range lm.groups {
		names = append(names, name)
	}
	return names
}

// Storage returns the storage client
func (lm *LifecycleManager) Storage() *storage.PostgresClient {
	return lm.storage
}

// Config returns the configuration
func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}

// Loader returns the filesystem trajectory loader
func (lm *LifecycleManager) Loader() *trajectory.Loader {
	return lm.loader
}
