package websocket

import "time"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Execution lifecycle messages
	MessageTypeExecutionState MessageType = "execution_state"
	MessageTypeMotionProgress MessageType = "motion_progress"
	MessageTypeStandstill     MessageType = "standstill"

	// System messages
	MessageTypeSystemStatus MessageType = "system_status"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ExecutionStateData reports an execution state transition
type ExecutionStateData struct {
	ExecutionID string `json:"execution_id"`
	MotionGroup string `json:"motion_group"`
	State       string `json:"state"`
	Previous    string `json:"previous_state,omitempty"`
	Cause       string `json:"cause,omitempty"`
}

// MotionProgressData reports a cursor update while a trajectory is running
type MotionProgressData struct {
	ExecutionID string      `json:"execution_id"`
	MotionGroup string      `json:"motion_group"`
	Location    interface{} `json:"location,omitempty"`
}

// StandstillData reports that the motion group came to rest
type StandstillData struct {
	ExecutionID string `json:"execution_id"`
	MotionGroup string `json:"motion_group"`
	State       string `json:"state"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewExecutionStateMessage(executionID, motionGroup, state, previous, cause string) Message {
	return NewMessage(MessageTypeExecutionState, ExecutionStateData{
		ExecutionID: executionID,
		MotionGroup: motionGroup,
		State:       state,
		Previous:    previous,
		Cause:       cause,
	})
}

func NewMotionProgressMessage(executionID, motionGroup string, location interface{}) Message {
	return NewMessage(MessageTypeMotionProgress, MotionProgressData{
		ExecutionID: executionID,
		MotionGroup: motionGroup,
		Location:    location,
	})
}

func NewStandstillMessage(executionID, motionGroup, state string) Message {
	return NewMessage(MessageTypeStandstill, StandstillData{
		ExecutionID: executionID,
		MotionGroup: motionGroup,
		State:       state,
	})
}
