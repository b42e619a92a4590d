package trajectory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/motionforge/motioncore/internal/types"
)

// Trajectory is a planned sequence of motion commands for one motion group,
// executed as a single logical unit by the motion controller.
type Trajectory struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string            `json:"version" yaml:"version"`
	MotionGroup string            `json:"motion_group" yaml:"motion_group"`
	Waypoints   []Waypoint        `json:"waypoints" yaml:"waypoints"`
	Settings    *MotionSettings   `json:"settings,omitempty" yaml:"settings,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Waypoint is one target along a trajectory. Either a Cartesian pose or a
// joint configuration must be given; both is legal for controllers that
// prefer joint-space execution with a pose hint.
type Waypoint struct {
	Name     string       `json:"name,omitempty" yaml:"name,omitempty"`
	Pose     *types.Pose  `json:"pose,omitempty" yaml:"pose,omitempty"`
	Joints   types.Joints `json:"joints,omitempty" yaml:"joints,omitempty"`
	Motion   MotionType   `json:"motion,omitempty" yaml:"motion,omitempty"`
	Blending float64      `json:"blending,omitempty" yaml:"blending,omitempty"`
	Velocity float64      `json:"velocity,omitempty" yaml:"velocity,omitempty"`
}

type MotionSettings struct {
	VelocityLimit     float64  `json:"velocity_limit,omitempty" yaml:"velocity_limit,omitempty"`
	AccelerationLimit float64  `json:"acceleration_limit,omitempty" yaml:"acceleration_limit,omitempty"`
	SettleTimeout     Duration `json:"settle_timeout,omitempty" yaml:"settle_timeout,omitempty"`
}

type MotionType string

const (
	MotionLinear   MotionType = "linear"
	MotionJoint    MotionType = "joint"
	MotionCircular MotionType = "circular"
)

// Duration is a wrapper around time.Duration that supports JSON string parsing
type Duration struct {
	time.Duration
}

// UnmarshalJSON parses duration from string like "2s", "100ms", etc.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
		return nil
	default:
		return fmt.Errorf("invalid duration type: %T", value)
	}
}

// MarshalJSON serializes duration as string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalYAML parses the same string form from YAML trajectory files.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	var err error
	d.Duration, err = time.ParseDuration(s)
	return err
}

func Parse(data []byte) (*Trajectory, error) {
	var tr Trajectory
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

func (tr *Trajectory) ToJSON() ([]byte, error) {
	return json.Marshal(tr)
}
