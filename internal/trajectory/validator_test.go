package trajectory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validTrajectoryJSON = `{
	"name": "pick-part",
	"version": "1.0",
	"motion_group": "arm-left",
	"waypoints": [
		{
			"pose": {
				"position": {"x": 100, "y": 0, "z": 250},
				"orientation": {"w": 1, "x": 0, "y": 0, "z": 0}
			},
			"motion": "linear",
			"velocity": 0.25
		},
		{"joints": [0, -1.57, 1.2, 0, 0.4, 0]}
	],
	"settings": {"velocity_limit": 0.5, "settle_timeout": "2s"}
}`

func TestValidatorAcceptsWellFormedTrajectory(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	assert.NoError(t, v.Validate([]byte(validTrajectoryJSON)))
}

func TestValidatorRejections(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"name": `},
		{"missing motion group", `{"name": "t", "version": "1", "waypoints": [{"joints": [0]}]}`},
		{"empty waypoints", `{"name": "t", "version": "1", "motion_group": "g", "waypoints": []}`},
		{"waypoint without target", `{"name": "t", "version": "1", "motion_group": "g", "waypoints": [{"motion": "linear"}]}`},
		{"unknown motion type", `{"name": "t", "version": "1", "motion_group": "g", "waypoints": [{"joints": [0], "motion": "spline"}]}`},
		{"negative velocity", `{"name": "t", "version": "1", "motion_group": "g", "waypoints": [{"joints": [0], "velocity": -1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, v.Validate([]byte(tt.doc)))
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tr, err := Parse([]byte(validTrajectoryJSON))
	require.NoError(t, err)

	assert.Equal(t, "pick-part", tr.Name)
	assert.Equal(t, "arm-left", tr.MotionGroup)
	require.Len(t, tr.Waypoints, 2)
	require.NotNil(t, tr.Waypoints[0].Pose)
	assert.Equal(t, 250.0, tr.Waypoints[0].Pose.Position.Z)
	assert.Equal(t, MotionLinear, tr.Waypoints[0].Motion)
	assert.Len(t, tr.Waypoints[1].Joints, 6)
	require.NotNil(t, tr.Settings)
	assert.Equal(t, "2s", tr.Settings.SettleTimeout.String())

	v, err := NewValidator()
	require.NoError(t, err)
	assert.NoError(t, v.ValidateTrajectory(tr))
}

func TestLoaderResolvesJSONAndYAML(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "pick.json"), []byte(validTrajectoryJSON), 0o644))

	yamlDoc := `
name: place-part
version: "1.0"
motion_group: arm-right
waypoints:
  - joints: [0, -0.5, 1.0]
    motion: joint
settings:
  settle_timeout: 500ms
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "place.yaml"), []byte(yamlDoc), 0o644))

	l, err := NewLoader([]string{dir})
	require.NoError(t, err)

	pick, err := l.Load("pick")
	require.NoError(t, err)
	assert.Equal(t, "pick-part", pick.Name)

	place, err := l.Load("place")
	require.NoError(t, err)
	assert.Equal(t, "place-part", place.Name)
	assert.Equal(t, MotionJoint, place.Waypoints[0].Motion)

	_, err = l.Load("missing")
	assert.Error(t, err)
}

func TestLoaderRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()

	// Valid YAML, invalid trajectory: no waypoints.
	doc := "name: broken\nversion: \"1\"\nmotion_group: g\nwaypoints: []\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(doc), 0o644))

	l, err := NewLoader([]string{dir})
	require.NoError(t, err)

	_, err = l.Load("broken")
	assert.Error(t, err)
}
