package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 10, cfg.Geometry.ArmGap)
	assert.Equal(t, float32(90), cfg.Face.Threshold)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
capture:
  source: rtsp://cam/stream
  headless: true
pose:
  modelPath: /models/pose.onnx
  useGPU: true
detect:
  enabled: false
geometry:
  armGap: 25
  standingRatio: 0.6
mqtt:
  enabled: true
  topic: lab
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rtsp://cam/stream", cfg.Capture.Source)
	assert.True(t, cfg.Capture.Headless)
	assert.Equal(t, "/models/pose.onnx", cfg.Pose.ModelPath)
	assert.True(t, cfg.Pose.UseGPU)
	assert.Equal(t, float32(0.25), cfg.Pose.Conf)
	assert.False(t, cfg.Detect.Enabled)
	assert.Equal(t, 25, cfg.Geometry.ArmGap)
	assert.Equal(t, 0.6, cfg.Geometry.StandingRatio)
	assert.Equal(t, float32(0.7), cfg.Geometry.ArmConfidence)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "lab", cfg.MQTT.Topic)
	assert.Equal(t, 1000, cfg.MQTT.MinIntervalMs)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "pose: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("Rejects out of range confidences", func(t *testing.T) {
		cfg := Default()
		cfg.Pose.Conf = 1.2
		cfg.Geometry.ArmConfidence = -0.1
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pose.conf")
		assert.Contains(t, err.Error(), "geometry.armConfidence")
	})

	t.Run("Rejects bad geometry", func(t *testing.T) {
		cfg := Default()
		cfg.Geometry.ArmGap = -1
		cfg.Geometry.StandingRatio = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("Falls back on non-positive sizes", func(t *testing.T) {
		cfg := Default()
		cfg.Pose.InputSize = 0
		cfg.Face.FaceSize = -3
		cfg.Registry.IntervalSeconds = 0
		require.NoError(t, cfg.Validate())
		assert.Equal(t, 640, cfg.Pose.InputSize)
		assert.Equal(t, 200, cfg.Face.FaceSize)
		assert.Equal(t, 5, cfg.Registry.IntervalSeconds)
	})
}

func TestModelConfigEngine(t *testing.T) {
	m := Default().Detect
	m.Names = []string{"cup"}
	ec := m.Engine("detect")
	assert.Equal(t, "detect", ec.Task)
	assert.False(t, ec.Names.IsFile)
	assert.Equal(t, []string{"cup"}, ec.Names.Data)
	assert.Equal(t, 640, ec.InputSize)

	m.NamesFile = "coco.names"
	ec = m.Engine("detect")
	assert.True(t, ec.Names.IsFile)
	assert.Equal(t, "coco.names", ec.Names.Data)
}
