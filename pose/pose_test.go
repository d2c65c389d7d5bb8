package pose

import (
	"errors"
	"testing"

	"VisionFusion/config"
	"VisionFusion/geometry"
	iface "VisionFusion/interface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type MockBackend struct {
	loadErr   error
	ret       iface.RetData
	panics    bool
	destroyed bool
}

func (m *MockBackend) New() bool { return true }
func (m *MockBackend) LoadModel(modelPath string, names iface.NamesConf, conf float32, iou float32, useGPU bool) (bool, error) {
	return m.loadErr == nil, m.loadErr
}
func (m *MockBackend) Detect(mat gocv.Mat) iface.RetData {
	if m.panics {
		panic("inference crashed")
	}
	return m.ret
}
func (m *MockBackend) Destroy()                        { m.destroyed = true }
func (m *MockBackend) CheckConfig() iface.EngineConfig { return iface.EngineConfig{InputSize: 32} }
func (m *MockBackend) SetInputSize(size int)           {}

func person(conf float32, wristY int) iface.Result {
	kps := make(geometry.PersonPose, geometry.NumJoints)
	kps[geometry.LeftWrist] = geometry.Keypoint{X: 10, Y: wristY, Confidence: 0.9}
	return iface.Result{Conf: conf, Box: iface.NewBox(0, 0, 10, 10), Keypoints: kps}
}

func modelCfg() config.ModelConfig {
	cfg := config.Default().Pose
	cfg.ModelPath = "pose.onnx"
	return cfg
}

func TestLoad(t *testing.T) {
	t.Run("Available", func(t *testing.T) {
		m := &MockBackend{ret: iface.RetData{Success: true, Data: map[string][]iface.Result{"person": {}}}}
		a := Load(m, modelCfg())
		assert.True(t, a.Available())
		assert.NoError(t, a.Err())
		a.Close()
		assert.True(t, m.destroyed)
	})

	t.Run("Missing weights", func(t *testing.T) {
		missing := errors.New("stat pose.onnx: no such file")
		a := Load(&MockBackend{loadErr: missing}, modelCfg())
		assert.False(t, a.Available())
		assert.ErrorIs(t, a.Err(), missing)
	})

	t.Run("Warm-up panic is captured", func(t *testing.T) {
		var a *Adapter
		assert.NotPanics(t, func() { a = Load(&MockBackend{panics: true}, modelCfg()) })
		assert.False(t, a.Available())
	})

	t.Run("Disabled", func(t *testing.T) {
		cfg := modelCfg()
		cfg.Enabled = false
		a := Load(&MockBackend{}, cfg)
		assert.ErrorIs(t, a.Err(), ErrDisabled)
	})

	t.Run("Nil adapter", func(t *testing.T) {
		var a *Adapter
		assert.False(t, a.Available())
		assert.ErrorIs(t, a.Err(), ErrDisabled)
	})
}

func TestInfer(t *testing.T) {
	m := &MockBackend{ret: iface.RetData{Success: true, Data: map[string][]iface.Result{"person": {}}}}
	a := Load(m, modelCfg())
	require.True(t, a.Available())

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	m.ret = iface.RetData{Success: true, Data: map[string][]iface.Result{
		"person": {person(0.6, 40), person(0.9, 20), {Conf: 0.95}},
	}}
	poses, err := a.Infer(frame)
	require.NoError(t, err)
	require.Len(t, poses, 2)
	assert.Equal(t, 20, poses[0][geometry.LeftWrist].Y)
	assert.Equal(t, 40, poses[1][geometry.LeftWrist].Y)

	m.ret = iface.RetData{Success: false, Data: "Detector is busy"}
	_, err = a.Infer(frame)
	assert.Error(t, err)

	m.panics = true
	assert.NotPanics(t, func() { _, err = a.Infer(frame) })
	assert.Error(t, err)
}
