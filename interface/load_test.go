package iface

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type MockBackend struct {
	newOK     bool
	loadErr   error
	panicOn   string
	ret       RetData
	inputSize int
	detects   int
}

func (m *MockBackend) New() bool {
	if m.panicOn == "new" {
		panic("boom")
	}
	return m.newOK
}
func (m *MockBackend) LoadModel(modelPath string, names NamesConf, conf float32, iou float32, useGPU bool) (bool, error) {
	return m.loadErr == nil, m.loadErr
}
func (m *MockBackend) Detect(image gocv.Mat) RetData {
	m.detects++
	if m.panicOn == "detect" {
		panic("boom")
	}
	return m.ret
}
func (m *MockBackend) Destroy() {}
func (m *MockBackend) CheckConfig() EngineConfig {
	return EngineConfig{InputSize: m.inputSize}
}
func (m *MockBackend) SetInputSize(size int) { m.inputSize = size }

func okData() RetData {
	return RetData{Success: true, Data: map[string][]Result{"person": {}}}
}

func TestPrepare(t *testing.T) {
	cfg := EngineConfig{ModelPath: "m.onnx", InputSize: 32}

	t.Run("Success warms up once", func(t *testing.T) {
		m := &MockBackend{newOK: true, ret: okData()}
		require.NoError(t, Prepare(m, cfg))
		assert.Equal(t, 1, m.detects)
		assert.Equal(t, 32, m.inputSize)
	})

	t.Run("Nil backend", func(t *testing.T) {
		assert.ErrorIs(t, Prepare(nil, cfg), ErrNoBackend)
	})

	t.Run("Registration failure", func(t *testing.T) {
		assert.Error(t, Prepare(&MockBackend{}, cfg))
	})

	t.Run("Load error is wrapped", func(t *testing.T) {
		missing := errors.New("missing weights")
		err := Prepare(&MockBackend{newOK: true, loadErr: missing}, cfg)
		assert.ErrorIs(t, err, missing)
	})

	t.Run("Warm-up failure", func(t *testing.T) {
		m := &MockBackend{newOK: true, ret: RetData{Success: false, Data: "Model not loaded"}}
		err := Prepare(m, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Model not loaded")
	})

	t.Run("Panics are recovered", func(t *testing.T) {
		assert.Error(t, Prepare(&MockBackend{panicOn: "new"}, cfg))
		assert.Error(t, Prepare(&MockBackend{newOK: true, panicOn: "detect"}, cfg))
	})
}

func TestResults(t *testing.T) {
	got, err := Results(okData())
	require.NoError(t, err)
	assert.Contains(t, got, "person")

	_, err = Results(RetData{Success: false, Data: map[string][]Result{}})
	assert.Error(t, err)
	_, err = Results(RetData{Data: "Detector is busy"})
	assert.EqualError(t, err, "detector: Detector is busy")
	_, err = Results(RetData{})
	assert.Error(t, err)
	_, err = Results(RetData{Success: true, Data: 3})
	assert.Error(t, err)
}

func TestBox(t *testing.T) {
	b := NewBox(1.6, 2, 10, 20.9)
	assert.Equal(t, Position{X: 10, Y: 2}, b.RT)
	assert.Equal(t, Position{X: 1.6, Y: 20.9}, b.LB)
	r := b.Rect()
	assert.Equal(t, 1, r.Min.X)
	assert.Equal(t, 20, r.Max.Y)
}
