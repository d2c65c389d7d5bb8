package main

import (
	"path/filepath"
	"testing"

	"VisionFusion/config"
	"VisionFusion/face"

	"github.com/stretchr/testify/assert"
)

func TestStageFactory_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Pose.ModelPath = filepath.Join(dir, "pose.onnx")
	cfg.Detect.ModelPath = filepath.Join(dir, "detect.onnx")
	cfg.Face.CascadePath = filepath.Join(dir, "cascade.xml")

	var f stageFactory
	p := f.LoadPose(cfg.Pose)
	assert.False(t, p.Available())
	assert.Error(t, p.Err())

	d := f.LoadDetect(cfg.Detect)
	assert.False(t, d.Available())

	_, err := f.LoadFace(cfg.Face)
	assert.ErrorIs(t, err, face.ErrNoCascade)
}
