package iface

import "gocv.io/x/gocv"

// Backend is a model runtime. Detect returns RetData whose Data is
// map[string][]Result keyed by class name on success, or a string describing the
// failure.
type Backend interface {
	New() bool
	LoadModel(modelPath string, names NamesConf, conf float32, iou float32, useGPU bool) (bool, error)
	Detect(image gocv.Mat) RetData
	Destroy()
	CheckConfig() EngineConfig
	SetInputSize(size int)
}
