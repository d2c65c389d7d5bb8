package iface

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

var ErrNoBackend = errors.New("no backend")

// Prepare registers b, loads the configured model and runs one warm-up inference on a
// blank frame. Panics raised by the backend are returned as errors.
func Prepare(b Backend, cfg EngineConfig) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	if b == nil {
		return ErrNoBackend
	}
	if !b.New() {
		return fmt.Errorf("register backend for %s failed", cfg.ModelPath)
	}
	if cfg.InputSize > 0 {
		b.SetInputSize(cfg.InputSize)
	}
	ok, err := b.LoadModel(cfg.ModelPath, cfg.Names, cfg.Conf, cfg.Iou, cfg.UseGPU)
	if err != nil {
		return fmt.Errorf("load %s: %w", cfg.ModelPath, err)
	}
	if !ok {
		return fmt.Errorf("load %s failed", cfg.ModelPath)
	}

	size := b.CheckConfig().InputSize
	if size <= 0 {
		size = 64
	}
	warm := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8UC3)
	defer warm.Close()
	if _, err := Results(b.Detect(warm)); err != nil {
		return fmt.Errorf("warm-up inference: %w", err)
	}
	return nil
}

// Results unpacks the Data of a RetData returned by Backend.Detect.
func Results(ret RetData) (map[string][]Result, error) {
	switch v := ret.Data.(type) {
	case map[string][]Result:
		if !ret.Success {
			return nil, errors.New("detector reported failure")
		}
		return v, nil
	case string:
		return nil, fmt.Errorf("detector: %s", v)
	case nil:
		return nil, errors.New("detector returned nil result")
	default:
		return nil, fmt.Errorf("detector returned unsupported result type %T", v)
	}
}
