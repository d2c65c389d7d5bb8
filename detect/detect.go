package detect

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"VisionFusion/config"
	"VisionFusion/engine"
	iface "VisionFusion/interface"
	"VisionFusion/logger"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

var ErrDisabled = errors.New("object detection disabled")

// Box is one detected object in frame pixel coordinates.
type Box struct {
	Rect       image.Rectangle `json:"rect"`
	Label      string          `json:"label"`
	ClassID    int             `json:"classId"`
	Confidence float32         `json:"confidence"`
}

type Adapter struct {
	backend iface.Backend
	err     error
}

// Load prepares backend with cfg. It never panics; on failure the returned adapter
// reports Available() == false and Err() holds the cause.
func Load(backend iface.Backend, cfg config.ModelConfig) *Adapter {
	a := &Adapter{backend: backend}
	if !cfg.Enabled {
		a.err = ErrDisabled
		return a
	}
	if err := iface.Prepare(backend, cfg.Engine(engine.TaskDetect)); err != nil {
		a.err = fmt.Errorf("detection model: %w", err)
		logger.Log().Warn("detection model unavailable", zap.String("model", cfg.ModelPath), zap.Error(err))
		return a
	}
	logger.Log().Info("detection model loaded", zap.String("model", cfg.ModelPath))
	return a
}

func (a *Adapter) Available() bool {
	return a != nil && a.err == nil
}

func (a *Adapter) Err() error {
	if a == nil {
		return ErrDisabled
	}
	return a.err
}

// Infer returns every box the model kept after suppression, highest confidence first.
func (a *Adapter) Infer(frame gocv.Mat) (boxes []Box, err error) {
	if !a.Available() {
		return nil, a.Err()
	}
	defer func() {
		if r := recover(); r != nil {
			boxes, err = nil, fmt.Errorf("detection inference panic: %v", r)
		}
	}()
	results, err := iface.Results(a.backend.Detect(frame))
	if err != nil {
		return nil, fmt.Errorf("detection inference: %w", err)
	}
	for label, rs := range results {
		for _, r := range rs {
			boxes = append(boxes, Box{
				Rect:       r.Box.Rect(),
				Label:      label,
				ClassID:    r.ClassID,
				Confidence: r.Conf,
			})
		}
	}
	sort.Slice(boxes, func(i, j int) bool {
		if boxes[i].Confidence != boxes[j].Confidence {
			return boxes[i].Confidence > boxes[j].Confidence
		}
		return boxes[i].Label < boxes[j].Label
	})
	return boxes, nil
}

func (a *Adapter) Close() {
	if a != nil && a.backend != nil {
		a.backend.Destroy()
	}
}
