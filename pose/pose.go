package pose

import (
	"errors"
	"fmt"
	"sort"

	"VisionFusion/config"
	"VisionFusion/engine"
	"VisionFusion/geometry"
	iface "VisionFusion/interface"
	"VisionFusion/logger"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

var ErrDisabled = errors.New("pose estimation disabled")

// Adapter runs a keypoint model and hands back one PersonPose per detected person.
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
	if err := iface.Prepare(backend, cfg.Engine(engine.TaskPose)); err != nil {
		a.err = fmt.Errorf("pose model: %w", err)
		logger.Log().Error("pose model unavailable", zap.String("model", cfg.ModelPath), zap.Error(err))
		return a
	}
	logger.Log().Info("pose model loaded", zap.String("model", cfg.ModelPath))
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

// Infer returns the keypoints of every person found in frame, highest confidence first.
func (a *Adapter) Infer(frame gocv.Mat) (poses []geometry.PersonPose, err error) {
	if !a.Available() {
		return nil, a.Err()
	}
	defer func() {
		if r := recover(); r != nil {
			poses, err = nil, fmt.Errorf("pose inference panic: %v", r)
		}
	}()
	results, err := iface.Results(a.backend.Detect(frame))
	if err != nil {
		return nil, fmt.Errorf("pose inference: %w", err)
	}
	var all []iface.Result
	for _, rs := range results {
		all = append(all, rs...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Conf > all[j].Conf })
	for _, r := range all {
		if r.Keypoints == nil {
			continue
		}
		poses = append(poses, r.Keypoints)
	}
	return poses, nil
}

func (a *Adapter) Close() {
	if a != nil && a.backend != nil {
		a.backend.Destroy()
	}
}
