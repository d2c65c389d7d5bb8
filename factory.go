package main

import (
	"VisionFusion/config"
	"VisionFusion/detect"
	"VisionFusion/engine"
	"VisionFusion/face"
	"VisionFusion/logger"
	"VisionFusion/pipeline"
	"VisionFusion/pose"

	"go.uber.org/zap"
)

// stageFactory backs the pose and detection stages with OpenCV DNN detectors and
// the face stage with a Haar cascade plus an LBPH gallery.
type stageFactory struct{}

func (stageFactory) LoadPose(cfg config.ModelConfig) pipeline.PoseStage {
	return pose.Load(&engine.Detector{Task: engine.TaskPose}, cfg)
}

func (stageFactory) LoadDetect(cfg config.ModelConfig) pipeline.DetectStage {
	return detect.Load(&engine.Detector{Task: engine.TaskDetect}, cfg)
}

func (stageFactory) LoadFace(cfg config.FaceConfig) (pipeline.FaceStage, error) {
	locator, err := face.NewCascadeLocator(cfg.CascadePath, cfg.ScaleFactor, cfg.MinNeighbors, cfg.MinSize)
	if err != nil {
		return nil, err
	}
	gallery, err := face.BuildGallery(cfg.GalleryDir, cfg.FaceSize, face.NewLBPH)
	if err != nil {
		logger.Log().Warn("face gallery unreadable, faces will be labelled untrained", zap.Error(err))
		gallery = nil
	}
	if gallery == nil {
		logger.Log().Warn("face gallery empty", zap.String("dir", cfg.GalleryDir))
	}
	return face.Identifier{Gallery: gallery, Locator: locator, Threshold: cfg.Threshold}, nil
}
