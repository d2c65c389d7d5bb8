package pipeline

import (
	"errors"
	"iter"
	"time"

	"VisionFusion/config"
	"VisionFusion/detect"
	"VisionFusion/face"
	"VisionFusion/geometry"

	"gocv.io/x/gocv"
)

type State int32

const (
	Idle State = iota
	Initializing
	Streaming
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initializing:
		return "initializing"
	case Streaming:
		return "streaming"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return "invalid"
	}
}

const (
	StagePose   = "pose"
	StageDetect = "detect"
	StageFace   = "face"
)

var (
	ErrPoseUnavailable = errors.New("pose estimation unavailable")
	ErrAlreadyStarted  = errors.New("session already started")
)

// Source yields frames. Read returns false once the stream has ended or failed.
type Source interface {
	Read(dst *gocv.Mat) bool
	Close() error
}

type SourceOpener func() (Source, error)

// Sink displays annotated frames. PollStop reports a user stop request.
type Sink interface {
	Show(frame gocv.Mat)
	PollStop() bool
	Close() error
}

type Renderer interface {
	Render(dst *gocv.Mat, res FrameResult)
}

// Observer is notified after each frame is shown. The annotated Mat is only valid for
// the duration of the call.
type Observer interface {
	OnFrame(res FrameResult, annotated gocv.Mat)
}

type PoseStage interface {
	Available() bool
	Err() error
	Infer(frame gocv.Mat) ([]geometry.PersonPose, error)
	Close()
}

type DetectStage interface {
	Available() bool
	Err() error
	Infer(frame gocv.Mat) ([]detect.Box, error)
	Close()
}

type FaceStage interface {
	Identify(frame gocv.Mat) iter.Seq[face.Match]
}

// StageFactory loads the perception stages during Initializing.
type StageFactory interface {
	LoadPose(cfg config.ModelConfig) PoseStage
	LoadDetect(cfg config.ModelConfig) DetectStage
	LoadFace(cfg config.FaceConfig) (FaceStage, error)
}

type StageSet struct {
	Pose   bool `json:"pose"`
	Detect bool `json:"detect"`
	Face   bool `json:"face"`
}

type Person struct {
	Pose   geometry.PersonPose   `json:"pose"`
	Report geometry.PersonReport `json:"report"`
}

// FrameResult is everything derived from one frame.
type FrameResult struct {
	Seq     uint64       `json:"seq"`
	Time    time.Time    `json:"time"`
	Width   int          `json:"width"`
	Height  int          `json:"height"`
	Faces   []face.Match `json:"faces"`
	Boxes   []detect.Box `json:"boxes"`
	Persons []Person     `json:"persons"`
	FPS     float64      `json:"fps"`
	FPSText string       `json:"fpsText"`
	Stages  StageSet     `json:"stages"`
}

// AnyRaised reports whether some person in the frame has a raised arm.
func (r FrameResult) AnyRaised() bool {
	for _, p := range r.Persons {
		if len(p.Report.Raised) > 0 {
			return true
		}
	}
	return false
}

type Status struct {
	SessionID string   `json:"sessionId"`
	State     string   `json:"state"`
	Frames    uint64   `json:"frames"`
	FPS       float64  `json:"fps"`
	Stages    StageSet `json:"stages"`
	Error     string   `json:"error,omitempty"`
}
