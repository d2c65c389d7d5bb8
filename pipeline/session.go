package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"VisionFusion/config"
	"VisionFusion/detect"
	"VisionFusion/face"
	"VisionFusion/geometry"
	"VisionFusion/logger"
	"VisionFusion/monitor"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Session owns one run of the frame loop: its stages, its source and sink, and the
// throughput meter. Run may be called once.
type Session struct {
	ID string

	cfg       config.Config
	factory   StageFactory
	open      SourceOpener
	sink      Sink
	renderer  Renderer
	observers []Observer
	now       func() time.Time

	mu     sync.RWMutex
	state  State
	frames uint64
	fps    float64
	stages StageSet
	err    error

	stopCh    chan struct{}
	stopOnce  sync.Once
	drainOnce sync.Once

	pose   PoseStage
	detect DetectStage
	face   FaceStage
	source Source
	meter  *Throughput
}

func NewSession(cfg config.Config, factory StageFactory, open SourceOpener, sink Sink, renderer Renderer) *Session {
	return &Session{
		ID:       uuid.NewString(),
		cfg:      cfg,
		factory:  factory,
		open:     open,
		sink:     sink,
		renderer: renderer,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// AddObserver must be called before Run.
func (s *Session) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Stop asks the loop to leave Streaming before its next iteration.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		SessionID: s.ID,
		State:     s.state.String(),
		Frames:    s.frames,
		FPS:       s.fps,
		Stages:    s.stages,
	}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	return st
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	logger.Log().Info("session state", zap.String("session", s.ID), zap.String("state", st.String()))
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.err = err
	s.state = Stopped
	s.mu.Unlock()
	logger.Log().Error("session stopped", zap.String("session", s.ID), zap.Error(err))
	return err
}

// Run initializes the stages, streams until the source ends, ctx is done, Stop is
// called or the sink requests a stop, and then drains. It returns ErrPoseUnavailable
// when the pose stage cannot be loaded.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = Initializing
	s.mu.Unlock()
	logger.Log().Info("session state", zap.String("session", s.ID), zap.String("state", Initializing.String()))

	if err := s.initialize(); err != nil {
		s.release()
		return s.fail(err)
	}

	src, err := s.open()
	if err != nil {
		s.release()
		return s.fail(fmt.Errorf("open source: %w", err))
	}
	s.source = src

	s.meter = NewThroughput(s.now())
	s.setState(Streaming)
	defer s.drain()
	s.stream(ctx)
	return nil
}

func (s *Session) initialize() error {
	s.pose = s.factory.LoadPose(s.cfg.Pose)
	if s.pose == nil || !s.pose.Available() {
		cause := error(nil)
		if s.pose != nil {
			cause = s.pose.Err()
		}
		if cause == nil {
			return ErrPoseUnavailable
		}
		return fmt.Errorf("%w: %v", ErrPoseUnavailable, cause)
	}

	set := StageSet{Pose: true}
	if s.cfg.Detect.Enabled {
		s.detect = s.factory.LoadDetect(s.cfg.Detect)
		if s.detect != nil && s.detect.Available() {
			set.Detect = true
		} else {
			logger.Log().Warn("object detection disabled", zap.String("session", s.ID), zap.Error(stageErr(s.detect)))
			if s.detect != nil {
				s.detect.Close()
			}
			s.detect = nil
		}
	}
	if s.cfg.Face.Enabled {
		f, err := s.factory.LoadFace(s.cfg.Face)
		if err != nil || f == nil {
			logger.Log().Warn("face identification disabled", zap.String("session", s.ID), zap.Error(err))
		} else {
			s.face = f
			set.Face = true
		}
	}

	s.mu.Lock()
	s.stages = set
	s.mu.Unlock()
	return nil
}

func stageErr(st DetectStage) error {
	if st == nil {
		return fmt.Errorf("no detection stage")
	}
	return st.Err()
}

func (s *Session) stream(ctx context.Context) {
	frame := gocv.NewMat()
	defer frame.Close()
	for {
		select {
		case <-ctx.Done():
			logger.Log().Info("context done, leaving stream", zap.String("session", s.ID))
			return
		case <-s.stopCh:
			logger.Log().Info("stop requested, leaving stream", zap.String("session", s.ID))
			return
		default:
		}
		if !s.source.Read(&frame) || frame.Empty() {
			logger.Log().Info("end of stream", zap.String("session", s.ID))
			return
		}
		s.process(frame)
		if s.sink.PollStop() {
			logger.Log().Info("stop key pressed", zap.String("session", s.ID))
			return
		}
	}
}

func (s *Session) process(frame gocv.Mat) {
	now := s.now()
	s.mu.RLock()
	seq := s.frames + 1
	s.mu.RUnlock()

	res := FrameResult{
		Seq:    seq,
		Time:   now,
		Width:  frame.Cols(),
		Height: frame.Rows(),
	}
	res.Faces = s.runFace(frame)
	res.Boxes = s.runDetect(frame)
	for _, p := range s.runPose(frame) {
		report := geometry.Assess(p, s.cfg.Geometry)
		res.Persons = append(res.Persons, Person{Pose: p, Report: report})
		countEvents(report)
	}

	s.meter.Tick(s.now())
	res.FPS, _ = s.meter.FPS()
	res.FPSText = s.meter.Text()
	res.Stages = StageSet{Pose: s.pose != nil, Detect: s.detect != nil, Face: s.face != nil}

	annotated := frame.Clone()
	defer annotated.Close()
	if s.renderer != nil {
		s.renderer.Render(&annotated, res)
	}
	s.sink.Show(annotated)
	for _, o := range s.observers {
		o.OnFrame(res, annotated)
	}

	s.mu.Lock()
	s.frames = seq
	s.fps = res.FPS
	s.stages = res.Stages
	s.mu.Unlock()

	monitor.FramesTotal.Inc()
	monitor.ThroughputFPS.Set(res.FPS)
	monitor.PersonsInFrame.Set(float64(len(res.Persons)))
}

func countEvents(r geometry.PersonReport) {
	for _, side := range r.Raised {
		monitor.PoseEvents.WithLabelValues("arm_raised_" + string(side)).Inc()
	}
	if r.Posture != geometry.PostureUnknown {
		monitor.PoseEvents.WithLabelValues(r.Posture.String()).Inc()
	}
}

func (s *Session) disable(stage string, err error) {
	monitor.StageErrors.WithLabelValues(stage).Inc()
	logger.Log().Warn("stage failed, disabled for the rest of the session",
		zap.String("session", s.ID), zap.String("stage", stage), zap.Error(err))
}

func (s *Session) runPose(frame gocv.Mat) []geometry.PersonPose {
	if s.pose == nil {
		return nil
	}
	start := time.Now()
	poses, err := s.pose.Infer(frame)
	monitor.ObserveStage(StagePose, time.Since(start))
	if err != nil {
		s.disable(StagePose, err)
		s.pose.Close()
		s.pose = nil
		return nil
	}
	return poses
}

func (s *Session) runDetect(frame gocv.Mat) []detect.Box {
	if s.detect == nil {
		return nil
	}
	start := time.Now()
	boxes, err := s.detect.Infer(frame)
	monitor.ObserveStage(StageDetect, time.Since(start))
	if err != nil {
		s.disable(StageDetect, err)
		s.detect.Close()
		s.detect = nil
		return nil
	}
	return boxes
}

func (s *Session) runFace(frame gocv.Mat) (matches []face.Match) {
	if s.face == nil {
		return nil
	}
	start := time.Now()
	defer func() {
		monitor.ObserveStage(StageFace, time.Since(start))
		if r := recover(); r != nil {
			s.disable(StageFace, fmt.Errorf("face stage panic: %v", r))
			s.face = nil
			matches = nil
		}
	}()
	for m := range s.face.Identify(frame) {
		if m.Err != nil {
			monitor.StageErrors.WithLabelValues(StageFace).Inc()
			logger.Log().Debug("face region failed", zap.String("session", s.ID), zap.Error(m.Err))
		}
		matches = append(matches, m)
	}
	return matches
}

func (s *Session) drain() {
	s.setState(Draining)
	s.release()
	s.setState(Stopped)
}

// release closes the source, the sink and the stages exactly once.
func (s *Session) release() {
	s.drainOnce.Do(func() {
		if s.source != nil {
			if err := s.source.Close(); err != nil {
				logger.Log().Warn("close source", zap.Error(err))
			}
		}
		if s.sink != nil {
			if err := s.sink.Close(); err != nil {
				logger.Log().Warn("close sink", zap.Error(err))
			}
		}
		s.closeStages()
	})
}

func (s *Session) closeStages() {
	if s.pose != nil {
		s.pose.Close()
	}
	if s.detect != nil {
		s.detect.Close()
	}
	if c, ok := s.face.(io.Closer); ok {
		_ = c.Close()
	}
}
