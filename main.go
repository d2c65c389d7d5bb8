package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"

	"VisionFusion/api"
	"VisionFusion/capture"
	"VisionFusion/config"
	"VisionFusion/heartbeat"
	"VisionFusion/logger"
	"VisionFusion/monitor"
	"VisionFusion/mqtt"
	"VisionFusion/pipeline"
	"VisionFusion/render"

	"go.uber.org/zap"
)

func init() {
	// highgui 窗口必须在主线程上操作
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Println("Failed to load config:", err)
		os.Exit(2)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		fmt.Println("Failed to init logger:", err)
		os.Exit(2)
	}
	code := run(cfg)
	logger.Sync()
	os.Exit(code)
}

func run(cfg config.Config) int {
	fmt.Println(strings.Repeat("#", 64))
	fmt.Println(" Source:", cfg.Capture.Source)
	fmt.Println(" Pose model:", cfg.Pose.ModelPath)
	fmt.Println(" Detect model:", cfg.Detect.ModelPath, "enabled:", cfg.Detect.Enabled)
	fmt.Println(" Face gallery:", cfg.Face.GalleryDir, "enabled:", cfg.Face.Enabled)
	fmt.Println(strings.Repeat("#", 64))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink pipeline.Sink = capture.Headless{}
	if !cfg.Capture.Headless {
		sink = capture.NewWindow(cfg.Capture.Window)
	}
	open := func() (pipeline.Source, error) {
		cam, err := capture.OpenCamera(cfg.Capture.Source)
		if err != nil {
			return nil, err
		}
		return cam, nil
	}
	session := pipeline.NewSession(cfg, stageFactory{}, open, sink, render.New(cfg.Render))
	logger.Log().Info("session created", zap.String("session", session.ID))

	auxCtx, cancelAux := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if cfg.Monitor.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			monitor.StartMon(cfg.Monitor.Port, auxCtx)
		}()
	}
	if cfg.API.Enabled {
		srv := api.New(session)
		session.AddObserver(srv)
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv.Start(cfg.API.Port, auxCtx)
		}()
	}
	if cfg.MQTT.Enabled {
		pub := mqtt.New(cfg.MQTT, session.ID)
		if err := pub.Start(); err != nil {
			logger.Log().Warn("MQTT broker not reachable yet, retrying in background", zap.Error(err))
		}
		session.AddObserver(pub)
		defer pub.Stop()
	}
	if cfg.Registry.Enabled {
		ip, err := heartbeat.GetOutboundIP()
		if err != nil {
			logger.Log().Warn("Failed to get outbound IP, skipping registration", zap.Error(err))
		} else {
			hb := heartbeat.New(cfg.Registry, ip, cfg.API.Port, session)
			wg.Add(1)
			go hb.Run(auxCtx, &wg)
		}
	} else {
		logger.Log().Info("registry disabled, skipping registration")
	}

	err := session.Run(ctx)
	cancelAux()
	wg.Wait()

	switch {
	case errors.Is(err, pipeline.ErrPoseUnavailable):
		logger.Log().Error("pose model is required, exiting", zap.Error(err))
		return 1
	case err != nil:
		logger.Log().Error("session failed", zap.Error(err))
		return 1
	}
	logger.Log().Info("Safely exited", zap.Uint64("frames", session.Status().Frames))
	return 0
}
