package config

import (
	"errors"
	"fmt"
	"os"

	"VisionFusion/geometry"
	iface "VisionFusion/interface"

	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type CaptureConfig struct {
	// Source is a device index ("0") or a stream URL / file path.
	Source   string `yaml:"source"`
	Headless bool   `yaml:"headless"`
	Window   string `yaml:"window"`
}

type ModelConfig struct {
	Enabled   bool     `yaml:"enabled"`
	ModelPath string   `yaml:"modelPath"`
	NamesFile string   `yaml:"namesFile"`
	Names     []string `yaml:"names"`
	Conf      float32  `yaml:"conf"`
	Iou       float32  `yaml:"iou"`
	InputSize int      `yaml:"inputSize"`
	UseGPU    bool     `yaml:"useGPU"`
}

type FaceConfig struct {
	Enabled      bool    `yaml:"enabled"`
	GalleryDir   string  `yaml:"galleryDir"`
	CascadePath  string  `yaml:"cascadePath"`
	Threshold    float32 `yaml:"threshold"`
	FaceSize     int     `yaml:"faceSize"`
	ScaleFactor  float64 `yaml:"scaleFactor"`
	MinNeighbors int     `yaml:"minNeighbors"`
	MinSize      int     `yaml:"minSize"`
}

type RenderConfig struct {
	KeypointConfidence float32 `yaml:"keypointConfidence"`
	DrawSkeleton       bool    `yaml:"drawSkeleton"`
}

type MonitorConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type MQTTConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Broker        string `yaml:"broker"`
	ClientID      string `yaml:"clientId"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	Topic         string `yaml:"topic"`
	MinIntervalMs int    `yaml:"minIntervalMs"`
}

type RegistryConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	IntervalSeconds int    `yaml:"intervalSeconds"`
}

type Config struct {
	Log      LogConfig           `yaml:"log"`
	Capture  CaptureConfig       `yaml:"capture"`
	Pose     ModelConfig         `yaml:"pose"`
	Detect   ModelConfig         `yaml:"detect"`
	Face     FaceConfig          `yaml:"face"`
	Geometry geometry.Thresholds `yaml:"geometry"`
	Render   RenderConfig        `yaml:"render"`
	Monitor  MonitorConfig       `yaml:"monitor"`
	API      APIConfig           `yaml:"api"`
	MQTT     MQTTConfig          `yaml:"mqtt"`
	Registry RegistryConfig      `yaml:"registry"`
}

func Default() Config {
	th := geometry.DefaultThresholds()
	// 实时循环里抬手判定使用 10 像素的间隔
	th.ArmGap = 10
	return Config{
		Log: LogConfig{Level: "info"},
		Capture: CaptureConfig{
			Source: "0",
			Window: "VisionFusion",
		},
		Pose: ModelConfig{
			Enabled:   true,
			ModelPath: "models/yolov8n-pose.onnx",
			Conf:      0.25,
			Iou:       0.45,
			InputSize: 640,
		},
		Detect: ModelConfig{
			Enabled:   true,
			ModelPath: "models/yolov8n.onnx",
			Conf:      0.25,
			Iou:       0.45,
			InputSize: 640,
		},
		Face: FaceConfig{
			Enabled:      true,
			GalleryDir:   "faces",
			CascadePath:  "models/haarcascade_frontalface_default.xml",
			Threshold:    90,
			FaceSize:     200,
			ScaleFactor:  1.1,
			MinNeighbors: 5,
			MinSize:      60,
		},
		Geometry: th,
		Render: RenderConfig{
			KeypointConfidence: 0.5,
			DrawSkeleton:       true,
		},
		Monitor:  MonitorConfig{Enabled: true, Port: 9100},
		API:      APIConfig{Enabled: true, Port: 8080},
		MQTT:     MQTTConfig{Broker: "tcp://localhost:1883", ClientID: "visionfusion", Topic: "visionfusion", MinIntervalMs: 1000},
		Registry: RegistryConfig{Host: "127.0.0.1", Port: 8000, IntervalSeconds: 5},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func unit(name string, v float32) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be in [0,1], got %v", name, v)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	for name, v := range map[string]float32{
		"pose.conf":                   c.Pose.Conf,
		"pose.iou":                    c.Pose.Iou,
		"detect.conf":                 c.Detect.Conf,
		"detect.iou":                  c.Detect.Iou,
		"geometry.armConfidence":      c.Geometry.ArmConfidence,
		"geometry.standingConfidence": c.Geometry.StandingConfidence,
		"render.keypointConfidence":   c.Render.KeypointConfidence,
	} {
		if err := unit(name, v); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Geometry.ArmGap < 0 {
		errs = append(errs, fmt.Errorf("geometry.armGap must not be negative, got %d", c.Geometry.ArmGap))
	}
	if c.Geometry.StandingRatio <= 0 {
		errs = append(errs, fmt.Errorf("geometry.standingRatio must be positive, got %v", c.Geometry.StandingRatio))
	}
	if c.Face.ScaleFactor <= 1 {
		errs = append(errs, fmt.Errorf("face.scaleFactor must be greater than 1, got %v", c.Face.ScaleFactor))
	}

	// 非法尺寸回退到默认值
	def := Default()
	if c.Pose.InputSize <= 0 {
		c.Pose.InputSize = def.Pose.InputSize
	}
	if c.Detect.InputSize <= 0 {
		c.Detect.InputSize = def.Detect.InputSize
	}
	if c.Face.FaceSize <= 0 {
		c.Face.FaceSize = def.Face.FaceSize
	}
	if c.Face.MinNeighbors <= 0 {
		c.Face.MinNeighbors = def.Face.MinNeighbors
	}
	if c.Face.MinSize <= 0 {
		c.Face.MinSize = def.Face.MinSize
	}
	if c.MQTT.MinIntervalMs < 0 {
		c.MQTT.MinIntervalMs = 0
	}
	if c.Registry.IntervalSeconds <= 0 {
		c.Registry.IntervalSeconds = def.Registry.IntervalSeconds
	}
	return errors.Join(errs...)
}

// Engine converts the model section to a backend configuration for task.
func (m ModelConfig) Engine(task string) iface.EngineConfig {
	names := iface.NamesConf{IsFile: false, Data: m.Names}
	if m.NamesFile != "" {
		names = iface.NamesConf{IsFile: true, Data: m.NamesFile}
	}
	return iface.EngineConfig{
		Task:      task,
		UseGPU:    m.UseGPU,
		ModelPath: m.ModelPath,
		Names:     names,
		Conf:      m.Conf,
		Iou:       m.Iou,
		InputSize: m.InputSize,
	}
}
