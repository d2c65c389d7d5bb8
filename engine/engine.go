package engine

import (
	"fmt"
	"strings"
	"sync"

	iface "VisionFusion/interface"

	"gocv.io/x/gocv"
)

// Detector runs a YOLOv8 ONNX model through the OpenCV DNN module. Task selects how
// the output tensor is decoded: TaskDetect yields boxes per class name, TaskPose
// yields "person" boxes carrying keypoints.
type Detector struct {
	Task         string
	ModelPath    string
	Names        []string
	Conf         float32
	Iou          float32
	UseGPU       bool
	InputSize    int
	State        int
	ErrorMessage string

	mu  sync.Mutex
	net gocv.Net
}

func (d *Detector) New() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Task == "" {
		d.Task = TaskDetect
	}
	if d.Task != TaskDetect && d.Task != TaskPose {
		d.ErrorMessage = fmt.Sprintf("unsupported task: %s", d.Task)
		return false
	}
	if d.InputSize <= 0 {
		d.InputSize = DefaultInputSize
	}
	d.State = REGISTERED
	return true
}

func (d *Detector) CheckConfig() iface.EngineConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	retConfig := iface.EngineConfig{}
	retConfig.Task = d.Task
	retConfig.ModelPath = d.ModelPath
	retConfig.Conf = d.Conf
	retConfig.Iou = d.Iou
	retConfig.UseGPU = d.UseGPU
	retConfig.InputSize = d.InputSize
	retConfig.Names = iface.NamesConf{
		IsFile: false,
		Data:   d.Names,
	}
	return retConfig
}

func (d *Detector) LoadModel(modelPath string, names iface.NamesConf, conf float32, iou float32, useGPU bool) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.State {
	case UNREGISTERED, 0:
		return false, fmt.Errorf("detector not registered")
	case BUSY:
		return false, fmt.Errorf("detector is busy")
	}
	if !strings.HasSuffix(strings.ToLower(modelPath), ".onnx") {
		return false, fmt.Errorf("LoadModel only supports .onnx, got %s", modelPath)
	}
	if conf < 0 || conf > 1 {
		return false, fmt.Errorf("conf must be in [0,1], got %v", conf)
	}
	if iou < 0 || iou > 1 {
		return false, fmt.Errorf("iou must be in [0,1], got %v", iou)
	}

	labels, err := resolveNames(d.Task, names)
	if err != nil {
		return false, err
	}

	net, err := CreateNet(modelPath, useGPU)
	if err != nil {
		d.ErrorMessage = err.Error()
		return false, err
	}
	if d.State == IDLE {
		_ = d.net.Close()
	}
	d.net = net
	d.Names = labels
	d.ModelPath = modelPath
	d.Conf = conf
	d.Iou = iou
	d.UseGPU = useGPU
	d.ErrorMessage = ""
	d.State = IDLE
	return true, nil
}

func resolveNames(task string, names iface.NamesConf) ([]string, error) {
	if names.IsFile {
		path, ok := names.Data.(string)
		if !ok {
			return nil, fmt.Errorf("names file path must be a string, got %T", names.Data)
		}
		return ReadLinesReadFile(path)
	}
	switch v := names.Data.(type) {
	case []string:
		if len(v) > 0 {
			return append([]string(nil), v...), nil
		}
	case nil:
	default:
		return nil, fmt.Errorf("names must be a slice or a file path, got %T", names.Data)
	}
	if task == TaskPose {
		return []string{"person"}, nil
	}
	return append([]string(nil), CocoNames...), nil
}

func (d *Detector) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.State == IDLE || d.State == BUSY {
		_ = d.net.Close()
	}
	d.net = gocv.Net{}
	d.ModelPath = ""
	d.Names = nil
	d.Conf = 0
	d.Iou = 0
	d.UseGPU = false
	d.State = UNREGISTERED
}

// Detect returns RetData whose Data is a map[string][]iface.Result on success and an
// error message string otherwise.
func (d *Detector) Detect(img gocv.Mat) iface.RetData {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.State {
	case UNREGISTERED, 0:
		return iface.RetData{Success: false, Data: "Detector not registered"}
	case REGISTERED:
		return iface.RetData{Success: false, Data: "Model not loaded"}
	case BUSY:
		return iface.RetData{Success: false, Data: "Detector is busy"}
	}
	if img.Empty() {
		return iface.RetData{Success: false, Data: "empty image"}
	}
	d.State = BUSY
	defer func() { d.State = IDLE }()

	out, err := Forward(&d.net, img, d.InputSize)
	if err != nil {
		return iface.RetData{Success: false, Data: err.Error()}
	}
	defer out.Close()
	rows, err := TransposeOutput(out)
	if err != nil {
		return iface.RetData{Success: false, Data: err.Error()}
	}
	defer rows.Close()

	sx := float32(img.Cols()) / float32(d.InputSize)
	sy := float32(img.Rows()) / float32(d.InputSize)
	cands, err := decodeRows(rows, d.Task, d.Conf, sx, sy)
	if err != nil {
		return iface.RetData{Success: false, Data: err.Error()}
	}

	resultDict := make(map[string][]iface.Result)
	for _, name := range d.Names {
		resultDict[name] = []iface.Result{}
	}
	for _, c := range suppress(cands, d.Conf, d.Iou) {
		name := className(d.Names, c.classID)
		resultDict[name] = append(resultDict[name], toResult(c))
	}
	return iface.RetData{Success: true, Data: resultDict}
}

func (d *Detector) SetInputSize(size int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if size > 0 {
		d.InputSize = size
	}
}
