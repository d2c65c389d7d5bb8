package capture

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Camera reads frames from a device index ("0") or a stream URL / file path.
type Camera struct {
	source string
	vc     *gocv.VideoCapture
}

func OpenCamera(source string) (*Camera, error) {
	vc, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return nil, fmt.Errorf("open capture %q: %w", source, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("open capture %q: not opened", source)
	}
	// 实时流只保留最新一帧
	vc.Set(gocv.VideoCaptureBufferSize, 1)
	return &Camera{source: source, vc: vc}, nil
}

func (c *Camera) Read(dst *gocv.Mat) bool {
	return c.vc.Read(dst)
}

func (c *Camera) Close() error {
	return c.vc.Close()
}

// IsStopKey reports whether a WaitKey result is 'q' or ESC.
func IsStopKey(key int) bool {
	if key < 0 {
		return false
	}
	k := key & 0xFF
	return k == 'q' || k == 'Q' || k == 27
}

// Window shows frames in a desktop window and stops on 'q' or ESC.
type Window struct {
	w *gocv.Window
}

func NewWindow(name string) *Window {
	return &Window{w: gocv.NewWindow(name)}
}

func (w *Window) Show(frame gocv.Mat) {
	w.w.IMShow(frame)
}

func (w *Window) PollStop() bool {
	return IsStopKey(w.w.WaitKey(1))
}

func (w *Window) Close() error {
	return w.w.Close()
}

// Headless discards frames. It never asks to stop.
type Headless struct{}

func (Headless) Show(gocv.Mat)  {}
func (Headless) PollStop() bool { return false }
func (Headless) Close() error   { return nil }
