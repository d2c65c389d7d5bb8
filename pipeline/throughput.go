package pipeline

import (
	"fmt"
	"time"
)

// Throughput counts frames over windows of at least one second.
type Throughput struct {
	start time.Time
	count int
	fps   float64
	ready bool
}

func NewThroughput(now time.Time) *Throughput {
	return &Throughput{start: now}
}

// Tick counts one frame. When the window has lasted a second or more it computes the
// rate and starts a new window.
func (t *Throughput) Tick(now time.Time) {
	t.count++
	elapsed := now.Sub(t.start)
	if elapsed < time.Second {
		return
	}
	t.fps = float64(t.count) / elapsed.Seconds()
	t.count = 0
	t.start = now
	t.ready = true
}

// FPS returns the last closed window's rate, false before the first window closes.
func (t *Throughput) FPS() (float64, bool) {
	return t.fps, t.ready
}

func (t *Throughput) Text() string {
	if !t.ready {
		return "FPS: N/A"
	}
	return fmt.Sprintf("FPS: %.2f", t.fps)
}
