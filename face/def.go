package face

import (
	"errors"
	"image"

	"gocv.io/x/gocv"
)

const (
	LabelUnknown   = "unknown"
	LabelUntrained = "untrained"
	LabelError     = "error"
)

const (
	DefaultThreshold    = 90
	DefaultSize         = 200
	DefaultScaleFactor  = 1.1
	DefaultMinNeighbors = 5
	DefaultMinSize      = 60
)

var (
	ErrRegionOutOfBounds = errors.New("face region outside frame")
	ErrNoCascade         = errors.New("face cascade not loaded")
)

// Match is the identification of one located face region. Score is the recognizer
// distance, lower is closer.
type Match struct {
	Rect  image.Rectangle `json:"rect"`
	Label string          `json:"label"`
	Score float32         `json:"score"`
	Err   error           `json:"-"`
}

// Known reports whether the match names an identity from the gallery.
func (m Match) Known() bool {
	switch m.Label {
	case LabelUnknown, LabelUntrained, LabelError, "":
		return false
	}
	return true
}

// Recognizer is a trainable face classifier. Predict returns the label and the
// distance to it.
type Recognizer interface {
	Train(images []gocv.Mat, labels []int)
	Predict(face gocv.Mat) (label int, distance float32)
}

// Locator finds face regions in a grayscale image.
type Locator interface {
	Locate(gray gocv.Mat) []image.Rectangle
}
