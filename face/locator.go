package face

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// CascadeLocator finds faces with a Haar cascade.
type CascadeLocator struct {
	classifier   gocv.CascadeClassifier
	ScaleFactor  float64
	MinNeighbors int
	MinSize      int
}

func NewCascadeLocator(path string, scaleFactor float64, minNeighbors, minSize int) (*CascadeLocator, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCascade, err)
	}
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		_ = classifier.Close()
		return nil, fmt.Errorf("%w: cannot parse %s", ErrNoCascade, path)
	}
	if scaleFactor <= 1 {
		scaleFactor = DefaultScaleFactor
	}
	if minNeighbors <= 0 {
		minNeighbors = DefaultMinNeighbors
	}
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	return &CascadeLocator{
		classifier:   classifier,
		ScaleFactor:  scaleFactor,
		MinNeighbors: minNeighbors,
		MinSize:      minSize,
	}, nil
}

func (c *CascadeLocator) Locate(gray gocv.Mat) []image.Rectangle {
	return c.classifier.DetectMultiScaleWithParams(gray, c.ScaleFactor, c.MinNeighbors, 0,
		image.Pt(c.MinSize, c.MinSize), image.Pt(0, 0))
}

func (c *CascadeLocator) Close() error {
	return c.classifier.Close()
}
