package face

import (
	"errors"
	"fmt"
	"image"
	"io"
	"iter"

	"VisionFusion/logger"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Identifier locates faces in a frame and names them against Gallery. A nil Gallery
// labels every located face LabelUntrained.
type Identifier struct {
	Gallery   *Gallery
	Locator   Locator
	Threshold float32
}

// Identify lazily yields one Match per located face. A region that cannot be
// classified yields a LabelError match and does not affect its siblings. The
// sequence holds no state between calls.
func (id Identifier) Identify(frame gocv.Mat) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		if id.Locator == nil || frame.Empty() {
			return
		}
		gray := gocv.NewMat()
		defer gray.Close()
		if frame.Channels() == 1 {
			frame.CopyTo(&gray)
		} else {
			gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
		}
		bounds := image.Rect(0, 0, gray.Cols(), gray.Rows())
		for _, r := range id.locate(gray) {
			if !yield(id.classify(gray, bounds, r)) {
				return
			}
		}
	}
}

func (id Identifier) locate(gray gocv.Mat) (rects []image.Rectangle) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log().Error("face locator panic", zap.Any("recovered", r))
			rects = nil
		}
	}()
	return id.Locator.Locate(gray)
}

func (id Identifier) classify(gray gocv.Mat, bounds image.Rectangle, r image.Rectangle) (m Match) {
	m = Match{Rect: r}
	defer func() {
		if rec := recover(); rec != nil {
			m = Match{Rect: r, Label: LabelError, Err: fmt.Errorf("classify face: %v", rec)}
		}
	}()
	if id.Gallery == nil {
		m.Label = LabelUntrained
		return m
	}
	if r.Empty() || !r.In(bounds) {
		return Match{Rect: r, Label: LabelError, Err: ErrRegionOutOfBounds}
	}
	roi := gray.Region(r)
	defer roi.Close()
	label, score, err := id.Gallery.Classify(roi, id.Threshold)
	if err != nil {
		return Match{Rect: r, Label: LabelError, Err: err}
	}
	m.Label, m.Score = label, score
	return m
}

// Close releases the locator and the trained gallery.
func (id Identifier) Close() error {
	var errs []error
	if c, ok := id.Locator.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if id.Gallery != nil {
		errs = append(errs, id.Gallery.Close())
	}
	return errors.Join(errs...)
}
