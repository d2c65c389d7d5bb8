package render

import (
	"fmt"
	"image"
	"image/color"

	"VisionFusion/config"
	"VisionFusion/detect"
	"VisionFusion/face"
	"VisionFusion/geometry"
	"VisionFusion/pipeline"

	"gocv.io/x/gocv"
)

var (
	knownColor    = color.RGBA{0, 255, 0, 0}
	unknownColor  = color.RGBA{255, 0, 0, 0}
	boxColor      = color.RGBA{255, 255, 0, 0}
	keypointColor = color.RGBA{0, 222, 125, 0}
	limbColor     = color.RGBA{255, 153, 51, 0}
	eventColor    = color.RGBA{255, 0, 0, 0}
	postureColor  = color.RGBA{255, 255, 255, 0}
	fpsColor      = color.RGBA{0, 255, 0, 0}
)

const (
	boxThickness   = 2
	keypointRadius = 5
	eventTop       = 50
	eventStep      = 30
	eventLeft      = 50
)

// Renderer draws a FrameResult onto its frame.
type Renderer struct {
	KeypointConfidence float32
	DrawSkeleton       bool
}

func New(cfg config.RenderConfig) *Renderer {
	return &Renderer{
		KeypointConfidence: cfg.KeypointConfidence,
		DrawSkeleton:       cfg.DrawSkeleton,
	}
}

func (r *Renderer) Render(dst *gocv.Mat, res pipeline.FrameResult) {
	for _, m := range res.Faces {
		drawFace(dst, m)
	}
	for _, b := range res.Boxes {
		drawBox(dst, b)
	}
	for _, p := range res.Persons {
		r.drawPose(dst, p.Pose)
	}
	for _, l := range EventLines(res.Persons) {
		gocv.PutText(dst, l.Text, l.Origin, gocv.FontHersheySimplex, 0.8, l.Color, 2)
	}
	gocv.PutText(dst, res.FPSText, image.Pt(dst.Cols()-150, 30), gocv.FontHersheySimplex, 0.8, fpsColor, 2)
}

func FaceLabel(m face.Match) string {
	return fmt.Sprintf("%s (%.1f)", m.Label, m.Score)
}

func BoxLabel(b detect.Box) string {
	return fmt.Sprintf("%s %.2f", b.Label, b.Confidence)
}

func drawFace(dst *gocv.Mat, m face.Match) {
	c := unknownColor
	if m.Known() {
		c = knownColor
	}
	gocv.Rectangle(dst, m.Rect, c, boxThickness)
	gocv.PutText(dst, FaceLabel(m), image.Pt(m.Rect.Min.X, m.Rect.Min.Y-10), gocv.FontHersheySimplex, 0.6, c, 2)
}

func drawBox(dst *gocv.Mat, b detect.Box) {
	gocv.Rectangle(dst, b.Rect, boxColor, boxThickness)
	pos := image.Pt(b.Rect.Min.X, b.Rect.Min.Y-8)
	if pos.Y < 15 {
		pos.Y = b.Rect.Max.Y + 20
	}
	gocv.PutText(dst, BoxLabel(b), pos, gocv.FontHersheySimplex, 0.5, boxColor, 2)
}

func (r *Renderer) drawPose(dst *gocv.Mat, pose geometry.PersonPose) {
	if r.DrawSkeleton {
		for _, limb := range geometry.Limbs {
			a, okA := pose.At(limb[0])
			b, okB := pose.At(limb[1])
			if !okA || !okB || a.Confidence <= r.KeypointConfidence || b.Confidence <= r.KeypointConfidence {
				continue
			}
			gocv.Line(dst, image.Pt(a.X, a.Y), image.Pt(b.X, b.Y), limbColor, 2)
		}
	}
	for _, kp := range pose {
		if kp.Confidence > r.KeypointConfidence {
			gocv.Circle(dst, image.Pt(kp.X, kp.Y), keypointRadius, keypointColor, -1)
		}
	}
}

// Line is one line of overlay text.
type Line struct {
	Text   string
	Origin image.Point
	Color  color.RGBA
}

// EventLines stacks one line per person with a raised arm, then one per known
// posture, from the top left of the frame.
func EventLines(persons []pipeline.Person) []Line {
	var lines []Line
	next := func() image.Point {
		return image.Pt(eventLeft, eventTop+len(lines)*eventStep)
	}
	for i, p := range persons {
		if msg := p.Report.Message(); msg != "" {
			lines = append(lines, Line{Text: fmt.Sprintf("Pose %d: %s", i+1, msg), Origin: next(), Color: eventColor})
		}
	}
	for i, p := range persons {
		if p.Report.Posture != geometry.PostureUnknown {
			lines = append(lines, Line{Text: fmt.Sprintf("Pose %d: %s", i+1, p.Report.Posture), Origin: next(), Color: postureColor})
		}
	}
	return lines
}
