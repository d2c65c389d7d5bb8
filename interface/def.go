package iface

import (
	"image"

	"VisionFusion/geometry"
)

type NamesConf struct {
	IsFile bool
	Data   any
}

type RetData struct {
	Success bool
	Data    any
}

type EngineConfig struct {
	Task      string
	UseGPU    bool
	ModelPath string
	Names     NamesConf
	Conf      float32
	Iou       float32
	InputSize int
}

type Position struct {
	X, Y float32
}

type Box struct {
	LT Position
	RT Position
	RB Position
	LB Position
}

// Rect converts the box to integer pixel coordinates.
func (b Box) Rect() image.Rectangle {
	return image.Rect(int(b.LT.X), int(b.LT.Y), int(b.RB.X), int(b.RB.Y))
}

func NewBox(x1, y1, x2, y2 float32) Box {
	return Box{
		LT: Position{X: x1, Y: y1},
		RT: Position{X: x2, Y: y1},
		RB: Position{X: x2, Y: y2},
		LB: Position{X: x1, Y: y2},
	}
}

// Result is one detected instance. Keypoints is only set by pose models.
type Result struct {
	ClassID   int
	Conf      float32
	Box       Box
	Center    Position
	Keypoints geometry.PersonPose
}
