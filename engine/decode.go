package engine

import (
	"fmt"
	"image"

	"VisionFusion/geometry"
	iface "VisionFusion/interface"

	"gocv.io/x/gocv"
)

type candidate struct {
	classID   int
	score     float32
	x1, y1    float32
	x2, y2    float32
	keypoints geometry.PersonPose
}

func (c candidate) rect() image.Rectangle {
	return image.Rect(int(c.x1), int(c.y1), int(c.x2), int(c.y2))
}

// decodeRows reads one candidate per row of a transposed YOLOv8 output. sx and sy map
// network input coordinates back to the source frame.
func decodeRows(rows gocv.Mat, task string, conf, sx, sy float32) ([]candidate, error) {
	cols := rows.Cols()
	switch task {
	case TaskPose:
		if cols != poseFeatures {
			return nil, fmt.Errorf("pose output has %d features, want %d", cols, poseFeatures)
		}
	default:
		if cols <= 4 {
			return nil, fmt.Errorf("detect output has %d features, want more than 4", cols)
		}
	}

	var out []candidate
	for i := 0; i < rows.Rows(); i++ {
		var c candidate
		if task == TaskPose {
			c.score = rows.GetFloatAt(i, 4)
		} else {
			c.classID, c.score = argmax(rows, i, 4, cols)
		}
		if c.score < conf {
			continue
		}
		cx, cy := rows.GetFloatAt(i, 0), rows.GetFloatAt(i, 1)
		w, h := rows.GetFloatAt(i, 2), rows.GetFloatAt(i, 3)
		c.x1, c.y1 = (cx-w/2)*sx, (cy-h/2)*sy
		c.x2, c.y2 = (cx+w/2)*sx, (cy+h/2)*sy

		if task == TaskPose {
			c.keypoints = make(geometry.PersonPose, geometry.NumJoints)
			for j := 0; j < int(geometry.NumJoints); j++ {
				base := 5 + j*3
				c.keypoints[j] = geometry.Keypoint{
					X:          int(rows.GetFloatAt(i, base) * sx),
					Y:          int(rows.GetFloatAt(i, base+1) * sy),
					Confidence: rows.GetFloatAt(i, base+2),
				}
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func argmax(rows gocv.Mat, row, from, to int) (int, float32) {
	best, bestScore := 0, float32(-1)
	for col := from; col < to; col++ {
		if s := rows.GetFloatAt(row, col); s > bestScore {
			best, bestScore = col-from, s
		}
	}
	return best, bestScore
}

// suppress runs class-agnostic non-maximum suppression, keeping the highest scores.
func suppress(cands []candidate, conf, iou float32) []candidate {
	if len(cands) == 0 {
		return nil
	}
	rects := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		rects[i] = c.rect()
		scores[i] = c.score
	}
	idx := gocv.NMSBoxes(rects, scores, conf, iou)
	kept := make([]candidate, 0, len(idx))
	for _, i := range idx {
		kept = append(kept, cands[i])
	}
	return kept
}

func className(names []string, classID int) string {
	if classID >= 0 && classID < len(names) {
		return names[classID]
	}
	return fmt.Sprintf("class_%d", classID)
}

func toResult(c candidate) iface.Result {
	box := iface.NewBox(c.x1, c.y1, c.x2, c.y2)
	return iface.Result{
		ClassID: c.classID,
		Conf:    c.score,
		Box:     box,
		Center: iface.Position{
			X: (box.LT.X + box.RB.X) / 2,
			Y: (box.LT.Y + box.RB.Y) / 2,
		},
		Keypoints: c.keypoints,
	}
}
