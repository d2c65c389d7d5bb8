package face

import (
	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"
)

// LBPH wraps the OpenCV local binary patterns histogram recognizer.
type LBPH struct {
	r *contrib.LBPHFaceRecognizer
}

func NewLBPH() Recognizer {
	return &LBPH{r: contrib.NewLBPHFaceRecognizer()}
}

func (l *LBPH) Train(images []gocv.Mat, labels []int) {
	l.r.Train(images, labels)
}

func (l *LBPH) Predict(face gocv.Mat) (int, float32) {
	resp := l.r.PredictExtendedResponse(face)
	return int(resp.Label), resp.Confidence
}

func (l *LBPH) Close() error {
	return l.r.Close()
}
