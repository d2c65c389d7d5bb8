package face

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"VisionFusion/logger"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Gallery is a recognizer trained on reference faces, one identity per
// subdirectory. It is read-only once built.
type Gallery struct {
	names      []string
	size       int
	recognizer Recognizer
}

// BuildGallery trains a recognizer from folder/<name>/<image>. Identities are labelled
// in directory order. It returns a nil gallery and no error when no image could be
// read anywhere.
func BuildGallery(folder string, size int, newRecognizer func() Recognizer) (g *Gallery, err error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read gallery %s: %w", folder, err)
	}

	var (
		names  []string
		faces  []gocv.Mat
		labels []int
	)
	defer func() {
		for _, m := range faces {
			_ = m.Close()
		}
	}()
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		label := len(names)
		names = append(names, e.Name())
		dir := filepath.Join(folder, e.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			logger.Log().Warn("skip unreadable identity", zap.String("dir", dir), zap.Error(err))
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			img := gocv.IMRead(filepath.Join(dir, f.Name()), gocv.IMReadGrayScale)
			if img.Empty() {
				_ = img.Close()
				continue
			}
			resized := gocv.NewMat()
			gocv.Resize(img, &resized, image.Pt(size, size), 0, 0, gocv.InterpolationLinear)
			_ = img.Close()
			faces = append(faces, resized)
			labels = append(labels, label)
		}
	}
	if len(faces) == 0 {
		logger.Log().Warn("no reference faces found", zap.String("folder", folder))
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			g, err = nil, fmt.Errorf("train face recognizer: %v", r)
		}
	}()
	recognizer := newRecognizer()
	recognizer.Train(faces, labels)
	logger.Log().Info("face gallery trained", zap.Int("identities", len(names)), zap.Int("images", len(faces)))
	return &Gallery{names: names, size: size, recognizer: recognizer}, nil
}

func (g *Gallery) Names() []string {
	return append([]string(nil), g.names...)
}

func (g *Gallery) Size() int {
	return g.size
}

// Classify resizes face to the gallery size and predicts its identity. Distances at or
// above threshold, and labels the gallery does not know, give LabelUnknown.
func (g *Gallery) Classify(face gocv.Mat, threshold float32) (string, float32, error) {
	if face.Empty() {
		return LabelError, 0, fmt.Errorf("empty face region")
	}
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(face, &resized, image.Pt(g.size, g.size), 0, 0, gocv.InterpolationLinear)
	label, distance := g.recognizer.Predict(resized)
	if distance < threshold && label >= 0 && label < len(g.names) {
		return g.names[label], distance, nil
	}
	return LabelUnknown, distance, nil
}

// Close releases the recognizer when it holds native resources.
func (g *Gallery) Close() error {
	if c, ok := g.recognizer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
