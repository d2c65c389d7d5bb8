package engine

import (
	"errors"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// CreateNet loads an ONNX network and selects the CUDA or CPU target.
func CreateNet(modelPath string, useGPU bool) (gocv.Net, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return gocv.Net{}, fmt.Errorf("stat %s: %w", modelPath, err)
	}
	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		_ = net.Close()
		return gocv.Net{}, fmt.Errorf("failed to load network from %s", modelPath)
	}
	if useGPU {
		_ = net.SetPreferableBackend(gocv.NetBackendCUDA)
		_ = net.SetPreferableTarget(gocv.NetTargetCUDA)
	} else {
		_ = net.SetPreferableBackend(gocv.NetBackendDefault)
		_ = net.SetPreferableTarget(gocv.NetTargetCPU)
	}
	return net, nil
}

// Forward runs one inference on img resized to size x size. The caller closes the
// returned Mat.
func Forward(net *gocv.Net, img gocv.Mat, size int) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), errors.New("empty image")
	}
	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()
	net.SetInput(blob, "")
	out := net.Forward("")
	if out.Empty() {
		_ = out.Close()
		return gocv.NewMat(), errors.New("forward pass returned no output")
	}
	return out, nil
}

// TransposeOutput turns a YOLOv8 [1, features, anchors] output into an
// anchors x features 2D Mat, one candidate per row.
func TransposeOutput(out gocv.Mat) (gocv.Mat, error) {
	dims := out.Size()
	if len(dims) != 3 || dims[0] != 1 {
		return gocv.NewMat(), fmt.Errorf("unexpected output shape %v", dims)
	}
	flat := out.Reshape(1, dims[1])
	defer flat.Close()
	rows := gocv.NewMat()
	gocv.Transpose(flat, &rows)
	return rows, nil
}
