package facedetect

import (
	"context"

	"server/internal/domain"
)

// Static always reports the same detection result. It backs development
// environments without AWS credentials and tests.
type Static struct {
	result domain.FaceDetection
}

// NewStatic builds a detector that reports count faces with the given
// largest-face area ratio.
func NewStatic(count int, areaRatio float64) *Static {
	return &Static{result: domain.FaceDetection{
		FaceCount:            count,
		LargestFaceAreaRatio: areaRatio,
	}}
}

func (d *Static) Detect(_ context.Context, _ []byte) (domain.FaceDetection, error) {
	return d.result, nil
}
