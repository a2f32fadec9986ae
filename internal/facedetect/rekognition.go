// Package facedetect provides FaceDetector implementations over the
// external face-detection capability.
package facedetect

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"server/internal/domain"
)

// Rekognition detects faces via AWS Rekognition. The client is constructed
// once at process start and reused across requests.
type Rekognition struct {
	client  *rekognition.Client
	timeout time.Duration
}

// NewRekognition builds a detector on top of the given AWS configuration.
// Every Detect call is bounded by timeout.
func NewRekognition(cfg aws.Config, timeout time.Duration) *Rekognition {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Rekognition{
		client:  rekognition.NewFromConfig(cfg),
		timeout: timeout,
	}
}

// Detect returns the face count and the relative area of the largest
// detected face bounding box.
func (d *Rekognition) Detect(ctx context.Context, data []byte) (domain.FaceDetection, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	out, err := d.client.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: data},
		Attributes: []types.Attribute{types.AttributeDefault},
	})
	if err != nil {
		return domain.FaceDetection{}, fmt.Errorf("facedetect: detect faces: %w", err)
	}

	result := domain.FaceDetection{FaceCount: len(out.FaceDetails)}
	for _, face := range out.FaceDetails {
		box := face.BoundingBox
		if box == nil || box.Width == nil || box.Height == nil {
			continue
		}
		area := float64(*box.Width) * float64(*box.Height)
		if area > result.LargestFaceAreaRatio {
			result.LargestFaceAreaRatio = area
		}
	}
	return result, nil
}
