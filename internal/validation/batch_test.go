package validation

import (
	"context"
	"strings"
	"testing"

	"server/internal/domain"
)

func TestValidateAllPreservesOrderAndLength(t *testing.T) {
	detector := &fakeDetector{result: domain.FaceDetection{FaceCount: 1, LargestFaceAreaRatio: 0.3}}
	p := newTestPipeline(testConfig(), newFakeRepo(), detector)
	b := NewBatchValidator(p, 2)

	good := testJPEG(t, 300, 300)
	small := testJPEG(t, 100, 100)
	candidates := []domain.UploadCandidate{
		candidate("a.jpg", "image/jpeg", good),
		candidate("b.txt", "text/plain", []byte("hi")),
		candidate("c.jpg", "image/jpeg", small),
		candidate("d.jpg", "image/jpeg", nil),
		candidate("e.jpg", "image/jpeg", good),
	}

	verdicts := b.ValidateAll(context.Background(), candidates)
	if len(verdicts) != len(candidates) {
		t.Fatalf("got %d verdicts for %d candidates", len(verdicts), len(candidates))
	}

	if !verdicts[0].Accepted {
		t.Fatalf("candidate 0 should pass, got %q", verdicts[0].Reason)
	}
	if verdicts[1].Persistable || !strings.Contains(verdicts[1].Reason, "Invalid file type") {
		t.Fatalf("candidate 1 verdict out of order: %+v", verdicts[1])
	}
	if !verdicts[2].Persistable || !strings.Contains(verdicts[2].Reason, "resolution") {
		t.Fatalf("candidate 2 verdict out of order: %+v", verdicts[2])
	}
	if verdicts[3].Persistable || verdicts[3].Reason != "File is empty or corrupt" {
		t.Fatalf("candidate 3 verdict out of order: %+v", verdicts[3])
	}
	if !verdicts[4].Accepted {
		t.Fatalf("candidate 4 should pass, got %q", verdicts[4].Reason)
	}

	seen := map[string]bool{}
	for i, v := range verdicts {
		if v.ID == "" {
			t.Fatalf("verdict %d missing id", i)
		}
		if seen[v.ID] {
			t.Fatalf("verdict %d reuses id %s", i, v.ID)
		}
		seen[v.ID] = true
	}
}

func TestValidateAllEmpty(t *testing.T) {
	detector := &fakeDetector{result: domain.FaceDetection{FaceCount: 1}}
	b := NewBatchValidator(newTestPipeline(testConfig(), newFakeRepo(), detector), 4)
	if got := b.ValidateAll(context.Background(), nil); len(got) != 0 {
		t.Fatalf("expected no verdicts, got %d", len(got))
	}
}
