package infra

import "testing"

func TestPoolMaxConns(t *testing.T) {
	tests := []struct {
		workers int
		want    int32
	}{
		{workers: 1, want: 4},
		{workers: 2, want: 4},
		{workers: 4, want: 8},
		{workers: 16, want: 32},
		{workers: 0, want: 4},
	}
	for _, tt := range tests {
		if got := poolMaxConns(tt.workers); got != tt.want {
			t.Fatalf("poolMaxConns(%d) = %d, want %d", tt.workers, got, tt.want)
		}
	}
}
