package jobs_test

import (
	"context"
	"errors"
	"testing"

	"pickup-service/internal/jobs"

	"go.uber.org/zap"
)

type stubReleaser struct {
	n   int
	err error
}

func (s stubReleaser) ReleaseMatured(context.Context) (int, error) { return s.n, s.err }

func TestReleaser_PassesThrough(t *testing.T) {
	r := jobs.NewReleaser(stubReleaser{n: 3}, zap.NewNop())
	n, err := r.Release(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("Release = %d, %v", n, err)
	}

	boom := errors.New("boom")
	r = jobs.NewReleaser(stubReleaser{n: 1, err: boom}, zap.NewNop())
	n, err = r.Release(context.Background())
	if !errors.Is(err, boom) || n != 1 {
		t.Fatalf("Release = %d, %v", n, err)
	}
}
