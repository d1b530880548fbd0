package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		stderr string
		want   ErrorClass
	}{
		{"nil error", nil, "", ErrClassUnknown},
		{"auth", errors.New("401 unauthorized: invalid api key"), "", ErrClassAuth},
		{"rate limit", errors.New("429 too many requests"), "", ErrClassRateLimit},
		{"timeout", errors.New("context deadline exceeded"), "", ErrClassTimeout},
		{"network", errors.New("dial tcp: connection refused"), "", ErrClassNetwork},
		{"network via stderr", errors.New("exit status 1"), "no such host", ErrClassNetwork},
		{"unknown", errors.New("something weird happened"), "", ErrClassUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(context.Background(), tc.err, tc.stderr)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	got := Classify(ctx, errors.New("boom"), "")
	assert.Equal(t, ErrClassTimeout, got)
}
